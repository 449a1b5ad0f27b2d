//go:build !clibs

package archive

import (
	"bytes"
	"io"
	"sync"

	"github.com/klauspost/compress/zlib"
)

// one writer pool per level, DefaultCompression (-1) through BestCompression
var zlibWriters [zlib.BestCompression + 2]sync.Pool

func zlibWriterPool(level int) *sync.Pool {
	if level < zlib.DefaultCompression || level > zlib.BestCompression {
		return nil
	}
	return &zlibWriters[level+1]
}

func zlibEncode(buf []byte, level int) ([]byte, error) {
	pool := zlibWriterPool(level)
	if pool == nil {
		return nil, argumentf("zlib level %d out of range", level)
	}
	var comp bytes.Buffer
	zw, _ := pool.Get().(*zlib.Writer)
	if zw == nil {
		var err error
		if zw, err = zlib.NewWriterLevel(&comp, level); err != nil {
			return nil, err
		}
	} else {
		zw.Reset(&comp)
	}
	defer pool.Put(zw)

	if _, err := zw.Write(buf); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return comp.Bytes(), nil
}

// zlibDecode inflates buf, which claims to hold uln bytes. The claim only
// sizes the first allocation up to a cap; the output is never allowed to
// run past it.
func zlibDecode(uln int, buf []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(buf))
	if err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	defer zr.Close()

	dec := bytes.NewBuffer(make([]byte, 0, min(uln, maxInflatePrealloc)))
	if _, err := dec.ReadFrom(io.LimitReader(zr, int64(uln)+1)); err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	if dec.Len() != uln {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return dec.Bytes(), nil
}
