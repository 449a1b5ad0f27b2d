//go:build !clibs

package archive

import (
	"errors"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// encoders by level; a zstd.Encoder is safe for concurrent EncodeAll
var zstdEncoders sync.Map

func zstdEncoder(level int) (*zstd.Encoder, error) {
	if enc, ok := zstdEncoders.Load(level); ok {
		return enc.(*zstd.Encoder), nil
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
	if err != nil {
		return nil, err
	}
	actual, loaded := zstdEncoders.LoadOrStore(level, enc)
	if loaded {
		enc.Close()
	}
	return actual.(*zstd.Encoder), nil
}

func zstdEncode(buf []byte, level int) ([]byte, error) {
	enc, err := zstdEncoder(level)
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(buf, nil), nil
}

var zstdDecoder, _ = zstd.NewReader(nil,
	zstd.WithDecoderConcurrency(0),
	zstd.WithDecoderMaxMemory(MaxStringLength),
)

func zstdDecode(d, buf []byte) ([]byte, error) {
	out, err := zstdDecoder.DecodeAll(buf, d)
	if errors.Is(err, zstd.ErrDecoderSizeExceeded) {
		return nil, ErrFormat{errBadCompressedSize}
	}
	if err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	return out, nil
}
