package archive

import (
	"math"

	"github.com/klauspost/compress/zlib"
)

// ZlibCompressor compresses a document body using the zlib format.
type ZlibCompressor struct {
	Level int // compression level
}

const (
	ZlibNoCompression      = zlib.NoCompression
	ZlibBestSpeed          = zlib.BestSpeed
	ZlibBestCompression    = zlib.BestCompression
	ZlibDefaultCompression = zlib.DefaultCompression
)

func (ZlibCompressor) docType() documentType { return docZlib }

// The body is <varint uncompressed length><varint compressed length><zlib
// stream>; the uncompressed length lets the reader size its buffer once.
func (c ZlibCompressor) compress(buf []byte) ([]byte, error) {
	if uint64(len(buf)) >= math.MaxUint32 {
		return nil, ErrTooLarge
	}
	tail, err := zlibEncode(buf, c.Level)
	if err != nil {
		return nil, err
	}
	head := AppendVarUint32(make([]byte, 0, len(tail)+10), uint32(len(buf)))
	head = AppendVarUint32(head, uint32(len(tail)))
	return append(head, tail...), nil
}

func (c ZlibCompressor) decompress(buf []byte) ([]byte, error) {
	uln, usz, err := DecodeVarUint32(buf)
	if err != nil {
		return nil, err
	}
	if uln > MaxStringLength {
		return nil, ErrFormat{errBadCompressedSize}
	}
	block, err := sizedBlock(buf[usz:])
	if err != nil {
		return nil, err
	}
	// deflate tops out near 1032:1
	if uint64(uln) > 1040*uint64(len(block))+64 {
		return nil, ErrFormat{errBadCompressedSize}
	}
	out, err := zlibDecode(int(uln), block)
	if err != nil {
		return nil, err
	}
	if len(out) != int(uln) {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return out, nil
}
