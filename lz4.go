package archive

import (
	"errors"
	"fmt"
	"math"

	"github.com/pierrec/lz4/v4"
)

// Lz4Compressor compresses a document body as a single LZ4 block.
type Lz4Compressor struct{}

// errIncompressible makes the Encoder store the body uncompressed.
var errIncompressible = errors.New("archive: body does not compress")

func (Lz4Compressor) docType() documentType { return docLz4 }

// The body is <varint uncompressed length><varint compressed length><lz4
// block>. A block carries no length of its own, so the reader needs the
// uncompressed one.
func (Lz4Compressor) compress(buf []byte) ([]byte, error) {
	if uint64(len(buf)) >= math.MaxUint32 {
		return nil, ErrTooLarge
	}
	dst := make([]byte, lz4.CompressBlockBound(len(buf)))
	n, err := lz4.CompressBlock(buf, dst, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: lz4 compress: %w", err)
	}
	if n == 0 || n >= len(buf) {
		return nil, errIncompressible
	}
	head := AppendVarUint32(make([]byte, 0, n+10), uint32(len(buf)))
	head = AppendVarUint32(head, uint32(n))
	return append(head, dst[:n]...), nil
}

func (Lz4Compressor) decompress(buf []byte) ([]byte, error) {
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
	// a block expands at most 255 times, so uln is checked against the
	// block before anything is allocated for it
	if uint64(uln) > 256*uint64(len(block))+64 {
		return nil, ErrFormat{errBadCompressedSize}
	}
	out := make([]byte, uln)
	n, err := lz4.UncompressBlock(block, out)
	if err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	if n != int(uln) {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return out, nil
}
