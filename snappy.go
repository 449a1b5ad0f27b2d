package archive

import (
	"math"

	"github.com/golang/snappy"
)

// SnappyCompressor compresses a document body using the Snappy block
// format, prefixed with the compressed length.
type SnappyCompressor struct{}

func (SnappyCompressor) docType() documentType { return docSnappy }

func (SnappyCompressor) compress(b []byte) ([]byte, error) {
	if uint64(len(b)) >= math.MaxUint32 {
		return nil, ErrTooLarge
	}
	compressed := snappy.Encode(nil, b)
	out := AppendVarUint32(make([]byte, 0, len(compressed)+5), uint32(len(compressed)))
	return append(out, compressed...), nil
}

func (SnappyCompressor) decompress(b []byte) ([]byte, error) {
	block, err := sizedBlock(b)
	if err != nil {
		return nil, err
	}
	// no snappy element expands more than 64/3 times
	if n, err := snappy.DecodedLen(block); err != nil || n > MaxStringLength || n > 32*len(block) {
		return nil, ErrFormat{errBadCompressedSize}
	}
	out, err := snappy.Decode(nil, block)
	if err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	return out, nil
}

// sizedBlock strips the varint length in front of a compressed block and
// checks it against what is left of the document.
func sizedBlock(b []byte) ([]byte, error) {
	ln, sz, err := DecodeVarUint32(b)
	if err != nil {
		return nil, err
	}
	if int64(ln) != int64(len(b)-sz) {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return b[sz:], nil
}
