package archive

import "math"

// ZstdCompressor compresses a document body using the zstd format.
type ZstdCompressor struct {
	Level int // compression level, ZstdDefaultCompression when zero
}

// Zstd constants
const (
	ZstdBestSpeed          = 1
	ZstdBestCompression    = 20
	ZstdDefaultCompression = 3
)

func (ZstdCompressor) docType() documentType { return docZstd }

// The body is <varint compressed length><zstd frame>.
func (c ZstdCompressor) compress(buf []byte) ([]byte, error) {
	if uint64(len(buf)) >= math.MaxUint32 {
		return nil, ErrTooLarge
	}
	if c.Level == 0 {
		c.Level = ZstdDefaultCompression
	}
	tail, err := zstdEncode(buf, c.Level)
	if err != nil {
		return nil, err
	}
	head := AppendVarUint32(make([]byte, 0, len(tail)+5), uint32(len(tail)))
	return append(head, tail...), nil
}

func (c ZstdCompressor) decompress(buf []byte) ([]byte, error) {
	block, err := sizedBlock(buf)
	if err != nil {
		return nil, err
	}
	return zstdDecode(nil, block)
}
