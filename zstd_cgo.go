//go:build clibs

package archive

import "github.com/DataDog/zstd"

func zstdEncode(buf []byte, level int) ([]byte, error) {
	return zstd.CompressLevel(nil, buf, level)
}

func zstdDecode(d, buf []byte) ([]byte, error) {
	out, err := zstd.Decompress(d, buf)
	if err != nil {
		return nil, formatf("%s: %v", errBadCompressedBody, err)
	}
	if len(out) > MaxStringLength {
		return nil, ErrFormat{errBadCompressedSize}
	}
	return out, nil
}
