package archive

import "io"

// AppendVarUint32 appends v to b using 7 data bits per byte, least
// significant group first.
func AppendVarUint32(b []byte, v uint32) []byte {
	for v >= 0x80 {
		b = append(b, byte(v)|0x80)
		v >>= 7
	}
	return append(b, byte(v))
}

// VarUint32Size returns the number of bytes AppendVarUint32 emits for v.
func VarUint32Size(v uint32) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// DecodeVarUint32 decodes a varint from the front of b, returning the value
// and the number of bytes consumed.
func DecodeVarUint32(b []byte) (uint32, int, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		if i >= len(b) {
			return 0, 0, ErrTruncated
		}
		c := b[i]
		if i == 4 && c > 0x0f {
			return 0, 0, ErrFormat{errBadVarint}
		}
		v |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrFormat{errBadVarint}
}

func readVarUint32(r io.ByteReader) (uint32, error) {
	var v uint32
	for i := 0; i < 5; i++ {
		c, err := r.ReadByte()
		if err != nil {
			return 0, truncated(err)
		}
		if i == 4 && c > 0x0f {
			return 0, ErrFormat{errBadVarint}
		}
		v |= uint32(c&0x7f) << (7 * i)
		if c&0x80 == 0 {
			return v, nil
		}
	}
	return 0, ErrFormat{errBadVarint}
}

func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrTruncated
	}
	return err
}
