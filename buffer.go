package archive

import (
	"encoding/binary"
	"fmt"
)

// Buffer is the memory transport. It is both a Sink and a Source: writes
// append at the end, reads consume from an independent offset.
//
// Bytes and Next hand out the backing storage directly; nothing is copied.
// The slices stay valid until the next write grows the buffer.
type Buffer struct {
	buf []byte
	off int
}

// NewBuffer returns a Buffer that reads b and appends further writes to it.
func NewBuffer(b []byte) *Buffer {
	return &Buffer{buf: b}
}

// Bytes returns everything written so far, including bytes already read.
func (b *Buffer) Bytes() []byte { return b.buf }

// Unread returns the bytes not consumed yet.
func (b *Buffer) Unread() []byte { return b.buf[b.off:] }

// Len returns the number of unread bytes.
func (b *Buffer) Len() int { return len(b.buf) - b.off }

// Pos returns the write position.
func (b *Buffer) Pos() int64 { return int64(len(b.buf)) }

// Reset empties the buffer, keeping its storage.
func (b *Buffer) Reset() {
	b.buf = b.buf[:0]
	b.off = 0
}

// Seek moves the read offset to an absolute position.
func (b *Buffer) Seek(off int) error {
	if off < 0 || off > len(b.buf) {
		return fmt.Errorf("archive: buffer seek to %d outside [0, %d]", off, len(b.buf))
	}
	b.off = off
	return nil
}

func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends c.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// PatchInt32 overwrites the four bytes at pos.
func (b *Buffer) PatchInt32(pos int64, v int32) error {
	if pos < 0 || pos+4 > int64(len(b.buf)) {
		return fmt.Errorf("archive: patch at %d outside buffer of %d bytes", pos, len(b.buf))
	}
	binary.LittleEndian.PutUint32(b.buf[pos:], uint32(v))
	return nil
}

// ReadByte consumes one byte.
func (b *Buffer) ReadByte() (byte, error) {
	if b.off >= len(b.buf) {
		return 0, ErrTruncated
	}
	c := b.buf[b.off]
	b.off++
	return c, nil
}

// Next consumes n bytes and returns them without copying.
func (b *Buffer) Next(n int) ([]byte, error) {
	if n < 0 || n > len(b.buf)-b.off {
		return nil, ErrTruncated
	}
	p := b.buf[b.off : b.off+n]
	b.off += n
	return p, nil
}
