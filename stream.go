package archive

import (
	"bufio"
	"encoding/binary"
	"io"
)

const streamBufSize = 32 << 10

// StreamWriter is the stream transport for writing. It only needs a
// forward io.Writer; back-patching reference slots additionally requires
// the destination to be an io.WriteSeeker (a file, for instance). Graphs
// without shared references never patch and work on any writer.
//
// Call Flush, or finish the session, before using the destination.
type StreamWriter struct {
	dst  io.Writer
	bw   *bufio.Writer
	base int64 // destination offset at creation, for seekers
	pos  int64
}

// NewStreamWriter returns a StreamWriter writing to w.
func NewStreamWriter(w io.Writer) *StreamWriter {
	s := &StreamWriter{dst: w, bw: bufio.NewWriterSize(w, streamBufSize)}
	if ws, ok := w.(io.WriteSeeker); ok {
		if off, err := ws.Seek(0, io.SeekCurrent); err == nil {
			s.base = off
		}
	}
	return s
}

func (s *StreamWriter) Write(p []byte) (int, error) {
	n, err := s.bw.Write(p)
	s.pos += int64(n)
	return n, err
}

// WriteByte writes c.
func (s *StreamWriter) WriteByte(c byte) error {
	if err := s.bw.WriteByte(c); err != nil {
		return err
	}
	s.pos++
	return nil
}

// Pos returns the number of bytes written through s.
func (s *StreamWriter) Pos() int64 { return s.pos }

// Flush pushes buffered bytes to the destination.
func (s *StreamWriter) Flush() error { return s.bw.Flush() }

// PatchInt32 seeks back in the destination, overwrites four bytes at pos
// and returns to the end.
func (s *StreamWriter) PatchInt32(pos int64, v int32) error {
	ws, ok := s.dst.(io.WriteSeeker)
	if !ok {
		return ErrPatchUnsupported
	}
	if err := s.bw.Flush(); err != nil {
		return err
	}
	if _, err := ws.Seek(s.base+pos, io.SeekStart); err != nil {
		return err
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	if _, err := ws.Write(b[:]); err != nil {
		return err
	}
	_, err := ws.Seek(s.base+s.pos, io.SeekStart)
	return err
}

// StreamReader is the stream transport for reading. It works over any
// forward-only io.Reader.
type StreamReader struct {
	br      *bufio.Reader
	scratch []byte
}

// NewStreamReader returns a StreamReader reading from r.
func NewStreamReader(r io.Reader) *StreamReader {
	return &StreamReader{br: bufio.NewReaderSize(r, streamBufSize)}
}

// ReadByte consumes one byte.
func (s *StreamReader) ReadByte() (byte, error) {
	c, err := s.br.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	return c, nil
}

// Next consumes n bytes. Small reads are served from the read buffer
// without copying.
func (s *StreamReader) Next(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrTruncated
	}
	if n <= s.br.Size() {
		p, err := s.br.Peek(n)
		if err != nil {
			return nil, truncated(err)
		}
		_, _ = s.br.Discard(n)
		return p, nil
	}
	// n comes from the stream; allocate only as bytes arrive.
	p := s.scratch[:0]
	for len(p) < n {
		b, err := s.br.Peek(min(n-len(p), s.br.Size()))
		if err != nil {
			return nil, truncated(err)
		}
		p = append(p, b...)
		_, _ = s.br.Discard(len(b))
	}
	s.scratch = p
	return p, nil
}
