package archive

import "io"

// Sink receives the bytes of a write session.
//
// PatchInt32 overwrites four bytes at an absolute position previously
// reported by Pos; it is how reference slots are back-patched when the
// session finishes. Sinks that cannot seek return ErrPatchUnsupported.
type Sink interface {
	io.Writer
	io.ByteWriter
	Pos() int64
	PatchInt32(pos int64, v int32) error
}

// Source feeds a read session.
//
// Next returns the next n bytes. The slice may alias internal storage and
// is only valid until the next call on the Source.
type Source interface {
	io.ByteReader
	Next(n int) ([]byte, error)
}

type flusher interface {
	Flush() error
}
