package archive

import (
	"encoding/binary"
	"io"
	"math"
	"reflect"
)

// Writer is an open write session. It is returned by Manager.StartWrite
// and is not safe for concurrent use.
type Writer struct {
	// StringChunkSize switches strings longer than this many bytes to the
	// chunked framing. Zero never chunks.
	StringChunkSize int

	m       *Manager
	sink    Sink
	refs    *writeRefs
	shapes  map[reflect.Type][]Tag
	depth   int
	objects int
	scratch [8]byte
}

// StartWrite opens a write session on sink. Only one write session may be
// open on a Manager at a time; always pair it with FinishWrite.
func (m *Manager) StartWrite(sink Sink) (*Writer, error) {
	if sink == nil {
		return nil, argumentf("nil sink")
	}
	if m.writing {
		return nil, ErrSessionActive
	}
	m.writing = true
	return &Writer{
		m:      m,
		sink:   sink,
		refs:   newWriteRefs(),
		shapes: make(map[reflect.Type][]Tag),
	}, nil
}

// FinishWrite back-patches the reference slots of every object that was
// written more than once, flushes the sink and closes the session. The
// session is closed even when FinishWrite fails.
func (w *Writer) FinishWrite() error {
	if w.m == nil {
		return ErrNoSession
	}
	defer w.close()

	patched, err := w.refs.patch(w.sink)
	if err != nil {
		return err
	}
	if f, ok := w.sink.(flusher); ok {
		if err := f.Flush(); err != nil {
			return err
		}
	}
	w.m.debug("archive: write session finished",
		"bytes", w.sink.Pos(), "objects", w.objects, "handles", patched)
	return nil
}

func (w *Writer) close() {
	w.m.writing = false
	w.m = nil
	w.sink = closedSink{}
	w.refs = nil
	w.shapes = nil
}

// Manager returns the registry the session writes against.
func (w *Writer) Manager() *Manager { return w.m }

func (w *Writer) put(b []byte) error {
	_, err := w.sink.Write(b)
	return err
}

// WriteBool writes b as a single byte.
func (w *Writer) WriteBool(b bool) error {
	if b {
		return w.sink.WriteByte(1)
	}
	return w.sink.WriteByte(0)
}

func (w *Writer) WriteInt8(v int8) error   { return w.sink.WriteByte(byte(v)) }
func (w *Writer) WriteUint8(v uint8) error { return w.sink.WriteByte(v) }
func (w *Writer) WriteInt16(v int16) error { return w.WriteUint16(uint16(v)) }
func (w *Writer) WriteInt32(v int32) error { return w.WriteUint32(uint32(v)) }
func (w *Writer) WriteInt64(v int64) error { return w.WriteUint64(uint64(v)) }

func (w *Writer) WriteUint16(v uint16) error {
	return w.put(binary.LittleEndian.AppendUint16(w.scratch[:0], v))
}

func (w *Writer) WriteUint32(v uint32) error {
	return w.put(binary.LittleEndian.AppendUint32(w.scratch[:0], v))
}

func (w *Writer) WriteUint64(v uint64) error {
	return w.put(binary.LittleEndian.AppendUint64(w.scratch[:0], v))
}

func (w *Writer) WriteFloat32(f float32) error { return w.WriteUint32(math.Float32bits(f)) }
func (w *Writer) WriteFloat64(f float64) error { return w.WriteUint64(math.Float64bits(f)) }

// WriteVarUint32 writes v using 1 to 5 bytes.
func (w *Writer) WriteVarUint32(v uint32) error {
	return w.put(AppendVarUint32(w.scratch[:0], v))
}

// WriteString writes s with the non-null length framing, or chunked when s
// is longer than StringChunkSize.
func (w *Writer) WriteString(s string) error {
	if len(s) > MaxStringLength {
		return argumentf("string of %d bytes exceeds MaxStringLength", len(s))
	}
	if w.StringChunkSize > 0 && len(s) > w.StringChunkSize {
		return w.writeChunked(s)
	}
	if err := w.WriteVarUint32(uint32(len(s))<<1 | 1); err != nil {
		return err
	}
	_, err := io.WriteString(w.sink, s)
	return err
}

func (w *Writer) writeChunked(s string) error {
	if err := w.WriteVarUint32(chunkedString); err != nil {
		return err
	}
	for len(s) > 0 {
		n := min(len(s), w.StringChunkSize)
		if err := w.WriteVarUint32(uint32(n)); err != nil {
			return err
		}
		if _, err := io.WriteString(w.sink, s[:n]); err != nil {
			return err
		}
		s = s[n:]
	}
	return w.WriteVarUint32(0)
}

// WriteNullableString writes s, or the null string when s is nil.
func (w *Writer) WriteNullableString(s *string) error {
	if s == nil {
		return w.WriteVarUint32(nullString)
	}
	return w.WriteString(*s)
}

// WriteBytes writes b with the string framing; nil is written as null.
func (w *Writer) WriteBytes(b []byte) error {
	if b == nil {
		return w.WriteVarUint32(nullString)
	}
	if len(b) > MaxStringLength {
		return argumentf("byte slice of %d bytes exceeds MaxStringLength", len(b))
	}
	if err := w.WriteVarUint32(uint32(len(b))<<1 | 1); err != nil {
		return err
	}
	return w.put(b)
}

// WriteObject writes v with its header. A nil v is written as an untyped
// null.
func (w *Writer) WriteObject(v any) error {
	return w.writeValue(reflect.ValueOf(v))
}

// WriteObjectAs writes v as a T. Unlike WriteObject, a nil pointer, map or
// slice is written as a null that carries T's tag.
func WriteObjectAs[T any](w *Writer, v T) error {
	return w.writeValue(reflect.ValueOf(&v).Elem())
}

// WriteNullObject writes an untyped null.
func (w *Writer) WriteNullObject() error {
	return w.writeNull(TagNone)
}

// WriteNullObjectOf writes a null carrying the tag of typ.
func (w *Writer) WriteNullObjectOf(typ reflect.Type) error {
	e, err := w.m.resolve(typ)
	if err != nil {
		return err
	}
	return w.writeNull(e.tag)
}

func (w *Writer) writeNull(tag Tag) error {
	_, err := w.WriteHeader(Header{Tag: tag, IsNull: true, Version: 1})
	return err
}

func (w *Writer) writeValue(v reflect.Value) error {
	if w.m == nil {
		return ErrNoSession
	}
	if v.IsValid() && v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		return w.writeNull(TagNone)
	}
	t := v.Type()
	e, err := w.m.resolve(t)
	if err != nil {
		return err
	}
	if isNil(v) {
		return w.writeNull(e.tag)
	}
	if e.write == nil {
		return argumentf("%s (tag %d) cannot be written", e.name, e.tag)
	}

	w.depth++
	defer func() { w.depth-- }()
	if w.depth > w.m.maxDepth() {
		return argumentf("object graph nested deeper than %d", w.m.maxDepth())
	}

	h := Header{Tag: e.tag, Version: e.version, CanBeReference: e.referenceable}
	if e.family != familyNone {
		if h.Shape, err = w.shapeOf(t, e.family); err != nil {
			return err
		}
		h.IsExtended = true
	}
	if !e.referenceable {
		if _, err := w.WriteHeader(h); err != nil {
			return err
		}
		w.objects++
		return e.write(w, v)
	}

	key := identity(v)
	if handle, ok := w.refs.seen(key); ok {
		_, err := w.WriteHeader(Header{
			Tag:               e.tag,
			Version:           e.version,
			CanBeReference:    true,
			AlreadyReferenced: true,
			Handle:            handle,
		})
		return err
	}
	slot, err := w.WriteHeader(h)
	if err != nil {
		return err
	}
	w.refs.reserve(key, slot)
	w.objects++
	return e.write(w, v)
}

func (w *Writer) shapeOf(t reflect.Type, f family) ([]Tag, error) {
	if tokens, ok := w.shapes[t]; ok {
		return tokens, nil
	}
	tokens, err := w.m.appendShape(nil, t, f, 0)
	if err != nil {
		return nil, err
	}
	if err := w.m.checkShape(t, tokens); err != nil {
		return nil, err
	}
	w.shapes[t] = tokens
	return tokens, nil
}

// writeHead writes the shape token introducing t, used by containers to
// record their element types.
func (w *Writer) writeHead(t reflect.Type) error {
	tok, err := w.m.headOf(t)
	if err != nil {
		return err
	}
	return w.WriteVarUint32(uint32(tok))
}

func isNil(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	}
	return false
}

// closedSink rejects everything written after FinishWrite.
type closedSink struct{}

func (closedSink) Write([]byte) (int, error)     { return 0, ErrNoSession }
func (closedSink) WriteByte(byte) error          { return ErrNoSession }
func (closedSink) Pos() int64                    { return 0 }
func (closedSink) PatchInt32(int64, int32) error { return ErrNoSession }
