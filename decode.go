package archive

import (
	"encoding/binary"
	"math"
	"reflect"
)

// Reader is an open read session. It is returned by Manager.StartRead and
// is not safe for concurrent use.
type Reader struct {
	m       *Manager
	src     Source
	loaded  map[Handle]reflect.Value
	shapes  map[string]reflect.Type
	depth   int
	objects int
}

// StartRead opens a read session on src. Only one read session may be open
// on a Manager at a time; always pair it with FinishRead.
func (m *Manager) StartRead(src Source) (*Reader, error) {
	if src == nil {
		return nil, argumentf("nil source")
	}
	if m.reading {
		return nil, ErrSessionActive
	}
	m.reading = true
	return &Reader{
		m:      m,
		src:    src,
		loaded: make(map[Handle]reflect.Value),
		shapes: make(map[string]reflect.Type),
	}, nil
}

// FinishRead drops the loaded-object table and closes the session.
func (r *Reader) FinishRead() error {
	if r.m == nil {
		return ErrNoSession
	}
	r.m.debug("archive: read session finished", "objects", r.objects, "handles", len(r.loaded))
	r.m.reading = false
	r.m = nil
	r.src = closedSource{}
	r.loaded = nil
	r.shapes = nil
	return nil
}

// Manager returns the registry the session reads against.
func (r *Reader) Manager() *Manager { return r.m }

func (r *Reader) next(n int) ([]byte, error) {
	b, err := r.src.Next(n)
	if err != nil {
		return nil, truncated(err)
	}
	return b, nil
}

func (r *Reader) ReadBool() (bool, error) {
	c, err := r.ReadUint8()
	if err != nil {
		return false, err
	}
	if c > 1 {
		return false, formatf("bad bool byte %#x", c)
	}
	return c == 1, nil
}

func (r *Reader) ReadUint8() (uint8, error) {
	c, err := r.src.ReadByte()
	if err != nil {
		return 0, truncated(err)
	}
	return c, nil
}

func (r *Reader) ReadInt8() (int8, error) {
	c, err := r.ReadUint8()
	return int8(c), err
}

func (r *Reader) ReadUint16() (uint16, error) {
	b, err := r.next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadUint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadUint64() (uint64, error) {
	b, err := r.next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *Reader) ReadInt16() (int16, error) {
	v, err := r.ReadUint16()
	return int16(v), err
}

func (r *Reader) ReadInt32() (int32, error) {
	v, err := r.ReadUint32()
	return int32(v), err
}

func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

func (r *Reader) ReadFloat32() (float32, error) {
	v, err := r.ReadUint32()
	return math.Float32frombits(v), err
}

func (r *Reader) ReadFloat64() (float64, error) {
	v, err := r.ReadUint64()
	return math.Float64frombits(v), err
}

func (r *Reader) ReadVarUint32() (uint32, error) {
	return readVarUint32(r.src)
}

// ReadString reads a string in either framing. A null string is an
// ErrNullValue.
func (r *Reader) ReadString() (string, error) {
	b, null, err := r.readFramed()
	if err != nil {
		return "", err
	}
	if null {
		return "", ErrNullValue{Name: "string"}
	}
	return string(b), nil
}

// ReadNullableString reads a string that may be null.
func (r *Reader) ReadNullableString() (*string, error) {
	b, null, err := r.readFramed()
	if err != nil || null {
		return nil, err
	}
	s := string(b)
	return &s, nil
}

// ReadBytes reads a byte slice written by WriteBytes. Null reads as nil.
func (r *Reader) ReadBytes() ([]byte, error) {
	b, null, err := r.readFramed()
	if err != nil || null {
		return nil, err
	}
	return append([]byte{}, b...), nil
}

// readFramed returns the payload of a string field. The slice may alias
// the source and is only valid until the next read.
func (r *Reader) readFramed() (b []byte, null bool, err error) {
	field, err := r.ReadVarUint32()
	if err != nil {
		return nil, false, err
	}
	switch {
	case field == nullString:
		return nil, true, nil
	case field == chunkedString:
		b, err = r.readChunks()
		return b, false, err
	case field&1 == 0:
		return nil, false, ErrFormat{errBadStringHeader}
	}
	n := field >> 1
	if n > MaxStringLength {
		return nil, false, ErrFormat{errBadStringSize}
	}
	b, err = r.next(int(n))
	return b, false, err
}

func (r *Reader) readChunks() ([]byte, error) {
	out := []byte{}
	for {
		n, err := r.ReadVarUint32()
		if err != nil {
			return nil, unterminated(err)
		}
		if n == 0 {
			return out, nil
		}
		if n > MaxStringLength || len(out)+int(n) > MaxStringLength {
			return nil, ErrFormat{errBadStringSize}
		}
		b, err := r.next(int(n))
		if err != nil {
			return nil, unterminated(err)
		}
		out = append(out, b...)
	}
}

func unterminated(err error) error {
	if err == ErrTruncated {
		return ErrFormat{errUnterminatedString}
	}
	return err
}

// ReadObject reads the next object. A null is an ErrNullValue.
func (r *Reader) ReadObject() (any, error) {
	v, h, err := r.readValue(emptyInterface)
	if err != nil {
		return nil, err
	}
	if h.IsNull {
		return nil, ErrNullValue{Name: r.m.nameOf(h.Tag)}
	}
	return v.Interface(), nil
}

// ReadObjectOrNull reads the next object; a null reads as nil.
func (r *Reader) ReadObjectOrNull() (any, error) {
	v, h, err := r.readValue(emptyInterface)
	if err != nil || h.IsNull {
		return nil, err
	}
	return v.Interface(), nil
}

// ReadObjectLowLevel reads the next object and also returns its decoded
// header. A null reads as nil without error.
func (r *Reader) ReadObjectLowLevel() (any, Header, error) {
	v, h, err := r.readValue(emptyInterface)
	if err != nil || h.IsNull {
		return nil, h, err
	}
	return v.Interface(), h, nil
}

// ReadObjectAs reads the next object as a T. A null is an ErrNullValue.
func ReadObjectAs[T any](r *Reader) (T, error) {
	var out T
	t := reflect.TypeFor[T]()
	v, h, err := r.readValue(t)
	if err != nil {
		return out, err
	}
	if h.IsNull {
		return out, ErrNullValue{Name: t.String()}
	}
	reflect.ValueOf(&out).Elem().Set(v)
	return out, nil
}

// ReadObjectOrNullAs reads the next object as a T; a null reads as the
// zero T when T is a pointer, map, slice or interface type.
func ReadObjectOrNullAs[T any](r *Reader) (T, error) {
	var out T
	v, _, err := r.readValue(reflect.TypeFor[T]())
	if err != nil {
		return out, err
	}
	reflect.ValueOf(&out).Elem().Set(v)
	return out, nil
}

// readValue reads one object and fits it to static.
func (r *Reader) readValue(static reflect.Type) (reflect.Value, Header, error) {
	if r.m == nil {
		return reflect.Value{}, Header{}, ErrNoSession
	}
	h, err := r.ReadHeader()
	if err != nil {
		return reflect.Value{}, h, err
	}
	if h.IsNull {
		if _, ok := r.m.byTag[h.Tag]; !ok {
			return reflect.Value{}, h, formatf("unknown type tag %d", h.Tag)
		}
		v, err := nullOf(static)
		return v, h, err
	}
	if h.AlreadyReferenced {
		v, err := r.resolveHandle(&h)
		if err != nil {
			return reflect.Value{}, h, err
		}
		v, err = fit(v, static)
		return v, h, err
	}

	e, ok := r.m.byTag[h.Tag]
	if !ok {
		return reflect.Value{}, h, formatf("unknown type tag %d", h.Tag)
	}
	if e.read == nil {
		return reflect.Value{}, h, formatf("%s: %s (tag %d)", errNoCodec, e.name, e.tag)
	}
	if h.Version > e.version {
		return reflect.Value{}, h, ErrVersion{Name: e.name, Tag: e.tag, Got: h.Version, Max: e.version}
	}
	typ := e.typ
	switch {
	case e.kind == kindGeneric && !h.IsExtended:
		return reflect.Value{}, h, ErrFormat{errMissingShape}
	case e.kind == kindGeneric:
		if typ, err = r.shape(h.Shape); err != nil {
			return reflect.Value{}, h, err
		}
	case h.IsExtended:
		return reflect.Value{}, h, formatf("%s does not take an extended type", e.name)
	}

	r.depth++
	defer func() { r.depth-- }()
	if r.depth > r.m.maxDepth() {
		return reflect.Value{}, h, ErrFormat{errTooDeep}
	}

	v, err := e.read(r, typ, &h)
	if err != nil {
		return reflect.Value{}, h, err
	}
	r.objects++
	if h.Handle > 0 {
		if _, ok := r.loaded[h.Handle]; !ok {
			r.loaded[h.Handle] = v
		}
	}
	v, err = fit(v, static)
	return v, h, err
}

func (r *Reader) shape(tokens []Tag) (reflect.Type, error) {
	key := shapeKey(tokens)
	if t, ok := r.shapes[key]; ok {
		return t, nil
	}
	t, err := r.m.ResolveShape(tokens)
	if err != nil {
		return nil, err
	}
	r.shapes[key] = t
	return t, nil
}

// expectHead reads the element type token of a container and checks it
// against the element type the shape resolved to.
func (r *Reader) expectHead(t reflect.Type) error {
	want, err := r.m.headOf(t)
	if err != nil {
		return err
	}
	got, err := r.ReadVarUint32()
	if err != nil {
		return err
	}
	if Tag(got) != want {
		return formatf("element type tag %d, expected %d for %s", got, want, t)
	}
	return nil
}

func nullOf(static reflect.Type) (reflect.Value, error) {
	switch static.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return reflect.Zero(static), nil
	}
	return reflect.Value{}, ErrNullValue{Name: static.String()}
}

// fit converts a decoded value to the type the caller asked for. Values of
// the same kind convert freely (a []int64 read into a named slice type),
// as do int and uint against their 64-bit archive representations.
func fit(v reflect.Value, static reflect.Type) (reflect.Value, error) {
	t := v.Type()
	switch {
	case t == static:
		return v, nil
	case static.Kind() == reflect.Interface:
		if t.Implements(static) {
			return v, nil
		}
	case t.Kind() == static.Kind() && t.ConvertibleTo(static):
		return v.Convert(static), nil
	default:
		a, ok := primitiveTag(t)
		b, ok2 := primitiveTag(static)
		if ok && ok2 && a == b && t.ConvertibleTo(static) {
			return v.Convert(static), nil
		}
	}
	return reflect.Value{}, formatf("%s in archive does not fit %s", t, static)
}

// closedSource rejects reads after FinishRead.
type closedSource struct{}

func (closedSource) ReadByte() (byte, error)  { return 0, ErrNoSession }
func (closedSource) Next(int) ([]byte, error) { return nil, ErrNoSession }
