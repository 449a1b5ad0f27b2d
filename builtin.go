package archive

import "reflect"

type builtin struct {
	tag  Tag
	name string
	typ  reflect.Type
}

var primitives = [...]builtin{
	{TagBool, "bool", reflect.TypeFor[bool]()},
	{TagInt8, "int8", reflect.TypeFor[int8]()},
	{TagUint8, "uint8", reflect.TypeFor[uint8]()},
	{TagInt16, "int16", reflect.TypeFor[int16]()},
	{TagUint16, "uint16", reflect.TypeFor[uint16]()},
	{TagInt32, "int32", reflect.TypeFor[int32]()},
	{TagUint32, "uint32", reflect.TypeFor[uint32]()},
	{TagInt64, "int64", reflect.TypeFor[int64]()},
	{TagUint64, "uint64", reflect.TypeFor[uint64]()},
	{TagFloat32, "float32", reflect.TypeFor[float32]()},
	{TagFloat64, "float64", reflect.TypeFor[float64]()},
	{TagString, "string", reflect.TypeFor[string]()},
	{TagBytes, "bytes", reflect.TypeFor[[]byte]()},
}

func registerBuiltins(m *Manager) {
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(m.add(&typeEntry{tag: TagNone, name: "null", kind: kindBuiltin}))
	for _, p := range primitives {
		must(m.add(&typeEntry{
			tag:   p.tag,
			name:  p.name,
			typ:   p.typ,
			kind:  kindBuiltin,
			read:  readPrimitive,
			write: writePrimitive,
		}))
	}
	must(m.add(&typeEntry{tag: TagObject, name: "object", typ: emptyInterface, kind: kindLimited}))

	generics := []struct {
		f             family
		name          string
		referenceable bool
		read          readFunc
		write         writeFunc
	}{
		{familyList, "list", false, readList, writeList},
		{familyMap, "map", true, readMap, writeMap},
		{familySet, "set", true, readSet, writeSet},
		{familyArray, "array", false, readArray, writeArray},
		{familyTuple, "tuple", true, readTuple, writeTuple},
		{familyValueTuple, "valuetuple", false, readTuple, writeTuple},
	}
	for _, g := range generics {
		must(m.add(&typeEntry{
			tag:           familyTags[g.f],
			name:          g.name,
			kind:          kindGeneric,
			family:        g.f,
			referenceable: g.referenceable,
			read:          g.read,
			write:         g.write,
		}))
	}
	must(m.add(&typeEntry{
		tag:           TagDelegate,
		name:          "delegate",
		typ:           delegateType,
		kind:          kindBuiltin,
		referenceable: true,
		read:          readDelegate,
		write:         writeDelegate,
	}))
}

func writePrimitive(w *Writer, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Bool:
		return w.WriteBool(v.Bool())
	case reflect.Int8:
		return w.WriteInt8(int8(v.Int()))
	case reflect.Uint8:
		return w.WriteUint8(uint8(v.Uint()))
	case reflect.Int16:
		return w.WriteInt16(int16(v.Int()))
	case reflect.Uint16:
		return w.WriteUint16(uint16(v.Uint()))
	case reflect.Int32:
		return w.WriteInt32(int32(v.Int()))
	case reflect.Uint32:
		return w.WriteUint32(uint32(v.Uint()))
	case reflect.Int, reflect.Int64:
		return w.WriteInt64(v.Int())
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return w.WriteUint64(v.Uint())
	case reflect.Float32:
		return w.WriteFloat32(float32(v.Float()))
	case reflect.Float64:
		return w.WriteFloat64(v.Float())
	case reflect.String:
		return w.WriteString(v.String())
	case reflect.Slice:
		return w.WriteBytes(v.Bytes())
	}
	return argumentf("%s is not a primitive", v.Type())
}

func readPrimitive(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error) {
	var (
		x   any
		err error
	)
	switch h.Tag {
	case TagBool:
		x, err = r.ReadBool()
	case TagInt8:
		x, err = r.ReadInt8()
	case TagUint8:
		x, err = r.ReadUint8()
	case TagInt16:
		x, err = r.ReadInt16()
	case TagUint16:
		x, err = r.ReadUint16()
	case TagInt32:
		x, err = r.ReadInt32()
	case TagUint32:
		x, err = r.ReadUint32()
	case TagInt64:
		x, err = r.ReadInt64()
	case TagUint64:
		x, err = r.ReadUint64()
	case TagFloat32:
		x, err = r.ReadFloat32()
	case TagFloat64:
		x, err = r.ReadFloat64()
	case TagString:
		x, err = r.ReadString()
	case TagBytes:
		var b []byte
		if b, err = r.ReadBytes(); err == nil && b == nil {
			err = ErrNullValue{Name: "bytes"}
		}
		x = b
	default:
		return reflect.Value{}, formatf("tag %d is not a primitive", h.Tag)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(x), nil
}
