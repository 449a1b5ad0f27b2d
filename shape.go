package archive

import (
	"reflect"
	"strconv"
	"strings"
)

var familyTags = [...]Tag{
	familyList:       TagList,
	familyMap:        TagMap,
	familySet:        TagSet,
	familyArray:      TagArray,
	familyTuple:      TagTuple,
	familyValueTuple: TagValueTuple,
}

var (
	pkgPath        = reflect.TypeFor[Header]().PkgPath()
	setMarker      = reflect.TypeFor[setShape]()
	tupleMarker    = reflect.TypeFor[tupleShape]()
	emptyInterface = reflect.TypeFor[any]()
)

// familyOf reports which built-in generic container t instantiates.
// []byte is a primitive and never reaches here through resolve.
func familyOf(t reflect.Type) family {
	switch t.Kind() {
	case reflect.Slice:
		return familyList
	case reflect.Array:
		return familyArray
	case reflect.Map:
		if t.PkgPath() == pkgPath && t.Implements(setMarker) {
			return familySet
		}
		return familyMap
	case reflect.Struct:
		if t.PkgPath() == pkgPath && t.Implements(tupleMarker) {
			return familyValueTuple
		}
	case reflect.Ptr:
		el := t.Elem()
		if el.Kind() == reflect.Struct && el.PkgPath() == pkgPath && el.Implements(tupleMarker) {
			return familyTuple
		}
	}
	return familyNone
}

// ShapeOf returns the extended-type token sequence of a generic type: the
// base tag, the arity (tuples) or length (arrays), then each type argument.
// Arguments that are generic themselves carry TagExtendedFlag on their
// base tag and are followed by their own expansion.
func (m *Manager) ShapeOf(t reflect.Type) ([]Tag, error) {
	e, err := m.resolve(t)
	if err != nil {
		return nil, err
	}
	if e.family == familyNone {
		return nil, argumentf("%s is not a generic container", t)
	}
	return m.appendShape(nil, t, e.family, 0)
}

func (m *Manager) appendShape(dst []Tag, t reflect.Type, f family, depth int) ([]Tag, error) {
	if depth > MaxShapeTokens {
		return nil, argumentf("shape of %s nests too deeply", t)
	}
	dst = append(dst, familyTags[f])
	var args []reflect.Type
	switch f {
	case familyList:
		args = []reflect.Type{t.Elem()}
	case familySet:
		args = []reflect.Type{t.Key()}
	case familyArray:
		if !arrayFits(uint64(t.Len()), t.Elem()) {
			return nil, argumentf("array %s exceeds %d elements or %d bytes", t, maxArrayLength, maxArrayBytes)
		}
		dst = append(dst, Tag(t.Len()))
		args = []reflect.Type{t.Elem()}
	case familyMap:
		args = []reflect.Type{t.Key(), t.Elem()}
	case familyTuple, familyValueTuple:
		st := t
		if f == familyTuple {
			st = t.Elem()
		}
		dst = append(dst, Tag(st.NumField()))
		for i := 0; i < st.NumField(); i++ {
			args = append(args, st.Field(i).Type)
		}
	}
	for _, a := range args {
		ae, err := m.resolve(a)
		if err != nil {
			return nil, err
		}
		if ae.family == familyNone {
			dst = append(dst, ae.tag)
			continue
		}
		sub, err := m.appendShape(nil, a, ae.family, depth+1)
		if err != nil {
			return nil, err
		}
		sub[0] |= TagExtendedFlag
		dst = append(dst, sub...)
	}
	if len(dst) > MaxShapeTokens {
		return nil, argumentf("shape of %s needs more than %d tokens", t, MaxShapeTokens)
	}
	return dst, nil
}

// headOf returns the token that introduces t inside a shape: its tag, with
// TagExtendedFlag when t is generic.
func (m *Manager) headOf(t reflect.Type) (Tag, error) {
	e, err := m.resolve(t)
	if err != nil {
		return 0, err
	}
	if e.family != familyNone {
		return e.tag | TagExtendedFlag, nil
	}
	return e.tag, nil
}

func shapeKey(tokens []Tag) string {
	var sb strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			sb.WriteByte('.')
		}
		sb.WriteString(strconv.FormatUint(uint64(tok), 10))
	}
	return sb.String()
}

// RegisterShape adds a concrete generic instantiation, and every generic
// instantiation among its type arguments, to the closed set the reader
// accepts. Set and tuple shapes must be registered on both ends; list, map
// and array shapes only need registering when the element types are named
// types (say []int, which otherwise reads back as []int64).
// Registering either tuple flavour registers the other as well.
func (m *Manager) RegisterShape(t reflect.Type) error {
	tokens, err := m.ShapeOf(t)
	if err != nil {
		return err
	}
	if err := m.registerShape(t, tokens); err != nil {
		return err
	}
	var twin reflect.Type
	switch familyOf(t) {
	case familyValueTuple:
		twin = reflect.PointerTo(t)
	case familyTuple:
		twin = t.Elem()
	default:
		return nil
	}
	tokens, err = m.ShapeOf(twin)
	if err != nil {
		return err
	}
	return m.registerShape(twin, tokens)
}

// RegisterShapeOf is RegisterShape for a type parameter.
func RegisterShapeOf[T any](m *Manager) error {
	return m.RegisterShape(reflect.TypeFor[T]())
}

func (m *Manager) registerShape(t reflect.Type, tokens []Tag) error {
	key := shapeKey(tokens)
	if old, ok := m.shapes[key]; ok {
		if old != t {
			return argumentf("shape %s of %s already registered to %s", key, t, old)
		}
		return nil
	}
	m.shapes[key] = t
	m.debug("archive: registered shape", "shape", key, "type", t)

	for _, a := range shapeArgs(t) {
		if f := familyOf(a); f != familyNone {
			if err := m.RegisterShape(a); err != nil {
				return err
			}
		}
	}
	return nil
}

func shapeArgs(t reflect.Type) []reflect.Type {
	switch familyOf(t) {
	case familyList, familyArray:
		return []reflect.Type{t.Elem()}
	case familySet:
		return []reflect.Type{t.Key()}
	case familyMap:
		return []reflect.Type{t.Key(), t.Elem()}
	case familyValueTuple:
		return fieldTypes(t)
	case familyTuple:
		return fieldTypes(t.Elem())
	}
	return nil
}

func fieldTypes(st reflect.Type) []reflect.Type {
	out := make([]reflect.Type, st.NumField())
	for i := range out {
		out[i] = st.Field(i).Type
	}
	return out
}

// checkShape verifies the writer only emits set and tuple shapes the
// reading side can rebuild.
func (m *Manager) checkShape(t reflect.Type, tokens []Tag) error {
	if _, ok := m.shapes[shapeKey(tokens)]; ok {
		return nil
	}
	switch familyOf(t) {
	case familySet, familyTuple, familyValueTuple:
		return argumentf("shape of %s is not registered", t)
	}
	for _, a := range shapeArgs(t) {
		if familyOf(a) == familyNone {
			continue
		}
		sub, err := m.ShapeOf(a)
		if err != nil {
			return err
		}
		if err := m.checkShape(a, sub); err != nil {
			return err
		}
	}
	return nil
}

// ResolveShape rebuilds the concrete type described by tokens.
func (m *Manager) ResolveShape(tokens []Tag) (reflect.Type, error) {
	if len(tokens) == 0 || len(tokens) > MaxShapeTokens {
		return nil, ErrFormat{errBadShapeLength}
	}
	p := shapeParser{m: m, tokens: tokens, pos: 1}
	t, err := p.generic(tokens[0], 0)
	if err != nil {
		return nil, err
	}
	if p.pos != len(tokens) {
		return nil, ErrFormat{errTrailingTokens}
	}
	return t, nil
}

type shapeParser struct {
	m      *Manager
	tokens []Tag
	pos    int
}

func (p *shapeParser) next() (Tag, error) {
	if p.pos >= len(p.tokens) {
		return 0, ErrFormat{errBadShapeLength}
	}
	tok := p.tokens[p.pos]
	p.pos++
	return tok, nil
}

func (p *shapeParser) arg() (reflect.Type, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	if tok&TagExtendedFlag != 0 {
		return p.generic(tok&^TagExtendedFlag, p.pos-1)
	}
	e, ok := p.m.byTag[tok]
	if !ok || e.typ == nil {
		return nil, formatf("unknown type tag %d in extended type", tok)
	}
	return e.typ, nil
}

// generic parses one generic type whose base token, at start, was already
// consumed.
func (p *shapeParser) generic(base Tag, start int) (reflect.Type, error) {
	e, ok := p.m.byTag[base]
	if !ok || e.kind != kindGeneric {
		return nil, formatf("unsupported extended type base %d", base)
	}

	var (
		args []reflect.Type
		n    Tag
		err  error
	)
	switch e.family {
	case familyArray:
		if n, err = p.next(); err != nil {
			return nil, err
		}
	case familyTuple, familyValueTuple:
		if n, err = p.next(); err != nil {
			return nil, err
		}
		if n < 1 || n > MaxTupleArity {
			return nil, ErrFormat{errBadTupleArity}
		}
	}
	argc := 1
	switch e.family {
	case familyMap:
		argc = 2
	case familyTuple, familyValueTuple:
		argc = int(n)
	}
	for i := 0; i < argc; i++ {
		a, err := p.arg()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	key := make([]Tag, p.pos-start)
	copy(key, p.tokens[start:p.pos])
	key[0] = base
	if t, ok := p.m.shapes[shapeKey(key)]; ok {
		return t, nil
	}

	switch e.family {
	case familyList:
		return reflect.SliceOf(args[0]), nil
	case familyArray:
		if !arrayFits(uint64(n), args[0]) {
			return nil, ErrFormat{errBadArrayLength}
		}
		return reflect.ArrayOf(int(n), args[0]), nil
	case familyMap:
		if !args[0].Comparable() {
			return nil, formatf("map key type %s is not comparable", args[0])
		}
		return reflect.MapOf(args[0], args[1]), nil
	}
	return nil, formatf("extended type %s is not registered", shapeKey(key))
}

// arrayFits reports whether an array of n elem values stays within the
// limits both sides of a session enforce.
func arrayFits(n uint64, elem reflect.Type) bool {
	size := uint64(elem.Size())
	return n <= maxArrayLength && (size == 0 || n <= maxArrayBytes/size)
}
