package archive

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/dchest/siphash"
)

type entryKind uint8

const (
	kindBuiltin entryKind = iota
	kindObject
	kindEnum
	kindBoxable
	kindLimited
	kindGeneric
)

// family identifies the built-in generic container a type belongs to.
type family uint8

const (
	familyNone family = iota
	familyList
	familyMap
	familySet
	familyArray
	familyTuple
	familyValueTuple
)

type readFunc func(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error)
type writeFunc func(w *Writer, v reflect.Value) error

type typeEntry struct {
	tag           Tag
	name          string
	typ           reflect.Type // nil for generic families
	kind          entryKind
	family        family
	version       uint16
	referenceable bool
	enumBits      int
	read          readFunc
	write         writeFunc
	methods       map[string]*methodEntry
}

// Manager is the type registry and the owner of session state. Build one
// at startup, register every archivable type, then open sessions with
// StartWrite and StartRead. Registration is not synchronized and must
// finish before sessions start.
type Manager struct {
	// Logger receives debug records for registrations and finished
	// sessions. Nil disables logging.
	Logger *slog.Logger

	// MaxDepth bounds object nesting; zero means DefaultMaxDepth.
	MaxDepth int

	byTag   map[Tag]*typeEntry
	byType  map[reflect.Type]*typeEntry
	limited map[reflect.Type]*typeEntry
	shapes  map[string]reflect.Type

	writing bool
	reading bool
}

// NewManager returns a Manager with the built-in primitives and
// containers registered.
func NewManager() *Manager {
	m := &Manager{
		byTag:   make(map[Tag]*typeEntry),
		byType:  make(map[reflect.Type]*typeEntry),
		limited: make(map[reflect.Type]*typeEntry),
		shapes:  make(map[string]reflect.Type),
	}
	registerBuiltins(m)
	return m
}

func (m *Manager) maxDepth() int {
	if m.MaxDepth > 0 {
		return m.MaxDepth
	}
	return DefaultMaxDepth
}

func (m *Manager) debug(msg string, args ...any) {
	if m.Logger != nil {
		m.Logger.Log(context.Background(), slog.LevelDebug, msg, args...)
	}
}

func (m *Manager) add(e *typeEntry) error {
	if e.tag > LastValidTag {
		return argumentf("tag %d for %s is above LastValidTag", e.tag, e.name)
	}
	if old, ok := m.byTag[e.tag]; ok {
		return argumentf("tag %d for %s already registered to %s", e.tag, e.name, old.name)
	}
	if e.typ != nil {
		if old, ok := m.byType[e.typ]; ok {
			return argumentf("type %s already registered as %s (tag %d)", e.typ, old.name, old.tag)
		}
		if old, ok := m.limited[e.typ]; ok {
			return argumentf("type %s already registered as %s (tag %d)", e.typ, old.name, old.tag)
		}
	}
	if e.version == 0 {
		e.version = 1
	}
	m.byTag[e.tag] = e
	if e.typ != nil {
		if e.kind == kindLimited {
			m.limited[e.typ] = e
		} else {
			m.byType[e.typ] = e
		}
	}
	return nil
}

func (m *Manager) addCustom(e *typeEntry) error {
	if e.tag < TagTestFirst {
		return argumentf("tag %d for %s is in the built-in range", e.tag, e.name)
	}
	if err := m.add(e); err != nil {
		return err
	}
	m.debug("archive: registered type", "tag", e.tag, "name", e.name, "type", e.typ)
	return nil
}

// ObjectType describes a custom type for RegisterObjectType.
//
// Read restores an instance from the stream. When the type is
// referenceable, Read must call Reader.ConstructorDone with handle right
// after allocating the instance and before reading any field that could
// refer back to it. ReadShaped is the same but also receives the concrete
// resolved type; set exactly one of the two.
type ObjectType[T any] struct {
	Tag           Tag
	Name          string
	Version       uint16
	Referenceable bool

	Read       func(r *Reader, version uint16, handle Handle) (T, error)
	ReadShaped func(r *Reader, typ reflect.Type, version uint16, handle Handle) (T, error)
	Write      func(w *Writer, v T) error
}

// RegisterObjectType adds T to the registry.
func RegisterObjectType[T any](m *Manager, ot ObjectType[T]) error {
	t := reflect.TypeFor[T]()
	name := ot.Name
	if name == "" {
		name = t.String()
	}
	if ot.Write == nil || (ot.Read == nil) == (ot.ReadShaped == nil) {
		return argumentf("%s needs a Write routine and exactly one of Read or ReadShaped", name)
	}
	if ot.Referenceable && !hasIdentity(t) {
		return argumentf("%s cannot be referenceable: %s has no identity", name, t.Kind())
	}
	read, readShaped, write := ot.Read, ot.ReadShaped, ot.Write
	e := &typeEntry{
		tag:           ot.Tag,
		name:          name,
		typ:           t,
		kind:          kindObject,
		version:       ot.Version,
		referenceable: ot.Referenceable,
		write: func(w *Writer, v reflect.Value) error {
			return write(w, v.Interface().(T))
		},
	}
	e.read = func(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error) {
		var (
			v   T
			err error
		)
		if read != nil {
			v, err = read(r, h.Version, h.Handle)
		} else {
			v, err = readShaped(r, typ, h.Version, h.Handle)
		}
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(&v).Elem(), nil
	}
	return m.addCustom(e)
}

// Enum is the set of integer representations an enum may use.
type Enum interface {
	~int16 | ~uint16 | ~int32 | ~uint32
}

// RegisterEnumType adds the enum E, stored as its 16- or 32-bit
// underlying integer.
func RegisterEnumType[E Enum](m *Manager, tag Tag, name string) error {
	t := reflect.TypeFor[E]()
	if name == "" {
		name = t.String()
	}
	e := &typeEntry{
		tag:      tag,
		name:     name,
		typ:      t,
		kind:     kindEnum,
		enumBits: t.Bits(),
		write:    writeEnum,
		read:     readEnum,
	}
	return m.addCustom(e)
}

func writeEnum(w *Writer, v reflect.Value) error {
	switch v.Kind() {
	case reflect.Int16:
		return w.WriteInt16(int16(v.Int()))
	case reflect.Uint16:
		return w.WriteUint16(uint16(v.Uint()))
	case reflect.Int32:
		return w.WriteInt32(int32(v.Int()))
	default:
		return w.WriteUint32(uint32(v.Uint()))
	}
}

func readEnum(r *Reader, typ reflect.Type, _ *Header) (reflect.Value, error) {
	v := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.Int16:
		n, err := r.ReadInt16()
		if err != nil {
			return v, err
		}
		v.SetInt(int64(n))
	case reflect.Uint16:
		n, err := r.ReadUint16()
		if err != nil {
			return v, err
		}
		v.SetUint(uint64(n))
	case reflect.Int32:
		n, err := r.ReadInt32()
		if err != nil {
			return v, err
		}
		v.SetInt(int64(n))
	default:
		n, err := r.ReadUint32()
		if err != nil {
			return v, err
		}
		v.SetUint(uint64(n))
	}
	return v, nil
}

// BoxableType describes a value type for RegisterBoxableValueType.
//
// The reader allocates a box (New, or a zero T) and hands it to Read. When
// Read and Write are both nil the exported fields are archived in
// declaration order; fields tagged `archive:"-"` are skipped.
type BoxableType[T any] struct {
	Tag     Tag
	Name    string
	Version uint16

	New   func() *T
	Read  func(r *Reader, box *T, version uint16) error
	Write func(w *Writer, v T) error
}

// RegisterBoxableValueType adds the value type T.
func RegisterBoxableValueType[T any](m *Manager, bt BoxableType[T]) error {
	t := reflect.TypeFor[T]()
	name := bt.Name
	if name == "" {
		name = t.String()
	}
	if (bt.Read == nil) != (bt.Write == nil) {
		return argumentf("%s needs both Read and Write, or neither", name)
	}
	if bt.Read == nil && t.Kind() != reflect.Struct {
		return argumentf("%s has no custom codec and is not a struct", name)
	}
	e := &typeEntry{
		tag:     bt.Tag,
		name:    name,
		typ:     t,
		kind:    kindBoxable,
		version: bt.Version,
	}
	newBox := bt.New
	if newBox == nil {
		newBox = func() *T { return new(T) }
	}
	if bt.Read != nil {
		read, write := bt.Read, bt.Write
		e.write = func(w *Writer, v reflect.Value) error {
			return write(w, v.Interface().(T))
		}
		e.read = func(r *Reader, _ reflect.Type, h *Header) (reflect.Value, error) {
			box := newBox()
			if err := read(r, box, h.Version); err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(box).Elem(), nil
		}
	} else {
		fields := structFields(t)
		e.write = func(w *Writer, v reflect.Value) error {
			return writeFields(w, v, fields)
		}
		e.read = func(r *Reader, _ reflect.Type, _ *Header) (reflect.Value, error) {
			box := reflect.ValueOf(newBox()).Elem()
			if err := readFields(r, box, fields); err != nil {
				return reflect.Value{}, err
			}
			return box, nil
		}
	}
	return m.addCustom(e)
}

// RegisterLimitedObjectType associates tag with typ for shape resolution
// only. Values are never written under a limited tag; interface types are
// the usual candidates.
func (m *Manager) RegisterLimitedObjectType(tag Tag, name string, typ reflect.Type) error {
	if typ == nil {
		return argumentf("nil type for limited tag %d", tag)
	}
	if name == "" {
		name = typ.String()
	}
	return m.addCustom(&typeEntry{tag: tag, name: name, typ: typ, kind: kindLimited})
}

// ResolveWriteTag returns the tag a value of type t is written under.
func (m *Manager) ResolveWriteTag(t reflect.Type) (Tag, error) {
	e, err := m.resolve(t)
	if err != nil {
		return 0, err
	}
	return e.tag, nil
}

// resolve finds the entry for t: exact registration, then primitive kind,
// then generic family, then limited registrations.
func (m *Manager) resolve(t reflect.Type) (*typeEntry, error) {
	if t == nil {
		return nil, argumentf("nil type")
	}
	if e, ok := m.byType[t]; ok {
		return e, nil
	}
	if tag, ok := primitiveTag(t); ok {
		return m.byTag[tag], nil
	}
	if f := familyOf(t); f != familyNone {
		return m.byTag[familyTags[f]], nil
	}
	if e, ok := m.limited[t]; ok {
		return e, nil
	}
	if t.Kind() == reflect.Interface {
		return m.byTag[TagObject], nil
	}
	return nil, argumentf("type %s is not registered", t)
}

func (m *Manager) nameOf(tag Tag) string {
	if e, ok := m.byTag[tag]; ok {
		return e.name
	}
	return "tag " + strconv.FormatUint(uint64(tag), 10)
}

func primitiveTag(t reflect.Type) (Tag, bool) {
	switch t.Kind() {
	case reflect.Bool:
		return TagBool, true
	case reflect.Int8:
		return TagInt8, true
	case reflect.Uint8:
		return TagUint8, true
	case reflect.Int16:
		return TagInt16, true
	case reflect.Uint16:
		return TagUint16, true
	case reflect.Int32:
		return TagInt32, true
	case reflect.Uint32:
		return TagUint32, true
	case reflect.Int, reflect.Int64:
		return TagInt64, true
	case reflect.Uint, reflect.Uint64:
		return TagUint64, true
	case reflect.Float32:
		return TagFloat32, true
	case reflect.Float64:
		return TagFloat64, true
	case reflect.String:
		return TagString, true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return TagBytes, true
		}
	}
	return 0, false
}

func hasIdentity(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Map:
		return true
	}
	return false
}

// Fingerprint identifies the registry contents: every tag with its name,
// version, enum width and allowed methods, and every registered shape.
// Two managers with the same registrations produce the same fingerprint.
func (m *Manager) Fingerprint() uint64 {
	tags := make([]Tag, 0, len(m.byTag))
	for tag := range m.byTag {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })

	var sb strings.Builder
	for _, tag := range tags {
		e := m.byTag[tag]
		fmt.Fprintf(&sb, "%d:%s:%d:%d", e.tag, e.name, e.version, e.kind)
		if e.kind == kindEnum {
			fmt.Fprintf(&sb, ":%d", e.enumBits)
		}
		methods := make([]string, 0, len(e.methods))
		for name := range e.methods {
			methods = append(methods, name)
		}
		sort.Strings(methods)
		for _, name := range methods {
			fmt.Fprintf(&sb, ":%s%s", name, e.methods[name].funcType)
		}
		sb.WriteByte('\n')
	}
	keys := make([]string, 0, len(m.shapes))
	for k := range m.shapes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('\n')
	}
	return siphash.Hash(fingerprintK0, fingerprintK1, []byte(sb.String()))
}

const (
	fingerprintK0 = 0x6172636869766531
	fingerprintK1 = 0x7265676973747279
)
