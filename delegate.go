package archive

import "reflect"

// methodEntry is one method a referenceable type allows to be archived as
// a delegate.
type methodEntry struct {
	name     string
	funcType reflect.Type
	bind     func(target reflect.Value) reflect.Value
}

// Delegate is a method bound to its target object. Delegates are archived
// as the declaring type's tag, the method name and a reference to the
// target, so the target keeps its identity whether it is archived before
// or after the delegate.
type Delegate struct {
	tag    Tag
	method *methodEntry
	target reflect.Value
	fn     reflect.Value
}

var delegateType = reflect.TypeFor[*Delegate]()

// RegisterMethod allows the method called name of T to be captured in a
// Delegate. T must already be registered as a referenceable object type;
// bind returns the method value for a given target, typically
// func(t *Thing) func(int) int { return t.Method }.
func RegisterMethod[T, F any](m *Manager, name string, bind func(T) F) error {
	t := reflect.TypeFor[T]()
	ft := reflect.TypeFor[F]()
	e, ok := m.byType[t]
	if !ok || e.kind != kindObject {
		return argumentf("%s must be registered as an object type before its methods", t)
	}
	if !e.referenceable {
		return argumentf("%s is not referenceable; its methods cannot be delegates", e.name)
	}
	if ft.Kind() != reflect.Func {
		return argumentf("method %s.%s binds to %s, not a func", e.name, name, ft)
	}
	if name == "" || bind == nil {
		return argumentf("method of %s needs a name and a bind function", e.name)
	}
	if e.methods == nil {
		e.methods = make(map[string]*methodEntry)
	}
	if _, ok := e.methods[name]; ok {
		return argumentf("method %s.%s already registered", e.name, name)
	}
	e.methods[name] = &methodEntry{
		name:     name,
		funcType: ft,
		bind: func(target reflect.Value) reflect.Value {
			return reflect.ValueOf(bind(target.Interface().(T)))
		},
	}
	m.debug("archive: registered method", "type", e.name, "method", name)
	return nil
}

// NewDelegate binds the registered method name of target.
func NewDelegate(m *Manager, target any, name string) (*Delegate, error) {
	v := reflect.ValueOf(target)
	if !v.IsValid() || isNil(v) {
		return nil, argumentf("delegate %s needs a non-nil target", name)
	}
	e, me, err := m.method(v.Type(), name)
	if err != nil {
		return nil, err
	}
	return &Delegate{tag: e.tag, method: me, target: v, fn: me.bind(v)}, nil
}

func (m *Manager) method(t reflect.Type, name string) (*typeEntry, *methodEntry, error) {
	e, ok := m.byType[t]
	if !ok || !e.referenceable {
		return nil, nil, argumentf("%s is not a registered referenceable type", t)
	}
	me, ok := e.methods[name]
	if !ok {
		return nil, nil, argumentf("method %s of %s is not registered for delegates", name, e.name)
	}
	return e, me, nil
}

// Target returns the object the method is bound to.
func (d *Delegate) Target() any { return d.target.Interface() }

// Method returns the method name.
func (d *Delegate) Method() string { return d.method.name }

// Func returns the bound method value.
func (d *Delegate) Func() any { return d.fn.Interface() }

// DelegateFunc returns the bound method of d as an F.
func DelegateFunc[F any](d *Delegate) (F, bool) {
	f, ok := d.fn.Interface().(F)
	return f, ok
}

func writeDelegate(w *Writer, v reflect.Value) error {
	d := v.Interface().(*Delegate)
	if d.method == nil {
		return argumentf("zero Delegate")
	}
	e, _, err := w.m.method(d.target.Type(), d.method.name)
	if err != nil {
		return err
	}
	if err := w.WriteVarUint32(uint32(e.tag)); err != nil {
		return err
	}
	if err := w.WriteString(d.method.name); err != nil {
		return err
	}
	return w.writeValue(d.target)
}

func readDelegate(r *Reader, _ reflect.Type, h *Header) (reflect.Value, error) {
	d := &Delegate{}
	if err := r.ConstructorDone(h.Handle, d); err != nil {
		return reflect.Value{}, err
	}
	tag, err := r.ReadVarUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	name, err := r.ReadString()
	if err != nil {
		return reflect.Value{}, err
	}
	e, ok := r.m.byTag[Tag(tag)]
	if !ok || e.typ == nil {
		return reflect.Value{}, formatf("delegate declared by unknown tag %d", tag)
	}
	me, ok := e.methods[name]
	if !ok || !e.referenceable {
		return reflect.Value{}, formatf("method %s of %s is not registered for delegates", name, e.name)
	}
	target, _, err := r.readValue(e.typ)
	if err != nil {
		return reflect.Value{}, err
	}
	if isNil(target) {
		return reflect.Value{}, ErrNullValue{Name: e.name}
	}
	d.tag, d.method, d.target, d.fn = e.tag, me, target, me.bind(target)
	return reflect.ValueOf(d), nil
}
