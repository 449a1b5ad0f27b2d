package archive

import (
	"reflect"
	"unsafe"
)

// refKey identifies a referenceable value within a write session. The type
// is part of the key so that a struct and its first field, which share an
// address, are not mistaken for each other.
type refKey struct {
	typ reflect.Type
	ptr unsafe.Pointer
}

// writeRef is the bookkeeping for one referenceable object: where its slot
// was reserved and, once it has been seen a second time, its handle.
type writeRef struct {
	slot   int64
	handle Handle
}

type writeRefs struct {
	byKey map[refKey]*writeRef
	order []*writeRef
	next  Handle
}

func newWriteRefs() *writeRefs {
	return &writeRefs{byKey: make(map[refKey]*writeRef)}
}

// seen returns the record for v, assigning it a handle if it does not have
// one yet. ok is false on first sight.
func (t *writeRefs) seen(key refKey) (h Handle, ok bool) {
	ref, ok := t.byKey[key]
	if !ok {
		return 0, false
	}
	if ref.handle == 0 {
		t.next++
		ref.handle = t.next
	}
	return ref.handle, true
}

func (t *writeRefs) reserve(key refKey, slot int64) {
	ref := &writeRef{slot: slot}
	t.byKey[key] = ref
	t.order = append(t.order, ref)
}

// patch writes every assigned handle into its reserved slot. Objects that
// were only seen once keep the 0 placeholder.
func (t *writeRefs) patch(s Sink) (int, error) {
	var n int
	for _, ref := range t.order {
		if ref.handle == 0 {
			continue
		}
		if err := s.PatchInt32(ref.slot, int32(ref.handle)); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func identity(v reflect.Value) refKey {
	return refKey{typ: v.Type(), ptr: v.UnsafePointer()}
}

// ConstructorDone publishes obj under handle so that references to it from
// its own children resolve. Read routines of referenceable types call it
// right after allocating the instance, before reading any field. A handle of
// zero or less means the object is never referenced again and is ignored.
func (r *Reader) ConstructorDone(handle Handle, obj any) error {
	return r.publish(handle, reflect.ValueOf(obj))
}

func (r *Reader) publish(handle Handle, v reflect.Value) error {
	if r.loaded == nil {
		return ErrNoSession
	}
	if handle <= 0 {
		return nil
	}
	if _, ok := r.loaded[handle]; ok {
		return ErrFormat{errDuplicateHandle}
	}
	r.loaded[handle] = v
	return nil
}

// resolveHandle looks up an already-referenced object.
func (r *Reader) resolveHandle(h *Header) (reflect.Value, error) {
	v, ok := r.loaded[h.Handle]
	if !ok {
		return reflect.Value{}, ErrAncestorReference{Name: r.m.nameOf(h.Tag), Tag: h.Tag, Handle: h.Handle}
	}
	return v, nil
}
