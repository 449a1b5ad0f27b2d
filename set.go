package archive

import "reflect"

// Set is an unordered collection of unique elements. It is archived with
// its element type recorded explicitly, so an empty set reads back with the
// right type. Set shapes must be registered with RegisterShape.
type Set[T comparable] map[T]struct{}

type setShape interface{ isSet() }

func (Set[T]) isSet() {}

// NewSet returns a set holding items.
func NewSet[T comparable](items ...T) Set[T] {
	s := make(Set[T], len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

// Add inserts item and reports whether it was not already present.
func (s Set[T]) Add(item T) bool {
	if _, ok := s[item]; ok {
		return false
	}
	s[item] = struct{}{}
	return true
}

func (s Set[T]) Has(item T) bool {
	_, ok := s[item]
	return ok
}

func (s Set[T]) Remove(item T) { delete(s, item) }

func (s Set[T]) Len() int { return len(s) }

// Items returns the elements in unspecified order.
func (s Set[T]) Items() []T {
	out := make([]T, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	return out
}

var present = reflect.ValueOf(struct{}{})

// A set is its element type token, the element count, the reserved
// representation byte (always 0) and the elements in enumeration order.
func writeSet(w *Writer, v reflect.Value) error {
	if err := w.writeHead(v.Type().Key()); err != nil {
		return err
	}
	if err := w.WriteVarUint32(uint32(v.Len())); err != nil {
		return err
	}
	if err := w.WriteUint8(0); err != nil {
		return err
	}
	iter := v.MapRange()
	for iter.Next() {
		if err := w.writeValue(iter.Key()); err != nil {
			return err
		}
	}
	return nil
}

func readSet(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error) {
	if err := r.expectHead(typ.Key()); err != nil {
		return reflect.Value{}, err
	}
	n, err := r.readCollectionSize()
	if err != nil {
		return reflect.Value{}, err
	}
	s := reflect.MakeMapWithSize(typ, int(min(n, maxPrealloc)))
	if err := r.publish(h.Handle, s); err != nil {
		return reflect.Value{}, err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.readKey(typ.Key())
		if err != nil {
			return reflect.Value{}, err
		}
		if s.MapIndex(k).IsValid() {
			return reflect.Value{}, formatf("duplicate element %v in %s", k, typ)
		}
		s.SetMapIndex(k, present)
	}
	return s, nil
}
