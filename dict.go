package archive

import "reflect"

// A map is its key and value type tokens, the pair count, the reserved
// representation byte and then the pairs. Iteration order is not stable, so
// neither is the byte output.
func writeMap(w *Writer, v reflect.Value) error {
	t := v.Type()
	if err := w.writeHead(t.Key()); err != nil {
		return err
	}
	if err := w.writeHead(t.Elem()); err != nil {
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
		if err := w.writeValue(iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func readMap(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error) {
	if err := r.expectHead(typ.Key()); err != nil {
		return reflect.Value{}, err
	}
	if err := r.expectHead(typ.Elem()); err != nil {
		return reflect.Value{}, err
	}
	n, err := r.readCollectionSize()
	if err != nil {
		return reflect.Value{}, err
	}
	m := reflect.MakeMapWithSize(typ, int(min(n, maxPrealloc)))
	if err := r.publish(h.Handle, m); err != nil {
		return reflect.Value{}, err
	}
	for i := uint32(0); i < n; i++ {
		k, err := r.readKey(typ.Key())
		if err != nil {
			return reflect.Value{}, err
		}
		if m.MapIndex(k).IsValid() {
			return reflect.Value{}, formatf("duplicate key %v in %s", k, typ)
		}
		v, _, err := r.readValue(typ.Elem())
		if err != nil {
			return reflect.Value{}, err
		}
		m.SetMapIndex(k, v)
	}
	return m, nil
}

// readCollectionSize reads the element count and the reserved
// representation byte of a map or set.
func (r *Reader) readCollectionSize() (uint32, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return 0, err
	}
	flag, err := r.ReadUint8()
	if err != nil {
		return 0, err
	}
	if flag != 0 {
		return 0, ErrFormat{errBadCollectionFlag}
	}
	return n, nil
}

func (r *Reader) readKey(t reflect.Type) (reflect.Value, error) {
	k, _, err := r.readValue(t)
	if err != nil {
		return reflect.Value{}, err
	}
	if !k.Comparable() {
		return reflect.Value{}, formatf("map key of type %s is not comparable", k.Type())
	}
	return k, nil
}
