package archive

import "reflect"

// preallocation cap for counts read from the archive; larger collections
// grow as their elements arrive.
const maxPrealloc = 1 << 12

// A list is its element count, the element type token and the elements,
// each with its own header.
func writeList(w *Writer, v reflect.Value) error {
	n := v.Len()
	if err := w.WriteVarUint32(uint32(n)); err != nil {
		return err
	}
	if err := w.writeHead(v.Type().Elem()); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.writeValue(v.Index(i)); err != nil {
			return err
		}
	}
	return nil
}

func readList(r *Reader, typ reflect.Type, _ *Header) (reflect.Value, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	el := typ.Elem()
	if err := r.expectHead(el); err != nil {
		return reflect.Value{}, err
	}
	s := reflect.MakeSlice(typ, 0, int(min(n, maxPrealloc)))
	for i := uint32(0); i < n; i++ {
		ev, _, err := r.readValue(el)
		if err != nil {
			return reflect.Value{}, err
		}
		s = reflect.Append(s, ev)
	}
	return s, nil
}

// Arrays are lists whose length is also part of the shape.
func writeArray(w *Writer, v reflect.Value) error {
	return writeList(w, v)
}

func readArray(r *Reader, typ reflect.Type, _ *Header) (reflect.Value, error) {
	n, err := r.ReadVarUint32()
	if err != nil {
		return reflect.Value{}, err
	}
	if int64(n) != int64(typ.Len()) {
		return reflect.Value{}, ErrFormat{errBadArrayLength}
	}
	el := typ.Elem()
	if err := r.expectHead(el); err != nil {
		return reflect.Value{}, err
	}
	a := reflect.New(typ).Elem()
	for i := 0; i < int(n); i++ {
		ev, _, err := r.readValue(el)
		if err != nil {
			return reflect.Value{}, err
		}
		a.Index(i).Set(ev)
	}
	return a, nil
}
