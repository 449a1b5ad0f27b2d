package archive

import "reflect"

// Tuple1 through Tuple7 are fixed-arity heterogeneous groups. A TupleN value
// is archived with value semantics; a *TupleN is referenceable and keeps
// its identity. Each tuple shape must be registered with RegisterShape.
type (
	Tuple1[A any] struct {
		Item1 A
	}
	Tuple2[A, B any] struct {
		Item1 A
		Item2 B
	}
	Tuple3[A, B, C any] struct {
		Item1 A
		Item2 B
		Item3 C
	}
	Tuple4[A, B, C, D any] struct {
		Item1 A
		Item2 B
		Item3 C
		Item4 D
	}
	Tuple5[A, B, C, D, E any] struct {
		Item1 A
		Item2 B
		Item3 C
		Item4 D
		Item5 E
	}
	Tuple6[A, B, C, D, E, F any] struct {
		Item1 A
		Item2 B
		Item3 C
		Item4 D
		Item5 E
		Item6 F
	}
	Tuple7[A, B, C, D, E, F, G any] struct {
		Item1 A
		Item2 B
		Item3 C
		Item4 D
		Item5 E
		Item6 F
		Item7 G
	}
)

type tupleShape interface{ tupleArity() int }

func (Tuple1[A]) tupleArity() int                   { return 1 }
func (Tuple2[A, B]) tupleArity() int                { return 2 }
func (Tuple3[A, B, C]) tupleArity() int             { return 3 }
func (Tuple4[A, B, C, D]) tupleArity() int          { return 4 }
func (Tuple5[A, B, C, D, E]) tupleArity() int       { return 5 }
func (Tuple6[A, B, C, D, E, F]) tupleArity() int    { return 6 }
func (Tuple7[A, B, C, D, E, F, G]) tupleArity() int { return 7 }

// NewTuple3 is a convenience for the common three-element case.
func NewTuple3[A, B, C any](a A, b B, c C) Tuple3[A, B, C] {
	return Tuple3[A, B, C]{Item1: a, Item2: b, Item3: c}
}

// A tuple is its items in order, each written with the item's declared
// type so that a nil item still records what it is.
func writeTuple(w *Writer, v reflect.Value) error {
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	for i := 0; i < v.NumField(); i++ {
		if err := w.writeValue(v.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func readTuple(r *Reader, typ reflect.Type, h *Header) (reflect.Value, error) {
	var out, fields reflect.Value
	if typ.Kind() == reflect.Ptr {
		out = reflect.New(typ.Elem())
		fields = out.Elem()
		if err := r.publish(h.Handle, out); err != nil {
			return reflect.Value{}, err
		}
	} else {
		out = reflect.New(typ).Elem()
		fields = out
	}
	for i := 0; i < fields.NumField(); i++ {
		fv, _, err := r.readValue(fields.Type().Field(i).Type)
		if err != nil {
			return reflect.Value{}, err
		}
		fields.Field(i).Set(fv)
	}
	return out, nil
}
