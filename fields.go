package archive

import (
	"reflect"
	"strings"
)

// structFields returns the indices of the fields archived for a struct
// registered without a custom codec: exported fields in declaration order,
// minus those tagged `archive:"-"`.
func structFields(t reflect.Type) []int {
	var out []int
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("archive"), ",")
		if name == "-" {
			continue
		}
		out = append(out, i)
	}
	return out
}

func writeFields(w *Writer, v reflect.Value, fields []int) error {
	for _, i := range fields {
		if err := w.writeValue(v.Field(i)); err != nil {
			return err
		}
	}
	return nil
}

func readFields(r *Reader, box reflect.Value, fields []int) error {
	for _, i := range fields {
		f := box.Field(i)
		fv, _, err := r.readValue(f.Type())
		if err != nil {
			return err
		}
		f.Set(fv)
	}
	return nil
}
