package archive

import (
	"math"
	"testing"
)

func FuzzUnmarshal(f *testing.F) {
	m := NewManager()
	seeds := []any{
		nil,
		int64(-1),
		math.NaN(),
		"seed",
		[]byte{0, 1},
		[]interface{}{int32(1), "two", nil},
		map[string][]float64{"a": {1.5}},
		[2]uint16{7, 8},
	}
	for _, s := range seeds {
		b, err := NewEncoder(m).Marshal(s)
		if err != nil {
			f.Fatal(err)
		}
		f.Add(b)
	}
	shared := map[string]any{}
	shared["self"] = shared
	if b, err := NewEncoder(m).Marshal([]any{shared, shared}); err == nil {
		f.Add(b)
	}

	f.Fuzz(func(t *testing.T, data []byte) {
		d := &Decoder{Manager: m, IgnoreFingerprint: true}
		v, err := d.Unmarshal(data)
		if err != nil {
			return
		}
		b, err := NewEncoder(m).Marshal(v)
		if err != nil {
			t.Fatalf("re-encoding %T: %v", v, err)
		}
		if _, err := d.Unmarshal(b); err != nil {
			t.Fatalf("decoding re-encoded %T: %v", v, err)
		}
	})
}
