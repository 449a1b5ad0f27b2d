//go:build gofuzz

package archive

import (
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var fuzzManager = NewManager()

// Fuzz decodes data against the built-in registry and checks that whatever
// decodes survives a second roundtrip unchanged.
func Fuzz(data []byte) int {
	dec := &Decoder{Manager: fuzzManager, IgnoreFingerprint: true}
	v, err := dec.Unmarshal(data)
	if err != nil {
		return 0
	}

	enc, err := NewEncoder(fuzzManager).Marshal(v)
	if err != nil {
		panic("unable to marshal: " + err.Error())
	}

	v2, err := dec.Unmarshal(enc)
	if err != nil {
		panic("unmarshalling marshalled data: " + err.Error())
	}

	if diff := cmp.Diff(v, v2, cmpopts.EquateNaNs()); diff != "" {
		panic("failed to roundtrip: " + diff)
	}
	return 1
}
