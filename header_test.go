package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeaderGrid(t *testing.T) {
	tags := []Tag{TagNone, TagBool, TagList, TagTestFirst, TagCustomFirst, 1 << 20, LastValidTag}
	versions := []uint16{1, 2, 7, 8, 300, 65535}
	bools := []bool{false, true}

	m := NewManager()
	for _, tag := range tags {
		for _, version := range versions {
			for _, canBeRef := range bools {
				for _, null := range bools {
					for _, already := range bools {
						for _, extended := range bools {
							h := Header{
								Tag:               tag,
								CanBeReference:    canBeRef,
								IsNull:            null,
								AlreadyReferenced: already,
								IsExtended:        extended,
								Version:           version,
							}
							if extended {
								h.Shape = []Tag{tag, 5}
							}
							if already {
								h.Handle = 3
							}
							checkHeader(t, m, h)
						}
					}
				}
			}
		}
	}
}

func checkHeader(t *testing.T, m *Manager, h Header) {
	t.Helper()
	invalid := (h.IsNull && h.AlreadyReferenced) ||
		(h.IsNull && h.IsExtended) ||
		(h.AlreadyReferenced && !h.CanBeReference)

	buf := NewBuffer(nil)
	w, err := m.StartWrite(buf)
	require.NoError(t, err)
	defer w.FinishWrite()

	pos, err := w.WriteHeader(h)
	if invalid {
		var ea ErrArgument
		require.ErrorAs(t, err, &ea, "%+v", h)
		return
	}
	require.NoError(t, err, "%+v", h)

	hasSlot := h.CanBeReference && !h.IsNull
	if hasSlot {
		assert.Equal(t, int64(buf.Len()-4), pos)
	} else {
		assert.Equal(t, int64(-1), pos)
	}

	r, err := m.StartRead(buf)
	require.NoError(t, err)
	defer r.FinishRead()
	got, err := r.ReadHeader()
	require.NoError(t, err, "%+v", h)
	assert.Zero(t, buf.Len())

	want := h
	switch {
	case !hasSlot:
		want.Handle = NoHandle
	case !h.AlreadyReferenced:
		want.Handle = 0
	}
	if h.IsNull && h.Version > maxShortVersion {
		want.Version = 0
	}
	assert.Equal(t, want, got)
}

func TestHeaderArgumentFaults(t *testing.T) {
	tests := []struct {
		name string
		h    Header
	}{
		{"tag above range", Header{Tag: LastValidTag + 1, Version: 1}},
		{"extended flag as tag", Header{Tag: TagExtendedFlag | TagBool, Version: 1}},
		{"version zero", Header{Tag: TagBool}},
		{"null already referenced", Header{Tag: TagBool, Version: 1, CanBeReference: true, IsNull: true, AlreadyReferenced: true, Handle: 1}},
		{"null extended", Header{Tag: TagList, Version: 1, IsNull: true, IsExtended: true, Shape: []Tag{TagList, TagBool}}},
		{"already referenced without slot", Header{Tag: TagBool, Version: 1, AlreadyReferenced: true, Handle: 1}},
		{"already referenced without handle", Header{Tag: TagBool, Version: 1, CanBeReference: true, AlreadyReferenced: true}},
		{"extended without shape", Header{Tag: TagList, Version: 1, IsExtended: true}},
		{"shape base mismatch", Header{Tag: TagList, Version: 1, IsExtended: true, Shape: []Tag{TagMap, TagBool}}},
		{"shape too long", Header{Tag: TagList, Version: 1, IsExtended: true, Shape: append([]Tag{TagList}, make([]Tag, MaxShapeTokens)...)}},
	}
	m := NewManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer(nil)
			w, err := m.StartWrite(buf)
			require.NoError(t, err)
			defer w.FinishWrite()

			pos, err := w.WriteHeader(tt.h)
			var ea ErrArgument
			require.ErrorAs(t, err, &ea)
			assert.Equal(t, int64(-1), pos)
			assert.Zero(t, buf.Len(), "nothing written")
		})
	}
}

func TestHeaderFormatFaults(t *testing.T) {
	word := func(tag Tag, flags uint32) []byte {
		return AppendVarUint32(nil, uint32(tag)<<8|flags)
	}
	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"reserved bit", word(TagBool, flagReserved|1<<shortVersionShift), ErrFormat{errBadHeaderFlags}},
		{"null already referenced", word(TagBool, flagNull|flagAlreadyReferenced|flagCanBeReference|1<<shortVersionShift), ErrFormat{errNullReference}},
		{"short long version", append(word(TagBool, 0), 3, 0), ErrFormat{errBadHeaderFlags}},
		{"empty shape", append(word(TagList, flagExtended|1<<shortVersionShift), 0), ErrFormat{errBadShapeLength}},
		{"shape base mismatch", append(word(TagList, flagExtended|1<<shortVersionShift), 2, byte(TagMap), byte(TagBool)), ErrFormat{errShapeBaseMismatch}},
		{"negative handle", append(word(TagMap, flagCanBeReference|1<<shortVersionShift), 0xff, 0xff, 0xff, 0xff), ErrFormat{errBadHandle}},
		{"zero back reference", append(word(TagMap, flagCanBeReference|flagAlreadyReferenced|1<<shortVersionShift), 0, 0, 0, 0), ErrFormat{errBadHandle}},
		{"truncated slot", append(word(TagMap, flagCanBeReference|1<<shortVersionShift), 1), ErrTruncated},
	}
	m := NewManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := m.StartRead(NewBuffer(tt.in))
			require.NoError(t, err)
			defer r.FinishRead()
			_, err = r.ReadHeader()
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestHeaderSize(t *testing.T) {
	m := NewManager()
	buf := NewBuffer(nil)
	w, err := m.StartWrite(buf)
	require.NoError(t, err)
	defer w.FinishWrite()

	_, err = w.WriteHeader(Header{Tag: TagInt32, Version: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, buf.Len())

	_, err = w.WriteHeader(Header{Tag: TagTestFirst, Version: 1, CanBeReference: true})
	require.NoError(t, err)
	assert.Equal(t, 2+3+4, buf.Len())

	_, err = w.WriteHeader(Header{Tag: TagTestFirst, Version: 8})
	require.NoError(t, err)
	assert.Equal(t, 2+3+4+3+2, buf.Len())
}
