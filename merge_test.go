package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMerger(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)

	for _, e := range []*Encoder{NewEncoder(m), {Manager: m, Compression: ZlibCompressor{}}} {
		p := newFamily()
		mg, err := NewMerger(e)
		require.NoError(t, err)

		_, err = m.StartWrite(NewBuffer(nil))
		assert.ErrorIs(t, err, ErrSessionActive)

		require.NoError(t, mg.Append(p))
		require.NoError(t, mg.Append("between"))
		require.NoError(t, mg.Append(p.Child))
		require.NoError(t, mg.Append(nil))
		assert.Equal(t, 4, mg.Len())

		b, err := mg.Finish()
		require.NoError(t, err)
		_, err = mg.Finish()
		assert.ErrorIs(t, err, ErrNoSession)
		assert.ErrorIs(t, mg.Append(1), ErrNoSession)

		got, err := UnmarshalAs[[]any](NewDecoder(m), b)
		require.NoError(t, err)
		require.Len(t, got, 4)
		gp, ok := got[0].(*parent)
		require.True(t, ok)
		assert.Equal(t, "between", got[1])
		assert.Same(t, gp.Child, got[2])
		assert.Same(t, gp, got[2].(*child).Parent)
		assert.Nil(t, got[3])
	}
}

func TestMergerEmpty(t *testing.T) {
	m := NewManager()
	mg, err := NewMerger(NewEncoder(m))
	require.NoError(t, err)
	b, err := mg.Finish()
	require.NoError(t, err)

	got, err := UnmarshalAs[[]any](NewDecoder(m), b)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}
