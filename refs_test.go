package archive

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleIdentity(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)

	b := session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteObject(newFamily()))
	}, func(r *Reader) {
		p, err := ReadObjectAs[*parent](r)
		require.NoError(t, err)
		require.NotNil(t, p.Child)
		assert.Equal(t, int32(7), p.Value)
		assert.Equal(t, int32(8), p.Child.Value)
		assert.Same(t, p, p.Child.Parent)
	})

	// parent: header 3, slot 4, value 4
	// child: header 3, slot 4, value 4
	// back reference: header 3, slot 4
	assert.Len(t, b, 29)
	assert.Equal(t, []byte{1, 0, 0, 0}, b[3:7], "parent slot patched with handle 1")
	assert.Equal(t, []byte{0, 0, 0, 0}, b[14:18], "child slot keeps the placeholder")
	assert.Equal(t, []byte{1, 0, 0, 0}, b[25:29], "back reference carries the handle")
}

func TestSharedReferences(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)

	shared := &child{Value: 3}
	other := &child{Value: 4}
	session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteObject([]*child{shared, other, shared, shared}))
		require.NoError(t, w.WriteObject(other))
	}, func(r *Reader) {
		got, err := ReadObjectAs[[]*child](r)
		require.NoError(t, err)
		require.Len(t, got, 4)
		assert.Same(t, got[0], got[2])
		assert.Same(t, got[0], got[3])
		assert.NotSame(t, got[0], got[1])
		assert.Equal(t, *shared, *got[0])

		o, err := ReadObjectAs[*child](r)
		require.NoError(t, err)
		assert.Same(t, got[1], o)
	})
}

func TestAncestorReferenceFault(t *testing.T) {
	good := NewManager()
	registerFamily(t, good, false)
	doc, err := NewEncoder(good).Marshal(newFamily())
	require.NoError(t, err)

	broken := NewManager()
	registerFamily(t, broken, true)
	require.Equal(t, good.Fingerprint(), broken.Fingerprint())
	d := NewDecoder(broken)

	_, typedErr := UnmarshalAs[*parent](d, doc)
	var fault ErrAncestorReference
	require.ErrorAs(t, typedErr, &fault)
	assert.Equal(t, "test.Parent", fault.Name)
	assert.Equal(t, Tag(200), fault.Tag)
	assert.Equal(t, Handle(1), fault.Handle)
	assert.Contains(t, typedErr.Error(), "test.Parent")
	assert.Contains(t, typedErr.Error(), "Reader.ConstructorDone")

	var lowErr error
	err = d.unmarshal(doc, func(r *Reader) error {
		_, _, lowErr = r.ReadObjectLowLevel()
		return lowErr
	})
	require.Error(t, err)
	assert.Equal(t, typedErr.Error(), lowErr.Error())
}

func TestAutoRegisterAfterRead(t *testing.T) {
	// parent never reports itself, but once its read routine returns a later
	// back reference to it still resolves
	good := NewManager()
	registerFamily(t, good, false)
	broken := NewManager()
	registerFamily(t, broken, true)

	p := &parent{Value: 1}
	buf := NewBuffer(nil)
	w, err := good.StartWrite(buf)
	require.NoError(t, err)
	require.NoError(t, w.WriteObject(p))
	require.NoError(t, w.WriteObject(p))
	require.NoError(t, w.FinishWrite())

	r, err := broken.StartRead(buf)
	require.NoError(t, err)
	defer r.FinishRead()
	first, err := ReadObjectAs[*parent](r)
	require.NoError(t, err)
	second, err := ReadObjectAs[*parent](r)
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestConstructorDoneTwice(t *testing.T) {
	m := NewManager()
	r, err := m.StartRead(NewBuffer(nil))
	require.NoError(t, err)
	defer r.FinishRead()

	require.NoError(t, r.ConstructorDone(0, &parent{}))
	require.NoError(t, r.ConstructorDone(NoHandle, &parent{}))
	require.NoError(t, r.ConstructorDone(4, &parent{}))
	assert.Equal(t, ErrFormat{errDuplicateHandle}, r.ConstructorDone(4, &parent{}))
}

func TestSessions(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)

	w, err := m.StartWrite(NewBuffer(nil))
	require.NoError(t, err)
	_, err = m.StartWrite(NewBuffer(nil))
	assert.ErrorIs(t, err, ErrSessionActive)

	// a read session may run alongside the write session
	r, err := m.StartRead(NewBuffer(nil))
	require.NoError(t, err)
	_, err = m.StartRead(NewBuffer(nil))
	assert.ErrorIs(t, err, ErrSessionActive)
	require.NoError(t, r.FinishRead())
	assert.ErrorIs(t, r.FinishRead(), ErrNoSession)
	_, err = r.ReadObject()
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = r.ReadInt32()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, r.ConstructorDone(1, &parent{}), ErrNoSession)

	require.NoError(t, w.FinishWrite())
	assert.ErrorIs(t, w.FinishWrite(), ErrNoSession)
	assert.ErrorIs(t, w.WriteObject(int64(1)), ErrNoSession)
	assert.ErrorIs(t, w.WriteInt32(1), ErrNoSession)

	w, err = m.StartWrite(NewBuffer(nil))
	require.NoError(t, err)
	require.NoError(t, w.FinishWrite())
}

func TestFailedSessionDoesNotPoisonNext(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)
	e := NewEncoder(m)

	_, err := e.Marshal(struct{ Unregistered int }{})
	var ea ErrArgument
	require.ErrorAs(t, err, &ea)
	assert.True(t, strings.Contains(err.Error(), "not registered"))

	b, err := e.Marshal(newFamily())
	require.NoError(t, err)

	d := NewDecoder(m)
	_, err = d.Unmarshal(b[:len(b)-3])
	require.Error(t, err)
	p, err := UnmarshalAs[*parent](d, b)
	require.NoError(t, err)
	assert.Same(t, p, p.Child.Parent)
}

func TestMaxDepth(t *testing.T) {
	m := NewManager()
	m.MaxDepth = 8
	nested := []interface{}{}
	for i := 0; i < 10; i++ {
		nested = []interface{}{nested}
	}
	_, err := NewEncoder(m).Marshal(nested)
	var ea ErrArgument
	require.ErrorAs(t, err, &ea)

	m.MaxDepth = 0
	b, err := NewEncoder(m).Marshal(nested)
	require.NoError(t, err)

	m.MaxDepth = 8
	_, err = NewDecoder(m).Unmarshal(b)
	assert.Equal(t, ErrFormat{errTooDeep}, err)
}

func TestNullValues(t *testing.T) {
	m := NewManager()
	registerFamily(t, m, false)

	session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteNullObject())
		require.NoError(t, w.WriteNullObjectOf(reflect.TypeFor[*parent]()))
		require.NoError(t, WriteObjectAs[*child](w, nil))
		require.NoError(t, w.WriteNullObject())
		require.NoError(t, w.WriteNullObject())
	}, func(r *Reader) {
		v, err := r.ReadObjectOrNull()
		require.NoError(t, err)
		assert.Nil(t, v)

		_, h, err := r.ReadObjectLowLevel()
		require.NoError(t, err)
		assert.True(t, h.IsNull)
		assert.Equal(t, Tag(200), h.Tag)

		c, err := ReadObjectOrNullAs[*child](r)
		require.NoError(t, err)
		assert.Nil(t, c)

		_, err = r.ReadObject()
		var en ErrNullValue
		require.ErrorAs(t, err, &en)

		_, err = ReadObjectAs[int32](r)
		require.True(t, errors.As(err, &en))
		assert.Equal(t, "int32", en.Name)
	})
}
