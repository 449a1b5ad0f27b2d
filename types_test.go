package archive

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

type parent struct {
	Value int32
	Child *child
}

type child struct {
	Value  int32
	Parent *parent
}

// registerFamily registers parent (tag 200) and child (tag 201). With
// forgetful set, parent's read routine never reports its constructor done.
func registerFamily(t *testing.T, m *Manager, forgetful bool) {
	t.Helper()
	require.NoError(t, RegisterObjectType(m, ObjectType[*parent]{
		Tag:           200,
		Name:          "test.Parent",
		Referenceable: true,
		Write: func(w *Writer, p *parent) error {
			if err := w.WriteInt32(p.Value); err != nil {
				return err
			}
			return WriteObjectAs(w, p.Child)
		},
		Read: func(r *Reader, version uint16, handle Handle) (*parent, error) {
			p := &parent{}
			if !forgetful {
				if err := r.ConstructorDone(handle, p); err != nil {
					return nil, err
				}
			}
			var err error
			if p.Value, err = r.ReadInt32(); err != nil {
				return nil, err
			}
			if p.Child, err = ReadObjectOrNullAs[*child](r); err != nil {
				return nil, err
			}
			return p, nil
		},
	}))
	require.NoError(t, RegisterObjectType(m, ObjectType[*child]{
		Tag:           201,
		Name:          "test.Child",
		Referenceable: true,
		Write: func(w *Writer, c *child) error {
			if err := w.WriteInt32(c.Value); err != nil {
				return err
			}
			return WriteObjectAs(w, c.Parent)
		},
		Read: func(r *Reader, version uint16, handle Handle) (*child, error) {
			c := &child{}
			if err := r.ConstructorDone(handle, c); err != nil {
				return nil, err
			}
			var err error
			if c.Value, err = r.ReadInt32(); err != nil {
				return nil, err
			}
			if c.Parent, err = ReadObjectOrNullAs[*parent](r); err != nil {
				return nil, err
			}
			return c, nil
		},
	}))
}

func newFamily() *parent {
	p := &parent{Value: 7}
	p.Child = &child{Value: 8, Parent: p}
	return p
}

type counter struct {
	Base int64
}

func (c *counter) Add(n int64) int64 { return c.Base + n }

func (c *counter) Scale(n int64) int64 { return c.Base * n }

func registerCounter(t *testing.T, m *Manager) {
	t.Helper()
	require.NoError(t, RegisterObjectType(m, ObjectType[*counter]{
		Tag:           210,
		Referenceable: true,
		Write: func(w *Writer, c *counter) error {
			return w.WriteInt64(c.Base)
		},
		Read: func(r *Reader, version uint16, handle Handle) (*counter, error) {
			c := &counter{}
			if err := r.ConstructorDone(handle, c); err != nil {
				return nil, err
			}
			var err error
			c.Base, err = r.ReadInt64()
			return c, err
		},
	}))
	require.NoError(t, RegisterMethod(m, "Add", func(c *counter) func(int64) int64 { return c.Add }))
}

type color int16

func (c color) String() string { return "color(" + strconv.Itoa(int(c)) + ")" }

type flags uint32

type point struct {
	X, Y  int32
	Label string
	Cache []byte `archive:"-"`
	note  string
}
