package archive

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// session runs write against a fresh write session on a Buffer, then read
// against a read session over the bytes produced.
func session(t *testing.T, m *Manager, write func(w *Writer), read func(r *Reader)) []byte {
	t.Helper()
	buf := NewBuffer(nil)
	w, err := m.StartWrite(buf)
	require.NoError(t, err)
	write(w)
	require.NoError(t, w.FinishWrite())

	out := append([]byte{}, buf.Bytes()...)
	r, err := m.StartRead(buf)
	require.NoError(t, err)
	defer func() { require.NoError(t, r.FinishRead()) }()
	read(r)
	assert.Zero(t, buf.Len(), "unread bytes")
	return out
}

func TestFixedWidthLittleEndian(t *testing.T) {
	m := NewManager()
	b := session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteInt16(-2))
		require.NoError(t, w.WriteUint32(0x01020304))
		require.NoError(t, w.WriteInt64(math.MinInt64))
		require.NoError(t, w.WriteFloat64(1))
	}, func(r *Reader) {
		i16, err := r.ReadInt16()
		require.NoError(t, err)
		assert.Equal(t, int16(-2), i16)
		u32, err := r.ReadUint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(0x01020304), u32)
		i64, err := r.ReadInt64()
		require.NoError(t, err)
		assert.Equal(t, int64(math.MinInt64), i64)
		f, err := r.ReadFloat64()
		require.NoError(t, err)
		assert.Equal(t, 1.0, f)
	})
	assert.Equal(t, []byte{
		0xfe, 0xff,
		0x04, 0x03, 0x02, 0x01,
		0, 0, 0, 0, 0, 0, 0, 0x80,
		0, 0, 0, 0, 0, 0, 0xf0, 0x3f,
	}, b)
}

func TestPrimitiveExtremes(t *testing.T) {
	m := NewManager()
	session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteBool(true))
		require.NoError(t, w.WriteInt8(math.MinInt8))
		require.NoError(t, w.WriteUint8(math.MaxUint8))
		require.NoError(t, w.WriteInt16(math.MinInt16))
		require.NoError(t, w.WriteUint16(math.MaxUint16))
		require.NoError(t, w.WriteInt32(math.MinInt32))
		require.NoError(t, w.WriteUint64(math.MaxUint64))
		require.NoError(t, w.WriteFloat32(float32(math.Inf(-1))))
		require.NoError(t, w.WriteFloat64(math.NaN()))
		require.NoError(t, w.WriteVarUint32(math.MaxUint32))
	}, func(r *Reader) {
		b, err := r.ReadBool()
		require.NoError(t, err)
		assert.True(t, b)
		i8, err := r.ReadInt8()
		require.NoError(t, err)
		assert.Equal(t, int8(math.MinInt8), i8)
		u8, err := r.ReadUint8()
		require.NoError(t, err)
		assert.Equal(t, uint8(math.MaxUint8), u8)
		i16, err := r.ReadInt16()
		require.NoError(t, err)
		assert.Equal(t, int16(math.MinInt16), i16)
		u16, err := r.ReadUint16()
		require.NoError(t, err)
		assert.Equal(t, uint16(math.MaxUint16), u16)
		i32, err := r.ReadInt32()
		require.NoError(t, err)
		assert.Equal(t, int32(math.MinInt32), i32)
		u64, err := r.ReadUint64()
		require.NoError(t, err)
		assert.Equal(t, uint64(math.MaxUint64), u64)
		f32, err := r.ReadFloat32()
		require.NoError(t, err)
		assert.True(t, math.IsInf(float64(f32), -1))
		f64, err := r.ReadFloat64()
		require.NoError(t, err)
		assert.True(t, math.IsNaN(f64))
		v, err := r.ReadVarUint32()
		require.NoError(t, err)
		assert.Equal(t, uint32(math.MaxUint32), v)
	})
}

func TestStrings(t *testing.T) {
	long := strings.Repeat("0123456789", 1000)
	hello := "hello"
	m := NewManager()
	session(t, m, func(w *Writer) {
		require.NoError(t, w.WriteString(""))
		require.NoError(t, w.WriteString("nul\x00inside"))
		require.NoError(t, w.WriteNullableString(nil))
		require.NoError(t, w.WriteNullableString(&hello))
		require.NoError(t, w.WriteString(long))
		w.StringChunkSize = 64
		require.NoError(t, w.WriteString(long))
		require.NoError(t, w.WriteString("short"))
		require.NoError(t, w.WriteBytes(nil))
		require.NoError(t, w.WriteBytes([]byte("raw")))
	}, func(r *Reader) {
		s, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "", s)
		s, err = r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "nul\x00inside", s)
		ns, err := r.ReadNullableString()
		require.NoError(t, err)
		assert.Nil(t, ns)
		ns, err = r.ReadNullableString()
		require.NoError(t, err)
		require.NotNil(t, ns)
		assert.Equal(t, hello, *ns)
		for i := 0; i < 2; i++ {
			s, err = r.ReadString()
			require.NoError(t, err)
			assert.Equal(t, long, s)
		}
		s, err = r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "short", s)
		b, err := r.ReadBytes()
		require.NoError(t, err)
		assert.Nil(t, b)
		b, err = r.ReadBytes()
		require.NoError(t, err)
		assert.Equal(t, []byte("raw"), b)
	})
}

func TestChunkedStringFraming(t *testing.T) {
	m := NewManager()
	b := session(t, m, func(w *Writer) {
		w.StringChunkSize = 2
		require.NoError(t, w.WriteString("abcde"))
	}, func(r *Reader) {
		s, err := r.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "abcde", s)
	})
	assert.Equal(t, []byte{2, 2, 'a', 'b', 2, 'c', 'd', 1, 'e', 0}, b)
}

func TestStringFaults(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		err  error
	}{
		{"null", []byte{0}, ErrNullValue{Name: "string"}},
		{"truncated", []byte{11, 'a'}, ErrTruncated},
		{"unterminated chunks", []byte{2, 3, 'a', 'b', 'c'}, ErrFormat{errUnterminatedString}},
		{"chunk cut short", []byte{2, 3, 'a'}, ErrFormat{errUnterminatedString}},
		{"bad header", []byte{4}, ErrFormat{errBadStringHeader}},
		{"too long", AppendVarUint32(nil, (MaxStringLength+1)<<1|1), ErrFormat{errBadStringSize}},
	}
	m := NewManager()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := m.StartRead(NewBuffer(tt.in))
			require.NoError(t, err)
			defer r.FinishRead()
			_, err = r.ReadString()
			assert.Equal(t, tt.err, err)
		})
	}
}

func TestStreamReaderLargeNext(t *testing.T) {
	long := strings.Repeat("x", 3*streamBufSize)
	m := NewManager()
	buf := NewBuffer(nil)
	w, err := m.StartWrite(buf)
	require.NoError(t, err)
	require.NoError(t, w.WriteString(long))
	require.NoError(t, w.WriteString("tail"))
	require.NoError(t, w.FinishWrite())

	r, err := m.StartRead(NewStreamReader(strings.NewReader(string(buf.Bytes()))))
	require.NoError(t, err)
	defer r.FinishRead()
	s, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, long, s)
	s, err = r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "tail", s)
	_, err = r.ReadUint8()
	assert.Equal(t, ErrTruncated, err)
}
