package cursor

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_Integers(t *testing.T) {
	t.Parallel()

	data := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

	tests := []struct {
		name  string
		order binary.ByteOrder
		u16   uint16
		u32   uint32
	}{
		{"little endian", binary.LittleEndian, 0x0201, 0x06050403},
		{"big endian", binary.BigEndian, 0x0102, 0x03040506},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(data, tt.order)
			u16, err := c.Uint16()
			require.NoError(t, err)
			assert.Equal(t, tt.u16, u16)

			u32, err := c.Uint32()
			require.NoError(t, err)
			assert.Equal(t, tt.u32, u32)
			assert.Equal(t, 6, c.Pos())
			assert.Equal(t, 2, c.Len())
		})
	}
}

func TestCursor_Signed(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte{0xFF, 0xFE, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	i8, err := c.Int8()
	require.NoError(t, err)
	assert.Equal(t, int8(-1), i8)

	i16, err := c.Int16()
	require.NoError(t, err)
	assert.Equal(t, int16(-2), i16)

	i32, err := c.Int32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), i32)
	assert.True(t, c.EOF())
}

func TestCursor_Truncated(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte{0x01, 0x02, 0x03})
	_, err := c.Uint32()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, c.Pos(), "failed read must not advance")

	_, err = c.Bytes(-1)
	require.ErrorIs(t, err, ErrTruncated)

	require.NoError(t, c.Advance(3))
	_, err = c.Uint8()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCursor_VariableWidth(t *testing.T) {
	t.Parallel()

	le := LittleEndian([]byte{0x34, 0x12, 0x00})
	v, err := le.Uint(3)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), v)

	be := BigEndian([]byte{0x12, 0x34})
	v, err = be.Uint(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x1234), v)

	_, err = be.Uint(9)
	require.Error(t, err)
}

func TestCursor_Float32(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte{0x9a, 0x99, 0xd9, 0x3f})
	f, err := c.Float32()
	require.NoError(t, err)
	assert.InDelta(t, 1.7, f, 0.0001)
}

func TestCursor_PeekSeek(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte("GRUPdata"))
	peeked, err := c.Peek(4)
	require.NoError(t, err)
	assert.Equal(t, "GRUP", string(peeked))
	assert.Equal(t, 0, c.Pos())

	tag, err := c.Tag()
	require.NoError(t, err)
	assert.Equal(t, "GRUP", tag)

	require.NoError(t, c.Seek(0))
	tag, err = c.PeekTag()
	require.NoError(t, err)
	assert.Equal(t, "GRUP", tag)
	assert.Equal(t, 0, c.Pos())

	require.NoError(t, c.Seek(8))
	assert.True(t, c.EOF())
	require.ErrorIs(t, c.Seek(9), ErrTruncated)
}

func TestCursor_Sub(t *testing.T) {
	t.Parallel()

	c := BigEndian([]byte{0x00, 0x01, 0x00, 0x02, 0xFF})
	sub, err := c.Sub(4)
	require.NoError(t, err)
	assert.Equal(t, 4, c.Pos())
	assert.Equal(t, binary.BigEndian, sub.Order())

	v, err := sub.Uint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(1), v)
	_, err = sub.Uint32()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCursor_Strings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		read func(*Cursor) ([]byte, error)
		want string
		pos  int
	}{
		{
			name: "fixed trims one null",
			data: []byte("abc\x00\x00"),
			read: func(c *Cursor) ([]byte, error) { return c.Fixed(5) },
			want: "abc\x00",
			pos:  5,
		},
		{
			name: "wstring",
			data: []byte{0x03, 0x00, 'a', 'b', 'c', 'x'},
			read: (*Cursor).WString,
			want: "abc",
			pos:  5,
		},
		{
			name: "bzstring",
			data: []byte{0x04, 'a', 'b', 'c', 0x00},
			read: (*Cursor).BZString,
			want: "abc",
			pos:  5,
		},
		{
			name: "bstring keeps all bytes",
			data: []byte{0x02, 'a', 'b', 'c'},
			read: (*Cursor).BString,
			want: "ab",
			pos:  3,
		},
		{
			name: "zstring",
			data: []byte{'h', 'i', 0x00, 'x'},
			read: (*Cursor).ZString,
			want: "hi",
			pos:  3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := LittleEndian(tt.data)
			got, err := tt.read(c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.pos, c.Pos())
		})
	}
}

func TestCursor_StringErrors(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte{0x05, 'a'})
	_, err := c.BZString()
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, 0, c.Pos(), "length prefix must be restored")

	c = LittleEndian([]byte("no terminator"))
	_, err = c.ZString()
	require.ErrorIs(t, err, ErrTruncated)
}

func TestCursor_InvalidTag(t *testing.T) {
	t.Parallel()

	c := LittleEndian([]byte{0xFF, 0xFE, 0xFD, 0xFC})
	_, err := c.Tag()
	require.ErrorIs(t, err, ErrInvalidTag)
}

func TestCursor_Flags(t *testing.T) {
	t.Parallel()

	table := []Flag{
		{Bit: 0x80, Label: "Localized"},
		{Bit: 0x40000, Label: "Compressed"},
	}
	c := LittleEndian([]byte{0x81, 0x00, 0x04, 0x00})
	flags, raw, err := c.Flags(4, table)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x40081), raw)
	assert.True(t, flags.Has("Localized"))
	assert.True(t, flags.Has("Compressed"))
	assert.Len(t, flags, 2, "unknown bit 0x1 is dropped")
}
