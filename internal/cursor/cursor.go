// Package cursor provides a bounds-checked reader over an in-memory buffer.
//
// A Cursor owns a byte slice and a read position. Every read consumes
// exactly the number of bytes it declares and fails with ErrTruncated when
// the buffer does not hold them; the position is left unchanged on failure.
// Byte order is fixed per cursor so decoders for little-endian and
// big-endian formats cannot mix them up.
package cursor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated is returned when a read extends past the end of the buffer.
	ErrTruncated = errors.New("cursor: truncated input")

	// ErrInvalidTag is returned when a 4-character tag is not valid text.
	ErrInvalidTag = errors.New("cursor: invalid tag")
)

// Cursor reads primitive values from a byte buffer.
//
// The zero value is an empty little-endian cursor.
type Cursor struct {
	buf   []byte
	pos   int
	order binary.ByteOrder
}

// New returns a cursor over buf using the given byte order.
// A nil order defaults to little-endian.
func New(buf []byte, order binary.ByteOrder) *Cursor {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Cursor{buf: buf, order: order}
}

// LittleEndian returns a little-endian cursor over buf.
func LittleEndian(buf []byte) *Cursor {
	return New(buf, binary.LittleEndian)
}

// BigEndian returns a big-endian cursor over buf.
func BigEndian(buf []byte) *Cursor {
	return New(buf, binary.BigEndian)
}

func (c *Cursor) byteOrder() binary.ByteOrder {
	if c.order == nil {
		return binary.LittleEndian
	}
	return c.order
}

// Order returns the byte order used for multi-byte values.
func (c *Cursor) Order() binary.ByteOrder {
	return c.byteOrder()
}

// Pos returns the current read position.
func (c *Cursor) Pos() int {
	return c.pos
}

// Size returns the total length of the underlying buffer.
func (c *Cursor) Size() int {
	return len(c.buf)
}

// Len returns the number of unread bytes.
func (c *Cursor) Len() int {
	return len(c.buf) - c.pos
}

// EOF reports whether all bytes have been consumed.
func (c *Cursor) EOF() bool {
	return c.pos >= len(c.buf)
}

// Remaining returns the unread bytes without consuming them.
// The returned slice aliases the cursor's buffer.
func (c *Cursor) Remaining() []byte {
	return c.buf[c.pos:]
}

func (c *Cursor) need(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: negative length %d", ErrTruncated, n)
	}
	if n > len(c.buf)-c.pos {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, c.pos, len(c.buf)-c.pos)
	}
	return nil
}

// Peek returns the next n bytes without consuming them.
// The returned slice aliases the cursor's buffer.
func (c *Cursor) Peek(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	return c.buf[c.pos : c.pos+n], nil
}

// Advance skips n bytes.
func (c *Cursor) Advance(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// Seek moves the read position to an absolute offset within the buffer.
// Seeking to Size() is allowed and leaves the cursor at EOF.
func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.buf) {
		return fmt.Errorf("%w: seek to %d outside [0, %d]", ErrTruncated, pos, len(c.buf))
	}
	c.pos = pos
	return nil
}

// Bytes consumes and returns the next n bytes.
// The returned slice aliases the cursor's buffer.
func (c *Cursor) Bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Sub consumes the next n bytes and returns a new cursor over them with
// the same byte order.
func (c *Cursor) Sub(n int) (*Cursor, error) {
	b, err := c.Bytes(n)
	if err != nil {
		return nil, err
	}
	return New(b, c.byteOrder()), nil
}

// Uint8 reads an unsigned 8-bit integer.
func (c *Cursor) Uint8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.pos]
	c.pos++
	return v, nil
}

// Int8 reads a signed 8-bit integer.
func (c *Cursor) Int8() (int8, error) {
	v, err := c.Uint8()
	return int8(v), err //nolint:gosec // two's complement reinterpretation
}

// Uint16 reads an unsigned 16-bit integer.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.Bytes(2)
	if err != nil {
		return 0, err
	}
	return c.byteOrder().Uint16(b), nil
}

// Int16 reads a signed 16-bit integer.
func (c *Cursor) Int16() (int16, error) {
	v, err := c.Uint16()
	return int16(v), err //nolint:gosec // two's complement reinterpretation
}

// Uint32 reads an unsigned 32-bit integer.
func (c *Cursor) Uint32() (uint32, error) {
	b, err := c.Bytes(4)
	if err != nil {
		return 0, err
	}
	return c.byteOrder().Uint32(b), nil
}

// Int32 reads a signed 32-bit integer.
func (c *Cursor) Int32() (int32, error) {
	v, err := c.Uint32()
	return int32(v), err //nolint:gosec // two's complement reinterpretation
}

// Uint64 reads an unsigned 64-bit integer.
func (c *Cursor) Uint64() (uint64, error) {
	b, err := c.Bytes(8)
	if err != nil {
		return 0, err
	}
	return c.byteOrder().Uint64(b), nil
}

// Int64 reads a signed 64-bit integer.
func (c *Cursor) Int64() (int64, error) {
	v, err := c.Uint64()
	return int64(v), err //nolint:gosec // two's complement reinterpretation
}

// Uint reads an unsigned integer of 1 to 8 bytes.
func (c *Cursor) Uint(width int) (uint64, error) {
	if width < 1 || width > 8 {
		return 0, fmt.Errorf("cursor: unsupported integer width %d", width)
	}
	b, err := c.Bytes(width)
	if err != nil {
		return 0, err
	}
	var v uint64
	if c.byteOrder() == binary.BigEndian {
		for _, x := range b {
			v = v<<8 | uint64(x)
		}
		return v, nil
	}
	for i := width - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// Float32 reads an IEEE 754 single-precision float.
func (c *Cursor) Float32() (float32, error) {
	v, err := c.Uint32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// Hash reads a 64-bit name hash.
func (c *Cursor) Hash() (uint64, error) {
	return c.Uint64()
}
