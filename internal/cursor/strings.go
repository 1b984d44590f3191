package cursor

import (
	"bytes"
	"fmt"
	"unicode/utf8"
)

// TagSize is the width of a record, group, or subrecord type tag.
const TagSize = 4

// Fixed reads n bytes and returns them with a single trailing null removed.
func (c *Cursor) Fixed(n int) ([]byte, error) {
	b, err := c.Bytes(n)
	if err != nil {
		return nil, err
	}
	return trimNull(b), nil
}

// WString reads a string prefixed by its 16-bit length.
// A single trailing null inside the declared length is removed.
func (c *Cursor) WString() ([]byte, error) {
	start := c.pos
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	b, err := c.Fixed(int(n))
	if err != nil {
		c.pos = start
		return nil, err
	}
	return b, nil
}

// BZString reads a null-terminated string prefixed by its 8-bit length.
// The length counts the terminator.
func (c *Cursor) BZString() ([]byte, error) {
	start := c.pos
	n, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	b, err := c.Fixed(int(n))
	if err != nil {
		c.pos = start
		return nil, err
	}
	return b, nil
}

// BString reads a string prefixed by its 8-bit length with no terminator.
func (c *Cursor) BString() ([]byte, error) {
	start := c.pos
	n, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	b, err := c.Bytes(int(n))
	if err != nil {
		c.pos = start
		return nil, err
	}
	return b, nil
}

// ZString reads bytes up to a null terminator and consumes the terminator.
func (c *Cursor) ZString() ([]byte, error) {
	i := bytes.IndexByte(c.buf[c.pos:], 0)
	if i < 0 {
		return nil, fmt.Errorf("%w: unterminated string at offset %d", ErrTruncated, c.pos)
	}
	b := c.buf[c.pos : c.pos+i]
	c.pos += i + 1
	return b, nil
}

// Tag reads a 4-character type tag.
//
// On ErrInvalidTag the bytes are still consumed; callers that want to
// re-dispatch use Seek to rewind.
func (c *Cursor) Tag() (string, error) {
	b, err := c.Bytes(TagSize)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("%w: % x at offset %d", ErrInvalidTag, b, c.pos-TagSize)
	}
	return string(b), nil
}

// PeekTag returns the next tag without consuming it.
func (c *Cursor) PeekTag() (string, error) {
	start := c.pos
	tag, err := c.Tag()
	c.pos = start
	return tag, err
}

func trimNull(b []byte) []byte {
	if n := len(b); n > 0 && b[n-1] == 0 {
		return b[:n-1]
	}
	return b
}
