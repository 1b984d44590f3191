// Package codec decompresses archive payloads, record bodies, and cached
// string sets.
//
// Every decoder takes a declared output size, used only for buffer sizing,
// and an upper bound on the bytes actually produced. A wrong declared size
// never fails a decode.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
	"github.com/pierrec/lz4/v4"

	"github.com/meigma/modstrings/internal/sizing"
)

// ErrDecompression is returned when compressed data cannot be decoded.
var ErrDecompression = errors.New("modstrings: decompression failed")

// DefaultMaxSize bounds decompressed payloads when callers pass no limit (256MB).
const DefaultMaxSize = 256 << 20

// maxPrealloc caps the buffer reserved from a declared size.
const maxPrealloc = 16 << 20

// Method identifies a payload compression scheme.
type Method uint8

const (
	MethodNone Method = iota
	MethodZlib
	MethodLZ4Frame
)

// String returns the human-readable name of the method.
func (m Method) String() string {
	switch m {
	case MethodNone:
		return "none"
	case MethodZlib:
		return "zlib"
	case MethodLZ4Frame:
		return "lz4"
	default:
		return "unknown"
	}
}

// Decompress decodes data with the given method.
//
// sizeHint is the declared decompressed size; it sizes the output buffer
// but is not trusted beyond that. limit caps the output (0 uses DefaultMaxSize).
func Decompress(m Method, data []byte, sizeHint uint32, limit uint64) ([]byte, error) {
	switch m {
	case MethodNone:
		return data, nil
	case MethodZlib:
		return Inflate(data, sizeHint, limit)
	case MethodLZ4Frame:
		return DecodeLZ4Frame(data, sizeHint, limit)
	default:
		return nil, fmt.Errorf("%w: unsupported method %d", ErrDecompression, m)
	}
}

// Inflate decodes a zlib stream.
func Inflate(data []byte, sizeHint uint32, limit uint64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: zlib: %w", ErrDecompression, err)
	}
	defer zr.Close()
	return readBounded(zr, sizeHint, limit, "zlib")
}

// DecodeLZ4Frame decodes an LZ4 frame stream.
func DecodeLZ4Frame(data []byte, sizeHint uint32, limit uint64) ([]byte, error) {
	return readBounded(lz4.NewReader(bytes.NewReader(data)), sizeHint, limit, "lz4")
}

func readBounded(r io.Reader, sizeHint uint32, limit uint64, name string) ([]byte, error) {
	if limit == 0 {
		limit = DefaultMaxSize
	}
	buf := bytes.NewBuffer(make([]byte, 0, min(uint64(sizeHint), limit, maxPrealloc)))
	lr := &io.LimitedReader{R: r, N: int64(min(limit, math.MaxInt64-1)) + 1} //nolint:gosec // clamped to int64
	if _, err := buf.ReadFrom(lr); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompression, name, err)
	}
	if uint64(buf.Len()) > limit { //nolint:gosec // len is non-negative
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompression, name, sizing.ErrSizeOverflow)
	}
	return buf.Bytes(), nil
}
