// Package sizing provides safe size arithmetic and conversions to prevent overflow.
package sizing

import (
	"errors"
	"io"
	"math"
)

// ErrSizeOverflow is returned when a declared size exceeds supported limits.
var ErrSizeOverflow = errors.New("modstrings: size overflow")

// ToInt converts a uint64 to int, returning ErrSizeOverflow if it doesn't fit.
func ToInt(size uint64) (int, error) {
	if size > uint64(math.MaxInt) {
		return 0, ErrSizeOverflow
	}
	return int(size), nil
}

// ToInt64 converts a uint64 to int64, returning ErrSizeOverflow if it doesn't fit.
func ToInt64(size uint64) (int64, error) {
	if size > uint64(math.MaxInt64) {
		return 0, ErrSizeOverflow
	}
	return int64(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}

// CheckLimit returns ErrSizeOverflow when limit is non-zero and size exceeds it.
func CheckLimit(size, limit uint64) error {
	if limit > 0 && size > limit {
		return ErrSizeOverflow
	}
	return nil
}

// ReadAllWithLimit reads up to maxSize bytes from r.
// Returns ErrSizeOverflow if more than maxSize bytes are available.
// A maxSize of 0 disables the limit.
func ReadAllWithLimit(r io.Reader, maxSize uint64) ([]byte, error) {
	if maxSize == 0 {
		return io.ReadAll(r)
	}
	if maxSize > uint64(math.MaxInt-1) {
		return nil, ErrSizeOverflow
	}
	limit := int64(maxSize) + 1 //nolint:gosec // checked above
	lr := &io.LimitedReader{R: r, N: limit}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if uint64(len(data)) > maxSize { //nolint:gosec // len is always non-negative
		return nil, ErrSizeOverflow
	}
	return data, nil
}
