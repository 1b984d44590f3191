// Package cache defines content-addressed storage for scan results.
//
// Keys are digests of the scanned file's content, so a hit is valid for any
// file with the same bytes regardless of its name or location. Values are
// opaque to the cache; the scanner stores compressed string sets.
package cache

import "github.com/opencontainers/go-digest"

// Cache stores values by content digest.
//
// Implementations handle their own size limits and eviction policies and
// must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored for key.
	// Returns nil, false if nothing is cached.
	Get(key digest.Digest) ([]byte, bool)

	// Put stores value for key. Storing an existing key is a no-op.
	Put(key digest.Digest, value []byte) error

	// Delete removes the value for key.
	// Missing entries are a no-op.
	Delete(key digest.Digest) error

	// MaxBytes returns the configured size limit (0 = unlimited).
	MaxBytes() int64

	// SizeBytes returns the current size in bytes.
	SizeBytes() int64

	// Prune removes entries until the cache is at or below targetBytes.
	// Returns the number of bytes freed.
	Prune(targetBytes int64) (int64, error)
}
