// Package disk provides a disk-backed cache implementation.
package disk

import (
	_ "crypto/sha256" // registers the canonical digest algorithm
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/modstrings/cache"
)

const (
	defaultShardPrefixLen = 2
	defaultDirPerm        = 0o700
	filePerm              = 0o600
)

var _ cache.Cache = (*Cache)(nil)

// Cache implements cache.Cache using the local filesystem.
//
// Entries are stored as <dir>/<algorithm>/<shard>/<hex>. The cache is safe
// for concurrent use, including by several processes sharing a directory.
type Cache struct {
	dir            string       // root directory for cached entries
	shardPrefixLen int          // number of hex chars for subdirectory sharding
	dirPerm        os.FileMode  // permissions for created directories
	maxBytes       int64        // maximum cache size (0 = unlimited)
	bytes          atomic.Int64 // current total size of cached entries
	pruneMu        sync.Mutex   // serializes prune operations
}

// Option configures a disk cache.
type Option func(*Cache)

// WithMaxBytes sets the maximum size in bytes.
// Values <= 0 disable the limit.
func WithMaxBytes(n int64) Option {
	return func(c *Cache) {
		c.maxBytes = n
	}
}

// WithShardPrefixLen sets the number of hex characters used for sharding.
// Use 0 to disable sharding. Defaults to 2.
func WithShardPrefixLen(n int) Option {
	return func(c *Cache) {
		c.shardPrefixLen = n
	}
}

// WithDirPerm sets the directory permissions used for cache directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(c *Cache) {
		c.dirPerm = mode
	}
}

// New creates a disk-backed cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("cache dir is empty")
	}
	c := &Cache{
		dir:            dir,
		shardPrefixLen: defaultShardPrefixLen,
		dirPerm:        defaultDirPerm,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.shardPrefixLen < 0 {
		return nil, errors.New("shard prefix length must be >= 0")
	}
	if c.maxBytes < 0 {
		c.maxBytes = 0
	}
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return nil, err
	}
	size, err := dirSize(dir)
	if err != nil {
		return nil, err
	}
	c.bytes.Store(size)
	return c, nil
}

// Get returns the value stored for key.
func (c *Cache) Get(key digest.Digest) ([]byte, bool) {
	path, err := c.path(key)
	if err != nil {
		return nil, false
	}
	data, err := os.ReadFile(path) //nolint:gosec // path is derived from a validated digest
	if err != nil {
		return nil, false
	}
	return data, true
}

// Put stores value for key, then prunes to the size limit if it was exceeded.
func (c *Cache) Put(key digest.Digest, value []byte) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, c.dirPerm); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "cache-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()        //nolint:errcheck // best-effort cleanup
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) //nolint:errcheck // best-effort cleanup
		if _, statErr := os.Stat(path); statErr == nil {
			return nil
		}
		return err
	}

	size := c.bytes.Add(int64(len(value)))
	if c.maxBytes > 0 && size > c.maxBytes {
		if _, err := c.Prune(c.maxBytes); err != nil {
			return fmt.Errorf("prune after put: %w", err)
		}
	}
	return nil
}

// Delete removes the value for key.
func (c *Cache) Delete(key digest.Digest) error {
	path, err := c.path(key)
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	c.bytes.Add(-info.Size())
	return nil
}

// MaxBytes returns the configured size limit (0 = unlimited).
func (c *Cache) MaxBytes() int64 {
	return c.maxBytes
}

// SizeBytes returns the current cache size in bytes.
func (c *Cache) SizeBytes() int64 {
	return c.bytes.Load()
}

// Prune removes the oldest entries until the cache is at or below targetBytes.
func (c *Cache) Prune(targetBytes int64) (int64, error) {
	if targetBytes < 0 {
		targetBytes = 0
	}
	c.pruneMu.Lock()
	defer c.pruneMu.Unlock()

	freed, remaining, err := pruneDir(c.dir, targetBytes)
	if err != nil {
		return 0, err
	}
	c.bytes.Store(remaining)
	return freed, nil
}

func (c *Cache) path(key digest.Digest) (string, error) {
	if err := key.Validate(); err != nil {
		return "", fmt.Errorf("cache key %q: %w", key, err)
	}
	encoded := key.Encoded()
	prefixLen := min(c.shardPrefixLen, len(encoded))
	if prefixLen == 0 {
		return filepath.Join(c.dir, key.Algorithm().String(), encoded), nil
	}
	return filepath.Join(c.dir, key.Algorithm().String(), encoded[:prefixLen], encoded), nil
}
