// Package testutil builds plugin, script, and archive fixtures byte by byte
// and provides in-memory stand-ins for sources and caches.
package testutil

import (
	"io"
	"sync"

	"github.com/opencontainers/go-digest"
)

// MockByteSource implements a simple in-memory byte source for tests.
type MockByteSource struct {
	data []byte
}

// NewMockByteSource returns a byte source backed by the provided data.
func NewMockByteSource(data []byte) *MockByteSource {
	return &MockByteSource{data: data}
}

// ReadAt implements io.ReaderAt semantics over the backing slice.
func (m *MockByteSource) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if off+int64(n) >= int64(len(m.data)) {
		return n, io.EOF
	}
	return n, nil
}

// Size returns the total size of the backing data.
func (m *MockByteSource) Size() int64 {
	return int64(len(m.data))
}

// ReadSeeker returns a seekable view of the whole source.
func (m *MockByteSource) ReadSeeker() io.ReadSeeker {
	return io.NewSectionReader(m, 0, m.Size())
}

// MockCache implements an in-memory cache for tests.
// It counts lookups so tests can assert hits and misses.
type MockCache struct {
	mu     sync.RWMutex
	data   map[digest.Digest][]byte
	hits   int
	misses int
}

// NewMockCache constructs an empty in-memory cache.
func NewMockCache() *MockCache {
	return &MockCache{data: make(map[digest.Digest][]byte)}
}

// Get retrieves data by key.
func (c *MockCache) Get(key digest.Digest) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return data, ok
}

// Put stores data by key.
func (c *MockCache) Put(key digest.Digest, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = append([]byte(nil), content...)
	return nil
}

// Delete removes data by key.
func (c *MockCache) Delete(key digest.Digest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// MaxBytes returns 0: the mock is unbounded.
func (c *MockCache) MaxBytes() int64 { return 0 }

// SizeBytes returns the total size of stored values.
func (c *MockCache) SizeBytes() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var total int64
	for _, v := range c.data {
		total += int64(len(v))
	}
	return total
}

// Prune drops every entry when the cache is above targetBytes.
func (c *MockCache) Prune(targetBytes int64) (int64, error) {
	size := c.SizeBytes()
	if size <= targetBytes {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.data)
	return size, nil
}

// Len returns the number of stored entries.
func (c *MockCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Stats returns the number of cache hits and misses seen by Get.
func (c *MockCache) Stats() (hits, misses int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}
