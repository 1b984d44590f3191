package modstrings

import (
	_ "crypto/sha256" // register sha256 for go-digest

	"github.com/opencontainers/go-digest"

	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/index"
)

// maxCachedSize bounds the decompressed size of one cache entry.
const maxCachedSize = 64 << 20

func contentKey(data []byte) digest.Digest {
	return digest.FromBytes(data)
}

// cached returns the strings stored for key. Entries that fail to decode
// or belong to other content are deleted and reported as misses.
func (s *Scanner) cached(key digest.Digest, format Format) ([]String, bool) {
	if s.cache == nil {
		return nil, false
	}
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, false
	}

	raw, err := s.zstd.Decode(value, maxCachedSize)
	if err != nil {
		s.evict(key, err)
		return nil, false
	}
	idx, err := index.Load(raw)
	if err != nil {
		s.evict(key, err)
		return nil, false
	}
	if idx.Source() != key || idx.Format() != format {
		s.log().Debug("cache entry mismatch", "digest", key, "format", idx.Format())
		return nil, false
	}
	return idx.Set().Strings, true
}

// store writes strs to the cache. Failures are logged and otherwise ignored.
func (s *Scanner) store(key digest.Digest, format Format, strs []String) {
	if s.cache == nil {
		return
	}
	value, err := codec.EncodeZstd(index.Encode(index.Set{Format: format, Source: key, Strings: strs}))
	if err != nil {
		s.log().Warn("cache encode failed", "digest", key, "error", err)
		return
	}
	if err := s.cache.Put(key, value); err != nil {
		s.log().Warn("cache put failed", "digest", key, "error", err)
	}
}

func (s *Scanner) evict(key digest.Digest, cause error) {
	s.log().Warn("dropping corrupt cache entry", "digest", key, "error", cause)
	_ = s.cache.Delete(key) //nolint:errcheck // best-effort cache cleanup
}
