package modstrings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/modstrings/cache/disk"
	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/index"
	tu "github.com/meigma/modstrings/internal/testutil"
)

func TestScanCache(t *testing.T) {
	t.Parallel()

	c := tu.NewMockCache()
	s := newScanner(t, WithCache(c))
	ctx := context.Background()
	data := pluginData()

	first, err := s.Scan(ctx, "Mod.esp", data)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	second, err := s.Scan(ctx, "Renamed.esp", data)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	hits, misses := c.Stats()
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	// The stored value is a compressed string index for the content.
	value, ok := c.Get(contentKey(data))
	require.True(t, ok)
	raw, err := codec.NewZstdPool(0).Decode(value, 0)
	require.NoError(t, err)
	idx, err := index.Load(raw)
	require.NoError(t, err)
	assert.Equal(t, FormatPlugin, idx.Format())
	assert.Equal(t, contentKey(data), idx.Source())
	assert.Equal(t, first, idx.Set().Strings)
}

func TestScanCache_Corrupt(t *testing.T) {
	t.Parallel()

	c := tu.NewMockCache()
	s := newScanner(t, WithCache(c))
	data := scriptData("Script literal")
	key := contentKey(data)
	require.NoError(t, c.Put(key, []byte("not zstd")))

	got, err := s.Scan(context.Background(), "Quest.pex", data)
	require.NoError(t, err)
	assert.Equal(t, "Script literal", got[0].Text)

	// The corrupt entry was replaced by a decodable one.
	value, ok := c.Get(key)
	require.True(t, ok)
	raw, err := codec.NewZstdPool(0).Decode(value, 0)
	require.NoError(t, err)
	_, err = index.Load(raw)
	require.NoError(t, err)
}

func TestScanCache_FormatMismatch(t *testing.T) {
	t.Parallel()

	c := tu.NewMockCache()
	s := newScanner(t, WithCache(c))
	data := translationData(t, "$Title\tMy Mod\r\n")

	// Same bytes cached as another format are not reused.
	value, err := codec.EncodeZstd(index.Encode(index.Set{
		Format:  FormatScript,
		Source:  contentKey(data),
		Strings: []String{{FieldKind: "PEX", Text: "wrong"}},
	}))
	require.NoError(t, err)
	require.NoError(t, c.Put(contentKey(data), value))

	got, err := s.Scan(context.Background(), "mod_english.txt", data)
	require.NoError(t, err)
	assert.Equal(t, []String{{ContextID: "$Title", FieldKind: "MCM", Text: "My Mod"}}, got)
}

func TestScanCache_Disk(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()
	data := pluginData()

	first, err := newScanner(t, WithCacheDir(dir)).Scan(ctx, "Mod.esp", data)
	require.NoError(t, err)

	c, err := disk.New(dir)
	require.NoError(t, err)
	assert.Positive(t, c.SizeBytes())

	second, err := newScanner(t, WithCache(c)).Scan(ctx, "Mod.esp", data)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
