package modstrings

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dataDir lays out a small game data directory.
func dataDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Skyrim.esm"), pluginData())
	writeFile(t, filepath.Join(dir, "Mod.esp"), pluginData())
	writeFile(t, filepath.Join(dir, "Mod.bsa"), archiveData(t))
	writeFile(t, filepath.Join(dir, "Other.esp"), pluginData())
	writeFile(t, filepath.Join(dir, "Interface", "Translations", "Mod_English.txt"), translationData(t, "$A\tLoose\r\n"))
	writeFile(t, filepath.Join(dir, "Interface", "Translations", "Mod_German.txt"), translationData(t, "$A\tLose\r\n"))
	writeFile(t, filepath.Join(dir, "Scripts", "Quest.pex"), scriptData("Loose literal"))
	writeFile(t, filepath.Join(dir, "Scripts", "Quest.psc"), []byte("ScriptName Quest"))
	return dir
}

func TestReadLoadOrder(t *testing.T) {
	t.Parallel()

	got, err := ReadLoadOrder(strings.NewReader("# This file is managed\nSkyrim.esm\n\n  Mod.esp  \n#Disabled.esp\nOther.esp"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Skyrim.esm", "Mod.esp", "Other.esp"}, got)
}

func TestIsBasePlugin(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBasePlugin("Skyrim.esm"))
	assert.True(t, IsBasePlugin(filepath.Join("Data", "Dawnguard.ESM")))
	assert.False(t, IsBasePlugin("Mod.esp"))
}

func TestDataDirPaths(t *testing.T) {
	t.Parallel()

	dir := dataDir(t)
	s := newScanner(t)

	paths, err := s.DataDirPaths(dir, []string{"Mod.esp"})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "Mod.esp"),
		filepath.Join(dir, "Interface", "Translations", "Mod_English.txt"),
		filepath.Join(dir, "Scripts", "Quest.pex"),
		filepath.Join(dir, "Mod.bsa"),
	}, paths)

	paths, err = s.DataDirPaths(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "Mod.esp"),
		filepath.Join(dir, "Other.esp"),
		filepath.Join(dir, "Skyrim.esm"),
	}, paths[:3])
}

func TestDataDirPaths_MissingFolders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Mod.esp"), pluginData())

	paths, err := newScanner(t).DataDirPaths(dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "Mod.esp")}, paths)

	_, err = newScanner(t).DataDirPaths(filepath.Join(dir, "absent"), nil)
	require.Error(t, err)
}

func TestScanDataDir(t *testing.T) {
	t.Parallel()

	dir := dataDir(t)
	results, err := newScanner(t, WithLanguage("german")).ScanDataDir(context.Background(), dir, []string{"Mod.esp"})
	require.NoError(t, err)

	texts := make(map[string]string, len(results))
	for _, r := range results {
		require.NoError(t, r.Err, r.Path)
		require.NotEmpty(t, r.Strings, r.Path)
		texts[r.Path] = r.Strings[0].Text
	}
	archive := filepath.Join(dir, "Mod.bsa")
	assert.Len(t, texts, 5)
	assert.Equal(t, "Hello", texts[filepath.Join(dir, "Mod.esp")])
	assert.Equal(t, "Lose", texts[filepath.Join(dir, "Interface", "Translations", "Mod_German.txt")])
	assert.Equal(t, "Loose literal", texts[filepath.Join(dir, "Scripts", "Quest.pex")])
	assert.Equal(t, "Packed literal", texts[archive+":scripts/packed.pex"])
	assert.Equal(t, "Titel", texts[archive+":interface/translations/mod_german.txt"])
}
