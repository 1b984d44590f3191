package write

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFile(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	got, err := File(dest, `scripts\source\quest.pex`, []byte("compiled"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dest, "scripts", "source", "quest.pex"), got)

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, []byte("compiled"), content)

	entries, err := os.ReadDir(filepath.Dir(got))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestFile_Overwrites(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	_, err := File(dest, "a.txt", []byte("first version"))
	require.NoError(t, err)
	got, err := File(dest, "a.txt", []byte("second"))
	require.NoError(t, err)

	content, err := os.ReadFile(got)
	require.NoError(t, err)
	assert.Equal(t, "second", string(content))
}

func TestFile_CreatesDestination(t *testing.T) {
	t.Parallel()

	dest := filepath.Join(t.TempDir(), "nested", "out")
	_, err := File(dest, "x.bin", []byte{1, 2, 3})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dest, "x.bin"))
}

func TestFile_RejectsEscapes(t *testing.T) {
	t.Parallel()

	dest := t.TempDir()
	for _, name := range []string{"", "..", "../evil.txt", `..\..\evil.txt`, "a/../../evil.txt"} {
		_, err := File(dest, name, []byte("x"))
		require.ErrorIs(t, err, fs.ErrInvalid, "name %q", name)
	}
}

func TestCleanName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{`meshes\armor\helmet.nif`, "meshes/armor/helmet.nif", true},
		{"/leading/slash.txt", "leading/slash.txt", true},
		{"a/./b//c.txt", "a/b/c.txt", true},
		{"../up.txt", "", false},
		{".", "", false},
	}
	for _, tt := range tests {
		got, ok := CleanName(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
