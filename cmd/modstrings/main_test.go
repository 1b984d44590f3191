package main

import (
	"bytes"
	"context"
	"encoding/json"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/modstrings/bsa"
	tu "github.com/meigma/modstrings/internal/testutil"
)

func pluginData() []byte {
	return tu.Plugin(tu.Header(0),
		tu.TopGroup("BOOK",
			tu.Record("BOOK", 0, 0x801,
				tu.SubString("EDID", "MyBook"),
				tu.SubString("FULL", "The Book"),
			),
		),
	)
}

func archiveData(t *testing.T) []byte {
	t.Helper()
	script := (&tu.PexWriter{}).Header("Quest.psc").
		Strings("Quest", "", "Remote literal").
		NoDebug().
		U16(0).
		U16(1).Object(0, func(b *tu.PexWriter) {
			b.U16(1).U16(1).U32(0).U16(1).U16(0).U16(0).U16(0)
		}).
		Bytes()
	return tu.Archive(t, bsa.Version104, tu.ArchiveIncludeDirNames|tu.ArchiveIncludeFileNames,
		tu.ArchiveMember{Folder: "scripts", Name: "quest.pex", Data: script},
		tu.ArchiveMember{Folder: "meshes", Name: "sign.nif", Data: []byte("mesh")},
	)
}

func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err = run(context.Background(), args, &out, &errOut)
	return out.String(), errOut.String(), err
}

func decodeLines(t *testing.T, out string) []record {
	t.Helper()
	var records []record
	for line := range strings.Lines(out) {
		var r record
		require.NoError(t, json.Unmarshal([]byte(line), &r))
		records = append(records, r)
	}
	return records
}

func TestRun_Usage(t *testing.T) {
	t.Parallel()

	_, stderr, err := runCLI(t)
	require.Error(t, err)
	assert.Contains(t, stderr, "usage:")

	_, _, err = runCLI(t, "frobnicate")
	require.ErrorContains(t, err, "unknown command")

	stdout, _, err := runCLI(t, "help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "datadir")
}

func TestRun_Scan(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plugin := filepath.Join(dir, "Mod.esp")
	require.NoError(t, os.WriteFile(plugin, pluginData(), 0o600))

	profile := filepath.Join(dir, "scan.fgprof")
	stdout, _, err := runCLI(t, "scan", "-cache-dir", filepath.Join(dir, "cache"), "-fgprof", profile, plugin)
	require.NoError(t, err)
	info, err := os.Stat(profile)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	records := decodeLines(t, stdout)
	require.Len(t, records, 1)
	assert.Equal(t, plugin, records[0].Path)
	assert.Equal(t, "MyBook", records[0].ContextID)
	assert.Equal(t, "BOOK FULL", records[0].FieldKind)
	assert.Equal(t, "The Book", records[0].Text)
	assert.Contains(t, stdout, `"context_id":"MyBook"`)
}

func TestRun_ScanFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	plugin := filepath.Join(dir, "Mod.esp")
	require.NoError(t, os.WriteFile(plugin, pluginData(), 0o600))
	missing := filepath.Join(dir, "Missing.esp")

	stdout, stderr, err := runCLI(t, "scan", plugin, missing)
	require.ErrorContains(t, err, "1 of 2 files failed")
	assert.Len(t, decodeLines(t, stdout), 1)
	assert.Contains(t, stderr, missing)

	_, _, err = runCLI(t, "scan", "-codepage", "no-such-codepage", plugin)
	require.ErrorContains(t, err, "code page")

	_, _, err = runCLI(t, "scan")
	require.Error(t, err)
}

func TestRun_ScanRemoteArchive(t *testing.T) {
	t.Parallel()

	data := archiveData(t)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "Mod.bsa", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	url := server.URL + "/Mod.bsa"
	stdout, _, err := runCLI(t, "scan", "-read-ahead", "128", "-header", "X-Test: 1", url)
	require.NoError(t, err)

	records := decodeLines(t, stdout)
	require.Len(t, records, 1)
	assert.Equal(t, url+":scripts/quest.pex", records[0].Path)
	assert.Equal(t, "Remote literal", records[0].Text)

	stdout, _, err = runCLI(t, "list", url)
	require.NoError(t, err)
	assert.Contains(t, stdout, "scripts/quest.pex")
	assert.Contains(t, stdout, "meshes/sign.nif")
}

func TestRun_ScanKeepsArgumentOrder(t *testing.T) {
	t.Parallel()

	data := archiveData(t)
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		nethttp.ServeContent(w, r, "Mod.bsa", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	dir := t.TempDir()
	first := filepath.Join(dir, "First.esp")
	last := filepath.Join(dir, "Last.esp")
	for _, p := range []string{first, last} {
		require.NoError(t, os.WriteFile(p, pluginData(), 0o600))
	}
	url := server.URL + "/Mod.bsa"

	stdout, _, err := runCLI(t, "scan", first, url, last)
	require.NoError(t, err)

	var paths []string
	for _, r := range decodeLines(t, stdout) {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{first, url + ":scripts/quest.pex", last}, paths)
}

func TestRun_DataDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"Skyrim.esm", "Mod.esp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), pluginData(), 0o600))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Mod.bsa"), archiveData(t), 0o600))
	loadOrder := filepath.Join(dir, "loadorder.txt")
	require.NoError(t, os.WriteFile(loadOrder, []byte("# managed\nSkyrim.esm\nMod.esp\n"), 0o600))

	stdout, _, err := runCLI(t, "datadir", "-loadorder", loadOrder, dir)
	require.NoError(t, err)

	var paths []string
	for _, r := range decodeLines(t, stdout) {
		paths = append(paths, r.Path)
	}
	assert.Equal(t, []string{
		filepath.Join(dir, "Mod.esp"),
		filepath.Join(dir, "Mod.bsa") + ":scripts/quest.pex",
	}, paths)

	stdout, _, err = runCLI(t, "datadir", "-skip-base=false", dir)
	require.NoError(t, err)
	assert.Len(t, decodeLines(t, stdout), 3)
}

func TestRun_ListAndExtract(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	archive := filepath.Join(dir, "Mod.bsa")
	require.NoError(t, os.WriteFile(archive, archiveData(t), 0o600))

	stdout, _, err := runCLI(t, "list", "-pattern", "*.pex", archive)
	require.NoError(t, err)
	assert.Contains(t, stdout, "scripts/quest.pex")
	assert.NotContains(t, stdout, "sign.nif")

	dest := filepath.Join(dir, "out")
	stdout, _, err = runCLI(t, "extract", "-o", dest, archive, "*.nif", "meshes/*")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(stdout, "\n"))

	got, err := os.ReadFile(filepath.Join(dest, "meshes", "sign.nif"))
	require.NoError(t, err)
	assert.Equal(t, "mesh", string(got))

	_, _, err = runCLI(t, "extract", "-o", dest, archive, "*.dds")
	require.ErrorContains(t, err, "no members matched")
}

func TestParseBytesPerSecond(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want int64
	}{
		{"100", 100},
		{"512k", 512 << 10},
		{"10MBps", 10 << 20},
		{"2mb/s", 2 << 20},
		{"1g", 1 << 30},
	}
	for _, tt := range tests {
		got, err := parseBytesPerSecond(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "fast", "-5k", "0"} {
		_, err := parseBytesPerSecond(bad)
		require.Error(t, err, bad)
	}
}

func TestStopWallClock(t *testing.T) {
	t.Parallel()

	require.NoError(t, stopWallClock(func() error { return nil }))

	err := stopWallClock(func() error { panic("integer divide by zero") })
	require.ErrorContains(t, err, "integer divide by zero")
}
