package modstrings

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// basePlugins are the plugins shipped with the base game.
var basePlugins = map[string]struct{}{
	"skyrim.esm":      {},
	"update.esm":      {},
	"dawnguard.esm":   {},
	"hearthfires.esm": {},
	"dragonborn.esm":  {},
}

// IsBasePlugin reports whether name is one of the base game's plugins.
func IsBasePlugin(name string) bool {
	_, ok := basePlugins[strings.ToLower(filepath.Base(name))]
	return ok
}

// ReadLoadOrder reads plugin names from a loadorder.txt listing, one per
// line. Blank lines and lines starting with '#' are skipped.
func ReadLoadOrder(r io.Reader) ([]string, error) {
	var plugins []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		if line = strings.TrimSpace(line); line != "" {
			plugins = append(plugins, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read load order: %w", err)
	}
	return plugins, nil
}

// DataDirPaths lists the files a scan of the data directory dir covers,
// in this order: the plugins, translation files of the scanner's language
// under interface/translations, compiled scripts under scripts, and the
// archive next to each plugin that has one.
//
// plugins are names relative to dir, typically from ReadLoadOrder. When
// plugins is nil every plugin in dir is used, sorted by name.
func (s *Scanner) DataDirPaths(dir string, plugins []string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	if plugins == nil {
		for _, e := range entries {
			if e.Type().IsRegular() && DetectFormat(e.Name(), nil) == FormatPlugin {
				plugins = append(plugins, e.Name())
			}
		}
		slices.Sort(plugins)
	}

	paths := make([]string, 0, len(plugins))
	for _, p := range plugins {
		paths = append(paths, filepath.Join(dir, p))
	}

	suffix := "_" + s.language + ".txt"
	translations, err := listDir(dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), suffix)
	}, "interface", "translations")
	if err != nil {
		return nil, err
	}
	paths = append(paths, translations...)

	scripts, err := listDir(dir, func(name string) bool {
		return DetectFormat(name, nil) == FormatScript
	}, "scripts")
	if err != nil {
		return nil, err
	}
	paths = append(paths, scripts...)

	for _, p := range plugins {
		archive := filepath.Join(dir, strings.TrimSuffix(p, filepath.Ext(p))+".bsa")
		if info, err := os.Stat(archive); err == nil && info.Mode().IsRegular() {
			paths = append(paths, archive)
		}
	}
	return paths, nil
}

// ScanDataDir scans the files listed by DataDirPaths.
func (s *Scanner) ScanDataDir(ctx context.Context, dir string, plugins []string) ([]Result, error) {
	paths, err := s.DataDirPaths(dir, plugins)
	if err != nil {
		return nil, err
	}
	s.log().Info("scanning data directory", "dir", dir, "files", len(paths))
	return s.ScanAll(ctx, paths)
}

// listDir returns the sorted regular files accepted by match in the
// directory reached from root through elems. Directory names match
// case-insensitively. A missing directory yields no files.
func listDir(root string, match func(string) bool, elems ...string) ([]string, error) {
	dir := root
	for _, elem := range elems {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		i := slices.IndexFunc(entries, func(e os.DirEntry) bool {
			return e.IsDir() && strings.EqualFold(e.Name(), elem)
		})
		if i < 0 {
			return nil, nil
		}
		dir = filepath.Join(dir, entries[i].Name())
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && match(e.Name()) {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
