package disk

import (
	"cmp"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

type cacheEntry struct {
	path    string
	size    int64
	modTime time.Time
}

// walkEntries calls fn for every committed entry under root. Temporary
// files left by interrupted writes are not entries.
func walkEntries(root string, fn func(cacheEntry)) error {
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), "cache-") {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fn(cacheEntry{path: path, size: info.Size(), modTime: info.ModTime()})
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

func dirSize(root string) (int64, error) {
	var total int64
	err := walkEntries(root, func(e cacheEntry) {
		total += e.size
	})
	return total, err
}

// pruneDir removes the oldest entries under root until at most
// targetBytes remain.
func pruneDir(root string, targetBytes int64) (freed, remaining int64, err error) {
	var entries []cacheEntry
	if err := walkEntries(root, func(e cacheEntry) {
		remaining += e.size
		entries = append(entries, e)
	}); err != nil {
		return 0, 0, err
	}
	if remaining <= targetBytes {
		return 0, remaining, nil
	}

	slices.SortFunc(entries, func(a, b cacheEntry) int {
		if c := a.modTime.Compare(b.modTime); c != 0 {
			return c
		}
		return cmp.Compare(a.path, b.path)
	})

	for _, e := range entries {
		if remaining <= targetBytes {
			break
		}
		if err := os.Remove(e.path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return freed, remaining, err
		}
		remaining -= e.size
		freed += e.size
	}
	return freed, remaining, nil
}
