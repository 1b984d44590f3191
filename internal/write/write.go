// Package write places extracted files under a destination directory.
//
// Files are written to a temporary file next to the final path and renamed
// into place, so a partially written file is never visible. All access goes
// through an os.Root, which keeps archive-controlled names from escaping
// the destination.
package write

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const (
	dirPerm    = 0o750
	filePerm   = 0o600
	tempPrefix = ".modstrings-"
)

// CleanName converts an archive member name to a slash-separated relative
// path. It returns false when the name is empty or would leave the root.
func CleanName(name string) (string, bool) {
	name = strings.ReplaceAll(name, `\`, "/")
	name = strings.TrimLeft(name, "/")
	name = path.Clean(name)
	if !fs.ValidPath(name) || name == "." {
		return "", false
	}
	return name, true
}

// File atomically writes data to name under destDir and returns the full
// path of the written file. destDir is created if needed. The written file
// is checked to exist with exactly len(data) bytes.
func File(destDir, name string, data []byte) (string, error) {
	rel, ok := CleanName(name)
	if !ok {
		return "", &fs.PathError{Op: "write", Path: name, Err: fs.ErrInvalid}
	}
	destRel := filepath.FromSlash(rel)
	destPath := filepath.Join(destDir, destRel)

	if err := os.MkdirAll(destDir, dirPerm); err != nil {
		return "", fmt.Errorf("create destination %s: %w", destDir, err)
	}
	root, err := os.OpenRoot(destDir)
	if err != nil {
		return "", fmt.Errorf("open destination root %s: %w", destDir, err)
	}
	defer root.Close()

	if err := root.MkdirAll(filepath.Dir(destRel), dirPerm); err != nil {
		return "", fmt.Errorf("create directory for %s: %w", destPath, err)
	}

	tempFile, tempRel, err := createTempFile(root, filepath.Dir(destRel))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()     //nolint:errcheck // best-effort cleanup
		_ = root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return "", fmt.Errorf("write %s: %w", destPath, err)
	}
	if err := tempFile.Close(); err != nil {
		_ = root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := root.Rename(tempRel, destRel); err != nil {
		_ = root.Remove(tempRel) //nolint:errcheck // best-effort cleanup
		return "", fmt.Errorf("rename to %s: %w", destPath, err)
	}

	info, err := root.Stat(destRel)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", destPath, err)
	}
	if !info.Mode().IsRegular() || info.Size() != int64(len(data)) {
		return "", fmt.Errorf("verify %s: size %d, want %d", destPath, info.Size(), len(data))
	}
	return destPath, nil
}

func createTempFile(root *os.Root, dir string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, tempPrefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}
