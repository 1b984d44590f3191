package bsa

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/fs"

	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/sizing"
	"github.com/meigma/modstrings/internal/write"
)

// ReadFile returns the decompressed content of the named member.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	f, ok := a.Lookup(name)
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: ErrFileNotFound}
	}
	data, _, err := a.read(f)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return data, nil
}

// Extract writes the named member below destDir and returns the path of
// the written file. The member keeps its path inside the archive, or the
// embedded name when the archive stores one.
func (a *Archive) Extract(name, destDir string) (string, error) {
	f, ok := a.Lookup(name)
	if !ok {
		return "", &fs.PathError{Op: "extract", Path: name, Err: ErrFileNotFound}
	}
	data, embedded, err := a.read(f)
	if err != nil {
		return "", &fs.PathError{Op: "extract", Path: name, Err: err}
	}

	target := f.Path
	if embedded != "" {
		target = embedded
	}
	out, err := write.File(destDir, target, data)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	a.log().Debug("extracted file", "path", f.Path, "dest", out, "size", len(data))
	return out, nil
}

// read returns the payload of f and its embedded name, if any. The reader
// position is restored before returning.
func (a *Archive) read(f File) (data []byte, embedded string, err error) {
	pos, err := a.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	defer func() {
		if _, seekErr := a.r.Seek(pos, io.SeekStart); seekErr != nil && err == nil {
			err = fmt.Errorf("%w: restore position: %w", ErrExtractionFailed, seekErr)
		}
	}()

	if _, err := a.r.Seek(int64(f.Offset), io.SeekStart); err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	remaining := uint64(f.Size)

	if a.Header.EmbedsNames() {
		var n [1]byte
		if _, err := io.ReadFull(a.r, n[:]); err != nil {
			return nil, "", fmt.Errorf("%w: embedded name: %w", ErrExtractionFailed, err)
		}
		if uint64(n[0])+1 > remaining {
			return nil, "", fmt.Errorf("%w: embedded name longer than payload", ErrExtractionFailed)
		}
		name := make([]byte, n[0])
		if _, err := io.ReadFull(a.r, name); err != nil {
			return nil, "", fmt.Errorf("%w: embedded name: %w", ErrExtractionFailed, err)
		}
		embedded = string(name)
		remaining -= uint64(n[0]) + 1
	}

	if !f.Compressed {
		data, err = a.readPayload(remaining)
		return data, embedded, err
	}

	if remaining < 4 {
		return nil, "", fmt.Errorf("%w: compressed payload of %d bytes", ErrExtractionFailed, remaining)
	}
	var sizeBuf [4]byte
	if _, err := io.ReadFull(a.r, sizeBuf[:]); err != nil {
		return nil, "", fmt.Errorf("%w: original size: %w", ErrExtractionFailed, err)
	}
	original := binary.LittleEndian.Uint32(sizeBuf[:])
	packed, err := a.readPayload(remaining - 4)
	if err != nil {
		return nil, "", err
	}
	data, err = codec.Decompress(a.method(), packed, original, a.cfg.maxFileSize)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return data, embedded, nil
}

func (a *Archive) readPayload(n uint64) ([]byte, error) {
	if err := sizing.CheckLimit(n, a.cfg.maxFileSize); err != nil {
		return nil, fmt.Errorf("%w: payload of %d bytes: %w", ErrExtractionFailed, n, err)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(a.r, buf); err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrExtractionFailed, err)
	}
	return buf, nil
}

// method returns the compression scheme of the archive version.
func (a *Archive) method() codec.Method {
	if a.Header.Version == Version105 {
		return codec.MethodLZ4Frame
	}
	return codec.MethodZlib
}
