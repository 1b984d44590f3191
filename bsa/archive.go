package bsa

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"os"
	"strings"

	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/sizing"
)

var (
	// ErrMalformedHeader is returned when the archive header is not a supported BSA header.
	ErrMalformedHeader = errors.New("bsa: malformed header")

	// ErrInconsistent is returned when the record and name counts disagree.
	ErrInconsistent = errors.New("bsa: inconsistent file tables")

	// ErrFileNotFound is returned when a requested file is not in the archive.
	ErrFileNotFound = errors.New("bsa: file not found")

	// ErrExtractionFailed is returned when a payload cannot be read or written.
	ErrExtractionFailed = errors.New("bsa: extraction failed")
)

// File is a resolved archive member.
type File struct {
	// Path is the slash-separated path inside the archive.
	Path string

	// Hash is the name hash stored in the file record.
	Hash uint64

	// Size is the stored payload size, including any embedded name and
	// decompressed-size prefix.
	Size uint32

	// Offset is the absolute position of the payload in the archive.
	Offset uint32

	// Compressed is the effective compression state after applying the
	// record's toggle bit to the archive default.
	Compressed bool
}

// Archive is a parsed archive index bound to its reader.
//
// Reads seek the underlying reader and restore its position afterwards.
// An Archive may be used repeatedly but not concurrently.
type Archive struct {
	Header  Header
	Folders []FolderRecord

	r      io.ReadSeeker
	closer io.Closer
	files  []File
	index  map[string]int
	cfg    *config
}

type config struct {
	logger      *slog.Logger
	maxFileSize uint64
}

// Option configures an Archive.
type Option func(*config)

// WithLogger sets the logger for archive operations.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithMaxFileSize limits the decompressed size of a single member.
// Set limit to 0 to use the default (256MB).
func WithMaxFileSize(limit uint64) Option {
	return func(c *config) {
		c.maxFileSize = limit
	}
}

func (a *Archive) log() *slog.Logger {
	if a.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.cfg.logger
}

// Open opens and parses the archive at path. The archive owns the file
// and releases it on Close.
func Open(path string, opts ...Option) (*Archive, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided archive path
	if err != nil {
		return nil, err
	}
	a, err := Parse(f, opts...)
	if err != nil {
		_ = f.Close() //nolint:errcheck // best-effort cleanup
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.closer = f
	return a, nil
}

// Close releases the file opened by Open. It is a no-op for archives
// created with Parse.
func (a *Archive) Close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

// Parse reads the archive index from r. The header is read from the
// current position; offsets inside the archive are absolute.
func Parse(r io.ReadSeeker, opts ...Option) (*Archive, error) {
	cfg := &config{maxFileSize: codec.DefaultMaxSize}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxFileSize == 0 {
		cfg.maxFileSize = codec.DefaultMaxSize
	}
	a := &Archive{r: r, cfg: cfg}

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	h, err := parseHeader(buf)
	if err != nil {
		return nil, err
	}
	a.Header = h

	if _, err := r.Seek(int64(h.Offset), io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to folder records: %w", err)
	}
	br := bufio.NewReader(r)

	if a.Folders, err = readFolders(br, h); err != nil {
		return nil, err
	}
	for i := range a.Folders {
		if err := readFileBlock(br, h, &a.Folders[i]); err != nil {
			return nil, fmt.Errorf("folder %d: %w", i, err)
		}
	}
	names, err := readNames(br, h)
	if err != nil {
		return nil, err
	}
	if err := a.matchNames(names); err != nil {
		return nil, err
	}

	a.log().Debug("parsed archive",
		"version", h.Version,
		"folders", len(a.Folders),
		"files", len(a.files),
		"compressed", h.Compressed())
	return a, nil
}

func readSection(r io.Reader, size uint64) (*cursor.Cursor, error) {
	if err := sizing.CheckLimit(size, maxIndexSectionSize); err != nil {
		return nil, fmt.Errorf("%w: index section of %d bytes", ErrMalformedHeader, size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("%w: %w", cursor.ErrTruncated, err)
	}
	return cursor.LittleEndian(buf), nil
}

func readFolders(r io.Reader, h Header) ([]FolderRecord, error) {
	c, err := readSection(r, uint64(h.FolderCount)*uint64(h.folderRecordSize()))
	if err != nil {
		return nil, fmt.Errorf("folder records: %w", err)
	}
	folders := make([]FolderRecord, h.FolderCount)
	for i := range folders {
		f := &folders[i]
		// Section size was checked, so these reads cannot fail.
		f.Hash, _ = c.Hash()
		f.Count, _ = c.Uint32()
		if h.Version == Version105 {
			_ = c.Advance(4)
			f.Offset, _ = c.Uint64()
		} else {
			off, _ := c.Uint32()
			f.Offset = uint64(off)
		}
	}
	return folders, nil
}

func readFileBlock(r *bufio.Reader, h Header, folder *FolderRecord) error {
	if h.IncludesDirNames() {
		n, err := r.ReadByte()
		if err != nil {
			return fmt.Errorf("folder name length: %w", cursor.ErrTruncated)
		}
		c, err := readSection(r, uint64(n))
		if err != nil {
			return fmt.Errorf("folder name: %w", err)
		}
		name, _ := c.Fixed(int(n))
		folder.Name = string(name)
	}

	c, err := readSection(r, uint64(folder.Count)*fileRecordSize)
	if err != nil {
		return fmt.Errorf("file records: %w", err)
	}
	folder.Files = make([]FileRecord, folder.Count)
	for i := range folder.Files {
		rec := &folder.Files[i]
		rec.Hash, _ = c.Hash()
		rec.RawSize, _ = c.Uint32()
		rec.Offset, _ = c.Uint32()
	}
	return nil
}

func readNames(r io.Reader, h Header) ([]string, error) {
	c, err := readSection(r, uint64(h.TotalFileNameLength))
	if err != nil {
		return nil, fmt.Errorf("file names: %w", err)
	}
	names := make([]string, 0, h.FileCount)
	for !c.EOF() {
		name, err := c.ZString()
		if err != nil {
			return nil, fmt.Errorf("file names: %w", err)
		}
		names = append(names, string(name))
	}
	return names, nil
}

// matchNames pairs file records with names positionally.
func (a *Archive) matchNames(names []string) error {
	var records int
	for _, f := range a.Folders {
		records += len(f.Files)
	}
	if records != int(a.Header.FileCount) || len(names) != int(a.Header.FileCount) {
		return fmt.Errorf("%w: header declares %d files, found %d records and %d names",
			ErrInconsistent, a.Header.FileCount, records, len(names))
	}

	a.files = make([]File, 0, records)
	a.index = make(map[string]int, records)
	i := 0
	for _, folder := range a.Folders {
		for _, rec := range folder.Files {
			p := joinPath(folder.Name, names[i])
			i++
			key := normalize(p)
			if _, dup := a.index[key]; dup {
				a.log().Warn("duplicate archive path, lookups use the first", "path", p)
			} else {
				a.index[key] = len(a.files)
			}
			a.files = append(a.files, File{
				Path:       p,
				Hash:       rec.Hash,
				Size:       rec.Size(),
				Offset:     rec.Offset,
				Compressed: resolveCompression(a.Header.Compressed(), rec),
			})
		}
	}
	return nil
}

func joinPath(folder, name string) string {
	folder = strings.Trim(strings.ReplaceAll(folder, `\`, "/"), "/")
	if folder == "" || folder == "." {
		return name
	}
	return folder + "/" + name
}

// normalize converts a member name to its lookup key.
func normalize(name string) string {
	return strings.ToLower(strings.TrimLeft(strings.ReplaceAll(name, `\`, "/"), "/"))
}

// Len returns the number of files in the archive.
func (a *Archive) Len() int {
	return len(a.files)
}

// Files returns an iterator over all files in archive order.
func (a *Archive) Files() iter.Seq[File] {
	return func(yield func(File) bool) {
		for _, f := range a.files {
			if !yield(f) {
				return
			}
		}
	}
}

// Lookup returns the file with the given path. Matching ignores case and
// accepts either slash direction.
func (a *Archive) Lookup(name string) (File, bool) {
	i, ok := a.index[normalize(name)]
	if !ok {
		return File{}, false
	}
	return a.files[i], true
}

// Glob returns the paths of files matching pattern, in archive order.
//
// Patterns use shell wildcards: '*' matches any run of characters
// including '/', '?' matches one character, and [...] matches a class.
// Matching ignores case and treats '\' as '/'.
func (a *Archive) Glob(pattern string) []string {
	re := compileGlob(pattern)
	var out []string
	for _, f := range a.files {
		if re.MatchString(normalize(f.Path)) {
			out = append(out, f.Path)
		}
	}
	return out
}
