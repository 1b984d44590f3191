package modstrings

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"golang.org/x/sync/singleflight"

	"github.com/meigma/modstrings/bsa"
	"github.com/meigma/modstrings/cache"
	"github.com/meigma/modstrings/extract"
	"github.com/meigma/modstrings/internal/batch"
	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/sizing"
	"github.com/meigma/modstrings/mcm"
	"github.com/meigma/modstrings/pex"
	"github.com/meigma/modstrings/plugin"
)

// archiveWeight is the budget charged for scanning one archive. Members
// are read one at a time, so the archive size itself does not count.
const archiveWeight = 32 << 20

// Result is the outcome of scanning one file or archive member.
type Result struct {
	// Path is the file path, or "archive:member" for archive members.
	Path    string
	Format  Format
	Strings []String

	// Err is set when the file could not be read or decoded.
	Err error
}

// Scanner decodes mod files and extracts their strings.
//
// A Scanner is safe for concurrent use. Identical content scanned
// concurrently is decoded once.
type Scanner struct {
	logger      *slog.Logger
	workers     int
	budget      int64
	maxFileSize uint64
	language    string
	patterns    []string
	cache       cache.Cache

	pluginOpts  []plugin.Option
	scriptOpts  []pex.Option
	archiveOpts []bsa.Option

	zstd   *codec.ZstdPool
	flight singleflight.Group
}

// New creates a Scanner.
func New(opts ...Option) (*Scanner, error) {
	s := &Scanner{
		budget:      DefaultMemoryBudget,
		maxFileSize: DefaultMaxFileSize,
		language:    DefaultLanguage,
		zstd:        codec.NewZstdPool(0),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// log returns the logger, falling back to a discard logger if nil.
func (s *Scanner) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Language returns the language whose translation files are scanned.
func (s *Scanner) Language() string {
	return s.language
}

// ArchivePatterns returns the glob patterns that select archive members.
func (s *Scanner) ArchivePatterns() []string {
	if s.patterns != nil {
		return slices.Clone(s.patterns)
	}
	return []string{"*.pex", "*_" + s.language + ".txt"}
}

// Scan extracts the strings of one plugin, compiled script, or translation
// file held in memory. name selects the decoder by extension; content is
// sniffed when the extension is unknown. Archives are rejected: use
// ScanArchive.
func (s *Scanner) Scan(ctx context.Context, name string, data []byte) ([]String, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := DetectFormat(name, data)
	switch format {
	case FormatArchive:
		return nil, fmt.Errorf("%s: %w: archives are scanned with ScanArchive", name, ErrUnsupportedFormat)
	case FormatUnknown:
		return nil, fmt.Errorf("%s: %w", name, ErrUnsupportedFormat)
	}
	if err := sizing.CheckLimit(uint64(len(data)), s.maxFileSize); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	key := contentKey(data)
	v, err, shared := s.flight.Do(format.String()+"@"+key.String(), func() (any, error) {
		if strs, ok := s.cached(key, format); ok {
			s.log().Debug("cache hit", "name", name, "digest", key)
			return strs, nil
		}
		strs, err := s.decode(format, data)
		if err != nil {
			return nil, err
		}
		s.store(key, format, strs)
		return strs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	strs, _ := v.([]String)
	if shared {
		strs = slices.Clone(strs)
	}
	return strs, nil
}

func (s *Scanner) decode(format Format, data []byte) ([]String, error) {
	switch format {
	case FormatPlugin:
		p, err := plugin.Decode(data, s.pluginOptions()...)
		if err != nil {
			return nil, err
		}
		return extract.FromPlugin(p), nil
	case FormatScript:
		sc, err := pex.Decode(data, s.scriptOptions()...)
		if err != nil {
			return nil, err
		}
		return extract.FromScript(sc), nil
	case FormatTranslation:
		t, err := mcm.Decode(data, mcm.WithLogger(s.log()))
		if err != nil {
			return nil, err
		}
		return extract.FromTranslation(t), nil
	default:
		return nil, ErrUnsupportedFormat
	}
}

func (s *Scanner) pluginOptions() []plugin.Option {
	return append([]plugin.Option{plugin.WithLogger(s.log()), plugin.WithMaxRecordSize(s.maxFileSize)}, s.pluginOpts...)
}

func (s *Scanner) scriptOptions() []pex.Option {
	return append([]pex.Option{pex.WithLogger(s.log())}, s.scriptOpts...)
}

func (s *Scanner) archiveOptions() []bsa.Option {
	return append([]bsa.Option{bsa.WithLogger(s.log()), bsa.WithMaxFileSize(s.maxFileSize)}, s.archiveOpts...)
}

// ScanFile scans the file at path. Plugins, scripts, and translation files
// produce one Result; archives produce one Result per matching member.
// The returned error reports failures of the file itself; failures of
// individual archive members are recorded in their Result.
func (s *Scanner) ScanFile(ctx context.Context, path string) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if DetectFormat(path, nil) == FormatArchive {
		a, err := bsa.Open(path, s.archiveOptions()...)
		if err != nil {
			return nil, err
		}
		defer a.Close() //nolint:errcheck // read-only handle
		return s.scanArchive(ctx, path, a)
	}

	data, err := s.readFile(path)
	if err != nil {
		return nil, err
	}
	if DetectFormat(path, data) == FormatArchive {
		return s.ScanArchive(ctx, path, bytes.NewReader(data))
	}
	strs, err := s.Scan(ctx, path, data)
	if err != nil {
		return nil, err
	}
	return []Result{{Path: path, Format: DetectFormat(path, data), Strings: strs}}, nil
}

func (s *Scanner) readFile(path string) ([]byte, error) {
	f, err := os.Open(path) //nolint:gosec // caller-provided scan path
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle
	data, err := sizing.ReadAllWithLimit(f, s.maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// ScanArchive scans the members of the archive read from r that match the
// archive patterns. name labels the results as "name:member". Members are
// read one at a time in archive order.
func (s *Scanner) ScanArchive(ctx context.Context, name string, r io.ReadSeeker) ([]Result, error) {
	a, err := bsa.Parse(r, s.archiveOptions()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s.scanArchive(ctx, name, a)
}

func (s *Scanner) scanArchive(ctx context.Context, name string, a *bsa.Archive) ([]Result, error) {
	matched := make(map[string]struct{})
	for _, pattern := range s.ArchivePatterns() {
		for _, member := range a.Glob(pattern) {
			matched[member] = struct{}{}
		}
	}
	s.log().Debug("scanning archive", "path", name, "files", a.Len(), "matched", len(matched))

	var results []Result
	for f := range a.Files() {
		if _, ok := matched[f.Path]; !ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := Result{Path: name + ":" + f.Path}
		data, err := a.ReadFile(f.Path)
		if err == nil {
			res.Format = DetectFormat(f.Path, data)
			res.Strings, err = s.Scan(ctx, f.Path, data)
		}
		if err != nil {
			s.log().Warn("archive member failed", "archive", name, "member", f.Path, "error", err)
			res.Err = err
		}
		results = append(results, res)
	}
	return results, nil
}

// ScanAll scans paths on a bounded worker pool and returns the results in
// path order, archive members following their archive. A failing file is
// reported in its Result and does not stop the others. Cancellation is
// checked between files; the returned error is non-nil only when ctx ends
// the scan early.
func (s *Scanner) ScanAll(ctx context.Context, paths []string) ([]Result, error) {
	proc := batch.New(
		batch.WithWorkers(s.workers),
		batch.WithBudget(s.budget),
		batch.WithLogger(s.log()),
	)
	weight := func(path string) int64 {
		if DetectFormat(path, nil) == FormatArchive {
			return archiveWeight
		}
		info, err := os.Stat(path)
		if err != nil {
			return 1
		}
		return info.Size()
	}

	batches, err := batch.Map(ctx, proc, paths, weight, s.ScanFile)
	results := make([]Result, 0, len(paths))
	for i, b := range batches {
		if b.Err != nil {
			if err == nil {
				s.log().Warn("scan failed", "path", paths[i], "error", b.Err)
			}
			results = append(results, Result{Path: paths[i], Format: DetectFormat(paths[i], nil), Err: b.Err})
			continue
		}
		results = append(results, b.Value...)
	}
	return results, err
}
