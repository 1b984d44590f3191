package modstrings

import (
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/text/encoding"

	"github.com/meigma/modstrings/bsa"
	"github.com/meigma/modstrings/cache"
	"github.com/meigma/modstrings/cache/disk"
	"github.com/meigma/modstrings/pex"
	"github.com/meigma/modstrings/plugin"
)

// Option configures a Scanner.
type Option func(*Scanner) error

// Defaults for a new Scanner.
const (
	DefaultLanguage            = "english"
	DefaultMemoryBudget int64  = 512 << 20 // 512 MB
	DefaultCacheSize    int64  = 256 << 20 // 256 MB
	DefaultMaxFileSize  uint64 = 256 << 20 // 256 MB
)

// WithLogger sets the logger for the scanner and every decoder it runs.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) error {
		s.logger = logger
		return nil
	}
}

// WithWorkers sets how many files ScanAll processes at once.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) Option {
	return func(s *Scanner) error {
		s.workers = n
		return nil
	}
}

// WithMemoryBudget bounds the total size of files being decoded at once
// by ScanAll. Values <= 0 disable the bound.
func WithMemoryBudget(n int64) Option {
	return func(s *Scanner) error {
		s.budget = n
		return nil
	}
}

// WithMaxFileSize limits the size of a single file or archive member.
func WithMaxFileSize(limit uint64) Option {
	return func(s *Scanner) error {
		if limit == 0 {
			return errors.New("max file size must be positive")
		}
		s.maxFileSize = limit
		return nil
	}
}

// WithCache stores extracted strings in c, keyed by the digest of the
// scanned content. Scanners sharing a cache should use the same decoder
// options.
func WithCache(c cache.Cache) Option {
	return func(s *Scanner) error {
		s.cache = c
		return nil
	}
}

// WithCacheDir stores extracted strings in a disk cache under dir,
// bounded to DefaultCacheSize.
func WithCacheDir(dir string) Option {
	return func(s *Scanner) error {
		c, err := disk.New(dir, disk.WithMaxBytes(DefaultCacheSize))
		if err != nil {
			return err
		}
		s.cache = c
		return nil
	}
}

// WithLanguage sets the language whose translation files are scanned,
// both in a data directory and inside archives. The default is "english".
func WithLanguage(lang string) Option {
	return func(s *Scanner) error {
		lang = strings.ToLower(strings.TrimSpace(lang))
		if lang == "" {
			return errors.New("language must not be empty")
		}
		s.language = lang
		return nil
	}
}

// WithArchivePatterns replaces the glob patterns that select archive
// members for scanning. The default is "*.pex" plus the translation files
// of the configured language.
func WithArchivePatterns(patterns ...string) Option {
	return func(s *Scanner) error {
		s.patterns = append([]string(nil), patterns...)
		return nil
	}
}

// WithLegacyEncoding sets the code page tried for plugin and script text
// that is not valid UTF-8.
func WithLegacyEncoding(enc encoding.Encoding) Option {
	return func(s *Scanner) error {
		s.pluginOpts = append(s.pluginOpts, plugin.WithLegacyEncoding(enc))
		s.scriptOpts = append(s.scriptOpts, pex.WithLegacyEncoding(enc))
		return nil
	}
}

// WithPluginOptions passes options to the plugin decoder.
func WithPluginOptions(opts ...plugin.Option) Option {
	return func(s *Scanner) error {
		s.pluginOpts = append(s.pluginOpts, opts...)
		return nil
	}
}

// WithScriptOptions passes options to the compiled script decoder.
func WithScriptOptions(opts ...pex.Option) Option {
	return func(s *Scanner) error {
		s.scriptOpts = append(s.scriptOpts, opts...)
		return nil
	}
}

// WithArchiveOptions passes options to the archive decoder.
func WithArchiveOptions(opts ...bsa.Option) Option {
	return func(s *Scanner) error {
		s.archiveOpts = append(s.archiveOpts, opts...)
		return nil
	}
}
