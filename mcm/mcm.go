// Package mcm decodes MCM translation files.
//
// A translation file is UTF-16 text with a byte order mark, one entry per
// line in the form KEY<TAB>TEXT. Blank lines and lines without a tab, a
// key, or text are skipped. Files without a byte order mark are read as
// little-endian UTF-16, and a UTF-8 byte order mark is honored.
package mcm

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/meigma/modstrings/internal/sizing"
)

// DefaultMaxFileSize bounds translation files read through Parse and Open (16MB).
const DefaultMaxFileSize = 16 << 20

// Entry is one translated string.
type Entry struct {
	Key  string
	Text string

	// Line is the 1-based line number of the entry.
	Line int
}

// Translation is a decoded translation file.
type Translation struct {
	Entries []Entry
}

// Lookup returns the text of the first entry with key.
func (t *Translation) Lookup(key string) (string, bool) {
	for _, e := range t.Entries {
		if e.Key == key {
			return e.Text, true
		}
	}
	return "", false
}

type config struct {
	logger *slog.Logger
}

// Option configures a decode.
type Option func(*config)

// WithLogger sets the logger for skipped lines.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// Decode decodes a translation file held in memory.
func Decode(data []byte, opts ...Option) (*Translation, error) {
	return Parse(bytes.NewReader(data), opts...)
}

// Parse reads and decodes a translation file from r.
func Parse(r io.Reader, opts ...Option) (*Translation, error) {
	cfg := newConfig(opts)

	dec := unicode.BOMOverride(unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder())
	text, err := sizing.ReadAllWithLimit(transform.NewReader(r, dec), DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read translation: %w", err)
	}

	t := &Translation{}
	n := 0
	for line := range strings.Lines(string(text)) {
		n++
		if strings.TrimSpace(line) == "" {
			continue
		}
		key, value, ok := strings.Cut(line, "\t")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			cfg.logger.Debug("skipping translation line", "line", n)
			continue
		}
		t.Entries = append(t.Entries, Entry{Key: key, Text: value, Line: n})
	}
	return t, nil
}

// Open reads and decodes the translation file at path.
func Open(name string, opts ...Option) (*Translation, error) {
	f, err := os.Open(name) //nolint:gosec // caller-provided translation path
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only file

	t, err := Parse(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return t, nil
}

// SplitName splits a translation file name of the form MOD_LANGUAGE.txt.
// The language is returned in lower case.
func SplitName(name string) (mod, language string, ok bool) {
	base := path.Base(strings.ReplaceAll(name, `\`, "/"))
	stem, found := strings.CutSuffix(strings.ToLower(base), ".txt")
	if !found {
		return "", "", false
	}
	i := strings.LastIndexByte(stem, '_')
	if i <= 0 || i == len(stem)-1 {
		return "", "", false
	}
	return base[:i], stem[i+1:], true
}
