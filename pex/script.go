package pex

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"golang.org/x/text/encoding"

	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/sizing"
	"github.com/meigma/modstrings/internal/textutil"
)

// Magic is the first word of every compiled script.
const Magic uint32 = 0xFA57C0DE

// DefaultMaxFileSize bounds scripts read through Parse and Open (64MB).
const DefaultMaxFileSize = 64 << 20

var (
	// ErrMalformedHeader is returned when the input is not a compiled script.
	ErrMalformedHeader = errors.New("pex: malformed header")

	// ErrInvalidValue is returned for a variable value with an unknown type tag.
	ErrInvalidValue = errors.New("pex: invalid value type")

	// ErrInvalidOpcode is returned for an instruction with an unknown opcode.
	ErrInvalidOpcode = errors.New("pex: invalid opcode")
)

// Header is the fixed script header.
type Header struct {
	Major       uint8
	Minor       uint8
	GameID      uint16
	CompileTime uint64
	Source      string
	User        string
	Machine     string
}

// Compiled returns the compilation time.
func (h Header) Compiled() time.Time {
	return time.Unix(int64(h.CompileTime), 0).UTC() //nolint:gosec // timestamps fit in int64
}

// Script is a decoded compiled script.
type Script struct {
	Header  Header
	Strings *StringTable

	// Debug is nil when the script was compiled without debug info.
	Debug *DebugInfo

	UserFlags []UserFlag
	Objects   []*Object
}

// Literals returns the string table entries that no structural field
// references, in table order.
func (s *Script) Literals() []string {
	return s.Strings.Unused()
}

type config struct {
	logger         *slog.Logger
	legacyEncoding encoding.Encoding
}

// Option configures a decode.
type Option func(*config)

// WithLogger sets the logger for contained object failures.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithLegacyEncoding sets a fallback decoder for table strings that are
// not valid UTF-8. By default such strings keep their raw bytes.
func WithLegacyEncoding(enc encoding.Encoding) Option {
	return func(c *config) {
		c.legacyEncoding = enc
	}
}

type decoder struct {
	cfg   *config
	table *StringTable
}

func (d *decoder) log() *slog.Logger {
	if d.cfg.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.cfg.logger
}

// Decode decodes a compiled script held in memory.
func Decode(data []byte, opts ...Option) (*Script, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	d := &decoder{cfg: cfg}
	return d.decode(cursor.BigEndian(data))
}

// Parse reads a whole compiled script from r and decodes it.
func Parse(r io.Reader, opts ...Option) (*Script, error) {
	data, err := sizing.ReadAllWithLimit(r, DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return Decode(data, opts...)
}

// Open reads and decodes the compiled script at path.
func Open(path string, opts ...Option) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

func (d *decoder) decode(c *cursor.Cursor) (*Script, error) {
	h, err := d.parseHeader(c)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	s := &Script{Header: h}

	if s.Strings, err = d.parseStringTable(c); err != nil {
		return nil, fmt.Errorf("string table: %w", err)
	}
	d.table = s.Strings

	if s.Debug, err = d.parseDebugInfo(c); err != nil {
		return nil, fmt.Errorf("debug info: %w", err)
	}
	if s.UserFlags, err = d.parseUserFlags(c); err != nil {
		return nil, fmt.Errorf("user flags: %w", err)
	}
	if s.Objects, err = d.parseObjects(c); err != nil {
		return nil, fmt.Errorf("objects: %w", err)
	}
	if !c.EOF() {
		d.log().Debug("ignoring data after objects", "offset", c.Pos(), "bytes", c.Len())
	}

	d.log().Debug("decoded script",
		"source", h.Source,
		"strings", s.Strings.Len(),
		"objects", len(s.Objects),
		"debug", s.Debug != nil)
	return s, nil
}

func (d *decoder) parseHeader(c *cursor.Cursor) (Header, error) {
	magic, err := c.Uint32()
	if err != nil {
		return Header{}, err
	}
	if magic != Magic {
		return Header{}, fmt.Errorf("bad magic %08X", magic)
	}

	var h Header
	if h.Major, err = c.Uint8(); err != nil {
		return Header{}, err
	}
	if h.Minor, err = c.Uint8(); err != nil {
		return Header{}, err
	}
	if h.GameID, err = c.Uint16(); err != nil {
		return Header{}, err
	}
	if h.CompileTime, err = c.Uint64(); err != nil {
		return Header{}, err
	}
	for _, dst := range []*string{&h.Source, &h.User, &h.Machine} {
		if *dst, err = d.wstring(c); err != nil {
			return Header{}, err
		}
	}
	return h, nil
}

func (d *decoder) parseStringTable(c *cursor.Cursor) (*StringTable, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	entries := make([]string, n)
	for i := range entries {
		if entries[i], err = d.wstring(c); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return newStringTable(entries), nil
}

// wstring reads a length-prefixed string. Text that is not UTF-8 goes
// through the legacy decoder when one is set, otherwise keeps its bytes.
func (d *decoder) wstring(c *cursor.Cursor) (string, error) {
	raw, err := c.WString()
	if err != nil {
		return "", err
	}
	if s, ok := textutil.Decode(raw, d.cfg.legacyEncoding); ok {
		return s, nil
	}
	return string(raw), nil
}

// name reads a table index and resolves it, marking the entry used.
func (d *decoder) name(c *cursor.Cursor) (string, error) {
	i, err := c.Uint16()
	if err != nil {
		return "", err
	}
	return d.table.Lookup(i), nil
}
