package plugin

import (
	"log/slog"

	"golang.org/x/text/encoding"
)

// DefaultMaxRecordSize bounds a single record body, compressed or not (64MB).
const DefaultMaxRecordSize = 64 << 20

// defaultRecordTypes lists record types whose subrecords are decoded.
// These are the types that carry text visible in-game.
var defaultRecordTypes = []string{
	"ACTI", "ALCH", "AMMO", "ARMO", "BOOK", "CELL", "CLAS", "CONT",
	"DIAL", "DOOR", "ENCH", "EXPL", "FLOR", "FURN", "HAZD", "INFO",
	"INGR", "KEYM", "LCTN", "LSCR", "MESG", "MGEF", "MISC", "NOTE",
	"NPC_", "PERK", "PROJ", "QUST", "RACE", "SCRL", "SHOU", "SLGM",
	"SPEL", "TACT", "TES4", "TREE", "WEAP", "WOOP", "WRLD",
}

// defaultGroupTypes lists top-level group labels whose children are decoded.
// FACT is left out: faction names carry FULL subrecords that are never shown.
var defaultGroupTypes = []string{
	"ACTI", "ALCH", "AMMO", "ARMO", "BOOK", "CELL", "CLAS", "CONT",
	"DIAL", "DOOR", "ENCH", "EXPL", "FLOR", "FURN", "HAZD", "INGR",
	"KEYM", "LCTN", "LSCR", "MESG", "MGEF", "MISC", "NOTE", "NPC_",
	"PERK", "PROJ", "QUST", "RACE", "SCRL", "SHOU", "SLGM", "SPEL",
	"TACT", "TREE", "WEAP", "WOOP", "WRLD",
}

// DefaultRecordTypes returns a copy of the default record allow-list.
func DefaultRecordTypes() []string {
	return append([]string(nil), defaultRecordTypes...)
}

// DefaultGroupTypes returns a copy of the default group allow-list.
func DefaultGroupTypes() []string {
	return append([]string(nil), defaultGroupTypes...)
}

type config struct {
	recordTypes    map[string]struct{}
	groupTypes     map[string]struct{}
	dialogue       bool
	maxRecordSize  uint64
	legacyEncoding encoding.Encoding
	logger         *slog.Logger
}

func newConfig(opts []Option) *config {
	cfg := &config{
		recordTypes:   toSet(defaultRecordTypes),
		groupTypes:    toSet(defaultGroupTypes),
		dialogue:      true,
		maxRecordSize: DefaultMaxRecordSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// Option configures a decode.
type Option func(*config)

// WithLogger sets the logger for skipped and corrupt structures.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

// WithRecordAllowList replaces the record allow-list.
// Records of other types keep their body as opaque bytes.
func WithRecordAllowList(types ...string) Option {
	return func(c *config) {
		c.recordTypes = toSet(types)
	}
}

// WithGroupAllowList replaces the allow-list of top-level group labels.
// Groups with other labels keep their body as opaque bytes.
func WithGroupAllowList(types ...string) Option {
	return func(c *config) {
		c.groupTypes = toSet(types)
	}
}

// WithDialogue enables or disables decoding of dialogue topic children (default: true).
func WithDialogue(enabled bool) Option {
	return func(c *config) {
		c.dialogue = enabled
	}
}

// WithMaxRecordSize limits the size of a single record body, before and
// after decompression. Set limit to 0 to use DefaultMaxRecordSize.
func WithMaxRecordSize(limit uint64) Option {
	return func(c *config) {
		if limit == 0 {
			limit = DefaultMaxRecordSize
		}
		c.maxRecordSize = limit
	}
}

// WithLegacyEncoding sets a fallback decoder for text subrecords that are
// not valid UTF-8, such as charmap.Windows1252. By default such text is
// kept as raw bytes without a string value.
func WithLegacyEncoding(enc encoding.Encoding) Option {
	return func(c *config) {
		c.legacyEncoding = enc
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		set[item] = struct{}{}
	}
	return set
}
