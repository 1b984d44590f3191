//go:generate flatc --go --go-namespace fb -o internal schema/strings.fbs

// Package modstrings extracts translatable strings from game mod files.
//
// A [Scanner] decodes plugins, compiled scripts, and MCM translation files,
// and looks inside packed archives for the scripts and translation files
// they carry. Every file yields an ordered list of [String] records of the
// form (context id, field kind, text).
//
// The decoders are usable on their own through the bsa, plugin, pex, and
// mcm subpackages; the extract subpackage projects their trees into strings.
package modstrings

import (
	"github.com/meigma/modstrings/extract"
	"github.com/meigma/modstrings/internal/index"
)

// Re-export types for the public API.
type (
	// String is one extracted (context id, field kind, text) record.
	String = extract.String

	// Format identifies the kind of a scanned file.
	Format = index.Format
)

// Re-export format constants.
const (
	FormatUnknown     = index.FormatUnknown
	FormatPlugin      = index.FormatPlugin
	FormatScript      = index.FormatScript
	FormatTranslation = index.FormatTranslation
	FormatArchive     = index.FormatArchive
)
