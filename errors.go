package modstrings

import (
	"errors"

	"github.com/meigma/modstrings/bsa"
	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/sizing"
	"github.com/meigma/modstrings/pex"
	"github.com/meigma/modstrings/plugin"
)

// Errors re-exported from the decoders.
var (
	// ErrTruncated is returned when input ends inside a structure.
	ErrTruncated = cursor.ErrTruncated

	// ErrInvalidTag is returned when a four-character tag is not valid text.
	ErrInvalidTag = cursor.ErrInvalidTag

	// ErrDecompression is returned when a compressed payload cannot be inflated.
	ErrDecompression = codec.ErrDecompression

	// ErrSizeOverflow is returned when a size value overflows.
	ErrSizeOverflow = sizing.ErrSizeOverflow

	// ErrMalformedArchive is returned when an archive header is invalid.
	ErrMalformedArchive = bsa.ErrMalformedHeader

	// ErrMalformedPlugin is returned when a plugin does not start with a TES4 record.
	ErrMalformedPlugin = plugin.ErrMalformedHeader

	// ErrMalformedScript is returned when a compiled script header is invalid.
	ErrMalformedScript = pex.ErrMalformedHeader

	// ErrInconsistent is returned when an archive's file tables disagree.
	ErrInconsistent = bsa.ErrInconsistent

	// ErrFileNotFound is returned when an archive has no member by that name.
	ErrFileNotFound = bsa.ErrFileNotFound

	// ErrExtractionFailed is returned when an archive member cannot be written out.
	ErrExtractionFailed = bsa.ErrExtractionFailed
)

// Sentinel errors specific to the modstrings package.
var (
	// ErrUnsupportedFormat is returned for content no decoder recognizes.
	ErrUnsupportedFormat = errors.New("modstrings: unsupported format")
)
