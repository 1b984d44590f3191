// Package index stores the extracted strings of one file as a FlatBuffers
// table. It is the value format of the result cache.
package index

import (
	"errors"
	"fmt"
	"iter"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/opencontainers/go-digest"

	"github.com/meigma/modstrings/extract"
	"github.com/meigma/modstrings/internal/fb"
)

// Version is the layout version written by Encode.
const Version = 1

var (
	// ErrInvalid is returned when data is not a string index.
	ErrInvalid = errors.New("modstrings: invalid string index")

	// ErrVersion is returned for an index written with another layout version.
	ErrVersion = errors.New("modstrings: unsupported string index version")
)

// Format identifies the kind of file the strings came from.
type Format = fb.Format

// Formats stored in an index.
const (
	FormatUnknown     = fb.FormatUnknown
	FormatPlugin      = fb.FormatPlugin
	FormatScript      = fb.FormatScript
	FormatTranslation = fb.FormatTranslation
	FormatArchive     = fb.FormatArchive
)

// Set is the decoded form of an index.
type Set struct {
	Format  Format
	Source  digest.Digest
	Strings []extract.String
}

// Encode serializes set as a FlatBuffers StringSet.
func Encode(set Set) []byte {
	builder := flatbuffers.NewBuilder(1024)

	entryOffsets := make([]flatbuffers.UOffsetT, len(set.Strings))
	for i, s := range set.Strings {
		contextOffset := builder.CreateString(s.ContextID)
		kindOffset := builder.CreateString(s.FieldKind)
		textOffset := builder.CreateString(s.Text)

		fb.EntryStart(builder)
		fb.EntryAddContextId(builder, contextOffset)
		fb.EntryAddFieldKind(builder, kindOffset)
		fb.EntryAddText(builder, textOffset)
		entryOffsets[i] = fb.EntryEnd(builder)
	}

	fb.StringSetStartEntriesVector(builder, len(entryOffsets))
	for i := len(entryOffsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(entryOffsets[i])
	}
	entriesOffset := builder.EndVector(len(entryOffsets))
	sourceOffset := builder.CreateString(set.Source.String())

	fb.StringSetStart(builder)
	fb.StringSetAddVersion(builder, Version)
	fb.StringSetAddFormat(builder, set.Format)
	fb.StringSetAddSourceDigest(builder, sourceOffset)
	fb.StringSetAddEntries(builder, entriesOffset)
	builder.Finish(fb.StringSetEnd(builder))
	return builder.FinishedBytes()
}

// Index provides read access to an encoded string set.
//
// Accessors copy out of the underlying buffer, so returned values stay
// valid after the data is released.
type Index struct {
	data []byte
	root *fb.StringSet
}

// Load parses an encoded string set and checks every entry is reachable.
//
// The provided data is retained by the index; callers must not modify it
// after calling Load.
func Load(data []byte) (idx *Index, err error) {
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, ErrInvalid
	}

	// Generated accessors panic on out-of-range offsets.
	defer func() {
		if r := recover(); r != nil {
			idx, err = nil, fmt.Errorf("%w: %v", ErrInvalid, r)
		}
	}()

	root := fb.GetRootAsStringSet(data, 0)
	if v := root.Version(); v != Version {
		return nil, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	var entry fb.Entry
	for i := range root.EntriesLength() {
		if !root.Entries(&entry, i) {
			return nil, ErrInvalid
		}
		_, _, _ = entry.ContextId(), entry.FieldKind(), entry.Text()
	}
	return &Index{data: data, root: root}, nil
}

// Version returns the layout version of the index.
func (idx *Index) Version() uint32 {
	return idx.root.Version()
}

// Format returns the kind of file the strings came from.
func (idx *Index) Format() Format {
	return idx.root.Format()
}

// Source returns the digest of the content the strings were extracted from.
func (idx *Index) Source() digest.Digest {
	return digest.Digest(idx.root.SourceDigest())
}

// Len returns the number of strings in the index.
func (idx *Index) Len() int {
	return idx.root.EntriesLength()
}

// Strings returns an iterator over the strings in extraction order.
func (idx *Index) Strings() iter.Seq[extract.String] {
	return func(yield func(extract.String) bool) {
		var entry fb.Entry
		for i := range idx.root.EntriesLength() {
			if !idx.root.Entries(&entry, i) {
				return
			}
			s := extract.String{
				ContextID: string(entry.ContextId()),
				FieldKind: string(entry.FieldKind()),
				Text:      string(entry.Text()),
			}
			if !yield(s) {
				return
			}
		}
	}
}

// Set decodes the whole index.
func (idx *Index) Set() Set {
	set := Set{
		Format:  idx.Format(),
		Source:  idx.Source(),
		Strings: make([]extract.String, 0, idx.Len()),
	}
	for s := range idx.Strings() {
		set.Strings = append(set.Strings, s)
	}
	return set
}
