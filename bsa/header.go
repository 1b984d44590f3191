package bsa

import (
	"fmt"

	"github.com/meigma/modstrings/internal/cursor"
)

const (
	magic      = "BSA\x00"
	headerSize = 36

	// Version103 is used by Oblivion archives.
	Version103 uint32 = 103
	// Version104 is used by Fallout 3, New Vegas, and Skyrim archives.
	Version104 uint32 = 104
	// Version105 is used by Skyrim Special Edition archives.
	Version105 uint32 = 105
)

// Archive flag labels.
const (
	FlagIncludeDirNames   = "Include Directory Names"
	FlagIncludeFileNames  = "Include File Names"
	FlagCompressed        = "Compressed Archive"
	FlagRetainDirNames    = "Retain Directory Names"
	FlagRetainFileNames   = "Retain File Names"
	FlagRetainNameOffsets = "Retain File Name Offsets"
	FlagXbox              = "Xbox360 Archive"
	FlagRetainStrings     = "Retain Strings During Startup"
	FlagEmbedFileNames    = "Embed File Names"
	FlagXMemCodec         = "XMem Codec"
)

const (
	fileSizeMask          = 0x3FFFFFFF
	fileCompressionToggle = 0x40000000
	folderRecordSize103   = 16
	folderRecordSize105   = 24
	fileRecordSize        = 16
	maxIndexSectionSize   = 64 << 20
)

var archiveFlags = []cursor.Flag{
	{Bit: 0x001, Label: FlagIncludeDirNames},
	{Bit: 0x002, Label: FlagIncludeFileNames},
	{Bit: 0x004, Label: FlagCompressed},
	{Bit: 0x008, Label: FlagRetainDirNames},
	{Bit: 0x010, Label: FlagRetainFileNames},
	{Bit: 0x020, Label: FlagRetainNameOffsets},
	{Bit: 0x040, Label: FlagXbox},
	{Bit: 0x080, Label: FlagRetainStrings},
	{Bit: 0x100, Label: FlagEmbedFileNames},
	{Bit: 0x200, Label: FlagXMemCodec},
}

var fileFlags = []cursor.Flag{
	{Bit: 0x001, Label: "Meshes"},
	{Bit: 0x002, Label: "Textures"},
	{Bit: 0x004, Label: "Menus"},
	{Bit: 0x008, Label: "Sounds"},
	{Bit: 0x010, Label: "Voices"},
	{Bit: 0x020, Label: "Shaders"},
	{Bit: 0x040, Label: "Trees"},
	{Bit: 0x080, Label: "Fonts"},
	{Bit: 0x100, Label: "Miscellaneous"},
}

// Header is the fixed archive header.
type Header struct {
	Version               uint32
	Offset                uint32
	RawArchiveFlags       uint32
	ArchiveFlags          cursor.FlagSet
	FolderCount           uint32
	FileCount             uint32
	TotalFolderNameLength uint32
	TotalFileNameLength   uint32
	RawFileFlags          uint16
	FileFlags             cursor.FlagSet
}

// Compressed reports whether files are compressed unless their record says otherwise.
func (h Header) Compressed() bool {
	return h.ArchiveFlags.Has(FlagCompressed)
}

// IncludesDirNames reports whether each file-record block starts with its folder name.
func (h Header) IncludesDirNames() bool {
	return h.ArchiveFlags.Has(FlagIncludeDirNames)
}

// EmbedsNames reports whether each payload is prefixed with its full path.
// Oblivion archives use the same bit for something else and never embed names.
func (h Header) EmbedsNames() bool {
	return h.Version != Version103 && h.ArchiveFlags.Has(FlagEmbedFileNames)
}

func (h Header) folderRecordSize() int {
	if h.Version == Version105 {
		return folderRecordSize105
	}
	return folderRecordSize103
}

func parseHeader(buf []byte) (Header, error) {
	c := cursor.LittleEndian(buf)
	sig, err := c.Bytes(len(magic))
	if err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	if string(sig) != magic {
		return Header{}, fmt.Errorf("%w: bad magic % x", ErrMalformedHeader, sig)
	}

	var h Header
	fields := []*uint32{&h.Version, &h.Offset, &h.RawArchiveFlags, &h.FolderCount,
		&h.FileCount, &h.TotalFolderNameLength, &h.TotalFileNameLength}
	for _, f := range fields {
		if *f, err = c.Uint32(); err != nil {
			return Header{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
		}
	}
	if h.RawFileFlags, err = c.Uint16(); err != nil {
		return Header{}, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}

	switch h.Version {
	case Version103, Version104, Version105:
	default:
		return Header{}, fmt.Errorf("%w: unsupported version %d", ErrMalformedHeader, h.Version)
	}
	if h.Offset < headerSize {
		return Header{}, fmt.Errorf("%w: folder records at offset %d", ErrMalformedHeader, h.Offset)
	}
	h.ArchiveFlags = cursor.ParseFlags(uint64(h.RawArchiveFlags), archiveFlags)
	h.FileFlags = cursor.ParseFlags(uint64(h.RawFileFlags), fileFlags)
	return h, nil
}

// FolderRecord describes one folder and the file records it owns.
type FolderRecord struct {
	Hash   uint64
	Count  uint32
	Offset uint64
	Name   string
	Files  []FileRecord
}

// FileRecord is a raw file entry as stored in the archive.
type FileRecord struct {
	Hash    uint64
	RawSize uint32
	Offset  uint32
}

// Size returns the stored payload size with the flag bits masked off.
func (r FileRecord) Size() uint32 {
	return r.RawSize & fileSizeMask
}

// TogglesCompression reports whether the file inverts the archive's
// default compression.
func (r FileRecord) TogglesCompression() bool {
	return r.RawSize&fileCompressionToggle != 0
}

// resolveCompression returns the effective compression state of a file.
func resolveCompression(archiveDefault bool, rec FileRecord) bool {
	return archiveDefault != rec.TogglesCompression()
}
