package testutil

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/pierrec/lz4/v4"
)

// Archive flag bits used by archive fixtures.
const (
	ArchiveIncludeDirNames  uint32 = 0x001
	ArchiveIncludeFileNames uint32 = 0x002
	ArchiveCompressed       uint32 = 0x004
	ArchiveEmbedFileNames   uint32 = 0x100
)

// ArchiveMember is a file placed in an archive fixture.
type ArchiveMember struct {
	Folder string
	Name   string
	Data   []byte

	// Toggle sets the record bit that inverts the archive's default compression.
	Toggle bool
}

type archiveFolder struct {
	name    string
	members []ArchiveMember
}

// Archive encodes a BSA archive. Members are grouped by folder in order of
// first appearance; compressed payloads use LZ4 frames for version 105 and
// zlib otherwise.
func Archive(tb testing.TB, version, flags uint32, members ...ArchiveMember) []byte {
	tb.Helper()

	var folders []*archiveFolder
	byName := map[string]*archiveFolder{}
	for _, m := range members {
		f, ok := byName[m.Folder]
		if !ok {
			f = &archiveFolder{name: m.Folder}
			byName[m.Folder] = f
			folders = append(folders, f)
		}
		f.members = append(f.members, m)
	}

	folderRecordSize := 16
	if version == 105 {
		folderRecordSize = 24
	}
	var totalFolderNames, totalFileNames int
	for _, f := range folders {
		totalFolderNames += len(f.name) + 1
	}
	for _, m := range members {
		totalFileNames += len(m.Name) + 1
	}

	// Blocks are laid out as header, folder records, file-record blocks,
	// names, then payloads.
	blocksSize := 0
	for _, f := range folders {
		if flags&ArchiveIncludeDirNames != 0 {
			blocksSize += 1 + len(f.name) + 1
		}
		blocksSize += 16 * len(f.members)
	}
	dataStart := 36 + folderRecordSize*len(folders) + blocksSize + totalFileNames

	var payloads bytes.Buffer
	type placed struct {
		size   uint32
		offset uint32
	}
	placement := make(map[*ArchiveMember]placed)
	for _, f := range folders {
		for i := range f.members {
			m := &f.members[i]
			payload := archivePayload(tb, version, flags, f.name, m)
			size := uint32(len(payload)) //nolint:gosec // fixtures stay small
			if m.Toggle {
				size |= 0x40000000
			}
			placement[m] = placed{size: size, offset: uint32(dataStart + payloads.Len())} //nolint:gosec // fixtures stay small
			payloads.Write(payload)
		}
	}

	var out []byte
	out = append(out, "BSA\x00"...)
	out = binary.LittleEndian.AppendUint32(out, version)
	out = binary.LittleEndian.AppendUint32(out, 36)
	out = binary.LittleEndian.AppendUint32(out, flags)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(folders)))     //nolint:gosec // fixtures stay small
	out = binary.LittleEndian.AppendUint32(out, uint32(len(members)))     //nolint:gosec // fixtures stay small
	out = binary.LittleEndian.AppendUint32(out, uint32(totalFolderNames)) //nolint:gosec // fixtures stay small
	out = binary.LittleEndian.AppendUint32(out, uint32(totalFileNames))   //nolint:gosec // fixtures stay small
	out = binary.LittleEndian.AppendUint16(out, 0x100)
	out = binary.LittleEndian.AppendUint16(out, 0)

	blockOffset := 36 + folderRecordSize*len(folders) + totalFileNames
	for _, f := range folders {
		out = binary.LittleEndian.AppendUint64(out, 0)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(f.members))) //nolint:gosec // fixtures stay small
		if version == 105 {
			out = binary.LittleEndian.AppendUint32(out, 0)
			out = binary.LittleEndian.AppendUint64(out, uint64(blockOffset)) //nolint:gosec // fixtures stay small
		} else {
			out = binary.LittleEndian.AppendUint32(out, uint32(blockOffset)) //nolint:gosec // fixtures stay small
		}
		if flags&ArchiveIncludeDirNames != 0 {
			blockOffset += 1 + len(f.name) + 1
		}
		blockOffset += 16 * len(f.members)
	}

	for _, f := range folders {
		if flags&ArchiveIncludeDirNames != 0 {
			out = append(out, byte(len(f.name)+1))
			out = append(out, f.name...)
			out = append(out, 0)
		}
		for i := range f.members {
			p := placement[&f.members[i]]
			out = binary.LittleEndian.AppendUint64(out, 0)
			out = binary.LittleEndian.AppendUint32(out, p.size)
			out = binary.LittleEndian.AppendUint32(out, p.offset)
		}
	}
	for _, f := range folders {
		for _, m := range f.members {
			out = append(out, m.Name...)
			out = append(out, 0)
		}
	}
	return append(out, payloads.Bytes()...)
}

func archivePayload(tb testing.TB, version, flags uint32, folder string, m *ArchiveMember) []byte {
	tb.Helper()
	var payload []byte
	if flags&ArchiveEmbedFileNames != 0 && version != 103 {
		full := strings.Trim(folder+`\`+m.Name, `\`)
		payload = append(payload, byte(len(full)))
		payload = append(payload, full...)
	}
	compressed := (flags&ArchiveCompressed != 0) != m.Toggle
	if !compressed {
		return append(payload, m.Data...)
	}
	payload = binary.LittleEndian.AppendUint32(payload, uint32(len(m.Data))) //nolint:gosec // fixtures stay small
	if version == 105 {
		return append(payload, LZ4Frame(tb, m.Data)...)
	}
	return append(payload, Zlib(tb, m.Data)...)
}

// LZ4Frame compresses data as an LZ4 frame.
func LZ4Frame(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("lz4 write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("lz4 close: %v", err)
	}
	return buf.Bytes()
}
