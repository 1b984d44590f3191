package testutil

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/klauspost/compress/zlib"
)

// Record flag bits used by plugin fixtures.
const (
	RecordLocalized  uint32 = 0x00000080
	RecordCompressed uint32 = 0x00040000
)

// Group kinds used by plugin fixtures.
const (
	GroupNormal int32 = iota
	GroupWorldChildren
	GroupInteriorCellBlock
	GroupInteriorCellSubBlock
	GroupExteriorCellBlock
	GroupExteriorCellSubBlock
	GroupCellChildren
	GroupTopicChildren
	GroupCellPersistentChildren
	GroupCellTemporaryChildren
)

// Sub encodes a subrecord with a u16 size field.
func Sub(tag string, data []byte) []byte {
	out := make([]byte, 0, 6+len(data))
	out = append(out, tag[:4]...)
	out = binary.LittleEndian.AppendUint16(out, uint16(len(data))) //nolint:gosec // fixtures stay small
	return append(out, data...)
}

// SubString encodes a subrecord holding a null-terminated string.
func SubString(tag, text string) []byte {
	return Sub(tag, ZString(text))
}

// SubUint32 encodes a subrecord holding a little-endian u32.
func SubUint32(tag string, v uint32) []byte {
	return Sub(tag, binary.LittleEndian.AppendUint32(nil, v))
}

// ZString returns text followed by a null byte.
func ZString(text string) []byte {
	return append([]byte(text), 0)
}

// Record encodes a record with the given subrecords as its body.
func Record(tag string, flags, formID uint32, subs ...[]byte) []byte {
	return RecordBody(tag, flags, formID, bytes.Join(subs, nil))
}

// RecordBody encodes a record around an already encoded body.
func RecordBody(tag string, flags, formID uint32, body []byte) []byte {
	out := make([]byte, 0, 24+len(body))
	out = append(out, tag[:4]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(body))) //nolint:gosec // fixtures stay small
	out = binary.LittleEndian.AppendUint32(out, flags)
	out = binary.LittleEndian.AppendUint32(out, formID)
	out = binary.LittleEndian.AppendUint16(out, 0) // timestamp
	out = binary.LittleEndian.AppendUint16(out, 0) // version control
	out = binary.LittleEndian.AppendUint16(out, 44)
	out = binary.LittleEndian.AppendUint16(out, 0)
	return append(out, body...)
}

// CompressedRecord encodes a record whose body is zlib-compressed and
// prefixed with its decompressed size.
func CompressedRecord(tb testing.TB, tag string, flags, formID uint32, subs ...[]byte) []byte {
	tb.Helper()
	plain := bytes.Join(subs, nil)
	body := binary.LittleEndian.AppendUint32(nil, uint32(len(plain))) //nolint:gosec // fixtures stay small
	body = append(body, Zlib(tb, plain)...)
	return RecordBody(tag, flags|RecordCompressed, formID, body)
}

// Group encodes a GRUP block. label must be exactly four bytes.
func Group(label []byte, kind int32, children ...[]byte) []byte {
	body := bytes.Join(children, nil)
	out := make([]byte, 0, 24+len(body))
	out = append(out, "GRUP"...)
	out = binary.LittleEndian.AppendUint32(out, uint32(24+len(body))) //nolint:gosec // fixtures stay small
	out = append(out, label[:4]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(kind)) //nolint:gosec // signed on disk
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint16(out, 0)
	out = binary.LittleEndian.AppendUint32(out, 0)
	return append(out, body...)
}

// TopGroup encodes a normal group labelled with a record type.
func TopGroup(tag string, children ...[]byte) []byte {
	return Group([]byte(tag), GroupNormal, children...)
}

// FormLabel encodes a form ID as a group label.
func FormLabel(formID uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, formID)
}

// GridLabel encodes exterior cell grid coordinates as a group label.
func GridLabel(y, x int16) []byte {
	out := binary.LittleEndian.AppendUint16(nil, uint16(y)) //nolint:gosec // signed on disk
	return binary.LittleEndian.AppendUint16(out, uint16(x)) //nolint:gosec // signed on disk
}

// Header encodes a TES4 header record with optional master files.
func Header(flags uint32, masters ...string) []byte {
	hedr := binary.LittleEndian.AppendUint32(nil, 0x3FD9999A) // 1.7
	hedr = binary.LittleEndian.AppendUint32(hedr, 0)
	hedr = binary.LittleEndian.AppendUint32(hedr, 0x800)
	subs := [][]byte{Sub("HEDR", hedr), SubString("CNAM", "modder")}
	for _, m := range masters {
		subs = append(subs, SubString("MAST", m), Sub("DATA", make([]byte, 8)))
	}
	return Record("TES4", flags, 0, subs...)
}

// Plugin concatenates a header with top-level groups.
func Plugin(header []byte, groups ...[]byte) []byte {
	return append(append([]byte(nil), header...), bytes.Join(groups, nil)...)
}

// Zlib compresses data.
func Zlib(tb testing.TB, data []byte) []byte {
	tb.Helper()
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		tb.Fatalf("zlib write: %v", err)
	}
	if err := w.Close(); err != nil {
		tb.Fatalf("zlib close: %v", err)
	}
	return buf.Bytes()
}
