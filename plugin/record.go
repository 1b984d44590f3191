package plugin

import (
	"encoding/binary"
	"fmt"

	"github.com/meigma/modstrings/internal/codec"
	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/sizing"
)

// headerSize is the on-disk size of both record and group headers.
const headerSize = 24

// Record flag labels.
const (
	FlagMaster     = "Master"
	FlagLight      = "Light"
	FlagLocalized  = "Localized"
	FlagDeleted    = "Deleted"
	FlagIgnored    = "Ignored"
	FlagCompressed = "Compressed"
)

var recordFlags = []cursor.Flag{
	{Bit: 0x00000001, Label: FlagMaster},
	{Bit: 0x00000020, Label: FlagDeleted},
	{Bit: 0x00000080, Label: FlagLocalized},
	{Bit: 0x00000200, Label: FlagLight},
	{Bit: 0x00001000, Label: FlagIgnored},
	{Bit: 0x00040000, Label: FlagCompressed},
}

// RecordKind classifies records that own a following child group.
type RecordKind uint8

const (
	RecordGeneric RecordKind = iota
	RecordDialogue
	RecordWorldspace
	RecordCell
)

// String returns the record kind name.
func (k RecordKind) String() string {
	switch k {
	case RecordGeneric:
		return "generic"
	case RecordDialogue:
		return "dialogue"
	case RecordWorldspace:
		return "worldspace"
	case RecordCell:
		return "cell"
	default:
		return fmt.Sprintf("RecordKind(%d)", uint8(k))
	}
}

// ownedGroups maps record types to their kind and the group kind they own.
var ownedGroups = map[string]struct {
	kind  RecordKind
	group GroupKind
}{
	"DIAL": {RecordDialogue, GroupTopicChildren},
	"WRLD": {RecordWorldspace, GroupWorldChildren},
	"CELL": {RecordCell, GroupCellChildren},
}

// Record is a single form in the plugin.
type Record struct {
	Type            string
	Kind            RecordKind
	Size            uint32
	RawFlags        uint32
	Flags           cursor.FlagSet
	FormID          uint32
	Timestamp       uint16
	VersionControl  uint16
	InternalVersion uint16
	Unknown         uint16

	// DecompressedSize is the declared body size of a compressed record.
	DecompressedSize uint32

	// Subrecords holds the decoded body of allow-listed record types.
	Subrecords []*Subrecord

	// Data holds the body of records whose subrecords were not decoded.
	// For compressed records it is the decompressed body, or the raw
	// compressed body if decompression failed.
	Data []byte

	// Children is the group owned by a CELL, WRLD, or DIAL record.
	Children *Group

	// Err records why decoding of this record stopped early.
	Err error
}

// EncodedSize returns the on-disk size of the record including its header
// and any owned child group.
func (r *Record) EncodedSize() uint64 {
	size := headerSize + uint64(r.Size)
	if r.Children != nil {
		size += r.Children.EncodedSize()
	}
	return size
}

// SubrecordSize returns the total encoded size of the decoded subrecords.
// For a fully decoded record it equals the (decompressed) body size.
func (r *Record) SubrecordSize() uint64 {
	var size uint64
	for _, s := range r.Subrecords {
		size += s.EncodedSize()
	}
	return size
}

// Localized reports whether text subrecords reference external string tables.
func (r *Record) Localized() bool {
	return r.Flags.Has(FlagLocalized)
}

// Compressed reports whether the record body is zlib-compressed.
func (r *Record) Compressed() bool {
	return r.Flags.Has(FlagCompressed)
}

// Find returns the first subrecord with the given tag.
func (r *Record) Find(tag string) (*Subrecord, bool) {
	for _, s := range r.Subrecords {
		if s.Type == tag {
			return s, true
		}
	}
	return nil, false
}

// EditorID returns the record's EDID value, if present.
func (r *Record) EditorID() (string, bool) {
	s, ok := r.Find("EDID")
	if !ok {
		return "", false
	}
	v, ok := s.Value.(EditorID)
	return v.ID, ok
}

// InfoCount returns the TIFC value of a dialogue record, or 0 when absent.
func (r *Record) InfoCount() uint32 {
	s, ok := r.Find("TIFC")
	if !ok {
		return 0
	}
	v, _ := s.Value.(InfoCount)
	return v.Count
}

func (*Record) node() {}

// parseRecord reads a record and any group it owns.
//
// Errors that leave the cursor in an unknown position are returned. Errors
// confined to the record body are stored in Record.Err instead.
func (d *decoder) parseRecord(c *cursor.Cursor) (*Record, error) {
	tag, err := c.Tag()
	if err != nil {
		return nil, err
	}
	rec, err := d.parseRecordBody(c, tag)
	if err != nil {
		return nil, err
	}

	owned, ok := ownedGroups[tag]
	if !ok {
		return rec, nil
	}
	rec.Kind = owned.kind
	if !d.nextGroupIs(c, owned.group) {
		return rec, nil
	}
	if owned.kind == RecordDialogue && rec.InfoCount() == 0 {
		return rec, nil
	}
	child, err := d.parseGroup(c)
	if err != nil {
		return nil, fmt.Errorf("%s %08X child group: %w", tag, rec.FormID, err)
	}
	rec.Children = child
	return rec, nil
}

// parseRecordBody reads the header and body of a record whose tag has
// already been consumed.
func (d *decoder) parseRecordBody(c *cursor.Cursor, tag string) (*Record, error) {
	hdr, err := c.Bytes(headerSize - cursor.TagSize)
	if err != nil {
		return nil, fmt.Errorf("record %s header: %w", tag, err)
	}
	rec := &Record{
		Type:            tag,
		Size:            binary.LittleEndian.Uint32(hdr[0:4]),
		RawFlags:        binary.LittleEndian.Uint32(hdr[4:8]),
		FormID:          binary.LittleEndian.Uint32(hdr[8:12]),
		Timestamp:       binary.LittleEndian.Uint16(hdr[12:14]),
		VersionControl:  binary.LittleEndian.Uint16(hdr[14:16]),
		InternalVersion: binary.LittleEndian.Uint16(hdr[16:18]),
		Unknown:         binary.LittleEndian.Uint16(hdr[18:20]),
	}
	rec.Flags = cursor.ParseFlags(uint64(rec.RawFlags), recordFlags)

	if err := sizing.CheckLimit(uint64(rec.Size), d.cfg.maxRecordSize); err != nil {
		return nil, fmt.Errorf("record %s %08X: %w", tag, rec.FormID, err)
	}
	body, err := c.Bytes(int(rec.Size))
	if err != nil {
		return nil, fmt.Errorf("record %s %08X body: %w", tag, rec.FormID, err)
	}

	if rec.Compressed() {
		body, err = d.decompressBody(rec, body)
		if err != nil {
			rec.Data = body
			rec.Err = err
			d.cfg.logger.Warn("record decompression failed",
				"type", tag, "form_id", fmt.Sprintf("%08X", rec.FormID), "error", err)
			return rec, nil
		}
	}

	if _, ok := d.cfg.recordTypes[tag]; !ok {
		rec.Data = body
		return rec, nil
	}
	rec.Subrecords, rec.Err = d.parseSubrecords(body, rec.Localized())
	if rec.Err != nil {
		d.cfg.logger.Warn("record body truncated",
			"type", tag, "form_id", fmt.Sprintf("%08X", rec.FormID), "error", rec.Err)
	}
	return rec, nil
}

// decompressBody inflates a compressed record body. The body starts with
// the decompressed size followed by a zlib stream.
func (d *decoder) decompressBody(rec *Record, body []byte) ([]byte, error) {
	if len(body) < 4 {
		return body, fmt.Errorf("%w: compressed body of %d bytes", cursor.ErrTruncated, len(body))
	}
	rec.DecompressedSize = binary.LittleEndian.Uint32(body)
	out, err := codec.Inflate(body[4:], rec.DecompressedSize, d.cfg.maxRecordSize)
	if err != nil {
		return body, err
	}
	return out, nil
}
