package plugin

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/textutil"
)

// subrecordHeaderSize is the tag plus the u16 payload size.
const subrecordHeaderSize = cursor.TagSize + 2

// sizeOverrideType is the subrecord whose payload replaces the size field
// of the subrecord that follows it.
const sizeOverrideType = "XXXX"

// Subrecord is a tagged field inside a record body.
type Subrecord struct {
	// Type is the 4-character tag, such as "EDID" or "FULL".
	Type string

	// Size is the payload length. It differs from the on-disk size field
	// when a preceding XXXX subrecord overrode it.
	Size uint32

	// Overridden is true when Size came from a preceding XXXX subrecord.
	Overridden bool

	// Data is the raw payload.
	Data []byte

	// Value is the typed interpretation of Data, or nil when the type is
	// not recognised or its text did not pass the validity filter.
	Value Value
}

// EncodedSize returns the number of bytes the subrecord occupies on disk.
func (s *Subrecord) EncodedSize() uint64 {
	return subrecordHeaderSize + uint64(s.Size)
}

// Text returns the subrecord's string value, if it has one.
// Localized string references, raw bytes, and numeric values report false.
func (s *Subrecord) Text() (string, bool) {
	switch v := s.Value.(type) {
	case EditorID:
		return v.ID, true
	case Text:
		return v.String, true
	case Master:
		return v.File, true
	default:
		return "", false
	}
}

// Value is a typed subrecord payload.
type Value interface {
	isValue()
}

// FileHeader is the HEDR payload of the TES4 header record.
type FileHeader struct {
	Version      float32
	Records      uint32
	NextObjectID uint32
}

// EditorID is the EDID payload: the record's internal identifier.
type EditorID struct {
	ID string
}

// Text is a displayed string such as a name, description, or dialogue line.
type Text struct {
	String string
}

// StringID references an entry in the external string tables of a localized plugin.
type StringID struct {
	ID uint32
}

// Master is a MAST payload naming a plugin this one depends on.
type Master struct {
	File string
}

// InfoCount is the TIFC payload: the number of responses in a dialogue topic.
type InfoCount struct {
	Count uint32
}

// SizeOverride is an XXXX payload carrying the real size of the next subrecord.
type SizeOverride struct {
	Size uint32
}

func (FileHeader) isValue()   {}
func (EditorID) isValue()     {}
func (Text) isValue()         {}
func (StringID) isValue()     {}
func (Master) isValue()       {}
func (InfoCount) isValue()    {}
func (SizeOverride) isValue() {}

type valueDecoder func(d *decoder, data []byte, localized bool) Value

// valueDecoders maps subrecord tags to their payload decoders.
var valueDecoders = map[string]valueDecoder{
	"HEDR": decodeFileHeader,
	"EDID": decodeEditorID,
	"MAST": decodeMaster,
	"TIFC": decodeInfoCount,
	"FULL": decodeText,
	"DESC": decodeText,
	"NAM1": decodeText,
	"NNAM": decodeText,
	"CNAM": decodeText,
	"TNAM": decodeText,
	"RNAM": decodeText,
	"SHRT": decodeText,
	"DNAM": decodeText,
	"ITXT": decodeText,
}

func decodeFileHeader(_ *decoder, data []byte, _ bool) Value {
	if len(data) < 12 {
		return nil
	}
	return FileHeader{
		Version:      math.Float32frombits(binary.LittleEndian.Uint32(data[0:4])),
		Records:      binary.LittleEndian.Uint32(data[4:8]),
		NextObjectID: binary.LittleEndian.Uint32(data[8:12]),
	}
}

func decodeEditorID(d *decoder, data []byte, _ bool) Value {
	text, ok := d.decodeString(data)
	if !ok || text == "" {
		return nil
	}
	return EditorID{ID: text}
}

func decodeMaster(d *decoder, data []byte, _ bool) Value {
	text, ok := d.decodeString(data)
	if !ok || text == "" {
		return nil
	}
	return Master{File: text}
}

func decodeInfoCount(_ *decoder, data []byte, _ bool) Value {
	if len(data) < 4 {
		return nil
	}
	return InfoCount{Count: binary.LittleEndian.Uint32(data)}
}

func decodeText(d *decoder, data []byte, localized bool) Value {
	if localized {
		if len(data) < 4 {
			return nil
		}
		return StringID{ID: binary.LittleEndian.Uint32(data)}
	}
	text, ok := d.decodeString(data)
	if !ok || !textutil.Accept(text) {
		return nil
	}
	return Text{String: text}
}

// decodeString decodes a null-terminated payload and cleans it.
func (d *decoder) decodeString(data []byte) (string, bool) {
	text, ok := textutil.Decode(data, d.cfg.legacyEncoding)
	if !ok {
		return "", false
	}
	return textutil.Clean(text), true
}

// parseSubrecords decodes a record body into subrecords.
//
// It stops at the first invalid tag or truncated payload and returns the
// subrecords read so far together with the reason.
func (d *decoder) parseSubrecords(body []byte, localized bool) ([]*Subrecord, error) {
	c := cursor.LittleEndian(body)
	var subs []*Subrecord
	var override *uint32

	for !c.EOF() {
		tag, err := c.Tag()
		if err != nil {
			return subs, fmt.Errorf("subrecord at offset %d: %w", c.Pos()-cursor.TagSize, err)
		}
		nominal, err := c.Uint16()
		if err != nil {
			return subs, fmt.Errorf("subrecord %s size: %w", tag, err)
		}

		sub := &Subrecord{Type: tag, Size: uint32(nominal)}
		if override != nil {
			sub.Size = *override
			sub.Overridden = true
			override = nil
		}

		data, err := c.Bytes(int(sub.Size))
		if err != nil {
			return subs, fmt.Errorf("subrecord %s payload: %w", tag, err)
		}
		sub.Data = data

		if tag == sizeOverrideType {
			if size, ok := overrideSize(data); ok {
				override = &size
				sub.Value = SizeOverride{Size: size}
			}
		} else if decode, ok := valueDecoders[tag]; ok {
			sub.Value = decode(d, data, localized)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// overrideSize reads an XXXX payload of any width from 1 to 4 bytes.
func overrideSize(data []byte) (uint32, bool) {
	if len(data) == 0 || len(data) > 4 {
		return 0, false
	}
	v, err := cursor.LittleEndian(data).Uint(len(data))
	if err != nil {
		return 0, false
	}
	return uint32(v), true //nolint:gosec // width capped at 4 bytes
}
