package testutil

import "encoding/binary"

// PexMagic is the first word of every compiled script.
const PexMagic uint32 = 0xFA57C0DE

// PexWriter appends big-endian values for compiled script fixtures.
type PexWriter struct {
	buf []byte
}

// Bytes returns the encoded fixture.
func (w *PexWriter) Bytes() []byte { return w.buf }

// U8 appends a byte.
func (w *PexWriter) U8(v uint8) *PexWriter {
	w.buf = append(w.buf, v)
	return w
}

// U16 appends a big-endian u16.
func (w *PexWriter) U16(v uint16) *PexWriter {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// U32 appends a big-endian u32.
func (w *PexWriter) U32(v uint32) *PexWriter {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
	return w
}

// U64 appends a big-endian u64.
func (w *PexWriter) U64(v uint64) *PexWriter {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
	return w
}

// WString appends a u16 length-prefixed string.
func (w *PexWriter) WString(s string) *PexWriter {
	w.U16(uint16(len(s))) //nolint:gosec // fixtures stay small
	w.buf = append(w.buf, s...)
	return w
}

// Raw appends bytes unchanged.
func (w *PexWriter) Raw(b []byte) *PexWriter {
	w.buf = append(w.buf, b...)
	return w
}

// Header appends the magic, version, and source metadata.
func (w *PexWriter) Header(source string) *PexWriter {
	return w.U32(PexMagic).U8(3).U8(2).U16(1).U64(1700000000).
		WString(source).WString("user").WString("machine")
}

// Strings appends a string table.
func (w *PexWriter) Strings(table ...string) *PexWriter {
	w.U16(uint16(len(table))) //nolint:gosec // fixtures stay small
	for _, s := range table {
		w.WString(s)
	}
	return w
}

// NoDebug appends an absent debug-info block.
func (w *PexWriter) NoDebug() *PexWriter {
	return w.U8(0)
}

// Value tags for variable data.
const (
	PexNull uint8 = iota
	PexIdentifier
	PexString
	PexInt
	PexFloat
	PexBool
)

// IdentValue appends an identifier reference.
func (w *PexWriter) IdentValue(index uint16) *PexWriter {
	return w.U8(PexIdentifier).U16(index)
}

// StringValue appends a string-table reference.
func (w *PexWriter) StringValue(index uint16) *PexWriter {
	return w.U8(PexString).U16(index)
}

// IntValue appends an integer literal.
func (w *PexWriter) IntValue(v int32) *PexWriter {
	return w.U8(PexInt).U32(uint32(v)) //nolint:gosec // two's complement on disk
}

// NullValue appends a null value.
func (w *PexWriter) NullValue() *PexWriter {
	return w.U8(PexNull)
}

// Object appends an object whose body is produced by fill. The size field
// is computed from the bytes fill writes plus the size field itself.
func (w *PexWriter) Object(name uint16, fill func(body *PexWriter)) *PexWriter {
	body := &PexWriter{}
	fill(body)
	w.U16(name)
	w.U32(uint32(len(body.buf) + 4)) //nolint:gosec // fixtures stay small
	w.buf = append(w.buf, body.buf...)
	return w
}
