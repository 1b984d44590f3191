// Package plugin decodes plugin files (.esp, .esm, .esl) into a tree of
// groups, records, and subrecords.
//
// A plugin starts with a TES4 header record followed by top-level GRUP
// blocks. Groups nest records and other groups; records carry subrecords
// and may be zlib-compressed. Only allow-listed group labels and record
// types are decoded down to subrecords; everything else is kept as an
// opaque byte span so sizes still add up.
//
// Cell, worldspace, and dialogue groups deviate from the generic layout.
// Their group kind selects a label decoding and a child parser from a
// dispatch table, and the CELL, WRLD, and DIAL records own the child group
// that follows them.
//
// Corruption inside a group or record stops parsing of that span only;
// what was collected is kept and the reason is recorded in the node's Err
// field. Only a bad file header or a truncated top-level block fails Decode.
package plugin
