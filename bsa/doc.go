// Package bsa reads packed game archives (BSA versions 103, 104, and 105).
//
// An archive starts with a fixed header followed by folder records, one
// block of file records per folder, and a table of file names. Parse reads
// this index and pairs each file record with its name; payloads are read
// on demand by ReadFile and Extract.
//
// Payloads may be compressed: the archive header sets the default and a
// bit in each file record inverts it. Version 105 archives use LZ4 frames,
// older versions use zlib.
//
// Member paths use forward slashes. Lookups and Glob ignore case and
// accept backslashes.
package bsa
