package pex

import (
	"iter"
	"strconv"
)

// StringTable is a script's ordered string pool.
//
// Structural fields (names, types, docstrings) reference the table by
// index and mark the entry used as they are resolved. Entries left unused
// after a full decode are the script's literal operands.
type StringTable struct {
	entries []string
	used    []bool
}

func newStringTable(entries []string) *StringTable {
	return &StringTable{entries: entries, used: make([]bool, len(entries))}
}

// Len returns the number of entries.
func (t *StringTable) Len() int {
	return len(t.entries)
}

// Get returns the entry at i without marking it.
func (t *StringTable) Get(i uint16) (string, bool) {
	if int(i) >= len(t.entries) {
		return "", false
	}
	return t.entries[i], true
}

// Lookup resolves i and marks the entry used. An index past the end of
// the table is returned as its decimal text.
func (t *StringTable) Lookup(i uint16) string {
	if int(i) >= len(t.entries) {
		return strconv.Itoa(int(i))
	}
	t.used[i] = true
	return t.entries[i]
}

// Used reports whether the entry at i has been resolved by a structural field.
func (t *StringTable) Used(i uint16) bool {
	return int(i) < len(t.used) && t.used[i]
}

// All returns an iterator over every entry in table order.
func (t *StringTable) All() iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		for i, s := range t.entries {
			if !yield(i, s) {
				return
			}
		}
	}
}

// Unused returns the entries no structural field referenced, in table order.
func (t *StringTable) Unused() []string {
	var out []string
	for i, s := range t.entries {
		if !t.used[i] {
			out = append(out, s)
		}
	}
	return out
}
