package cursor

import "fmt"

// Flag pairs a bit mask with its label.
type Flag struct {
	Bit   uint64
	Label string
}

// FlagSet maps flag labels to whether their bit was set.
// Bits without a label in the table are dropped.
type FlagSet map[string]bool

// Has reports whether the labelled flag was set.
func (f FlagSet) Has(label string) bool {
	return f[label]
}

// ParseFlags maps value against table.
func ParseFlags(value uint64, table []Flag) FlagSet {
	set := make(FlagSet, len(table))
	for _, f := range table {
		set[f.Label] = value&f.Bit != 0
	}
	return set
}

// Flags reads an unsigned integer of the given width and maps it against table.
// It also returns the raw value so callers can keep unknown bits.
func (c *Cursor) Flags(width int, table []Flag) (FlagSet, uint64, error) {
	v, err := c.Uint(width)
	if err != nil {
		return nil, 0, fmt.Errorf("read flags: %w", err)
	}
	return ParseFlags(v, table), v, nil
}
