package plugin

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/meigma/modstrings/internal/cursor"
	"github.com/meigma/modstrings/internal/sizing"
)

// headerType is the tag of the record every plugin starts with.
const headerType = "TES4"

// DefaultMaxFileSize bounds plugins read through Parse and Open (2GB).
const DefaultMaxFileSize = 2 << 30

// ErrMalformedHeader is returned when the input does not start with a TES4 record.
var ErrMalformedHeader = errors.New("plugin: malformed header")

// Plugin is a decoded plugin file.
type Plugin struct {
	// Header is the TES4 record.
	Header *Record

	// Groups holds the top-level groups in file order.
	Groups []*Group

	// Trailing holds bytes after the last top-level group that do not
	// start another group.
	Trailing []byte
}

// EncodedSize returns the total size of the decoded plugin.
func (p *Plugin) EncodedSize() uint64 {
	size := p.Header.EncodedSize() + uint64(len(p.Trailing))
	for _, g := range p.Groups {
		size += g.EncodedSize()
	}
	return size
}

// Masters returns the plugin files this plugin depends on.
func (p *Plugin) Masters() []string {
	var out []string
	for _, s := range p.Header.Subrecords {
		if m, ok := s.Value.(Master); ok {
			out = append(out, m.File)
		}
	}
	return out
}

// FileHeader returns the HEDR values of the header record.
func (p *Plugin) FileHeader() (FileHeader, bool) {
	s, ok := p.Header.Find("HEDR")
	if !ok {
		return FileHeader{}, false
	}
	v, ok := s.Value.(FileHeader)
	return v, ok
}

// Localized reports whether the plugin stores its text in string tables.
func (p *Plugin) Localized() bool {
	return p.Header.Localized()
}

type decoder struct {
	cfg *config
}

// Decode decodes a plugin held in memory. Decoded nodes alias data.
func Decode(data []byte, opts ...Option) (*Plugin, error) {
	d := &decoder{cfg: newConfig(opts)}
	return d.decode(cursor.LittleEndian(data))
}

// Parse reads a whole plugin from r and decodes it.
func Parse(r io.Reader, opts ...Option) (*Plugin, error) {
	data, err := sizing.ReadAllWithLimit(r, DefaultMaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("read plugin: %w", err)
	}
	return Decode(data, opts...)
}

// Open reads and decodes the plugin file at path.
func Open(path string, opts ...Option) (*Plugin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	p, err := Decode(data, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (d *decoder) decode(c *cursor.Cursor) (*Plugin, error) {
	tag, err := c.Tag()
	if err != nil || tag != headerType {
		return nil, fmt.Errorf("%w: expected %s", ErrMalformedHeader, headerType)
	}

	header, err := d.parseRecordBody(c, headerType)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedHeader, err)
	}
	p := &Plugin{Header: header}

	for !c.EOF() {
		next, err := c.PeekTag()
		if err != nil || next != groupTag {
			d.cfg.logger.Warn("unexpected data after last group", "offset", c.Pos(), "tag", next)
			p.Trailing = c.Remaining()
			break
		}
		start := c.Pos()
		g, err := d.parseGroup(c)
		if err != nil {
			return nil, fmt.Errorf("top-level group at offset %d: %w", start, err)
		}
		d.cfg.logger.Debug("decoded group", "label", g.LabelString(), "children", len(g.Children))
		p.Groups = append(p.Groups, g)
	}
	return p, nil
}
