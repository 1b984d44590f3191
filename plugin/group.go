package plugin

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/meigma/modstrings/internal/cursor"
)

const groupTag = "GRUP"

// ErrMalformedGroup is recorded when a group header declares an impossible size.
var ErrMalformedGroup = errors.New("plugin: malformed group")

// GroupKind selects how a group's label and children are interpreted.
type GroupKind int32

const (
	GroupNormal GroupKind = iota
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

var groupKindNames = [...]string{
	GroupNormal:                 "normal",
	GroupWorldChildren:          "world children",
	GroupInteriorCellBlock:      "interior cell block",
	GroupInteriorCellSubBlock:   "interior cell sub-block",
	GroupExteriorCellBlock:      "exterior cell block",
	GroupExteriorCellSubBlock:   "exterior cell sub-block",
	GroupCellChildren:           "cell children",
	GroupTopicChildren:          "topic children",
	GroupCellPersistentChildren: "cell persistent children",
	GroupCellTemporaryChildren:  "cell temporary children",
}

// String returns the group kind name.
func (k GroupKind) String() string {
	if k >= 0 && int(k) < len(groupKindNames) {
		return groupKindNames[k]
	}
	return fmt.Sprintf("GroupKind(%d)", int32(k))
}

// Label is a decoded group label. Which field is meaningful depends on the
// group kind; Raw always holds the four label bytes.
type Label struct {
	Raw [4]byte

	// Tag is the record type of a normal group.
	Tag string

	// Block is the block or sub-block number of an interior cell group.
	Block int32

	// Y and X are the grid coordinates of an exterior cell group.
	Y, X int16

	// Parent is the form ID of the record owning a child group.
	Parent uint32
}

func decodeLabel(kind GroupKind, raw [4]byte) Label {
	l := Label{Raw: raw}
	switch kind {
	case GroupNormal:
		if utf8.Valid(raw[:]) {
			l.Tag = string(raw[:])
		}
	case GroupInteriorCellBlock, GroupInteriorCellSubBlock:
		l.Block = int32(binary.LittleEndian.Uint32(raw[:])) //nolint:gosec // signed on disk
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		l.Y = int16(binary.LittleEndian.Uint16(raw[0:2])) //nolint:gosec // signed on disk
		l.X = int16(binary.LittleEndian.Uint16(raw[2:4])) //nolint:gosec // signed on disk
	default:
		l.Parent = binary.LittleEndian.Uint32(raw[:])
	}
	return l
}

// Node is a child of a group: either a *Group or a *Record.
type Node interface {
	EncodedSize() uint64
	node()
}

// Group is a GRUP block.
type Group struct {
	Kind           GroupKind
	Label          Label
	Size           uint32
	Timestamp      uint16
	VersionControl uint16
	Unknown        uint32

	// Children holds the decoded records and groups in file order.
	Children []Node

	// Unparsed holds the bytes after the last decoded child. It is the
	// whole body for groups that were skipped.
	Unparsed []byte

	// Err records why decoding of the children stopped early.
	Err error
}

// EncodedSize returns the on-disk size of the group including its header.
func (g *Group) EncodedSize() uint64 {
	size := uint64(headerSize) + uint64(len(g.Unparsed))
	for _, child := range g.Children {
		size += child.EncodedSize()
	}
	return size
}

// LabelString formats the label according to the group kind.
func (g *Group) LabelString() string {
	switch g.Kind {
	case GroupNormal:
		return g.Label.Tag
	case GroupInteriorCellBlock, GroupInteriorCellSubBlock:
		return fmt.Sprintf("%d", g.Label.Block)
	case GroupExteriorCellBlock, GroupExteriorCellSubBlock:
		return fmt.Sprintf("(%d, %d)", g.Label.Y, g.Label.X)
	default:
		return fmt.Sprintf("%08X", g.Label.Parent)
	}
}

// Records returns the direct record children of the group.
func (g *Group) Records() []*Record {
	var out []*Record
	for _, child := range g.Children {
		if r, ok := child.(*Record); ok {
			out = append(out, r)
		}
	}
	return out
}

// Groups returns the direct group children of the group.
func (g *Group) Groups() []*Group {
	var out []*Group
	for _, child := range g.Children {
		if sub, ok := child.(*Group); ok {
			out = append(out, sub)
		}
	}
	return out
}

func (*Group) node() {}

// childFilter reports whether the next child may appear in a group.
// kind is only meaningful when isGroup is true.
type childFilter func(isGroup bool, kind GroupKind) bool

func anyChild(bool, GroupKind) bool { return true }

func onlyGroups(want GroupKind) childFilter {
	return func(isGroup bool, kind GroupKind) bool {
		return isGroup && kind == want
	}
}

func onlyRecords(isGroup bool, _ GroupKind) bool { return !isGroup }

type groupParser func(d *decoder, g *Group, c *cursor.Cursor)

// groupParserFor returns the child parser for a group kind. Kinds
// without a parser keep their body unparsed.
func groupParserFor(kind GroupKind) (groupParser, bool) {
	switch kind {
	case GroupNormal:
		return parseNormalGroup, true
	case GroupTopicChildren:
		return parseTopicGroup, true
	case GroupInteriorCellBlock:
		return childParser(onlyGroups(GroupInteriorCellSubBlock)), true
	case GroupExteriorCellBlock:
		return childParser(onlyGroups(GroupExteriorCellSubBlock)), true
	case GroupInteriorCellSubBlock, GroupExteriorCellSubBlock:
		return childParser(onlyRecords), true
	case GroupWorldChildren, GroupCellChildren, GroupCellPersistentChildren, GroupCellTemporaryChildren:
		return childParser(anyChild), true
	default:
		return nil, false
	}
}

// parseGroup reads a GRUP block at the cursor.
//
// The returned error means the group header or its declared span could
// not be read; failures inside the span are kept in Group.Err.
func (d *decoder) parseGroup(c *cursor.Cursor) (*Group, error) {
	tag, err := c.Tag()
	if err != nil {
		return nil, err
	}
	if tag != groupTag {
		return nil, fmt.Errorf("%w: expected %s, got %q", ErrMalformedGroup, groupTag, tag)
	}
	hdr, err := c.Bytes(headerSize - cursor.TagSize)
	if err != nil {
		return nil, fmt.Errorf("group header: %w", err)
	}
	g := &Group{
		Size:           binary.LittleEndian.Uint32(hdr[0:4]),
		Kind:           GroupKind(binary.LittleEndian.Uint32(hdr[8:12])), //nolint:gosec // signed on disk
		Timestamp:      binary.LittleEndian.Uint16(hdr[12:14]),
		VersionControl: binary.LittleEndian.Uint16(hdr[14:16]),
		Unknown:        binary.LittleEndian.Uint32(hdr[16:20]),
	}
	g.Label = decodeLabel(g.Kind, [4]byte(hdr[4:8]))

	if g.Size < headerSize {
		return nil, fmt.Errorf("%w: size %d smaller than header", ErrMalformedGroup, g.Size)
	}
	body, err := c.Sub(int(g.Size - headerSize))
	if err != nil {
		return nil, fmt.Errorf("group %s %s body: %w", g.Kind, g.LabelString(), err)
	}

	parse, ok := groupParserFor(g.Kind)
	if !ok {
		d.cfg.logger.Debug("skipping group of unknown kind", "kind", int32(g.Kind))
		g.Unparsed = body.Remaining()
		return g, nil
	}
	parse(d, g, body)
	return g, nil
}

func parseNormalGroup(d *decoder, g *Group, c *cursor.Cursor) {
	if _, ok := d.cfg.groupTypes[g.Label.Tag]; !ok || g.Label.Tag == "" {
		d.cfg.logger.Debug("skipping group", "label", g.Label.Tag, "size", g.Size)
		g.Unparsed = c.Remaining()
		return
	}
	d.parseChildren(g, c, anyChild)
}

// parseTopicGroup reads the responses of a dialogue topic. INFO records
// come first; anything after the last response is parsed generically.
func parseTopicGroup(d *decoder, g *Group, c *cursor.Cursor) {
	if !d.cfg.dialogue {
		g.Unparsed = c.Remaining()
		return
	}
	infos, err := d.parseResponses(c)
	for _, info := range infos {
		g.Children = append(g.Children, info)
	}
	if err != nil {
		d.stopGroup(g, c, c.Pos(), err)
		return
	}
	d.parseChildren(g, c, anyChild)
}

// parseResponses reads consecutive INFO records. It stops without
// consuming at the first tag that is not INFO.
func (d *decoder) parseResponses(c *cursor.Cursor) ([]*Record, error) {
	var infos []*Record
	for !c.EOF() {
		tag, err := c.PeekTag()
		if err != nil {
			return infos, err
		}
		if tag != "INFO" {
			return infos, nil
		}
		start := c.Pos()
		info, err := d.parseRecord(c)
		if err != nil {
			_ = c.Seek(start)
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func childParser(accept childFilter) groupParser {
	return func(d *decoder, g *Group, c *cursor.Cursor) {
		d.parseChildren(g, c, accept)
	}
}

// parseChildren decodes records and groups until the span ends or a child
// is rejected by accept. The rest of the span is kept in Unparsed.
func (d *decoder) parseChildren(g *Group, c *cursor.Cursor, accept childFilter) {
	for !c.EOF() {
		start := c.Pos()
		tag, err := c.PeekTag()
		if err != nil {
			d.stopGroup(g, c, start, err)
			return
		}

		isGroup := tag == groupTag
		var kind GroupKind
		if isGroup {
			kind, err = peekGroupKind(c)
			if err != nil {
				d.stopGroup(g, c, start, err)
				return
			}
		}
		if !accept(isGroup, kind) {
			d.cfg.logger.Debug("unexpected child ends group",
				"group", g.Kind.String(), "label", g.LabelString(), "tag", tag)
			g.Unparsed = c.Remaining()
			return
		}

		var child Node
		if isGroup {
			child, err = d.parseGroup(c)
		} else {
			child, err = d.parseRecord(c)
		}
		if err != nil {
			d.stopGroup(g, c, start, err)
			return
		}
		g.Children = append(g.Children, child)
	}
}

// stopGroup rewinds to start and keeps the rest of the span as unparsed.
func (d *decoder) stopGroup(g *Group, c *cursor.Cursor, start int, err error) {
	_ = c.Seek(start)
	g.Unparsed = c.Remaining()
	g.Err = err
	d.cfg.logger.Warn("group decoding stopped",
		"group", g.Kind.String(), "label", g.LabelString(), "offset", start, "error", err)
}

// nextGroupIs reports whether the cursor is at a GRUP of the given kind.
func (d *decoder) nextGroupIs(c *cursor.Cursor, want GroupKind) bool {
	tag, err := c.PeekTag()
	if err != nil || tag != groupTag {
		return false
	}
	kind, err := peekGroupKind(c)
	return err == nil && kind == want
}

func peekGroupKind(c *cursor.Cursor) (GroupKind, error) {
	hdr, err := c.Peek(16)
	if err != nil {
		return 0, err
	}
	return GroupKind(binary.LittleEndian.Uint32(hdr[12:16])), nil //nolint:gosec // signed on disk
}
