// Package extract projects decoded files into translatable strings.
//
// Every decoder's output is flattened into an ordered list of String
// values. Plugins yield one String per text subrecord, labelled with the
// nearest editor ID. Scripts yield their literal string operands.
// Translation files yield their key/text pairs. Archives yield nothing
// themselves: their members are decoded and extracted individually.
package extract

import (
	"fmt"
	"iter"
	"slices"

	"github.com/meigma/modstrings/mcm"
	"github.com/meigma/modstrings/pex"
	"github.com/meigma/modstrings/plugin"
)

// Field kinds for strings that do not come from plugin subrecords.
const (
	KindScript      = "PEX"
	KindTranslation = "MCM"
)

// KindStringID suffixes the field kind of a localized text field, whose
// text is the hex string table key rather than the text itself.
const KindStringID = "STRINGS"

// responseType is the record type of dialogue responses.
const responseType = "INFO"

// scriptBlacklist holds literal operands that are never user-visible text.
var scriptBlacklist = map[string]struct{}{
	"{0}": {},
}

// String is one extracted piece of text.
type String struct {
	// ContextID identifies where the text lives: an editor ID, a
	// bracketed form ID, a translation key, or empty for scripts.
	ContextID string `json:"context_id"`

	// FieldKind names the field, such as "WEAP FULL", "PEX", or "MCM".
	FieldKind string `json:"field_kind"`

	Text string `json:"text"`
}

// FromPlugin returns the text subrecords of a plugin in file order.
func FromPlugin(p *plugin.Plugin) []String {
	return slices.Collect(PluginStrings(p))
}

// PluginStrings returns an iterator over the text subrecords of a plugin.
//
// Each record is labelled with its own editor ID, else the editor ID of
// the closest preceding record in the same group or an enclosing one,
// else its form ID in brackets. Records owning a group (dialogue topics,
// cells, worldspaces) pass their label down to it, and the responses of a
// dialogue topic always carry the topic's label. The header record is
// not walked. Localized text fields yield their string table key in hex,
// with KindStringID appended to the field kind.
func PluginStrings(p *plugin.Plugin) iter.Seq[String] {
	return func(yield func(String) bool) {
		for _, g := range p.Groups {
			if !walkGroup(g, walkContext{}, yield) {
				return
			}
		}
	}
}

// walkContext carries the editor ID inherited by records that lack one.
// It is passed by value so a group's updates never leak to its parent.
type walkContext struct {
	editorID string

	// topic is set while walking the responses of a dialogue topic, which
	// are all labelled with the topic's label.
	topic bool
}

// response reports whether r is a dialogue response of the walked topic.
func (w walkContext) response(r *plugin.Record) bool {
	return w.topic && r.Type == responseType
}

func (w walkContext) label(r *plugin.Record) string {
	if w.response(r) {
		return w.editorID
	}
	if id, ok := r.EditorID(); ok && id != "" {
		return id
	}
	if w.editorID != "" {
		return w.editorID
	}
	return fmt.Sprintf("[%08X]", r.FormID)
}

func walkGroup(g *plugin.Group, w walkContext, yield func(String) bool) bool {
	for _, child := range g.Children {
		switch n := child.(type) {
		case *plugin.Group:
			inner := w
			inner.topic = false
			if !walkGroup(n, inner, yield) {
				return false
			}
		case *plugin.Record:
			label := w.label(n)
			if id, ok := n.EditorID(); ok && id != "" && !w.response(n) {
				w.editorID = id
			}
			if !walkRecord(n, label, yield) {
				return false
			}
			children := walkContext{editorID: label, topic: n.Kind == plugin.RecordDialogue}
			if n.Children != nil && !walkGroup(n.Children, children, yield) {
				return false
			}
		}
	}
	return true
}

func walkRecord(r *plugin.Record, label string, yield func(String) bool) bool {
	for _, s := range r.Subrecords {
		out := String{ContextID: label, FieldKind: r.Type + " " + s.Type}
		switch v := s.Value.(type) {
		case plugin.Text:
			out.Text = v.String
		case plugin.StringID:
			if v.ID == 0 {
				continue
			}
			out.FieldKind += " " + KindStringID
			out.Text = fmt.Sprintf("%08X", v.ID)
		}
		if out.Text == "" {
			continue
		}
		if !yield(out) {
			return false
		}
	}
	return true
}

// FromScript returns the literal string operands of a script in table
// order. Empty and placeholder-only literals are left out.
func FromScript(s *pex.Script) []String {
	var out []String
	for _, text := range s.Literals() {
		if text == "" {
			continue
		}
		if _, skip := scriptBlacklist[text]; skip {
			continue
		}
		out = append(out, String{FieldKind: KindScript, Text: text})
	}
	return out
}

// FromTranslation returns the entries of a translation file in file order.
func FromTranslation(t *mcm.Translation) []String {
	out := make([]String, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, String{ContextID: e.Key, FieldKind: KindTranslation, Text: e.Text})
	}
	return out
}
