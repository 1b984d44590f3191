package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tu "github.com/meigma/modstrings/internal/testutil"
	"github.com/meigma/modstrings/mcm"
	"github.com/meigma/modstrings/pex"
	"github.com/meigma/modstrings/plugin"
)

func decodePlugin(t *testing.T, data []byte) *plugin.Plugin {
	t.Helper()
	p, err := plugin.Decode(data)
	require.NoError(t, err)
	return p
}

func TestFromPlugin_EndToEnd(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(0),
		tu.TopGroup("WEAP",
			tu.Record("WEAP", 0, 0x800,
				tu.SubString("EDID", "TestEDID"),
				tu.SubString("FULL", "Hello"),
			),
		),
	))

	assert.Equal(t, []String{{ContextID: "TestEDID", FieldKind: "WEAP FULL", Text: "Hello"}}, FromPlugin(p))
}

func TestFromPlugin_Labels(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(0, "Skyrim.esm"),
		tu.TopGroup("BOOK",
			tu.Record("BOOK", 0, 0x10, tu.SubString("FULL", "Anonymous Book")),
			tu.Record("BOOK", 0, 0x11,
				tu.SubString("EDID", "BookA"),
				tu.SubString("FULL", "Book A"),
				tu.SubString("DESC", "Once upon a time"),
				tu.SubString("MODL", `meshes\book.nif`),
			),
			tu.Record("BOOK", 0, 0x12, tu.SubString("FULL", "Book A Sequel")),
		),
		tu.TopGroup("MISC",
			tu.Record("MISC", 0, 0x20, tu.SubString("FULL", "Trinket")),
		),
	))

	assert.Equal(t, []String{
		{ContextID: "[00000010]", FieldKind: "BOOK FULL", Text: "Anonymous Book"},
		{ContextID: "BookA", FieldKind: "BOOK FULL", Text: "Book A"},
		{ContextID: "BookA", FieldKind: "BOOK DESC", Text: "Once upon a time"},
		{ContextID: "BookA", FieldKind: "BOOK FULL", Text: "Book A Sequel"},
		{ContextID: "[00000020]", FieldKind: "MISC FULL", Text: "Trinket"},
	}, FromPlugin(p))
}

func TestFromPlugin_Dialogue(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(0),
		tu.TopGroup("DIAL",
			tu.Record("DIAL", 0, 0x100,
				tu.SubString("EDID", "GreetingTopic"),
				tu.SubString("FULL", "Greetings"),
				tu.SubUint32("TIFC", 3),
			),
			tu.Group(tu.FormLabel(0x100), tu.GroupTopicChildren,
				tu.Record("INFO", 0, 0x101, tu.SubString("NAM1", "Hello, traveller.")),
				tu.Record("INFO", 0, 0x102, tu.SubString("NAM1", "Safe roads."), tu.SubString("RNAM", "Farewell")),
				tu.Record("INFO", 0, 0x103, tu.SubString("NAM1", "Begone!")),
			),
			tu.Record("DIAL", 0, 0x200, tu.SubString("FULL", "Unnamed topic")),
		),
	))

	assert.Equal(t, []String{
		{ContextID: "GreetingTopic", FieldKind: "DIAL FULL", Text: "Greetings"},
		{ContextID: "GreetingTopic", FieldKind: "INFO NAM1", Text: "Hello, traveller."},
		{ContextID: "GreetingTopic", FieldKind: "INFO NAM1", Text: "Safe roads."},
		{ContextID: "GreetingTopic", FieldKind: "INFO RNAM", Text: "Farewell"},
		{ContextID: "GreetingTopic", FieldKind: "INFO NAM1", Text: "Begone!"},
		{ContextID: "GreetingTopic", FieldKind: "DIAL FULL", Text: "Unnamed topic"},
	}, FromPlugin(p))
}

func TestFromPlugin_DialogueResponseEditorID(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(0),
		tu.TopGroup("DIAL",
			tu.Record("DIAL", 0, 0x100, tu.SubString("EDID", "Topic"), tu.SubUint32("TIFC", 2)),
			tu.Group(tu.FormLabel(0x100), tu.GroupTopicChildren,
				tu.Record("INFO", 0, 0x101, tu.SubString("EDID", "InfoOne"), tu.SubString("NAM1", "First")),
				tu.Record("INFO", 0, 0x102, tu.SubString("NAM1", "Second")),
			),
			tu.Record("DIAL", 0, 0x200, tu.SubString("FULL", "Next topic")),
		),
	))

	assert.Equal(t, []String{
		{ContextID: "Topic", FieldKind: "INFO NAM1", Text: "First"},
		{ContextID: "Topic", FieldKind: "INFO NAM1", Text: "Second"},
		{ContextID: "Topic", FieldKind: "DIAL FULL", Text: "Next topic"},
	}, FromPlugin(p))
}

func TestFromPlugin_GroupScope(t *testing.T) {
	t.Parallel()

	const cellID = 0x1234
	p := decodePlugin(t, tu.Plugin(tu.Header(0),
		tu.TopGroup("CELL",
			tu.Group(tu.FormLabel(0), tu.GroupInteriorCellBlock,
				tu.Group(tu.FormLabel(0), tu.GroupInteriorCellSubBlock,
					tu.Record("CELL", 0, cellID, tu.SubString("EDID", "DungeonCell"), tu.SubString("FULL", "Dungeon")),
					tu.Group(tu.FormLabel(cellID), tu.GroupCellChildren,
						tu.Group(tu.FormLabel(cellID), tu.GroupCellPersistentChildren,
							tu.Record("ACTI", 0, 0x2000, tu.SubString("EDID", "Lever"), tu.SubString("FULL", "Pull Lever")),
							tu.Record("ACTI", 0, 0x2001, tu.SubString("FULL", "Chain")),
						),
					),
					tu.Record("CELL", 0, cellID+1, tu.SubString("FULL", "Antechamber")),
				),
			),
		),
	))

	// The lever's editor ID does not leak out of the cell's child group.
	assert.Equal(t, []String{
		{ContextID: "DungeonCell", FieldKind: "CELL FULL", Text: "Dungeon"},
		{ContextID: "Lever", FieldKind: "ACTI FULL", Text: "Pull Lever"},
		{ContextID: "Lever", FieldKind: "ACTI FULL", Text: "Chain"},
		{ContextID: "DungeonCell", FieldKind: "CELL FULL", Text: "Antechamber"},
	}, FromPlugin(p))
}

func TestFromPlugin_Localized(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(tu.RecordLocalized),
		tu.TopGroup("WEAP",
			tu.Record("WEAP", tu.RecordLocalized, 0x800,
				tu.SubString("EDID", "Sword"),
				tu.SubUint32("FULL", 0x2A),
				tu.SubUint32("DESC", 0),
			),
		),
	))
	assert.Equal(t, []String{
		{ContextID: "Sword", FieldKind: "WEAP FULL STRINGS", Text: "0000002A"},
	}, FromPlugin(p))
}

func TestPluginStrings_StopsEarly(t *testing.T) {
	t.Parallel()

	p := decodePlugin(t, tu.Plugin(tu.Header(0),
		tu.TopGroup("MISC",
			tu.Record("MISC", 0, 1, tu.SubString("FULL", "One")),
			tu.Record("MISC", 0, 2, tu.SubString("FULL", "Two")),
		),
	))

	var got []string
	for s := range PluginStrings(p) {
		got = append(got, s.Text)
		break
	}
	assert.Equal(t, []string{"One"}, got)
}

func TestFromScript(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").
		Strings("Obj", "", "Hello there", "{0}", "Goodbye").
		NoDebug().U16(0).
		U16(1).Object(0, func(w *tu.PexWriter) {
			w.U16(1).U16(1).U32(0).U16(1).U16(0).U16(0).U16(0)
		}).Bytes()
	s, err := pex.Decode(data)
	require.NoError(t, err)

	assert.Equal(t, []String{
		{FieldKind: KindScript, Text: "Hello there"},
		{FieldKind: KindScript, Text: "Goodbye"},
	}, FromScript(s))
}

func TestFromTranslation(t *testing.T) {
	t.Parallel()

	tr, err := mcm.Decode([]byte("\xef\xbb\xbf$Title\tMy Mod\n$Desc\tDoes things\n"))
	require.NoError(t, err)

	assert.Equal(t, []String{
		{ContextID: "$Title", FieldKind: KindTranslation, Text: "My Mod"},
		{ContextID: "$Desc", FieldKind: KindTranslation, Text: "Does things"},
	}, FromTranslation(tr))
}

func TestString_JSON(t *testing.T) {
	t.Parallel()

	out, err := json.Marshal(String{ContextID: "TestEDID", FieldKind: "WEAP FULL", Text: "Hello"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"context_id":"TestEDID","field_kind":"WEAP FULL","text":"Hello"}`, string(out))
}
