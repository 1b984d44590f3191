package pex

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/meigma/modstrings/internal/cursor"
	tu "github.com/meigma/modstrings/internal/testutil"
)

// sampleTable indices.
const (
	sObject uint16 = iota
	sParent
	sEmpty
	sVarName
	sInt
	sHello
	sDebug
	sNotification
	sOnInit
	sNone
	sTemp
	sLiteral
	sFlag
)

var sampleTable = []string{
	"MyQuest", "Quest", "", "count", "Int", "Hello there", "Debug",
	"Notification", "OnInit", "None", "::temp0", "Second literal", "conditional",
}

// questObject writes an object with one variable and an OnInit function
// that passes a string literal to a static call.
func questObject(w *tu.PexWriter) {
	w.U16(sParent).U16(sEmpty).U32(0).U16(sEmpty)

	// Variables.
	w.U16(1).U16(sVarName).U16(sInt).U32(0).IntValue(5)

	// Properties.
	w.U16(0)

	// States: the default state with OnInit.
	w.U16(1).U16(sEmpty).U16(1).U16(sOnInit)
	w.U16(sNone).U16(sEmpty).U32(0).U8(0)
	// No params, one local, two instructions.
	w.U16(0)
	w.U16(1).U16(sTemp).U16(sNone)
	w.U16(2)
	w.U8(25).IdentValue(sDebug).IdentValue(sNotification).IdentValue(sTemp).
		IntValue(1).StringValue(sHello)
	w.U8(26).NullValue()
}

func sampleScript(debug bool) []byte {
	w := (&tu.PexWriter{}).Header("MyQuest.psc").Strings(sampleTable...)
	if debug {
		w.U8(1).U64(1700000001).U16(1).
			U16(sObject).U16(sEmpty).U16(sOnInit).U8(0).U16(2).U16(10).U16(11)
	} else {
		w.NoDebug()
	}
	w.U16(1).U16(sFlag).U8(1)
	w.U16(1).Object(sObject, questObject)
	return w.Bytes()
}

func TestDecode(t *testing.T) {
	t.Parallel()

	s, err := Decode(sampleScript(false))
	require.NoError(t, err)

	assert.Equal(t, uint8(3), s.Header.Major)
	assert.Equal(t, uint8(2), s.Header.Minor)
	assert.Equal(t, uint16(1), s.Header.GameID)
	assert.Equal(t, "MyQuest.psc", s.Header.Source)
	assert.Equal(t, "user", s.Header.User)
	assert.Equal(t, "machine", s.Header.Machine)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.Header.Compiled())
	assert.Nil(t, s.Debug)

	require.Len(t, s.UserFlags, 1)
	assert.Equal(t, UserFlag{Name: "conditional", Bit: 1}, s.UserFlags[0])

	require.Len(t, s.Objects, 1)
	obj := s.Objects[0]
	require.NoError(t, obj.Err)
	assert.Empty(t, obj.Unparsed)
	assert.Equal(t, "MyQuest", obj.Name)
	assert.Equal(t, "Quest", obj.Parent)
	assert.Equal(t, []Variable{{Name: "count", Type: "Int", Value: Value{Type: ValueInt, Int: 5}}}, obj.Variables)

	require.Len(t, obj.States, 1)
	require.Len(t, obj.States[0].Functions, 1)
	fn := obj.States[0].Functions[0]
	assert.Equal(t, "OnInit", fn.Name)
	assert.Equal(t, "None", fn.ReturnType)
	assert.Equal(t, []Param{{Name: "::temp0", Type: "None"}}, fn.Locals)
	require.Len(t, fn.Instructions, 2)

	call := fn.Instructions[0]
	assert.Equal(t, Opcode(25), call.Op)
	assert.Equal(t, "callstatic", call.Op.String())
	require.Len(t, call.Args, 4)
	assert.Equal(t, Value{Type: ValueString, Index: sHello, Text: "Hello there"}, call.Args[3])
	assert.Equal(t, "return", fn.Instructions[1].Op.String())
}

func TestDecode_Literals(t *testing.T) {
	t.Parallel()

	s, err := Decode(sampleScript(false))
	require.NoError(t, err)

	var used int
	for i := range s.Strings.Len() {
		if s.Strings.Used(uint16(i)) { //nolint:gosec // small fixture table
			used++
		}
	}
	literals := s.Literals()
	assert.Len(t, literals, s.Strings.Len()-used)
	assert.Equal(t, []string{"Hello there", "Second literal"}, literals)

	// String operands do not mark, identifier operands do.
	assert.False(t, s.Strings.Used(sHello))
	assert.True(t, s.Strings.Used(sNotification))
	assert.True(t, s.Strings.Used(sTemp))
}

func TestDecode_DebugInfo(t *testing.T) {
	t.Parallel()

	s, err := Decode(sampleScript(true))
	require.NoError(t, err)
	require.NotNil(t, s.Debug)
	assert.Equal(t, uint64(1700000001), s.Debug.ModificationTime)
	assert.Equal(t, []DebugFunction{{
		Object:   "MyQuest",
		Function: "OnInit",
		Lines:    []uint16{10, 11},
	}}, s.Debug.Functions)
	assert.Equal(t, []string{"Hello there", "Second literal"}, s.Literals())
}

func TestDecode_EmptyEntriesKept(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").
		Strings("first", "", "Obj", "last").
		NoDebug().U16(0).
		U16(1).Object(2, func(w *tu.PexWriter) {
			w.U16(2).U16(2).U32(0).U16(2).U16(0).U16(0).U16(0)
		}).Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Strings.Len())
	assert.Equal(t, []string{"first", "", "last"}, s.Literals())
}

func TestStringTable(t *testing.T) {
	t.Parallel()

	table := newStringTable([]string{"a", "b"})

	got, ok := table.Get(1)
	assert.True(t, ok)
	assert.Equal(t, "b", got)
	assert.False(t, table.Used(1))

	_, ok = table.Get(7)
	assert.False(t, ok)

	assert.Equal(t, "7", table.Lookup(7))
	assert.False(t, table.Used(7))

	assert.Equal(t, "a", table.Lookup(0))
	assert.True(t, table.Used(0))
	assert.Equal(t, []string{"b"}, table.Unused())

	var all []string
	for _, s := range table.All() {
		all = append(all, s)
	}
	assert.Equal(t, []string{"a", "b"}, all)
}

func TestDecode_OutOfRangeIndex(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").Strings("Obj").NoDebug().
		U16(1).U16(40).U8(0).
		U16(0).Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, "40", s.UserFlags[0].Name)
	assert.Equal(t, []string{"Obj"}, s.Literals())
}

func TestDecode_ContainedObjectFailure(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").Strings("Broken", "Good", "", "x", "Int").
		NoDebug().U16(0).
		U16(2).
		Object(0, func(w *tu.PexWriter) {
			w.U16(2).U16(2).U32(0).U16(2)
			w.U16(1).U16(3).U16(4).U32(0).U8(9) // unknown value tag
			w.Raw([]byte("junk"))
		}).
		Object(1, func(w *tu.PexWriter) {
			w.U16(2).U16(2).U32(0).U16(2)
			w.U16(1).U16(3).U16(4).U32(0).IntValue(1)
			w.U16(0).U16(0)
		}).Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	require.Len(t, s.Objects, 2)

	broken := s.Objects[0]
	require.ErrorIs(t, broken.Err, ErrInvalidValue)
	assert.Equal(t, []byte("junk"), broken.Unparsed)
	assert.Empty(t, broken.Variables)

	good := s.Objects[1]
	require.NoError(t, good.Err)
	assert.Equal(t, "Good", good.Name)
	require.Len(t, good.Variables, 1)
	assert.Equal(t, int32(1), good.Variables[0].Value.Int)
}

func TestDecode_ObjectSizeMismatch(t *testing.T) {
	t.Parallel()

	const (
		obj uint16 = iota
		parent
		empty
		variable
		intType
	)
	body := func(w *tu.PexWriter) {
		w.U16(parent).U16(empty).U32(0).U16(empty)
		w.U16(1).U16(variable).U16(intType).U32(0).NullValue()
		w.U16(0).U16(0)
	}
	bodyBytes := &tu.PexWriter{}
	body(bodyBytes)

	tests := []struct {
		name string
		size uint32
	}{
		{"too small", 4},
		{"too large", 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			data := (&tu.PexWriter{}).Header("a.psc").
				Strings("Obj", "Parent", "", "v", "Int", "lit").
				NoDebug().U16(0).
				U16(2).
				U16(obj).U32(tt.size).Raw(bodyBytes.Bytes()).
				Object(obj, body).
				Bytes()

			s, err := Decode(data)
			require.NoError(t, err)
			require.Len(t, s.Objects, 2)
			for _, o := range s.Objects {
				require.NoError(t, o.Err)
				assert.Equal(t, "Parent", o.Parent)
				assert.Equal(t, []Variable{{Name: "v", Type: "Int", Value: Value{Type: ValueNull}}}, o.Variables)
			}
			assert.Equal(t, tt.size, s.Objects[0].Size)
			assert.Equal(t, []string{"lit"}, s.Literals())
		})
	}
}

func TestDecode_InvalidOpcode(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").Strings("Obj", "", "Fn", "None").
		NoDebug().U16(0).
		U16(1).Object(0, func(w *tu.PexWriter) {
			w.U16(1).U16(1).U32(0).U16(1).U16(0).U16(0)
			w.U16(1).U16(1).U16(1).U16(2)
			w.U16(3).U16(1).U32(0).U8(0).U16(0).U16(0)
			w.U16(1).U8(99)
		}).Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	require.ErrorIs(t, s.Objects[0].Err, ErrInvalidOpcode)
}

func TestDecode_Properties(t *testing.T) {
	t.Parallel()

	const (
		obj uint16 = iota
		empty
		count
		intType
		backing
		name
		strType
		literal
	)
	data := (&tu.PexWriter{}).Header("a.psc").
		Strings("Obj", "", "Count", "Int", "::Count_var", "Name", "String", "Literal").
		NoDebug().U16(0).
		U16(1).Object(obj, func(w *tu.PexWriter) {
			w.U16(empty).U16(empty).U32(0).U16(empty).U16(0)
			w.U16(2)
			w.U16(count).U16(intType).U16(empty).U32(0).U8(PropertyRead | PropertyWrite | PropertyAuto).U16(backing)
			w.U16(name).U16(strType).U16(empty).U32(0).U8(PropertyRead)
			w.U16(strType).U16(empty).U32(0).U8(0).U16(0).U16(0)
			w.U16(1).U8(26).StringValue(literal)
			w.U16(0)
		}).Bytes()

	s, err := Decode(data)
	require.NoError(t, err)
	o := s.Objects[0]
	require.NoError(t, o.Err)
	require.Len(t, o.Properties, 2)

	assert.True(t, o.Properties[0].Auto())
	assert.Equal(t, "::Count_var", o.Properties[0].AutoVar)
	assert.Nil(t, o.Properties[0].Read)

	p := o.Properties[1]
	assert.False(t, p.Auto())
	require.NotNil(t, p.Read)
	assert.Nil(t, p.Write)
	assert.Equal(t, "String", p.Read.ReturnType)
	assert.Equal(t, "Literal", p.Read.Instructions[0].Args[0].Text)
	assert.Equal(t, []string{"Literal"}, s.Literals())
}

func TestDecode_MalformedHeader(t *testing.T) {
	t.Parallel()

	valid := sampleScript(false)
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"bad magic", append([]byte{0xDE, 0xC0, 0x57, 0xFA}, valid[4:]...)},
		{"truncated", valid[:12]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(tt.data)
			require.ErrorIs(t, err, ErrMalformedHeader)
		})
	}
}

func TestDecode_Truncated(t *testing.T) {
	t.Parallel()

	full := sampleScript(true)
	header := len((&tu.PexWriter{}).Header("MyQuest.psc").Bytes())

	tests := []struct {
		name string
		size int
	}{
		{"string table", header + 5},
		{"object span", len(full) - 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Decode(full[:tt.size])
			require.ErrorIs(t, err, cursor.ErrTruncated)
		})
	}
}

func TestDecode_ObjectSizeTooSmall(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").Strings("Obj").NoDebug().U16(0).
		U16(1).U16(0).U32(2).Bytes()
	_, err := Decode(data)
	require.ErrorIs(t, err, cursor.ErrTruncated)
}

func TestDecode_LegacyEncoding(t *testing.T) {
	t.Parallel()

	data := (&tu.PexWriter{}).Header("a.psc").
		U16(1).U16(5).Raw([]byte("Caf\xe9!")).
		NoDebug().U16(0).U16(0).Bytes()

	s, err := Decode(data, WithLegacyEncoding(charmap.Windows1252))
	require.NoError(t, err)
	assert.Equal(t, []string{"Café!"}, s.Literals())

	s, err = Decode(data)
	require.NoError(t, err)
	assert.Equal(t, []string{"Caf\xe9!"}, s.Literals())
}

func TestParse(t *testing.T) {
	t.Parallel()

	s, err := Parse(bytes.NewReader(sampleScript(false)))
	require.NoError(t, err)
	assert.Len(t, s.Objects, 1)
}

func TestOpen(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "MyQuest.pex")
	require.NoError(t, os.WriteFile(path, sampleScript(true), 0o600))

	s, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, "MyQuest.psc", s.Header.Source)

	_, err = Open(filepath.Join(t.TempDir(), "missing.pex"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestStringers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nop", Opcode(0).String())
	assert.Equal(t, "array_rfindelement", Opcode(35).String())
	assert.Equal(t, "Opcode(36)", Opcode(36).String())
	assert.Equal(t, "identifier", ValueIdentifier.String())
	assert.Equal(t, "ValueType(9)", ValueType(9).String())
}
