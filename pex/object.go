package pex

import (
	"fmt"
	"strconv"

	"github.com/meigma/modstrings/internal/cursor"
)

// DebugInfo holds per-function line tables.
type DebugInfo struct {
	ModificationTime uint64
	Functions        []DebugFunction
}

// DebugFunction maps the instructions of one function to source lines.
type DebugFunction struct {
	Object   string
	State    string
	Function string

	// Type is 0 for methods, 1 for property getters and 2 for setters.
	Type uint8

	// Lines holds one source line per instruction.
	Lines []uint16
}

// UserFlag names a bit of the user flag fields.
type UserFlag struct {
	Name string
	Bit  uint8
}

// Object is a script object, usually one per script.
type Object struct {
	Name string

	// Size is the declared size of the object, including its size field.
	Size uint32

	Parent     string
	Doc        string
	UserFlags  uint32
	AutoState  string
	Variables  []Variable
	Properties []Property
	States     []State

	// Unparsed holds the bytes of the object body that could not be decoded.
	Unparsed []byte

	// Err is the failure that stopped decoding of the object body.
	Err error
}

// Variable is an object-level variable with its initial value.
type Variable struct {
	Name      string
	Type      string
	UserFlags uint32
	Value     Value
}

// ValueType is the tag of a Value.
type ValueType uint8

// Value types.
const (
	ValueNull ValueType = iota
	ValueIdentifier
	ValueString
	ValueInt
	ValueFloat
	ValueBool
)

var valueTypeNames = [...]string{"null", "identifier", "string", "integer", "float", "bool"}

// String returns the lowercase name of the value type.
func (t ValueType) String() string {
	if int(t) < len(valueTypeNames) {
		return valueTypeNames[t]
	}
	return fmt.Sprintf("ValueType(%d)", uint8(t))
}

// Value is a tagged constant or reference.
type Value struct {
	Type ValueType

	// Index is the table index of identifier and string values.
	Index uint16

	// Text is the resolved identifier or string.
	Text string

	Int   int32
	Float float32
	Bool  bool
}

func (d *decoder) parseValue(c *cursor.Cursor) (Value, error) {
	tag, err := c.Uint8()
	if err != nil {
		return Value{}, err
	}
	v := Value{Type: ValueType(tag)}
	switch v.Type {
	case ValueNull:
	case ValueIdentifier:
		if v.Index, err = c.Uint16(); err == nil {
			v.Text = d.table.Lookup(v.Index)
		}
	case ValueString:
		// String operands are the literals; they do not mark the table.
		if v.Index, err = c.Uint16(); err == nil {
			var ok bool
			if v.Text, ok = d.table.Get(v.Index); !ok {
				v.Text = strconv.Itoa(int(v.Index))
			}
		}
	case ValueInt:
		v.Int, err = c.Int32()
	case ValueFloat:
		v.Float, err = c.Float32()
	case ValueBool:
		var b uint8
		b, err = c.Uint8()
		v.Bool = b != 0
	default:
		return Value{}, fmt.Errorf("%w: %d at offset %d", ErrInvalidValue, tag, c.Pos()-1)
	}
	if err != nil {
		return Value{}, err
	}
	return v, nil
}

func (d *decoder) parseDebugInfo(c *cursor.Cursor) (*DebugInfo, error) {
	present, err := c.Uint8()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		return nil, nil
	}

	info := &DebugInfo{}
	if info.ModificationTime, err = c.Uint64(); err != nil {
		return nil, err
	}
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	info.Functions = make([]DebugFunction, n)
	for i := range info.Functions {
		if err := d.parseDebugFunction(c, &info.Functions[i]); err != nil {
			return nil, fmt.Errorf("function %d: %w", i, err)
		}
	}
	return info, nil
}

func (d *decoder) parseDebugFunction(c *cursor.Cursor, fn *DebugFunction) error {
	var err error
	for _, dst := range []*string{&fn.Object, &fn.State, &fn.Function} {
		if *dst, err = d.name(c); err != nil {
			return err
		}
	}
	if fn.Type, err = c.Uint8(); err != nil {
		return err
	}
	n, err := c.Uint16()
	if err != nil {
		return err
	}
	fn.Lines = make([]uint16, n)
	for i := range fn.Lines {
		if fn.Lines[i], err = c.Uint16(); err != nil {
			return err
		}
	}
	return nil
}

func (d *decoder) parseUserFlags(c *cursor.Cursor) ([]UserFlag, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	flags := make([]UserFlag, n)
	for i := range flags {
		if flags[i].Name, err = d.name(c); err != nil {
			return nil, err
		}
		if flags[i].Bit, err = c.Uint8(); err != nil {
			return nil, err
		}
	}
	return flags, nil
}

// parseObjects reads the object list. Object bodies are self-describing
// and are decoded from the script cursor; the declared size is only
// compared against the decoded span. When a body fails to decode inside
// its declared span, the failure is kept on the object and decoding
// resumes at the declared end.
func (d *decoder) parseObjects(c *cursor.Cursor) ([]*Object, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	objects := make([]*Object, 0, n)
	for i := range int(n) {
		obj := &Object{}
		if obj.Name, err = d.name(c); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		start := c.Pos()
		if obj.Size, err = c.Uint32(); err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		declaredEnd := start + int(obj.Size)

		if bodyErr := d.parseObjectBody(c, obj); bodyErr != nil {
			if err := d.resync(c, obj, declaredEnd, bodyErr); err != nil {
				return nil, fmt.Errorf("object %d: %w", i, err)
			}
		} else if c.Pos() != declaredEnd {
			d.log().Warn("object size differs from declared size",
				"object", obj.Name, "declared", obj.Size, "decoded", c.Pos()-start)
		}
		objects = append(objects, obj)
	}
	return objects, nil
}

// resync contains a body failure by moving the cursor to the declared end
// of the object, keeping the undecoded bytes. It returns cause when the
// declared end cannot be reached from the failure point.
func (d *decoder) resync(c *cursor.Cursor, obj *Object, declaredEnd int, cause error) error {
	failed := c.Pos()
	if failed > declaredEnd || declaredEnd > c.Size() {
		return cause
	}
	rest, err := c.Bytes(declaredEnd - failed)
	if err != nil {
		return cause
	}
	obj.Err = cause
	obj.Unparsed = rest
	d.log().Warn("object body not fully decoded",
		"object", obj.Name, "offset", failed, "error", cause)
	return nil
}

func (d *decoder) parseObjectBody(c *cursor.Cursor, obj *Object) error {
	var err error
	if obj.Parent, err = d.name(c); err != nil {
		return err
	}
	if obj.Doc, err = d.name(c); err != nil {
		return err
	}
	if obj.UserFlags, err = c.Uint32(); err != nil {
		return err
	}
	if obj.AutoState, err = d.name(c); err != nil {
		return err
	}
	if obj.Variables, err = d.parseVariables(c); err != nil {
		return fmt.Errorf("variables: %w", err)
	}
	if obj.Properties, err = d.parseProperties(c); err != nil {
		return fmt.Errorf("properties: %w", err)
	}
	if obj.States, err = d.parseStates(c); err != nil {
		return fmt.Errorf("states: %w", err)
	}
	return nil
}

func (d *decoder) parseVariables(c *cursor.Cursor) ([]Variable, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	vars := make([]Variable, 0, n)
	for range n {
		var v Variable
		if v.Name, err = d.name(c); err != nil {
			return vars, err
		}
		if v.Type, err = d.name(c); err != nil {
			return vars, err
		}
		if v.UserFlags, err = c.Uint32(); err != nil {
			return vars, err
		}
		if v.Value, err = d.parseValue(c); err != nil {
			return vars, err
		}
		vars = append(vars, v)
	}
	return vars, nil
}
