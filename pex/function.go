package pex

import (
	"fmt"

	"github.com/meigma/modstrings/internal/cursor"
)

// Property flag bits.
const (
	PropertyRead  uint8 = 1 << 0
	PropertyWrite uint8 = 1 << 1
	PropertyAuto  uint8 = 1 << 2
)

// Property is an object property. Auto properties are backed by AutoVar;
// the others carry getter and setter functions.
type Property struct {
	Name      string
	Type      string
	Doc       string
	UserFlags uint32
	Flags     uint8
	AutoVar   string
	Read      *Function
	Write     *Function
}

// Auto reports whether the property is backed by a variable.
func (p Property) Auto() bool {
	return p.Flags&PropertyAuto != 0
}

// State is a named set of functions. The empty name is the default state.
type State struct {
	Name      string
	Functions []NamedFunction
}

// NamedFunction is a function declared in a state.
type NamedFunction struct {
	Name string
	Function
}

// Function flag bits.
const (
	FunctionGlobal uint8 = 1 << 0
	FunctionNative uint8 = 1 << 1
)

// Function is a function signature with its instruction stream.
type Function struct {
	ReturnType   string
	Doc          string
	UserFlags    uint32
	Flags        uint8
	Params       []Param
	Locals       []Param
	Instructions []Instruction
}

// Param is a named, typed parameter or local.
type Param struct {
	Name string
	Type string
}

// Instruction is one opcode with its operands. Variadic operands follow
// the fixed ones.
type Instruction struct {
	Op   Opcode
	Args []Value
}

// Opcode is a bytecode operation.
type Opcode uint8

type opcodeInfo struct {
	name     string
	args     int
	variadic bool
}

var opcodes = [...]opcodeInfo{
	{"nop", 0, false},
	{"iadd", 3, false},
	{"fadd", 3, false},
	{"isub", 3, false},
	{"fsub", 3, false},
	{"imul", 3, false},
	{"fmul", 3, false},
	{"idiv", 3, false},
	{"fdiv", 3, false},
	{"imod", 3, false},
	{"not", 2, false},
	{"ineg", 2, false},
	{"fneg", 2, false},
	{"assign", 2, false},
	{"cast", 2, false},
	{"cmp_eq", 3, false},
	{"cmp_lt", 3, false},
	{"cmp_le", 3, false},
	{"cmp_gt", 3, false},
	{"cmp_ge", 3, false},
	{"jmp", 1, false},
	{"jmpt", 2, false},
	{"jmpf", 2, false},
	{"callmethod", 3, true},
	{"callparent", 2, true},
	{"callstatic", 3, true},
	{"return", 1, false},
	{"strcat", 3, false},
	{"propget", 3, false},
	{"propset", 3, false},
	{"array_create", 2, false},
	{"array_length", 2, false},
	{"array_getelement", 3, false},
	{"array_setelement", 3, false},
	{"array_findelement", 4, false},
	{"array_rfindelement", 4, false},
}

// String returns the assembler mnemonic of the opcode.
func (o Opcode) String() string {
	if int(o) < len(opcodes) {
		return opcodes[o].name
	}
	return fmt.Sprintf("Opcode(%d)", uint8(o))
}

func (d *decoder) parseProperties(c *cursor.Cursor) ([]Property, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	props := make([]Property, 0, n)
	for range n {
		p, err := d.parseProperty(c)
		if err != nil {
			return props, fmt.Errorf("property %q: %w", p.Name, err)
		}
		props = append(props, p)
	}
	return props, nil
}

func (d *decoder) parseProperty(c *cursor.Cursor) (Property, error) {
	var p Property
	var err error
	for _, dst := range []*string{&p.Name, &p.Type, &p.Doc} {
		if *dst, err = d.name(c); err != nil {
			return p, err
		}
	}
	if p.UserFlags, err = c.Uint32(); err != nil {
		return p, err
	}
	if p.Flags, err = c.Uint8(); err != nil {
		return p, err
	}
	if p.Auto() {
		p.AutoVar, err = d.name(c)
		return p, err
	}
	if p.Flags&PropertyRead != 0 {
		if p.Read, err = d.parseFunction(c); err != nil {
			return p, fmt.Errorf("getter: %w", err)
		}
	}
	if p.Flags&PropertyWrite != 0 {
		if p.Write, err = d.parseFunction(c); err != nil {
			return p, fmt.Errorf("setter: %w", err)
		}
	}
	return p, nil
}

func (d *decoder) parseStates(c *cursor.Cursor) ([]State, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	states := make([]State, 0, n)
	for range n {
		var s State
		if s.Name, err = d.name(c); err != nil {
			return states, err
		}
		count, err := c.Uint16()
		if err != nil {
			return states, err
		}
		for range count {
			var fn NamedFunction
			if fn.Name, err = d.name(c); err != nil {
				return states, err
			}
			f, err := d.parseFunction(c)
			if err != nil {
				return states, fmt.Errorf("function %q: %w", fn.Name, err)
			}
			fn.Function = *f
			s.Functions = append(s.Functions, fn)
		}
		states = append(states, s)
	}
	return states, nil
}

func (d *decoder) parseFunction(c *cursor.Cursor) (*Function, error) {
	f := &Function{}
	var err error
	if f.ReturnType, err = d.name(c); err != nil {
		return nil, err
	}
	if f.Doc, err = d.name(c); err != nil {
		return nil, err
	}
	if f.UserFlags, err = c.Uint32(); err != nil {
		return nil, err
	}
	if f.Flags, err = c.Uint8(); err != nil {
		return nil, err
	}
	if f.Params, err = d.parseParams(c); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if f.Locals, err = d.parseParams(c); err != nil {
		return nil, fmt.Errorf("locals: %w", err)
	}

	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	f.Instructions = make([]Instruction, 0, n)
	for i := range int(n) {
		ins, err := d.parseInstruction(c)
		if err != nil {
			return nil, fmt.Errorf("instruction %d: %w", i, err)
		}
		f.Instructions = append(f.Instructions, ins)
	}
	return f, nil
}

func (d *decoder) parseParams(c *cursor.Cursor) ([]Param, error) {
	n, err := c.Uint16()
	if err != nil {
		return nil, err
	}
	params := make([]Param, n)
	for i := range params {
		if params[i].Name, err = d.name(c); err != nil {
			return nil, err
		}
		if params[i].Type, err = d.name(c); err != nil {
			return nil, err
		}
	}
	return params, nil
}

func (d *decoder) parseInstruction(c *cursor.Cursor) (Instruction, error) {
	op, err := c.Uint8()
	if err != nil {
		return Instruction{}, err
	}
	if int(op) >= len(opcodes) {
		return Instruction{}, fmt.Errorf("%w: %d at offset %d", ErrInvalidOpcode, op, c.Pos()-1)
	}
	info := opcodes[op]
	ins := Instruction{Op: Opcode(op), Args: make([]Value, 0, info.args)}
	for range info.args {
		v, err := d.parseValue(c)
		if err != nil {
			return ins, err
		}
		ins.Args = append(ins.Args, v)
	}
	if !info.variadic {
		return ins, nil
	}

	count, err := d.parseValue(c)
	if err != nil {
		return ins, err
	}
	if count.Type != ValueInt || count.Int < 0 {
		return ins, fmt.Errorf("%w: variadic count of type %s", ErrInvalidValue, count.Type)
	}
	for range count.Int {
		v, err := d.parseValue(c)
		if err != nil {
			return ins, err
		}
		ins.Args = append(ins.Args, v)
	}
	return ins, nil
}
