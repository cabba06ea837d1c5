// Package symbols maintains NIC's global, static, const, local and function
// symbol tables (spec.md §3 "Variable tables" and §4.6). Variable name-to-id
// lookups (Table) are backed by github.com/dolthub/swiss, the same generic
// hash map the
// teacher repository uses for its own map value type
// (lang/machine/map.go) — here used for what it is actually good at: fast
// string-keyed id lookup, with no per-entry allocation churn as scripts grow
// hundreds of globals.
package symbols

import (
	"fmt"

	"github.com/dolthub/swiss"
)

// ValueKind is one of the three scalar kinds a NIC value can have.
type ValueKind int8

const (
	Int ValueKind = iota
	Byte
	Str
)

func (k ValueKind) String() string {
	switch k {
	case Int:
		return "int"
	case Byte:
		return "byte"
	case Str:
		return "string"
	default:
		return "invalid"
	}
}

// Scalar is one global or local scalar variable's compile-time bookkeeping.
type Scalar struct {
	Name      string
	Kind      ValueKind
	Initial   int // initial/const int value, or the string-const table index for Str globals
	IsArray   bool
	ArraySize int // only meaningful when IsArray
	Const     bool
	UsedCount int
	SetCount  int
}

// Table holds one scope's variables (globals, or one function's locals), one
// slice per kind; scalars and arrays of a kind share that slice and its id
// space, told apart by Scalar.IsArray.
type Table struct {
	names [3]*swiss.Map[string, uint32]
	Vars  [3][]*Scalar
}

// NewTable returns an empty symbol table.
func NewTable() *Table {
	t := &Table{}
	for k := 0; k < 3; k++ {
		t.names[k] = swiss.NewMap[string, uint32](8)
	}
	return t
}

// Declare adds a new scalar (or array, when arraySize > 0) to the table and
// returns its index. It is an error to redeclare a name already present at
// this scope, whatever kind it was declared with. A name that also exists in
// another scope is not checked here, and lang/compiler issues no diagnostic
// for such shadowing.
func (t *Table) Declare(name string, kind ValueKind, arraySize int, isConst bool, initial int) (int, error) {
	for k := ValueKind(0); k < 3; k++ {
		if _, ok := t.names[k].Get(name); ok {
			return 0, fmt.Errorf("symbols: %q is already declared as %s", name, k)
		}
	}
	idx := len(t.Vars[kind])
	t.Vars[kind] = append(t.Vars[kind], &Scalar{
		Name:      name,
		Kind:      kind,
		Initial:   initial,
		IsArray:   arraySize > 0,
		ArraySize: arraySize,
		Const:     isConst,
	})
	t.names[kind].Put(name, uint32(idx))
	return idx, nil
}

// Lookup finds a variable by name within the given kind, reporting whether it
// exists.
func (t *Table) Lookup(name string, kind ValueKind) (*Scalar, int, bool) {
	idx, ok := t.names[kind].Get(name)
	if !ok {
		return nil, 0, false
	}
	return t.Vars[kind][idx], int(idx), true
}

// LookupAnyKind finds a variable by name across all three kinds, used when
// the lexer/parser has an identifier but not yet its declared kind.
func (t *Table) LookupAnyKind(name string) (*Scalar, int, ValueKind, bool) {
	for k := ValueKind(0); k < 3; k++ {
		if s, idx, ok := t.Lookup(name, k); ok {
			return s, idx, k, true
		}
	}
	return nil, 0, 0, false
}

// Count returns the number of scalars (including arrays) declared of kind k.
func (t *Table) Count(k ValueKind) int { return len(t.Vars[k]) }

// ConstTable holds const int and const string substitutions; a const
// reference is folded into an IntConst/StrConst postfix element at lowering
// time, never emitted as a variable load.
type ConstTable struct {
	ints map[string]int
	strs map[string]int // name -> string-const pool index
}

// NewConstTable returns an empty const table.
func NewConstTable() *ConstTable {
	return &ConstTable{ints: make(map[string]int), strs: make(map[string]int)}
}

func (c *ConstTable) DeclareInt(name string, value int) error {
	if _, ok := c.ints[name]; ok {
		return fmt.Errorf("symbols: const int %q already declared", name)
	}
	c.ints[name] = value
	return nil
}

func (c *ConstTable) DeclareStr(name string, strConstIdx int) error {
	if _, ok := c.strs[name]; ok {
		return fmt.Errorf("symbols: const string %q already declared", name)
	}
	c.strs[name] = strConstIdx
	return nil
}

func (c *ConstTable) LookupInt(name string) (int, bool) { v, ok := c.ints[name]; return v, ok }
func (c *ConstTable) LookupStr(name string) (int, bool) { v, ok := c.strs[name]; return v, ok }

// Function is a compiled function's descriptor (spec.md §3 "Function
// descriptor").
type Function struct {
	Name           string
	Index          int
	FirstStatement int
	ReturnKind     ValueKind
	IsVoid         bool
	ArgVarIDs      []int
	ArgKinds       []ValueKind
	Locals         *Table
	UsedCount      int
	SetCount       int
}

// FunctionTable tracks defined and (temporarily) undefined functions so
// forward references can be resolved once the function is declared, per
// spec.md §4.3's "undefined function table".
type FunctionTable struct {
	byName    map[string]int
	Functions []*Function

	// Undefined holds forward references recorded at parse time: name ->
	// list of postfix element addresses (slot id, element index) that must
	// be patched to ExternFn once the function is defined.
	Undefined map[string][]UndefinedRef
}

// UndefinedRef locates one forward-referencing postfix element.
type UndefinedRef struct {
	Slot    int
	Element int
}

// NewFunctionTable returns an empty function table.
func NewFunctionTable() *FunctionTable {
	return &FunctionTable{byName: make(map[string]int), Undefined: make(map[string][]UndefinedRef)}
}

// Declare registers a new function and returns its index. Declaring a name
// twice is a semantic error.
func (ft *FunctionTable) Declare(fn *Function) (int, error) {
	if _, ok := ft.byName[fn.Name]; ok {
		return 0, fmt.Errorf("symbols: function %q already declared", fn.Name)
	}
	idx := len(ft.Functions)
	fn.Index = idx
	ft.Functions = append(ft.Functions, fn)
	ft.byName[fn.Name] = idx
	return idx, nil
}

// Lookup finds a defined function by name.
func (ft *FunctionTable) Lookup(name string) (*Function, bool) {
	idx, ok := ft.byName[name]
	if !ok {
		return nil, false
	}
	return ft.Functions[idx], true
}

// RecordUndefined remembers a forward reference to name at (slot, element),
// to be patched once the function is defined.
func (ft *FunctionTable) RecordUndefined(name string, slot, element int) {
	ft.Undefined[name] = append(ft.Undefined[name], UndefinedRef{Slot: slot, Element: element})
}

// Resolve removes and returns the pending forward references for name (used
// once the function has just been declared).
func (ft *FunctionTable) Resolve(name string) []UndefinedRef {
	refs := ft.Undefined[name]
	delete(ft.Undefined, name)
	return refs
}

// RemainingUndefined returns the names that were referenced but never
// defined, a fatal error at end of compilation.
func (ft *FunctionTable) RemainingUndefined() []string {
	names := make([]string, 0, len(ft.Undefined))
	for name := range ft.Undefined {
		names = append(names, name)
	}
	return names
}
