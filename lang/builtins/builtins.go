// Package builtins holds NIC's built-in function table (spec.md §2, §6
// "Built-in table"); the code that runs each entry lives in lang/machine
// (dispatchBuiltin). The table's index
// assignments are part of the IR's ABI: the compiler embeds an index, the
// interpreter dispatches by it, so the slice order below must never change
// without a coordinated IR format bump. Only the representative subset the
// rest of this module actually exercises is implemented; the full device
// I/O, terminal and graphics built-ins are out of scope (spec.md §1) and
// would be added to this same table by an external host, never by the core.
package builtins

import "github.com/ukw100/nic/lang/symbols"

// Func describes one built-in's signature.
type Func struct {
	Name       string
	MinArgs    int
	MaxArgs    int
	ReturnKind symbols.ValueKind
	IsVoid     bool
}

// Table is the fixed, ordered built-in function list. Index into this slice
// is the ABI value embedded in compiled IR.
var Table = []Func{
	{Name: "console.print", MinArgs: 1, MaxArgs: 1, IsVoid: true},
	{Name: "console.println", MinArgs: 1, MaxArgs: 1, IsVoid: true},
	{Name: "string.len", MinArgs: 1, MaxArgs: 1, ReturnKind: symbols.Int},
	{Name: "string.left", MinArgs: 2, MaxArgs: 2, ReturnKind: symbols.Str},
	{Name: "string.right", MinArgs: 2, MaxArgs: 2, ReturnKind: symbols.Str},
	{Name: "string.mid", MinArgs: 2, MaxArgs: 3, ReturnKind: symbols.Str},
	{Name: "string.byte", MinArgs: 2, MaxArgs: 2, ReturnKind: symbols.Byte},
	{Name: "delay", MinArgs: 1, MaxArgs: 1, IsVoid: true},
}

var byName = func() map[string]int {
	m := make(map[string]int, len(Table))
	for i, f := range Table {
		m[f.Name] = i
	}
	return m
}()

// Lookup satisfies lang/expr.BuiltinLookup, resolving name to its table
// index, declared arity and void-ness.
func Lookup(name string) (index, min, max int, isVoid, ok bool) {
	idx, found := byName[name]
	if !found {
		return 0, 0, 0, false, false
	}
	f := Table[idx]
	return idx, f.MinArgs, f.MaxArgs, f.IsVoid, true
}
