package machine

import (
	"fmt"

	"github.com/ukw100/nic/lang/argblock"
	"github.com/ukw100/nic/lang/compiler"
	"github.com/ukw100/nic/lang/optimizer"
	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/statement"
	"github.com/ukw100/nic/lang/strpool"
	"github.com/ukw100/nic/lang/symbols"
)

// Machine holds one compiled program's immutable tables plus the mutable
// global cells and string pool a run mutates (spec.md §4.8's "Machine
// state"). It has no notion of a "current" call; that lives in the frame
// stack built up by Run/callUser.
type Machine struct {
	postfixPool *postfix.Pool
	args        *argblock.Pool
	strs        *strpool.Pool
	hints       []optimizer.Hint
	funcs       *symbols.FunctionTable
	stmts       []statement.Statement

	globals struct {
		ints  [][]int32
		bytes [][]byte
		strs  [][]int
	}

	callStack []*frame
	th        *Thread
}

// New builds a Machine ready to run prog, allocating fresh global cells (and,
// for every global string, a fresh mutable persistent slot seeded from its
// constant initialiser — the global needs storage independent from the
// constant it started out as, since assigning to the global must not mutate
// the string-constant pool other code may still reference).
func New(prog *compiler.Program, th *Thread) *Machine {
	m := &Machine{
		postfixPool: prog.Postfix,
		args:        prog.Args,
		strs:        prog.Strs,
		hints:       prog.Hints,
		funcs:       prog.Funcs,
		stmts:       prog.Stmts,
		th:          th,
	}

	g := prog.Globals
	m.globals.ints = make([][]int32, g.Count(symbols.Int))
	for i, sc := range g.Vars[symbols.Int] {
		cell := make([]int32, cellLen(sc))
		for j := range cell {
			cell[j] = int32(sc.Initial)
		}
		m.globals.ints[i] = cell
	}

	m.globals.bytes = make([][]byte, g.Count(symbols.Byte))
	for i, sc := range g.Vars[symbols.Byte] {
		cell := make([]byte, cellLen(sc))
		for j := range cell {
			cell[j] = byte(sc.Initial)
		}
		m.globals.bytes[i] = cell
	}

	m.globals.strs = make([][]int, g.Count(symbols.Str))
	for i, sc := range g.Vars[symbols.Str] {
		n := cellLen(sc)
		cell := make([]int, n)
		for j := range cell {
			if sc.IsArray {
				cell[j] = m.strs.NewSlot(nil)
				continue
			}
			cell[j] = m.strs.NewSlot(m.strs.Bytes(sc.Initial))
		}
		m.globals.strs[i] = cell
	}

	return m
}

// cellInt/cellByte/cellStr resolve a variable reference (local or global, by
// kind) to its backing cell. Scalar vs. array is entirely a property of the
// cell's length (1 vs. ArraySize); no symbol-table lookup is needed at run
// time.
func (m *Machine) cellInt(fr *frame, isLocal bool, varID int) []int32 {
	if isLocal {
		return fr.ints[varID]
	}
	return m.globals.ints[varID]
}

func (m *Machine) cellByte(fr *frame, isLocal bool, varID int) []byte {
	if isLocal {
		return fr.bytes[varID]
	}
	return m.globals.bytes[varID]
}

func (m *Machine) cellStr(fr *frame, isLocal bool, varID int) []int {
	if isLocal {
		return fr.strs[varID]
	}
	return m.globals.strs[varID]
}

// boundsCheck enforces spec.md §4.7's "array access out of [0, size) is an
// immediate fatal abort".
func boundsCheck(line int, length, index int) error {
	if index < 0 || index >= length {
		return runtimeErrorf(line, "array index %d out of range [0, %d)", index, length)
	}
	return nil
}

// coerceTo converts v to kind (spec.md §4.8's "actual argument / return
// value coercion"): a non-string coerced to Str becomes a fresh TempStr; a
// string coerced to Int/Byte is parsed; Byte additionally truncates to 8
// bits.
func (m *Machine) coerceTo(kind symbols.ValueKind, v val) (val, error) {
	switch kind {
	case symbols.Str:
		if v.isStr {
			return v, nil
		}
		b, err := m.toBytes(v)
		if err != nil {
			return val{}, err
		}
		return strVal(m.strs.NewTmpSlot(b), true), nil
	case symbols.Byte:
		n, err := m.toInt(v)
		if err != nil {
			return val{}, err
		}
		return intVal(int32(byte(n))), nil
	default: // symbols.Int
		n, err := m.toInt(v)
		if err != nil {
			return val{}, err
		}
		return intVal(n), nil
	}
}

// writeTarget stores v into t, the assignment target of a Call statement or
// the operand of an Increment (spec.md §4.8 "Assignment").
func (m *Machine) writeTarget(fr *frame, line int, t statement.AssignTarget, v val) error {
	idx := 0
	if t.IsArray {
		iv, err := m.evalSlot(fr, line, t.IndexSlot)
		if err != nil {
			return err
		}
		n, err := m.toInt(iv)
		if err != nil {
			return err
		}
		idx = int(n)
	}

	switch t.Kind {
	case symbols.Int:
		cell := m.cellInt(fr, t.IsLocal, t.VarID)
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return err
		}
		n, err := m.toInt(v)
		if err != nil {
			return err
		}
		cell[idx] = n
		return nil
	case symbols.Byte:
		cell := m.cellByte(fr, t.IsLocal, t.VarID)
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return err
		}
		n, err := m.toInt(v)
		if err != nil {
			return err
		}
		cell[idx] = byte(n)
		return nil
	case symbols.Str:
		cell := m.cellStr(fr, t.IsLocal, t.VarID)
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return err
		}
		slotID := cell[idx]
		if v.isStr && v.isTemp {
			// Prefer moving: swap the temp's backing storage into the
			// target slot instead of copying (spec.md §4.8).
			return m.strs.MoveTmpToSlot(slotID, v.id)
		}
		b, err := m.toBytes(v)
		if err != nil {
			return err
		}
		return m.strs.Assign(slotID, b)
	default:
		return fmt.Errorf("machine: unknown value kind %d", t.Kind)
	}
}

// protectReturn guards against a returned string referencing one of the
// callee's own local persistent slots, which releaseFrame is about to make
// reusable. A genuine TempStr is already safe: strpool.Pool.ReleaseFrame
// only rewinds the persistent pool's high-water mark and never touches the
// temp pool. Only a persistent id that falls inside this frame's own
// [strBase, strBase+strCount) range needs rescuing.
func (m *Machine) protectReturn(fr *frame, v val) (val, error) {
	if !v.isStr || v.isTemp {
		return v, nil
	}
	if v.id < fr.strBase || v.id >= fr.strBase+fr.strCount {
		return v, nil
	}
	b := append([]byte{}, m.strs.Bytes(v.id)...)
	return strVal(m.strs.NewTmpSlot(b), true), nil
}
