package machine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ukw100/nic/lang/builtins"
	"github.com/ukw100/nic/lang/statement"
	"github.com/ukw100/nic/lang/symbols"
)

// Run executes prog starting from its designated main function, binding argv
// to main's declared parameters (spec.md §6 "Interpreter CLI"): an int
// parameter is parsed with atoi semantics, a string parameter is bound
// literally, and a byte parameter on main is rejected (the Open Question
// this port resolved against supporting it).
func (m *Machine) Run(mainIdx int, argv []string) error {
	mainFn := m.functionAt(mainIdx)
	if mainFn == nil {
		return fmt.Errorf("machine: no function starts at statement %d", mainIdx)
	}
	for _, k := range mainFn.ArgKinds {
		if k == symbols.Byte {
			return fmt.Errorf("machine: main cannot declare a byte parameter")
		}
	}

	argVals := make([]val, len(mainFn.ArgVarIDs))
	for i := range argVals {
		if i >= len(argv) {
			argVals[i] = intVal(0)
			continue
		}
		if mainFn.ArgKinds[i] == symbols.Str {
			argVals[i] = strVal(m.strs.NewTmpSlot([]byte(argv[i])), true)
		} else {
			argVals[i] = intVal(atoiBytes([]byte(argv[i])))
		}
	}

	_, err := m.invoke(mainFn, argVals)
	return err
}

func (m *Machine) functionAt(firstStmt int) *symbols.Function {
	for _, fn := range m.funcs.Functions {
		if fn.FirstStatement == firstStmt {
			return fn
		}
	}
	return nil
}

// callUser evaluates a call site's actual arguments in the caller's frame
// (left to right, per spec.md §5's ordering guarantee), then invokes the
// callee.
func (m *Machine) callUser(callerFr *frame, line int, funcIdx, blockID int) (val, error) {
	blk, err := m.args.Get(blockID)
	if err != nil {
		return val{}, runtimeErrorf(line, "%v", err)
	}
	if funcIdx < 0 || funcIdx >= len(m.funcs.Functions) {
		return val{}, runtimeErrorf(line, "call to unresolved function")
	}
	fn := m.funcs.Functions[funcIdx]

	argVals := make([]val, len(blk.ArgSlots))
	for i, slot := range blk.ArgSlots {
		v, err := m.evalSlot(callerFr, line, slot)
		if err != nil {
			return val{}, err
		}
		argVals[i] = v
	}
	return m.invoke(fn, argVals)
}

// invoke runs fn to completion in a fresh frame, binding argVals to its
// declared parameters, and returns its (possibly void) result.
func (m *Machine) invoke(fn *symbols.Function, argVals []val) (val, error) {
	fr := m.newFrame(fn)
	for i, a := range fn.ArgVarIDs {
		coerced, err := m.coerceTo(fn.ArgKinds[i], argVals[i])
		if err != nil {
			return val{}, err
		}
		switch fn.ArgKinds[i] {
		case symbols.Str:
			slotID := fr.strs[a][0]
			if coerced.isTemp {
				if err := m.strs.MoveTmpToSlot(slotID, coerced.id); err != nil {
					return val{}, err
				}
			} else {
				b, err := m.toBytes(coerced)
				if err != nil {
					return val{}, err
				}
				if err := m.strs.Assign(slotID, b); err != nil {
					return val{}, err
				}
			}
		case symbols.Byte:
			fr.bytes[a][0] = byte(coerced.i)
		default:
			fr.ints[a][0] = coerced.i
		}
	}

	m.callStack = append(m.callStack, fr)
	result, err := m.runFrom(fr, fn.FirstStatement)
	m.callStack = m.callStack[:len(m.callStack)-1]
	if err != nil {
		return val{}, err
	}

	if !fn.IsVoid {
		result, err = m.coerceTo(fn.ReturnKind, result)
		if err != nil {
			return val{}, err
		}
	}
	return result, nil
}

// callBuiltin evaluates a built-in call site's arguments in the caller's
// frame and dispatches.
func (m *Machine) callBuiltin(fr *frame, line int, builtinIdx, blockID int) (val, error) {
	blk, err := m.args.Get(blockID)
	if err != nil {
		return val{}, runtimeErrorf(line, "%v", err)
	}
	if builtinIdx < 0 || builtinIdx >= len(builtins.Table) {
		return val{}, runtimeErrorf(line, "call to unknown built-in")
	}

	argVals := make([]val, len(blk.ArgSlots))
	for i, slot := range blk.ArgSlots {
		v, err := m.evalSlot(fr, line, slot)
		if err != nil {
			return val{}, err
		}
		argVals[i] = v
	}
	return m.dispatchBuiltin(line, builtinIdx, argVals)
}

func (m *Machine) dispatchBuiltin(line int, idx int, args []val) (val, error) {
	switch builtins.Table[idx].Name {
	case "console.print":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		fmt.Fprint(m.th.stdout(), string(b))
		return val{}, nil

	case "console.println":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		fmt.Fprintln(m.th.stdout(), string(b))
		return val{}, nil

	case "string.len":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		return intVal(int32(len(b))), nil

	case "string.left":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		n, err := m.toInt(args[1])
		if err != nil {
			return val{}, err
		}
		return m.newTempStr(clampSlice(b, 0, int(n))), nil

	case "string.right":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		n, err := m.toInt(args[1])
		if err != nil {
			return val{}, err
		}
		start := len(b) - int(n)
		return m.newTempStr(clampSlice(b, start, len(b))), nil

	case "string.mid":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		start, err := m.toInt(args[1])
		if err != nil {
			return val{}, err
		}
		end := len(b)
		if len(args) > 2 {
			n, err := m.toInt(args[2])
			if err != nil {
				return val{}, err
			}
			end = int(start) + int(n)
		}
		return m.newTempStr(clampSlice(b, int(start), end)), nil

	case "string.byte":
		b, err := m.toBytes(args[0])
		if err != nil {
			return val{}, err
		}
		n, err := m.toInt(args[1])
		if err != nil {
			return val{}, err
		}
		idx := int(n)
		if idx < 0 || idx >= len(b) {
			return val{}, runtimeErrorf(line, "string.byte index %d out of range", idx)
		}
		return intVal(int32(b[idx])), nil

	case "delay":
		n, err := m.toInt(args[0])
		if err != nil {
			return val{}, err
		}
		if n > 0 {
			time.Sleep(time.Duration(n) * time.Millisecond)
		}
		return val{}, nil

	default:
		return val{}, runtimeErrorf(line, "unimplemented built-in %q", builtins.Table[idx].Name)
	}
}

func (m *Machine) newTempStr(b []byte) val {
	return strVal(m.strs.NewTmpSlot(b), true)
}

// clampSlice clamps [from, to) to b's bounds, matching the original
// interpreter's lenient string.left/right/mid (an out-of-range request
// yields whatever overlap exists rather than erroring).
func clampSlice(b []byte, from, to int) []byte {
	if from < 0 {
		from = 0
	}
	if to > len(b) {
		to = len(b)
	}
	if from >= to {
		return nil
	}
	return append([]byte{}, b[from:to]...)
}

// compareVals implements an If/While statement's comparison (spec.md §4.8):
// int comparison unless both sides are string-shaped, in which case the
// comparison is byte-wise on the coerced string forms.
func (m *Machine) compareVals(line int, op statement.CompareOp, left, right val) (bool, error) {
	if left.isStr && right.isStr {
		lb, err := m.toBytes(left)
		if err != nil {
			return false, err
		}
		rb, err := m.toBytes(right)
		if err != nil {
			return false, err
		}
		c := bytes.Compare(lb, rb)
		switch op {
		case statement.CmpEqual:
			return c == 0, nil
		case statement.CmpNotEqual:
			return c != 0, nil
		case statement.CmpLess:
			return c < 0, nil
		case statement.CmpLessEqual:
			return c <= 0, nil
		case statement.CmpGreater:
			return c > 0, nil
		case statement.CmpGreaterEqual:
			return c >= 0, nil
		}
		return false, runtimeErrorf(line, "unknown compare operator %d", op)
	}

	a, err := m.toInt(left)
	if err != nil {
		return false, err
	}
	b, err := m.toInt(right)
	if err != nil {
		return false, err
	}
	switch op {
	case statement.CmpEqual:
		return a == b, nil
	case statement.CmpNotEqual:
		return a != b, nil
	case statement.CmpLess:
		return a < b, nil
	case statement.CmpLessEqual:
		return a <= b, nil
	case statement.CmpGreater:
		return a > b, nil
	case statement.CmpGreaterEqual:
		return a >= b, nil
	}
	return false, runtimeErrorf(line, "unknown compare operator %d", op)
}

// runFrom runs fr's function body starting at cursor until a Return
// statement produces a result. Every function is guaranteed by
// lang/compiler to end on an explicit Return (void functions get one
// synthesised if missing, non-void functions fail to compile without one),
// so there is no "fell off the end" case to handle here.
func (m *Machine) runFrom(fr *frame, cursor int) (val, error) {
	for {
		m.th.tick()
		if m.th.interrupted() {
			return val{}, Interrupted{}
		}

		stmt := &m.stmts[cursor]
		line := stmt.SourceLine

		switch stmt.Kind {
		case statement.If, statement.While:
			left, err := m.evalSlot(fr, line, stmt.LeftSlot)
			if err != nil {
				return val{}, err
			}
			right, err := m.evalSlot(fr, line, stmt.RightSlot)
			if err != nil {
				return val{}, err
			}
			ok, err := m.compareVals(line, stmt.CompareOp, left, right)
			if err != nil {
				return val{}, err
			}
			if ok {
				cursor = stmt.Next
			} else {
				cursor = stmt.FalseIdx
			}
			continue

		case statement.For:
			start, err := m.evalSlot(fr, line, stmt.StartSlot)
			if err != nil {
				return val{}, err
			}
			stop, err := m.evalSlot(fr, line, stmt.StopSlot)
			if err != nil {
				return val{}, err
			}
			startN, err := m.toInt(start)
			if err != nil {
				return val{}, err
			}
			stopN, err := m.toInt(stop)
			if err != nil {
				return val{}, err
			}
			step := int32(1)
			if stmt.StepSlot >= 0 {
				sv, err := m.evalSlot(fr, line, stmt.StepSlot)
				if err != nil {
					return val{}, err
				}
				step, err = m.toInt(sv)
				if err != nil {
					return val{}, err
				}
			}
			if err := m.writeTarget(fr, line, stmt.IterVar, intVal(startN)); err != nil {
				return val{}, err
			}
			fr.forCache[cursor] = forState{stop: stopN, step: step}

			inBounds := startN <= stopN
			if step < 0 {
				inBounds = startN >= stopN
			}
			if inBounds {
				cursor = stmt.Next
			} else {
				cursor = m.stmts[stmt.EndForIdx].Next
			}
			continue

		case statement.EndFor:
			forStmt := &m.stmts[stmt.ForIdx]
			cache := fr.forCache[stmt.ForIdx]
			cur, err := m.readIterVar(fr, line, forStmt.IterVar)
			if err != nil {
				return val{}, err
			}
			next := cur + cache.step
			if err := m.writeTarget(fr, line, forStmt.IterVar, intVal(next)); err != nil {
				return val{}, err
			}
			inBounds := next <= cache.stop
			if cache.step < 0 {
				inBounds = next >= cache.stop
			}
			if inBounds {
				cursor = forStmt.Next
			} else {
				cursor = stmt.Next
			}
			continue

		case statement.Repeat:
			cv, err := m.evalSlot(fr, line, stmt.CountSlot)
			if err != nil {
				return val{}, err
			}
			count, err := m.toInt(cv)
			if err != nil {
				return val{}, err
			}
			fr.repeatCache[cursor] = int(count)
			if count > 0 {
				cursor = stmt.Next
			} else {
				cursor = m.stmts[stmt.EndRepeatIdx].Next
			}
			continue

		case statement.EndRepeat:
			remaining := fr.repeatCache[stmt.RepeatIdx] - 1
			fr.repeatCache[stmt.RepeatIdx] = remaining
			if remaining > 0 {
				cursor = m.stmts[stmt.RepeatIdx].Next
			} else {
				cursor = stmt.Next
			}
			continue

		case statement.Increment:
			cur, err := m.readIterVar(fr, line, stmt.IncTarget)
			if err != nil {
				return val{}, err
			}
			if err := m.writeTarget(fr, line, stmt.IncTarget, intVal(cur+stmt.Step)); err != nil {
				return val{}, err
			}
			cursor = stmt.Next
			continue

		case statement.Call:
			v, err := m.evalSlot(fr, line, stmt.BodySlot)
			if err != nil {
				return val{}, err
			}
			if stmt.HasTarget {
				if err := m.writeTarget(fr, line, stmt.Target, v); err != nil {
					return val{}, err
				}
			} else {
				m.discard(v)
			}
			cursor = stmt.Next
			continue

		case statement.Return:
			var result val
			if stmt.ValueSlot >= 0 {
				v, err := m.evalSlot(fr, line, stmt.ValueSlot)
				if err != nil {
					return val{}, err
				}
				result = v
			}
			protected, err := m.protectReturn(fr, result)
			if err != nil {
				return val{}, err
			}
			if err := m.releaseFrame(fr); err != nil {
				return val{}, err
			}
			return protected, nil

		default:
			// EndIf, Loop, EndLoop, EndWhile, Break, Continue: the compiler
			// has already resolved every jump these kinds ever need directly
			// into Next (spec.md §4.6's fix-up passes), so no special
			// handling is required here.
			cursor = stmt.Next
			continue
		}
	}
}

// readIterVar reads a scalar int/byte target's current value, used by
// EndFor/Increment to compute their next value before writing it back.
func (m *Machine) readIterVar(fr *frame, line int, t statement.AssignTarget) (int32, error) {
	idx := 0
	if t.IsArray {
		iv, err := m.evalSlot(fr, line, t.IndexSlot)
		if err != nil {
			return 0, err
		}
		n, err := m.toInt(iv)
		if err != nil {
			return 0, err
		}
		idx = int(n)
	}
	switch t.Kind {
	case symbols.Byte:
		cell := m.cellByte(fr, t.IsLocal, t.VarID)
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return 0, err
		}
		return int32(cell[idx]), nil
	default:
		cell := m.cellInt(fr, t.IsLocal, t.VarID)
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return 0, err
		}
		return cell[idx], nil
	}
}
