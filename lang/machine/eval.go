package machine

import (
	"github.com/ukw100/nic/lang/optimizer"
	"github.com/ukw100/nic/lang/postfix"
)

// loadOperand resolves one non-operator postfix element to a val (spec.md
// §4.7 "Operand resolution"). Local/global scalar loads substitute the
// current value directly; array loads recursively evaluate the index slot
// first. A call element runs the callee to completion and yields its
// result.
func (m *Machine) loadOperand(fr *frame, line int, el postfix.Element) (val, error) {
	switch el.Tag {
	case postfix.IntConst:
		return intVal(el.Value), nil
	case postfix.StrConst:
		return strVal(int(el.Value), false), nil

	case postfix.LocalInt:
		return intVal(m.cellInt(fr, true, int(el.Value))[0]), nil
	case postfix.GlobalInt:
		return intVal(m.cellInt(fr, false, int(el.Value))[0]), nil
	case postfix.LocalByte:
		return intVal(int32(m.cellByte(fr, true, int(el.Value))[0])), nil
	case postfix.GlobalByte:
		return intVal(int32(m.cellByte(fr, false, int(el.Value))[0])), nil
	case postfix.LocalStr:
		return strVal(m.cellStr(fr, true, int(el.Value))[0], false), nil
	case postfix.GlobalStr:
		return strVal(m.cellStr(fr, false, int(el.Value))[0], false), nil

	case postfix.LocalBytePtr:
		return bytePtrVal(int32(len(m.cellByte(fr, true, int(el.Value))))), nil
	case postfix.GlobalBytePtr:
		return bytePtrVal(int32(len(m.cellByte(fr, false, int(el.Value))))), nil

	case postfix.LocalIntArr, postfix.GlobalIntArr:
		idx, err := m.arrayIndex(fr, line, el)
		if err != nil {
			return val{}, err
		}
		cell := m.cellInt(fr, el.Tag == postfix.LocalIntArr, int(el.Value))
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return val{}, err
		}
		return intVal(cell[idx]), nil

	case postfix.LocalByteArr, postfix.GlobalByteArr:
		idx, err := m.arrayIndex(fr, line, el)
		if err != nil {
			return val{}, err
		}
		cell := m.cellByte(fr, el.Tag == postfix.LocalByteArr, int(el.Value))
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return val{}, err
		}
		return intVal(int32(cell[idx])), nil

	case postfix.LocalStrArr, postfix.GlobalStrArr:
		idx, err := m.arrayIndex(fr, line, el)
		if err != nil {
			return val{}, err
		}
		cell := m.cellStr(fr, el.Tag == postfix.LocalStrArr, int(el.Value))
		if err := boundsCheck(line, len(cell), idx); err != nil {
			return val{}, err
		}
		return strVal(cell[idx], false), nil

	case postfix.InternFn:
		return m.callBuiltin(fr, line, int(el.Value), int(el.IndexSlot))
	case postfix.ExternFn:
		return m.callUser(fr, line, int(el.Value), int(el.IndexSlot))

	default:
		return val{}, runtimeErrorf(line, "unsupported postfix operand tag %s", el.Tag)
	}
}

func (m *Machine) arrayIndex(fr *frame, line int, el postfix.Element) (int, error) {
	iv, err := m.evalSlot(fr, line, int(el.IndexSlot))
	if err != nil {
		return 0, err
	}
	n, err := m.toInt(iv)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// evalSlot evaluates a postfix slot to a single val, dispatching on the
// optimiser's precomputed hint (spec.md §4.5) to skip the general stack loop
// for the eleven recognised shapes.
func (m *Machine) evalSlot(fr *frame, line int, slotID int) (val, error) {
	slot, err := m.postfixPool.Get(slotID)
	if err != nil {
		return val{}, runtimeErrorf(line, "%v", err)
	}
	body := slot
	if n := len(body); n > 0 && body[n-1].Tag == postfix.End {
		body = body[:n-1]
	}

	hint := optimizer.None
	if slotID < len(m.hints) {
		hint = m.hints[slotID]
	}

	switch hint {
	case optimizer.ConstNoOp, optimizer.LocIntNoOp, optimizer.GlobIntNoOp,
		optimizer.LocByteNoOp, optimizer.GlobByteNoOp,
		optimizer.IntFuncNoOp, optimizer.ExtFuncNoOp:
		return m.loadOperand(fr, line, body[0])

	case optimizer.LocIntLocIntOp, optimizer.LocIntConstIntOp,
		optimizer.GlobIntGlobIntOp, optimizer.GlobIntConstIntOp:
		left, err := m.loadOperand(fr, line, body[0])
		if err != nil {
			return val{}, err
		}
		right, err := m.loadOperand(fr, line, body[1])
		if err != nil {
			return val{}, err
		}
		return m.applyOperator(line, rune(body[2].Value), left, right)

	default:
		return m.evalGeneral(fr, line, body)
	}
}

// evalGeneral walks a postfix slot with an explicit operand stack, used for
// every shape the optimiser didn't recognise as one of its eleven hints.
func (m *Machine) evalGeneral(fr *frame, line int, body []postfix.Element) (val, error) {
	var stack []val
	for _, el := range body {
		if el.Tag == postfix.Operator {
			if len(stack) < 2 {
				return val{}, runtimeErrorf(line, "postfix: operator with too few operands")
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]
			res, err := m.applyOperator(line, rune(el.Value), left, right)
			if err != nil {
				return val{}, err
			}
			stack = append(stack, res)
			continue
		}
		v, err := m.loadOperand(fr, line, el)
		if err != nil {
			return val{}, err
		}
		stack = append(stack, v)
	}
	if len(stack) != 1 {
		return val{}, runtimeErrorf(line, "postfix: %d values left on the stack, expected 1", len(stack))
	}
	return stack[0], nil
}

// applyOperator computes one binary operator over two resolved operands
// (spec.md §4.7 "Operator evaluation"). ':' is string concatenation;
// everything else coerces both sides to int first. Division and modulo by
// zero are fatal runtime errors (there is no constant-folded path for a
// zero divisor known only at run time).
func (m *Machine) applyOperator(line int, op rune, left, right val) (val, error) {
	if op == ':' {
		return m.concat(left, right)
	}

	a, err := m.toInt(left)
	if err != nil {
		return val{}, err
	}
	b, err := m.toInt(right)
	if err != nil {
		return val{}, err
	}

	// '~' never appears as a genuine binary operator: the parser only emits
	// it as the second half of a synthesized "0 ~ x" unary-not, so the left
	// operand (always the synthetic zero) is ignored.
	if op == '~' {
		return intVal(^b), nil
	}

	switch op {
	case '+':
		return intVal(a + b), nil
	case '-':
		return intVal(a - b), nil
	case '*':
		return intVal(a * b), nil
	case '/':
		if b == 0 {
			return val{}, runtimeErrorf(line, "division by zero")
		}
		return intVal(a / b), nil
	case '%':
		if b == 0 {
			return val{}, runtimeErrorf(line, "modulo by zero")
		}
		return intVal(a % b), nil
	case '|':
		return intVal(a | b), nil
	case '^':
		return intVal(a ^ b), nil
	case '&':
		return intVal(a & b), nil
	case '<':
		return intVal(int32(uint32(a) << uint32(b))), nil
	case '>':
		return intVal(int32(uint32(a) >> uint32(b))), nil
	default:
		return val{}, runtimeErrorf(line, "unknown operator %q", op)
	}
}

// concat implements spec.md §4.7's ':' operator: both operands are
// stringified, concatenated into a freshly allocated temp slot, and the temp
// is marked active.
func (m *Machine) concat(left, right val) (val, error) {
	a, err := m.toBytes(left)
	if err != nil {
		return val{}, err
	}
	b, err := m.toBytes(right)
	if err != nil {
		return val{}, err
	}
	combined := make([]byte, 0, len(a)+len(b))
	combined = append(combined, a...)
	combined = append(combined, b...)
	return strVal(m.strs.NewTmpSlot(combined), true), nil
}
