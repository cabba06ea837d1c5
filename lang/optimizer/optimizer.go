// Package optimizer implements NIC's two-pass postfix peephole optimiser
// (spec.md §4.5): constant folding over an expression stack, followed by a
// single hint classification recognising eleven common slot shapes so the
// evaluator (lang/machine) can skip the general RPN loop.
package optimizer

import (
	"fmt"
	"strconv"

	"github.com/ukw100/nic/lang/postfix"
	"github.com/ukw100/nic/lang/strpool"
)

// Hint names a recognised postfix-slot shape (spec.md §4.5 table).
type Hint int8

const (
	None Hint = iota
	ConstNoOp
	LocIntNoOp
	GlobIntNoOp
	LocByteNoOp
	GlobByteNoOp
	LocIntLocIntOp
	LocIntConstIntOp
	GlobIntGlobIntOp
	GlobIntConstIntOp
	IntFuncNoOp
	ExtFuncNoOp
)

func (h Hint) String() string { return hintNames[h] }

var hintNames = [...]string{
	None: "none", ConstNoOp: "const-noop",
	LocIntNoOp: "loc-int-noop", GlobIntNoOp: "glob-int-noop",
	LocByteNoOp: "loc-byte-noop", GlobByteNoOp: "glob-byte-noop",
	LocIntLocIntOp: "loc-int-loc-int-op", LocIntConstIntOp: "loc-int-const-int-op",
	GlobIntGlobIntOp: "glob-int-glob-int-op", GlobIntConstIntOp: "glob-int-const-int-op",
	IntFuncNoOp: "int-func-noop", ExtFuncNoOp: "ext-func-noop",
}

// Optimize folds constants in slot id within pool, rewrites the slot in
// place, and returns the hint classifying its (possibly folded) final shape.
func Optimize(pool *postfix.Pool, id int, strs *strpool.Pool) (Hint, error) {
	slot, err := pool.Get(id)
	if err != nil {
		return None, err
	}

	folded, err := fold(slot, strs)
	if err != nil {
		return None, err
	}

	if err := pool.Set(id, folded); err != nil {
		return None, err
	}
	return classify(folded), nil
}

// fragment is a run of not-further-foldable postfix elements; const is true
// when it holds exactly one constant element eligible for further folding.
type fragment struct {
	elems []postfix.Element
	const_ bool
}

func fold(slot postfix.Slot, strs *strpool.Pool) ([]postfix.Element, error) {
	var stack []fragment

	for _, e := range slot {
		switch e.Tag {
		case postfix.End:
			// terminator, handled after the loop

		case postfix.Operator:
			if len(stack) < 2 {
				return nil, fmt.Errorf("optimizer: operator %q with too few operands", rune(e.Value))
			}
			right := stack[len(stack)-1]
			left := stack[len(stack)-2]
			stack = stack[:len(stack)-2]

			if left.const_ && right.const_ {
				folded, ok, err := foldPair(left.elems[0], right.elems[0], rune(e.Value), strs)
				if err != nil {
					return nil, err
				}
				if ok {
					stack = append(stack, fragment{elems: []postfix.Element{folded}, const_: true})
					continue
				}
			}

			merged := make([]postfix.Element, 0, len(left.elems)+len(right.elems)+1)
			merged = append(merged, left.elems...)
			merged = append(merged, right.elems...)
			merged = append(merged, e)
			stack = append(stack, fragment{elems: merged})

		default:
			stack = append(stack, fragment{
				elems:  []postfix.Element{e},
				const_: e.Tag == postfix.IntConst || e.Tag == postfix.StrConst,
			})
		}
	}

	if len(stack) != 1 {
		return nil, fmt.Errorf("optimizer: malformed postfix slot, %d fragments remain", len(stack))
	}
	out := append([]postfix.Element{}, stack[0].elems...)
	out = append(out, postfix.EndElement)
	return out, nil
}

// foldPair folds one binary operator over two constant elements, returning
// ok=false when the pair's tags don't admit constant folding for op (the
// caller then keeps both operands live).
func foldPair(left, right postfix.Element, op rune, strs *strpool.Pool) (postfix.Element, bool, error) {
	if op == ':' {
		return foldConcat(left, right, strs)
	}

	if left.Tag != postfix.IntConst || right.Tag != postfix.IntConst {
		return postfix.Element{}, false, nil
	}
	a, b := left.Value, right.Value

	// '~' never appears as a genuine binary operator: the parser only ever
	// emits it as the second half of a synthesized "0 ~ x" unary-not, so the
	// left operand (always the synthetic zero) is ignored.
	if op == '~' {
		return postfix.NewOperand(postfix.IntConst, ^b), true, nil
	}

	switch op {
	case '+':
		return postfix.NewOperand(postfix.IntConst, a+b), true, nil
	case '-':
		return postfix.NewOperand(postfix.IntConst, a-b), true, nil
	case '*':
		return postfix.NewOperand(postfix.IntConst, a*b), true, nil
	case '/':
		if b == 0 {
			return postfix.Element{}, false, fmt.Errorf("optimizer: constant division by zero")
		}
		return postfix.NewOperand(postfix.IntConst, a/b), true, nil
	case '%':
		if b == 0 {
			return postfix.Element{}, false, fmt.Errorf("optimizer: constant modulo by zero")
		}
		return postfix.NewOperand(postfix.IntConst, a%b), true, nil
	case '|':
		return postfix.NewOperand(postfix.IntConst, a|b), true, nil
	case '^':
		return postfix.NewOperand(postfix.IntConst, a^b), true, nil
	case '&':
		return postfix.NewOperand(postfix.IntConst, a&b), true, nil
	case '<':
		return postfix.NewOperand(postfix.IntConst, int32(uint32(a)<<uint32(b))), true, nil
	case '>':
		return postfix.NewOperand(postfix.IntConst, int32(uint32(a)>>uint32(b))), true, nil
	default:
		return postfix.Element{}, false, fmt.Errorf("optimizer: unknown operator %q", op)
	}
}

func foldConcat(left, right postfix.Element, strs *strpool.Pool) (postfix.Element, bool, error) {
	isConstish := func(e postfix.Element) bool { return e.Tag == postfix.IntConst || e.Tag == postfix.StrConst }
	if !isConstish(left) || !isConstish(right) {
		return postfix.Element{}, false, nil
	}

	text := func(e postfix.Element) []byte {
		if e.Tag == postfix.IntConst {
			return []byte(strconv.Itoa(int(e.Value)))
		}
		return strs.Bytes(int(e.Value))
	}

	combined := append(append([]byte{}, text(left)...), text(right)...)

	// Reuse an operand's existing slot when it was already a string constant,
	// matching nicstrings.c's in-place reallocation; the other operand (if
	// also a StrConst) simply becomes unreferenced pool garbage.
	if left.Tag == postfix.StrConst {
		if err := strs.Assign(int(left.Value), combined); err != nil {
			return postfix.Element{}, false, err
		}
		return postfix.NewOperand(postfix.StrConst, left.Value), true, nil
	}
	if right.Tag == postfix.StrConst {
		if err := strs.Assign(int(right.Value), combined); err != nil {
			return postfix.Element{}, false, err
		}
		return postfix.NewOperand(postfix.StrConst, right.Value), true, nil
	}

	id := strs.NewSlot(combined)
	return postfix.NewOperand(postfix.StrConst, int32(id)), true, nil
}

func classify(elems []postfix.Element) Hint {
	body := elems
	if len(body) > 0 && body[len(body)-1].Tag == postfix.End {
		body = body[:len(body)-1]
	}

	switch len(body) {
	case 1:
		switch body[0].Tag {
		case postfix.IntConst, postfix.StrConst, postfix.LocalStr, postfix.GlobalStr:
			return ConstNoOp
		case postfix.LocalInt:
			return LocIntNoOp
		case postfix.GlobalInt:
			return GlobIntNoOp
		case postfix.LocalByte:
			return LocByteNoOp
		case postfix.GlobalByte:
			return GlobByteNoOp
		case postfix.InternFn:
			return IntFuncNoOp
		case postfix.ExternFn:
			return ExtFuncNoOp
		}

	case 3:
		if body[2].Tag != postfix.Operator {
			return None
		}
		switch {
		case body[0].Tag == postfix.LocalInt && body[1].Tag == postfix.LocalInt:
			return LocIntLocIntOp
		case body[0].Tag == postfix.LocalInt && body[1].Tag == postfix.IntConst:
			return LocIntConstIntOp
		case body[0].Tag == postfix.GlobalInt && body[1].Tag == postfix.GlobalInt:
			return GlobIntGlobIntOp
		case body[0].Tag == postfix.GlobalInt && body[1].Tag == postfix.IntConst:
			return GlobIntConstIntOp
		}
	}
	return None
}
