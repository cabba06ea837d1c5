package postfix

import (
	"fmt"

	"github.com/ukw100/nic/lang/expr"
	"github.com/ukw100/nic/lang/strpool"
	"github.com/ukw100/nic/lang/symbols"
)

// precedence gives each binary operator's binding strength, high to low:
// `*` binds tightest, string concat `:` loosest, and `+`/`-` sit below the
// multiplicative operators and above the bitwise ones. Unary minus and
// bitwise-not reach Build as the trailing operator of a synthetic zero
// inside their own bracket pair (see lang/expr.Parser), i.e. "(0 - x)" and
// "(0 ~ x)", so '~' needs an entry too, though its level never decides
// grouping.
var precedence = map[rune]int{
	'*': 8, '/': 7, '%': 6,
	'+': 5, '-': 5, '~': 5,
	'|': 4, '^': 3, '&': 2,
	'<': 1, '>': 1,
	':': 0,
}

type stackEntry struct {
	isOpen bool
	op     rune
}

// Build runs the shunting-yard algorithm over list, converting it to a
// terminated sequence of postfix elements allocated as a new slot in pool.
// strs is used to intern fresh string literals (ExpressionContent.Value==-1
// for ContentStrConst means "not yet interned"); const-folded string
// references already carry a pool index and are used as-is.
func Build(list *expr.ExpressionList, pool *Pool, strs *strpool.Pool) (int, error) {
	var out []Element
	var stack []stackEntry

	flush := func(minPrec int) {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.isOpen || precedence[top.op] < minPrec {
				break
			}
			out = append(out, NewOperator(top.op))
			stack = stack[:len(stack)-1]
		}
	}

	for _, c := range list.Content {
		for i := 0; i < c.OpenBrackets; i++ {
			stack = append(stack, stackEntry{isOpen: true})
		}

		elem, err := toElement(c, strs)
		if err != nil {
			return 0, err
		}
		out = append(out, elem)

		for i := 0; i < c.CloseBrackets; i++ {
			found := false
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if top.isOpen {
					found = true
					break
				}
				out = append(out, NewOperator(top.op))
			}
			if !found {
				return 0, fmt.Errorf("postfix: unbalanced closing bracket")
			}
		}

		if c.TrailingOperator != 0 {
			prec, ok := precedence[c.TrailingOperator]
			if !ok {
				return 0, fmt.Errorf("postfix: unknown operator %q", c.TrailingOperator)
			}
			flush(prec)
			stack = append(stack, stackEntry{op: c.TrailingOperator})
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if top.isOpen {
			return 0, fmt.Errorf("postfix: unbalanced opening bracket")
		}
		out = append(out, NewOperator(top.op))
	}

	return pool.New(out), nil
}

func toElement(c expr.ExpressionContent, strs *strpool.Pool) (Element, error) {
	switch c.Type {
	case expr.ContentIntConst:
		return NewOperand(IntConst, int32(c.Value)), nil

	case expr.ContentStrConst:
		if c.Value >= 0 {
			return NewOperand(StrConst, int32(c.Value)), nil
		}
		slot := strs.NewSlot([]byte(c.Str))
		return NewOperand(StrConst, int32(slot)), nil

	case expr.ContentVariable:
		tag, err := variableTag(c.ArrKind, c.IsLocal, c.IsBytePtr)
		if err != nil {
			return Element{}, err
		}
		return NewOperand(tag, int32(c.Value)), nil

	case expr.ContentArrayVariable:
		tag, err := arrayTag(c.ArrKind, c.IsLocal)
		if err != nil {
			return Element{}, err
		}
		return NewArrayOperand(tag, int32(c.Value), int32(c.FipSlot)), nil

	case expr.ContentCall:
		switch {
		case c.IsUndefined:
			return Element{Tag: UndefinedFn, Value: -1, IndexSlot: int32(c.FipSlot)}, nil
		case c.IsBuiltin:
			return Element{Tag: InternFn, Value: int32(c.Value), IndexSlot: int32(c.FipSlot)}, nil
		default:
			return Element{Tag: ExternFn, Value: int32(c.Value), IndexSlot: int32(c.FipSlot)}, nil
		}

	default:
		return Element{}, fmt.Errorf("postfix: unknown expression content type %d", c.Type)
	}
}

func variableTag(kind symbols.ValueKind, isLocal, isBytePtr bool) (Tag, error) {
	if isBytePtr {
		if isLocal {
			return LocalBytePtr, nil
		}
		return GlobalBytePtr, nil
	}
	switch kind {
	case symbols.Int:
		if isLocal {
			return LocalInt, nil
		}
		return GlobalInt, nil
	case symbols.Byte:
		if isLocal {
			return LocalByte, nil
		}
		return GlobalByte, nil
	case symbols.Str:
		if isLocal {
			return LocalStr, nil
		}
		return GlobalStr, nil
	default:
		return 0, fmt.Errorf("postfix: unknown value kind %d", kind)
	}
}

func arrayTag(kind symbols.ValueKind, isLocal bool) (Tag, error) {
	switch kind {
	case symbols.Int:
		if isLocal {
			return LocalIntArr, nil
		}
		return GlobalIntArr, nil
	case symbols.Byte:
		if isLocal {
			return LocalByteArr, nil
		}
		return GlobalByteArr, nil
	case symbols.Str:
		if isLocal {
			return LocalStrArr, nil
		}
		return GlobalStrArr, nil
	default:
		return 0, fmt.Errorf("postfix: unknown array value kind %d", kind)
	}
}
