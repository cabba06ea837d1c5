package machine

import (
	"fmt"
	"strconv"
)

// val is one postfix evaluation result (spec.md §4.7): a tagged union over
// "int-shaped" (plain IntConst, or a byte-array pointer whose int coercion
// is its array size) and "string-shaped" (persistent or temporary slot).
// Unlike postfix.Element, val never needs a variable id or index slot —
// those have already been resolved into a concrete number or string by the
// time a value reaches the expression stack.
type val struct {
	isStr     bool
	isTemp    bool // only meaningful when isStr: true = strs.tmp, false = strs.persistent
	isBytePtr bool // true => a bare byte-array pointer operand (int coercion only)
	i         int32
	id        int // string slot id; a byte pointer's array size is held in i
}

func intVal(i int32) val { return val{i: i} }

func strVal(id int, temp bool) val { return val{isStr: true, isTemp: temp, id: id} }

func bytePtrVal(arraySize int32) val { return val{isBytePtr: true, i: arraySize} }

// toInt implements get_result_int (spec.md §4.7 "Coercion to int"): a string
// is parsed with atoi semantics (leading sign, digits, stop at the first
// non-digit, empty -> 0), consuming a temp slot as it's read.
func (m *Machine) toInt(v val) (int32, error) {
	if !v.isStr {
		return v.i, nil
	}
	b := m.strBytes(v)
	return atoiBytes(b), nil
}

// toBytes stringifies v for concatenation or a string-kind coercion. A bare
// byte-array pointer has no string coercion (spec.md §4.7).
func (m *Machine) toBytes(v val) ([]byte, error) {
	if v.isBytePtr {
		return nil, fmt.Errorf("machine: a byte array used as a pointer cannot be coerced to a string")
	}
	if !v.isStr {
		return []byte(strconv.Itoa(int(v.i))), nil
	}
	return m.strBytes(v), nil
}

// strBytes reads v's bytes, consuming (deactivating) a temp slot as
// spec.md's "atoi" and stringification rules require: a temp has exactly one
// producer and one consumer (spec.md §5).
func (m *Machine) strBytes(v val) []byte {
	if v.isTemp {
		b := append([]byte{}, m.strs.TmpBytes(v.id)...)
		_ = m.strs.Consume(v.id)
		return b
	}
	return m.strs.Bytes(v.id)
}

// discard drops a value that nothing will read (a bare call's result, or an
// operand already folded into another value), clearing a temp's active flag
// per spec.md §4.8's "If no target, discard the result and — if it was a
// TempStr — clear its active flag."
func (m *Machine) discard(v val) {
	if v.isStr && v.isTemp {
		_ = m.strs.Consume(v.id)
	}
}

// atoiBytes mirrors the original interpreter's atoi: an optional leading
// '-' or '+', then as many digits as are present; the first non-digit stops the
// scan; no digits at all yields 0.
func atoiBytes(b []byte) int32 {
	i := 0
	neg := false
	if i < len(b) && (b[i] == '-' || b[i] == '+') {
		neg = b[i] == '-'
		i++
	}
	var n int32
	start := i
	for i < len(b) && b[i] >= '0' && b[i] <= '9' {
		n = n*10 + int32(b[i]-'0')
		i++
	}
	if i == start {
		return 0
	}
	if neg {
		return -n
	}
	return n
}
