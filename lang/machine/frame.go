package machine

import "github.com/ukw100/nic/lang/symbols"

// forState is the runtime-only bound/step cache a For/EndFor pair needs
// (spec.md §4.8's "For caches stop and step once on entry"). It is kept
// per frame, keyed by the For statement's index, rather than mutated in
// place on the shared statement array: the statement array is one flat
// slice shared by every call, including recursive re-entries into the same
// function body, so caching on the statement itself would let a recursive
// call racing a suspended outer loop corrupt the outer loop's bounds.
type forState struct {
	stop int32
	step int32
}

// frame is one user function call's local storage (spec.md §3 "Frame"). Its
// cell layout mirrors symbols.Table exactly: one slice per kind, indexed by
// the variable id Locals assigned at compile time, each cell itself a slice
// of length 1 for a scalar or ArraySize for an array. A local string cell
// holds persistent strpool slot ids, not bytes, so assignment is a pool
// operation and a returned local string can be recognised as "about to be
// released" purely by id range (see protectReturn).
type frame struct {
	fn *symbols.Function

	ints  [][]int32
	bytes [][]byte
	strs  [][]int

	// strBase is the persistent strpool high-water mark as it stood before
	// this frame's local string cells were allocated; strBase+strCount is
	// the exclusive upper bound of ids this frame owns.
	strBase  int
	strCount int

	forCache    map[int]forState
	repeatCache map[int]int
}

// newFrame allocates zero-valued int/byte cells and fresh persistent string
// slots for fn's locals (spec.md §4.8 "Frame setup on entry to a user
// function", steps 1-2), leaving argument binding to the caller.
func (m *Machine) newFrame(fn *symbols.Function) *frame {
	locals := fn.Locals
	fr := &frame{
		fn:          fn,
		ints:        make([][]int32, locals.Count(symbols.Int)),
		bytes:       make([][]byte, locals.Count(symbols.Byte)),
		strs:        make([][]int, locals.Count(symbols.Str)),
		strBase:     m.strs.Len(),
		forCache:    make(map[int]forState),
		repeatCache: make(map[int]int),
	}
	for i, sc := range locals.Vars[symbols.Int] {
		fr.ints[i] = make([]int32, cellLen(sc))
	}
	for i, sc := range locals.Vars[symbols.Byte] {
		fr.bytes[i] = make([]byte, cellLen(sc))
	}
	for i, sc := range locals.Vars[symbols.Str] {
		n := cellLen(sc)
		cell := make([]int, n)
		for j := range cell {
			cell[j] = m.strs.NewSlot(nil)
		}
		fr.strs[i] = cell
		fr.strCount += n
	}
	return fr
}

// releaseFrame returns fr's persistent string slots to the pool (spec.md §4.8
// "Frame teardown"). It must run after the return value has already been
// protected (see protectReturn), since releasing rewinds the very slot ids
// a naive direct return might still be pointing at.
func (m *Machine) releaseFrame(fr *frame) error {
	return m.strs.ReleaseFrame(fr.strCount)
}

func cellLen(sc *symbols.Scalar) int {
	if sc.IsArray {
		return sc.ArraySize
	}
	return 1
}
