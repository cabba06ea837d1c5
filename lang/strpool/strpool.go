// Package strpool implements NIC's two string pools: a persistent pool whose
// slot ids are stable for the program's lifetime, and a temporary pool whose
// slots are reused once inactive.
//
// This is a direct port of nicstrings.c's slot/grow bookkeeping: growth
// always reserves the requested size plus 64 bytes, shrinking never happens, and releasing a
// frame only rewinds the high-water mark of the persistent pool (the backing
// arrays are kept around for the next call).
package strpool

import "fmt"

// growGranularity matches ALLOC_GRANULARITY in nicstrings.c: every grow
// reserves at least this many extra bytes beyond what was requested.
const growGranularity = 64

// Slot is one entry in either pool.
type Slot struct {
	Bytes  []byte
	Active bool // only meaningful for temp slots
}

// Pool owns the persistent and temporary string slots for one compiled
// program (compile time) or one running interpreter (runtime); both sides use
// the same type.
type Pool struct {
	persistent []Slot
	used       int // high-water mark within persistent; release_frame rewinds this
	tmp        []Slot
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{}
}

// Len returns the number of persistent slots currently in use, for
// serializing the pool (lang/ir writes one line per slot in [0, Len())).
func (p *Pool) Len() int { return p.used }

// NewSlot allocates (or reuses, if rewound by a prior ReleaseFrame) the next
// persistent slot and initializes it with init (nil means empty string).
// Persistent slot ids are stable for the program's life.
func (p *Pool) NewSlot(init []byte) int {
	id := p.used
	if id == len(p.persistent) {
		p.persistent = append(p.persistent, Slot{})
	}
	p.assignBacking(&p.persistent[id], init)
	p.used++
	return id
}

// NewTmpSlot returns the first inactive temp slot, marking it active, or
// extends the pool if all existing temp slots are active.
func (p *Pool) NewTmpSlot(init []byte) int {
	for i := range p.tmp {
		if !p.tmp[i].Active {
			p.assignBacking(&p.tmp[i], init)
			p.tmp[i].Active = true
			return i
		}
	}
	id := len(p.tmp)
	p.tmp = append(p.tmp, Slot{})
	p.assignBacking(&p.tmp[id], init)
	p.tmp[id].Active = true
	return id
}

func (p *Pool) assignBacking(s *Slot, init []byte) {
	if init == nil {
		s.Bytes = s.Bytes[:0]
		return
	}
	p.growTo(s, len(init))
	s.Bytes = append(s.Bytes[:0], init...)
}

// growTo ensures s.Bytes has capacity for at least need bytes, growing it to
// need+growGranularity when it doesn't, mirroring copy_str2string's policy.
func (p *Pool) growTo(s *Slot, need int) {
	if cap(s.Bytes) >= need {
		return
	}
	fresh := make([]byte, len(s.Bytes), need+growGranularity)
	copy(fresh, s.Bytes)
	s.Bytes = fresh
}

// Assign overwrites a slot's contents (persistent: by id; temp: use
// TmpBytes/AssignTmp below). id must have been returned by NewSlot.
func (p *Pool) Assign(id int, b []byte) error {
	if id < 0 || id >= p.used {
		return fmt.Errorf("strpool: assign: invalid persistent slot %d", id)
	}
	p.assignBacking(&p.persistent[id], b)
	return nil
}

// Concat appends b to the slot's current contents.
func (p *Pool) Concat(id int, b []byte) error {
	if id < 0 || id >= p.used {
		return fmt.Errorf("strpool: concat: invalid persistent slot %d", id)
	}
	s := &p.persistent[id]
	p.growTo(s, len(s.Bytes)+len(b))
	s.Bytes = append(s.Bytes, b...)
	return nil
}

// Bytes returns the current contents of a persistent slot.
func (p *Pool) Bytes(id int) []byte {
	if id < 0 || id >= p.used {
		return nil
	}
	return p.persistent[id].Bytes
}

// AssignTmp overwrites a temp slot's contents in place.
func (p *Pool) AssignTmp(id int, b []byte) error {
	if id < 0 || id >= len(p.tmp) {
		return fmt.Errorf("strpool: assign: invalid temp slot %d", id)
	}
	p.assignBacking(&p.tmp[id], b)
	return nil
}

// ConcatTmp appends b to a temp slot's contents.
func (p *Pool) ConcatTmp(id int, b []byte) error {
	if id < 0 || id >= len(p.tmp) {
		return fmt.Errorf("strpool: concat: invalid temp slot %d", id)
	}
	s := &p.tmp[id]
	p.growTo(s, len(s.Bytes)+len(b))
	s.Bytes = append(s.Bytes, b...)
	return nil
}

// TmpBytes returns the current contents of a temp slot.
func (p *Pool) TmpBytes(id int) []byte {
	if id < 0 || id >= len(p.tmp) {
		return nil
	}
	return p.tmp[id].Bytes
}

// TmpActive reports whether a temp slot is currently marked active.
func (p *Pool) TmpActive(id int) bool {
	if id < 0 || id >= len(p.tmp) {
		return false
	}
	return p.tmp[id].Active
}

// Consume clears a temp slot's active flag. It is a runtime invariant
// violation to consume a slot that is not active.
func (p *Pool) Consume(id int) error {
	if id < 0 || id >= len(p.tmp) {
		return fmt.Errorf("strpool: consume: invalid temp slot %d", id)
	}
	if !p.tmp[id].Active {
		return fmt.Errorf("strpool: consume: temp slot %d is not active", id)
	}
	p.tmp[id].Active = false
	return nil
}

// ReleaseFrame logically pops n persistent slots off the top of the pool. The
// backing storage is kept for the next call, per nicstrings.c's
// del_stringslots.
func (p *Pool) ReleaseFrame(n int) error {
	if n > p.used {
		return fmt.Errorf("strpool: release_frame: releasing %d slots but only %d used", n, p.used)
	}
	p.used -= n
	return nil
}

// DeactivateAllTemps marks every temp slot inactive regardless of prior
// state. lang/machine does not call it; the executor consumes each temp
// individually instead.
func (p *Pool) DeactivateAllTemps() {
	for i := range p.tmp {
		p.tmp[i].Active = false
	}
}

// MoveTmpToSlot swaps a temp slot's backing storage into a persistent slot
// (used when a function's returned string is moved into a caller-owned
// slot instead of copied) and consumes the temp.
func (p *Pool) MoveTmpToSlot(dst, tmpID int) error {
	if dst < 0 || dst >= p.used {
		return fmt.Errorf("strpool: move: invalid persistent slot %d", dst)
	}
	if tmpID < 0 || tmpID >= len(p.tmp) {
		return fmt.Errorf("strpool: move: invalid temp slot %d", tmpID)
	}
	p.persistent[dst].Bytes, p.tmp[tmpID].Bytes = p.tmp[tmpID].Bytes, p.persistent[dst].Bytes
	return p.Consume(tmpID)
}
