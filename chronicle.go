// Package chronicle maintains a compacted temporal sequence of
// identities: an online stream of atoms folded, pair by pair, into
// minted pattern identities as recurring adjacencies are discovered.
//
// The engine owns a fixed-capacity ring buffer of slots and a flat
// occurrence index locating every identity resident in the buffer.
// Knowledge about patterns lives outside, behind the Storage interface.
package chronicle

import (
	"fmt"
	"io"

	"github.com/mrabchevskiy/chronicle/flat"
)

// Identity names an atom or a pattern. Valid identities are in
// [1, IdentityLimit); Nihil marks absence.
type Identity uint32

const (
	// Nihil is the reserved identity of a nonexistent entity; a slot
	// carrying it is a hole.
	Nihil Identity = 0
	// IdentityLimit is the exclusive upper bound of valid identities.
	IdentityLimit Identity = 1 << 24
)

// Storage is the pattern-knowledge capability the engine consults. All
// four methods must be synchronous and must not call back into the
// Chronicle. Make is invoked only after Sticky approved the pair and
// Hunt reported it unknown, and must return a fresh non-Nihil identity.
type Storage interface {
	// Lex renders an identity for diagnostics.
	Lex(id Identity) string
	// Sticky reports whether a and b may be fused into a pattern.
	Sticky(a, b Identity) bool
	// Make mints and persists a pattern identity for the pair (a, b).
	Make(a, b Identity) Identity
	// Hunt returns the known pattern whose first two constituents are
	// (a, b), or Nihil.
	Hunt(a, b Identity) Identity
}

// StorageFuncs adapts four plain functions to the Storage interface.
type StorageFuncs struct {
	LexFunc    func(id Identity) string
	StickyFunc func(a, b Identity) bool
	MakeFunc   func(a, b Identity) Identity
	HuntFunc   func(a, b Identity) Identity
}

func (me StorageFuncs) Lex(id Identity) string      { return me.LexFunc(id) }
func (me StorageFuncs) Sticky(a, b Identity) bool   { return me.StickyFunc(a, b) }
func (me StorageFuncs) Make(a, b Identity) Identity { return me.MakeFunc(a, b) }
func (me StorageFuncs) Hunt(a, b Identity) Identity { return me.HuntFunc(a, b) }

// ref locates an identity inside the buffer: the position of its newest
// occurrence and the number of live occurrences.
type ref struct {
	last int32
	card uint32
}

// Chronicle is the stream-compaction engine. It is not safe for
// concurrent use; every operation runs to completion on the caller's
// goroutine.
type Chronicle struct {
	store Storage
	seq   *ring
	loc   *flat.Map[ref]
	holes int
}

// New returns an engine with the given pattern storage. The buffer
// capacity defaults to 1024 slots; see WithCapacity.
func New(store Storage, opts ...Option) (*Chronicle, error) {
	if store == nil {
		return nil, errNilStorage
	}
	cfg := config{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.capacity < MinCapacity {
		return nil, fmt.Errorf("%w: %d", errCapacity, cfg.capacity)
	}
	return &Chronicle{
		store: store,
		seq:   newRing(cfg.capacity),
		loc:   flat.NewMap[ref](cfg.capacity),
	}, nil
}

// Size returns the number of occupied buffer positions, holes included.
func (me *Chronicle) Size() int { return me.seq.size() }

// Len returns the number of live elements: Size minus Gap.
func (me *Chronicle) Len() int { return me.seq.size() - me.holes }

// Gap returns the number of holes left behind by pattern substitution.
func (me *Chronicle) Gap() int { return me.holes }

// Distinct returns the number of distinct identities currently resident.
func (me *Chronicle) Distinct() int { return me.loc.Len() }

// Empty reports whether the buffer holds nothing.
func (me *Chronicle) Empty() bool { return me.seq.empty() }

// Capacity returns the construction-time buffer capacity.
func (me *Chronicle) Capacity() int { return me.seq.capacity() }

// Last peeks the newest slot.
func (me *Chronicle) Last() Slot { return me.seq.last() }

// LastID peeks the newest slot's identity.
func (me *Chronicle) LastID() Identity { return me.seq.last().ID }

// Contains reports whether id occurs at least once in the buffer.
func (me *Chronicle) Contains(id Identity) bool {
	if id == Nihil || id >= IdentityLimit {
		return false
	}
	return me.loc.Contains(uint32(id))
}

// Num returns the number of live occurrences of id.
func (me *Chronicle) Num(id Identity) int {
	if id == Nihil || id >= IdentityLimit {
		return 0
	}
	if r := me.loc.Get(uint32(id)); r != nil {
		return int(r.card)
	}
	return 0
}

// Reset empties the buffer and the occurrence index.
func (me *Chronicle) Reset() {
	me.seq.clear()
	me.loc.Clear()
	me.holes = 0
}

// Process visits the buffer oldest first, passing each slot and its
// absolute buffer position; a false return stops the walk.
func (me *Chronicle) Process(fn func(s Slot, loc int) bool) bool {
	return me.seq.process(func(i int, s *Slot) bool { return fn(*s, i) })
}

// Compact removes every hole and rebuilds the occurrence index, then
// returns the number of holes eliminated. Buffer positions and Prev
// links are renumbered; nothing observed before Compact stays valid.
func (me *Chronicle) Compact() int {
	n := me.seq.compact()
	me.holes = 0
	me.mapLocation()
	return n
}

// mapLocation rebuilds the occurrence index and the Prev chains from the
// buffer content alone, one oldest-first pass.
func (me *Chronicle) mapLocation() {
	me.loc.Clear()
	me.holes = 0
	me.seq.process(func(i int, s *Slot) bool {
		if s.ID == Nihil {
			s.Prev = -1
			me.holes++
			return true
		}
		if r := me.loc.Get(uint32(s.ID)); r != nil {
			s.Prev = r.last
			r.last = int32(i)
			r.card++
			return true
		}
		s.Prev = -1
		me.loc.Incl(uint32(s.ID), ref{last: int32(i), card: 1})
		return true
	})
}

// push appends id at the newest end, evicting the oldest slot when the
// buffer is full and keeping the occurrence chains exact. It reports
// whether the occurrence index accepted the identity.
func (me *Chronicle) push(id Identity) bool {
	s := Slot{ID: id, Prev: -1}
	known := false
	if r := me.loc.Get(uint32(id)); r != nil {
		s.Prev = r.last
		known = true
	}
	if evicted, expelled := me.seq.tamp(s); expelled {
		me.repairExpelled(evicted)
	}
	top := me.seq.lastLoc()
	if r := me.loc.Get(uint32(id)); r != nil {
		r.last = int32(top)
		r.card++
		return true
	}
	if known {
		// The eviction just removed the only prior occurrence of id,
		// whose position the new slot reuses: break the self-link.
		me.seq.ref(top).Prev = -1
	}
	return me.loc.Incl(uint32(id), ref{last: int32(top), card: 1}).Ok()
}

// repairExpelled fixes the chain of the identity whose oldest occurrence
// was evicted by tamp. The evicted position equals the position of the
// slot just pushed, so the chain is cut at the node that pointed there.
func (me *Chronicle) repairExpelled(evicted Slot) {
	if evicted.ID == Nihil {
		if me.holes > 0 {
			me.holes--
		}
		return
	}
	r := me.loc.Get(uint32(evicted.ID))
	if r.card == 1 {
		me.loc.Excl(uint32(evicted.ID))
		return
	}
	succ := int32(me.seq.lastLoc()) // reused position of the evicted slot
	node := r.last
	for {
		prev := me.seq.ref(int(node)).Prev
		if prev == succ {
			me.seq.ref(int(node)).Prev = -1
			break
		}
		node = prev
	}
	r.card--
}

// pop removes the newest slot and keeps the occurrence index exact.
func (me *Chronicle) pop() Identity {
	s := me.seq.pop()
	if s.ID == Nihil {
		if me.holes > 0 {
			me.holes--
		}
		return s.ID
	}
	r := me.loc.Get(uint32(s.ID))
	if r.card > 1 {
		r.last = s.Prev
		r.card--
	} else {
		me.loc.Excl(uint32(s.ID))
	}
	return s.ID
}

// Consistent cross-checks the buffer against the occurrence index: every
// live slot's identity is indexed, every Prev link lands on a slot with
// the same identity, every chain's length equals its recorded
// cardinality, and the hole count matches the buffer content. Intended
// for tests and debugging; quadratic in the worst case.
func (me *Chronicle) Consistent() bool {
	ok := true
	holes := 0
	me.seq.process(func(i int, s *Slot) bool {
		if s.ID == Nihil {
			holes++
			return true
		}
		if s.ID >= IdentityLimit {
			ok = false
			return false
		}
		if !me.loc.Contains(uint32(s.ID)) {
			ok = false
		}
		if s.Prev >= 0 {
			if int(s.Prev) >= me.seq.capacity() {
				ok = false
			} else if me.seq.ref(int(s.Prev)).ID != s.ID {
				ok = false
			}
		}
		return true
	})
	if holes != me.holes {
		ok = false
	}
	me.loc.Process(func(key uint32, r *ref) bool {
		length := uint32(0)
		link := r.last
		for link >= 0 {
			if int(link) >= me.seq.capacity() {
				ok = false
				return false
			}
			if me.seq.ref(int(link)).ID != Identity(key) {
				ok = false
				return false
			}
			length++
			if length > uint32(me.seq.capacity()) {
				ok = false // cycle
				return false
			}
			link = me.seq.ref(int(link)).Prev
		}
		if length != r.card {
			ok = false
		}
		return true
	})
	return ok
}

// Dump writes a human-readable listing of the sequence and the resident
// identities, rendered through the storage's Lex.
func (me *Chronicle) Dump(w io.Writer) {
	fmt.Fprintf(w, "chronicle sequence: len %d, size %d, gaps %d\n", me.Len(), me.Size(), me.Gap())
	me.seq.process(func(i int, s *Slot) bool {
		switch {
		case s.ID == Nihil:
			fmt.Fprintf(w, " %4d |\n", i)
		case s.Prev >= 0:
			fmt.Fprintf(w, " %4d | %6d <- #%08d `%s`\n", i, s.Prev, s.ID, me.store.Lex(s.ID))
		default:
			fmt.Fprintf(w, " %4d |           #%08d `%s`\n", i, s.ID, me.store.Lex(s.ID))
		}
		return true
	})
	fmt.Fprintf(w, "chronicle contains %d distinct entities:\n", me.Distinct())
	me.loc.Process(func(key uint32, r *ref) bool {
		fmt.Fprintf(w, " #%08d  last:%6d  card:%5d | `%s`\n", key, r.last, r.card, me.store.Lex(Identity(key)))
		return true
	})
}

// SizeBytes returns the engine's memory footprint.
func (me *Chronicle) SizeBytes() int {
	return sizeofChronicleStruct + sizeofSlot*me.seq.capacity() + me.loc.SizeBytes()
}
