// Package storage implements the pattern-knowledge collaborator behind
// the chronicle.Storage interface: an atom table mapping input symbols
// to identities, and a pattern store where every minted pattern keeps
// its fully expanded atom sequence in a fixed arena.
//
// Two lookup structures index the patterns: the view map resolves a
// (head, tail) identity pair to the pattern minted for it, and the
// glossary resolves an expanded atom sequence, so two different views
// that flatten to the same sequence share one pattern identity.
package storage

import (
	"strconv"

	"github.com/OneOfOne/xxhash"
	"github.com/google/uuid"

	"github.com/mrabchevskiy/chronicle"
	"github.com/mrabchevskiy/chronicle/flat"
	"github.com/mrabchevskiy/chronicle/internal/arena"
	"github.com/mrabchevskiy/chronicle/internal/sizeof"
	"github.com/mrabchevskiy/chronicle/internal/unsafeutil"
)

const idMask = uint32(chronicle.IdentityLimit) - 1

// glossEntry is one glossary candidate under a sequence hash.
type glossEntry struct {
	seq []uint32
	id  chronicle.Identity
}

// Store holds atoms and patterns. It satisfies chronicle.Storage.
type Store struct {
	arena    *arena.Arena
	atoms    map[chronicle.Identity]byte
	symbols  [256]chronicle.Identity
	patterns map[chronicle.Identity][]uint32
	views    map[uint64]chronicle.Identity
	glossary map[uint64][]glossEntry
	loose    *flat.Set // atom kinds excluded from fusion
	newID    func() uint32
}

var _ chronicle.Storage = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithIDSource replaces the random identity source. fn may yield any
// 32-bit values: they are masked to 24 bits, and Nihil or taken values
// are drawn again. Intended for deterministic tests.
func WithIDSource(fn func() uint32) Option {
	return func(me *Store) { me.newID = fn }
}

// New returns a store whose pattern sequences share one arena of
// arenaWords identity words.
func New(arenaWords int, opts ...Option) *Store {
	me := &Store{
		arena:    arena.New(arenaWords),
		atoms:    make(map[chronicle.Identity]byte),
		patterns: make(map[chronicle.Identity][]uint32),
		views:    make(map[uint64]chronicle.Identity),
		glossary: make(map[uint64][]glossEntry),
		loose:    flat.NewSet(256),
		newID:    func() uint32 { return uuid.New().ID() },
	}
	for _, opt := range opts {
		opt(me)
	}
	return me
}

// Atom returns the identity of symbol, minting one on first sight.
func (me *Store) Atom(symbol byte) chronicle.Identity {
	if id := me.symbols[symbol]; id != chronicle.Nihil {
		return id
	}
	id := me.fresh()
	me.symbols[symbol] = id
	me.atoms[id] = symbol
	return id
}

// Symbol returns the symbol an atomic identity stands for.
func (me *Store) Symbol(id chronicle.Identity) (byte, bool) {
	symbol, ok := me.atoms[id]
	return symbol, ok
}

// Atomic reports whether id names an atom.
func (me *Store) Atomic(id chronicle.Identity) bool {
	_, ok := me.atoms[id]
	return ok
}

// Composite reports whether id names a pattern.
func (me *Store) Composite(id chronicle.Identity) bool {
	_, ok := me.patterns[id]
	return ok
}

// Exists reports whether id names an atom or a pattern.
func (me *Store) Exists(id chronicle.Identity) bool {
	return me.Atomic(id) || me.Composite(id)
}

// MarkUnconnectable excludes an atom kind from pattern fusion; see
// Sticky.
func (me *Store) MarkUnconnectable(id chronicle.Identity) {
	me.loose.Incl(uint32(id))
}

// Sticky reports whether the pair (head, tail) may fuse: never behind an
// unconnectable head, and never onto an unconnectable tail while the
// head is still a bare atom.
func (me *Store) Sticky(head, tail chronicle.Identity) bool {
	if me.loose.Contains(uint32(head)) {
		return false
	}
	if me.loose.Contains(uint32(tail)) && me.Atomic(head) {
		return false
	}
	return true
}

// Lex renders an identity: the symbol itself for an atom, the expanded
// symbol sequence for a pattern, and a bracketed number otherwise.
func (me *Store) Lex(id chronicle.Identity) string {
	if symbol, ok := me.atoms[id]; ok {
		return string(symbol)
	}
	seq, ok := me.patterns[id]
	if !ok {
		return "{" + strconv.FormatUint(uint64(id), 10) + "}"
	}
	out := make([]byte, 0, len(seq))
	for _, atom := range seq {
		if symbol, ok := me.atoms[chronicle.Identity(atom)]; ok {
			out = append(out, symbol)
		} else {
			out = append(out, '?')
		}
	}
	return string(out)
}

// Hunt returns the pattern previously minted for (head, tail), or Nihil.
// A view miss falls back to the glossary: when the expansion is already
// known under another view, that pattern is adopted and the new view
// cached.
func (me *Store) Hunt(head, tail chronicle.Identity) chronicle.Identity {
	if id, ok := me.views[viewKey(head, tail)]; ok {
		return id
	}
	seq, ok := me.expandPair(head, tail)
	if !ok {
		return chronicle.Nihil
	}
	if id, ok := me.findSequence(seq); ok {
		me.views[viewKey(head, tail)] = id
		return id
	}
	return chronicle.Nihil
}

// Make mints a pattern for (head, tail) and returns its identity, or the
// already-minted identity when the pair's expansion is known under
// another view. Returns Nihil when either constituent is unknown or the
// arena cannot hold the expanded sequence.
func (me *Store) Make(head, tail chronicle.Identity) chronicle.Identity {
	seq, ok := me.expandPair(head, tail)
	if !ok {
		return chronicle.Nihil
	}
	if id, ok := me.findSequence(seq); ok {
		me.views[viewKey(head, tail)] = id
		return id
	}
	block, ok := me.arena.Settle(len(seq))
	if !ok {
		return chronicle.Nihil
	}
	copy(block, seq)
	id := me.fresh()
	me.patterns[id] = block
	me.views[viewKey(head, tail)] = id
	h := seqHash(block)
	me.glossary[h] = append(me.glossary[h], glossEntry{seq: block, id: id})
	return id
}

// Expand returns a copy of the expanded atom sequence of id; an atom
// expands to itself.
func (me *Store) Expand(id chronicle.Identity) ([]chronicle.Identity, bool) {
	var scratch []uint32
	seq, ok := me.unfold(scratch, id)
	if !ok {
		return nil, false
	}
	out := make([]chronicle.Identity, len(seq))
	for i, v := range seq {
		out[i] = chronicle.Identity(v)
	}
	return out, true
}

// NumAtoms returns the number of minted atoms.
func (me *Store) NumAtoms() int { return len(me.atoms) }

// NumPatterns returns the number of minted patterns.
func (me *Store) NumPatterns() int { return len(me.patterns) }

// NumViews returns the number of cached (head, tail) views.
func (me *Store) NumViews() int { return len(me.views) }

// ArenaOccupied returns the number of arena words holding patterns.
func (me *Store) ArenaOccupied() int { return me.arena.Occupied() }

// ArenaAvailable returns the number of arena words still free.
func (me *Store) ArenaAvailable() int { return me.arena.Available() }

// SizeBytes approximates the store's memory footprint: the arena block,
// the atom and pattern tables, and the view and glossary indexes.
func (me *Store) SizeBytes() int {
	atoms := sizeof.UInt32Map + len(me.atoms)*(sizeof.UInt32+sizeof.Byte) + 256*sizeof.UInt32
	patterns := sizeof.UInt32Map + len(me.patterns)*(sizeof.UInt32+sizeof.UInt32Slice)
	views := sizeof.UInt32Map + len(me.views)*(sizeof.UInt64+sizeof.UInt32)
	glossary := sizeof.UInt32Map + len(me.glossary)*(sizeof.UInt64+sizeof.UInt32Slice+sizeof.UInt32)
	arenaBytes := sizeof.UInt32 * me.arena.Capacity()
	return atoms + patterns + views + glossary + arenaBytes + me.loose.SizeBytes()
}

// Patterns visits every pattern with its expanded sequence; a false
// return stops the walk. The sequence must not be retained or mutated.
func (me *Store) Patterns(fn func(id chronicle.Identity, seq []chronicle.Identity) bool) {
	scratch := make([]chronicle.Identity, 0, 64)
	for id, seq := range me.patterns {
		scratch = scratch[:0]
		for _, v := range seq {
			scratch = append(scratch, chronicle.Identity(v))
		}
		if !fn(id, scratch) {
			return
		}
	}
}

// Views visits every cached (head, tail) → pattern view.
func (me *Store) Views(fn func(head, tail, id chronicle.Identity) bool) {
	for key, id := range me.views {
		if !fn(chronicle.Identity(key>>32), chronicle.Identity(key&0xFFFFFFFF), id) {
			return
		}
	}
}

// expandPair flattens head then tail into one atom sequence.
func (me *Store) expandPair(head, tail chronicle.Identity) ([]uint32, bool) {
	seq := make([]uint32, 0, 64)
	seq, ok := me.unfold(seq, head)
	if !ok {
		return nil, false
	}
	seq, ok = me.unfold(seq, tail)
	if !ok {
		return nil, false
	}
	return seq, true
}

// unfold appends the expansion of id to dst: the id itself for an atom,
// the stored sequence for a pattern.
func (me *Store) unfold(dst []uint32, id chronicle.Identity) ([]uint32, bool) {
	if me.Atomic(id) {
		return append(dst, uint32(id)), true
	}
	seq, ok := me.patterns[id]
	if !ok {
		return dst, false
	}
	return append(dst, seq...), true
}

// findSequence resolves an expanded sequence through the glossary.
func (me *Store) findSequence(seq []uint32) (chronicle.Identity, bool) {
	for _, cand := range me.glossary[seqHash(seq)] {
		if seqEqual(cand.seq, seq) {
			return cand.id, true
		}
	}
	return chronicle.Nihil, false
}

// fresh draws random 24-bit identities until an unused one turns up.
func (me *Store) fresh() chronicle.Identity {
	for {
		id := chronicle.Identity(me.newID() & idMask)
		if id != chronicle.Nihil && !me.Exists(id) {
			return id
		}
	}
}

func viewKey(head, tail chronicle.Identity) uint64 {
	return uint64(head)<<32 | uint64(tail)
}

func seqHash(seq []uint32) uint64 {
	return xxhash.Checksum64(unsafeutil.Uint32Bytes(seq))
}

func seqEqual(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
