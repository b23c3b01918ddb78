package chronicle

import "fmt"

// Incl feeds one identity into the sequence and folds the tail for as
// long as the two newest live elements form a known or newly mintable
// pattern. It returns false for an invalid identity (Nihil or out of
// range) and when the occurrence index refuses an insertion; both leave
// forward progress impossible for that identity only.
func (me *Chronicle) Incl(id Identity) bool {
	if id == Nihil || id >= IdentityLimit {
		return false
	}
	if me.seq.empty() {
		return me.push(id)
	}

	pred := me.seq.last()
	if !me.push(id) {
		return false
	}
	succ := me.seq.last()

	for {
		if pred.ID == Nihil {
			// Folding consumed everything below the newest slot.
			return true
		}

		// A pattern already known for the newest pair folds immediately.
		if pattern := me.store.Hunt(pred.ID, succ.ID); pattern != Nihil {
			pred, succ = me.replaceTopPair(pattern)
			continue
		}

		if !me.store.Sticky(pred.ID, succ.ID) {
			return true
		}

		if pred.ID == succ.ID {
			// A doubled identity is always a new pattern: Hunt above
			// just reported the pair unknown.
			pattern := me.mint(succ.ID, succ.ID)
			pred, succ = me.replaceTopPair(pattern)
			// The freshly pushed slot is the first occurrence ever of
			// the minted identity.
			me.loc.Get(uint32(pattern)).card = 1
			continue
		}

		iA, iB := me.nearestAdjacent(pred.ID, succ.ID)
		if iA < 0 || iB < 0 {
			return true
		}

		// The newest pair repeats an earlier adjacency: mint a pattern,
		// rewrite the earlier pair in place (hole + pattern), then fold
		// the newest pair onto it.
		pattern := me.mint(pred.ID, succ.ID)
		me.spliceHole(pred.ID, iA)
		me.spliceRewrite(succ.ID, iB, pattern)
		me.holes++
		pred, succ = me.replaceTopPair(pattern)
		// Link the pushed occurrence back to the rewritten one; push
		// created the ref with card 1, unaware of the rewrite.
		me.seq.lastRef().Prev = int32(iB)
		me.loc.Get(uint32(pattern)).card = 2
	}
}

// mint calls Storage.Make and enforces its contract.
func (me *Chronicle) mint(a, b Identity) Identity {
	pattern := me.store.Make(a, b)
	if pattern == Nihil {
		panic(fmt.Sprintf("chronicle: storage failed to mint a pattern for (%d, %d)", a, b))
	}
	return pattern
}

// replaceTopPair pops the two newest slots — and any holes this exposes —
// then pushes the pattern through the regular path so the occurrence
// index follows. It returns the new second-newest and newest slots; the
// former is a hole sentinel when folding emptied the buffer.
func (me *Chronicle) replaceTopPair(pattern Identity) (pred, succ Slot) {
	me.pop()
	me.pop()
	for !me.seq.empty() && me.seq.last().ID == Nihil {
		me.pop()
	}
	pred = me.seq.last()
	me.push(pattern)
	return pred, me.seq.last()
}

// nearestAdjacent walks the occurrence chains of pred and succ from
// newest toward oldest in lockstep, skipping the newest occurrence of
// each (the freshly pushed pair itself), and returns the positions of
// the first earlier pair that sits adjacent in buffer order, or (-1,-1).
//
// A Prev link that jumps to a larger position marks the chain crossing
// the buffer seam; from then on that chain's positions are compared
// shifted down by the capacity, which restores a common monotone scale.
func (me *Chronicle) nearestAdjacent(pred, succ Identity) (int, int) {
	rp := me.loc.Get(uint32(pred))
	if rp == nil || rp.card < 2 {
		return -1, -1
	}
	rs := me.loc.Get(uint32(succ))
	if rs == nil || rs.card < 2 {
		return -1, -1
	}

	shift := me.seq.capacity()

	pi, pshift := int(rp.last), 0
	if next := int(me.seq.ref(pi).Prev); next > pi {
		pshift = shift
		pi = next
	} else {
		pi = next
	}

	si, sshift := int(rs.last), 0
	if next := int(me.seq.ref(si).Prev); next > si {
		sshift = shift
		si = next
	} else {
		si = next
	}

	for pi >= 0 && si >= 0 {
		if me.seq.adjacent(pi, si) {
			return pi, si
		}
		if pi-pshift > si-sshift {
			next := int(me.seq.ref(pi).Prev)
			if next > pi {
				pshift = shift
			}
			pi = next
		} else {
			next := int(me.seq.ref(si).Prev)
			if next > si {
				sshift = shift
			}
			si = next
		}
	}
	return -1, -1
}

// spliceHole unlinks the occurrence of id at position `at` from its
// chain and turns the slot into a hole. The caller accounts for the
// hole.
func (me *Chronicle) spliceHole(id Identity, at int) {
	r := me.loc.Get(uint32(id))
	me.splice(r, at)
	*me.seq.ref(at) = hole()
	r.last = me.seq.ref(int(r.last)).Prev
	r.card--
}

// spliceRewrite unlinks the occurrence of id at position `at` and
// rewrites the slot in place to carry the pattern as a fresh,
// chain-less occurrence.
func (me *Chronicle) spliceRewrite(id Identity, at int, pattern Identity) {
	r := me.loc.Get(uint32(id))
	me.splice(r, at)
	*me.seq.ref(at) = Slot{ID: pattern, Prev: -1}
	r.last = me.seq.ref(int(r.last)).Prev
	r.card--
}

// splice cuts position `at` out of the chain anchored at r.last. The
// node is known to be present and strictly older than the anchor.
func (me *Chronicle) splice(r *ref, at int) {
	node := int(r.last)
	prev := int(me.seq.ref(node).Prev)
	for prev != at {
		node = prev
		prev = int(me.seq.ref(node).Prev)
	}
	me.seq.ref(node).Prev = me.seq.ref(at).Prev
}
