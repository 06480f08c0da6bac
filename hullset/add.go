// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hullset

import (
	"github.com/grailbio/base/log"
)

// locate returns the slot s with s.spanStart <= v < next(s).spanStart.
// It starts from the most recently touched slot when that slot lies at
// or below v, and otherwise walks from the low sentinel.
func (h *Set) locate(v uint64) uint16 {
	i := h.recent
	if h.slot(i).spanStart > v {
		i = lowSentinel
	}
	for {
		nxt := h.slot(i).next
		if nxt == nilSlot || h.slot(nxt).spanStart > v {
			return i
		}
		i = nxt
	}
}

// Add inserts v into the set.  v must lie in [0, ValueLimit-1).  Adding
// a value twice does not grow the set; running out of slots degrades
// fidelity instead of failing.
func (h *Set) Add(v uint64) {
	if v >= ValueLimit-1 {
		log.Panicf("hullset.Add: value %#x out of range", v)
	}
	for {
		s := h.locate(v)
		ss := h.slot(s)
		if v < ss.skipStart {
			h.recent = s
			return
		}
		nxt := ss.next
		sn := h.slot(nxt)

		if s != lowSentinel && v == ss.skipStart {
			// v extends s's run by one.
			h.unbin(s)
			if nxt != highSentinel && v+1 == sn.spanStart {
				// The gap between s and its successor collapses.
				h.unbin(nxt)
				ss.skipStart = sn.skipStart
				h.unlink(nxt)
			} else {
				ss.skipStart = v + 1
			}
			h.rebin(s)
			h.recent = s
			return
		}
		if nxt != highSentinel && v+1 == sn.spanStart {
			// v extends the successor's run downward.
			if s != lowSentinel {
				h.unbin(s)
			}
			sn.spanStart = v
			if s != lowSentinel {
				h.rebin(s)
			}
			h.recent = nxt
			return
		}

		// Independent value.  Pick the cheaper of the gap in front of v
		// and the gap behind it; a sentinel neighbor forces the choice.
		before := v - ss.skipStart
		after := sn.spanStart - (v + 1)
		expandS := s != lowSentinel && (nxt == highSentinel || before <= after)
		dist := after
		if expandS {
			dist = before
		}

		i, dissolved, ok := h.allocSlot(dist)
		if !ok {
			h.degrade(s, nxt, v, v+1, expandS)
			return
		}
		if dissolved {
			// The dissolve restructured the chain; s and nxt may be
			// stale, or v may now fall inside a widened run.  Park the
			// slot on the free list and redo the placement.
			h.freeSlot(i)
			continue
		}
		h.linkRun(i, s, nxt, v, v+1)
		return
	}
}

// AddRange inserts every value in the half-open interval [lo, hi).
func (h *Set) AddRange(lo, hi uint64) {
	if lo >= hi {
		return
	}
	if hi > ValueLimit-1 {
		log.Panicf("hullset.AddRange: range [%#x, %#x) out of range", lo, hi)
	}
	for {
		s := h.locate(lo)
		ss := h.slot(s)
		if hi <= ss.skipStart {
			h.recent = s
			return
		}
		if s != lowSentinel && lo <= ss.skipStart {
			// The interval overlaps or continues s's run.
			h.unbin(s)
			ss.skipStart = hi
			h.swallow(s)
			h.rebin(s)
			h.recent = s
			return
		}
		nxt := ss.next
		sn := h.slot(nxt)
		if nxt != highSentinel && hi >= sn.spanStart {
			// The interval runs into the successor's run.
			if s != lowSentinel {
				h.unbin(s)
			}
			h.unbin(nxt)
			sn.spanStart = lo
			if hi > sn.skipStart {
				sn.skipStart = hi
				h.swallow(nxt)
			}
			h.rebin(nxt)
			if s != lowSentinel {
				h.rebin(s)
			}
			h.recent = nxt
			return
		}

		// Isolated interval.
		before := lo - ss.skipStart
		after := sn.spanStart - hi
		expandS := s != lowSentinel && (nxt == highSentinel || before <= after)
		dist := after
		if expandS {
			dist = before
		}

		i, dissolved, ok := h.allocSlot(dist)
		if !ok {
			h.degrade(s, nxt, lo, hi, expandS)
			return
		}
		if dissolved {
			h.freeSlot(i)
			continue
		}
		h.linkRun(i, s, nxt, lo, hi)
		return
	}
}

// AddSet folds every run of src into h.  Folding a set into itself is
// a no-op.
func (h *Set) AddSet(src *Set) {
	if src == h {
		return
	}
	it := src.Iter()
	for {
		lo, hi, ok := it.NextRange()
		if !ok {
			return
		}
		h.AddRange(lo, hi)
	}
}

// linkRun installs the freshly allocated slot i as the run [lo, hi)
// between s and nxt.
func (h *Set) linkRun(i, s, nxt uint16, lo, hi uint64) {
	si := h.slot(i)
	si.spanStart, si.skipStart = lo, hi
	si.prev, si.next = s, nxt
	si.skipPrev, si.skipNext = nilSlot, nilSlot
	if s != lowSentinel {
		h.unbin(s) // s's gap shrinks to [s.skipStart, lo)
	}
	h.slot(s).next = i
	h.slot(nxt).prev = i
	if s != lowSentinel {
		h.rebin(s)
	}
	h.rebin(i)
	h.recent = i
}

// degrade absorbs [lo, hi) into a neighboring run when no slot can be
// had: every value between the chosen neighbor and the interval now
// appears present.  This is the lossy half of the hull property.
func (h *Set) degrade(s, nxt uint16, lo, hi uint64, expandS bool) {
	if expandS {
		h.unbin(s)
		h.slot(s).skipStart = hi
		h.rebin(s)
		h.recent = s
		return
	}
	if nxt == highSentinel {
		// Unreachable: an empty set always has room for its first slot,
		// and otherwise one of the two neighbors is real.
		log.Panicf("hullset: cannot degrade between both sentinels")
	}
	if s != lowSentinel {
		h.unbin(s)
	}
	h.slot(nxt).spanStart = lo
	if s != lowSentinel {
		h.rebin(s)
	}
	h.recent = nxt
}

// swallow absorbs into x every following slot whose run now overlaps or
// touches x's extended run.  The caller has already unbinned x and must
// rebin it afterward.
func (h *Set) swallow(x uint16) {
	sx := h.slot(x)
	for {
		nxt := sx.next
		if nxt == highSentinel {
			return
		}
		sn := h.slot(nxt)
		if sn.spanStart > sx.skipStart {
			return
		}
		if sn.skipStart > sx.skipStart {
			sx.skipStart = sn.skipStart
		}
		h.unbin(nxt)
		h.unlink(nxt)
	}
}
