// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hullset

import (
	"math/bits"

	"github.com/grailbio/base/log"
)

const (
	slotsPerTable = 512
	maxTables     = 64

	// MaxSlots is the hard cap on the number of slots in one Set.  Slot
	// indices are 15-bit values; the top 6 bits select a table, the low
	// 9 an offset within it.
	MaxSlots = slotsPerTable * maxTables

	// MinSlots is the smallest usable slot budget: the two sentinels
	// plus one real slot.
	MinSlots = 3

	// ValueLimit is 1 + the largest storable integer.  Values occupy 34
	// bits; the high sentinel sits at ValueLimit itself.
	ValueLimit = uint64(1) << 34

	nilSlot = ^uint16(0)

	lowSentinel  = uint16(0)
	highSentinel = uint16(1)

	// numBins is the number of gap bins: one per power of two up to
	// floor(log2(ValueLimit)).
	numBins = 35
)

// A slot covers the occupied run [spanStart, skipStart).  Slots form a
// doubly linked list in value order via prev/next, and each
// non-sentinel slot is additionally chained into the gap bin matching
// the width of the gap between its run and its successor's.
type slot struct {
	spanStart uint64
	skipStart uint64
	prev      uint16
	next      uint16
	skipPrev  uint16
	skipNext  uint16
}

type cursor struct {
	s   uint16
	off uint64
}

// Set is a bounded-memory, lossy set of 34-bit integers.  It never
// forgets a value it was given; when it runs out of slots it instead
// fuses the narrowest gap between two runs, which may make values that
// were never added appear present.  That one-sided error is the hull
// property.
type Set struct {
	tables [][]slot
	bins   [numBins]uint16
	free   uint16
	n      int // slots handed out, including sentinels and free-listed ones
	peak   int
	max    int
	recent uint16 // last slot touched by a mutation; locate starts here
	cur    cursor
}

// New returns an empty Set that will never hold more than max slots.
// max is clamped into [MinSlots, MaxSlots].
func New(max int) *Set {
	if max < MinSlots {
		max = MinSlots
	}
	if max > MaxSlots {
		max = MaxSlots
	}
	h := &Set{
		free: nilSlot,
		n:    2,
		peak: 2,
		max:  max,
	}
	for i := range h.bins {
		h.bins[i] = nilSlot
	}
	h.tables = append(h.tables, make([]slot, slotsPerTable))
	*h.slot(lowSentinel) = slot{
		spanStart: 0, skipStart: 0,
		prev: nilSlot, next: highSentinel,
		skipPrev: nilSlot, skipNext: nilSlot,
	}
	*h.slot(highSentinel) = slot{
		spanStart: ValueLimit, skipStart: ValueLimit,
		prev: lowSentinel, next: nilSlot,
		skipPrev: nilSlot, skipNext: nilSlot,
	}
	h.cur = cursor{s: lowSentinel}
	return h
}

func (h *Set) slot(i uint16) *slot {
	return &h.tables[i>>9][i&(slotsPerTable-1)]
}

// NumSlots returns the number of slots currently allocated, sentinels
// included.
func (h *Set) NumSlots() int { return h.n }

// PeakSlots returns the high-water slot count.
func (h *Set) PeakSlots() int { return h.peak }

// binOf computes the bin index for slot i from its current gap width.
// It must be called while i's links and bounds are consistent.
func (h *Set) binOf(i uint16) int {
	si := h.slot(i)
	gap := h.slot(si.next).spanStart - si.skipStart
	if gap == 0 {
		return 0
	}
	return bits.Len64(gap) - 1
}

// unbin removes slot i from its gap bin.  Callers must unbin a slot
// before changing anything its gap width depends on.
func (h *Set) unbin(i uint16) {
	if i < 2 {
		return
	}
	si := h.slot(i)
	if si.skipPrev != nilSlot {
		h.slot(si.skipPrev).skipNext = si.skipNext
	} else {
		b := h.binOf(i)
		if h.bins[b] != i {
			log.Panicf("hullset: slot %d not at the head of bin %d", i, b)
		}
		h.bins[b] = si.skipNext
	}
	if si.skipNext != nilSlot {
		h.slot(si.skipNext).skipPrev = si.skipPrev
	}
	si.skipPrev, si.skipNext = nilSlot, nilSlot
}

// rebin pushes slot i onto the bin matching its current gap width.
func (h *Set) rebin(i uint16) {
	if i < 2 {
		return
	}
	si := h.slot(i)
	b := h.binOf(i)
	si.skipPrev = nilSlot
	si.skipNext = h.bins[b]
	if si.skipNext != nilSlot {
		h.slot(si.skipNext).skipPrev = i
	}
	h.bins[b] = i
}

// chainRemove takes slot i out of the value chain without recycling
// it.  The slot must already be out of its bin.
func (h *Set) chainRemove(i uint16) {
	si := h.slot(i)
	h.slot(si.prev).next = si.next
	h.slot(si.next).prev = si.prev
	if h.recent == i {
		h.recent = si.prev
	}
	if h.cur.s == i {
		h.cur = cursor{s: lowSentinel}
	}
}

// unlink removes slot i from the value chain and pushes it onto the
// free list.  The slot must already be out of its bin.
func (h *Set) unlink(i uint16) {
	h.chainRemove(i)
	h.freeSlot(i)
}

// freeSlot pushes an unlinked slot onto the free list, threaded through
// the next field.
func (h *Set) freeSlot(i uint16) {
	si := h.slot(i)
	si.spanStart, si.skipStart = 0, 0
	si.prev, si.skipPrev, si.skipNext = nilSlot, nilSlot, nilSlot
	si.next = h.free
	h.free = i
}

// allocSlot produces a slot index for a caller about to spend it on a
// gap of the given width.  It tries the free list, then fresh space,
// and finally sacrifices a strictly narrower gap than the caller's.
// dissolved reports whether the returned index came from that last
// resort, in which case the chain has been restructured and any slot
// indices the caller held may be stale.
func (h *Set) allocSlot(distance uint64) (idx uint16, dissolved, ok bool) {
	if h.free != nilSlot {
		idx = h.free
		h.free = h.slot(idx).next
		h.slot(idx).next = nilSlot
		return idx, false, true
	}
	if h.n < h.max {
		if h.n == len(h.tables)*slotsPerTable {
			h.tables = append(h.tables, make([]slot, slotsPerTable))
		}
		idx = uint16(h.n)
		h.n++
		if h.n > h.peak {
			h.peak = h.n
		}
		return idx, false, true
	}
	if distance == 0 {
		return nilSlot, false, false
	}
	limit := bits.Len64(distance) - 1
	if limit > numBins {
		limit = numBins
	}
	for b := 0; b < limit; b++ {
		for v := h.bins[b]; v != nilSlot; v = h.slot(v).skipNext {
			if i, ok := h.dissolve(v); ok {
				return i, true, true
			}
		}
	}
	return nilSlot, false, false
}

// dissolve removes slot v by fusing its run and its trailing gap into
// its successor: the successor's spanStart moves down to v's spanStart,
// so every value v covered stays covered.  Slots running up against the
// high sentinel cannot be dissolved.
func (h *Set) dissolve(v uint16) (uint16, bool) {
	sv := h.slot(v)
	nxt := sv.next
	if nxt == highSentinel {
		return nilSlot, false
	}
	h.unbin(v)
	// The predecessor's gap width is unchanged: the successor's span now
	// starts exactly where v's did.
	h.slot(nxt).spanStart = sv.spanStart
	// Out of the chain but not onto the free list: the caller owns the
	// index now.
	h.chainRemove(v)
	return v, true
}
