// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hullset

// The set carries one internal cursor for callers that just want to
// walk it once; an Iterator keeps the same state outside the set so
// several walks can be in flight.  Either way, any mutation of the set
// invalidates cursors that were live when it started.

func (h *Set) next(c *cursor) (uint64, bool) {
	for {
		if c.s == highSentinel || c.s == nilSlot {
			return 0, false
		}
		sl := h.slot(c.s)
		if c.off >= sl.skipStart-sl.spanStart {
			c.s, c.off = sl.next, 0
			continue
		}
		v := sl.spanStart + c.off
		c.off++
		return v, true
	}
}

func (h *Set) nextRange(c *cursor) (lo, hi uint64, ok bool) {
	for {
		if c.s == highSentinel || c.s == nilSlot {
			return 0, 0, false
		}
		sl := h.slot(c.s)
		if c.off >= sl.skipStart-sl.spanStart {
			c.s, c.off = sl.next, 0
			continue
		}
		lo, hi = sl.spanStart+c.off, sl.skipStart
		c.s, c.off = sl.next, 0
		return lo, hi, true
	}
}

func (h *Set) seek(c *cursor, v uint64) bool {
	s := h.locate(v)
	sl := h.slot(s)
	if v < sl.skipStart {
		c.s, c.off = s, v-sl.spanStart
		return true
	}
	c.s, c.off = sl.next, 0
	return false
}

func (h *Set) find(c *cursor, v uint64) (uint64, bool, bool) {
	if h.seek(c, v) {
		return v, false, true
	}
	if c.s == highSentinel || c.s == nilSlot {
		return 0, false, false
	}
	return h.slot(c.s).spanStart, true, true
}

// Reset rewinds the internal cursor to the first element.
func (h *Set) Reset() {
	h.cur = cursor{s: lowSentinel}
}

// Next yields the next element in ascending order.
func (h *Set) Next() (uint64, bool) {
	return h.next(&h.cur)
}

// NextRange yields the next maximal occupied run as a half-open
// interval.
func (h *Set) NextRange() (lo, hi uint64, ok bool) {
	return h.nextRange(&h.cur)
}

// SeekTo positions the internal cursor so that the next call to Next
// yields v if v is in the set, and otherwise the smallest element
// greater than v.  It reports whether v is in the set.
func (h *Set) SeekTo(v uint64) bool {
	return h.seek(&h.cur, v)
}

// Find advances the internal cursor to v or the smallest element above
// it.  It returns the element found, whether it differs from v, and
// whether there was an element at all.
func (h *Set) Find(v uint64) (res uint64, changed, ok bool) {
	return h.find(&h.cur, v)
}

// An Iterator walks a Set in ascending order while leaving the set's
// own cursor alone.
type Iterator struct {
	h *Set
	c cursor
}

// Iter returns a fresh Iterator positioned before the first element.
func (h *Set) Iter() *Iterator {
	return &Iterator{h: h, c: cursor{s: lowSentinel}}
}

// Reset rewinds the iterator.
func (it *Iterator) Reset() {
	it.c = cursor{s: lowSentinel}
}

// Next yields the next element in ascending order.
func (it *Iterator) Next() (uint64, bool) {
	return it.h.next(&it.c)
}

// NextRange yields the next maximal occupied run.
func (it *Iterator) NextRange() (lo, hi uint64, ok bool) {
	return it.h.nextRange(&it.c)
}

// SeekTo positions the iterator at v or the smallest element above it,
// reporting whether v is in the set.
func (it *Iterator) SeekTo(v uint64) bool {
	return it.h.seek(&it.c, v)
}

// Find advances to v or the smallest element above it.
func (it *Iterator) Find(v uint64) (res uint64, changed, ok bool) {
	return it.h.find(&it.c, v)
}
