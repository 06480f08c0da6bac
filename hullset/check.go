// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hullset

import (
	"github.com/grailbio/base/log"
)

// invariant panics if the set's structure is corrupt.  Test and
// debugging support only.
func (h *Set) invariant() {
	if h.n > h.max {
		log.Panicf("hullset: %d slots allocated, max %d", h.n, h.max)
	}
	s0, s1 := h.slot(lowSentinel), h.slot(highSentinel)
	if s0.spanStart != 0 || s0.skipStart != 0 || s0.prev != nilSlot {
		log.Panicf("hullset: low sentinel corrupt")
	}
	if s1.spanStart != ValueLimit || s1.skipStart != ValueLimit || s1.next != nilSlot {
		log.Panicf("hullset: high sentinel corrupt")
	}

	// Walk the value chain forward, checking order and back links.
	linked := map[uint16]bool{}
	prev := lowSentinel
	for i := s0.next; ; i = h.slot(i).next {
		if linked[i] {
			log.Panicf("hullset: value chain cycles at slot %d", i)
		}
		linked[i] = true
		sl := h.slot(i)
		if sl.prev != prev {
			log.Panicf("hullset: slot %d back link %d, want %d", i, sl.prev, prev)
		}
		if i == highSentinel {
			break
		}
		if sl.spanStart >= sl.skipStart {
			log.Panicf("hullset: slot %d has empty run [%#x, %#x)", i, sl.spanStart, sl.skipStart)
		}
		if sl.skipStart > h.slot(sl.next).spanStart {
			log.Panicf("hullset: slot %d run overlaps its successor", i)
		}
		prev = i
	}

	// Every non-sentinel linked slot is in exactly the bin its gap calls
	// for.
	binned := map[uint16]int{}
	for b := range h.bins {
		for i := h.bins[b]; i != nilSlot; i = h.slot(i).skipNext {
			if _, dup := binned[i]; dup {
				log.Panicf("hullset: slot %d binned twice", i)
			}
			binned[i] = b
			if !linked[i] || i < 2 {
				log.Panicf("hullset: bin %d holds unlinked or sentinel slot %d", b, i)
			}
			if want := h.binOf(i); want != b {
				log.Panicf("hullset: slot %d in bin %d, want %d", i, b, want)
			}
		}
	}
	for i := range linked {
		if i >= 2 {
			if _, ok := binned[i]; !ok {
				log.Panicf("hullset: linked slot %d is in no bin", i)
			}
		}
	}

	// Free list accounting: linked + free + sentinels == allocated.
	nFree := 0
	for i := h.free; i != nilSlot; i = h.slot(i).next {
		if linked[i] {
			log.Panicf("hullset: slot %d both linked and free", i)
		}
		nFree++
	}
	if nLinked := len(linked) + 1; nLinked+nFree != h.n {
		log.Panicf("hullset: %d linked + %d free != %d allocated", nLinked, nFree, h.n)
	}
}
