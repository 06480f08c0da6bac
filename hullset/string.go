// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package hullset

import (
	"fmt"
	"strings"
)

// Count returns the number of integers in the set, hallucinated ones
// included.
func (h *Set) Count() uint64 {
	var total uint64
	for i := h.slot(lowSentinel).next; i != highSentinel; i = h.slot(i).next {
		sl := h.slot(i)
		total += sl.skipStart - sl.spanStart
	}
	return total
}

// IsSingleton reports whether the set holds at most one integer.
func (h *Set) IsSingleton() bool {
	first := h.slot(lowSentinel).next
	if first == highSentinel {
		return true
	}
	sl := h.slot(first)
	return sl.next == highSentinel && sl.skipStart-sl.spanStart <= 1
}

// stringMaxRuns bounds how many runs String renders before
// abbreviating.
const stringMaxRuns = 32

// String renders the set's runs, abbreviated when there are many:
//
//	{1-3, 5, 9-11, ...}
//
// Run bounds are inclusive.
func (h *Set) String() string {
	var b strings.Builder
	b.WriteByte('{')
	n := 0
	for i := h.slot(lowSentinel).next; i != highSentinel; i = h.slot(i).next {
		if n == stringMaxRuns {
			b.WriteString(", ...")
			break
		}
		if n > 0 {
			b.WriteString(", ")
		}
		sl := h.slot(i)
		if sl.skipStart-sl.spanStart == 1 {
			fmt.Fprintf(&b, "%d", sl.spanStart)
		} else {
			fmt.Fprintf(&b, "%d-%d", sl.spanStart, sl.skipStart-1)
		}
		n++
	}
	b.WriteByte('}')
	return b.String()
}
