package grmap

import (
	"github.com/googlearchive/graphd/guid"
	"github.com/grailbio/base/errors"
)

// overlapSeg is one maximal sub-interval of an overlap scan.  For a
// found segment, (ti, ri) locate the covering range.  For a gap, ti is
// the table the gap belongs to and ri is the index at which a new range
// would be inserted.
type overlapSeg struct {
	lo, hi uint64
	found  bool
	ti, ri int
}

// nextOverlap returns the first maximal segment of [cur, hi) that is
// either fully covered by one existing range or fully uncovered.  It is
// the engine behind both phases of addSpan.
func (d *dbidSlot) nextOverlap(cur, hi uint64) overlapSeg {
	if d == nil || len(d.tabs) == 0 {
		return overlapSeg{lo: cur, hi: hi}
	}
	ti := d.findTable(cur)
	if ti < 0 {
		end := hi
		if low := d.tabs[0].low; low < end {
			end = low
		}
		return overlapSeg{lo: cur, hi: end}
	}
	tab := d.tabs[ti].tab
	ri := tab.findRange(cur)
	if ri >= 0 && cur < tab.ranges[ri].High {
		end := hi
		if tab.ranges[ri].High < end {
			end = tab.ranges[ri].High
		}
		return overlapSeg{lo: cur, hi: end, found: true, ti: ti, ri: ri}
	}
	end := hi
	if ri+1 < len(tab.ranges) {
		if low := tab.ranges[ri+1].Low; low < end {
			end = low
		}
	} else if ti+1 < len(d.tabs) {
		if low := d.tabs[ti+1].low; low < end {
			end = low
		}
	}
	return overlapSeg{lo: cur, hi: end, ti: ti, ri: ri + 1}
}

// AddRange maps the n consecutive source IDs starting at src to the n
// consecutive destination IDs starting at dst.  Re-adding an identical
// mapping is a no-op; a conflicting overlap fails with an Exists-kind
// error before any mutation.
func (m *Map) AddRange(src, dst guid.GUID, n uint64) error {
	if n == 0 || n >= guid.SerialLimit {
		return errors.E(errors.Invalid, "grmap.AddRange: bad range length")
	}
	// The all-ones serial is reserved, so ranges stop one short of the
	// 34-bit limit.
	srcSerial, dstSerial := src.Serial(), dst.Serial()
	if srcSerial+n >= guid.SerialLimit || dstSerial+n >= guid.SerialLimit {
		return errors.E(errors.Invalid, "grmap.AddRange: range exceeds serial space")
	}
	return m.addSpan(src.DBID(), srcSerial, srcSerial+n, dst.DBID(), int64(dstSerial)-int64(srcSerial))
}

// addSpan runs the three phases of range insertion: locate the slot,
// scan [lo, hi) for conflicting overlaps, then fill in the gaps.
func (m *Map) addSpan(srcDBID guid.DBID, lo, hi uint64, dest guid.DBID, offset int64) error {
	d := m.lookupSlot(srcDBID)

	// The conflict scan runs to completion before anything mutates, so a
	// failed call leaves the map untouched.
	missing := false
	for cur := lo; cur < hi; {
		seg := d.nextOverlap(cur, hi)
		if seg.found {
			r := d.tabs[seg.ti].tab.ranges[seg.ri]
			if r.DestDBID != dest || r.Offset != offset {
				return ErrOverlap
			}
		} else {
			missing = true
		}
		cur = seg.hi
	}
	if !missing {
		return nil
	}

	d = m.getSlot(srcDBID)
	for cur := lo; cur < hi; {
		seg := d.nextOverlap(cur, hi)
		if !seg.found {
			d.addMissing(seg.ti, seg.ri, seg.lo, seg.hi, dest, offset, m.tableSize)
		}
		cur = seg.hi
	}
	return nil
}

func (t *table) insert(i int, r Range) {
	t.ranges = append(t.ranges, Range{})
	copy(t.ranges[i+1:], t.ranges[i:])
	t.ranges[i] = r
}

func (t *table) remove(i int) {
	copy(t.ranges[i:], t.ranges[i+1:])
	t.ranges = t.ranges[:len(t.ranges)-1]
}

func (d *dbidSlot) insertTable(i int, ts tableSlot) {
	d.tabs = append(d.tabs, tableSlot{})
	copy(d.tabs[i+1:], d.tabs[i:])
	d.tabs[i] = ts
}

func (d *dbidSlot) removeTable(i int) {
	copy(d.tabs[i:], d.tabs[i+1:])
	d.tabs = d.tabs[:len(d.tabs)-1]
}

// split divides the table at index ti in half, moving the upper half
// into a new adjacent table slot.  Purely structural; no merging.
func (d *dbidSlot) split(ti int) {
	tab := d.tabs[ti].tab
	mid := len(tab.ranges) / 2
	upper := make([]Range, len(tab.ranges)-mid)
	copy(upper, tab.ranges[mid:])
	tab.ranges = tab.ranges[:mid]
	d.insertTable(ti+1, tableSlot{low: upper[0].Low, tab: &table{ranges: upper}})
}

// addMissing inserts the uncovered range [lo, hi) at the position hint
// (ti, ri) produced by nextOverlap.  The caller guarantees that no
// existing range intersects [lo, hi).
func (d *dbidSlot) addMissing(ti, ri int, lo, hi uint64, dest guid.DBID, offset int64, tableSize int) {
	r := Range{Low: lo, High: hi, DestDBID: dest, Offset: offset}
	if len(d.tabs) == 0 {
		d.tabs = append(d.tabs, tableSlot{low: lo, tab: &table{ranges: []Range{r}}})
		return
	}
	tab := d.tabs[ti].tab

	// Directly adjacent and mergeable predecessor: expand it in place.
	if ri > 0 {
		if p := &tab.ranges[ri-1]; p.DestDBID == dest && p.Offset == offset && p.High == lo {
			p.High = hi
			d.repack(ti, ri-1)
			return
		}
	} else if ti > 0 {
		pt := d.tabs[ti-1].tab
		last := len(pt.ranges) - 1
		if p := &pt.ranges[last]; p.DestDBID == dest && p.Offset == offset && p.High == lo {
			p.High = hi
			d.repack(ti-1, last)
			return
		}
	}

	// Directly adjacent and mergeable successor: lower its Low.
	if ri < len(tab.ranges) {
		if s := &tab.ranges[ri]; s.DestDBID == dest && s.Offset == offset && s.Low == hi {
			s.Low = lo
			d.repack(ti, ri)
			return
		}
	} else if ti+1 < len(d.tabs) {
		st := d.tabs[ti+1].tab
		if s := &st.ranges[0]; s.DestDBID == dest && s.Offset == offset && s.Low == hi {
			s.Low = lo
			d.repack(ti+1, 0)
			return
		}
	}

	if len(tab.ranges) < tableSize {
		tab.insert(ri, r)
		d.repack(ti, ri)
		return
	}

	// The table is full.  Try the neighbor table on the side the
	// insertion point touches before paying for a split.
	if ri == 0 {
		if ti > 0 && len(d.tabs[ti-1].tab.ranges) < tableSize {
			pt := d.tabs[ti-1].tab
			pt.ranges = append(pt.ranges, r)
			d.repack(ti-1, len(pt.ranges)-1)
			return
		}
	}
	if ri == len(tab.ranges) {
		if ti+1 < len(d.tabs) && len(d.tabs[ti+1].tab.ranges) < tableSize {
			st := d.tabs[ti+1].tab
			st.insert(0, r)
			d.tabs[ti+1].low = lo
			d.repack(ti+1, 0)
			return
		}
		d.insertTable(ti+1, tableSlot{low: lo, tab: &table{ranges: []Range{r}}})
		d.repack(ti+1, 0)
		return
	}
	if ri == 0 {
		// A one-entry table cannot be split; give the range its own table
		// before this one.
		if len(tab.ranges) < 2 {
			d.insertTable(ti, tableSlot{low: lo, tab: &table{ranges: []Range{r}}})
			d.repack(ti, 0)
			return
		}
	}

	d.split(ti)
	if mid := len(d.tabs[ti].tab.ranges); ri > mid {
		ti, ri = ti+1, ri-mid
	}
	d.tabs[ti].tab.insert(ri, r)
	d.repack(ti, ri)
}

// repack restores the no-adjacent-mergeable-ranges invariant around a
// freshly mutated position.  The source expressed this as goto-based
// tail recursion; each iteration strictly reduces the number of ranges,
// so the loop terminates.
func (d *dbidSlot) repack(ti, i int) {
	for {
		tab := d.tabs[ti].tab
		d.tabs[ti].low = tab.ranges[0].Low

		for i+1 < len(tab.ranges) && mergeable(tab.ranges[i], tab.ranges[i+1]) {
			tab.ranges[i].High = tab.ranges[i+1].High
			tab.remove(i + 1)
		}
		for i > 0 && mergeable(tab.ranges[i-1], tab.ranges[i]) {
			tab.ranges[i-1].High = tab.ranges[i].High
			tab.remove(i)
			i--
		}

		if i == 0 && ti > 0 {
			pt := d.tabs[ti-1].tab
			last := len(pt.ranges) - 1
			if mergeable(pt.ranges[last], tab.ranges[0]) {
				pt.ranges[last].High = tab.ranges[0].High
				tab.remove(0)
				if len(tab.ranges) == 0 {
					d.removeTable(ti)
				}
				ti, i = ti-1, last
				continue
			}
		}
		if i == len(tab.ranges)-1 && ti+1 < len(d.tabs) {
			st := d.tabs[ti+1].tab
			if mergeable(tab.ranges[i], st.ranges[0]) {
				tab.ranges[i].High = st.ranges[0].High
				st.remove(0)
				if len(st.ranges) == 0 {
					d.removeTable(ti + 1)
				} else {
					d.tabs[ti+1].low = st.ranges[0].Low
				}
				continue
			}
		}
		return
	}
}
