package grmap

import (
	"github.com/googlearchive/graphd/dateline"
	"github.com/googlearchive/graphd/guid"
)

// An Iter walks a Map's ranges in DBID-insertion order, then table
// order, then range order.  Mutating the map invalidates live
// iterators.
type Iter struct {
	m          *Map
	d          *dbidSlot
	all        bool
	si, ti, ri int
	cur        Range
	curDBID    guid.DBID
}

// Iter returns an iterator over every range in the map.
func (m *Map) Iter() *Iter {
	it := &Iter{m: m, all: true, ri: -1}
	if len(m.slots) > 0 {
		it.d = m.slots[0]
	}
	return it
}

// IterDBID returns an iterator over only the ranges whose source DBID
// matches src's.  The iterator is empty when the DBID is unknown.
func (m *Map) IterDBID(src guid.GUID) *Iter {
	return &Iter{m: m, d: m.lookupSlot(src.DBID()), ri: -1}
}

// Next advances the iterator.  It returns false when the walk is done.
func (it *Iter) Next() bool {
	for {
		d := it.d
		if d == nil {
			return false
		}
		it.ri++
		if it.ti < len(d.tabs) && it.ri < len(d.tabs[it.ti].tab.ranges) {
			it.cur = d.tabs[it.ti].tab.ranges[it.ri]
			it.curDBID = d.dbid
			return true
		}
		it.ri = -1
		if it.ti++; it.ti < len(d.tabs) {
			continue
		}
		it.ti = 0
		if !it.all {
			it.d = nil
			return false
		}
		if it.si++; it.si < len(it.m.slots) {
			it.d = it.m.slots[it.si]
		} else {
			it.d = nil
		}
	}
}

// Mapping returns the current range as a (src, dst, n) triple.
func (it *Iter) Mapping() (src, dst guid.GUID, n uint64) {
	r := it.cur
	src = guid.Make(it.curDBID, r.Low)
	dst = guid.Make(r.DestDBID, uint64(int64(r.Low)+r.Offset))
	return src, dst, r.High - r.Low
}

// Range returns the current range together with its source DBID.
func (it *Iter) Range() (guid.DBID, Range) {
	return it.curDBID, it.cur
}

// Equal reports whether two maps contain exactly the same ranges, in
// the same DBID order.
func Equal(a, b *Map) bool {
	ia, ib := a.Iter(), b.Iter()
	for {
		oka, okb := ia.Next(), ib.Next()
		if oka != okb {
			return false
		}
		if !oka {
			return true
		}
		da, ra := ia.Range()
		db, rb := ib.Range()
		if da != db || ra != rb {
			return false
		}
	}
}

// Dateline produces, per known source DBID, the first serial number past
// the end of its highest range.  Uncovered serials below that range do
// not lower the entry.
func (m *Map) Dateline() *dateline.Dateline {
	dl := dateline.New()
	for _, d := range m.slots {
		if len(d.tabs) == 0 {
			continue
		}
		tab := d.tabs[len(d.tabs)-1].tab
		dl.Set(d.dbid, tab.ranges[len(tab.ranges)-1].High)
	}
	return dl
}
