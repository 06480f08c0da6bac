package grmap

import (
	"github.com/grailbio/base/log"
)

// invariant walks the whole map and panics on any structural
// corruption.  It is test and debugging support only; correct builds
// never trip it.
func (m *Map) invariant() {
	seen := map[uint64]bool{}
	for _, d := range m.slots {
		if seen[uint64(d.dbid)] {
			log.Panicf("grmap: duplicate dbid slot %#x", uint64(d.dbid))
		}
		seen[uint64(d.dbid)] = true
		d.invariant(m.tableSize)
	}
}

func (d *dbidSlot) invariant(tableSize int) {
	for ti, ts := range d.tabs {
		tab := ts.tab
		if len(tab.ranges) == 0 {
			log.Panicf("grmap: dbid %#x: empty table %d", uint64(d.dbid), ti)
		}
		if len(tab.ranges) > tableSize {
			log.Panicf("grmap: dbid %#x: table %d exceeds cap: %d > %d",
				uint64(d.dbid), ti, len(tab.ranges), tableSize)
		}
		if ts.low != tab.ranges[0].Low {
			log.Panicf("grmap: dbid %#x: table %d cached low %#x != %#x",
				uint64(d.dbid), ti, ts.low, tab.ranges[0].Low)
		}
		for ri, r := range tab.ranges {
			if r.Low >= r.High {
				log.Panicf("grmap: dbid %#x: table %d range %d inverted: [%#x, %#x)",
					uint64(d.dbid), ti, ri, r.Low, r.High)
			}
			if ri > 0 {
				prev := tab.ranges[ri-1]
				if prev.High > r.Low {
					log.Panicf("grmap: dbid %#x: table %d ranges %d/%d out of order",
						uint64(d.dbid), ti, ri-1, ri)
				}
				if mergeable(prev, r) {
					log.Panicf("grmap: dbid %#x: table %d ranges %d/%d left mergeable",
						uint64(d.dbid), ti, ri-1, ri)
				}
			}
		}
		if ti > 0 {
			prev := d.tabs[ti-1].tab
			last := prev.ranges[len(prev.ranges)-1]
			if last.High > ts.low {
				log.Panicf("grmap: dbid %#x: tables %d/%d overlap", uint64(d.dbid), ti-1, ti)
			}
			if mergeable(last, tab.ranges[0]) {
				log.Panicf("grmap: dbid %#x: tables %d/%d boundary mergeable", uint64(d.dbid), ti-1, ti)
			}
		}
	}
}
