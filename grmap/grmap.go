package grmap

import (
	"sort"

	"github.com/googlearchive/graphd/guid"
	"github.com/grailbio/base/errors"
)

// DefaultTableSize is the default cap on the number of ranges per
// table.
const DefaultTableSize = 1024

// ErrOverlap is returned by AddRange when the requested range overlaps
// an existing range with a different destination or shift.  The map is
// unchanged when it is returned.
var ErrOverlap = errors.E(errors.Exists, "grmap: range overlaps an incompatible mapping")

// ErrNoMapping is returned by Map when no range covers the source.  A
// miss is normal control flow, so it is a shared value rather than an
// allocation per lookup.
var ErrNoMapping = errors.E(errors.NotExist, "grmap: no mapping for source GUID")

// Range maps the half-open source serial interval [Low, High) to the
// destination database DestDBID, shifting each serial by Offset.  The
// source DBID is implied by the dbidSlot holding the range.
type Range struct {
	Low, High uint64
	DestDBID  guid.DBID
	Offset    int64
}

// mergeable reports whether b directly continues a: same destination,
// same shift, and no gap between them.  Two mergeable ranges must never
// remain adjacent; repack coalesces them.
func mergeable(a, b Range) bool {
	return a.DestDBID == b.DestDBID && a.Offset == b.Offset && a.High == b.Low
}

// table is a bounded, sorted sequence of ranges.
type table struct {
	ranges []Range
}

// tableSlot pairs a table with a cached copy of its first range's Low.
// The cache is what the per-DBID binary search runs over.
type tableSlot struct {
	low uint64
	tab *table
}

// dbidSlot holds all tables for one source DBID.  Tables are ordered by
// low; the last range of table i ends at or before the low of table
// i+1.
type dbidSlot struct {
	dbid guid.DBID
	tabs []tableSlot
}

// Map is a mapping from ranges of source GUIDs to ranges of destination
// GUIDs, used to rewrite identifiers when replaying streams from
// replica databases.  The zero value is not usable; call New.
type Map struct {
	// slots is unordered; the expected population is one to three source
	// databases, so lookup is a linear scan.
	slots     []*dbidSlot
	tableSize int
}

// New returns an empty Map with the default table size.
func New() *Map {
	return &Map{tableSize: DefaultTableSize}
}

// SetTableSize changes the per-table range cap.  It fails once the map
// holds any ranges.
func (m *Map) SetTableSize(n int) error {
	if n < 1 {
		return errors.E(errors.Invalid, "grmap.SetTableSize: table size must be positive")
	}
	if len(m.slots) != 0 {
		return errors.E(errors.Precondition, "grmap.SetTableSize: map is already populated")
	}
	m.tableSize = n
	return nil
}

// lookupSlot returns the slot for dbid, or nil.
func (m *Map) lookupSlot(dbid guid.DBID) *dbidSlot {
	for _, d := range m.slots {
		if d.dbid == dbid {
			return d
		}
	}
	return nil
}

// getSlot returns the slot for dbid, creating it on first reference.
func (m *Map) getSlot(dbid guid.DBID) *dbidSlot {
	if d := m.lookupSlot(dbid); d != nil {
		return d
	}
	d := &dbidSlot{dbid: dbid}
	m.slots = append(m.slots, d)
	return d
}

// findTable returns the index of the table whose interval may contain
// serial: the greatest i with tabs[i].low <= serial, or -1.
func (d *dbidSlot) findTable(serial uint64) int {
	return sort.Search(len(d.tabs), func(i int) bool {
		return d.tabs[i].low > serial
	}) - 1
}

// findRange returns the index of the range whose interval may contain
// serial: the greatest j with ranges[j].Low <= serial, or -1.
func (t *table) findRange(serial uint64) int {
	return sort.Search(len(t.ranges), func(i int) bool {
		return t.ranges[i].Low > serial
	}) - 1
}

// Map translates a source GUID to its destination GUID.  It returns a
// NotExist-kind error when no range covers the source.
func (m *Map) Map(src guid.GUID) (guid.GUID, error) {
	d := m.lookupSlot(src.DBID())
	if d == nil {
		return guid.Null, ErrNoMapping
	}
	serial := src.Serial()
	ti := d.findTable(serial)
	if ti < 0 {
		return guid.Null, ErrNoMapping
	}
	tab := d.tabs[ti].tab
	ri := tab.findRange(serial)
	if ri < 0 || serial >= tab.ranges[ri].High {
		return guid.Null, ErrNoMapping
	}
	r := tab.ranges[ri]
	return guid.Make(r.DestDBID, uint64(int64(serial)+r.Offset)), nil
}

// IsNoMapping reports whether err came from a lookup that found no
// covering range.
func IsNoMapping(err error) bool {
	return err == ErrNoMapping
}

// IsOverlap reports whether err came from an AddRange call that
// conflicted with an incompatible existing range.
func IsOverlap(err error) bool {
	return err == ErrOverlap
}
