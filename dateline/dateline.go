package dateline

import (
	"strings"

	"github.com/googlearchive/graphd/guid"
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// A Dateline records, per database, the first serial number that
// database has not yet produced.  It acts as a vector clock over
// databases: a replica stream is caught up with another when its
// dateline dominates the other's.
type Dateline struct {
	instance string
	entries  []entry // unique DBIDs, insertion order
}

type entry struct {
	dbid   guid.DBID
	serial uint64
}

// New returns an empty Dateline.
func New() *Dateline {
	return &Dateline{}
}

// Instance returns the optional instance ID.
func (dl *Dateline) Instance() string { return dl.instance }

// SetInstance sets the instance ID.
func (dl *Dateline) SetInstance(id string) { dl.instance = id }

// Len returns the number of per-database entries.
func (dl *Dateline) Len() int { return len(dl.entries) }

// Get returns the next-serial entry for dbid, if present.
func (dl *Dateline) Get(dbid guid.DBID) (uint64, bool) {
	for _, e := range dl.entries {
		if e.dbid == dbid {
			return e.serial, true
		}
	}
	return 0, false
}

// Set records that dbid has produced all serials below serial.  A
// dateline only moves forward; setting a smaller serial than the one on
// record is a no-op.
func (dl *Dateline) Set(dbid guid.DBID, serial uint64) {
	if serial >= guid.SerialLimit {
		log.Panicf("dateline: serial %#x out of range for dbid %#x", serial, uint64(dbid))
	}
	for i := range dl.entries {
		if dl.entries[i].dbid == dbid {
			if serial > dl.entries[i].serial {
				dl.entries[i].serial = serial
			}
			return
		}
	}
	dl.entries = append(dl.entries, entry{dbid: dbid, serial: serial})
}

// Merge folds other into dl, taking the pointwise maximum.
func (dl *Dateline) Merge(other *Dateline) {
	for _, e := range other.entries {
		dl.Set(e.dbid, e.serial)
	}
}

// Compare orders two datelines under the vector-clock partial order.
// It returns (-1, true) if dl is dominated by other, (1, true) if dl
// dominates other, (0, true) if they are equal, and (0, false) if they
// are incomparable.  A missing entry counts as zero.
func (dl *Dateline) Compare(other *Dateline) (int, bool) {
	le, ge := true, true
	for _, e := range dl.entries {
		o, _ := other.Get(e.dbid)
		if e.serial > o {
			le = false
		}
		if e.serial < o {
			ge = false
		}
	}
	for _, e := range other.entries {
		s, _ := dl.Get(e.dbid)
		if s < e.serial {
			ge = false
		}
		if s > e.serial {
			le = false
		}
	}
	switch {
	case le && ge:
		return 0, true
	case le:
		return -1, true
	case ge:
		return 1, true
	}
	return 0, false
}

// String renders the dateline as
//
//	<instance-id>,<GUID>(/<GUID>)*
//
// with the instance prefix omitted when unset.  Each GUID packs one
// (DBID, next-serial) entry.
func (dl *Dateline) String() string {
	var b strings.Builder
	if dl.instance != "" {
		b.WriteString(dl.instance)
		b.WriteByte(',')
	}
	for i, e := range dl.entries {
		if i > 0 {
			b.WriteByte('/')
		}
		b.WriteString(guid.Make(e.dbid, e.serial).String())
	}
	return b.String()
}

// Parse decodes the text form produced by String.  The instance-id
// part, if present, is everything before the first comma.
func Parse(s string) (*Dateline, error) {
	dl := New()
	if i := strings.IndexByte(s, ','); i >= 0 {
		dl.instance = s[:i]
		s = s[i+1:]
	}
	if s == "" {
		return dl, nil
	}
	for _, tok := range strings.Split(s, "/") {
		g, err := guid.Parse(tok)
		if err != nil {
			return nil, errors.Wrapf(err, "dateline: bad GUID %q", tok)
		}
		dl.Set(g.DBID(), g.Serial())
	}
	return dl, nil
}
