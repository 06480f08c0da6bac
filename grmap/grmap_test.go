package grmap

import (
	"math/rand"
	"testing"

	"github.com/googlearchive/graphd/guid"
	"github.com/grailbio/base/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMap(t *testing.T, m *Map, dbid guid.DBID, serial uint64) (guid.DBID, uint64) {
	t.Helper()
	g, err := m.Map(guid.Make(dbid, serial))
	require.NoError(t, err)
	return g.DBID(), g.Serial()
}

func add(t *testing.T, m *Map, srcDBID guid.DBID, srcSerial uint64, dstDBID guid.DBID, dstSerial, n uint64) {
	t.Helper()
	require.NoError(t, m.AddRange(guid.Make(srcDBID, srcSerial), guid.Make(dstDBID, dstSerial), n))
	m.invariant()
}

func TestEmpty(t *testing.T) {
	m := New()
	assert.Equal(t, "grmap {\n}\n", m.String())
	_, err := m.Map(guid.Make(0x1234, 0))
	assert.True(t, IsNoMapping(err))
}

func TestMapAfterAdd(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x0, 0x2, 0x100, 0x10)
	dbid, serial := mustMap(t, m, 0x1, 0x5)
	assert.Equal(t, guid.DBID(0x2), dbid)
	assert.Equal(t, uint64(0x105), serial)

	// Off either end of the range.
	_, err := m.Map(guid.Make(0x1, 0x10))
	assert.True(t, IsNoMapping(err))
	_, err = m.Map(guid.Make(0x3, 0x5))
	assert.True(t, IsNoMapping(err))
}

func TestAdjacentRangesMerge(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x0, 0x2, 0x100, 0x10)
	add(t, m, 0x1, 0x10, 0x2, 0x110, 0x10)

	it := m.Iter()
	require.True(t, it.Next())
	dbid, r := it.Range()
	assert.Equal(t, guid.DBID(0x1), dbid)
	assert.Equal(t, Range{Low: 0x0, High: 0x20, DestDBID: 0x2, Offset: 0x100}, r)
	assert.False(t, it.Next())
}

func TestOverlapRejected(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x0, 0x2, 0x100, 0x10)
	add(t, m, 0x1, 0x10, 0x2, 0x110, 0x10)
	before := m.String()

	err := m.AddRange(guid.Make(0x1, 0x5), guid.Make(0x3, 0x0), 1)
	assert.True(t, IsOverlap(err))
	// Callers may also classify the conflict by kind.
	assert.True(t, errors.Is(errors.Exists, err))
	assert.Equal(t, before, m.String())
	m.invariant()
}

func TestIdempotent(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x40, 0x2, 0x1040, 0x20)
	before := m.String()
	add(t, m, 0x1, 0x40, 0x2, 0x1040, 0x20)
	assert.Equal(t, before, m.String())

	// A partial re-add that agrees with the existing mapping is fine too.
	add(t, m, 0x1, 0x50, 0x2, 0x1050, 0x30)
	dbid, serial := mustMap(t, m, 0x1, 0x7f)
	assert.Equal(t, guid.DBID(0x2), dbid)
	assert.Equal(t, uint64(0x107f), serial)
}

func TestMergeShrinksText(t *testing.T) {
	m1 := New()
	add(t, m1, 0x1, 0x0, 0x2, 0x500, 0x80)

	m2 := New()
	add(t, m2, 0x1, 0x0, 0x2, 0x500, 0x40)
	add(t, m2, 0x1, 0x40, 0x2, 0x540, 0x40)

	assert.True(t, Equal(m1, m2))
	assert.Equal(t, m1.String(), m2.String())
}

func TestSetTableSize(t *testing.T) {
	m := New()
	assert.Error(t, m.SetTableSize(0))
	require.NoError(t, m.SetTableSize(4))
	add(t, m, 0x1, 0x0, 0x2, 0x0, 1)
	assert.Error(t, m.SetTableSize(8))
}

// TestSplit drives a small-table map past its per-table cap with
// deliberately non-mergeable ranges and checks that lookups survive the
// splits.
func TestSplit(t *testing.T) {
	m := New()
	require.NoError(t, m.SetTableSize(4))
	const n = 64
	for i := uint64(0); i < n; i++ {
		// Alternating destination DBIDs keep neighbors unmergeable.
		add(t, m, 0x1, i*4, guid.DBID(2+i%2), i*8, 2)
	}
	d := m.lookupSlot(0x1)
	require.NotNil(t, d)
	assert.True(t, len(d.tabs) >= 2)
	for i := uint64(0); i < n; i++ {
		dbid, serial := mustMap(t, m, 0x1, i*4+1)
		assert.Equal(t, guid.DBID(2+i%2), dbid)
		assert.Equal(t, i*8+1, serial)
		_, err := m.Map(guid.Make(0x1, i*4+2))
		assert.True(t, IsNoMapping(err))
	}
}

// TestRandomAgainstOracle mirrors every AddRange against a plain
// per-serial map and then checks both lookup and iteration agree with
// it.
func TestRandomAgainstOracle(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for iter := 0; iter < 50; iter++ {
		m := New()
		require.NoError(t, m.SetTableSize(1+r.Intn(8)))
		type dest struct {
			dbid   guid.DBID
			serial uint64
		}
		oracle := map[dest]dest{}
		for step := 0; step < 200; step++ {
			srcDBID := guid.DBID(1 + r.Intn(3))
			srcSerial := uint64(r.Intn(512))
			n := uint64(1 + r.Intn(32))
			dstDBID := guid.DBID(10 + r.Intn(3))
			dstSerial := uint64(r.Intn(4096))

			// Decide from the oracle whether this add must conflict.
			conflict := false
			for k := uint64(0); k < n; k++ {
				d, ok := oracle[dest{srcDBID, srcSerial + k}]
				if ok && (d.dbid != dstDBID || d.serial != dstSerial+k) {
					conflict = true
				}
			}
			err := m.AddRange(guid.Make(srcDBID, srcSerial), guid.Make(dstDBID, dstSerial), n)
			m.invariant()
			if conflict {
				require.True(t, IsOverlap(err))
				continue
			}
			require.NoError(t, err)
			for k := uint64(0); k < n; k++ {
				oracle[dest{srcDBID, srcSerial + k}] = dest{dstDBID, dstSerial + k}
			}
		}
		// Every oracle entry maps, and nothing else does.
		for src, want := range oracle {
			g, err := m.Map(guid.Make(src.dbid, src.serial))
			require.NoError(t, err)
			require.Equal(t, want.dbid, g.DBID())
			require.Equal(t, want.serial, g.Serial())
		}
		total := uint64(0)
		it := m.Iter()
		for it.Next() {
			src, dst, n := it.Mapping()
			for k := uint64(0); k < n; k++ {
				want, ok := oracle[dest{src.DBID(), src.Serial() + k}]
				require.True(t, ok)
				require.Equal(t, want, dest{dst.DBID(), dst.Serial() + k})
			}
			total += n
		}
		require.Equal(t, len(oracle), int(total))
	}
}

func TestIterDBID(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x0, 0x9, 0x100, 0x10)
	add(t, m, 0x2, 0x0, 0x9, 0x200, 0x10)
	add(t, m, 0x1, 0x20, 0x9, 0x300, 0x10)

	it := m.IterDBID(guid.Make(0x2, 0))
	count := 0
	for it.Next() {
		dbid, _ := it.Range()
		assert.Equal(t, guid.DBID(0x2), dbid)
		count++
	}
	assert.Equal(t, 1, count)

	assert.False(t, m.IterDBID(guid.Make(0x7, 0)).Next())
}

func TestDateline(t *testing.T) {
	m := New()
	add(t, m, 0x1, 0x0, 0x9, 0x100, 0x10)
	add(t, m, 0x2, 0x40, 0x9, 0x200, 0x10)

	dl := m.Dateline()
	s, ok := dl.Get(0x1)
	require.True(t, ok)
	assert.Equal(t, uint64(0x10), s)
	s, ok = dl.Get(0x2)
	require.True(t, ok)
	assert.Equal(t, uint64(0x50), s)
	_, ok = dl.Get(0x3)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	a, b := New(), New()
	assert.True(t, Equal(a, b))
	add(t, a, 0x1, 0x0, 0x2, 0x0, 4)
	assert.False(t, Equal(a, b))
	add(t, b, 0x1, 0x0, 0x2, 0x0, 4)
	assert.True(t, Equal(a, b))
	add(t, a, 0x1, 0x8, 0x2, 0x8, 4)
	add(t, b, 0x1, 0x8, 0x3, 0x8, 4)
	assert.False(t, Equal(a, b))
}
