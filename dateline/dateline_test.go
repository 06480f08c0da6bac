package dateline

import (
	"testing"

	"github.com/googlearchive/graphd/guid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetGet(t *testing.T) {
	dl := New()
	_, ok := dl.Get(0x1)
	assert.False(t, ok)

	dl.Set(0x1, 100)
	dl.Set(0x2, 7)
	s, ok := dl.Get(0x1)
	require.True(t, ok)
	assert.Equal(t, uint64(100), s)

	// Datelines only move forward.
	dl.Set(0x1, 50)
	s, _ = dl.Get(0x1)
	assert.Equal(t, uint64(100), s)
	dl.Set(0x1, 200)
	s, _ = dl.Get(0x1)
	assert.Equal(t, uint64(200), s)
	assert.Equal(t, 2, dl.Len())
}

func TestStringParse(t *testing.T) {
	dl := New()
	dl.SetInstance("graphd-01")
	dl.Set(0x1234, 0x80)
	dl.Set(0xabcd, 0x10)

	back, err := Parse(dl.String())
	require.NoError(t, err)
	assert.Equal(t, "graphd-01", back.Instance())
	s, ok := back.Get(0x1234)
	require.True(t, ok)
	assert.Equal(t, uint64(0x80), s)
	s, ok = back.Get(0xabcd)
	require.True(t, ok)
	assert.Equal(t, uint64(0x10), s)

	cmp, ok2 := dl.Compare(back)
	assert.True(t, ok2)
	assert.Equal(t, 0, cmp)
}

func TestParseNoInstance(t *testing.T) {
	g := guid.Make(0x77, 0x42)
	dl, err := Parse(g.String())
	require.NoError(t, err)
	assert.Equal(t, "", dl.Instance())
	s, ok := dl.Get(0x77)
	require.True(t, ok)
	assert.Equal(t, uint64(0x42), s)
}

func TestParseNullGUID(t *testing.T) {
	dl, err := Parse("inst,0")
	require.NoError(t, err)
	s, ok := dl.Get(0)
	require.True(t, ok)
	assert.Equal(t, uint64(0), s)

	_, err = Parse("inst,zz")
	assert.Error(t, err)
}

func TestMergeCompare(t *testing.T) {
	a, b := New(), New()
	a.Set(0x1, 10)
	a.Set(0x2, 5)
	b.Set(0x1, 8)

	cmp, ok := a.Compare(b)
	require.True(t, ok)
	assert.Equal(t, 1, cmp)
	cmp, ok = b.Compare(a)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)

	b.Set(0x3, 1)
	_, ok = a.Compare(b)
	assert.False(t, ok)

	a.Merge(b)
	s, _ := a.Get(0x1)
	assert.Equal(t, uint64(10), s)
	s, _ = a.Get(0x3)
	assert.Equal(t, uint64(1), s)
	cmp, ok = b.Compare(a)
	require.True(t, ok)
	assert.Equal(t, -1, cmp)
}
