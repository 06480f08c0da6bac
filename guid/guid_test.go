// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package guid

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randDBID(r *rand.Rand) DBID {
	return DBID(r.Uint64() & uint64(MaxDBID))
}

func randSerial(r *rand.Rand) uint64 {
	return r.Uint64() % SerialLimit
}

func TestPackUnpack(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	for i := 0; i < 10000; i++ {
		dbid, serial := randDBID(r), randSerial(r)
		g := Make(dbid, serial)
		assert.Equal(t, dbid, g.DBID())
		assert.Equal(t, serial, g.Serial())
	}
}

func TestMarkerBits(t *testing.T) {
	g := Make(0xffffffffffff, SerialLimit-1)
	// The version marker survives a maximal DBID, and the variant marker
	// a maximal serial.
	assert.Equal(t, uint64(0x4), g.a>>16&0xf)
	assert.Equal(t, uint64(0x2), g.b>>62)
	assert.Equal(t, DBID(0xffffffffffff), g.DBID())
	assert.Equal(t, SerialLimit-1, g.Serial())
}

func TestStringParse(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 10000; i++ {
		g := Make(randDBID(r), randSerial(r))
		s := g.String()
		require.Equal(t, 32, len(s))
		back, err := Parse(s)
		require.NoError(t, err)
		require.Equal(t, g, back)
	}
}

func TestParseNull(t *testing.T) {
	for _, s := range []string{"0", "null"} {
		g, err := Parse(s)
		require.NoError(t, err)
		assert.True(t, g.IsNull())
	}
	assert.Equal(t, "0", Null.String())
}

func TestParseCase(t *testing.T) {
	g := Make(0xabcd, 0x1234)
	up, err := Parse("00000000000" + "4ABCD" + "8000000000001234")
	require.NoError(t, err)
	assert.Equal(t, g, up)
}

func TestParseErrors(t *testing.T) {
	for _, s := range []string{
		"",
		"xyz",
		"123456789012345678901234567890123", // 33 digits
		"12-4",
	} {
		_, err := Parse(s)
		assert.Error(t, err, "input %q", s)
	}
}

func TestCompressRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	base := Make(0x123456789abc, 0)
	for i := 0; i < 10000; i++ {
		g := Make(randDBID(r), randSerial(r))
		s := g.CompressString(base)
		back, err := ParseCompressed(base, s)
		require.NoError(t, err)
		require.Equal(t, g, back)
	}
}

func TestCompressLocal(t *testing.T) {
	base := Make(0x1234, 99)
	g := Make(0x1234, 0x1f)
	// Same DBID as the base XORs away entirely: a "1" length prefix and
	// the serial.
	assert.Equal(t, "11f", g.CompressString(base))
}

func TestHash(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	seen := map[uint64]bool{}
	for i := 0; i < 1000; i++ {
		g := Make(randDBID(r), randSerial(r))
		h := Hash(g)
		assert.False(t, seen[h], "hash collision at iteration %d", i)
		seen[h] = true
		assert.Equal(t, h, Hash(g))
	}
}
