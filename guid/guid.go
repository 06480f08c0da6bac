// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package guid

import (
	"encoding/binary"

	farm "github.com/dgryski/go-farm"
	"github.com/grailbio/base/errors"
)

// A DBID identifies one database instance.  Only the low 48 bits are
// meaningful.
type DBID uint64

const (
	// MaxDBID is the largest representable database ID.
	MaxDBID = DBID(1<<48 - 1)

	// SerialLimit is 1 + the largest representable serial number.  Serials
	// occupy 34 bits.
	SerialLimit = uint64(1) << 34
)

// GUID is a 128-bit identifier combining a 48-bit database ID with a
// 34-bit serial number.  The remaining bits hold RFC-4122 version and
// variant markers, so the hex form of a GUID passes for a random UUID.
//
// The upper word packs the DBID in two pieces: the high 32 bits of the
// DBID sit in bits 32..63, the low 16 bits in bits 0..15, and the
// version marker occupies the padding in between.  The lower word holds
// the serial in bits 0..33 and the variant marker in the top bits.  The
// zero value is the null GUID.
type GUID struct {
	a, b uint64
}

const (
	versionBits = uint64(0x4) << 16 // version 4 marker, upper-word padding
	variantBits = uint64(1) << 63   // variant 10 marker, lower word
)

// Null is the null GUID.
var Null = GUID{}

// Make packs a database ID and a serial number into a GUID.  It panics
// if either is out of range.
func Make(dbid DBID, serial uint64) GUID {
	if dbid > MaxDBID {
		panic("guid.Make: DBID out of range")
	}
	if serial >= SerialLimit {
		panic("guid.Make: serial out of range")
	}
	return GUID{
		a: (uint64(dbid)>>16)<<32 | versionBits | uint64(dbid)&0xffff,
		b: variantBits | serial,
	}
}

// DBID extracts the database ID.
func (g GUID) DBID() DBID {
	return DBID((g.a>>32)<<16 | g.a&0xffff)
}

// Serial extracts the serial number.
func (g GUID) Serial() uint64 {
	return g.b & (SerialLimit - 1)
}

// IsNull reports whether g is the null GUID.
func (g GUID) IsNull() bool {
	return g == Null
}

// Hash returns a 64-bit hash of the GUID, suitable for use as a hash
// table key.
func Hash(g GUID) uint64 {
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], g.a)
	binary.BigEndian.PutUint64(buf[8:], g.b)
	return farm.Hash64(buf[:])
}

const hexDigits = "0123456789abcdef"

// String returns the 32-hex-digit text form of the GUID.  The null GUID
// is rendered as "0".
func (g GUID) String() string {
	if g.IsNull() {
		return "0"
	}
	var buf [32]byte
	w := g.a
	for i := 15; i >= 0; i-- {
		buf[i] = hexDigits[w&0xf]
		w >>= 4
	}
	w = g.b
	for i := 31; i >= 16; i-- {
		buf[i] = hexDigits[w&0xf]
		w >>= 4
	}
	return string(buf[:])
}

func hexVal(c byte) (uint64, bool) {
	switch {
	case c >= '0' && c <= '9':
		return uint64(c - '0'), true
	case c >= 'a' && c <= 'f':
		return uint64(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return uint64(c-'A') + 10, true
	}
	return 0, false
}

// Parse decodes the text form of a GUID.  It accepts up to 32 hex
// digits in either case, and the literals "0" and "null" for the null
// GUID.  Shorter strings are treated as if left-padded with zeros.
func Parse(s string) (GUID, error) {
	if s == "0" || s == "null" {
		return Null, nil
	}
	if len(s) == 0 || len(s) > 32 {
		return Null, errors.E(errors.Invalid, "guid.Parse: malformed GUID", s)
	}
	var a, b uint64
	for i := 0; i < len(s); i++ {
		v, ok := hexVal(s[i])
		if !ok {
			return Null, errors.E(errors.Invalid, "guid.Parse: malformed GUID", s)
		}
		a = a<<4 | b>>60
		b = b<<4 | v
	}
	return GUID{a: a, b: b}, nil
}
