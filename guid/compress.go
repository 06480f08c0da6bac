// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package guid

import (
	"github.com/grailbio/base/errors"
)

// The compressed text form abbreviates a GUID relative to a base GUID,
// typically the local database's own identity.  The DBID is XORed with
// the base's DBID, so a GUID from the local database compresses to a
// single-digit prefix plus its serial.  The prefix digit holds the
// number of hex digits of the XORed DBID plus one, which keeps the
// encoding unambiguous even though leading zeros are dropped.

func hexLen(v uint64) int {
	n := 0
	for v != 0 {
		n++
		v >>= 4
	}
	return n
}

func appendHex(dst []byte, v uint64, n int) []byte {
	for i := n - 1; i >= 0; i-- {
		dst = append(dst, hexDigits[(v>>(uint(i)*4))&0xf])
	}
	return dst
}

// CompressString encodes g relative to base.
func (g GUID) CompressString(base GUID) string {
	xored := uint64(g.DBID() ^ base.DBID())
	n := hexLen(xored)
	buf := make([]byte, 0, 1+n+9)
	buf = append(buf, hexDigits[n+1])
	buf = appendHex(buf, xored, n)
	serial := g.Serial()
	sn := hexLen(serial)
	if sn == 0 {
		sn = 1
	}
	buf = appendHex(buf, serial, sn)
	return string(buf)
}

// ParseCompressed decodes a compressed GUID encoded relative to base.
func ParseCompressed(base GUID, s string) (GUID, error) {
	if len(s) < 2 {
		return Null, errors.E(errors.Invalid, "guid.ParseCompressed: truncated input", s)
	}
	d, ok := hexVal(s[0])
	if !ok || d == 0 || d > 13 {
		return Null, errors.E(errors.Invalid, "guid.ParseCompressed: bad length prefix", s)
	}
	n := int(d) - 1
	if len(s) < 1+n+1 {
		return Null, errors.E(errors.Invalid, "guid.ParseCompressed: truncated input", s)
	}
	var xored uint64
	for i := 1; i <= n; i++ {
		v, ok := hexVal(s[i])
		if !ok {
			return Null, errors.E(errors.Invalid, "guid.ParseCompressed: malformed DBID", s)
		}
		xored = xored<<4 | v
	}
	var serial uint64
	for i := 1 + n; i < len(s); i++ {
		v, ok := hexVal(s[i])
		if !ok {
			return Null, errors.E(errors.Invalid, "guid.ParseCompressed: malformed serial", s)
		}
		serial = serial<<4 | v
		if serial >= SerialLimit {
			return Null, errors.E(errors.Invalid, "guid.ParseCompressed: serial out of range", s)
		}
	}
	return Make(DBID(xored)^base.DBID(), serial), nil
}
