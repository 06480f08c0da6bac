// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

// Package guid implements the 128-bit identifiers used by the graph
// store.  Every primitive has a GUID combining the 48-bit ID of the
// database that created it with a 34-bit serial number; the spare bits
// carry RFC-4122 markers so a GUID is externally indistinguishable from
// a version-4 UUID.
package guid
