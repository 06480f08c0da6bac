// Copyright 2019 GRAIL, Inc.  All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

/*Package hullset implements a bounded-memory set of 34-bit integers
  that trades precision for space.  Contents are stored as a chain of
  occupied runs over fixed-size slots; when the configured slot budget
  runs out, the set fuses the narrowest gap between two runs instead of
  refusing the insert.  Fusing may make integers that were never added
  appear present, but an added integer is never lost -- the set always
  covers the "hull" of what it was given.  The graph store uses these
  sets to track primitive IDs where an exact answer is not required,
  such as estimating which primitives a replica has already seen.
*/
package hullset
