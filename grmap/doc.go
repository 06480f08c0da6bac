/*Package grmap maintains a compressed, queryable mapping from ranges
  of source GUIDs to ranges of destination GUIDs.  When a stream from a
  replica database is merged or replayed, every identifier the replica
  allocated locally must be rewritten into the importing database's ID
  space; the Map answers those rewrite queries.
  Ranges are grouped per source DBID into bounded, sorted tables with a
  cached per-table low bound, so a lookup is a linear scan over a
  handful of DBIDs followed by two binary searches.  Adjacent ranges
  with the same destination and shift are coalesced eagerly, so a
  replica that allocates IDs sequentially costs one range no matter how
  many IDs it produces.
*/
package grmap
