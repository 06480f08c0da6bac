// grmap-tool reads one or more GUID range maps in their text form
// (gzipped input is decompressed transparently), merges them, and
// prints either the merged map or its dateline.  Inputs whose ranges
// conflict with each other abort the merge.
package main
