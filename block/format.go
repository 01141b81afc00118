// Package block implements the SSTable data-block format: a sorted
// run of prefix-compressed key/value entries plus a restart-point
// array for binary-searchable seeks.
package block

// DefaultRestartInterval is the number of entries between full
// (non-prefix-compressed) keys.
const DefaultRestartInterval = 16

// trailerWordSize is the width of each little-endian uint32 word
// appended after the entry stream: one per restart offset, plus the
// restart count itself.
const trailerWordSize = 4
