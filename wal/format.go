// Package wal implements the write-ahead log's framed physical-block
// format: fixed 32 KiB blocks carrying fragmented records with 7-byte
// headers (CRC, length, type).
package wal

import "github.com/Priyanshu23/flashstore/internal/codec"

// recordType tags a physical record's position within its logical
// record.
type recordType byte

const (
	// zeroType marks preallocated space (e.g. from an mmap-truncated
	// file) and is never written by this package; the reader treats it
	// as a bad record.
	zeroType   recordType = 0
	fullType   recordType = 1
	firstType  recordType = 2
	middleType recordType = 3
	lastType   recordType = 4
)

const (
	// BlockSize is the fixed physical block size; records never cross
	// a block boundary.
	BlockSize = 32 * 1024

	// headerSize is CRC(4) + length(2) + type(1).
	headerSize = 7
)

// typeCRC[t] is the CRC32C of the single type byte t, precomputed so
// AddRecord only needs to Extend it with the payload instead of
// hashing the type byte on every call.
var typeCRC [5]uint32

func init() {
	for t := zeroType; t <= lastType; t++ {
		typeCRC[t] = codec.Value([]byte{byte(t)})
	}
}
