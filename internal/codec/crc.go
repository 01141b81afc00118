package codec

import "hash/crc32"

// castagnoliTable is the CRC32C polynomial table; every on-disk
// checksum in the engine (WAL records, SSTable block trailers, filter
// block) uses Castagnoli, not IEEE.
var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// maskDelta is added (mod 2^32) after a 15-bit right rotation to avoid
// the checksum colliding with payload bytes that themselves embed a
// CRC.
const maskDelta = 0xa282ead8

// Value returns the unmasked CRC32C of data.
func Value(data []byte) uint32 {
	return crc32.Checksum(data, castagnoliTable)
}

// Extend returns the CRC32C of (data-that-produced-initial ‖ data),
// allowing the checksum to be computed incrementally.
func Extend(initial uint32, data []byte) uint32 {
	return crc32.Update(initial, castagnoliTable, data)
}

// Mask transforms a raw CRC32C so it can be safely stored in a
// structure that may itself contain embedded CRCs.
func Mask(crc uint32) uint32 {
	return ((crc >> 15) | (crc << 17)) + maskDelta
}

// Unmask inverts Mask, returning the original CRC32C.
func Unmask(masked uint32) uint32 {
	rot := masked - maskDelta
	return (rot >> 17) | (rot << 15)
}
