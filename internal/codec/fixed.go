package codec

import "encoding/binary"

// PutFixed32 appends v little-endian.
func PutFixed32(dst []byte, v uint32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], v)
	return append(dst, buf[:]...)
}

// PutFixed64 appends v little-endian.
func PutFixed64(dst []byte, v uint64) []byte {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], v)
	return append(dst, buf[:]...)
}

// DecodeFixed32 reads a little-endian uint32 from the first 4 bytes of b.
func DecodeFixed32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// DecodeFixed64 reads a little-endian uint64 from the first 8 bytes of b.
func DecodeFixed64(b []byte) uint64 { return binary.LittleEndian.Uint64(b) }
