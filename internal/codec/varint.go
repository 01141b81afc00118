// Package codec implements the engine's wire-format primitives: fixed
// and variable width integer encoding and masked CRC32C, shared by
// every on-disk and on-wire format in the engine.
package codec

// PutVarint32 appends v as a 7-bits-per-byte varint (little group
// order, continuation in the MSB) and returns the extended slice.
func PutVarint32(dst []byte, v uint32) []byte {
	return PutVarint64(dst, uint64(v))
}

// PutVarint64 appends v as a varint and returns the extended slice.
func PutVarint64(dst []byte, v uint64) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// VarintLength32 returns the number of bytes PutVarint32 would write,
// without encoding.
func VarintLength32(v uint32) int { return VarintLength64(uint64(v)) }

// VarintLength64 returns the number of bytes PutVarint64 would write.
func VarintLength64(v uint64) int {
	n := 1
	for v >= 0x80 {
		v >>= 7
		n++
	}
	return n
}

// GetVarint32 decodes a varint32 from src, returning the value, the
// remaining unconsumed slice, and whether decoding succeeded.
func GetVarint32(src []byte) (uint32, []byte, bool) {
	v, rest, ok := GetVarint64(src)
	if !ok || v > 0xFFFFFFFF {
		return 0, src, false
	}
	return uint32(v), rest, true
}

// GetVarint64 decodes a varint64 from src, returning the value, the
// remaining unconsumed slice, and whether decoding succeeded.
func GetVarint64(src []byte) (uint64, []byte, bool) {
	var result uint64
	for i := 0; i < len(src); i++ {
		b := src[i]
		if i >= 10 {
			return 0, src, false
		}
		result |= uint64(b&0x7f) << (7 * uint(i))
		if b < 0x80 {
			return result, src[i+1:], true
		}
	}
	return 0, src, false
}
