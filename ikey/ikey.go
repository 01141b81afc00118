// Package ikey implements the internal-key format that binds a user
// key, a sequence number, and a value type into one totally ordered
// byte string.
package ikey

import (
	"encoding/binary"

	"github.com/Priyanshu23/flashstore/internal/codec"
)

// ValueType distinguishes a live value from a tombstone. It occupies
// the low 8 bits of the packed tag alongside the sequence number.
type ValueType uint8

const (
	TypeDeletion ValueType = 0
	TypeValue    ValueType = 1
)

// MaxSequenceNumber is the largest representable sequence number: the
// tag packs it into the upper 56 bits of a uint64.
const MaxSequenceNumber uint64 = (1 << 56) - 1

// ValueTypeForSeek is the value type used when constructing a seek key
// for "first internal key <= (user_key, max_sequence)" lookups: it
// must sort before every real value type at the same sequence.
const ValueTypeForSeek = TypeValue

// packTag combines a sequence number and value type into the 8-byte
// trailer: (seq<<8)|type.
func packTag(seq uint64, vt ValueType) uint64 {
	return (seq << 8) | uint64(vt)
}

func unpackTag(tag uint64) (seq uint64, vt ValueType) {
	return tag >> 8, ValueType(tag & 0xff)
}

// Append appends the internal-key encoding of (userKey, seq, vt) to
// dst and returns the extended slice.
func Append(dst, userKey []byte, seq uint64, vt ValueType) []byte {
	dst = append(dst, userKey...)
	return codec.PutFixed64(dst, packTag(seq, vt))
}

// Parsed is a decoded internal key. It is transient: it borrows
// UserKey from the buffer it was parsed out of.
type Parsed struct {
	UserKey  []byte
	Sequence uint64
	Type     ValueType
}

// Parse decodes an internal key, returning ok=false if ikey is
// shorter than the 8-byte tag suffix.
func Parse(internalKey []byte) (Parsed, bool) {
	if len(internalKey) < 8 {
		return Parsed{}, false
	}
	n := len(internalKey) - 8
	tag := binary.LittleEndian.Uint64(internalKey[n:])
	seq, vt := unpackTag(tag)
	return Parsed{UserKey: internalKey[:n], Sequence: seq, Type: vt}, true
}

// ExtractUserKey returns the user-key prefix of an internal key
// without fully decoding the tag.
func ExtractUserKey(internalKey []byte) []byte {
	if len(internalKey) < 8 {
		return internalKey
	}
	return internalKey[:len(internalKey)-8]
}

// UserComparator is the pluggable total order over user keys. The
// default is BytewiseComparator.
type UserComparator interface {
	// Name identifies the comparator; it must be stable across
	// versions of an on-disk format using it.
	Name() string
	// Compare returns <0, 0, >0 as a < b, a == b, a > b.
	Compare(a, b []byte) int
	// FindShortestSeparator may shorten start so that
	// start <= result < limit, leaving start unchanged if no
	// shortening is possible.
	FindShortestSeparator(start, limit []byte) []byte
	// FindShortSuccessor returns a short key >= key, used when no
	// limit is available (e.g. the last key in a table).
	FindShortSuccessor(key []byte) []byte
}

// BytewiseComparator is the default user-key comparator: plain
// lexicographic byte ordering. The name is persisted in table files,
// so it must never change.
var BytewiseComparator UserComparator = bytewiseComparator{}

type bytewiseComparator struct{}

func (bytewiseComparator) Name() string { return "leveldb.BytewiseComparator" }

func (bytewiseComparator) Compare(a, b []byte) int { return codec.Compare(a, b) }

func (bytewiseComparator) FindShortestSeparator(start, limit []byte) []byte {
	minLen := len(start)
	if len(limit) < minLen {
		minLen = len(limit)
	}
	diffIdx := 0
	for diffIdx < minLen && start[diffIdx] == limit[diffIdx] {
		diffIdx++
	}

	if diffIdx >= minLen {
		// One is a prefix of the other; no shortening is safe.
		return start
	}

	lastByte := start[diffIdx]
	if lastByte < 0xff && lastByte+1 < limit[diffIdx] {
		shortened := append([]byte(nil), start[:diffIdx+1]...)
		shortened[diffIdx]++
		return shortened
	}
	return start
}

func (bytewiseComparator) FindShortSuccessor(key []byte) []byte {
	for i := 0; i < len(key); i++ {
		if b := key[i]; b != 0xff {
			successor := append([]byte(nil), key[:i+1]...)
			successor[i]++
			return successor
		}
	}
	// key is all 0xff bytes (or empty): no shorter successor exists.
	return key
}

// Comparator is the internal-key comparator: orders by user key
// ascending, then by (sequence, type) descending so the newest
// version of a user key sorts first.
type Comparator struct {
	User UserComparator
}

// NewComparator returns a Comparator over the given user comparator.
func NewComparator(user UserComparator) *Comparator {
	return &Comparator{User: user}
}

func (c *Comparator) Name() string { return "leveldb.InternalKeyComparator" }

// Compare orders two internal keys.
func (c *Comparator) Compare(a, b []byte) int {
	ua, ta, aOK := splitTag(a)
	ub, tb, bOK := splitTag(b)

	if r := c.User.Compare(ua, ub); r != 0 {
		return r
	}
	if !aOK || !bOK {
		// Degenerate (too-short) keys compare equal on their user-key
		// prefix only; this should never happen on well-formed data.
		return 0
	}
	// Higher tag (newer sequence, or same sequence but a type that
	// sorts later) comes first, i.e. descending numeric order.
	switch {
	case ta > tb:
		return -1
	case ta < tb:
		return 1
	default:
		return 0
	}
}

func splitTag(ikey []byte) (userKey []byte, tag uint64, ok bool) {
	if len(ikey) < 8 {
		return ikey, 0, false
	}
	n := len(ikey) - 8
	return ikey[:n], binary.LittleEndian.Uint64(ikey[n:]), true
}

// FindShortestSeparator shortens the user-key prefix of start (via the
// user comparator) and re-appends a tag of (MaxSequenceNumber,
// ValueTypeForSeek), so the shortened key still sorts strictly between
// start and limit among internal keys. It never changes the set of
// user keys a table contains; it only shrinks index-block keys.
func (c *Comparator) FindShortestSeparator(start, limit []byte) []byte {
	userStart := ExtractUserKey(start)
	userLimit := ExtractUserKey(limit)

	shortened := c.User.FindShortestSeparator(userStart, userLimit)
	if len(shortened) < len(userStart) && c.User.Compare(userStart, shortened) < 0 {
		return codec.PutFixed64(append([]byte(nil), shortened...), packTag(MaxSequenceNumber, ValueTypeForSeek))
	}
	return start
}

// FindShortSuccessor is FindShortestSeparator's analogue for the last
// key in a table, where there is no following limit key.
func (c *Comparator) FindShortSuccessor(key []byte) []byte {
	userKey := ExtractUserKey(key)
	shortened := c.User.FindShortSuccessor(userKey)
	if len(shortened) < len(userKey) && c.User.Compare(userKey, shortened) < 0 {
		return codec.PutFixed64(append([]byte(nil), shortened...), packTag(MaxSequenceNumber, ValueTypeForSeek))
	}
	return key
}
