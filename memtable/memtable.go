package memtable

import (
	"sync/atomic"

	"github.com/Priyanshu23/flashstore/internal/arena"
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
	"github.com/Priyanshu23/flashstore/ikey"
)

// memKeyComparator orders memtable-key encoded entries: it strips the
// varint32 length prefix off each side and delegates to the internal
// key comparator.
type memKeyComparator struct {
	ikeyCmp *ikey.Comparator
}

func (c memKeyComparator) Compare(a, b []byte) int {
	aKey, _ := decodeLengthPrefixed(a)
	bKey, _ := decodeLengthPrefixed(b)
	return c.ikeyCmp.Compare(aKey, bKey)
}

func decodeLengthPrefixed(buf []byte) (key []byte, rest []byte) {
	n, rest, ok := codec.GetVarint32(buf)
	if !ok {
		panic("memtable: corrupt length-prefixed entry")
	}
	return rest[:n], rest[n:]
}

// Table is the in-memory ordered map internal_key -> (value|tombstone),
// reference-counted and destroyed when the last holder releases it.
type Table struct {
	arena   *arena.Arena
	list    *skiplist
	ikeyCmp *ikey.Comparator
	refs    atomic.Int32
}

// New returns a fresh, empty memtable with one reference held by the
// caller.
func New(userCmp ikey.UserComparator) *Table {
	ic := ikey.NewComparator(userCmp)
	a := arena.New()
	t := &Table{
		arena:   a,
		ikeyCmp: ic,
	}
	t.list = newSkiplist(memKeyComparator{ikeyCmp: ic}, a)
	t.refs.Store(1)
	return t
}

// Ref increments the reference count.
func (t *Table) Ref() { t.refs.Add(1) }

// Unref decrements the reference count, dropping the table (and its
// arena, as a whole) when it reaches zero. The arena's memory is
// reclaimed by the garbage collector once the table becomes
// unreachable; there is no explicit free step beyond the last Unref.
func (t *Table) Unref() {
	if t.refs.Add(-1) < 0 {
		panic("memtable: Unref without matching Ref")
	}
}

// ApproximateMemoryUsage returns the arena's running byte total.
func (t *Table) ApproximateMemoryUsage() int64 {
	return t.arena.MemoryUsage()
}

// encodeEntry builds one memtable record:
// varint32(internal_key_len) | user_key | u64le(tag) | varint32(value_len) | value
func encodeEntry(userKey []byte, seq uint64, vt ikey.ValueType, value []byte) []byte {
	internalKeyLen := len(userKey) + 8
	buf := make([]byte, 0, codec.VarintLength32(uint32(internalKeyLen))+internalKeyLen+codec.VarintLength32(uint32(len(value)))+len(value))

	buf = codec.PutVarint32(buf, uint32(internalKeyLen))
	buf = ikey.Append(buf, userKey, seq, vt)
	buf = codec.PutVarint32(buf, uint32(len(value)))
	buf = append(buf, value...)
	return buf
}

// Add inserts a single logical write into the memtable.
func (t *Table) Add(seq uint64, vt ikey.ValueType, userKey, value []byte) {
	encoded := encodeEntry(userKey, seq, vt, value)

	buf := t.arena.Allocate(len(encoded))
	copy(buf, encoded)

	t.list.Insert(buf)
}

// lookupKey frames a user key the way entries are keyed in the
// skiplist (varint32(len+8) | internal_key), so a >= seek lands on
// the newest version of userKey at or below seq.
func lookupKey(userKey []byte, seq uint64) []byte {
	internalKeyLen := len(userKey) + 8
	buf := make([]byte, 0, 5+internalKeyLen)
	buf = codec.PutVarint32(buf, uint32(internalKeyLen))
	buf = ikey.Append(buf, userKey, seq, ikey.ValueTypeForSeek)
	return buf
}

// Get looks up userKey as of seq (the most recent write at or before
// seq). found reports whether an entry for userKey was located at
// all; when found is true and the entry is a tombstone, the returned
// status is NotFound and value is nil.
func (t *Table) Get(userKey []byte, seq uint64) (value []byte, found bool, st status.Status) {
	it := newIterator(t.list)
	it.Seek(lookupKey(userKey, seq))
	if !it.Valid() {
		return nil, false, status.OKStatus
	}

	entryKey, rest := decodeLengthPrefixed(it.Key())
	parsed, ok := ikey.Parse(entryKey)
	if !ok {
		return nil, false, status.OKStatus
	}
	if t.ikeyCmp.User.Compare(parsed.UserKey, userKey) != 0 {
		return nil, false, status.OKStatus
	}

	valLen, valBytes, ok := codec.GetVarint32(rest)
	if !ok {
		return nil, false, status.OKStatus
	}
	val := valBytes[:valLen]

	switch parsed.Type {
	case ikey.TypeValue:
		return val, true, status.OKStatus
	case ikey.TypeDeletion:
		return nil, true, status.NotFoundf("key deleted")
	default:
		return nil, false, status.OKStatus
	}
}

// Iterator is a bidirectional cursor over a memtable's entries in
// internal-key order. It observes a consistent published prefix of
// the underlying skiplist and may run concurrently with the single
// writer.
type Iterator struct {
	t  *Table
	it *iterator
}

// NewIterator returns an Iterator positioned before the first entry.
func (t *Table) NewIterator() *Iterator {
	return &Iterator{t: t, it: newIterator(t.list)}
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool { return it.it.Valid() }

// Next advances to the following entry.
func (it *Iterator) Next() { it.it.Next() }

// Prev moves to the preceding entry.
func (it *Iterator) Prev() { it.it.Prev() }

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() { it.it.SeekToFirst() }

// SeekToLast positions the iterator at the last entry.
func (it *Iterator) SeekToLast() { it.it.SeekToLast() }

// Seek positions the iterator at the first entry whose user key and
// sequence are at or after (userKey, seq) in internal-key order.
func (it *Iterator) Seek(userKey []byte, seq uint64) {
	it.it.Seek(lookupKey(userKey, seq))
}

// Record decodes the current entry. The iterator must be Valid.
func (it *Iterator) Record() (Record, bool) {
	entryKey, rest := decodeLengthPrefixed(it.it.Key())
	parsed, ok := ikey.Parse(entryKey)
	if !ok {
		return Record{}, false
	}
	valLen, valBytes, ok := codec.GetVarint32(rest)
	if !ok {
		return Record{}, false
	}
	return Record{
		UserKey:  parsed.UserKey,
		Sequence: parsed.Sequence,
		Type:     parsed.Type,
		Value:    valBytes[:valLen],
	}, true
}

// Record is one decoded memtable entry, yielded by Table.Entries.
type Record struct {
	UserKey  []byte
	Sequence uint64
	Type     ikey.ValueType
	Value    []byte
}

// Entries returns an in-order iterator over every entry currently in
// the memtable (internal-key order: user key ascending, then sequence
// descending).
func (t *Table) Entries() func(yield func(Record) bool) {
	return func(yield func(Record) bool) {
		it := newIterator(t.list)
		it.SeekToFirst()
		for it.Valid() {
			entryKey, rest := decodeLengthPrefixed(it.Key())
			parsed, ok := ikey.Parse(entryKey)
			if !ok {
				return
			}
			valLen, valBytes, ok := codec.GetVarint32(rest)
			if !ok {
				return
			}
			rec := Record{
				UserKey:  parsed.UserKey,
				Sequence: parsed.Sequence,
				Type:     parsed.Type,
				Value:    valBytes[:valLen],
			}
			if !yield(rec) {
				return
			}
			it.Next()
		}
	}
}
