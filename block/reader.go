package block

import (
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// Comparator orders keys within a block.
type Comparator interface {
	Compare(a, b []byte) int
}

// Reader wraps a finished block's raw bytes, exposing its restart
// array for Iterator construction.
type Reader struct {
	data         []byte
	restartsOff  int
	restartCount int
}

// NewReader parses the trailer of a finished block. data must be the
// exact bytes returned by Builder.Finish (or read off disk unchanged).
func NewReader(data []byte) (*Reader, status.Status) {
	if len(data) < trailerWordSize {
		return nil, status.Corruptionf("block too short for trailer")
	}
	n := len(data)
	restartCount := int(codec.DecodeFixed32(data[n-trailerWordSize:]))
	restartsOff := n - trailerWordSize*(restartCount+1)
	if restartCount < 0 || restartsOff < 0 || restartsOff > n-trailerWordSize {
		return nil, status.Corruptionf("block restart count out of range")
	}
	return &Reader{data: data, restartsOff: restartsOff, restartCount: restartCount}, status.OKStatus
}

func (r *Reader) restart(i int) int {
	off := r.restartsOff + trailerWordSize*i
	return int(codec.DecodeFixed32(r.data[off : off+4]))
}

// NewIterator returns a fresh Iterator positioned before the first
// entry.
func (r *Reader) NewIterator(cmp Comparator) *Iterator {
	it := &Iterator{r: r, cmp: cmp}
	it.invalidate()
	return it
}

// Iterator walks a block's entries in key order.
type Iterator struct {
	r   *Reader
	cmp Comparator

	current    int // byte offset of the current entry, or restartsOff if invalid
	next       int // byte offset of the entry after current
	restartIdx int // index of the restart covering current

	key   []byte
	value []byte
	err   status.Status
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool { return it.err.Ok() && it.current < it.r.restartsOff }

// Err returns the first corruption encountered, if any.
func (it *Iterator) Err() status.Status { return it.err }

// Key returns the current entry's fully-reconstructed key.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.value }

func (it *Iterator) invalidate() {
	it.current = it.r.restartsOff
	it.next = it.r.restartsOff
	it.restartIdx = it.r.restartCount
	it.key = nil
	it.value = nil
}

func (it *Iterator) corrupt(msg string) {
	it.err = status.Corruptionf(msg)
	it.invalidate()
}

// decodeEntryAt decodes the entry at offset against prevKey (for
// prefix reconstruction) without mutating iterator state, returning
// the fully-reconstructed key, its value, and the offset of the
// following entry.
func (it *Iterator) decodeEntryAt(offset int, prevKey []byte) (key, value []byte, next int, ok bool) {
	data := it.r.data[:it.r.restartsOff]
	if offset < 0 || offset >= len(data) {
		return nil, nil, 0, false
	}
	p := data[offset:]

	sharedU, rest, ok1 := codec.GetVarint32(p)
	nonSharedU, rest, ok2 := codec.GetVarint32(rest)
	valueLenU, rest, ok3 := codec.GetVarint32(rest)
	if !ok1 || !ok2 || !ok3 {
		return nil, nil, 0, false
	}

	shared, nonShared, valueLen := int(sharedU), int(nonSharedU), int(valueLenU)
	if shared > len(prevKey) {
		return nil, nil, 0, false
	}
	headerLen := len(p) - len(rest)
	if headerLen+nonShared+valueLen > len(p) {
		return nil, nil, 0, false
	}

	newKey := make([]byte, shared+nonShared)
	copy(newKey, prevKey[:shared])
	copy(newKey[shared:], p[headerLen:headerLen+nonShared])

	val := p[headerLen+nonShared : headerLen+nonShared+valueLen]
	return newKey, val, offset + headerLen + nonShared + valueLen, true
}

// ParseNextKey decodes the entry at it.next into it.key/it.value,
// making it the current entry. At the end of the entry region the
// iterator becomes invalid without error.
func (it *Iterator) ParseNextKey() bool {
	offset := it.next
	if offset >= it.r.restartsOff {
		it.invalidate()
		return false
	}
	key, value, next, ok := it.decodeEntryAt(offset, it.key)
	if !ok {
		it.corrupt("bad entry framing")
		return false
	}
	it.key = key
	it.value = value
	it.current = offset
	it.next = next
	it.advanceRestartIdx()
	return true
}

// advanceRestartIdx keeps restartIdx pointing at the restart covering
// current, used by Prev to know where to rewind to.
func (it *Iterator) advanceRestartIdx() {
	for it.restartIdx+1 < it.r.restartCount && it.r.restart(it.restartIdx+1) <= it.current {
		it.restartIdx++
	}
}

// seekToRestart positions the cursor immediately before the first
// entry of restart idx; the next ParseNextKey call lands on it.
func (it *Iterator) seekToRestart(idx int) {
	if idx < 0 {
		idx = 0
	}
	it.err = status.OKStatus
	it.current = it.r.restart(idx)
	it.next = it.r.restart(idx)
	it.restartIdx = idx
	it.key = it.key[:0]
}

// SeekToFirst positions the iterator at the first entry.
func (it *Iterator) SeekToFirst() {
	if it.r.restartCount == 0 || it.r.restartsOff == 0 {
		it.invalidate()
		return
	}
	it.seekToRestart(0)
	it.ParseNextKey()
}

// SeekToLast positions the iterator at the last entry.
func (it *Iterator) SeekToLast() {
	if it.r.restartCount == 0 || it.r.restartsOff == 0 {
		it.invalidate()
		return
	}
	it.seekToRestart(it.r.restartCount - 1)
	for it.ParseNextKey() && it.next < it.r.restartsOff {
	}
}

// Seek positions the iterator at the first entry whose key is >=
// target, binary-searching the restart array for the last restart
// whose key is < target, then scanning forward. When the iterator is
// already positioned before target, the binary search is skipped and
// the scan continues from the current entry.
func (it *Iterator) Seek(target []byte) {
	if it.r.restartCount == 0 || it.r.restartsOff == 0 {
		it.invalidate()
		return
	}

	if !it.Valid() || it.cmp.Compare(it.key, target) >= 0 {
		left, right := 0, it.r.restartCount-1
		for left < right {
			mid := (left + right + 1) / 2
			key, _, _, ok := it.decodeEntryAt(it.r.restart(mid), nil)
			if !ok {
				it.corrupt("bad entry framing")
				return
			}
			if it.cmp.Compare(key, target) < 0 {
				left = mid
			} else {
				right = mid - 1
			}
		}
		it.seekToRestart(left)
		if !it.ParseNextKey() {
			return
		}
	}

	for it.Valid() && it.cmp.Compare(it.key, target) < 0 {
		if !it.ParseNextKey() {
			return
		}
	}
}

// Next advances to the following entry.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.ParseNextKey()
}

// Prev moves to the entry preceding the current one: finds the last
// restart whose offset is < current, seeks there, then scans forward
// until the entry immediately before the original position.
func (it *Iterator) Prev() {
	if !it.Valid() {
		return
	}
	original := it.current

	restartIdx := it.restartIdx
	for it.r.restart(restartIdx) >= original {
		if restartIdx == 0 {
			it.invalidate()
			return
		}
		restartIdx--
	}

	it.seekToRestart(restartIdx)
	for {
		if !it.ParseNextKey() {
			return
		}
		if it.next >= original {
			return
		}
	}
}
