package filter

import (
	"github.com/Priyanshu23/flashstore/internal/codec"
)

// BaseLg is log2 of the filter window size (2048 bytes).
const BaseLg = 11

const filterWindow = 1 << BaseLg

// BlockBuilder accumulates keys into per-window filters as data
// blocks are flushed.
type BlockBuilder struct {
	policy Policy

	keys    [][]byte
	buf     []byte
	offsets []uint32
}

// NewBlockBuilder returns a BlockBuilder using policy, or nil if
// policy is nil (callers should skip filter-block construction
// entirely in that case).
func NewBlockBuilder(policy Policy) *BlockBuilder {
	if policy == nil {
		return nil
	}
	return &BlockBuilder{policy: policy}
}

// AddKey buffers key for inclusion in the filter covering the
// current window.
func (b *BlockBuilder) AddKey(key []byte) {
	b.keys = append(b.keys, append([]byte(nil), key...))
}

// StartBlock is called with the offset a just-flushed data block
// ends at. It generates filters until every window before offset's
// window has one: the first filter generated covers the keys
// buffered so far, and any further skipped windows get empty
// filters. If no window needs a filter yet, the keys stay buffered.
func (b *BlockBuilder) StartBlock(offset uint64) {
	index := offset / filterWindow
	for uint64(len(b.offsets)) < index {
		b.generate()
	}
}

func (b *BlockBuilder) generate() {
	b.offsets = append(b.offsets, uint32(len(b.buf)))
	if len(b.keys) > 0 {
		b.buf = b.policy.CreateFilter(b.keys, b.buf)
		b.keys = b.keys[:0]
	}
}

// Finish serializes every filter generated so far, the pending one
// (if any keys remain unflushed), the offset array, the array's own
// offset, and the base_lg byte.
func (b *BlockBuilder) Finish() []byte {
	if len(b.keys) > 0 {
		b.generate()
	}

	arrayOffset := len(b.buf)
	for _, off := range b.offsets {
		b.buf = codec.PutFixed32(b.buf, off)
	}
	b.buf = codec.PutFixed32(b.buf, uint32(arrayOffset))
	b.buf = append(b.buf, byte(BaseLg))
	return b.buf
}

// BlockReader looks up per-window filters from a finished filter
// block's bytes.
type BlockReader struct {
	policy Policy

	data        []byte
	offsetsBase int
	numFilters  int
	baseLg      byte
}

// NewBlockReader parses a finished filter block. If contents is
// malformed, a reader with zero filters is returned so KeyMayMatch
// always answers true, erring on the side of reading the block.
func NewBlockReader(policy Policy, contents []byte) *BlockReader {
	r := &BlockReader{policy: policy, data: contents}
	n := len(contents)
	if n < 5 {
		return r
	}

	r.baseLg = contents[n-1]
	arrayOffset := int(codec.DecodeFixed32(contents[n-5 : n-1]))
	if arrayOffset > n-5 || arrayOffset < 0 {
		return r
	}

	r.offsetsBase = arrayOffset
	numFilters := (n - 5 - arrayOffset) / 4
	r.numFilters = numFilters
	return r
}

// KeyMayMatch reports whether key may be present in the data block
// starting at blockOffset.
func (r *BlockReader) KeyMayMatch(blockOffset uint64, key []byte) bool {
	index := int(blockOffset >> r.safeBaseLg())
	if index < 0 || index >= r.numFilters {
		return true
	}

	start := int(codec.DecodeFixed32(r.data[r.offsetsBase+4*index : r.offsetsBase+4*index+4]))
	limit := int(codec.DecodeFixed32(r.data[r.offsetsBase+4*(index+1) : r.offsetsBase+4*(index+1)+4]))
	if start > limit || limit > r.offsetsBase {
		return true
	}

	if start == limit {
		// Empty window: no keys were buffered for it.
		return false
	}
	return r.policy.KeyMayMatch(key, r.data[start:limit])
}

func (r *BlockReader) safeBaseLg() uint {
	if r.baseLg == 0 {
		return BaseLg
	}
	return uint(r.baseLg)
}
