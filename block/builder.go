package block

import (
	"bytes"
	"fmt"

	"github.com/Priyanshu23/flashstore/internal/codec"
)

// bytewiseCmp is the fallback block comparator when none is supplied.
type bytewiseCmp struct{}

func (bytewiseCmp) Compare(a, b []byte) int { return codec.Compare(a, b) }

// Builder accumulates sorted key/value pairs into one block. A
// Builder is single-shot: call Finish once, then Reset to reuse it.
type Builder struct {
	restartInterval int
	cmp             Comparator

	buf      bytes.Buffer
	restarts []uint32
	lastKey  []byte
	nEntries int
	finished bool
}

// NewBuilder returns a Builder with the given restart interval
// (DefaultRestartInterval when <= 0) whose keys are ordered by cmp
// (bytewise when nil).
func NewBuilder(restartInterval int, cmp Comparator) *Builder {
	if restartInterval <= 0 {
		restartInterval = DefaultRestartInterval
	}
	if cmp == nil {
		cmp = bytewiseCmp{}
	}
	return &Builder{restartInterval: restartInterval, cmp: cmp}
}

// Add appends key/value. key must compare strictly greater than the
// previously added key under the builder's comparator.
func (b *Builder) Add(key, value []byte) {
	if b.finished {
		panic("block: Add called after Finish")
	}
	if b.nEntries > 0 && b.cmp.Compare(b.lastKey, key) >= 0 {
		panic(fmt.Sprintf("block: keys out of order: %q then %q", b.lastKey, key))
	}

	shared := 0
	if b.nEntries%b.restartInterval == 0 {
		b.restarts = append(b.restarts, uint32(b.buf.Len()))
	} else {
		shared = codec.SharedPrefixLen(b.lastKey, key)
	}
	nonShared := len(key) - shared

	var scratch [3 * 5]byte // up to 3 varint32s, 5 bytes each
	n := 0
	n += copy(scratch[n:], codec.PutVarint32(nil, uint32(shared)))
	n += copy(scratch[n:], codec.PutVarint32(nil, uint32(nonShared)))
	n += copy(scratch[n:], codec.PutVarint32(nil, uint32(len(value))))

	b.buf.Write(scratch[:n])
	b.buf.Write(key[shared:])
	b.buf.Write(value)

	b.lastKey = append(b.lastKey[:0], key...)
	b.nEntries++
}

// Empty reports whether any entry has been added since construction
// or the last Reset.
func (b *Builder) Empty() bool { return b.nEntries == 0 }

// NumEntries returns the number of entries added so far.
func (b *Builder) NumEntries() int { return b.nEntries }

// CurrentSizeEstimate returns the encoded size Finish would currently
// produce, without actually finishing the block.
func (b *Builder) CurrentSizeEstimate() int {
	restarts := len(b.restarts)
	if restarts == 0 {
		restarts = 1
	}
	return b.buf.Len() + trailerWordSize*(restarts+1)
}

// Finish serializes the restart array and returns the complete block
// contents. The Builder must not be reused until Reset.
func (b *Builder) Finish() []byte {
	if b.finished {
		panic("block: Finish called twice")
	}
	b.finished = true

	restarts := b.restarts
	if len(restarts) == 0 {
		restarts = []uint32{0}
	}
	for _, r := range restarts {
		b.buf.Write(codec.PutFixed32(nil, r))
	}
	b.buf.Write(codec.PutFixed32(nil, uint32(len(restarts))))

	return b.buf.Bytes()
}

// Reset clears the builder for reuse.
func (b *Builder) Reset() {
	b.buf.Reset()
	b.restarts = b.restarts[:0]
	b.lastKey = b.lastKey[:0]
	b.nEntries = 0
	b.finished = false
}
