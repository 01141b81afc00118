package sstable

import (
	"io"

	"github.com/Priyanshu23/flashstore/block"
	"github.com/Priyanshu23/flashstore/filter"
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// Builder assembles one table file from an increasing sequence of
// internal keys: prefix-compressed data blocks, a windowed filter
// block, a metaindex block, an index block, and the footer.
type Builder struct {
	w    io.Writer
	opts Options

	dataBlock     *block.Builder
	indexBlock    *block.Builder
	filterBuilder *filter.BlockBuilder

	pendingHandle BlockHandle
	havePending   bool
	lastKey       []byte
	numEntries    int
	offset        uint64

	closed  bool
	scratch []byte
	err     status.Status
}

// NewBuilder returns a Builder writing to w.
func NewBuilder(w io.Writer, opts Options) *Builder {
	return &Builder{
		w:             w,
		opts:          opts,
		dataBlock:     block.NewBuilder(opts.BlockRestartInterval, opts.Comparator),
		indexBlock:    block.NewBuilder(1, opts.Comparator),
		filterBuilder: filter.NewBlockBuilder(opts.FilterPolicy),
	}
}

// Add appends one internal key/value pair. Keys must be added in
// strictly increasing order under opts.Comparator.
func (b *Builder) Add(key, value []byte) status.Status {
	if b.closed {
		panic("sstable: Add called after Finish/Abandon")
	}
	if !b.err.Ok() {
		return b.err
	}
	if b.numEntries > 0 && b.opts.Comparator.Compare(b.lastKey, key) >= 0 {
		b.err = status.InvalidArgumentf("sstable: keys added out of order")
		return b.err
	}

	b.flushPendingIndexEntry(key)

	if b.filterBuilder != nil {
		b.filterBuilder.AddKey(key)
	}

	b.lastKey = append(b.lastKey[:0], key...)
	b.dataBlock.Add(key, value)
	b.numEntries++

	if b.dataBlock.CurrentSizeEstimate() >= b.opts.BlockSize {
		if st := b.flush(); !st.Ok() {
			return st
		}
	}
	return status.OKStatus
}

// flushPendingIndexEntry emits the index entry for the most recently
// flushed data block, once the first key of the following block (or
// nil, at Finish) is known, so the separator can be computed between
// them.
func (b *Builder) flushPendingIndexEntry(nextKey []byte) {
	if !b.havePending {
		return
	}
	var separator []byte
	if nextKey == nil {
		separator = b.opts.Comparator.FindShortSuccessor(b.lastKey)
	} else {
		separator = b.opts.Comparator.FindShortestSeparator(b.lastKey, nextKey)
	}

	handleBytes := b.pendingHandle.EncodeTo(nil)
	b.indexBlock.Add(separator, handleBytes)
	b.havePending = false
}

// flush writes the current data block to the file and records its
// handle as pending, to be indexed once the next block's first key
// (or Finish) is known.
func (b *Builder) flush() status.Status {
	if b.dataBlock.Empty() {
		return status.OKStatus
	}

	handle, st := b.writeBlock(b.dataBlock.Finish())
	if !st.Ok() {
		b.err = st
		return st
	}
	b.dataBlock.Reset()

	b.pendingHandle = handle
	b.havePending = true

	if b.filterBuilder != nil {
		b.filterBuilder.StartBlock(b.offset)
	}
	return status.OKStatus
}

// writeBlock compresses raw per opts.Compression (falling back to
// uncompressed storage when compression does not shrink the payload
// below 87.5% of its raw size), appends the 5-byte trailer, writes it
// to the file, and returns its handle.
func (b *Builder) writeBlock(raw []byte) (BlockHandle, status.Status) {
	return b.writeBlockWithCompression(raw, b.opts.Compression)
}

// writeRawBlock writes raw uncompressed; the filter block is always
// stored this way since its bytes are already near-incompressible.
func (b *Builder) writeRawBlock(raw []byte) (BlockHandle, status.Status) {
	return b.writeBlockWithCompression(raw, NoCompression)
}

func (b *Builder) writeBlockWithCompression(raw []byte, compression CompressionType) (BlockHandle, status.Status) {
	compressed, effective := compressBlock(raw, compression)
	if effective != NoCompression && len(compressed)*8 >= len(raw)*7 {
		compressed = raw
		effective = NoCompression
	}

	trailer := [blockTrailerLen]byte{byte(effective)}
	crc := codec.Mask(codec.Extend(codec.Value(compressed), trailer[:1]))
	copy(trailer[1:], codec.PutFixed32(nil, crc))

	if _, err := b.w.Write(compressed); err != nil {
		return BlockHandle{}, status.Wrap(err, "sstable: write block")
	}
	if _, err := b.w.Write(trailer[:]); err != nil {
		return BlockHandle{}, status.Wrap(err, "sstable: write block trailer")
	}

	handle := BlockHandle{Offset: b.offset, Size: uint64(len(compressed))}
	b.offset += uint64(len(compressed) + blockTrailerLen)
	return handle, status.OKStatus
}

// Flush forces the current data block to be written out immediately,
// rather than waiting for it to reach opts.BlockSize. Callers
// normally never need it since Add already flushes at the size
// threshold.
func (b *Builder) Flush() status.Status {
	if b.closed {
		panic("sstable: Flush called after Finish/Abandon")
	}
	if !b.err.Ok() {
		return b.err
	}
	return b.flush()
}

// Abandon marks the builder done without writing the filter,
// metaindex, index, or footer: the file written so far is incomplete
// and must not be opened as a table. Use when discarding a table
// under construction (e.g. a failed compaction).
func (b *Builder) Abandon() {
	b.closed = true
}

// ChangeOptions swaps in new compression and filter-policy settings
// for the remainder of the build. The comparator is assumed
// unchanged: it already governs the keys added so far, and swapping
// it mid-build would invalidate the blocks already written.
func (b *Builder) ChangeOptions(opts Options) status.Status {
	b.opts.Compression = opts.Compression
	b.opts.FilterPolicy = opts.FilterPolicy
	if b.filterBuilder == nil && opts.FilterPolicy != nil && b.numEntries == 0 {
		b.filterBuilder = filter.NewBlockBuilder(opts.FilterPolicy)
	}
	return b.err
}

// Status returns the first error the builder encountered, if any.
func (b *Builder) Status() status.Status { return b.err }

// Finish flushes any residual data block, writes the filter block,
// the metaindex block, the index block, and the footer.
func (b *Builder) Finish() status.Status {
	if b.closed {
		panic("sstable: Finish called after Finish/Abandon")
	}
	b.closed = true
	if !b.err.Ok() {
		return b.err
	}
	if st := b.flush(); !st.Ok() {
		return st
	}
	b.flushPendingIndexEntry(nil)

	metaindexBlock := block.NewBuilder(1, nil)

	if b.filterBuilder != nil {
		filterBytes := b.filterBuilder.Finish()
		filterHandle, st := b.writeRawBlock(filterBytes)
		if !st.Ok() {
			return st
		}
		key := "filter." + b.opts.FilterPolicy.Name()
		metaindexBlock.Add([]byte(key), filterHandle.EncodeTo(nil))
	}

	metaindexHandle, st := b.writeBlock(metaindexBlock.Finish())
	if !st.Ok() {
		return st
	}

	indexHandle, st := b.writeBlock(b.indexBlock.Finish())
	if !st.Ok() {
		return st
	}

	footer := Footer{MetaindexHandle: metaindexHandle, IndexHandle: indexHandle}
	if _, err := b.w.Write(footer.EncodeTo()); err != nil {
		return status.Wrap(err, "sstable: write footer")
	}
	b.offset += FooterLen

	return status.OKStatus
}

// NumEntries returns the number of entries added so far.
func (b *Builder) NumEntries() int { return b.numEntries }

// FileSize returns the number of bytes written so far.
func (b *Builder) FileSize() uint64 { return b.offset }
