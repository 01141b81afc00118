package sstable

import (
	"io"

	"github.com/Priyanshu23/flashstore/block"
	"github.com/Priyanshu23/flashstore/filter"
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// RandomAccessFile is the minimal random-access read surface a table
// reader needs, satisfied directly by *os.File.
type RandomAccessFile interface {
	io.ReaderAt
}

// Reader holds a table's index (and, if present, filter) blocks
// resident in memory and serves reads against an open random-access
// file. It is immutable after Open and safe for concurrent reads.
type Reader struct {
	f    RandomAccessFile
	opts Options

	indexReader  *block.Reader
	filterReader *filter.BlockReader

	metaindexHandle BlockHandle
}

// Open reads the footer, index block, and (if present) filter block
// of the table file behind f, whose total size is fileSize.
func Open(f RandomAccessFile, fileSize int64, opts Options) (*Reader, status.Status) {
	if fileSize < FooterLen {
		return nil, status.Corruptionf("sstable: file too short for footer")
	}

	footerBuf := make([]byte, FooterLen)
	if _, err := f.ReadAt(footerBuf, fileSize-FooterLen); err != nil {
		return nil, status.Wrap(err, "sstable: read footer")
	}
	footer, st := DecodeFooter(footerBuf)
	if !st.Ok() {
		return nil, st
	}

	indexData, st := readBlock(f, footer.IndexHandle, true)
	if !st.Ok() {
		return nil, st
	}
	indexReader, st := block.NewReader(indexData)
	if !st.Ok() {
		return nil, st
	}

	r := &Reader{
		f:               f,
		opts:            opts,
		indexReader:     indexReader,
		metaindexHandle: footer.MetaindexHandle,
	}

	if opts.FilterPolicy != nil {
		if st := r.loadFilter(); !st.Ok() {
			return nil, st
		}
	}

	return r, status.OKStatus
}

func (r *Reader) loadFilter() status.Status {
	metaData, st := readBlock(r.f, r.metaindexHandle, true)
	if !st.Ok() {
		return st
	}
	metaReader, st := block.NewReader(metaData)
	if !st.Ok() {
		return st
	}

	it := metaReader.NewIterator(comparatorAdapter{})
	target := "filter." + r.opts.FilterPolicy.Name()
	it.Seek([]byte(target))
	if it.Valid() && string(it.Key()) == target {
		handle, _, ok := DecodeBlockHandle(it.Value())
		if !ok {
			return status.Corruptionf("sstable: bad filter handle in metaindex")
		}
		filterData, st := readBlock(r.f, handle, true)
		if !st.Ok() {
			return st
		}
		r.filterReader = filter.NewBlockReader(r.opts.FilterPolicy, filterData)
	}
	return status.OKStatus
}

// comparatorAdapter orders metaindex keys (plain ASCII strings like
// "filter.<name>") bytewise; the metaindex block never holds internal
// keys so the table's own Comparator does not apply here.
type comparatorAdapter struct{}

func (comparatorAdapter) Compare(a, b []byte) int { return codec.Compare(a, b) }

// readBlock loads, verifies (per paranoid or forceVerify), and
// decompresses the block at handle.
func readBlock(f RandomAccessFile, handle BlockHandle, forceVerify bool) ([]byte, status.Status) {
	raw := make([]byte, handle.Size+blockTrailerLen)
	if _, err := f.ReadAt(raw, int64(handle.Offset)); err != nil {
		return nil, status.Wrap(err, "sstable: read block")
	}

	payload := raw[:handle.Size]
	compressionType := CompressionType(raw[handle.Size])
	storedCRC := codec.DecodeFixed32(raw[handle.Size+1:])

	if forceVerify {
		gotCRC := codec.Mask(codec.Extend(codec.Value(payload), raw[handle.Size:handle.Size+1]))
		if gotCRC != storedCRC {
			return nil, status.Corruptionf("sstable: block checksum mismatch")
		}
	}

	decoded, err := decompressBlock(payload, compressionType)
	if err != nil {
		return nil, status.Wrap(err, "sstable: decompress block")
	}
	return decoded, status.OKStatus
}

type dataBlockCacheKey struct {
	cacheID uint64
	offset  uint64
}

func (k dataBlockCacheKey) bytes() []byte {
	buf := make([]byte, 0, 16)
	buf = codec.PutFixed64(buf, k.cacheID)
	buf = codec.PutFixed64(buf, k.offset)
	return buf
}

// loadDataBlock returns a block.Reader for handle, consulting the
// configured block cache first when present.
func (r *Reader) loadDataBlock(handle BlockHandle) (*block.Reader, func(), status.Status) {
	if r.opts.BlockCache == nil {
		data, st := readBlock(r.f, handle, r.opts.ParanoidChecks)
		if !st.Ok() {
			return nil, func() {}, st
		}
		br, st := block.NewReader(data)
		return br, func() {}, st
	}

	key := dataBlockCacheKey{cacheID: r.opts.CacheID, offset: handle.Offset}.bytes()
	if h := r.opts.BlockCache.Lookup(key); h != nil {
		br := r.opts.BlockCache.Value(h).(*block.Reader)
		release := func() { r.opts.BlockCache.Release(h) }
		return br, release, status.OKStatus
	}

	data, st := readBlock(r.f, handle, r.opts.ParanoidChecks)
	if !st.Ok() {
		return nil, func() {}, st
	}
	br, st := block.NewReader(data)
	if !st.Ok() {
		return nil, func() {}, st
	}

	h := r.opts.BlockCache.Insert(key, br, len(data), nil)
	release := func() { r.opts.BlockCache.Release(h) }
	return br, release, status.OKStatus
}

// Iterator walks a table's entries in internal-key order.
type Iterator struct {
	r   *Reader
	idx *block.Iterator

	data        *block.Iterator
	dataRelease func()
	dataHandle  BlockHandle
	haveHandle  bool

	err status.Status
}

// NewIterator returns a two-level iterator over the table: the outer
// iterator walks index-block entries and the inner one walks the
// referenced data block.
func (r *Reader) NewIterator() *Iterator {
	return &Iterator{
		r:   r,
		idx: r.indexReader.NewIterator(r.opts.Comparator),
	}
}

func (it *Iterator) setDataBlock(handle BlockHandle) bool {
	if it.haveHandle && handle == it.dataHandle {
		return true
	}
	if it.dataRelease != nil {
		it.dataRelease()
	}
	data, release, st := it.r.loadDataBlock(handle)
	if !st.Ok() {
		it.err = st
		it.data = nil
		it.dataRelease = nil
		it.haveHandle = false
		return false
	}
	it.data = data.NewIterator(it.r.opts.Comparator)
	it.dataRelease = release
	it.dataHandle = handle
	it.haveHandle = true
	return true
}

func decodeIndexValue(v []byte) (BlockHandle, bool) {
	h, _, ok := DecodeBlockHandle(v)
	return h, ok
}

// SeekToFirst positions the iterator at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.idx.SeekToFirst()
	it.skipEmptyForward()
}

// SeekToLast positions the iterator at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.idx.SeekToLast()
	it.skipEmptyBackward()
}

// Seek positions the iterator at the first entry whose key is >=
// target.
func (it *Iterator) Seek(target []byte) {
	it.idx.Seek(target)
	if !it.idx.Valid() {
		it.invalidate()
		return
	}
	handle, ok := decodeIndexValue(it.idx.Value())
	if !ok {
		it.err = status.Corruptionf("sstable: bad index value")
		return
	}
	if !it.setDataBlock(handle) {
		return
	}
	it.data.Seek(target)
	if it.data.Valid() {
		return
	}
	it.idx.Next()
	it.skipEmptyForward()
}

// skipEmptyForward advances through index entries, seeking each
// opened data block to its first entry, until a non-empty data block
// is found or the table is exhausted.
func (it *Iterator) skipEmptyForward() {
	for it.idx.Valid() {
		handle, ok := decodeIndexValue(it.idx.Value())
		if !ok {
			it.err = status.Corruptionf("sstable: bad index value")
			return
		}
		if !it.setDataBlock(handle) {
			return
		}
		it.data.SeekToFirst()
		if it.data.Valid() {
			return
		}
		it.idx.Next()
	}
	it.invalidate()
}

// skipEmptyBackward is skipEmptyForward's mirror: it walks index
// entries backward, seeking each opened data block to its last entry.
func (it *Iterator) skipEmptyBackward() {
	for it.idx.Valid() {
		handle, ok := decodeIndexValue(it.idx.Value())
		if !ok {
			it.err = status.Corruptionf("sstable: bad index value")
			return
		}
		if !it.setDataBlock(handle) {
			return
		}
		it.data.SeekToLast()
		if it.data.Valid() {
			return
		}
		it.idx.Prev()
	}
	it.invalidate()
}

// Next advances to the following entry, crossing into the next data
// block if the current one is exhausted.
func (it *Iterator) Next() {
	if !it.Valid() {
		return
	}
	it.data.Next()
	if !it.data.Valid() {
		it.idx.Next()
		it.skipEmptyForward()
	}
}

// Prev moves to the preceding entry, crossing into the previous data
// block if the current one is exhausted.
func (it *Iterator) Prev() {
	if !it.Valid() {
		return
	}
	it.data.Prev()
	if !it.data.Valid() {
		it.idx.Prev()
		it.skipEmptyBackward()
	}
}

// Valid reports whether the iterator is positioned on an entry.
func (it *Iterator) Valid() bool {
	return it.err.Ok() && it.data != nil && it.data.Valid()
}

// Key returns the current entry's internal key.
func (it *Iterator) Key() []byte { return it.data.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.data.Value() }

// Err returns the first error encountered, if any.
func (it *Iterator) Err() status.Status { return it.err }

// Close releases any cache handle the iterator is holding.
func (it *Iterator) Close() {
	if it.dataRelease != nil {
		it.dataRelease()
		it.dataRelease = nil
	}
}

func (it *Iterator) invalidate() {
	if it.dataRelease != nil {
		it.dataRelease()
		it.dataRelease = nil
	}
	it.data = nil
	it.haveHandle = false
}

// Get looks up key (an internal key), invoking handler with the first
// entry at or after key in the data block the index points to; that
// entry's user key may differ from key's, so the handler must check
// it. A filter, when configured, may short-circuit the lookup without
// opening the data block at all.
func (r *Reader) Get(key []byte, handler func(foundKey, foundValue []byte)) status.Status {
	idx := r.indexReader.NewIterator(r.opts.Comparator)
	idx.Seek(key)
	if !idx.Valid() {
		return status.OKStatus
	}

	handle, ok := decodeIndexValue(idx.Value())
	if !ok {
		return status.Corruptionf("sstable: bad index value")
	}

	if r.filterReader != nil && !r.filterReader.KeyMayMatch(handle.Offset, key) {
		return status.OKStatus
	}

	data, release, st := r.loadDataBlock(handle)
	if !st.Ok() {
		return st
	}
	defer release()

	dit := data.NewIterator(r.opts.Comparator)
	dit.Seek(key)
	if dit.Valid() {
		handler(dit.Key(), dit.Value())
	}
	return dit.Err()
}

// ApproximateOffsetOf returns an approximate byte offset within the
// table file for key, for progress/compaction-planning purposes.
func (r *Reader) ApproximateOffsetOf(key []byte) uint64 {
	idx := r.indexReader.NewIterator(r.opts.Comparator)
	idx.Seek(key)
	if idx.Valid() {
		if handle, ok := decodeIndexValue(idx.Value()); ok {
			return handle.Offset
		}
	}
	return r.metaindexHandle.Offset
}
