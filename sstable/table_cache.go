package sstable

import (
	"os"

	"github.com/Priyanshu23/flashstore/cache"
	"github.com/Priyanshu23/flashstore/internal/codec"
	"github.com/Priyanshu23/flashstore/internal/status"
)

// TableCache bounds the number of simultaneously open table files,
// evicting the least recently used unpinned reader of a cache shard
// once that shard's capacity is exceeded. A long-running engine accumulates far more table files
// on disk than it can afford to keep open at once.
type TableCache struct {
	numbering *FileNumbering
	opts      Options
	cache     *cache.Cache
}

// NewTableCache returns a TableCache bounding its open-file count by
// capacity, at one charge unit per open table. The capacity is split
// across the cache's 16 shards, rounded up per shard, so the bound
// applies per shard: a shard evicts once it holds more tables than its
// share, and the total kept open is not exactly capacity.
func NewTableCache(numbering *FileNumbering, opts Options, capacity int64) *TableCache {
	return &TableCache{numbering: numbering, opts: opts, cache: cache.New(capacity)}
}

type openTable struct {
	file   *os.File
	reader *Reader
}

func fileNumberKey(id uint64) []byte {
	return codec.PutFixed64(nil, id)
}

func deleteOpenTable(_ []byte, value any) {
	value.(*openTable).file.Close()
}

// findTable returns a cache Handle for id's reader, opening the
// underlying file if it is not already resident. The caller must
// Release the handle exactly once.
func (tc *TableCache) findTable(id uint64, fileSize int64) (*cache.Handle, status.Status) {
	key := fileNumberKey(id)
	if h := tc.cache.Lookup(key); h != nil {
		return h, status.OKStatus
	}

	f, err := os.Open(tc.numbering.Path(id))
	if err != nil {
		return nil, status.Wrap(err, "sstable: open table file")
	}
	reader, st := Open(f, fileSize, tc.opts)
	if !st.Ok() {
		f.Close()
		return nil, st
	}

	h := tc.cache.Insert(key, &openTable{file: f, reader: reader}, 1, deleteOpenTable)
	return h, status.OKStatus
}

// Get looks up key (an internal key) within table id, invoking handler
// as Reader.Get does. It behaves like Reader.Get, without requiring the caller
// to keep the table's file open itself.
func (tc *TableCache) Get(id uint64, fileSize int64, key []byte, handler func(foundKey, foundValue []byte)) status.Status {
	h, st := tc.findTable(id, fileSize)
	if !st.Ok() {
		return st
	}
	defer tc.cache.Release(h)

	reader := tc.cache.Value(h).(*openTable).reader
	return reader.Get(key, handler)
}

// NewIterator returns an iterator over table id plus a release
// function the caller must invoke exactly once when done with it; the
// iterator is only valid for use until release is called.
func (tc *TableCache) NewIterator(id uint64, fileSize int64) (*Iterator, func(), status.Status) {
	h, st := tc.findTable(id, fileSize)
	if !st.Ok() {
		return nil, func() {}, st
	}

	reader := tc.cache.Value(h).(*openTable).reader
	release := func() { tc.cache.Release(h) }
	return reader.NewIterator(), release, status.OKStatus
}

// Evict drops any cached reader/file for table id, e.g. once the table
// itself has been deleted.
func (tc *TableCache) Evict(id uint64) {
	tc.cache.Erase(fileNumberKey(id))
}
