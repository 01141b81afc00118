package sstable

import (
	"github.com/Priyanshu23/flashstore/block"
	"github.com/Priyanshu23/flashstore/cache"
	"github.com/Priyanshu23/flashstore/filter"
)

// Comparator is the internal-key ordering a table is built and read
// under, including the separator-shortening operations the index
// block needs. *ikey.Comparator satisfies this.
type Comparator interface {
	block.Comparator
	FindShortestSeparator(start, limit []byte) []byte
	FindShortSuccessor(key []byte) []byte
}

// Options configures a Builder/Reader pair.
type Options struct {
	Comparator           Comparator
	FilterPolicy         filter.Policy
	BlockSize            int
	BlockRestartInterval int
	Compression          CompressionType
	ParanoidChecks       bool

	// BlockCache, if set, backs data-block loads in Reader.NewIterator
	// and Reader.Get. CacheID must be unique per opened table (e.g.
	// from BlockCache.NewId()) so cache keys across distinct tables
	// never collide.
	BlockCache *cache.Cache
	CacheID    uint64
}

// Option mutates an Options value during construction.
type Option func(*Options)

// WithBlockSize overrides the default 4096-byte block-size target.
func WithBlockSize(n int) Option {
	return func(o *Options) { o.BlockSize = n }
}

// WithCompression overrides the default snappy compression codec.
func WithCompression(c CompressionType) Option {
	return func(o *Options) { o.Compression = c }
}

// WithFilterPolicy attaches a filter policy; nil disables filter-block
// construction entirely.
func WithFilterPolicy(p filter.Policy) Option {
	return func(o *Options) { o.FilterPolicy = p }
}

// WithParanoidChecks enables checksum verification of data blocks on
// every read; without it data-block checksums are not checked. The
// index, metaindex and filter blocks are verified at Open either way.
func WithParanoidChecks(v bool) Option {
	return func(o *Options) { o.ParanoidChecks = v }
}

// WithBlockCache attaches a shared block cache and the cache-key
// prefix this table should use (typically cache.NewId()).
func WithBlockCache(c *cache.Cache, cacheID uint64) Option {
	return func(o *Options) { o.BlockCache = c; o.CacheID = cacheID }
}

func defaultOptions() Options {
	return Options{
		BlockSize:            4096,
		BlockRestartInterval: block.DefaultRestartInterval,
		Compression:          SnappyCompression,
	}
}

// NewOptions builds an Options from the given overrides, applied atop
// the defaults (4096-byte blocks, 16-entry restart interval, snappy
// compression).
func NewOptions(cmp Comparator, opts ...Option) Options {
	o := defaultOptions()
	o.Comparator = cmp
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
