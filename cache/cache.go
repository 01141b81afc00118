// Package cache implements a sharded, reference-counted LRU cache,
// used for SSTable data blocks and open table files. Entries with
// outstanding client handles are pinned on an in-use list and never
// evicted; entries holding only the cache's own reference sit on an
// LRU list, evicted oldest-first under capacity pressure.
package cache

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

const (
	numShardBits = 4
	numShards    = 1 << numShardBits
)

// Deleter is invoked when an entry's reference count drops to zero.
type Deleter func(key []byte, value any)

// Handle is an opaque reference to a cached entry returned by Insert
// or Lookup. It must be released via Cache.Release exactly once.
type Handle struct {
	e *entry
}

type entry struct {
	key     []byte
	value   any
	charge  int
	deleter Deleter

	refs    int
	inCache bool

	next, prev *entry // in-use or lru list
}

// Cache is a sharded LRU cache. The zero value is not usable; use
// New.
type Cache struct {
	shards [numShards]shard

	idMu   sync.Mutex
	nextID uint64
}

// New returns a Cache with the given total capacity, divided evenly
// across shards (the charge unit is caller-defined, e.g. block bytes).
func New(capacity int64) *Cache {
	c := &Cache{}
	perShard := (capacity + numShards - 1) / numShards
	for i := range c.shards {
		c.shards[i].init(perShard)
	}
	return c
}

func shardIndex(key []byte) uint32 {
	h := xxhash.Sum64(key)
	return uint32(h >> (64 - numShardBits))
}

func (c *Cache) shardFor(key []byte) *shard { return &c.shards[shardIndex(key)] }

// Insert adds (key, value) to the cache with the given charge against
// capacity, returning a Handle the caller owns and must Release. If
// the key was already present, the old entry is evicted.
func (c *Cache) Insert(key []byte, value any, charge int, deleter Deleter) *Handle {
	return c.shardFor(key).insert(key, value, charge, deleter)
}

// Lookup returns a Handle for key, or nil on a miss. The returned
// Handle must be Released exactly once.
func (c *Cache) Lookup(key []byte) *Handle {
	return c.shardFor(key).lookup(key)
}

// Value returns the value a Handle refers to.
func (c *Cache) Value(h *Handle) any {
	if h == nil {
		return nil
	}
	return h.e.value
}

// Release drops one reference to the entry behind h.
func (c *Cache) Release(h *Handle) {
	if h == nil {
		return
	}
	c.shardFor(h.e.key).release(h.e)
}

// Erase removes key from the cache; if handles to it are still
// outstanding, the entry is freed once the last one is released.
func (c *Cache) Erase(key []byte) {
	c.shardFor(key).erase(key)
}

// Prune evicts every entry currently eligible for eviction (i.e. with
// no outstanding client handles).
func (c *Cache) Prune() {
	for i := range c.shards {
		c.shards[i].prune()
	}
}

// TotalCharge sums the charge currently tracked across every shard.
func (c *Cache) TotalCharge() int64 {
	var total int64
	for i := range c.shards {
		total += c.shards[i].totalCharge()
	}
	return total
}

// NewId returns a monotonically increasing ID, used to compose cache
// keys unique across distinct opened tables (cache_id | block_offset).
func (c *Cache) NewId() uint64 {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	c.nextID++
	return c.nextID
}
