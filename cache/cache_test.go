package cache

import (
	"fmt"
	"testing"
)

func TestInsertAndLookupHit(t *testing.T) {
	c := New(1000)
	h := c.Insert([]byte("k"), "v", 10, nil)
	defer c.Release(h)

	h2 := c.Lookup([]byte("k"))
	if h2 == nil {
		t.Fatalf("expected hit")
	}
	defer c.Release(h2)

	if c.Value(h2) != "v" {
		t.Fatalf("got %v, want v", c.Value(h2))
	}
}

func TestLookupMissReturnsNil(t *testing.T) {
	c := New(1000)
	if h := c.Lookup([]byte("absent")); h != nil {
		t.Fatalf("expected miss to return nil handle")
	}
}

func TestReleaseInvokesDeleterWhenLastRefDrops(t *testing.T) {
	c := New(1000)
	deleted := false
	h := c.Insert([]byte("k"), "v", 10, func(key []byte, value any) {
		deleted = true
	})
	c.Release(h) // drops client ref; cache ref (refs=1, in lru) remains

	if deleted {
		t.Fatalf("deleter should not run while the cache still holds its own ref")
	}

	c.Erase([]byte("k"))
	if !deleted {
		t.Fatalf("expected deleter to run once erased with no outstanding handles")
	}
}

func TestEvictionUnderCapacityPressure(t *testing.T) {
	c := New(50) // tiny per-shard capacity so every shard overflows
	var deletedKeys []string

	for i := 0; i < 200; i++ {
		key := []byte(fmt.Sprintf("key-%04d", i))
		h := c.Insert(key, i, 10, func(k []byte, v any) {
			deletedKeys = append(deletedKeys, string(k))
		})
		c.Release(h)
	}

	if len(deletedKeys) == 0 {
		t.Fatalf("expected capacity pressure to evict at least one entry")
	}
	if c.TotalCharge() > 16*50 {
		// Each shard's capacity is capacity/16 rounded up (4 here), less
		// than one entry's charge, and eviction runs only on Insert, so
		// each shard can still hold the last entry inserted into it. The
		// check bounds the total by 16 times the whole capacity.
		t.Fatalf("total charge %d exceeds aggregate shard capacity", c.TotalCharge())
	}
}

func TestPruneEvictsEverythingWithNoOutstandingHandles(t *testing.T) {
	c := New(10000)
	for i := 0; i < 10; i++ {
		key := []byte(fmt.Sprintf("k%d", i))
		h := c.Insert(key, i, 1, nil)
		c.Release(h)
	}

	if c.TotalCharge() == 0 {
		t.Fatalf("expected entries to be present before Prune")
	}
	c.Prune()
	if c.TotalCharge() != 0 {
		t.Fatalf("expected Prune to evict everything, got charge %d", c.TotalCharge())
	}
}

func TestPruneDoesNotEvictEntriesWithOutstandingHandles(t *testing.T) {
	c := New(10000)
	h := c.Insert([]byte("pinned"), "v", 5, nil)

	c.Prune()
	if c.TotalCharge() == 0 {
		t.Fatalf("expected the pinned entry to survive Prune")
	}
	c.Release(h)
}

func TestPinnedAndPromotedEntriesSurviveEvictionPressure(t *testing.T) {
	c := New(160) // 10 entries per shard at charge 1

	var evicted []string
	track := func(k []byte, v any) { evicted = append(evicted, string(k)) }

	pinned := c.Insert([]byte("pinned"), 300, 1, track)

	hPromoted := c.Insert([]byte("promoted"), 100, 1, track)
	c.Release(hPromoted)

	hIdle := c.Insert([]byte("idle"), 200, 1, track)
	c.Release(hIdle)

	// Flood every shard far past capacity, re-referencing "promoted"
	// after each insert so it is never the oldest unpinned entry.
	for i := 0; i < 2000; i++ {
		h := c.Insert([]byte(fmt.Sprintf("fill-%04d", i)), i, 1, nil)
		c.Release(h)
		if h := c.Lookup([]byte("promoted")); h != nil {
			c.Release(h)
		}
	}

	if h := c.Lookup([]byte("idle")); h != nil {
		c.Release(h)
		t.Fatalf("expected the never-referenced entry to be evicted under pressure")
	}
	if h := c.Lookup([]byte("promoted")); h == nil {
		t.Fatalf("expected the repeatedly-referenced entry to survive")
	} else {
		c.Release(h)
	}
	if h := c.Lookup([]byte("pinned")); h == nil {
		t.Fatalf("expected the pinned entry to survive even over capacity")
	} else {
		if c.Value(h) != 300 {
			t.Fatalf("pinned entry value changed: %v", c.Value(h))
		}
		c.Release(h)
	}
	c.Release(pinned)

	for _, k := range evicted {
		if k == "pinned" || k == "promoted" {
			t.Fatalf("deleter ran for %q, which must have survived", k)
		}
	}
}

func TestNewIdIsMonotonic(t *testing.T) {
	c := New(10)
	prev := c.NewId()
	for i := 0; i < 100; i++ {
		next := c.NewId()
		if next <= prev {
			t.Fatalf("NewId not monotonic: %d then %d", prev, next)
		}
		prev = next
	}
}

func TestReinsertingSameKeyErasesPrevious(t *testing.T) {
	c := New(10000)
	var firstDeleted bool

	h1 := c.Insert([]byte("k"), "first", 1, func([]byte, any) { firstDeleted = true })
	c.Release(h1)

	h2 := c.Insert([]byte("k"), "second", 1, nil)
	defer c.Release(h2)

	if !firstDeleted {
		t.Fatalf("expected the first entry to be erased on reinsertion")
	}
	if c.Value(h2) != "second" {
		t.Fatalf("got %v, want second", c.Value(h2))
	}
}
