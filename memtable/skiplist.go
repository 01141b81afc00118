// Package memtable provides the engine's in-memory staging area: an
// arena-allocated, lock-free-read skiplist keyed by internal keys.
package memtable

import (
	"math/rand"
	"sync/atomic"

	"github.com/Priyanshu23/flashstore/internal/arena"
)

const (
	maxHeight = 12
	branching = 4 // p = 1/branching per level, i.e. p = 1/4
)

// node is a skiplist node whose key bytes live in the arena. Nodes
// are immutable except for next[i], which is published via
// atomic.Pointer so a writer's release-store is visible to readers'
// acquire-loads without a lock. next is sized to the node's own
// rolled height (1..maxHeight), not a fixed maxHeight array; most
// nodes roll a small height.
type node struct {
	key  []byte // memtable-key encoding; see Table.Add
	next []atomic.Pointer[node]
}

func (n *node) loadNext(level int) *node {
	return n.next[level].Load()
}

func (n *node) storeNext(level int, v *node) {
	n.next[level].Store(v)
}

// comparator orders two memtable-key encoded byte strings.
type comparator interface {
	Compare(a, b []byte) int
}

// skiplist is a concurrent ordered set of byte-string keys. The
// concurrency contract is: at most one writer calling Insert at a
// time (enforced by the owning memtable's single-writer discipline),
// with any number of concurrent readers iterating or calling
// Contains/Seek.
type skiplist struct {
	cmp    comparator
	arena  *arena.Arena
	head   *node
	height atomic.Int32 // current max node height in use, 1-based
}

func newSkiplist(cmp comparator, a *arena.Arena) *skiplist {
	head := newNode(a, nil, maxHeight)
	s := &skiplist{cmp: cmp, arena: a, head: head}
	s.height.Store(1)
	return s
}

func newNode(a *arena.Arena, key []byte, height int) *node {
	// The node struct and its next-pointer slice are ordinary heap
	// values; only the variable-length key payload is carved out of
	// the arena. Keys are read on every comparison along the hot
	// Seek/Insert path, so they are carved with AllocateAligned.
	n := &node{next: make([]atomic.Pointer[node], height)}
	if len(key) > 0 {
		buf := a.AllocateAligned(len(key))
		copy(buf, key)
		n.key = buf
	}
	return n
}

func randomHeight() int {
	h := 1
	for h < maxHeight && rand.Int31n(branching) == 0 {
		h++
	}
	return h
}

func (s *skiplist) getHeight() int {
	return int(s.height.Load())
}

// findGreaterOrEqual walks from the top level of head, descending a
// level whenever the next node compares >= key, collecting (if prev is
// non-nil) the per-level predecessor nodes so Insert can splice in a
// new node in one pass.
func (s *skiplist) findGreaterOrEqual(key []byte, prev []*node) *node {
	x := s.head
	level := s.getHeight() - 1

	for {
		next := x.loadNext(level)
		if next != nil && s.cmp.Compare(next.key, key) < 0 {
			x = next
			continue
		}
		if prev != nil {
			prev[level] = x
		}
		if level == 0 {
			return next
		}
		level--
	}
}

func (s *skiplist) findLessThan(key []byte) *node {
	x := s.head
	level := s.getHeight() - 1

	for {
		next := x.loadNext(level)
		if next != nil && s.cmp.Compare(next.key, key) < 0 {
			x = next
			continue
		}
		if level == 0 {
			return x
		}
		level--
	}
}

func (s *skiplist) findLast() *node {
	x := s.head
	level := s.getHeight() - 1

	for {
		next := x.loadNext(level)
		if next == nil {
			if level == 0 {
				if x == s.head {
					return nil
				}
				return x
			}
			level--
			continue
		}
		x = next
	}
}

// Insert adds key to the skiplist. The caller must ensure key does
// not already exist; a duplicate is a contract violation and panics.
func (s *skiplist) Insert(key []byte) {
	var prev [maxHeight]*node
	x := s.findGreaterOrEqual(key, prev[:])
	if x != nil && s.cmp.Compare(x.key, key) == 0 {
		panic("memtable: duplicate key inserted into skiplist")
	}

	height := randomHeight()
	if height > s.getHeight() {
		for i := s.getHeight(); i < height; i++ {
			prev[i] = s.head
		}
		// Relaxed is sufficient: readers that observe the new height
		// before the corresponding head pointer is set will simply
		// treat that level as still-nil, which is safe (not yet
		// reachable from any in-progress traversal).
		s.height.Store(int32(height))
	}

	n := newNode(s.arena, key, height)
	for i := 0; i < height; i++ {
		n.storeNext(i, prev[i].loadNext(i))
		prev[i].storeNext(i, n)
	}
}

// Contains reports whether key was inserted.
func (s *skiplist) Contains(key []byte) bool {
	x := s.findGreaterOrEqual(key, nil)
	return x != nil && s.cmp.Compare(x.key, key) == 0
}

// iterator is a bidirectional cursor over a skiplist.
type iterator struct {
	list *skiplist
	node *node
}

func newIterator(s *skiplist) *iterator {
	return &iterator{list: s}
}

func (it *iterator) Valid() bool { return it.node != nil }

func (it *iterator) Key() []byte { return it.node.key }

func (it *iterator) Next() { it.node = it.node.loadNext(0) }

func (it *iterator) Prev() {
	it.node = it.list.findLessThan(it.node.key)
	if it.node == it.list.head {
		it.node = nil
	}
}

func (it *iterator) Seek(target []byte) {
	it.node = it.list.findGreaterOrEqual(target, nil)
}

func (it *iterator) SeekToFirst() {
	it.node = it.list.head.loadNext(0)
}

func (it *iterator) SeekToLast() {
	it.node = it.list.findLast()
}
