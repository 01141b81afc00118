package cache

import "sync"

// shard is one of the 16 independently-locked LRU partitions. Each
// maintains two circular doubly-linked lists (inUse and lru) plus a
// hash table keyed by the entry's key bytes.
type shard struct {
	mu sync.Mutex

	capacity int64
	usage    int64

	table map[string]*entry

	// inUse holds entries with refs >= 2 (the cache's own ref plus at
	// least one outstanding client handle); lru holds entries with
	// refs == 1 (only the cache's own ref), ordered oldest-to-newest
	// from inUseHead.next / lruHead.next.
	inUseHead entry
	lruHead   entry
}

func (s *shard) init(capacity int64) {
	s.capacity = capacity
	s.table = make(map[string]*entry)
	s.inUseHead.next = &s.inUseHead
	s.inUseHead.prev = &s.inUseHead
	s.lruHead.next = &s.lruHead
	s.lruHead.prev = &s.lruHead
}

func listRemove(e *entry) {
	e.next.prev = e.prev
	e.prev.next = e.next
	e.next, e.prev = nil, nil
}

// listAppend inserts e immediately before head, i.e. as the newest
// entry of the list headed by head.
func listAppend(head, e *entry) {
	e.next = head
	e.prev = head.prev
	e.prev.next = e
	e.next.prev = e
}

func (s *shard) insert(key []byte, value any, charge int, deleter Deleter) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := &entry{
		key:     append([]byte(nil), key...),
		value:   value,
		charge:  charge,
		deleter: deleter,
		refs:    1,
	}

	if s.capacity > 0 {
		e.refs = 2
		e.inCache = true
		listAppend(&s.inUseHead, e)
		s.usage += int64(charge)
		if old, ok := s.table[string(e.key)]; ok {
			s.finishErase(old)
		}
		s.table[string(e.key)] = e
	}

	for s.usage > s.capacity && s.lruHead.next != &s.lruHead {
		s.finishErase(s.lruHead.next)
	}

	return &Handle{e: e}
}

func (s *shard) lookup(key []byte) *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table[string(key)]
	if !ok {
		return nil
	}
	s.ref(e)
	return &Handle{e: e}
}

func (s *shard) ref(e *entry) {
	if e.refs == 1 && e.inCache {
		// Moving from lru_ to in_use_.
		listRemove(e)
		listAppend(&s.inUseHead, e)
	}
	e.refs++
}

// release drops one reference; the deleter, when it fires, runs
// synchronously under the shard lock.
func (s *shard) release(e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
		return
	}
	if e.refs == 1 && e.inCache {
		listRemove(e)
		listAppend(&s.lruHead, e)
	}
}

// finishErase removes e from whichever list it is on, clears inCache,
// subtracts its charge, and drops the cache's own reference. Must be
// called with s.mu held.
func (s *shard) finishErase(e *entry) {
	if e.inCache {
		delete(s.table, string(e.key))
		listRemove(e)
		e.inCache = false
		s.usage -= int64(e.charge)
	}
	e.refs--
	if e.refs == 0 {
		if e.deleter != nil {
			e.deleter(e.key, e.value)
		}
	}
}

func (s *shard) erase(key []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.table[string(key)]; ok {
		s.finishErase(e)
	}
}

func (s *shard) prune() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.lruHead.next != &s.lruHead {
		s.finishErase(s.lruHead.next)
	}
}

func (s *shard) totalCharge() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}
