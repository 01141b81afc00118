package memtable

import (
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"github.com/Priyanshu23/flashstore/internal/arena"
)

// byteCmp orders raw byte-string keys directly, bypassing the
// memtable-entry framing, so these tests exercise the skiplist itself.
type byteCmp struct{}

func (byteCmp) Compare(a, b []byte) int {
	switch {
	case string(a) < string(b):
		return -1
	case string(a) > string(b):
		return 1
	default:
		return 0
	}
}

func newTestSkiplist() *skiplist {
	return newSkiplist(byteCmp{}, arena.New())
}

func TestSkiplistEmptyContains(t *testing.T) {
	s := newTestSkiplist()
	if s.Contains([]byte("x")) {
		t.Fatalf("expected empty skiplist to not contain anything")
	}
}

func TestSkiplistInsertAndContains(t *testing.T) {
	s := newTestSkiplist()
	keys := []string{"delta", "alpha", "charlie", "bravo"}

	for _, k := range keys {
		s.Insert([]byte(k))
	}

	for _, k := range keys {
		if !s.Contains([]byte(k)) {
			t.Fatalf("expected Contains(%q) to be true", k)
		}
	}
	if s.Contains([]byte("echo")) {
		t.Fatalf("expected Contains(echo) to be false")
	}
}

func TestSkiplistForwardTraversalIsSorted(t *testing.T) {
	s := newTestSkiplist()
	rng := rand.New(rand.NewSource(42))

	inserted := map[string]bool{}
	for len(inserted) < 500 {
		k := fmt.Sprintf("key-%06d", rng.Intn(2000))
		if inserted[k] {
			continue
		}
		inserted[k] = true
		s.Insert([]byte(k))
	}

	it := newIterator(s)
	it.SeekToFirst()

	var prev string
	count := 0
	for it.Valid() {
		k := string(it.Key())
		if count > 0 && k <= prev {
			t.Fatalf("forward traversal not strictly increasing: %q then %q", prev, k)
		}
		prev = k
		count++
		it.Next()
	}

	if count != len(inserted) {
		t.Fatalf("forward traversal visited %d entries, want %d", count, len(inserted))
	}
}

func TestSkiplistBackwardTraversalIsReverseOfForward(t *testing.T) {
	s := newTestSkiplist()
	keys := []string{"a", "b", "c", "d", "e"}
	for _, k := range keys {
		s.Insert([]byte(k))
	}

	it := newIterator(s)
	it.SeekToLast()

	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Prev()
	}

	want := []string{"e", "d", "c", "b", "a"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestSkiplistSeekPositionsToLeastGreaterOrEqual(t *testing.T) {
	s := newTestSkiplist()
	for _, k := range []string{"b", "d", "f", "h"} {
		s.Insert([]byte(k))
	}

	it := newIterator(s)
	it.Seek([]byte("e"))
	if !it.Valid() || string(it.Key()) != "f" {
		t.Fatalf("Seek(e) landed on %q, want f", it.Key())
	}

	it.Seek([]byte("d"))
	if !it.Valid() || string(it.Key()) != "d" {
		t.Fatalf("Seek(d) landed on %q, want d (exact match)", it.Key())
	}

	it.Seek([]byte("z"))
	if it.Valid() {
		t.Fatalf("Seek(z) should be past the end, got %q", it.Key())
	}
}

func TestSkiplistConcurrentReadersDuringInsert(t *testing.T) {
	s := newTestSkiplist()

	const total = 2000
	done := make(chan struct{})

	var wg sync.WaitGroup
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				// A traversal snapshot must always be sorted, whatever
				// prefix of the inserts it observes.
				it := newIterator(s)
				it.SeekToFirst()
				var prev []byte
				for it.Valid() {
					k := it.Key()
					if prev != nil && string(k) <= string(prev) {
						t.Errorf("reader observed out-of-order keys: %q then %q", prev, k)
						return
					}
					prev = k
					it.Next()
				}
			}
		}()
	}

	for i := 0; i < total; i++ {
		s.Insert([]byte(fmt.Sprintf("key-%08d", i*7919%total)))
	}
	close(done)
	wg.Wait()

	count := 0
	it := newIterator(s)
	for it.SeekToFirst(); it.Valid(); it.Next() {
		count++
	}
	if count != total {
		t.Fatalf("expected %d entries after concurrent phase, got %d", total, count)
	}
}

func TestSkiplistDuplicateInsertPanics(t *testing.T) {
	s := newTestSkiplist()
	s.Insert([]byte("k"))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate insert")
		}
	}()
	s.Insert([]byte("k"))
}
