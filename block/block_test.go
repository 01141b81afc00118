package block

import (
	"bytes"
	"fmt"
	"testing"
)

type byteCmp struct{}

func (byteCmp) Compare(a, b []byte) int { return bytes.Compare(a, b) }

func buildBlock(t *testing.T, restartInterval int, keys []string) []byte {
	t.Helper()
	b := NewBuilder(restartInterval, byteCmp{})
	for _, k := range keys {
		b.Add([]byte(k), []byte("v-"+k))
	}
	return b.Finish()
}

func TestBuilderFinishRoundTrip(t *testing.T) {
	keys := []string{"alpha", "bravo", "charlie", "delta", "echo", "foxtrot"}
	data := buildBlock(t, 2, keys)

	r, st := NewReader(data)
	if !st.Ok() {
		t.Fatalf("NewReader: %v", st)
	}

	it := r.NewIterator(byteCmp{})
	it.SeekToFirst()

	var got []string
	for it.Valid() {
		if string(it.Value()) != "v-"+string(it.Key()) {
			t.Fatalf("value mismatch for key %q: got %q", it.Key(), it.Value())
		}
		got = append(got, string(it.Key()))
		it.Next()
	}
	if !it.Err().Ok() {
		t.Fatalf("iterator ended with error: %v", it.Err())
	}

	if len(got) != len(keys) {
		t.Fatalf("got %d keys, want %d", len(got), len(keys))
	}
	for i := range keys {
		if got[i] != keys[i] {
			t.Fatalf("position %d: got %q want %q", i, got[i], keys[i])
		}
	}
}

func TestIteratorBackwardMatchesForwardReversed(t *testing.T) {
	var keys []string
	for i := 0; i < 40; i++ {
		keys = append(keys, fmt.Sprintf("key-%03d", i))
	}
	data := buildBlock(t, 4, keys)
	r, st := NewReader(data)
	if !st.Ok() {
		t.Fatal(st)
	}

	it := r.NewIterator(byteCmp{})
	it.SeekToLast()

	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Prev()
	}

	if len(got) != len(keys) {
		t.Fatalf("got %d keys walking backward, want %d", len(got), len(keys))
	}
	for i, k := range got {
		want := keys[len(keys)-1-i]
		if k != want {
			t.Fatalf("backward position %d: got %q want %q", i, k, want)
		}
	}
}

func TestSeekFindsFirstGreaterOrEqual(t *testing.T) {
	keys := []string{"b", "d", "f", "h", "j", "l", "n"}
	data := buildBlock(t, 2, keys)
	r, st := NewReader(data)
	if !st.Ok() {
		t.Fatal(st)
	}

	it := r.NewIterator(byteCmp{})

	it.Seek([]byte("e"))
	if !it.Valid() || string(it.Key()) != "f" {
		t.Fatalf("Seek(e) landed on %q, want f", it.Key())
	}

	it.Seek([]byte("d"))
	if !it.Valid() || string(it.Key()) != "d" {
		t.Fatalf("Seek(d) landed on %q, want exact match d", it.Key())
	}

	it.Seek([]byte("z"))
	if it.Valid() {
		t.Fatalf("Seek(z) should be past the end, got %q", it.Key())
	}
}

// reverseCmp orders keys descending, exercising a non-bytewise
// comparator the way internal-key blocks do for equal user keys.
type reverseCmp struct{}

func (reverseCmp) Compare(a, b []byte) int { return -bytes.Compare(a, b) }

func TestBuilderHonorsCustomComparatorOrder(t *testing.T) {
	b := NewBuilder(2, reverseCmp{})
	keys := []string{"c", "b", "a"} // ascending under reverseCmp
	for _, k := range keys {
		b.Add([]byte(k), []byte("v"))
	}

	r, st := NewReader(b.Finish())
	if !st.Ok() {
		t.Fatal(st)
	}
	it := r.NewIterator(reverseCmp{})

	it.Seek([]byte("b"))
	if !it.Valid() || string(it.Key()) != "b" {
		t.Fatalf("Seek(b) under reverse order landed on %q", it.Key())
	}

	it.SeekToFirst()
	var got []string
	for it.Valid() {
		got = append(got, string(it.Key()))
		it.Next()
	}
	for i, k := range keys {
		if got[i] != k {
			t.Fatalf("position %d: got %q want %q", i, got[i], k)
		}
	}
}

func TestCurrentSizeEstimateMatchesFinishedLength(t *testing.T) {
	b := NewBuilder(4, nil)
	for _, k := range []string{"a", "ab", "abc", "abcd"} {
		b.Add([]byte(k), []byte("value"))
	}
	estimate := b.CurrentSizeEstimate()
	data := b.Finish()
	if estimate != len(data) {
		t.Fatalf("CurrentSizeEstimate()=%d, Finish() produced %d bytes", estimate, len(data))
	}
}

func TestAddOutOfOrderPanics(t *testing.T) {
	b := NewBuilder(16, byteCmp{})
	b.Add([]byte("b"), []byte("1"))

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on out-of-order Add")
		}
	}()
	b.Add([]byte("a"), []byte("2"))
}

func TestEmptyBlockRoundTrip(t *testing.T) {
	b := NewBuilder(16, nil)
	data := b.Finish()

	r, st := NewReader(data)
	if !st.Ok() {
		t.Fatal(st)
	}
	it := r.NewIterator(byteCmp{})
	it.SeekToFirst()
	if it.Valid() {
		t.Fatalf("expected empty block to have no valid entries")
	}
}

func TestCorruptTrailerReportsCorruption(t *testing.T) {
	_, st := NewReader([]byte{0x01, 0x02})
	if st.Ok() {
		t.Fatalf("expected corruption status for undersized block")
	}
}
