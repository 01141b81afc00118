package ikey

import (
	"bytes"
	"testing"
)

func TestParseAppendRoundTrip(t *testing.T) {
	cases := []struct {
		key []byte
		seq uint64
		vt  ValueType
	}{
		{[]byte("foo"), 100, TypeValue},
		{[]byte(""), 0, TypeDeletion},
		{[]byte("binary\x00key"), MaxSequenceNumber, TypeValue},
	}

	for _, c := range cases {
		enc := Append(nil, c.key, c.seq, c.vt)
		parsed, ok := Parse(enc)
		if !ok {
			t.Fatalf("Parse failed for %q", c.key)
		}
		if !bytes.Equal(parsed.UserKey, c.key) || parsed.Sequence != c.seq || parsed.Type != c.vt {
			t.Fatalf("round trip mismatch: got %+v, want key=%q seq=%d type=%d", parsed, c.key, c.seq, c.vt)
		}
	}
}

func TestComparatorOrdersByUserKeyThenSequenceDescending(t *testing.T) {
	cmp := NewComparator(BytewiseComparator)

	a := Append(nil, []byte("a"), 5, TypeValue)
	b := Append(nil, []byte("b"), 1, TypeValue)
	if cmp.Compare(a, b) >= 0 {
		t.Fatalf("expected a < b by user key regardless of sequence")
	}

	newer := Append(nil, []byte("k"), 10, TypeValue)
	older := Append(nil, []byte("k"), 5, TypeValue)
	if cmp.Compare(newer, older) >= 0 {
		t.Fatalf("expected higher sequence to sort first (less) for equal user keys")
	}

	sameSeqDeletion := Append(nil, []byte("k"), 5, TypeDeletion)
	sameSeqValue := Append(nil, []byte("k"), 5, TypeValue)
	if cmp.Compare(sameSeqValue, sameSeqDeletion) >= 0 {
		t.Fatalf("expected TypeValue (tag 5<<8|1) to sort before TypeDeletion (tag 5<<8|0) at equal sequence")
	}
}

func TestFindShortestSeparatorNeverChangesKeySet(t *testing.T) {
	cmp := NewComparator(BytewiseComparator)

	start := Append(nil, []byte("abc"), 5, TypeValue)
	limit := Append(nil, []byte("abd"), 5, TypeValue)

	sep := cmp.FindShortestSeparator(append([]byte(nil), start...), limit)
	if cmp.Compare(sep, start) < 0 || cmp.Compare(sep, limit) > 0 {
		t.Fatalf("separator %q not within [start, limit]", sep)
	}
}

type substringPolicy struct{}

func (substringPolicy) Name() string { return "test.Substring" }

func (substringPolicy) CreateFilter(keys [][]byte, dst []byte) []byte {
	for _, k := range keys {
		dst = append(dst, byte(len(k)))
		dst = append(dst, k...)
	}
	return dst
}

func (substringPolicy) KeyMayMatch(key, f []byte) bool {
	for len(f) > 0 {
		n := int(f[0])
		if 1+n > len(f) {
			return true
		}
		if bytes.Equal(f[1:1+n], key) {
			return true
		}
		f = f[1+n:]
	}
	return false
}

func TestFilterPolicyMatchesAcrossSequenceNumbers(t *testing.T) {
	p := NewFilterPolicy(substringPolicy{})

	stored := [][]byte{
		Append(nil, []byte("foo"), 7, TypeValue),
		Append(nil, []byte("bar"), 9, TypeValue),
	}
	f := p.CreateFilter(stored, nil)

	// A lookup key for the same user key but a different tag must
	// still match, since only the user-key prefix is filtered.
	seek := Append(nil, []byte("foo"), MaxSequenceNumber, ValueTypeForSeek)
	if !p.KeyMayMatch(seek, f) {
		t.Fatalf("expected user-key match regardless of sequence tag")
	}

	absent := Append(nil, []byte("baz"), MaxSequenceNumber, ValueTypeForSeek)
	if p.KeyMayMatch(absent, f) {
		t.Fatalf("expected absent user key to be rejected")
	}
}

func TestFindShortSuccessorAllFF(t *testing.T) {
	cmp := NewComparator(BytewiseComparator)
	key := Append(nil, []byte{0xff, 0xff}, 1, TypeValue)

	got := cmp.FindShortSuccessor(append([]byte(nil), key...))
	if !bytes.Equal(got, key) {
		t.Fatalf("expected no-op successor for all-0xff key, got %q want %q", got, key)
	}
}
