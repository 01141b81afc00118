package codec

import "testing"

func TestVarintRoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 300, 1 << 20, 1<<56 - 1, 1<<64 - 1}

	for _, v := range values {
		buf := PutVarint64(nil, v)
		if len(buf) != VarintLength64(v) {
			t.Fatalf("VarintLength64(%d) = %d, encoded len = %d", v, VarintLength64(v), len(buf))
		}

		got, rest, ok := GetVarint64(buf)
		if !ok {
			t.Fatalf("GetVarint64(%d): decode failed", v)
		}
		if got != v {
			t.Fatalf("GetVarint64: got %d, want %d", got, v)
		}
		if len(rest) != 0 {
			t.Fatalf("GetVarint64: leftover bytes %v", rest)
		}
	}
}

func TestVarint32RoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 1<<32 - 1}
	for _, v := range values {
		buf := PutVarint32(nil, v)
		got, _, ok := GetVarint32(buf)
		if !ok || got != v {
			t.Fatalf("varint32 round trip failed for %d: got %d ok=%v", v, got, ok)
		}
	}
}

func TestGetVarintTruncated(t *testing.T) {
	buf := []byte{0x80, 0x80, 0x80}
	if _, _, ok := GetVarint64(buf); ok {
		t.Fatalf("expected decode failure on truncated varint")
	}
}

func TestFixedRoundTrip(t *testing.T) {
	buf := PutFixed32(nil, 0xdeadbeef)
	if DecodeFixed32(buf) != 0xdeadbeef {
		t.Fatalf("fixed32 round trip failed")
	}

	buf = PutFixed64(nil, 0x0102030405060708)
	if DecodeFixed64(buf) != 0x0102030405060708 {
		t.Fatalf("fixed64 round trip failed")
	}
}

func TestCRCMaskUnmask(t *testing.T) {
	c := Value([]byte("hello world"))
	if Unmask(Mask(c)) != c {
		t.Fatalf("mask/unmask round trip failed")
	}
}

func TestCRCExtend(t *testing.T) {
	a := []byte("hello ")
	b := []byte("world")

	whole := Value(append(append([]byte(nil), a...), b...))
	incremental := Extend(Value(a), b)

	if whole != incremental {
		t.Fatalf("Extend(Value(a), b) = %d, want Value(a..b) = %d", incremental, whole)
	}
}

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b []byte
		want int
	}{
		{[]byte("a"), []byte("b"), -1},
		{[]byte("b"), []byte("a"), 1},
		{[]byte("abc"), []byte("abc"), 0},
		{[]byte("ab"), []byte("abc"), -1},
		{[]byte(""), []byte(""), 0},
	}

	for _, c := range cases {
		if got := Compare(c.a, c.b); sign(got) != sign(c.want) {
			t.Fatalf("Compare(%q, %q) = %d, want sign %d", c.a, c.b, got, c.want)
		}
	}
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}
