package filter

import "github.com/bits-and-blooms/bloom/v3"

// falsePositiveRate is the target false-positive rate used when
// sizing a filter from its key count.
const falsePositiveRate = 0.01

// BloomPolicy is the canonical Policy, backed by
// github.com/bits-and-blooms/bloom/v3, building one bloom filter per
// data-block window.
type BloomPolicy struct{}

// NewBloomPolicy returns the bloom-backed Policy.
func NewBloomPolicy() *BloomPolicy { return &BloomPolicy{} }

func (*BloomPolicy) Name() string { return "flashstore.BuiltinBloomFilter" }

// CreateFilter builds one bloom filter sized for len(keys) and
// appends its serialized form to dst. An empty key set produces no
// bytes, matching the windowed builder's "skip empty windows" policy
// in filter/block.go.
func (*BloomPolicy) CreateFilter(keys [][]byte, dst []byte) []byte {
	if len(keys) == 0 {
		return dst
	}

	f := bloom.NewWithEstimates(uint(len(keys)), falsePositiveRate)
	for _, k := range keys {
		f.Add(k)
	}

	encoded, err := f.MarshalBinary()
	if err != nil {
		// Filter construction should never fail for in-memory keys;
		// if it somehow does, omit the filter so KeyMayMatch's
		// err-on-the-side-of-reading-the-block fallback applies.
		return dst
	}
	return append(dst, encoded...)
}

// KeyMayMatch reports whether key may be present in the serialized
// filter. Any framing error is treated as a possible match.
func (*BloomPolicy) KeyMayMatch(key, filter []byte) bool {
	if len(filter) == 0 {
		return true
	}
	var f bloom.BloomFilter
	if err := f.UnmarshalBinary(filter); err != nil {
		return true
	}
	return f.Test(key)
}
