package ikey

import "github.com/Priyanshu23/flashstore/filter"

// internalFilterPolicy adapts a user-key filter policy to tables
// keyed by internal keys: filters are built and queried on the
// user-key prefix only, so a lookup key carrying a different
// sequence/type tag than the stored entry still matches.
type internalFilterPolicy struct {
	base filter.Policy
}

// NewFilterPolicy wraps a user-key policy for use with internal keys.
// The wrapped policy keeps the base policy's name, since the filter
// bytes it produces are the base policy's own format.
func NewFilterPolicy(base filter.Policy) filter.Policy {
	if base == nil {
		return nil
	}
	return internalFilterPolicy{base: base}
}

func (p internalFilterPolicy) Name() string { return p.base.Name() }

func (p internalFilterPolicy) CreateFilter(keys [][]byte, dst []byte) []byte {
	userKeys := make([][]byte, len(keys))
	for i, k := range keys {
		userKeys[i] = ExtractUserKey(k)
	}
	return p.base.CreateFilter(userKeys, dst)
}

func (p internalFilterPolicy) KeyMayMatch(key, f []byte) bool {
	return p.base.KeyMayMatch(ExtractUserKey(key), f)
}
