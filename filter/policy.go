// Package filter implements the SSTable filter block: a pluggable
// per-key membership filter windowed by data-block offset, letting
// point lookups skip data blocks that cannot contain the key.
package filter

// Policy is a pluggable filter algorithm.
type Policy interface {
	// Name identifies the policy; it is persisted in the metaindex
	// block as "filter.<Name()>" so readers can detect a mismatched
	// policy between writer and reader builds.
	Name() string

	// CreateFilter appends a filter over keys to dst and returns the
	// extended slice.
	CreateFilter(keys [][]byte, dst []byte) []byte

	// KeyMayMatch reports whether key may be a member of filter. False
	// negatives are not allowed; false positives are expected.
	KeyMayMatch(key, filter []byte) bool
}
