// Package dedup implements spec §4.F/§4.G's rmdup stage: exact
// fingerprint deduplication via a hash set, and approximate
// deduplication via a scalable Bloom filter when the expected cardinality
// is too large to keep every fingerprint in memory. The fingerprinting
// scheme (a fast non-cryptographic hash over the dedup key, rather than
// storing full keys) follows the sizing/estimation style of the
// teacher's markduplicates package (a PCR/optical duplicate detector
// keyed on read coordinates, since adapted out of this module per
// spec's non-alignment-specific dedup requirement) generalized to
// sequence/id/both keys instead of alignment positions.
package dedup

import (
	"strings"

	"blainsmith.com/go/seahash"
)

// Key selects which parts of a record are combined into the dedup
// fingerprint (spec §4.F rmdup `by`).
type Key int

const (
	KeySequence Key = iota
	KeyID
	KeyBoth
)

// FingerprintKey builds the byte key dedup fingerprints, combining id
// and/or sequence according to by (spec §4.F: `by∈{sequence,id,both}`).
func FingerprintKey(by Key, id, sequence string, caseSensitive bool) []byte {
	if !caseSensitive {
		id = strings.ToLower(id)
		sequence = strings.ToLower(sequence)
	}
	switch by {
	case KeyID:
		return []byte(id)
	case KeyBoth:
		return []byte(id + "\x00" + sequence)
	default:
		return []byte(sequence)
	}
}

// Exact is a hash-set-based exact deduplicator, O(N) memory in the
// number of distinct fingerprints (spec §4.G "hash set of fingerprints").
// It uses seahash, a fast non-cryptographic string hash, to convert each
// key into a fixed-size fingerprint rather than retaining key bytes.
type Exact struct {
	seen map[uint64]struct{}
}

// NewExact constructs an empty Exact deduplicator.
func NewExact() *Exact {
	return &Exact{seen: make(map[uint64]struct{})}
}

// SeenBefore reports whether key has been observed by a prior call, and
// records it as seen regardless of the answer.
func (e *Exact) SeenBefore(key []byte) bool {
	h := seahash.Sum64(key)
	if _, ok := e.seen[h]; ok {
		return true
	}
	e.seen[h] = struct{}{}
	return false
}

// Len returns the number of distinct fingerprints recorded so far.
func (e *Exact) Len() int { return len(e.seen) }
