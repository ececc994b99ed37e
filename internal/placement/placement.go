// Package placement implements the consistent-hash placement of a trigger
// onto a bucket table entry.
//
// The algorithm is a direct port of Guava's Hashing.consistentHash, which
// is itself an implementation of Jump Consistent Hash (Lamping & Veach):
// resizing the bucket count from n to n+1 moves only the keys that land on
// the new bucket, leaving every other key's bucket unchanged.
package placement

import (
	"errors"

	"github.com/zeebo/xxh3"

	"github.com/xeviknal/hawkular-alerts/types"
)

// ErrInvalidArgument is returned when buckets is empty or the key is empty.
var ErrInvalidArgument = errors.New("placement: invalid argument")

// Fingerprint derives the stable 32-bit fingerprint used as the
// consistent-hash input for a trigger key. The NUL separator prevents the
// join collision a bare concatenation would allow, e.g. ("ab","c") vs.
// ("a","bc").
func Fingerprint(key types.TriggerKey) uint32 {
	return stableHash32(key.TenantID + "\x00" + key.TriggerID)
}

// stableHash32 truncates a 64-bit xxh3 digest to 32 bits. Used both for
// Fingerprint's input and for deriving a NodeId from a member's canonical
// address (see internal/membership).
func stableHash32(s string) uint32 {
	return uint32(xxh3.HashString(s))
}

// StableHash32 derives a deterministic 32-bit hash of s, stable across
// process restarts. Used both for Fingerprint's input and for deriving a
// NodeId from a member's canonical address (see internal/membership).
func StableHash32(s string) uint32 {
	return stableHash32(s)
}

// PlaceOf returns the NodeId that owns key under the given bucket table.
func PlaceOf(key types.TriggerKey, buckets types.BucketTable) (types.NodeId, error) {
	if len(buckets) == 0 || key.Empty() {
		return 0, ErrInvalidArgument
	}

	h := stableHash32(key.TenantID + "\x00" + key.TriggerID)
	b := consistentBucket(uint64(h), len(buckets))

	return buckets[b], nil
}

// consistentBucket implements Jump Consistent Hash: it maps key (a 64-bit
// hash) onto a bucket in [0, numBuckets) such that growing numBuckets by
// one moves only a 1/numBuckets fraction of keys.
func consistentBucket(key uint64, numBuckets int) int {
	var b, j int64 = -1, 0

	for j < int64(numBuckets) {
		b = j
		key = key*2862933555777941757 + 1
		j = int64(float64(b+1) * (float64(int64(1)<<31) / float64((key>>33)+1)))
	}

	return int(b)
}
