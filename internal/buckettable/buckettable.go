// Package buckettable builds the minimal-churn mapping from bucket index to
// NodeId that internal/placement consults.
//
// The original source's updateBuckets has an else branch that places
// members[newBucket] unconditionally when no old member fits, which can
// place the same member at two different indices if members[newBucket] was
// already placed at a lower index. This implementation tracks which
// members have been placed and, in that branch, picks the first member in
// canonical order that is not yet placed, guaranteeing the bijection
// invariant holds for every result.
package buckettable

import (
	"errors"

	"github.com/xeviknal/hawkular-alerts/types"
)

// ErrInvalidArgument is returned when members is empty.
var ErrInvalidArgument = errors.New("buckettable: invalid argument")

// Rebuild computes a new BucketTable for members, reusing old's placements
// for surviving members wherever possible to minimise churn.
//
// members must be a non-empty, deduplicated list in the substrate's
// canonical order.
func Rebuild(old types.BucketTable, members []types.NodeId) (types.BucketTable, error) {
	if len(members) == 0 {
		return nil, ErrInvalidArgument
	}

	n := len(members)

	if len(old) == 0 {
		table := make(types.BucketTable, n)
		copy(table, members)

		return table, nil
	}

	isMember := make(map[types.NodeId]bool, n)
	for _, m := range members {
		isMember[m] = true
	}

	placed := make(map[types.NodeId]bool, n)
	table := make(types.BucketTable, n)
	filled := make([]bool, n)

	// Pass 1: a surviving member keeps its old index when that index is
	// still in range.
	for oldIdx, node := range old {
		if oldIdx >= n {
			break
		}
		if isMember[node] && !placed[node] {
			table[oldIdx] = node
			filled[oldIdx] = true
			placed[node] = true
		}
	}

	// Pass 2: a surviving member whose old index fell outside the new
	// range (shrink case) moves into the lowest still-empty slot.
	for oldIdx, node := range old {
		if oldIdx < n {
			continue
		}
		if isMember[node] && !placed[node] {
			slot := firstEmpty(filled)
			if slot == -1 {
				break
			}
			table[slot] = node
			filled[slot] = true
			placed[node] = true
		}
	}

	// Pass 3: fill whatever is left (new joiners, or members whose old
	// slot was already claimed by someone else) with members not yet
	// placed, in canonical order.
	nextCandidate := 0
	for b := range n {
		if filled[b] {
			continue
		}
		for nextCandidate < len(members) && placed[members[nextCandidate]] {
			nextCandidate++
		}
		if nextCandidate >= len(members) {
			return nil, errors.New("buckettable: ran out of members to place, this indicates a bug")
		}
		table[b] = members[nextCandidate]
		placed[members[nextCandidate]] = true
		filled[b] = true
	}

	return table, nil
}

func firstEmpty(filled []bool) int {
	for i, f := range filled {
		if !f {
			return i
		}
	}

	return -1
}
