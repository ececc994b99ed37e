// Package delta computes the per-node added/removed trigger sets between a
// previous and current partition snapshot, mirroring the original
// source's getNodePartition/getAddedRemovedPartition pair.
package delta

import "github.com/xeviknal/hawkular-alerts/types"

// Compute returns node's current assignment (local) plus the added and
// removed deltas versus its previous assignment, each keyed by tenantId.
func Compute(previous, current types.Partition, node types.NodeId) (local, added, removed map[string][]string) {
	local = current.KeysForNode(node)
	prevLocal := previous.KeysForNode(node)

	added = diff(local, prevLocal)
	removed = diff(prevLocal, local)

	return local, added, removed
}

// diff returns the keys present in a's per-tenant slices but not in b's.
func diff(a, b map[string][]string) map[string][]string {
	out := make(map[string][]string)

	for tenant, triggerIDs := range a {
		bSet := make(map[string]bool, len(b[tenant]))
		for _, id := range b[tenant] {
			bSet[id] = true
		}

		for _, id := range triggerIDs {
			if !bSet[id] {
				out[tenant] = append(out[tenant], id)
			}
		}
	}

	return out
}
