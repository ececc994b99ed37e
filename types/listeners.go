package types

// TriggerListener receives trigger lifecycle and partition-assignment
// events from the local node's partition manager. Implemented by the
// alert engine.
type TriggerListener interface {
	// OnTriggerChange fires exactly once on the owner node when a trigger
	// mutation arrives.
	OnTriggerChange(op Operation, tenantID, triggerID string)

	// OnPartitionChange fires on every node after a view-change
	// reconciliation, and on the owner node only after a single-trigger
	// ADD/REMOVE changes the partition. local is the full set of triggers
	// this node now owns, keyed by tenant; added/removed are deltas versus
	// the prior assignment for this node.
	OnPartitionChange(local, added, removed map[string][]string)
}

// DataListener receives runtime samples broadcast by other nodes.
// Implemented by the alert engine.
type DataListener interface {
	// OnNewData fires on every non-sender node for each data sample.
	OnNewData(sample Sample)

	// OnNewEvent fires on every non-sender node for each event sample.
	OnNewEvent(sample Sample)
}
