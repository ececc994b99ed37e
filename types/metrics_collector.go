package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations should be non-blocking and handle failures gracefully.
// All methods are called from internal goroutines and must be thread-safe.
//
// This interface composes smaller, domain-focused interfaces for better
// modularity, mirroring the shape of the manager's own components.
type MetricsCollector interface {
	ReconcilerMetrics
	BusMetrics
	StoreMetrics
	MembershipMetrics
}

// ReconcilerMetrics covers the Topology Reconciler (C4).
type ReconcilerMetrics interface {
	// RecordReconciliation records one reconciliation attempt's outcome
	// and wall-clock duration in seconds.
	RecordReconciliation(success bool, duration float64)

	// SetBucketCount sets the current size of BUCKETS (gauge).
	SetBucketCount(count int)

	// SetPartitionSize sets the current size of CURRENT (gauge).
	SetPartitionSize(count int)

	// RecordChurn records how many trigger assignments moved owner as a
	// result of one reconciliation.
	RecordChurn(moved int)
}

// BusMetrics covers the Trigger Event Bus (C5) and Data Event Bus (C6).
type BusMetrics interface {
	// RecordTriggerPublished counts one publishTrigger call by op.
	RecordTriggerPublished(op Operation)

	// RecordTriggerDelivered counts one onTriggerChange delivery by op.
	RecordTriggerDelivered(op Operation)

	// RecordSamplePublished counts one publishSample call by kind.
	RecordSamplePublished(kind SampleKind)

	// RecordSampleDelivered counts one onNewData/onNewEvent delivery by kind.
	RecordSampleDelivered(kind SampleKind)
}

// StoreMetrics covers the Partition State Store (C3).
type StoreMetrics interface {
	// RecordStoreOperationDuration records a KeyedStore operation's
	// latency in seconds by operation name ("get", "put", "delete", "watch").
	RecordStoreOperationDuration(operation string, duration float64)

	// RecordSnapshotRetry counts one Snapshot() retry due to an
	// in-flight, not-yet-coherent write.
	RecordSnapshotRetry()
}

// MembershipMetrics covers the Membership Provider (A4).
type MembershipMetrics interface {
	// RecordHeartbeat records a heartbeat publish attempt outcome for
	// this node.
	RecordHeartbeat(success bool)

	// SetActiveMembers sets the current live member count (gauge).
	SetActiveMembers(count int)

	// RecordLeadershipChange records a coordinator lease transition;
	// isCoordinator is this node's new status.
	RecordLeadershipChange(isCoordinator bool)
}
