// Package metrics provides MetricsCollector implementations.
package metrics

import "github.com/xeviknal/hawkular-alerts/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// RecordReconciliation discards the reconciliation outcome metric.
func (n *NopMetrics) RecordReconciliation(_ bool, _ float64) {}

// SetBucketCount discards the bucket count metric.
func (n *NopMetrics) SetBucketCount(_ int) {}

// SetPartitionSize discards the partition size metric.
func (n *NopMetrics) SetPartitionSize(_ int) {}

// RecordChurn discards the churn metric.
func (n *NopMetrics) RecordChurn(_ int) {}

// RecordTriggerPublished discards the trigger-published metric.
func (n *NopMetrics) RecordTriggerPublished(_ types.Operation) {}

// RecordTriggerDelivered discards the trigger-delivered metric.
func (n *NopMetrics) RecordTriggerDelivered(_ types.Operation) {}

// RecordSamplePublished discards the sample-published metric.
func (n *NopMetrics) RecordSamplePublished(_ types.SampleKind) {}

// RecordSampleDelivered discards the sample-delivered metric.
func (n *NopMetrics) RecordSampleDelivered(_ types.SampleKind) {}

// RecordStoreOperationDuration discards the store-latency metric.
func (n *NopMetrics) RecordStoreOperationDuration(_ string, _ float64) {}

// RecordSnapshotRetry discards the snapshot-retry metric.
func (n *NopMetrics) RecordSnapshotRetry() {}

// RecordHeartbeat discards the heartbeat metric.
func (n *NopMetrics) RecordHeartbeat(_ bool) {}

// SetActiveMembers discards the active-members metric.
func (n *NopMetrics) SetActiveMembers(_ int) {}

// RecordLeadershipChange discards the leadership-change metric.
func (n *NopMetrics) RecordLeadershipChange(_ bool) {}
