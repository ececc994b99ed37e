package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xeviknal/hawkular-alerts/types"
)

// PrometheusCollector implements types.MetricsCollector backed by
// Prometheus, instrumented for the reconciler, the two event buses, the
// partition state store, and membership tracking.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	reconciliations     *prometheus.CounterVec
	reconcileDuration    prometheus.Histogram
	bucketCount          prometheus.Gauge
	partitionSize        prometheus.Gauge
	churnGauge           prometheus.Gauge
	triggerPublished     *prometheus.CounterVec
	triggerDelivered     *prometheus.CounterVec
	samplePublished      *prometheus.CounterVec
	sampleDelivered      *prometheus.CounterVec
	storeOpDuration      *prometheus.HistogramVec
	snapshotRetries      prometheus.Counter
	heartbeats           *prometheus.CounterVec
	activeMembers        prometheus.Gauge
	leadershipTransitions prometheus.Counter
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "partitionmgr" if empty)
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "partitionmgr"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.reconciliations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "runs_total",
			Help:      "Total reconciliation attempts by outcome.",
		}, []string{"outcome"})

		p.reconcileDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "duration_seconds",
			Help:      "Reconciliation wall-clock duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		})

		p.bucketCount = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "bucket_count",
			Help:      "Current number of buckets in BUCKETS.",
		})

		p.partitionSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "partition_size",
			Help:      "Current number of triggers in CURRENT.",
		})

		p.churnGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "reconciler",
			Name:      "last_churn",
			Help:      "Number of trigger assignments moved by the last reconciliation.",
		})

		p.triggerPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trigger_bus",
			Name:      "published_total",
			Help:      "Total NotifyTrigger entries published by op.",
		}, []string{"op"})

		p.triggerDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "trigger_bus",
			Name:      "delivered_total",
			Help:      "Total onTriggerChange deliveries by op.",
		}, []string{"op"})

		p.samplePublished = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "data_bus",
			Name:      "published_total",
			Help:      "Total NotifySample entries published by kind.",
		}, []string{"kind"})

		p.sampleDelivered = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "data_bus",
			Name:      "delivered_total",
			Help:      "Total onNewData/onNewEvent deliveries by kind.",
		}, []string{"kind"})

		p.storeOpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "partition_store",
			Name:      "operation_duration_seconds",
			Help:      "KeyedStore operation latency in seconds by operation.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"})

		p.snapshotRetries = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "partition_store",
			Name:      "snapshot_retries_total",
			Help:      "Total Snapshot() retries due to an in-flight epoch write.",
		})

		p.heartbeats = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "heartbeats_total",
			Help:      "Total heartbeat publish attempts by outcome.",
		}, []string{"outcome"})

		p.activeMembers = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "active_members",
			Help:      "Current live member count.",
		})

		p.leadershipTransitions = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "membership",
			Name:      "leadership_transitions_total",
			Help:      "Total coordinator lease state transitions observed by this node.",
		})

		p.reg.MustRegister(
			p.reconciliations, p.reconcileDuration, p.bucketCount, p.partitionSize, p.churnGauge,
			p.triggerPublished, p.triggerDelivered, p.samplePublished, p.sampleDelivered,
			p.storeOpDuration, p.snapshotRetries,
			p.heartbeats, p.activeMembers, p.leadershipTransitions,
		)
	})
}

// RecordReconciliation records a reconciliation outcome and duration.
func (p *PrometheusCollector) RecordReconciliation(success bool, duration float64) {
	p.ensureRegistered()
	outcome := "failure"
	if success {
		outcome = "success"
	}
	p.reconciliations.WithLabelValues(outcome).Inc()
	p.reconcileDuration.Observe(duration)
}

// SetBucketCount sets the bucket-count gauge.
func (p *PrometheusCollector) SetBucketCount(count int) {
	p.ensureRegistered()
	p.bucketCount.Set(float64(count))
}

// SetPartitionSize sets the partition-size gauge.
func (p *PrometheusCollector) SetPartitionSize(count int) {
	p.ensureRegistered()
	p.partitionSize.Set(float64(count))
}

// RecordChurn sets the last-churn gauge.
func (p *PrometheusCollector) RecordChurn(moved int) {
	p.ensureRegistered()
	p.churnGauge.Set(float64(moved))
}

// RecordTriggerPublished increments the trigger-published counter.
func (p *PrometheusCollector) RecordTriggerPublished(op types.Operation) {
	p.ensureRegistered()
	p.triggerPublished.WithLabelValues(op.String()).Inc()
}

// RecordTriggerDelivered increments the trigger-delivered counter.
func (p *PrometheusCollector) RecordTriggerDelivered(op types.Operation) {
	p.ensureRegistered()
	p.triggerDelivered.WithLabelValues(op.String()).Inc()
}

// RecordSamplePublished increments the sample-published counter.
func (p *PrometheusCollector) RecordSamplePublished(kind types.SampleKind) {
	p.ensureRegistered()
	p.samplePublished.WithLabelValues(sampleKindLabel(kind)).Inc()
}

// RecordSampleDelivered increments the sample-delivered counter.
func (p *PrometheusCollector) RecordSampleDelivered(kind types.SampleKind) {
	p.ensureRegistered()
	p.sampleDelivered.WithLabelValues(sampleKindLabel(kind)).Inc()
}

// RecordStoreOperationDuration observes a KeyedStore operation's latency.
func (p *PrometheusCollector) RecordStoreOperationDuration(operation string, duration float64) {
	p.ensureRegistered()
	p.storeOpDuration.WithLabelValues(operation).Observe(duration)
}

// RecordSnapshotRetry increments the snapshot-retry counter.
func (p *PrometheusCollector) RecordSnapshotRetry() {
	p.ensureRegistered()
	p.snapshotRetries.Inc()
}

// RecordHeartbeat increments the heartbeat counter by outcome.
func (p *PrometheusCollector) RecordHeartbeat(success bool) {
	p.ensureRegistered()
	outcome := "failure"
	if success {
		outcome = "success"
	}
	p.heartbeats.WithLabelValues(outcome).Inc()
}

// SetActiveMembers sets the active-members gauge.
func (p *PrometheusCollector) SetActiveMembers(count int) {
	p.ensureRegistered()
	p.activeMembers.Set(float64(count))
}

// RecordLeadershipChange increments the leadership-transitions counter.
func (p *PrometheusCollector) RecordLeadershipChange(_ bool) {
	p.ensureRegistered()
	p.leadershipTransitions.Inc()
}

func sampleKindLabel(kind types.SampleKind) string {
	if kind == types.SampleEvent {
		return "event"
	}

	return "data"
}
