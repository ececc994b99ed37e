package partitionmanager

import "github.com/xeviknal/hawkular-alerts/types"

// Public type aliases re-exporting the shared data model and interface
// contracts, so callers only ever import this root package.

type (
	// NodeId identifies a cluster member.
	NodeId = types.NodeId

	// TriggerKey identifies a tenant-scoped alert-evaluation unit.
	TriggerKey = types.TriggerKey

	// Operation is a trigger lifecycle mutation kind.
	Operation = types.Operation

	// BucketTable maps a bucket index to the NodeId that currently owns it.
	BucketTable = types.BucketTable

	// Partition maps every known trigger to the NodeId that owns it.
	Partition = types.Partition

	// SampleKind discriminates the payload carried by a Sample.
	SampleKind = types.SampleKind

	// Sample is a tagged union of a data sample or an event sample.
	Sample = types.Sample

	// TriggerListener receives trigger lifecycle and partition-assignment
	// events. Implemented by the alert engine.
	TriggerListener = types.TriggerListener

	// DataListener receives runtime samples broadcast by other nodes.
	DataListener = types.DataListener

	// Logger defines structured logging methods used throughout the module.
	Logger = types.Logger

	// MetricsCollector defines operational metrics recording methods.
	MetricsCollector = types.MetricsCollector

	// ElectionAgent handles leader election for coordinator selection.
	ElectionAgent = types.ElectionAgent

	// KeyedStore abstracts one cell of the cluster substrate's replicated
	// keyed store.
	KeyedStore = types.KeyedStore

	// KeyedStoreEntry is a single change observed on a Watch stream.
	KeyedStoreEntry = types.KeyedStoreEntry

	// MembershipProvider exposes cluster membership and coordinator
	// election.
	MembershipProvider = types.MembershipProvider

	// DefinitionsStore is the external collaborator owning the durable
	// set of triggers.
	DefinitionsStore = types.DefinitionsStore
)

const (
	// OpAdd announces a newly created trigger.
	OpAdd = types.OpAdd
	// OpUpdate announces a change to a trigger that does not move ownership.
	OpUpdate = types.OpUpdate
	// OpRemove announces a deleted trigger.
	OpRemove = types.OpRemove

	// SampleData is a runtime data point fed into alert evaluation.
	SampleData = types.SampleData
	// SampleEvent is a discrete runtime event fed into alert evaluation.
	SampleEvent = types.SampleEvent
)
