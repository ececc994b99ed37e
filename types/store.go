package types

import "context"

// KeyedStoreEntry is a single change observed on a Watch stream.
type KeyedStoreEntry struct {
	Key     string
	Value   []byte
	Deleted bool
}

// KeyedStore abstracts one cell of the cluster substrate's replicated
// keyed store (spec: a NATS JetStream KV bucket). Partition state and the
// two event buses are each backed by one KeyedStore.
type KeyedStore interface {
	// Put writes value under key, returning the new revision.
	Put(ctx context.Context, key string, value []byte) (revision uint64, err error)

	// Get reads the current value and revision for key.
	Get(ctx context.Context, key string) (value []byte, revision uint64, err error)

	// Delete removes key. Deleting a key that does not exist is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every currently live key in the cell.
	Keys(ctx context.Context) ([]string, error)

	// Watch delivers every subsequent put/delete as a KeyedStoreEntry,
	// including entries that already existed at subscription time (an
	// entry-created notification per spec). The channel closes when ctx
	// is cancelled.
	Watch(ctx context.Context) (<-chan KeyedStoreEntry, error)
}

// MembershipProvider exposes the cluster substrate's membership view and
// coordinator election to the Partition Manager.
type MembershipProvider interface {
	// Self returns this process's own NodeId.
	Self() NodeId

	// CurrentMembers returns the live member set in the substrate's
	// canonical (deterministic, stable) order.
	CurrentMembers(ctx context.Context) ([]NodeId, error)

	// IsCoordinator reports whether this node currently holds the
	// coordinator lease for the present view.
	IsCoordinator(ctx context.Context) (bool, error)

	// WatchViewChanges delivers a value every time the live member set
	// changes. The channel closes when ctx is cancelled.
	WatchViewChanges(ctx context.Context) (<-chan struct{}, error)
}

// DefinitionsStore is the external collaborator that owns the durable set
// of triggers. Used only for the cold-start load in the Topology
// Reconciler.
type DefinitionsStore interface {
	// ListTriggers streams every known TriggerKey. The error channel
	// carries at most one value and, if non-nil, signals the stream ended
	// early; callers must still drain keys until it closes.
	ListTriggers(ctx context.Context) (<-chan TriggerKey, <-chan error)
}
