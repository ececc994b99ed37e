// Package triggerbus delivers trigger lifecycle mutations (add/update/
// remove) from the node that observed them to the node that owns the
// affected trigger under the current bucket table.
package triggerbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/xeviknal/hawkular-alerts/internal/partitionstore"
	"github.com/xeviknal/hawkular-alerts/internal/placement"
	"github.com/xeviknal/hawkular-alerts/types"
)

// ErrInvalidArgument is returned by New when required collaborators are missing.
var ErrInvalidArgument = errors.New("triggerbus: invalid argument")

// Bus is the Trigger Event Bus (C5).
type Bus struct {
	cell      types.KeyedStore
	store     *partitionstore.Store
	self      types.NodeId
	listener  types.TriggerListener
	metrics   types.MetricsCollector
	logger    types.Logger
	localOnly bool
	deltaFn   func(ctx context.Context)
}

// Config holds Bus construction parameters. Listener may be nil: if so,
// OnTriggerChange is simply not called. DeltaFn, when set, is invoked
// after an ADD/REMOVE changes CURRENT, running the Delta Publisher (C7)
// on the owner node the same way a reconciliation does (spec §4.8:
// "after any write to CURRENT/PREVIOUS").
type Config struct {
	Cell      types.KeyedStore
	Store     *partitionstore.Store
	Self      types.NodeId
	Listener  types.TriggerListener
	Metrics   types.MetricsCollector
	Logger    types.Logger
	LocalOnly bool
	DeltaFn   func(ctx context.Context)
}

// New constructs a Bus. When cfg.LocalOnly is set (single-node mode, no
// distributed substrate transport), PublishTrigger becomes a no-op and
// Run watches nothing and only waits for ctx to be cancelled.
func New(cfg Config) (*Bus, error) {
	if cfg.Metrics == nil || cfg.Logger == nil {
		return nil, ErrInvalidArgument
	}
	if !cfg.LocalOnly && (cfg.Cell == nil || cfg.Store == nil) {
		return nil, ErrInvalidArgument
	}

	return &Bus{
		cell:      cfg.Cell,
		store:     cfg.Store,
		self:      cfg.Self,
		listener:  cfg.Listener,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		localOnly: cfg.LocalOnly,
		deltaFn:   cfg.DeltaFn,
	}, nil
}

// PublishTrigger announces a trigger mutation. Fire-and-forget: it
// returns once the bus entry is enqueued, never retried by this package.
func (b *Bus) PublishTrigger(ctx context.Context, op types.Operation, tenantID, triggerID string) error {
	b.metrics.RecordTriggerPublished(op)

	if b.localOnly {
		return nil
	}

	state, _, err := b.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("triggerbus: snapshot for placement: %w", err)
	}

	key := types.TriggerKey{TenantID: tenantID, TriggerID: triggerID}

	toNode, err := placement.PlaceOf(key, state.Buckets)
	if err != nil {
		return fmt.Errorf("triggerbus: place %s: %w", key, err)
	}

	nt := types.NotifyTrigger{FromNode: b.self, ToNode: toNode, Op: op, TenantID: tenantID, TriggerID: triggerID}

	payload, err := json.Marshal(nt)
	if err != nil {
		return fmt.Errorf("triggerbus: encode entry: %w", err)
	}

	entryKey := fmt.Sprintf("%016x", xxh3.Hash(payload))

	if _, err := b.cell.Put(ctx, entryKey, payload); err != nil {
		return fmt.Errorf("triggerbus: enqueue entry: %w", err)
	}

	return nil
}

// Run watches the bus cell and routes entries addressed to this node. It
// blocks until ctx is cancelled. In local-only mode it watches nothing and
// only waits for ctx to be cancelled.
func (b *Bus) Run(ctx context.Context) error {
	if b.localOnly {
		<-ctx.Done()
		return nil
	}

	updates, err := b.cell.Watch(ctx)
	if err != nil {
		return fmt.Errorf("triggerbus: watch: %w", err)
	}

	for entry := range updates {
		if entry.Deleted {
			continue
		}

		b.handleEntry(ctx, entry)
	}

	return nil
}

func (b *Bus) handleEntry(ctx context.Context, entry types.KeyedStoreEntry) {
	var nt types.NotifyTrigger
	if err := json.Unmarshal(entry.Value, &nt); err != nil {
		b.logger.Warn("dropping malformed trigger-bus entry", "key", entry.Key, "error", err)
		return
	}

	if nt.ToNode != b.self {
		return
	}

	if err := b.cell.Delete(ctx, entry.Key); err != nil {
		b.logger.Warn("failed to reclaim trigger-bus entry", "key", entry.Key, "error", err)
	}

	if err := b.applyPartitionChange(ctx, nt); err != nil {
		b.logger.Warn("failed to apply trigger partition change", "key", nt.Key(), "error", err)
		return
	}

	b.metrics.RecordTriggerDelivered(nt.Op)

	if b.listener != nil {
		defer func() {
			if rec := recover(); rec != nil {
				b.logger.Error("listener panicked handling trigger change", "panic", rec)
			}
		}()
		b.listener.OnTriggerChange(nt.Op, nt.TenantID, nt.TriggerID)
	}
}

func (b *Bus) applyPartitionChange(ctx context.Context, nt types.NotifyTrigger) error {
	if nt.Op == types.OpUpdate {
		return nil
	}

	state, _, err := b.store.Snapshot(ctx)
	if err != nil {
		return err
	}

	key := nt.Key()
	_, present := state.Current[key]

	current := state.Current.Clone()

	switch nt.Op {
	case types.OpAdd:
		if present {
			return nil
		}
		current[key] = b.self
	case types.OpRemove:
		if !present {
			return nil
		}
		delete(current, key)
	default:
		return nil
	}

	if err := b.store.WriteTriggerAssignment(ctx, state.Buckets, state.Current, current); err != nil {
		return err
	}

	if b.deltaFn != nil {
		b.deltaFn(ctx)
	}

	return nil
}
