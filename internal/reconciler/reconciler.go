// Package reconciler implements the Topology Reconciler (C4): on a
// membership view-change signal, the elected coordinator rebuilds the
// bucket table and re-places every known trigger, then every node
// (including the coordinator) republishes the resulting per-node delta
// to its local engine listener (C7).
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xeviknal/hawkular-alerts/internal/buckettable"
	"github.com/xeviknal/hawkular-alerts/internal/delta"
	"github.com/xeviknal/hawkular-alerts/internal/partitionstore"
	"github.com/xeviknal/hawkular-alerts/internal/placement"
	"github.com/xeviknal/hawkular-alerts/types"
)

// ErrInvalidArgument is returned by New when required collaborators are missing.
var ErrInvalidArgument = errors.New("reconciler: invalid argument")

// Reconciler is the Topology Reconciler (C4) plus the Delta Publisher
// (C7) wiring for view-change-driven assignment changes.
type Reconciler struct {
	store       *partitionstore.Store
	membership  types.MembershipProvider
	definitions types.DefinitionsStore
	listener    types.TriggerListener
	metrics     types.MetricsCollector
	logger      types.Logger

	definitionsTimeout time.Duration
}

// Config holds Reconciler construction parameters. Listener may be nil:
// if so, OnPartitionChange is simply not called.
type Config struct {
	Store              *partitionstore.Store
	Membership         types.MembershipProvider
	Definitions        types.DefinitionsStore
	Listener           types.TriggerListener
	Metrics            types.MetricsCollector
	Logger             types.Logger
	DefinitionsTimeout time.Duration
}

// New constructs a Reconciler.
func New(cfg Config) (*Reconciler, error) {
	if cfg.Store == nil || cfg.Membership == nil || cfg.Metrics == nil || cfg.Logger == nil {
		return nil, ErrInvalidArgument
	}
	if cfg.DefinitionsTimeout <= 0 {
		cfg.DefinitionsTimeout = 10 * time.Second
	}

	return &Reconciler{
		store:              cfg.Store,
		membership:         cfg.Membership,
		definitions:        cfg.Definitions,
		listener:           cfg.Listener,
		metrics:            cfg.Metrics,
		logger:             cfg.Logger,
		definitionsTimeout: cfg.DefinitionsTimeout,
	}, nil
}

// Run watches membership's view-change signal and reconciles on every
// firing. It blocks until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) error {
	changes, err := r.membership.WatchViewChanges(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: watch view changes: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			r.onViewChanged(ctx)
		}
	}
}

// onViewChanged performs the coordinator's rebuild (if this node holds the
// lease) and then, on every node, republishes the resulting delta to the
// local engine (spec §4.5 step 7: "C7 runs on every node ... via the same
// view-change signal path").
func (r *Reconciler) onViewChanged(ctx context.Context) {
	isCoordinator, err := r.membership.IsCoordinator(ctx)
	if err != nil {
		r.logger.Error("coordinator check failed, skipping reconciliation", "error", err)
	} else if isCoordinator {
		started := time.Now()
		reconcileErr := r.reconcile(ctx)
		r.metrics.RecordReconciliation(reconcileErr == nil, time.Since(started).Seconds())

		if reconcileErr != nil {
			r.logger.Error("reconciliation failed, next view-change will retry", "error", reconcileErr)
		}
	}

	r.PublishDelta(ctx)
}

// reconcile implements spec §4.5 steps 1-6. Only ever called on the node
// holding the coordinator lease.
func (r *Reconciler) reconcile(ctx context.Context) error {
	old, hasPrevious, err := r.store.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: read old state: %w", err)
	}

	members, err := r.membership.CurrentMembers(ctx)
	if err != nil {
		return fmt.Errorf("reconciler: list members: %w", err)
	}
	if len(members) == 0 {
		return fmt.Errorf("reconciler: empty member view")
	}

	r.logger.Debug("reconciling topology", "old_buckets", len(old.Buckets), "members", len(members))

	newBuckets, err := buckettable.Rebuild(old.Buckets, members)
	if err != nil {
		return fmt.Errorf("reconciler: rebuild buckets: %w", err)
	}

	var entries []types.TriggerKey
	if !hasPrevious {
		entries = r.coldLoadEntries(ctx)
	} else {
		entries = make([]types.TriggerKey, 0, len(old.Current))
		for k := range old.Current {
			entries = append(entries, k)
		}
	}

	r.logger.Debug("re-placing triggers", "entries", len(entries))

	newCurrent := make(types.Partition, len(entries))
	for _, key := range entries {
		node, placeErr := placement.PlaceOf(key, newBuckets)
		if placeErr != nil {
			r.logger.Warn("failed to place trigger, dropping from partition", "key", key, "error", placeErr)
			continue
		}
		newCurrent[key] = node
	}

	r.metrics.RecordChurn(churn(old.Current, newCurrent))

	if err := r.store.WriteReconciliation(ctx, newBuckets, old.Current, newCurrent); err != nil {
		return fmt.Errorf("reconciler: write new state: %w", err)
	}

	return nil
}

// coldLoadEntries loads every known trigger from the Definitions Store,
// bounded by definitionsTimeout (spec §4.5 step 4, §5: "must therefore be
// bounded by a substrate-level timeout; on timeout the reconciler
// proceeds with empty entries"). A nil Definitions collaborator or any
// load failure is logged and treated as empty, never aborting
// reconciliation.
func (r *Reconciler) coldLoadEntries(ctx context.Context) []types.TriggerKey {
	if r.definitions == nil {
		return nil
	}

	loadCtx, cancel := context.WithTimeout(ctx, r.definitionsTimeout)
	defer cancel()

	keys, errs := r.definitions.ListTriggers(loadCtx)

	var entries []types.TriggerKey
	for k := range keys {
		entries = append(entries, k)
	}

	if err := <-errs; err != nil {
		r.logger.Error("cold-start definitions load failed, continuing with empty partition", "error", err)
		return nil
	}

	return entries
}

// PublishDelta computes and delivers this node's (local, added, removed)
// view against the latest coherent snapshot (C7). Called after a
// view-change reconciliation and, by the Trigger Event Bus, after a
// single-trigger ADD/REMOVE changes CURRENT (spec §4.8: "after any write
// to CURRENT/PREVIOUS"). Per spec §4.8 this is synchronous with its
// caller but must not block the substrate; listener implementations own
// their own async handoff if their work is long-running.
func (r *Reconciler) PublishDelta(ctx context.Context) {
	if r.listener == nil {
		return
	}

	state, _, err := r.store.Snapshot(ctx)
	if err != nil {
		r.logger.Warn("failed to snapshot partition state for delta publication", "error", err)
		return
	}

	r.metrics.SetBucketCount(len(state.Buckets))
	r.metrics.SetPartitionSize(len(state.Current))

	local, added, removed := delta.Compute(state.Previous, state.Current, r.membership.Self())

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				r.logger.Error("listener panicked handling partition change", "panic", rec)
			}
		}()
		r.listener.OnPartitionChange(local, added, removed)
	}()
}

func churn(previous, current types.Partition) int {
	moved := 0
	for key, node := range current {
		if prevNode, ok := previous[key]; !ok || prevNode != node {
			moved++
		}
	}

	return moved
}
