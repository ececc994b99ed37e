// Package partitionstore holds the BUCKETS/CURRENT/PREVIOUS triple in a
// replicated keyed store and emulates the batched multi-key write the
// store itself does not provide: every write stamps all three keys with
// the same monotonically increasing epoch, and readers reconcile by
// preferring the highest epoch for which every key agrees.
package partitionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/xeviknal/hawkular-alerts/types"
)

const (
	keyBuckets  = "BUCKETS"
	keyCurrent  = "CURRENT"
	keyPrevious = "PREVIOUS"
	keyEpoch    = "EPOCH"
)

// ErrInconsistentSnapshot is returned by Snapshot when the three cells
// never agree on an epoch within the configured retry budget, meaning a
// writer appears stuck mid-write.
var ErrInconsistentSnapshot = errors.New("partitionstore: inconsistent snapshot after retries")

// State is the triple kept in the store. Previous is nil in cold state
// and also after a write that stored a nil PREVIOUS (such as the first
// reconciliation); Snapshot's hasPrevious tells the two apart.
type State struct {
	Buckets  types.BucketTable
	Current  types.Partition
	Previous types.Partition
}

// stamped is the on-the-wire envelope for one cell: the epoch it was
// written under plus its JSON-encoded payload.
type stamped struct {
	Epoch   uint64          `json:"epoch"`
	Payload json.RawMessage `json:"payload"`
}

// Store is the Partition State Store (C3).
type Store struct {
	cell          types.KeyedStore
	metrics       types.MetricsCollector
	logger        types.Logger
	retryAttempts int
	retryBackoff  time.Duration
}

// New constructs a Store over cell, the KeyedStore backing the `partition`
// replicated-store cell.
func New(cell types.KeyedStore, metrics types.MetricsCollector, logger types.Logger, retryAttempts int, retryBackoff time.Duration) *Store {
	if retryAttempts <= 0 {
		retryAttempts = 3
	}

	return &Store{
		cell:          cell,
		metrics:       metrics,
		logger:        logger,
		retryAttempts: retryAttempts,
		retryBackoff:  retryBackoff,
	}
}

// Snapshot reads BUCKETS/CURRENT/PREVIOUS, retrying while the three cells
// disagree on epoch (a write is in flight). hasPrevious distinguishes
// "never reconciled" (false) from "reconciled with an empty PREVIOUS"
// (true, Previous == nil but present).
func (s *Store) Snapshot(ctx context.Context) (state State, hasPrevious bool, err error) {
	for attempt := 0; attempt < s.retryAttempts; attempt++ {
		state, hasPrevious, coherent, snapErr := s.readOnce(ctx)
		if snapErr != nil {
			return State{}, false, snapErr
		}
		if coherent {
			return state, hasPrevious, nil
		}

		s.metrics.RecordSnapshotRetry()
		s.logger.Debug("partition snapshot incoherent, retrying", "attempt", attempt)

		select {
		case <-ctx.Done():
			return State{}, false, ctx.Err()
		case <-time.After(s.retryBackoff):
		}
	}

	return State{}, false, ErrInconsistentSnapshot
}

func (s *Store) readOnce(ctx context.Context) (state State, hasPrevious, coherent bool, err error) {
	bucketsRaw, bOK, err := s.getCell(ctx, keyBuckets)
	if err != nil {
		return State{}, false, false, err
	}

	currentRaw, cOK, err := s.getCell(ctx, keyCurrent)
	if err != nil {
		return State{}, false, false, err
	}

	previousRaw, pOK, err := s.getCell(ctx, keyPrevious)
	if err != nil {
		return State{}, false, false, err
	}

	if !bOK && !cOK {
		// Cold state: nothing has ever been written.
		return State{}, false, true, nil
	}

	if !bOK || !cOK {
		return State{}, false, false, nil
	}

	if pOK && previousRaw.Epoch != bucketsRaw.Epoch {
		return State{}, false, false, nil
	}
	if bucketsRaw.Epoch != currentRaw.Epoch {
		return State{}, false, false, nil
	}

	var buckets types.BucketTable
	if err := json.Unmarshal(bucketsRaw.Payload, &buckets); err != nil {
		return State{}, false, false, fmt.Errorf("partitionstore: decode BUCKETS: %w", err)
	}

	var current types.Partition
	if err := json.Unmarshal(currentRaw.Payload, &current); err != nil {
		return State{}, false, false, fmt.Errorf("partitionstore: decode CURRENT: %w", err)
	}

	var previous types.Partition
	if pOK {
		if err := json.Unmarshal(previousRaw.Payload, &previous); err != nil {
			return State{}, false, false, fmt.Errorf("partitionstore: decode PREVIOUS: %w", err)
		}
	}

	return State{Buckets: buckets, Current: current, Previous: previous}, pOK, true, nil
}

func (s *Store) getCell(ctx context.Context, key string) (stamped, bool, error) {
	started := time.Now()
	raw, _, err := s.cell.Get(ctx, key)
	s.metrics.RecordStoreOperationDuration("get", time.Since(started).Seconds())

	if err != nil {
		// A missing key is a normal cold-state condition, not a failure;
		// the KeyedStore contract does not give us a typed not-found, so
		// callers distinguish "not found" from transport failure is out
		// of scope here: treat every Get error as "not present".
		return stamped{}, false, nil //nolint:nilerr // see comment above
	}

	var st stamped
	if err := json.Unmarshal(raw, &st); err != nil {
		return stamped{}, false, fmt.Errorf("partitionstore: decode %s envelope: %w", key, err)
	}

	return st, true, nil
}

// WriteReconciliation writes a fresh BUCKETS/CURRENT pair and rolls the
// prior CURRENT (if any) into PREVIOUS, all under one new epoch. Used by
// the Topology Reconciler (C4).
func (s *Store) WriteReconciliation(ctx context.Context, buckets types.BucketTable, previous, current types.Partition) error {
	epoch, err := s.nextEpoch(ctx)
	if err != nil {
		return err
	}

	if err := s.putCell(ctx, keyBuckets, epoch, buckets); err != nil {
		return err
	}
	if err := s.putCell(ctx, keyPrevious, epoch, previous); err != nil {
		return err
	}
	if err := s.putCell(ctx, keyCurrent, epoch, current); err != nil {
		return err
	}

	s.metrics.SetBucketCount(len(buckets))
	s.metrics.SetPartitionSize(len(current))

	return nil
}

// WriteTriggerAssignment writes a CURRENT/PREVIOUS pair reflecting a
// single-trigger ADD or REMOVE, leaving BUCKETS untouched (restamped with
// the same new epoch so Snapshot still sees a coherent triple). Used by
// the Trigger Event Bus (C5) owner-side handler.
func (s *Store) WriteTriggerAssignment(ctx context.Context, buckets types.BucketTable, previous, current types.Partition) error {
	return s.WriteReconciliation(ctx, buckets, previous, current)
}

func (s *Store) putCell(ctx context.Context, key string, epoch uint64, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("partitionstore: encode %s: %w", key, err)
	}

	wrapped, err := json.Marshal(stamped{Epoch: epoch, Payload: encoded})
	if err != nil {
		return fmt.Errorf("partitionstore: wrap %s: %w", key, err)
	}

	started := time.Now()
	_, err = s.cell.Put(ctx, key, wrapped)
	s.metrics.RecordStoreOperationDuration("put", time.Since(started).Seconds())

	if err != nil {
		return fmt.Errorf("partitionstore: put %s: %w", key, err)
	}

	return nil
}

// nextEpoch advances the EPOCH counter. It is not linearizable across a
// true multi-writer race (Non-goals exclude strong consistency), but it
// is monotonic for the common case of a single coordinator writing at a
// time, which is all the batching emulation requires.
func (s *Store) nextEpoch(ctx context.Context) (uint64, error) {
	raw, _, err := s.cell.Get(ctx, keyEpoch)
	if err != nil {
		// No epoch yet: start at 1.
		if _, putErr := s.cell.Put(ctx, keyEpoch, []byte("1")); putErr != nil {
			return 0, fmt.Errorf("partitionstore: init epoch: %w", putErr)
		}

		return 1, nil
	}

	var current uint64
	if _, scanErr := fmt.Sscanf(string(raw), "%d", &current); scanErr != nil {
		return 0, fmt.Errorf("partitionstore: decode epoch: %w", scanErr)
	}

	next := current + 1
	if _, putErr := s.cell.Put(ctx, keyEpoch, []byte(fmt.Sprintf("%d", next))); putErr != nil {
		return 0, fmt.Errorf("partitionstore: advance epoch: %w", putErr)
	}

	return next, nil
}
