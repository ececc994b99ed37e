// Package natsstore adapts a NATS JetStream KV bucket to the types.KeyedStore
// contract, which is the only surface internal/partitionstore,
// internal/triggerbus, and internal/databus depend on.
package natsstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/xeviknal/hawkular-alerts/types"
)

// Store wraps a jetstream.KeyValue bucket.
type Store struct {
	kv jetstream.KeyValue
}

// Compile-time assertion that Store implements KeyedStore.
var _ types.KeyedStore = (*Store)(nil)

// New wraps an already-provisioned KV bucket.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Put implements types.KeyedStore.
func (s *Store) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := s.kv.Put(ctx, key, value)
	if err != nil {
		return 0, fmt.Errorf("natsstore: put %s: %w", key, err)
	}

	return rev, nil
}

// Get implements types.KeyedStore.
func (s *Store) Get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, 0, fmt.Errorf("natsstore: get %s: %w", key, err)
	}

	return entry.Value(), entry.Revision(), nil
}

// Delete implements types.KeyedStore. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("natsstore: delete %s: %w", key, err)
	}

	return nil
}

// Keys implements types.KeyedStore.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("natsstore: keys: %w", err)
	}

	return keys, nil
}

// Watch implements types.KeyedStore, translating JetStream watch updates
// (including the initial entry-created backlog) into KeyedStoreEntry
// values.
func (s *Store) Watch(ctx context.Context) (<-chan types.KeyedStoreEntry, error) {
	watcher, err := s.kv.WatchAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("natsstore: watch: %w", err)
	}

	out := make(chan types.KeyedStoreEntry)

	go func() {
		defer close(out)
		defer watcher.Stop() //nolint:errcheck // best-effort cleanup on context cancellation

		for {
			select {
			case <-ctx.Done():
				return
			case entry, ok := <-watcher.Updates():
				if !ok {
					return
				}
				if entry == nil {
					// nil marks "caught up with initial state"; no entry to forward.
					continue
				}

				kse := types.KeyedStoreEntry{
					Key:     entry.Key(),
					Value:   entry.Value(),
					Deleted: entry.Operation() == jetstream.KeyValueDelete || entry.Operation() == jetstream.KeyValuePurge,
				}

				select {
				case out <- kse:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
