// Package definitions provides Definitions Store test doubles: fixed-list
// and always-failing implementations of types.DefinitionsStore, used to
// exercise the Topology Reconciler's cold-start load (spec §4.5 step 4)
// without a real definitions service.
package definitions

import (
	"context"
	"errors"
	"sync"

	"github.com/xeviknal/hawkular-alerts/types"
)

// Static streams a fixed list of TriggerKeys. Useful for tests and for
// bootstrapping a node before a real Definitions Store is wired in.
type Static struct {
	mu   sync.RWMutex
	keys []types.TriggerKey
}

// Compile-time assertion that Static implements DefinitionsStore.
var _ types.DefinitionsStore = (*Static)(nil)

// NewStatic creates a Static store over a fixed key list.
func NewStatic(keys []types.TriggerKey) *Static {
	s := &Static{}
	s.Update(keys)

	return s
}

// Update replaces the key list. Safe for concurrent use with ListTriggers.
func (s *Static) Update(keys []types.TriggerKey) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys = make([]types.TriggerKey, len(keys))
	copy(s.keys, keys)
}

// ListTriggers implements types.DefinitionsStore, streaming every key and
// closing the error channel with no value.
func (s *Static) ListTriggers(ctx context.Context) (<-chan types.TriggerKey, <-chan error) {
	s.mu.RLock()
	keys := append([]types.TriggerKey(nil), s.keys...)
	s.mu.RUnlock()

	out := make(chan types.TriggerKey, len(keys))
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		for _, k := range keys {
			select {
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			case out <- k:
			}
		}
	}()

	return out, errs
}

// Failing always fails ListTriggers, exercising the cold-start
// DefinitionsUnavailable path (spec §4.5 step 4, scenario S6): the
// reconciler must log the failure and continue with an empty CURRENT
// rather than aborting reconciliation.
type Failing struct {
	err error
}

// Compile-time assertion that Failing implements DefinitionsStore.
var _ types.DefinitionsStore = (*Failing)(nil)

// ErrDefault is used by NewFailing(nil).
var ErrDefault = errors.New("definitions: store unavailable")

// NewFailing creates a DefinitionsStore whose ListTriggers always fails
// with err (or ErrDefault if err is nil).
func NewFailing(err error) *Failing {
	if err == nil {
		err = ErrDefault
	}

	return &Failing{err: err}
}

// ListTriggers implements types.DefinitionsStore, closing out immediately
// and delivering a single error.
func (f *Failing) ListTriggers(_ context.Context) (<-chan types.TriggerKey, <-chan error) {
	out := make(chan types.TriggerKey)
	errs := make(chan error, 1)

	close(out)
	errs <- f.err
	close(errs)

	return out, errs
}
