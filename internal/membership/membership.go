// Package membership implements the cluster substrate's membership view
// and coordinator election on top of a NATS JetStream KV heartbeat
// bucket plus a leader-election KV bucket.
package membership

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/xeviknal/hawkular-alerts/internal/placement"
	"github.com/xeviknal/hawkular-alerts/types"
)

const coordinatorKey = "coordinator"

// ErrInvalidArgument is returned by New when required collaborators are missing.
var ErrInvalidArgument = errors.New("membership: invalid argument")

// Provider implements types.MembershipProvider over a heartbeat KV bucket
// (one key per live node, TTL'd by the bucket itself) and a coordinator
// election agent.
type Provider struct {
	heartbeats    jetstream.KeyValue
	election      types.ElectionAgent
	metrics       types.MetricsCollector
	logger        types.Logger
	self          types.NodeId
	canonicalAddr string

	heartbeatEvery time.Duration
	leaseSeconds   int64

	// lastView is written by the single Run goroutine; listeners is
	// written by WatchViewChanges callers and read by Run. Both are
	// touched from several goroutines, so both use a lock-free map rather
	// than a mutex-guarded plain map.
	lastView       *xsync.Map[types.NodeId, struct{}]
	listeners      *xsync.Map[uint64, chan struct{}]
	nextListenerID atomic.Uint64

	// wasCoordinator is the result of the previous IsCoordinator check,
	// so that only status transitions are reported to metrics.
	wasCoordinator atomic.Bool

	stop chan struct{}
	done chan struct{}
}

// Config holds Provider construction parameters.
type Config struct {
	Heartbeats     jetstream.KeyValue
	Election       types.ElectionAgent
	Metrics        types.MetricsCollector
	Logger         types.Logger
	CanonicalAddr  string
	HeartbeatEvery time.Duration
	LeaseSeconds   int64
}

// Compile-time assertion that Provider implements MembershipProvider.
var _ types.MembershipProvider = (*Provider)(nil)

// New constructs a Provider. Self's NodeId is derived deterministically
// from cfg.CanonicalAddr so every node computes the same id for the same
// peer across restarts.
func New(cfg Config) (*Provider, error) {
	if cfg.Heartbeats == nil || cfg.Election == nil || cfg.Metrics == nil || cfg.Logger == nil {
		return nil, ErrInvalidArgument
	}
	if cfg.CanonicalAddr == "" {
		return nil, ErrInvalidArgument
	}
	if cfg.HeartbeatEvery <= 0 {
		cfg.HeartbeatEvery = 5 * time.Second
	}
	if cfg.LeaseSeconds <= 0 {
		cfg.LeaseSeconds = 15
	}

	return &Provider{
		heartbeats:     cfg.Heartbeats,
		election:       cfg.Election,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
		self:           types.NodeId(placement.StableHash32(cfg.CanonicalAddr)),
		canonicalAddr:  cfg.CanonicalAddr,
		heartbeatEvery: cfg.HeartbeatEvery,
		leaseSeconds:   cfg.LeaseSeconds,
		lastView:       xsync.NewMap[types.NodeId, struct{}](),
		listeners:      xsync.NewMap[uint64, chan struct{}](),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}, nil
}

// Self implements types.MembershipProvider.
func (p *Provider) Self() types.NodeId {
	return p.self
}

// Run publishes this node's heartbeat on a fixed interval and watches the
// heartbeat bucket for churn, notifying WatchViewChanges subscribers. It
// blocks until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) error {
	defer close(p.done)

	if _, err := p.heartbeats.Put(ctx, p.selfKey(), []byte(p.canonicalAddr)); err != nil {
		p.metrics.RecordHeartbeat(false)
		return fmt.Errorf("membership: initial heartbeat: %w", err)
	}
	p.metrics.RecordHeartbeat(true)

	watcher, err := p.heartbeats.WatchAll(ctx)
	if err != nil {
		return fmt.Errorf("membership: watch heartbeats: %w", err)
	}
	defer watcher.Stop() //nolint:errcheck // best-effort cleanup

	ticker := time.NewTicker(p.heartbeatEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-p.stop:
			return nil
		case <-ticker.C:
			if _, err := p.heartbeats.Put(ctx, p.selfKey(), []byte(p.canonicalAddr)); err != nil {
				p.metrics.RecordHeartbeat(false)
				p.logger.Warn("heartbeat publish failed", "error", err)
				continue
			}
			p.metrics.RecordHeartbeat(true)
		case entry, ok := <-watcher.Updates():
			if !ok {
				return nil
			}
			if entry == nil {
				continue
			}
			p.onHeartbeatChurn(ctx)
		}
	}
}

// Stop halts Run's background loop.
func (p *Provider) Stop() {
	close(p.stop)
	<-p.done
}

func (p *Provider) onHeartbeatChurn(ctx context.Context) {
	members, err := p.CurrentMembers(ctx)
	if err != nil {
		p.logger.Warn("failed to recompute membership view", "error", err)
		return
	}

	if !p.swapView(members) {
		return
	}

	p.metrics.SetActiveMembers(len(members))

	p.listeners.Range(func(_ uint64, ch chan struct{}) bool {
		select {
		case ch <- struct{}{}:
		default:
		}

		return true
	})
}

// swapView replaces lastView with members and reports whether the member
// set actually changed.
func (p *Provider) swapView(members []types.NodeId) bool {
	current := make(map[types.NodeId]struct{}, len(members))
	for _, m := range members {
		current[m] = struct{}{}
	}

	changed := p.lastView.Size() != len(current)
	if !changed {
		for id := range current {
			if _, ok := p.lastView.Load(id); !ok {
				changed = true
				break
			}
		}
	}

	p.lastView.Clear()
	for id := range current {
		p.lastView.Store(id, struct{}{})
	}

	return changed
}

// CurrentMembers implements types.MembershipProvider, returning live nodes
// in ascending NodeId order (a deterministic, stable canonical order).
func (p *Provider) CurrentMembers(ctx context.Context) ([]types.NodeId, error) {
	keys, err := p.heartbeats.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("membership: list heartbeats: %w", err)
	}

	members := make([]types.NodeId, 0, len(keys))
	for _, k := range keys {
		members = append(members, types.NodeId(placement.StableHash32(k)))
	}

	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })

	return members, nil
}

// IsCoordinator implements types.MembershipProvider.
func (p *Provider) IsCoordinator(ctx context.Context) (bool, error) {
	acquired, err := p.election.RequestLeadership(ctx, p.canonicalAddr, p.leaseSeconds)
	if err != nil {
		return false, fmt.Errorf("membership: coordinator check: %w", err)
	}

	if p.wasCoordinator.Swap(acquired) != acquired {
		p.metrics.RecordLeadershipChange(acquired)
	}

	return acquired, nil
}

// WatchViewChanges implements types.MembershipProvider.
func (p *Provider) WatchViewChanges(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	id := p.nextListenerID.Add(1)
	p.listeners.Store(id, ch)

	go func() {
		<-ctx.Done()
		p.listeners.Delete(id)
		close(ch)
	}()

	return ch, nil
}

func (p *Provider) selfKey() string {
	return p.canonicalAddr
}
