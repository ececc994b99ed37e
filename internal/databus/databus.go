// Package databus broadcasts runtime data/event samples from the node
// that observed them to every other cluster member.
package databus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zeebo/xxh3"

	"github.com/xeviknal/hawkular-alerts/types"
)

// ErrInvalidArgument is returned by New when required collaborators are missing.
var ErrInvalidArgument = errors.New("databus: invalid argument")

// Bus is the Data Event Bus (C6).
type Bus struct {
	cell      types.KeyedStore
	self      types.NodeId
	listener  types.DataListener
	metrics   types.MetricsCollector
	logger    types.Logger
	localOnly bool
}

// Config holds Bus construction parameters. Listener may be nil: if so,
// deliveries are simply dropped.
type Config struct {
	Cell      types.KeyedStore
	Self      types.NodeId
	Listener  types.DataListener
	Metrics   types.MetricsCollector
	Logger    types.Logger
	LocalOnly bool
}

// New constructs a Bus.
func New(cfg Config) (*Bus, error) {
	if cfg.Metrics == nil || cfg.Logger == nil {
		return nil, ErrInvalidArgument
	}
	if !cfg.LocalOnly && cfg.Cell == nil {
		return nil, ErrInvalidArgument
	}

	return &Bus{
		cell:      cfg.Cell,
		self:      cfg.Self,
		listener:  cfg.Listener,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		localOnly: cfg.LocalOnly,
	}, nil
}

// PublishSample broadcasts payload. The sender already evaluated it
// locally (or chose not to); this only reaches remote nodes.
func (b *Bus) PublishSample(ctx context.Context, payload types.Sample) error {
	b.metrics.RecordSamplePublished(payload.Kind)

	if b.localOnly {
		return nil
	}

	nd := types.NotifySample{FromNode: b.self, Payload: payload}

	encoded, err := json.Marshal(nd)
	if err != nil {
		return fmt.Errorf("databus: encode entry: %w", err)
	}

	entryKey := fmt.Sprintf("%016x", xxh3.Hash(encoded))

	if _, err := b.cell.Put(ctx, entryKey, encoded); err != nil {
		return fmt.Errorf("databus: enqueue entry: %w", err)
	}

	return nil
}

// Run watches the bus cell, delivers samples from other nodes to the
// local listener, and reclaims this node's own broadcasts. It blocks
// until ctx is cancelled. In local-only mode it watches nothing and only
// waits for ctx to be cancelled.
func (b *Bus) Run(ctx context.Context) error {
	if b.localOnly {
		<-ctx.Done()
		return nil
	}

	updates, err := b.cell.Watch(ctx)
	if err != nil {
		return fmt.Errorf("databus: watch: %w", err)
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
	var nd types.NotifySample
	if err := json.Unmarshal(entry.Value, &nd); err != nil {
		b.logger.Warn("dropping malformed data-bus entry", "key", entry.Key, "error", err)
		return
	}

	if nd.FromNode == b.self {
		if err := b.cell.Delete(ctx, entry.Key); err != nil {
			b.logger.Warn("failed to reclaim data-bus entry", "key", entry.Key, "error", err)
		}

		return
	}

	b.metrics.RecordSampleDelivered(nd.Payload.Kind)

	if b.listener == nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			b.logger.Error("listener panicked handling sample", "panic", rec)
		}
	}()

	switch nd.Payload.Kind {
	case types.SampleData:
		b.listener.OnNewData(nd.Payload)
	case types.SampleEvent:
		b.listener.OnNewEvent(nd.Payload)
	}
}
