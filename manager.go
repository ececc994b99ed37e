package partitionmanager

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/xeviknal/hawkular-alerts/internal/databus"
	"github.com/xeviknal/hawkular-alerts/internal/kvutil"
	"github.com/xeviknal/hawkular-alerts/internal/logging"
	"github.com/xeviknal/hawkular-alerts/internal/metrics"
	"github.com/xeviknal/hawkular-alerts/internal/natsstore"
	"github.com/xeviknal/hawkular-alerts/internal/partitionstore"
	"github.com/xeviknal/hawkular-alerts/internal/reconciler"
	"github.com/xeviknal/hawkular-alerts/internal/triggerbus"
	"github.com/xeviknal/hawkular-alerts/types"
)

// Manager is the Partition Manager's entry point.
//
// Thread Safety:
//   - NotifyTrigger/NotifyData/NotifyEvent are safe for concurrent use.
//   - RegisterTriggerListener/RegisterDataListener must be called before
//     Start; they are read without locking thereafter, matching the
//     engine's own "set once at startup" contract.
//
// Lifecycle: construct with New, call Start, call Stop for graceful
// shutdown. Safe to Stop at most once; Stop after Stop (or without Start)
// returns ErrNotStarted.
type Manager struct {
	cfg         Config
	store       KeyedStore
	membership  MembershipProvider
	definitions DefinitionsStore
	metrics     MetricsCollector
	logger      Logger
	clock       func() time.Time
	distributed bool

	triggerListener TriggerListener
	dataListener    DataListener

	conn           *nats.Conn
	partitionStore *partitionstore.Store
	reconciler     *reconciler.Reconciler
	triggerBus     *triggerbus.Bus
	dataBus        *databus.Bus

	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
}

// New constructs a Manager.
//
// store backs the partition cell (BUCKETS/CURRENT/PREVIOUS). membership
// exposes the cluster's live view and coordinator election; the caller
// owns its lifecycle and must drive its own Run loop (e.g.
// membership.Provider.Run) alongside Manager.Start/Stop — Manager only
// reads from it (Self, CurrentMembers, IsCoordinator, WatchViewChanges)
// and never starts it. definitions supplies the durable trigger set for
// cold-start loads; it may be nil, in which case a cold start yields an
// empty partition.
//
// When cfg.NATSURL is empty the Manager runs in single-node mode (§
// "Single-node mode" above); store and membership may then be nil.
func New(cfg Config, store KeyedStore, membership MembershipProvider, definitions DefinitionsStore, opts ...Option) (*Manager, error) {
	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	distributed := cfg.NATSURL != ""
	if distributed && (store == nil || membership == nil) {
		return nil, fmt.Errorf("%w: store and membership are required when NATSURL is set", ErrInvalidArgument)
	}

	options := &managerOptions{}
	for _, opt := range opts {
		opt(options)
	}

	metricsCollector := options.metrics
	if metricsCollector == nil {
		metricsCollector = metrics.NewNop()
	}

	logger := options.logger
	if logger == nil {
		logger = logging.Nop()
	}

	clock := options.clock
	if clock == nil {
		clock = time.Now
	}

	return &Manager{
		cfg:         cfg,
		store:       store,
		membership:  membership,
		definitions: definitions,
		metrics:     metricsCollector,
		logger:      logger,
		clock:       clock,
		distributed: distributed,
	}, nil
}

// IsDistributed reports whether this Manager is running against a
// substrate transport (Config.NATSURL set) or in single-node mode.
func (m *Manager) IsDistributed() bool {
	return m.distributed
}

// RegisterTriggerListener sets the listener notified of trigger lifecycle
// and partition-assignment events. Must be called before Start;
// replacement after Start is unsupported.
func (m *Manager) RegisterTriggerListener(l TriggerListener) {
	m.triggerListener = l
}

// RegisterDataListener sets the listener notified of runtime samples
// broadcast by other nodes. Must be called before Start; replacement
// after Start is unsupported.
func (m *Manager) RegisterDataListener(l DataListener) {
	m.dataListener = l
}

// NotifyTrigger announces a trigger lifecycle mutation observed on this
// node. Fire-and-forget: failures are logged, never returned. A no-op
// before Start or after Stop.
func (m *Manager) NotifyTrigger(op Operation, tenantID, triggerID string) {
	if !m.started.Load() {
		return
	}

	if err := m.triggerBus.PublishTrigger(m.ctx, op, tenantID, triggerID); err != nil {
		m.logger.Warn("notify trigger failed", "op", op, "tenant_id", tenantID, "trigger_id", triggerID, "error", err)
	}
}

// NotifyData broadcasts a runtime data sample to every other node.
// Fire-and-forget: failures are logged, never returned. A no-op before
// Start or after Stop.
func (m *Manager) NotifyData(sample Sample) {
	if !m.started.Load() {
		return
	}

	sample.Kind = SampleData
	if err := m.dataBus.PublishSample(m.ctx, sample); err != nil {
		m.logger.Warn("notify data failed", "error", err)
	}
}

// NotifyEvent broadcasts a runtime event sample to every other node.
// Fire-and-forget: failures are logged, never returned. A no-op before
// Start or after Stop.
func (m *Manager) NotifyEvent(sample Sample) {
	if !m.started.Load() {
		return
	}

	sample.Kind = SampleEvent
	if err := m.dataBus.PublishSample(m.ctx, sample); err != nil {
		m.logger.Warn("notify event failed", "error", err)
	}
}

// Start wires and starts every collaborator. In distributed mode it dials
// its own NATS connection (independent of whatever connection backs the
// injected store/membership) to provision the trigger and data bus
// buckets, mirroring the teacher's own per-concern KV bucket provisioning
// in Start.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())

	startupCtx := ctx
	if m.cfg.StartupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = context.WithTimeout(ctx, m.cfg.StartupTimeout)
		defer cancel()
	}

	var triggersCell, dataCell types.KeyedStore
	if m.distributed {
		conn, err := nats.Connect(m.cfg.NATSURL, nats.Name(m.cfg.NodeAddress))
		if err != nil {
			m.started.Store(false)
			return fmt.Errorf("%w: connect: %v", ErrSubstrateUnavailable, err)
		}
		m.conn = conn

		js, err := jetstream.New(conn)
		if err != nil {
			m.started.Store(false)
			return fmt.Errorf("%w: jetstream: %v", ErrSubstrateUnavailable, err)
		}

		triggersKV, err := kvutil.EnsureKVBucketWithRetry(startupCtx, js, jetstream.KeyValueConfig{
			Bucket: m.cfg.TriggersBucket,
			TTL:    m.cfg.BusEntryTTL,
		}, 3)
		if err != nil {
			m.started.Store(false)
			return fmt.Errorf("%w: triggers bucket: %v", ErrSubstrateUnavailable, err)
		}

		dataKV, err := kvutil.EnsureKVBucketWithRetry(startupCtx, js, jetstream.KeyValueConfig{
			Bucket: m.cfg.DataBucket,
			TTL:    m.cfg.BusEntryTTL,
		}, 3)
		if err != nil {
			m.started.Store(false)
			return fmt.Errorf("%w: data bucket: %v", ErrSubstrateUnavailable, err)
		}

		triggersCell = natsstore.New(triggersKV)
		dataCell = natsstore.New(dataKV)
	}

	var self NodeId
	if m.membership != nil {
		self = m.membership.Self()
	}

	if m.distributed {
		m.partitionStore = partitionstore.New(m.store, m.metrics, m.logger, m.cfg.SnapshotRetryAttempts, m.cfg.SnapshotRetryBackoff)

		rec, err := reconciler.New(reconciler.Config{
			Store:              m.partitionStore,
			Membership:         m.membership,
			Definitions:        m.definitions,
			Listener:           m.triggerListener,
			Metrics:            m.metrics,
			Logger:             m.logger,
			DefinitionsTimeout: m.cfg.DefinitionsLoadTimeout,
		})
		if err != nil {
			m.started.Store(false)
			return err
		}
		m.reconciler = rec
	}

	triggerBus, err := triggerbus.New(triggerbus.Config{
		Cell:      triggersCell,
		Store:     m.partitionStore,
		Self:      self,
		Listener:  m.triggerListener,
		Metrics:   m.metrics,
		Logger:    m.logger,
		LocalOnly: !m.distributed,
		DeltaFn:   m.publishDelta,
	})
	if err != nil {
		m.started.Store(false)
		return err
	}
	m.triggerBus = triggerBus

	dataBus, err := databus.New(databus.Config{
		Cell:      dataCell,
		Self:      self,
		Listener:  m.dataListener,
		Metrics:   m.metrics,
		Logger:    m.logger,
		LocalOnly: !m.distributed,
	})
	if err != nil {
		m.started.Store(false)
		return err
	}
	m.dataBus = dataBus

	m.logger.Info("partition manager starting", "distributed", m.distributed, "node_address", m.cfg.NodeAddress, "started_at", m.clock())

	if m.distributed {
		m.wg.Add(3)
		go m.runUntilStopped("reconciler", m.reconciler.Run)
		go m.runUntilStopped("trigger-bus", m.triggerBus.Run)
		go m.runUntilStopped("data-bus", m.dataBus.Run)
	}

	return nil
}

// publishDelta bridges the Trigger Event Bus's single-trigger write path
// back into the Topology Reconciler's Delta Publisher, a no-op outside
// distributed mode since the bus never writes to CURRENT in local-only mode.
func (m *Manager) publishDelta(ctx context.Context) {
	if m.reconciler != nil {
		m.reconciler.PublishDelta(ctx)
	}
}

func (m *Manager) runUntilStopped(name string, run func(context.Context) error) {
	defer m.wg.Done()

	if err := run(m.ctx); err != nil {
		m.logger.Error("component exited with error", "component", name, "error", err)
	}
}

// Stop cancels every background goroutine, waits for them to exit, and
// closes the NATS connection opened by Start (if any). Safe to call once;
// a second call returns ErrNotStarted.
func (m *Manager) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	if m.cfg.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ShutdownTimeout)
		defer cancel()
	}

	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		m.logger.Warn("stop timed out waiting for background components")
	}

	if m.conn != nil {
		m.conn.Close()
	}

	return nil
}
