package partitionmanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xeviknal/hawkular-alerts/definitions"
	"github.com/xeviknal/hawkular-alerts/internal/election"
	"github.com/xeviknal/hawkular-alerts/internal/membership"
	"github.com/xeviknal/hawkular-alerts/internal/metrics"
	"github.com/xeviknal/hawkular-alerts/internal/natsstore"
	"github.com/xeviknal/hawkular-alerts/types"

	testharness "github.com/xeviknal/hawkular-alerts/testing"
)

type discardLogger struct{}

func (discardLogger) Debug(string, ...any) {}
func (discardLogger) Info(string, ...any)  {}
func (discardLogger) Warn(string, ...any)  {}
func (discardLogger) Error(string, ...any) {}
func (discardLogger) Fatal(string, ...any) {}

type recordingTriggerListener struct {
	mu         sync.Mutex
	triggerOps []Operation
	local      map[string][]string
}

func (l *recordingTriggerListener) OnTriggerChange(op Operation, _, _ string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.triggerOps = append(l.triggerOps, op)
}

func (l *recordingTriggerListener) OnPartitionChange(local, _, _ map[string][]string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.local = local
}

func (l *recordingTriggerListener) ops() []Operation {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Operation, len(l.triggerOps))
	copy(out, l.triggerOps)

	return out
}

func (l *recordingTriggerListener) localCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, ids := range l.local {
		n += len(ids)
	}

	return n
}

type recordingDataListener struct {
	mu     sync.Mutex
	data   []types.Sample
	events []types.Sample
}

func (l *recordingDataListener) OnNewData(sample types.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.data = append(l.data, sample)
}

func (l *recordingDataListener) OnNewEvent(sample types.Sample) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, sample)
}

func (l *recordingDataListener) dataCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.data)
}

// TestManager_SingleNodeModeNeverFiresListeners covers invariant 9: with
// no substrate configured, publish calls are pure no-ops and never touch
// a KeyedStore, a MembershipProvider, or a registered listener.
func TestManager_SingleNodeModeNeverFiresListeners(t *testing.T) {
	cfg := TestConfig()

	mgr, err := New(cfg, nil, nil, nil, WithLogger(discardLogger{}))
	require.NoError(t, err)
	require.False(t, mgr.IsDistributed())

	listener := &recordingTriggerListener{}
	mgr.RegisterTriggerListener(listener)

	dataListener := &recordingDataListener{}
	mgr.RegisterDataListener(dataListener)

	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop(context.Background()) //nolint:errcheck

	mgr.NotifyTrigger(OpAdd, "t1", "x")
	require.Empty(t, listener.ops(), "single-node mode must never invoke the trigger listener")

	mgr.NotifyData(types.Sample{Data: []byte("v")})
	require.Zero(t, dataListener.dataCount(), "single-node mode has no peers to deliver to")
}

func TestNew_RejectsMissingStoreOrMembershipWhenDistributed(t *testing.T) {
	cfg := TestConfig()
	cfg.NATSURL = "nats://127.0.0.1:4222"

	_, err := New(cfg, nil, nil, nil)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestManager_StartTwiceFails(t *testing.T) {
	mgr, err := New(TestConfig(), nil, nil, nil, WithLogger(discardLogger{}))
	require.NoError(t, err)

	require.NoError(t, mgr.Start(context.Background()))
	defer mgr.Stop(context.Background()) //nolint:errcheck

	require.ErrorIs(t, mgr.Start(context.Background()), ErrAlreadyStarted)
}

func TestManager_StopWithoutStartFails(t *testing.T) {
	mgr, err := New(TestConfig(), nil, nil, nil, WithLogger(discardLogger{}))
	require.NoError(t, err)

	require.ErrorIs(t, mgr.Stop(context.Background()), ErrNotStarted)
}

// threeNodeCluster wires three Managers sharing one embedded NATS server
// and one partition-state bucket, distinguished by Config.NodeAddress,
// per SPEC §8's end-to-end scenario coverage.
type threeNodeCluster struct {
	managers         []*Manager
	triggerListeners []*recordingTriggerListener
	dataListeners    []*recordingDataListener
	providers        []*membership.Provider
}

func newThreeNodeCluster(t *testing.T) *threeNodeCluster {
	t.Helper()

	ns, nc := testharness.StartEmbeddedNATS(t)

	partitionKV := testharness.CreateJetStreamKV(t, nc, "e2e-partition")
	store := natsstore.New(partitionKV)

	heartbeatKV := testharness.CreateJetStreamKV(t, nc, "e2e-heartbeat")
	electionKV := testharness.CreateJetStreamKV(t, nc, "e2e-election")

	addrs := []string{"node-a:4222", "node-b:4222", "node-c:4222"}

	defs := definitions.NewStatic([]types.TriggerKey{
		{TenantID: "t1", TriggerID: "a"},
		{TenantID: "t1", TriggerID: "b"},
		{TenantID: "t2", TriggerID: "c"},
	})

	cluster := &threeNodeCluster{}

	for _, addr := range addrs {
		agent := election.NewNATSElection(electionKV, "coordinator")

		provider, err := membership.New(membership.Config{
			Heartbeats:     heartbeatKV,
			Election:       agent,
			Metrics:        metrics.NewNop(),
			Logger:         discardLogger{},
			CanonicalAddr:  addr,
			HeartbeatEvery: 30 * time.Millisecond,
			LeaseSeconds:   2,
		})
		require.NoError(t, err)
		cluster.providers = append(cluster.providers, provider)
	}

	providerCtx, providerCancel := context.WithCancel(context.Background())
	for _, provider := range cluster.providers {
		go provider.Run(providerCtx) //nolint:errcheck
	}
	t.Cleanup(providerCancel)

	require.Eventually(t, func() bool {
		members, err := cluster.providers[0].CurrentMembers(context.Background())
		return err == nil && len(members) == 3
	}, 3*time.Second, 20*time.Millisecond)

	for i, addr := range addrs {
		cfg := TestConfig()
		cfg.NATSURL = ns.ClientURL()
		cfg.NodeAddress = addr
		cfg.TriggersBucket = "e2e-triggers"
		cfg.DataBucket = "e2e-data"

		triggerListener := &recordingTriggerListener{}
		dataListener := &recordingDataListener{}

		mgr, err := New(cfg, store, cluster.providers[i], defs, WithLogger(discardLogger{}))
		require.NoError(t, err)

		mgr.RegisterTriggerListener(triggerListener)
		mgr.RegisterDataListener(dataListener)

		cluster.managers = append(cluster.managers, mgr)
		cluster.triggerListeners = append(cluster.triggerListeners, triggerListener)
		cluster.dataListeners = append(cluster.dataListeners, dataListener)
	}

	for _, mgr := range cluster.managers {
		require.NoError(t, mgr.Start(context.Background()))
	}

	t.Cleanup(func() {
		for _, mgr := range cluster.managers {
			mgr.Stop(context.Background()) //nolint:errcheck
		}
	})

	return cluster
}

func (c *threeNodeCluster) totalLocal() int {
	total := 0
	for _, l := range c.triggerListeners {
		total += l.localCount()
	}

	return total
}

// TestManager_ThreeNodeClusterReconciles covers S1: cold-start
// placement of every known trigger across the cluster via the
// Definitions Store, with every trigger owned by exactly one node.
func TestManager_ThreeNodeClusterReconciles(t *testing.T) {
	cluster := newThreeNodeCluster(t)

	require.Eventually(t, func() bool {
		return cluster.totalLocal() == 3
	}, 5*time.Second, 50*time.Millisecond)
}

// TestManager_ThreeNodeClusterDeliversTriggerMutation covers S4: a
// single-trigger ADD published on one node is routed to the owning node.
func TestManager_ThreeNodeClusterDeliversTriggerMutation(t *testing.T) {
	cluster := newThreeNodeCluster(t)

	require.Eventually(t, func() bool {
		return cluster.totalLocal() == 3
	}, 5*time.Second, 50*time.Millisecond)

	cluster.managers[0].NotifyTrigger(OpAdd, "t3", "new-trigger")

	require.Eventually(t, func() bool {
		for _, l := range cluster.triggerListeners {
			for _, op := range l.ops() {
				if op == OpAdd {
					return true
				}
			}
		}

		return false
	}, 5*time.Second, 50*time.Millisecond)
}

// TestManager_ThreeNodeClusterBroadcastsSamples covers S5: a data sample
// published by one node is delivered to every other node, never the sender.
func TestManager_ThreeNodeClusterBroadcastsSamples(t *testing.T) {
	cluster := newThreeNodeCluster(t)

	require.Eventually(t, func() bool {
		return cluster.totalLocal() == 3
	}, 5*time.Second, 50*time.Millisecond)

	cluster.managers[0].NotifyData(types.Sample{Data: []byte("reading")})

	require.Eventually(t, func() bool {
		return cluster.dataListeners[1].dataCount() >= 1 && cluster.dataListeners[2].dataCount() >= 1
	}, 5*time.Second, 50*time.Millisecond)

	require.Zero(t, cluster.dataListeners[0].dataCount(), "sender never delivers to itself")
}
