package election

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/require"

	partitest "github.com/xeviknal/hawkular-alerts/testing"
)

func TestNATSElection_RequestLeadership(t *testing.T) {
	t.Run("acquires leadership when no coordinator exists", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-1")

		election := NewNATSElection(kv, "coordinator")

		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)
		require.Equal(t, "node-a:7946", election.LeaderAddress())
	})

	t.Run("fails when another node is coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-2")

		// First node becomes coordinator.
		election1 := NewNATSElection(kv, "coordinator")
		isLeader, err := election1.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Second node tries to become coordinator.
		election2 := NewNATSElection(kv, "coordinator")
		isLeader, err = election2.RequestLeadership(ctx, "node-b:7946", 30)
		require.NoError(t, err)
		require.False(t, isLeader)
	})

	t.Run("renews leadership if already coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-3")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Request again (should renew).
		isLeader, err = election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)
	})

	t.Run("returns error for invalid lease duration", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-4")

		election := NewNATSElection(kv, "coordinator")

		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 0)
		require.ErrorIs(t, err, ErrInvalidDuration)
		require.False(t, isLeader)
	})
}

func TestNATSElection_RenewLeadership(t *testing.T) {
	t.Run("renews leadership successfully", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-renew-1")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Renew leadership.
		err = election.RenewLeadership(ctx)
		require.NoError(t, err)
	})

	t.Run("fails if not the coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-renew-2")

		election := NewNATSElection(kv, "coordinator")

		err := election.RenewLeadership(ctx)
		require.ErrorIs(t, err, ErrNotLeader)
	})

	t.Run("fails if leadership was lost", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-renew-3")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// The lease disappears (simulate by deleting the key).
		err = kv.Delete(ctx, "coordinator")
		require.NoError(t, err)

		// Try to renew - should fail.
		err = election.RenewLeadership(ctx)
		require.ErrorIs(t, err, ErrLeadershipLost)
	})
}

func TestNATSElection_ReleaseLeadership(t *testing.T) {
	t.Run("releases leadership successfully", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-release-1")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Release leadership.
		err = election.ReleaseLeadership(ctx)
		require.NoError(t, err)
		require.Empty(t, election.LeaderAddress())

		// Verify key is deleted.
		_, err = kv.Get(ctx, "coordinator")
		require.Error(t, err)
		require.ErrorIs(t, err, jetstream.ErrKeyNotFound)
	})

	t.Run("fails if not the coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-release-2")

		election := NewNATSElection(kv, "coordinator")

		err := election.ReleaseLeadership(ctx)
		require.ErrorIs(t, err, ErrNotLeader)
	})

	t.Run("allows another node to become coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-release-3")

		// First node becomes coordinator.
		election1 := NewNATSElection(kv, "coordinator")
		isLeader, err := election1.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Release leadership.
		err = election1.ReleaseLeadership(ctx)
		require.NoError(t, err)

		// Second node can now become coordinator.
		election2 := NewNATSElection(kv, "coordinator")
		isLeader, err = election2.RequestLeadership(ctx, "node-b:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)
	})
}

func TestNATSElection_IsLeader(t *testing.T) {
	t.Run("returns true when coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-isleader-1")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Check leadership.
		isLeader, err = election.IsLeader(ctx)
		require.NoError(t, err)
		require.True(t, isLeader)
	})

	t.Run("returns false when not coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-isleader-2")

		election := NewNATSElection(kv, "coordinator")

		isLeader, err := election.IsLeader(ctx)
		require.NoError(t, err)
		require.False(t, isLeader)
	})

	t.Run("returns false when key was deleted", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-isleader-3")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Delete the key (simulate another process taking over).
		err = kv.Delete(ctx, "coordinator")
		require.NoError(t, err)

		// Check leadership - should detect we lost it.
		isLeader, err = election.IsLeader(ctx)
		require.NoError(t, err)
		require.False(t, isLeader)
	})

	t.Run("returns false when revision changed", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-isleader-4")

		election := NewNATSElection(kv, "coordinator")

		// Acquire leadership.
		isLeader, err := election.RequestLeadership(ctx, "node-a:7946", 30)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Another process takes over.
		err = kv.Delete(ctx, "coordinator")
		require.NoError(t, err)
		_, err = kv.Create(ctx, "coordinator", []byte("node-b:7946"))
		require.NoError(t, err)

		// Check leadership - should detect revision changed.
		isLeader, err = election.IsLeader(ctx)
		require.NoError(t, err)
		require.False(t, isLeader)
	})
}

func TestNATSElection_LeadershipFailover(t *testing.T) {
	t.Run("automatic failover on TTL expiry", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)

		// Create KV with short TTL for testing.
		js, err := jetstream.New(nc)
		require.NoError(t, err)

		kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:  "test-election-failover",
			TTL:     2 * time.Second, // Short TTL for testing
			Storage: jetstream.MemoryStorage,
		})
		require.NoError(t, err)

		// Node A becomes coordinator.
		election1 := NewNATSElection(kv, "coordinator")
		isLeader, err := election1.RequestLeadership(ctx, "node-a:7946", 2)
		require.NoError(t, err)
		require.True(t, isLeader)

		// Wait for TTL to expire.
		time.Sleep(3 * time.Second)

		// Node B can now become coordinator.
		election2 := NewNATSElection(kv, "coordinator")
		isLeader, err = election2.RequestLeadership(ctx, "node-b:7946", 2)
		require.NoError(t, err)
		require.True(t, isLeader)
	})
}

func TestNATSElection_ConcurrentLeadership(t *testing.T) {
	t.Run("only one node becomes coordinator", func(t *testing.T) {
		ctx := t.Context()

		_, nc := partitest.StartEmbeddedNATS(t)
		kv := partitest.CreateJetStreamKV(t, nc, "test-election-concurrent")

		numNodes := 5
		results := make(chan bool, numNodes)
		errs := make(chan error, numNodes)

		// Start multiple nodes trying to become coordinator.
		for i := range numNodes {
			go func(nodeNum int) {
				election := NewNATSElection(kv, "coordinator")
				nodeAddress := "node-" + string(rune('a'+nodeNum)) + ":7946"
				isLeader, err := election.RequestLeadership(ctx, nodeAddress, 30)
				if err != nil {
					errs <- err
					return
				}
				results <- isLeader
			}(i)
		}

		// Collect results.
		leaderCount := 0
		for range numNodes {
			select {
			case isLeader := <-results:
				if isLeader {
					leaderCount++
				}
			case err := <-errs:
				t.Fatalf("Request leadership failed: %v", err)
			case <-time.After(5 * time.Second):
				t.Fatal("Timeout waiting for leadership requests")
			}
		}

		// Exactly one node should be coordinator.
		require.Equal(t, 1, leaderCount, "Expected exactly one coordinator")
	})
}
