package election

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/xeviknal/hawkular-alerts/types"
)

// Common errors for election operations.
var (
	ErrNotLeader       = errors.New("not the coordinator")
	ErrLeadershipLost  = errors.New("leadership was lost")
	ErrInvalidDuration = errors.New("invalid lease duration")
)

// NATSElection implements coordinator election using a NATS KV store.
//
// Uses atomic KV operations for leader election:
//   - Create (atomic): Acquire coordinator status if the key doesn't exist
//   - Update (with revision): Renew coordinator status if still holding the lease
//   - Delete: Release coordinator status
//
// The leader key holds the coordinator's node address and is automatically
// deleted when the TTL expires, allowing automatic failover.
//
// All fields are protected by mu for thread-safe concurrent access.
type NATSElection struct {
	kv          jetstream.KeyValue
	key         string
	mu          sync.RWMutex
	nodeAddress string
	revision    uint64
	isLeader    bool
}

// Compile-time assertion that NATSElection implements ElectionAgent.
var _ types.ElectionAgent = (*NATSElection)(nil)

// NewNATSElection creates a new NATS KV-based election agent.
//
// The KV bucket should be configured with a short TTL (e.g., 10-30s)
// for automatic coordinator failover when the current coordinator crashes.
//
// Parameters:
//   - kv: JetStream KV bucket for election coordination
//   - key: Key name for the leadership claim (e.g., "coordinator")
//
// Returns:
//   - *NATSElection: New election agent instance
//
// Example:
//
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
//	    Bucket:  "parti-election",
//	    TTL:     30 * time.Second,
//	    Storage: jetstream.FileStorage,
//	})
//	election := election.NewNATSElection(kv, "coordinator")
func NewNATSElection(kv jetstream.KeyValue, key string) *NATSElection {
	return &NATSElection{
		kv:          kv,
		key:         key,
		nodeAddress: "",
		revision:    0,
		isLeader:    false,
	}
}

// RequestLeadership attempts to acquire or maintain coordinator status.
//
// Uses atomic Create operation for initial acquisition and Update for renewal.
// The lease duration is enforced by the KV bucket's TTL configuration.
//
// Parameters:
//   - ctx: Context for timeout
//   - nodeAddress: The canonical address of the node requesting leadership
//   - leaseDuration: Lease duration in seconds (unused, TTL set at bucket level)
//
// Returns:
//   - bool: true if leadership acquired/held, false otherwise
//   - error: Election error or context cancellation
func (e *NATSElection) RequestLeadership(ctx context.Context, nodeAddress string, leaseDuration int64) (bool, error) {
	if leaseDuration <= 0 {
		return false, ErrInvalidDuration
	}

	// Check if already coordinator with the same node address.
	isLeader, currentAddress, _ := e.getLeaderState()

	// If already coordinator with the same node address, try to renew.
	if isLeader && currentAddress == nodeAddress {
		err := e.RenewLeadership(ctx)
		if err == nil {
			return true, nil
		}
		// Leadership lost, fall through to try acquiring again.
		e.clearLeadership()
	}

	// Try to acquire leadership atomically.
	value := []byte(fmt.Sprintf("%s:%d", nodeAddress, time.Now().Unix()))

	revision, err := e.kv.Create(ctx, e.key, value)
	if err != nil {
		// Key already exists - another node holds the lease.
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create leader key: %w", err)
	}

	// Successfully acquired coordinator status.
	e.setLeaderState(true, nodeAddress, revision)

	return true, nil
}

// RenewLeadership renews the current coordinator lease.
//
// Uses Update with revision check to ensure we still hold the lease.
// If another node claimed coordinator status, this will fail.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - error: ErrNotLeader if not the coordinator, ErrLeadershipLost if lost, nil on success
func (e *NATSElection) RenewLeadership(ctx context.Context) error {
	isLeader, nodeAddress, revision := e.getLeaderState()

	if !isLeader {
		return ErrNotLeader
	}

	// Update with our current revision to renew.
	value := []byte(fmt.Sprintf("%s:%d", nodeAddress, time.Now().Unix()))

	newRevision, err := e.kv.Update(ctx, e.key, value, revision)
	if err != nil {
		e.clearLeadership()

		return fmt.Errorf("%w: %w", ErrLeadershipLost, err)
	}

	// Update our revision.
	e.mu.Lock()
	e.revision = newRevision
	e.mu.Unlock()

	return nil
}

// ReleaseLeadership voluntarily releases coordinator status.
//
// Deletes the leader key to allow immediate failover to another node.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - error: Release error or context cancellation
func (e *NATSElection) ReleaseLeadership(ctx context.Context) error {
	isLeader, _, _ := e.getLeaderState()

	if !isLeader {
		return ErrNotLeader
	}

	err := e.kv.Delete(ctx, e.key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete leader key: %w", err)
	}

	e.setLeaderState(false, "", 0)

	return nil
}

// IsLeader checks if this node is currently the coordinator.
//
// Verifies coordinator status by checking if the key exists and matches
// our held revision.
//
// Parameters:
//   - ctx: Context for timeout
//
// Returns:
//   - bool: true if this node is the coordinator
//   - error: Check error or context cancellation
func (e *NATSElection) IsLeader(ctx context.Context) (bool, error) {
	isLeader, _, revision := e.getLeaderState()

	if !isLeader {
		return false, nil
	}

	// Verify coordinator status by checking the key.
	entry, err := e.kv.Get(ctx, e.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			e.clearLeadership()

			return false, nil
		}

		return false, fmt.Errorf("failed to get leader key: %w", err)
	}

	// Check if the key still reflects our revision.
	if entry.Revision() != revision {
		e.clearLeadership()

		return false, nil
	}

	return true, nil
}

// LeaderAddress returns the current coordinator's node address.
//
// Returns:
//   - string: Node address if this instance is the coordinator, empty otherwise
func (e *NATSElection) LeaderAddress() string {
	_, nodeAddress, _ := e.getLeaderState()
	return nodeAddress
}

// getLeaderState returns the current leadership state (thread-safe).
func (e *NATSElection) getLeaderState() (isLeader bool, nodeAddress string, revision uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.isLeader, e.nodeAddress, e.revision
}

// setLeaderState updates the leadership state (thread-safe).
func (e *NATSElection) setLeaderState(isLeader bool, nodeAddress string, revision uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = isLeader
	e.nodeAddress = nodeAddress
	e.revision = revision
}

// clearLeadership clears the leadership flag (thread-safe).
func (e *NATSElection) clearLeadership() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isLeader = false
}
