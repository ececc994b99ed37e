package types

import "context"

// ElectionAgent elects a single coordinator among the cluster's live nodes
// for a given view. The coordinator is responsible for:
//   - Reacting to membership changes
//   - Rebuilding the bucket table and partition map
//   - Writing the reconciled partition state
//
// Implementations can use:
//   - NATS KV (built-in, recommended)
//   - External agents (Consul, etcd, Zookeeper)
//   - Custom coordination services
//
// The Manager does not call ElectionAgent itself. membership.Provider calls
// RequestLeadership on every IsCoordinator check, which also renews a lease
// this node already holds; nothing in this module calls RenewLeadership,
// ReleaseLeadership or IsLeader.
type ElectionAgent interface {
	// RequestLeadership attempts to acquire or extend coordinator status.
	//
	// Should use a lease-based mechanism with the specified duration.
	// If already the coordinator, should extend the lease.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - nodeAddress: The canonical address of the node requesting leadership
	//   - leaseDuration: Lease duration in seconds
	//
	// Returns:
	//   - bool: true if leadership acquired/held, false otherwise
	//   - error: Election error (nil on success)
	RequestLeadership(ctx context.Context, nodeAddress string, leaseDuration int64) (bool, error)

	// RenewLeadership renews the current coordinator lease.
	//
	// Not called by this module; RequestLeadership renews a held lease.
	// Should fail if leadership was lost (another node became coordinator).
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - error: Renewal error (nil on success, indicates leadership lost)
	RenewLeadership(ctx context.Context) error

	// ReleaseLeadership voluntarily releases coordinator status.
	//
	// Not called by this module: Stop does not release the lease, which
	// lapses when it is no longer renewed.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - error: Release error (nil on success)
	ReleaseLeadership(ctx context.Context) error

	// IsLeader checks if this node is currently the coordinator.
	//
	// Used for state verification and metrics.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//
	// Returns:
	//   - bool: true if this node is the coordinator
	//   - error: Check error (nil on success)
	IsLeader(ctx context.Context) (bool, error)
}
