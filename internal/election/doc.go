// Package election provides coordinator election implementations for the
// Partition Manager.
//
// Election ensures exactly one cluster node reconciles the bucket table
// and partition map for a given view at any given time. This prevents
// conflicting writes to the partition state when the membership view
// changes.
//
// # NATS KV Election
//
// The primary implementation uses NATS KV store for coordinator election:
//   - Atomic operations prevent split-brain scenarios
//   - TTL-based leases enable automatic failover
//   - Revision checking ensures leadership integrity
//   - Minimal latency for leadership acquisition
//
// # Usage
//
// Basic coordinator election setup:
//
//	// Create KV bucket for election
//	kv, _ := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
//	    Bucket:  "parti-election",
//	    TTL:     30 * time.Second,
//	    Storage: jetstream.FileStorage,
//	})
//
//	// Create election agent
//	election := election.NewNATSElection(kv, "coordinator")
//
//	// Request leadership
//	isLeader, err := election.RequestLeadership(ctx, nodeAddress, 30)
//	if err != nil {
//	    log.Fatalf("Failed to request leadership: %v", err)
//	}
//
//	if isLeader {
//	    // Start background renewal
//	    go func() {
//	        ticker := time.NewTicker(10 * time.Second)
//	        defer ticker.Stop()
//	        for range ticker.C {
//	            if err := election.RenewLeadership(ctx); err != nil {
//	                log.Printf("Lost leadership: %v", err)
//	                break
//	            }
//	        }
//	    }()
//
//	    // Perform reconciliation...
//	}
//
//	// Release leadership on shutdown
//	defer election.ReleaseLeadership(ctx)
//
// # Leadership Lifecycle
//
// Coordinator election follows a strict lifecycle:
//
//  1. Request: Node requests leadership with RequestLeadership()
//  2. Acquire: If successful, the node becomes coordinator
//  3. Renew: Coordinator periodically renews lease with RenewLeadership()
//  4. Release: Coordinator releases on shutdown with ReleaseLeadership()
//  5. Failover: If coordinator crashes, TTL expires and a new coordinator is elected
//
// # Failover Behavior
//
// Automatic failover occurs when:
//   - Coordinator crashes (TTL expires after ~30s)
//   - Coordinator releases leadership (immediate)
//   - Network partition (TTL-based timeout)
//
// The recommended renewal interval is TTL/3 to provide safety margin.
// For a 30s TTL, renew every 10s.
//
// # Concurrency Safety
//
// NATSElection's exported methods are safe for concurrent use; internal
// state is guarded by a mutex. Each node should still use a single
// election instance per bucket/key pair.
//
// # Error Handling
//
// Common errors:
//   - ErrNotLeader: Attempted operation requires coordinator status
//   - ErrLeadershipLost: Leadership was lost (another node took over)
//   - ErrInvalidDuration: Invalid lease duration (must be > 0)
//
// # Performance Characteristics
//
// Operation latencies (typical):
//   - RequestLeadership: 1-5ms (atomic KV Create)
//   - RenewLeadership: 1-3ms (KV Update with revision)
//   - ReleaseLeadership: 1-3ms (KV Delete)
//   - IsLeader: 1-3ms (KV Get)
//
// Failover time:
//   - Immediate: On explicit Release (0-100ms)
//   - Automatic: On crash (TTL + detection time, ~30-35s)
package election
