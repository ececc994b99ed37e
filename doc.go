// Package partitionmanager assigns tenant-scoped alert triggers to cluster
// nodes via consistent hashing, keeps every node's local assignment in
// sync as membership changes, and relays trigger-lifecycle events and
// runtime samples between nodes.
//
// # Quick Start
//
// Basic usage against a NATS JetStream substrate:
//
//	cfg := partitionmanager.DefaultConfig()
//	cfg.NATSURL = "nats://localhost:4222"
//	cfg.NodeAddress = "alert-worker-7:4222"
//
//	mgr, err := partitionmanager.New(cfg, store, membership, definitions)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	mgr.RegisterTriggerListener(engine)
//	mgr.RegisterDataListener(engine)
//
//	if err := mgr.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer mgr.Stop(context.Background())
//
// # Key Features
//
//   - Consistent-hash placement: triggers remap with minimal churn as
//     nodes join or leave.
//   - Coordinator-led reconciliation: one elected node rebuilds the
//     bucket table per membership view change; every node republishes its
//     own delta to the local engine.
//   - Event buses for trigger lifecycle and runtime samples, built on the
//     same replicated keyed store as partition state.
//
// # Architecture
//
// A Manager wires together four collaborators: a Partition State Store
// holding the BUCKETS/CURRENT/PREVIOUS triple, a Topology Reconciler that
// rebuilds the bucket table and re-places triggers on every membership
// view change, and two event buses (trigger, data) that relay lifecycle
// events and runtime samples between nodes over the same substrate.
//
// # Single-node mode
//
// When Config.NATSURL is empty, the Manager runs with no substrate
// transport: NotifyTrigger/NotifyData/NotifyEvent are no-ops, no registered
// listener is ever invoked, and no cross-node propagation occurs. The lone
// node owns every trigger implicitly.
package partitionmanager
