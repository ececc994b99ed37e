package partitionmanager

import (
	"errors"

	"github.com/xeviknal/hawkular-alerts/internal/partitionstore"
)

// Sentinel errors returned by the Manager and its collaborators.
var (
	// ErrInvalidArgument is returned when a required constructor argument
	// is missing or a configuration value is contradictory.
	ErrInvalidArgument = errors.New("partitionmanager: invalid argument")

	// ErrSubstrateUnavailable is returned when a KV read or write against
	// the replicated substrate fails (connection loss, bucket missing,
	// server error).
	ErrSubstrateUnavailable = errors.New("partitionmanager: substrate unavailable")

	// ErrDefinitionsUnavailable names a failed cold-start load from the
	// Definitions Store. The reconciler logs such a failure and continues
	// with an empty partition; no method returns this value.
	ErrDefinitionsUnavailable = errors.New("partitionmanager: definitions store unavailable")

	// ErrListenerFault names a registered TriggerListener or DataListener
	// panicking while handling a notification. The panic is recovered and
	// logged; no method returns this value.
	ErrListenerFault = errors.New("partitionmanager: listener fault")

	// ErrInconsistentSnapshot is returned when the Partition State Store
	// cannot obtain a coherent read after exhausting its retry budget.
	// It is the same sentinel partitionstore.Snapshot returns, re-exported
	// here so callers never need to import the internal package to check it.
	ErrInconsistentSnapshot = partitionstore.ErrInconsistentSnapshot

	// ErrNotCoordinator names the condition of this node not holding the
	// coordinator lease. The reconciler skips its rebuild on such a node
	// without an error; no method returns this value.
	ErrNotCoordinator = errors.New("partitionmanager: not coordinator")

	// ErrAlreadyStarted is returned when Start is called on an already
	// running Manager.
	ErrAlreadyStarted = errors.New("partitionmanager: already started")

	// ErrNotStarted is returned when Stop is called on a Manager that
	// was never started.
	ErrNotStarted = errors.New("partitionmanager: not started")
)
