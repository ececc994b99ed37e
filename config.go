package partitionmanager

import (
	"fmt"
	"time"
)

// Config is the configuration for the Manager.
//
// All duration fields accept standard Go duration strings like "30s", "5m"
// when loaded from YAML.
type Config struct {
	// NATSURL is the substrate connection string. Empty means no
	// transport: the Manager runs in single-node mode (§5, invariant 9).
	NATSURL string `yaml:"natsUrl"`

	// NodeAddress is this process's canonical address. The Manager uses it
	// only to name its own NATS connection and in its startup log; the
	// NodeId and heartbeat key come from the MembershipProvider passed to
	// New (membership.Config.CanonicalAddr). No default is applied when it
	// is unset.
	NodeAddress string `yaml:"nodeAddress"`

	// PartitionBucket names the KV bucket backing the BUCKETS/CURRENT/
	// PREVIOUS/EPOCH cells (§4.4). Consumed by whoever provisions the
	// KeyedStore passed into New, not by the Manager itself.
	PartitionBucket string `yaml:"partitionBucket"`

	// TriggersBucket names the KV bucket backing the Trigger Event Bus (§4.6).
	TriggersBucket string `yaml:"triggersBucket"`

	// DataBucket names the KV bucket backing the Data Event Bus (§4.7).
	DataBucket string `yaml:"dataBucket"`

	// HeartbeatBucket names the KV bucket backing membership heartbeats.
	HeartbeatBucket string `yaml:"heartbeatBucket"`

	// ElectionBucket names the KV bucket backing coordinator election.
	ElectionBucket string `yaml:"electionBucket"`

	// HeartbeatInterval is how often this node republishes its heartbeat.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`

	// HeartbeatTTL is how long a heartbeat remains valid before the
	// bucket expires it, marking that node as departed. Must exceed
	// HeartbeatInterval.
	HeartbeatTTL time.Duration `yaml:"heartbeatTtl"`

	// ViewChangePollInterval is a fallback poll period for substrates
	// whose MembershipProvider cannot push WatchViewChanges notifications.
	// The NATS-backed Provider in this module watches the heartbeat
	// bucket directly and never polls, so this is unused by it; it
	// exists on Config for MembershipProvider implementations that do
	// need it.
	ViewChangePollInterval time.Duration `yaml:"viewChangePollInterval"`

	// BusEntryTTL is the max-age applied to the triggers/data KV buckets,
	// the garbage backstop for notifications nobody ever consumes (a
	// NotifyTrigger addressed to a node that left the view before
	// delivery; spec §9 Open Question 3).
	BusEntryTTL time.Duration `yaml:"busEntryTtl"`

	// ElectionLeaseSeconds is the coordinator lease duration.
	ElectionLeaseSeconds int64 `yaml:"electionLeaseSeconds"`

	// SnapshotRetryAttempts bounds how many times the Partition State
	// Store retries an incoherent (mid-write) read before giving up.
	SnapshotRetryAttempts int `yaml:"snapshotRetryAttempts"`

	// SnapshotRetryBackoff is the delay between snapshot retries.
	SnapshotRetryBackoff time.Duration `yaml:"snapshotRetryBackoff"`

	// DefinitionsLoadTimeout bounds the Topology Reconciler's cold-start
	// load from the Definitions Store (§4.5 step 4, §5).
	DefinitionsLoadTimeout time.Duration `yaml:"definitionsLoadTimeout"`

	// StartupTimeout bounds KV bucket provisioning during Start.
	StartupTimeout time.Duration `yaml:"startupTimeout"`

	// ShutdownTimeout bounds graceful shutdown during Stop.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns a Config with production-sensible defaults.
func DefaultConfig() Config {
	return Config{
		PartitionBucket:        "partition-state",
		TriggersBucket:         "trigger-bus",
		DataBucket:             "data-bus",
		HeartbeatBucket:        "partition-heartbeat",
		ElectionBucket:         "partition-election",
		HeartbeatInterval:      5 * time.Second,
		HeartbeatTTL:           15 * time.Second,
		ViewChangePollInterval: 5 * time.Second,
		BusEntryTTL:            5 * time.Minute,
		ElectionLeaseSeconds:   15,
		SnapshotRetryAttempts:  3,
		SnapshotRetryBackoff:   50 * time.Millisecond,
		DefinitionsLoadTimeout: 10 * time.Second,
		StartupTimeout:         30 * time.Second,
		ShutdownTimeout:        10 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.PartitionBucket == "" {
		cfg.PartitionBucket = defaults.PartitionBucket
	}
	if cfg.TriggersBucket == "" {
		cfg.TriggersBucket = defaults.TriggersBucket
	}
	if cfg.DataBucket == "" {
		cfg.DataBucket = defaults.DataBucket
	}
	if cfg.HeartbeatBucket == "" {
		cfg.HeartbeatBucket = defaults.HeartbeatBucket
	}
	if cfg.ElectionBucket == "" {
		cfg.ElectionBucket = defaults.ElectionBucket
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if cfg.HeartbeatTTL == 0 {
		cfg.HeartbeatTTL = defaults.HeartbeatTTL
	}
	if cfg.ViewChangePollInterval == 0 {
		cfg.ViewChangePollInterval = defaults.ViewChangePollInterval
	}
	if cfg.BusEntryTTL == 0 {
		cfg.BusEntryTTL = defaults.BusEntryTTL
	}
	if cfg.ElectionLeaseSeconds == 0 {
		cfg.ElectionLeaseSeconds = defaults.ElectionLeaseSeconds
	}
	if cfg.SnapshotRetryAttempts == 0 {
		cfg.SnapshotRetryAttempts = defaults.SnapshotRetryAttempts
	}
	if cfg.SnapshotRetryBackoff == 0 {
		cfg.SnapshotRetryBackoff = defaults.SnapshotRetryBackoff
	}
	if cfg.DefinitionsLoadTimeout == 0 {
		cfg.DefinitionsLoadTimeout = defaults.DefinitionsLoadTimeout
	}
	if cfg.StartupTimeout == 0 {
		cfg.StartupTimeout = defaults.StartupTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
}

// Validate checks for contradictory configuration values.
//
//   - HeartbeatTTL must be >= 2*HeartbeatInterval, to allow one missed
//     heartbeat before a node is considered departed.
//   - ElectionLeaseSeconds must be > 0.
//   - SnapshotRetryAttempts must be > 0.
func (cfg *Config) Validate() error {
	if cfg.HeartbeatTTL < 2*cfg.HeartbeatInterval {
		return fmt.Errorf("%w: HeartbeatTTL (%v) must be >= 2*HeartbeatInterval (%v)",
			ErrInvalidArgument, cfg.HeartbeatTTL, cfg.HeartbeatInterval)
	}
	if cfg.ElectionLeaseSeconds <= 0 {
		return fmt.Errorf("%w: ElectionLeaseSeconds must be > 0, got %d", ErrInvalidArgument, cfg.ElectionLeaseSeconds)
	}
	if cfg.SnapshotRetryAttempts <= 0 {
		return fmt.Errorf("%w: SnapshotRetryAttempts must be > 0, got %d", ErrInvalidArgument, cfg.SnapshotRetryAttempts)
	}

	return nil
}

// TestConfig returns a Config with fast timings, suitable for tests
// against the embedded-NATS harness.
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.HeartbeatTTL = 200 * time.Millisecond
	cfg.BusEntryTTL = 5 * time.Second
	cfg.ElectionLeaseSeconds = 2
	cfg.SnapshotRetryBackoff = 5 * time.Millisecond
	cfg.DefinitionsLoadTimeout = time.Second
	cfg.StartupTimeout = 5 * time.Second
	cfg.ShutdownTimeout = time.Second

	return cfg
}
