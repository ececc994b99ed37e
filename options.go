package partitionmanager

import "time"

// Option configures a Manager with optional dependencies.
type Option func(*managerOptions)

// managerOptions holds optional Manager configuration.
type managerOptions struct {
	metrics MetricsCollector
	logger  Logger
	clock   func() time.Time
}

// WithMetrics sets a metrics collector. Defaults to a no-op collector.
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *managerOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger. Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithClock overrides the function used to timestamp the Manager's
// startup log record. Defaults to time.Now. Exposed for deterministic tests.
func WithClock(clock func() time.Time) Option {
	return func(o *managerOptions) {
		o.clock = clock
	}
}
