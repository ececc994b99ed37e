package logging

import "github.com/xeviknal/hawkular-alerts/types"

// NopLogger discards every message. It is the Manager's default Logger
// when no Option supplies one.
type NopLogger struct{}

// Compile-time assertion that NopLogger implements Logger.
var _ types.Logger = NopLogger{}

// Nop returns a Logger that discards all output.
func Nop() NopLogger {
	return NopLogger{}
}

// Debug discards the message.
func (NopLogger) Debug(string, ...any) {}

// Info discards the message.
func (NopLogger) Info(string, ...any) {}

// Warn discards the message.
func (NopLogger) Warn(string, ...any) {}

// Error discards the message.
func (NopLogger) Error(string, ...any) {}

// Fatal discards the message. Unlike SlogLogger, it does not call os.Exit:
// a no-op logger should never terminate the process on behalf of a caller
// that chose not to wire a real logger.
func (NopLogger) Fatal(string, ...any) {}
