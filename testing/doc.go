// Package testing provides test utilities for the partition manager.
//
// It offers an embedded NATS+JetStream server for hermetic, Docker-free
// tests, following Go's convention of a dedicated testing helper package
// (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: single NATS server with JetStream enabled
//   - CreateJetStreamKV: convenience wrapper for KV bucket creation
//
// Example usage:
//
//	import (
//	    "testing"
//	    parttest "github.com/xeviknal/hawkular-alerts/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := parttest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
