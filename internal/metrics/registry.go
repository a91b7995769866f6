// Package metrics exposes optimizer and dispatcher activity as Prometheus
// metrics. Every constructor in this package returns nil when metrics are
// not enabled, and every recorder method tolerates a nil receiver, so
// callers can wire metrics unconditionally and pay zero overhead when
// they're turned off.
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry *prometheus.Registry
	enabled  atomic.Bool
	initOnce sync.Once
)

// InitRegistry creates the package-level Prometheus registry. Safe to call
// multiple times; only the first call takes effect.
func InitRegistry() *prometheus.Registry {
	initOnce.Do(func() {
		registry = prometheus.NewRegistry()
		enabled.Store(true)
	})
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	return enabled.Load()
}

// GetRegistry returns the package-level registry, initializing it if
// necessary.
func GetRegistry() *prometheus.Registry {
	if registry == nil {
		return InitRegistry()
	}
	return registry
}
