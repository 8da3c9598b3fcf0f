// Package metrics owns the process-wide Prometheus registry and the
// constructor gates for domain metrics implementations.
//
// Metrics are opt-in: until InitRegistry is called every constructor in this
// package returns nil, and domain code treats a nil metrics handle as a no-op.
// The Prometheus implementations live in pkg/metrics/prometheus and register
// themselves through the constructor indirection during package init, which
// keeps this package free of a direct dependency on the implementations.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registryMu sync.Mutex
	registry   *prometheus.Registry
)

// InitRegistry creates the process registry and enables metrics collection.
// Idempotent; later calls return the registry created by the first.
//
// The registry carries the standard Go runtime and process collectors in
// addition to whatever domain metrics are constructed afterwards.
func InitRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()

	if registry == nil {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return registry
}

// GetRegistry returns the process registry, or nil if InitRegistry has not
// been called.
func GetRegistry() *prometheus.Registry {
	registryMu.Lock()
	defer registryMu.Unlock()
	return registry
}

// IsEnabled reports whether metrics collection is enabled.
func IsEnabled() bool {
	return GetRegistry() != nil
}

// Handler returns the HTTP handler serving the registry in the Prometheus
// exposition format, or nil when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}
