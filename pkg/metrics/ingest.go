package metrics

import (
	"github.com/causetlabs/causet/pkg/ingest"
)

// NewIngestMetrics creates a Prometheus-backed ingest.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). The
// pipeline treats a nil Metrics as a no-op, so disabled metrics cost nothing
// on the hot path.
//
// Example usage:
//
//	metrics.InitRegistry()
//	p, err := ingest.New(cfg, journal, cursor, notifier, metrics.NewIngestMetrics())
func NewIngestMetrics() ingest.Metrics {
	if !IsEnabled() || newPrometheusIngestMetrics == nil {
		return nil
	}
	return newPrometheusIngestMetrics()
}

// newPrometheusIngestMetrics is implemented in pkg/metrics/prometheus.
// The indirection keeps this package decoupled from the implementation.
var newPrometheusIngestMetrics func() ingest.Metrics

// RegisterIngestMetricsConstructor registers the Prometheus ingest metrics
// constructor. Called by pkg/metrics/prometheus during package initialization.
func RegisterIngestMetricsConstructor(constructor func() ingest.Metrics) {
	newPrometheusIngestMetrics = constructor
}
