// Package prometheus provides the Prometheus implementations of the domain
// metrics interfaces. Importing this package wires the constructors into
// pkg/metrics; nothing here is used directly by domain code.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/causetlabs/causet/pkg/ingest"
	"github.com/causetlabs/causet/pkg/metrics"
)

func init() {
	metrics.RegisterIngestMetricsConstructor(NewIngestMetrics)
}

// ingestMetrics is the Prometheus implementation of ingest.Metrics.
type ingestMetrics struct {
	eventsTotal     prometheus.Counter
	bytesTotal      prometheus.Counter
	datagramBytes   prometheus.Histogram
	rejectedTotal   *prometheus.CounterVec
	evictedTotal    prometheus.Counter
	ringUtilization prometheus.Gauge
	throughput      prometheus.Gauge
}

// NewIngestMetrics creates a Prometheus-backed ingest.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewIngestMetrics() ingest.Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &ingestMetrics{
		eventsTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "causet_ingest_events_total",
				Help: "Total number of accepted, journaled events",
			},
		),
		bytesTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "causet_ingest_bytes_total",
				Help: "Total datagram bytes accepted",
			},
		),
		datagramBytes: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "causet_ingest_datagram_bytes",
				Help: "Distribution of accepted datagram sizes",
				Buckets: []float64{
					64,    // header-only events
					256,   // small payloads
					1024,  // 1KB
					4096,  // 4KB
					16384, // 16KB
					65536, // 64KB - datagram ceiling
				},
			},
		),
		rejectedTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "causet_ingest_rejected_total",
				Help: "Total dropped datagrams by rejection reason",
			},
			[]string{"reason"}, // "undersized", "checksum", "blob_exhausted"
		),
		evictedTotal: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "causet_ring_evicted_total",
				Help: "Total slots force-evicted from the index ring at capacity",
			},
		),
		ringUtilization: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "causet_ring_utilization",
				Help: "Live window size as a fraction of ring capacity",
			},
		),
		throughput: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "causet_ingest_events_per_second",
				Help: "Rolling accepted-event throughput sample",
			},
		),
	}
}

func (m *ingestMetrics) EventAccepted(bytes int) {
	if m == nil {
		return
	}
	m.eventsTotal.Inc()
	m.bytesTotal.Add(float64(bytes))
	m.datagramBytes.Observe(float64(bytes))
}

func (m *ingestMetrics) DatagramRejected(reason string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

func (m *ingestMetrics) SlotEvicted() {
	if m == nil {
		return
	}
	m.evictedTotal.Inc()
}

func (m *ingestMetrics) RingUtilization(frac float64) {
	if m == nil {
		return
	}
	m.ringUtilization.Set(frac)
}

func (m *ingestMetrics) Throughput(eventsPerSec float64) {
	if m == nil {
		return
	}
	m.throughput.Set(eventsPerSec)
}
