package ingest

// Metrics is the observability hook of the ingest pipeline.
//
// Implementations must be safe for concurrent use. A nil Metrics disables
// instrumentation; the pipeline never requires it. The Prometheus
// implementation lives in pkg/metrics/prometheus.
type Metrics interface {
	// EventAccepted records one accepted event of the given datagram size.
	EventAccepted(bytes int)

	// DatagramRejected records one dropped datagram with a reason label:
	// "undersized", "checksum", "blob_exhausted".
	DatagramRejected(reason string)

	// SlotEvicted records one force-eviction of the oldest slot.
	SlotEvicted()

	// RingUtilization records the live-window fraction (0..1).
	RingUtilization(frac float64)

	// Throughput records the rolling events/sec sample.
	Throughput(eventsPerSec float64)
}

// Rejection reason labels.
const (
	ReasonUndersized    = "undersized"
	ReasonChecksum      = "checksum"
	ReasonBlobExhausted = "blob_exhausted"
)

// nopMetrics is used when no Metrics implementation is wired.
type nopMetrics struct{}

func (nopMetrics) EventAccepted(int)       {}
func (nopMetrics) DatagramRejected(string) {}
func (nopMetrics) SlotEvicted()            {}
func (nopMetrics) RingUtilization(float64) {}
func (nopMetrics) Throughput(float64)      {}
