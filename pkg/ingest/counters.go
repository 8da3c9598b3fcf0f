package ingest

import (
	"math"
	"sync/atomic"
)

// Counters is the process-wide statistics block of the ingest pipeline.
//
// All fields are updated atomically by the writer and read by collaborators
// through Snapshot. The struct is never handed out as a mutable reference
// outside the core; lifecycle is tied to the pipeline.
type Counters struct {
	events        atomic.Uint64
	bytes         atomic.Uint64
	rejected      atomic.Uint64
	evicted       atomic.Uint64
	blobExhausted atomic.Uint64
	eventsPerSec  atomic.Uint64 // float64 bits
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	// EventsTotal is the number of accepted, journaled events.
	EventsTotal uint64 `json:"events_total"`

	// BytesTotal is the number of datagram bytes accepted.
	BytesTotal uint64 `json:"bytes_total"`

	// RejectedTotal is the number of dropped datagrams (undersized,
	// malformed, checksum-mismatched, or refused by blob policy).
	RejectedTotal uint64 `json:"rejected_total"`

	// EvictedTotal is the number of slots force-evicted at capacity.
	EvictedTotal uint64 `json:"evicted_total"`

	// BlobExhaustedTotal counts datagrams dropped because the blob region
	// was full under the refuse policy.
	BlobExhaustedTotal uint64 `json:"blob_exhausted_total"`

	// EventsPerSecond is the most recent rolling throughput sample.
	EventsPerSecond float64 `json:"events_per_second"`
}

// NewCounters creates a zeroed counter block.
func NewCounters() *Counters {
	return &Counters{}
}

func (c *Counters) addEvent(bytes uint64) {
	c.events.Add(1)
	c.bytes.Add(bytes)
}

func (c *Counters) addRejected() {
	c.rejected.Add(1)
}

func (c *Counters) addEvicted() {
	c.evicted.Add(1)
}

func (c *Counters) addBlobExhausted() {
	c.blobExhausted.Add(1)
}

func (c *Counters) setRate(eventsPerSec float64) {
	c.eventsPerSec.Store(math.Float64bits(eventsPerSec))
}

// EventsTotal returns the accepted-event count.
func (c *Counters) EventsTotal() uint64 {
	return c.events.Load()
}

// RejectedTotal returns the rejected-datagram count.
func (c *Counters) RejectedTotal() uint64 {
	return c.rejected.Load()
}

// Snapshot returns a consistent-enough copy for observability. Individual
// fields are atomic; the snapshot as a whole is advisory, not transactional.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		EventsTotal:        c.events.Load(),
		BytesTotal:         c.bytes.Load(),
		RejectedTotal:      c.rejected.Load(),
		EvictedTotal:       c.evicted.Load(),
		BlobExhaustedTotal: c.blobExhausted.Load(),
		EventsPerSecond:    math.Float64frombits(c.eventsPerSec.Load()),
	}
}
