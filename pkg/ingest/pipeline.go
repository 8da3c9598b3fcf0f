// Package ingest implements the event loop that turns inbound UDP datagrams
// into ordered, checksummed journal records.
//
// Datagram wire format: a 32-byte event header (the sender fills NodeID,
// StreamID, Flags and optionally Checksum; LamportTS and PayloadOffset are
// assigned at ingest) followed by the payload bytes. Each datagram is an
// independent candidate event; there is no handshake.
//
// Concurrency model: a fixed number of receiver goroutines keep receive
// operations in flight concurrently (bounded by Config.Depth) and feed a
// single sequencer goroutine, the one logical writer. Per accepted event,
// the sequencer performs lamport assignment, blob write, slot write and head
// advance in that strict order, never interleaved with another event's
// sequence. Readers rely on a slot being fully written before head advances
// past it.
//
// UDP is best-effort: drops beyond the configured in-flight depth surface as
// lamport gaps per node, which is expected and not an error.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/causetlabs/causet/internal/logger"
	"github.com/causetlabs/causet/pkg/bufpool"
	"github.com/causetlabs/causet/pkg/event"
	"github.com/causetlabs/causet/pkg/journal"
)

// MaxDatagramSize is the largest UDP datagram the pipeline accepts.
const MaxDatagramSize = 64 << 10

// DefaultDepth is the default number of concurrently outstanding receives.
const DefaultDepth = 16

// castagnoli is the CRC32C table used for payload checksums.
var castagnoli = crc32.MakeTable(crc32.Castagnoli)

// PayloadChecksum computes the CRC32C the journal stores for a payload.
// Exposed so producers and readers agree on the integrity function.
func PayloadChecksum(payload []byte) uint32 {
	return crc32.Checksum(payload, castagnoli)
}

// Notifier receives the logical index of each committed event. The IPC
// broadcaster satisfies this; a nil Notifier disables notifications.
type Notifier interface {
	Notify(logical uint64)
}

// Config holds the pipeline settings.
type Config struct {
	// BindAddr is the UDP endpoint to receive on, e.g. "0.0.0.0:9000".
	BindAddr string

	// Depth is the number of receive operations kept in flight. Defaults to
	// DefaultDepth.
	Depth int
}

// Pipeline is the ingest event loop. Create with New, drive with Run.
type Pipeline struct {
	cfg      Config
	conn     *net.UDPConn
	journal  *journal.Journal
	cursor   *journal.Cursor
	counters *Counters
	notifier Notifier
	metrics  Metrics
	pool     *bufpool.Pool

	// instanceID identifies this writer process in logs and status output.
	instanceID uuid.UUID

	lamport uint64

	// blobExhausted tracks the current exhaustion episode so it is logged
	// once, not per datagram.
	blobExhausted bool
}

type datagram struct {
	buf []byte
	n   int
}

// New binds the UDP socket and assembles the pipeline. The journal and
// cursor are owned by the caller; notifier and metrics may be nil.
func New(cfg Config, j *journal.Journal, c *journal.Cursor, counters *Counters, notifier Notifier, metrics Metrics) (*Pipeline, error) {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if counters == nil {
		counters = NewCounters()
	}

	addr, err := net.ResolveUDPAddr("udp", cfg.BindAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", cfg.BindAddr, err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("bind %s: %w", cfg.BindAddr, err)
	}

	return &Pipeline{
		cfg:        cfg,
		conn:       conn,
		journal:    j,
		cursor:     c,
		counters:   counters,
		notifier:   notifier,
		metrics:    metrics,
		pool:       bufpool.NewPool(nil),
		instanceID: uuid.New(),
	}, nil
}

// InstanceID returns the writer instance identity.
func (p *Pipeline) InstanceID() uuid.UUID {
	return p.instanceID
}

// Counters returns the pipeline's counter block for read-only snapshots.
func (p *Pipeline) Counters() *Counters {
	return p.counters
}

// LocalAddr returns the bound UDP address.
func (p *Pipeline) LocalAddr() net.Addr {
	return p.conn.LocalAddr()
}

// Run drives the pipeline until ctx is cancelled. On shutdown the socket is
// closed, in-flight receives drain into the sequencer, and Run returns.
// Closing the journal is the caller's responsibility.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Info("ingest pipeline starting",
		logger.KeyAddr, p.conn.LocalAddr().String(),
		logger.KeyDepth, p.cfg.Depth,
		logger.KeyInstanceID, p.instanceID.String(),
	)

	recvCh := make(chan datagram, p.cfg.Depth)

	var receivers sync.WaitGroup
	for i := 0; i < p.cfg.Depth; i++ {
		receivers.Add(1)
		go func() {
			defer receivers.Done()
			p.receiveLoop(recvCh)
		}()
	}

	// Close the socket when ctx ends so blocked receivers unwind.
	stop := context.AfterFunc(ctx, func() {
		p.conn.Close()
	})
	defer stop()

	go func() {
		receivers.Wait()
		close(recvCh)
	}()

	sampleTicker := time.NewTicker(time.Second)
	defer sampleTicker.Stop()
	var lastEvents uint64

	for {
		select {
		case d, ok := <-recvCh:
			if !ok {
				// Receivers are done and the channel is drained.
				logger.Info("ingest pipeline stopped",
					logger.KeyEvents, p.counters.EventsTotal(),
					logger.KeyRejected, p.counters.RejectedTotal(),
				)
				return ctx.Err()
			}
			p.handle(d.buf[:d.n])
			p.pool.Put(d.buf)

		case <-sampleTicker.C:
			events := p.counters.EventsTotal()
			rate := float64(events - lastEvents)
			lastEvents = events
			p.counters.setRate(rate)
			p.metrics.Throughput(rate)
			p.metrics.RingUtilization(p.cursor.Utilization())
		}
	}
}

// receiveLoop keeps one receive operation in flight until the socket closes.
func (p *Pipeline) receiveLoop(recvCh chan<- datagram) {
	for {
		buf := p.pool.Get(MaxDatagramSize)
		n, _, err := p.conn.ReadFromUDP(buf)
		if err != nil {
			p.pool.Put(buf)
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// Transient receive errors are not the datagram's fault and
			// carry nothing to journal; keep the receive slot alive.
			continue
		}
		recvCh <- datagram{buf: buf, n: n}
	}
}

// handle validates one datagram and, if accepted, journals it. Runs only on
// the sequencer goroutine.
func (p *Pipeline) handle(pkt []byte) {
	if len(pkt) < event.Size {
		p.counters.addRejected()
		p.metrics.DatagramRejected(ReasonUndersized)
		return
	}

	hdr, err := event.Unmarshal(pkt[:event.Size])
	if err != nil {
		p.counters.addRejected()
		p.metrics.DatagramRejected(ReasonUndersized)
		return
	}
	payload := pkt[event.Size:]

	// The stored checksum always reflects the value used to detect storage
	// corruption on read. A sender-supplied checksum must match; zero means
	// compute-and-store.
	sum := PayloadChecksum(payload)
	if hdr.Checksum != 0 && hdr.Checksum != sum {
		p.counters.addRejected()
		p.metrics.DatagramRejected(ReasonChecksum)
		return
	}

	off, err := p.journal.AppendBlob(payload)
	if err != nil {
		p.counters.addRejected()
		if errors.Is(err, journal.ErrBlobExhausted) {
			p.counters.addBlobExhausted()
			p.metrics.DatagramRejected(ReasonBlobExhausted)
			if !p.blobExhausted {
				p.blobExhausted = true
				logger.Warn("blob region exhausted, dropping datagrams",
					logger.KeyBlobCursor, p.journal.BlobCursor(),
				)
			}
		} else {
			p.metrics.DatagramRejected(ReasonUndersized)
		}
		return
	}
	p.blobExhausted = false

	// Lamport assignment: exactly one increment per accepted event, never
	// reused. First accepted event gets 1.
	p.lamport++

	flags := hdr.Flags
	if len(payload) > 0 {
		flags |= event.FlagHasPayload
	}
	ev := event.WithFlags(p.lamport, hdr.NodeID, hdr.StreamID, off, sum, flags)

	// Slot content must be fully written before head advances past it.
	logical := p.cursor.Head()
	if err := p.journal.WriteSlot(p.cursor.PhysicalSlot(logical), ev); err != nil {
		// Storage-layer failure is fatal, distinct from a rejected datagram.
		logger.Error("journal write failed", logger.KeyError, err, logger.KeySlot, logical)
		panic(fmt.Sprintf("ingest: slot write failed: %v", err))
	}
	_, evicted := p.cursor.AdvanceHead()

	p.counters.addEvent(uint64(len(pkt)))
	p.metrics.EventAccepted(len(pkt))
	if evicted {
		p.counters.addEvicted()
		p.metrics.SlotEvicted()
	}

	if p.notifier != nil {
		p.notifier.Notify(logical)
	}
}
