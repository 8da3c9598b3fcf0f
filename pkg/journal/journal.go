// journal.go provides the memory-mapped journal file backing the sequencer.
//
// The journal is a single preallocated file mapped into memory and split into
// two fixed, contiguous regions whose boundaries are derived once at open and
// never change for the lifetime of the mapping:
//
//	[0 .. IndexRegionSize)          → Index ring: SlotCount fixed-size event records
//	[IndexRegionSize .. TotalSize)  → Blob region: variable-length payload bytes
//
// One process writes; any number of readers may map the same file read-only.
// All outside access goes through the slot/blob read-write primitives; the
// mapping itself is never handed out.
//
// The blob region is managed by a monotonically advancing write cursor. Bytes
// belonging to evicted index slots are not reclaimed; when the cursor reaches
// the end of the region the configured BlobPolicy decides whether writes are
// refused or the cursor wraps to the region start.
package journal

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/causetlabs/causet/pkg/event"
)

// BlobPolicy selects the behavior when the blob region write cursor reaches
// the end of the region.
type BlobPolicy string

const (
	// BlobPolicyRefuse makes AppendBlob return ErrBlobExhausted once the
	// region is full. Nothing already written is ever touched.
	BlobPolicyRefuse BlobPolicy = "refuse"

	// BlobPolicyWrap resets the write cursor to the region start. Payloads
	// of old live slots may be overwritten; readers detect this through
	// checksum revalidation on copy-out.
	BlobPolicyWrap BlobPolicy = "wrap"
)

// Config describes the journal geometry and blob policy.
type Config struct {
	// TotalSize is the full journal file size in bytes.
	TotalSize uint64

	// IndexRegionSize is the size of the index ring region in bytes. Must be
	// a positive multiple of event.Size and strictly smaller than TotalSize.
	IndexRegionSize uint64

	// BlobPolicy selects refuse or wrap behavior on blob exhaustion.
	BlobPolicy BlobPolicy
}

// Geometry is a read-only snapshot of the derived journal layout.
type Geometry struct {
	TotalSize       uint64
	IndexRegionSize uint64
	SlotCount       uint64
	BlobCapacity    uint64
}

// Journal owns the memory mapping over the journal file.
//
// Journal methods are not internally synchronized: the single-writer
// discipline of the ingest pipeline is assumed (readers use a separate
// read-only mapping, see pkg/reader).
type Journal struct {
	file       *os.File
	data       []byte
	geo        Geometry
	policy     BlobPolicy
	blobCursor uint64
	readonly   bool
	closed     bool
}

// validate checks the configured geometry before any file I/O.
func (c Config) validate() error {
	if c.IndexRegionSize == 0 || c.IndexRegionSize%event.Size != 0 {
		return fmt.Errorf("%w: index region size %d not a positive multiple of record size %d",
			ErrGeometryMismatch, c.IndexRegionSize, event.Size)
	}
	if c.IndexRegionSize/event.Size < 2 {
		return fmt.Errorf("%w: index ring needs at least 2 slots", ErrGeometryMismatch)
	}
	if c.TotalSize <= c.IndexRegionSize {
		return fmt.Errorf("%w: total size %d leaves no blob region past index region %d",
			ErrGeometryMismatch, c.TotalSize, c.IndexRegionSize)
	}
	switch c.BlobPolicy {
	case BlobPolicyRefuse, BlobPolicyWrap, "":
	default:
		return fmt.Errorf("invalid blob policy %q", c.BlobPolicy)
	}
	return nil
}

// Open creates or opens the journal file at path with the given geometry.
//
// A new file is preallocated to cfg.TotalSize. An existing file must match
// cfg.TotalSize exactly; a mismatch is fatal at startup (ErrGeometryMismatch)
// rather than silently truncated or reinterpreted.
func Open(path string, cfg Config) (*Journal, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	policy := cfg.BlobPolicy
	if policy == "" {
		policy = BlobPolicyWrap
	}

	info, err := os.Stat(path)
	switch {
	case err == nil:
		if uint64(info.Size()) != cfg.TotalSize {
			return nil, fmt.Errorf("%w: file is %d bytes, configured total size is %d",
				ErrGeometryMismatch, info.Size(), cfg.TotalSize)
		}
	case os.IsNotExist(err):
		// Created below.
	default:
		return nil, fmt.Errorf("stat journal: %w", err)
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := f.Truncate(int64(cfg.TotalSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("preallocate journal: %w", err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(cfg.TotalSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap journal: %w", err)
	}

	return &Journal{
		file: f,
		data: data,
		geo: Geometry{
			TotalSize:       cfg.TotalSize,
			IndexRegionSize: cfg.IndexRegionSize,
			SlotCount:       cfg.IndexRegionSize / event.Size,
			BlobCapacity:    cfg.TotalSize - cfg.IndexRegionSize,
		},
		policy: policy,
	}, nil
}

// OpenReadOnly maps an existing journal file read-only. Write primitives
// return ErrReadOnly. Observer processes must use this: the file is shared
// with a live writer and never theirs to mutate.
func OpenReadOnly(path string, cfg Config) (*Journal, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat journal: %w", err)
	}
	if uint64(info.Size()) != cfg.TotalSize {
		f.Close()
		return nil, fmt.Errorf("%w: file is %d bytes, configured total size is %d",
			ErrGeometryMismatch, info.Size(), cfg.TotalSize)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(cfg.TotalSize), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap journal: %w", err)
	}

	return &Journal{
		file: f,
		data: data,
		geo: Geometry{
			TotalSize:       cfg.TotalSize,
			IndexRegionSize: cfg.IndexRegionSize,
			SlotCount:       cfg.IndexRegionSize / event.Size,
			BlobCapacity:    cfg.TotalSize - cfg.IndexRegionSize,
		},
		policy:   cfg.BlobPolicy,
		readonly: true,
	}, nil
}

// Geometry returns the derived journal layout.
func (j *Journal) Geometry() Geometry {
	return j.geo
}

// SlotCount returns the number of event slots in the index ring.
func (j *Journal) SlotCount() uint64 {
	return j.geo.SlotCount
}

// BlobCapacity returns the blob region size in bytes.
func (j *Journal) BlobCapacity() uint64 {
	return j.geo.BlobCapacity
}

// BlobCursor returns the current blob write cursor (bytes consumed since the
// region start or the last wrap).
func (j *Journal) BlobCursor() uint64 {
	return j.blobCursor
}

// WriteSlot copies the fixed-size event record into the index ring at the
// given physical slot.
func (j *Journal) WriteSlot(phys uint64, ev event.Event) error {
	if j.closed {
		return ErrJournalClosed
	}
	if j.readonly {
		return ErrReadOnly
	}
	if phys >= j.geo.SlotCount {
		return fmt.Errorf("%w: slot %d, ring has %d", ErrSlotOutOfRange, phys, j.geo.SlotCount)
	}
	off := phys * event.Size
	return ev.Marshal(j.data[off : off+event.Size])
}

// ReadSlot copies the event record out of the index ring at the given
// physical slot.
func (j *Journal) ReadSlot(phys uint64) (event.Event, error) {
	if j.closed {
		return event.Event{}, ErrJournalClosed
	}
	if phys >= j.geo.SlotCount {
		return event.Event{}, fmt.Errorf("%w: slot %d, ring has %d", ErrSlotOutOfRange, phys, j.geo.SlotCount)
	}
	off := phys * event.Size
	return event.Unmarshal(j.data[off : off+event.Size])
}

// AppendBlob writes payload bytes at the blob cursor and returns the offset
// (relative to the blob region start) actually used.
//
// On exhaustion the configured policy applies: refuse returns
// ErrBlobExhausted, wrap resets the cursor to the region start. A payload
// larger than the whole region is always ErrBlobTooLarge.
func (j *Journal) AppendBlob(p []byte) (uint64, error) {
	if j.closed {
		return 0, ErrJournalClosed
	}
	if j.readonly {
		return 0, ErrReadOnly
	}
	n := uint64(len(p))
	if n > j.geo.BlobCapacity {
		return 0, fmt.Errorf("%w: %d > %d", ErrBlobTooLarge, n, j.geo.BlobCapacity)
	}
	if j.blobCursor+n > j.geo.BlobCapacity {
		if j.policy == BlobPolicyRefuse {
			return 0, ErrBlobExhausted
		}
		j.blobCursor = 0
	}
	off := j.blobCursor
	copy(j.data[j.geo.IndexRegionSize+off:], p)
	j.blobCursor += n
	return off, nil
}

// ReadBlob copies n payload bytes starting at the given blob-relative offset.
func (j *Journal) ReadBlob(off uint64, n int) ([]byte, error) {
	if j.closed {
		return nil, ErrJournalClosed
	}
	// Checked as off > cap || n > cap-off so a huge offset cannot wrap the
	// sum past the guard.
	if n < 0 || off > j.geo.BlobCapacity || uint64(n) > j.geo.BlobCapacity-off {
		return nil, fmt.Errorf("%w: offset %d length %d, capacity %d", ErrBlobOutOfRange, off, n, j.geo.BlobCapacity)
	}
	out := make([]byte, n)
	copy(out, j.data[j.geo.IndexRegionSize+off:])
	return out, nil
}

// Sync schedules dirty pages for writeback. Async semantics: the mmap already
// makes the data crash-visible, the kernel handles the actual flush.
func (j *Journal) Sync() error {
	if j.closed {
		return ErrJournalClosed
	}
	if j.readonly {
		return nil
	}
	if err := unix.Msync(j.data, unix.MS_ASYNC); err != nil {
		return fmt.Errorf("msync: %w", err)
	}
	return nil
}

// Close flushes and unmaps the journal. Idempotent.
func (j *Journal) Close() error {
	if j.closed {
		return nil
	}
	j.closed = true

	if j.data != nil {
		if !j.readonly {
			_ = unix.Msync(j.data, unix.MS_SYNC)
		}
		if err := unix.Munmap(j.data); err != nil {
			return fmt.Errorf("munmap: %w", err)
		}
		j.data = nil
	}
	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("close file: %w", err)
		}
		j.file = nil
	}
	return nil
}
