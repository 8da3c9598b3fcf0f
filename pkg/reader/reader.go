// Package reader is the read-only consumption interface over the journal.
//
// Collaborators (the hub/API layer) never touch the mapping directly: they
// get geometry, window bounds, counter snapshots and checksum-revalidated
// copy-out reads through a View.
//
// Readers race the writer without locks. They rely on head being advanced
// only after a slot is fully written, and must tolerate a slot falling out
// of the window mid-read: every read re-checks the window after copying and
// every payload read re-validates the stored checksum, retrying once before
// giving up.
package reader

import (
	"errors"
	"fmt"

	"github.com/causetlabs/causet/pkg/event"
	"github.com/causetlabs/causet/pkg/ingest"
	"github.com/causetlabs/causet/pkg/journal"
)

// Reader errors
var (
	// ErrOutOfWindow is returned for logical indexes below tail or at/past
	// head. The slot is either not yet written or already evicted.
	ErrOutOfWindow = errors.New("logical index outside live window")

	// ErrPayloadCorrupt is returned when a payload fails checksum
	// revalidation twice. The blob bytes were overwritten or damaged.
	ErrPayloadCorrupt = errors.New("payload failed checksum revalidation")
)

// View is a read-only facade over a journal, its cursor and the ingest
// counters. Safe for concurrent use; all methods are copy-out.
type View struct {
	journal  *journal.Journal
	cursor   *journal.Cursor
	counters *ingest.Counters
}

// NewView binds a view to a live journal and cursor. counters may be nil for
// observer processes that reconcile stats elsewhere.
func NewView(j *journal.Journal, c *journal.Cursor, counters *ingest.Counters) *View {
	return &View{journal: j, cursor: c, counters: counters}
}

// Geometry returns the journal layout.
func (v *View) Geometry() journal.Geometry {
	return v.journal.Geometry()
}

// Head returns the current logical head.
func (v *View) Head() uint64 { return v.cursor.Head() }

// Tail returns the current logical tail.
func (v *View) Tail() uint64 { return v.cursor.Tail() }

// Utilization returns the live window as a fraction of ring capacity.
func (v *View) Utilization() float64 { return v.cursor.Utilization() }

// Stats returns a counter snapshot, or the zero snapshot when the view has
// no counter source.
func (v *View) Stats() ingest.Snapshot {
	if v.counters == nil {
		return ingest.Snapshot{}
	}
	return v.counters.Snapshot()
}

// ReadEvent copies the event at the given logical index out of the ring.
//
// The window is checked before and after the copy: a slot evicted mid-copy
// may contain a torn or newer record, so the copy is discarded and
// ErrOutOfWindow returned.
func (v *View) ReadEvent(logical uint64) (event.Event, error) {
	if !v.cursor.InWindow(logical) {
		return event.Event{}, fmt.Errorf("%w: index %d, window [%d, %d)",
			ErrOutOfWindow, logical, v.cursor.Tail(), v.cursor.Head())
	}

	ev, err := v.journal.ReadSlot(v.cursor.PhysicalSlot(logical))
	if err != nil {
		return event.Event{}, err
	}

	if !v.cursor.InWindow(logical) {
		return event.Event{}, fmt.Errorf("%w: index %d evicted during read", ErrOutOfWindow, logical)
	}
	return ev, nil
}

// ReadPayload copies the payload of ev out of the blob region and validates
// it against the stored checksum, retrying once on mismatch. A persistent
// mismatch means the blob bytes were overwritten (wrap policy) or corrupted.
func (v *View) ReadPayload(ev event.Event, length int) ([]byte, error) {
	for attempt := 0; attempt < 2; attempt++ {
		p, err := v.journal.ReadBlob(ev.PayloadOffset, length)
		if err != nil {
			return nil, err
		}
		if ingest.PayloadChecksum(p) == ev.Checksum {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: offset %d", ErrPayloadCorrupt, ev.PayloadOffset)
}

// OpenFile maps an existing journal file read-only for an observer process
// and returns a view over it. The observer has no cursor of its own: it
// tracks the window from IPC notifications, so the returned view carries a
// detached cursor the caller advances via Reconcile.
func OpenFile(path string, cfg journal.Config) (*View, *journal.Journal, error) {
	j, err := journal.OpenReadOnly(path, cfg)
	if err != nil {
		return nil, nil, err
	}
	return NewView(j, journal.NewCursor(j.SlotCount()), nil), j, nil
}

// Reconcile advances the view's detached cursor to cover the given committed
// logical index, as learned from an IPC notification or a re-read of head.
// Missed notifications are harmless: any later index covers them.
func (v *View) Reconcile(committed uint64) {
	for v.cursor.Head() <= committed {
		v.cursor.AdvanceHead()
	}
}
