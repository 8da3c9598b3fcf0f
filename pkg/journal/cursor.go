// cursor.go tracks the live window of the index ring.
//
// Head and tail are monotonically increasing logical slot counters; they are
// never wrapped themselves; the physical slot for logical index i is
// i % capacity. The window [tail, head) bounds the slots readers may observe.
//
// Invariants, checked on every transition:
//
//	tail <= head
//	head - tail <= capacity
//
// A violation is a defect in the writer logic, not a runtime condition, and
// panics rather than returning an error.
//
// When the ring is at capacity, AdvanceHead force-advances tail by one before
// advancing head: eviction is oldest-first and unconditional, regardless of
// consumer acknowledgment. A slow external reader can lose data it has not
// yet consumed. That is the accepted trade-off for bounded memory.
package journal

import (
	"fmt"
	"sync/atomic"
)

// Cursor tracks head and tail over an index ring of fixed capacity.
//
// Mutation is single-writer (the ingest pipeline); Head/Tail reads are atomic
// so in-process collaborators can snapshot the window without locks.
type Cursor struct {
	head     atomic.Uint64
	tail     atomic.Uint64
	capacity uint64
}

// NewCursor creates a cursor for a ring with the given slot capacity.
// Panics if capacity < 2: a smaller ring cannot hold a live window.
func NewCursor(capacity uint64) *Cursor {
	if capacity < 2 {
		panic(fmt.Sprintf("journal: ring capacity %d < 2", capacity))
	}
	return &Cursor{capacity: capacity}
}

// Head returns the logical index the next accepted event will occupy.
func (c *Cursor) Head() uint64 { return c.head.Load() }

// Tail returns the logical index of the oldest live slot.
func (c *Cursor) Tail() uint64 { return c.tail.Load() }

// Capacity returns the ring slot capacity.
func (c *Cursor) Capacity() uint64 { return c.capacity }

// Len returns the number of live slots, head - tail.
func (c *Cursor) Len() uint64 {
	// Tail first: a racing reader must never compute a window larger than
	// the one that actually existed.
	tail := c.tail.Load()
	head := c.head.Load()
	return head - tail
}

// Utilization returns the live window as a fraction of capacity.
func (c *Cursor) Utilization() float64 {
	return float64(c.Len()) / float64(c.capacity)
}

// PhysicalSlot converts a logical index to its physical slot in the ring.
func (c *Cursor) PhysicalSlot(logical uint64) uint64 {
	return logical % c.capacity
}

// InWindow reports whether the logical index is currently readable.
func (c *Cursor) InWindow(logical uint64) bool {
	tail := c.tail.Load()
	head := c.head.Load()
	return logical >= tail && logical < head
}

// AdvanceHead claims the next slot for writing and advances head by one.
// Always legal: at capacity the oldest slot is evicted first (tail advances
// by one). Returns the claimed logical index and whether an eviction
// happened.
func (c *Cursor) AdvanceHead() (logical uint64, evicted bool) {
	head := c.head.Load()
	tail := c.tail.Load()
	if head-tail == c.capacity {
		c.tail.Store(tail + 1)
		evicted = true
	}
	logical = head
	c.head.Store(head + 1)
	c.check()
	return logical, evicted
}

// AdvanceTailTo moves tail forward to the given logical index, shrinking the
// live window (consumer acknowledgment). Rejects moving past head or
// backward past the current tail.
func (c *Cursor) AdvanceTailTo(logical uint64) error {
	head := c.head.Load()
	tail := c.tail.Load()
	if logical > head {
		return fmt.Errorf("cursor: tail %d would pass head %d", logical, head)
	}
	if logical < tail {
		return fmt.Errorf("cursor: tail %d would move backward past %d", logical, tail)
	}
	c.tail.Store(logical)
	c.check()
	return nil
}

// check enforces the cursor invariants. Violation means the writer logic is
// defective; this is not recoverable at runtime.
func (c *Cursor) check() {
	head := c.head.Load()
	tail := c.tail.Load()
	if tail > head {
		panic(fmt.Sprintf("journal: cursor invariant violated: tail %d > head %d", tail, head))
	}
	if head-tail > c.capacity {
		panic(fmt.Sprintf("journal: cursor invariant violated: window %d exceeds capacity %d", head-tail, c.capacity))
	}
}
