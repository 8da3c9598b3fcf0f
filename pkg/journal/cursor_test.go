package journal

import (
	"testing"
)

func TestNewCursor_Empty(t *testing.T) {
	c := NewCursor(8)
	if c.Head() != 0 || c.Tail() != 0 {
		t.Errorf("new cursor: head=%d tail=%d, want 0/0", c.Head(), c.Tail())
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestNewCursor_TooSmallPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("NewCursor(1) did not panic")
		}
	}()
	NewCursor(1)
}

func TestAdvanceHead_ClaimsSequentialSlots(t *testing.T) {
	c := NewCursor(4)
	for want := uint64(0); want < 4; want++ {
		got, evicted := c.AdvanceHead()
		if got != want || evicted {
			t.Fatalf("AdvanceHead() = (%d, %v), want (%d, false)", got, evicted, want)
		}
	}
	if c.Len() != 4 {
		t.Errorf("Len() = %d, want 4", c.Len())
	}
}

func TestAdvanceHead_EvictsAtCapacity(t *testing.T) {
	c := NewCursor(4)
	for i := 0; i < 4; i++ {
		c.AdvanceHead()
	}

	got, evicted := c.AdvanceHead()
	if !evicted {
		t.Error("AdvanceHead() at capacity: evicted = false, want true")
	}
	if got != 4 {
		t.Errorf("claimed logical index = %d, want 4", got)
	}
	if c.Tail() != 1 {
		t.Errorf("Tail() = %d, want 1 (exactly one eviction)", c.Tail())
	}
	if c.Len() != c.Capacity() {
		t.Errorf("window = %d after at-capacity advance, want %d", c.Len(), c.Capacity())
	}
}

func TestAdvanceTailTo(t *testing.T) {
	c := NewCursor(8)
	for i := 0; i < 5; i++ {
		c.AdvanceHead()
	}

	if err := c.AdvanceTailTo(3); err != nil {
		t.Fatalf("AdvanceTailTo(3) error = %v", err)
	}
	if c.Tail() != 3 || c.Len() != 2 {
		t.Errorf("tail=%d len=%d, want 3/2", c.Tail(), c.Len())
	}

	if err := c.AdvanceTailTo(6); err == nil {
		t.Error("AdvanceTailTo past head: expected error")
	}
	if err := c.AdvanceTailTo(1); err == nil {
		t.Error("AdvanceTailTo backward: expected error")
	}
	// Advancing to head empties the window.
	if err := c.AdvanceTailTo(5); err != nil {
		t.Fatalf("AdvanceTailTo(head) error = %v", err)
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after draining, want 0", c.Len())
	}
}

func TestPhysicalSlot_Wraps(t *testing.T) {
	c := NewCursor(4)
	if c.PhysicalSlot(0) != 0 || c.PhysicalSlot(5) != 1 || c.PhysicalSlot(8) != 0 {
		t.Error("PhysicalSlot modulo mapping wrong")
	}
}

func TestInWindow(t *testing.T) {
	c := NewCursor(4)
	for i := 0; i < 6; i++ {
		c.AdvanceHead()
	}
	// head=6, tail=2
	cases := []struct {
		logical uint64
		want    bool
	}{
		{1, false}, {2, true}, {5, true}, {6, false},
	}
	for _, tc := range cases {
		if got := c.InWindow(tc.logical); got != tc.want {
			t.Errorf("InWindow(%d) = %v, want %v", tc.logical, got, tc.want)
		}
	}
}

func TestUtilization(t *testing.T) {
	c := NewCursor(4)
	c.AdvanceHead()
	c.AdvanceHead()
	if got := c.Utilization(); got != 0.5 {
		t.Errorf("Utilization() = %v, want 0.5", got)
	}
}
