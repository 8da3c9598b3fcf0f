package ingest

import (
	"sync"
	"testing"
)

func TestCountersSnapshot(t *testing.T) {
	c := NewCounters()
	c.addEvent(100)
	c.addEvent(50)
	c.addRejected()
	c.addEvicted()
	c.addBlobExhausted()
	c.setRate(123.5)

	snap := c.Snapshot()
	if snap.EventsTotal != 2 {
		t.Errorf("EventsTotal = %d, want 2", snap.EventsTotal)
	}
	if snap.BytesTotal != 150 {
		t.Errorf("BytesTotal = %d, want 150", snap.BytesTotal)
	}
	if snap.RejectedTotal != 1 || snap.EvictedTotal != 1 || snap.BlobExhaustedTotal != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.EventsPerSecond != 123.5 {
		t.Errorf("EventsPerSecond = %v, want 123.5", snap.EventsPerSecond)
	}
}

func TestCountersConcurrentReads(t *testing.T) {
	c := NewCounters()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			c.addEvent(1)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 10000; i++ {
			_ = c.Snapshot()
		}
	}()
	wg.Wait()

	if got := c.EventsTotal(); got != 10000 {
		t.Errorf("EventsTotal = %d, want 10000", got)
	}
}
