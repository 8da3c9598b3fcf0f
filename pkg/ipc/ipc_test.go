package ipc

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startBroadcaster(t *testing.T) (*Broadcaster, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "causet.sock")
	b, err := Listen(path)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b, path
}

func waitForClients(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() < n {
		if time.Now().After(deadline) {
			t.Fatalf("broadcaster never saw %d clients", n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotifyDeliversSlotIndex(t *testing.T) {
	b, path := startBroadcaster(t)

	c, err := Dial(path)
	require.NoError(t, err)
	defer c.Close()

	waitForClients(t, b, 1)
	b.Notify(42)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := c.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(42), got)
}

func TestNotifyFanOut(t *testing.T) {
	b, path := startBroadcaster(t)

	c1, err := Dial(path)
	require.NoError(t, err)
	defer c1.Close()
	c2, err := Dial(path)
	require.NoError(t, err)
	defer c2.Close()

	waitForClients(t, b, 2)
	b.Notify(7)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, c := range []*Client{c1, c2} {
		got, err := c.Next(ctx)
		require.NoError(t, err)
		require.Equal(t, uint64(7), got)
	}
}

func TestDeadClientDropped(t *testing.T) {
	b, path := startBroadcaster(t)

	c, err := Dial(path)
	require.NoError(t, err)
	waitForClients(t, b, 1)

	require.NoError(t, c.Close())

	// The write may not fail until the kernel buffer drains; notify until
	// the broadcaster notices the broken pipe.
	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("dead client never dropped")
		}
		b.Notify(1)
		time.Sleep(5 * time.Millisecond)
	}
}

func TestSlowClientCannotStallNotify(t *testing.T) {
	b, path := startBroadcaster(t)

	// An observer that connects but never reads. Once its socket buffer
	// fills, every further write to it would block without a deadline.
	slow, err := net.Dial("unix", path)
	require.NoError(t, err)
	defer slow.Close()
	waitForClients(t, b, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		// Far more 8-byte messages than any unix socket buffer holds, so
		// the writes outrun the buffer and hit the deadline.
		for i := 0; i < 1<<17 && b.ClientCount() > 0; i++ {
			b.Notify(uint64(i))
		}
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("Notify stalled on a client that never reads")
	}
	require.Equal(t, 0, b.ClientCount(), "unread client should be dropped")

	// The broadcaster keeps serving observers that do read.
	c, err := Dial(path)
	require.NoError(t, err)
	defer c.Close()
	waitForClients(t, b, 1)
	b.Notify(99)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	got, err := c.Next(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(99), got)
}

func TestNotifyWithoutClientsIsNoop(t *testing.T) {
	b, _ := startBroadcaster(t)
	b.Notify(1)
}

func TestNextCancelledByContext(t *testing.T) {
	_, path := startBroadcaster(t)

	c, err := Dial(path)
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = c.Next(ctx)
	require.Error(t, err)
}

func TestListenReplacesStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "causet.sock")

	b1, err := Listen(path)
	require.NoError(t, err)
	require.NoError(t, b1.Close())

	b2, err := Listen(path)
	require.NoError(t, err)
	require.NoError(t, b2.Close())
}
