// Package ipc implements the local notification channel between the writer
// and external observer processes.
//
// The writer broadcasts the logical slot index of each newly committed event
// over a unix domain socket as an 8-byte little-endian value. Delivery is
// best-effort: a consumer that misses notifications reconciles by re-reading
// the journal head, so a slow or dead client is dropped after a short write
// deadline, never waited on indefinitely.
package ipc

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// notifyWriteTimeout bounds how long a Notify write may wait on a single
// client. The sequencer calls Notify on its hot path; a client whose socket
// buffer is full gets this long to drain before it is dropped.
const notifyWriteTimeout = 100 * time.Millisecond

// Broadcaster pushes slot-index notifications to all connected observers.
type Broadcaster struct {
	listener net.Listener

	mu      sync.Mutex
	clients []net.Conn
	closed  bool
}

// Listen binds a unix socket at path and starts accepting observers. A stale
// socket file from a previous run is removed first.
func Listen(path string) (*Broadcaster, error) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	l, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}

	b := &Broadcaster{listener: l}
	go b.acceptLoop()
	return b, nil
}

func (b *Broadcaster) acceptLoop() {
	for {
		conn, err := b.listener.Accept()
		if err != nil {
			// Listener closed during shutdown.
			return
		}
		b.mu.Lock()
		if b.closed {
			b.mu.Unlock()
			conn.Close()
			return
		}
		b.clients = append(b.clients, conn)
		b.mu.Unlock()
	}
}

// Notify broadcasts the logical slot index to all connected observers.
// Each write carries a short deadline so a client that stops reading can
// never suspend the caller; clients whose write fails or times out are
// closed and dropped.
func (b *Broadcaster) Notify(logical uint64) {
	var msg [8]byte
	binary.LittleEndian.PutUint64(msg[:], logical)

	b.mu.Lock()
	defer b.mu.Unlock()

	deadline := time.Now().Add(notifyWriteTimeout)
	alive := b.clients[:0]
	for _, c := range b.clients {
		if err := c.SetWriteDeadline(deadline); err != nil {
			c.Close()
			continue
		}
		if _, err := c.Write(msg[:]); err != nil {
			c.Close()
			continue
		}
		alive = append(alive, c)
	}
	b.clients = alive
}

// ClientCount returns the number of currently connected observers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Close stops accepting and disconnects all observers.
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	clients := b.clients
	b.clients = nil
	b.mu.Unlock()

	for _, c := range clients {
		c.Close()
	}
	return b.listener.Close()
}

// Client consumes slot-index notifications from a Broadcaster.
type Client struct {
	conn net.Conn
}

// Dial connects to the writer's notification socket.
func Dial(path string) (*Client, error) {
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", path, err)
	}
	return &Client{conn: conn}, nil
}

// Next blocks until the next notification arrives and returns the logical
// slot index. The context cancels the wait by closing the connection.
func (c *Client) Next(ctx context.Context) (uint64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return 0, err
		}
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.conn.Close()
		case <-done:
		}
	}()

	var msg [8]byte
	if _, err := io.ReadFull(c.conn, msg[:]); err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		return 0, err
	}
	return binary.LittleEndian.Uint64(msg[:]), nil
}

// Close disconnects the client.
func (c *Client) Close() error {
	return c.conn.Close()
}
