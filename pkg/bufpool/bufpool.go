// Package bufpool provides a tiered buffer pool for datagram receive buffers.
//
// The ingest pipeline keeps a fixed number of receive operations in flight,
// each needing a buffer large enough for a full UDP datagram. Pooling the
// buffers keeps the hot receive path allocation-free and avoids GC pressure
// under bursty arrival.
//
// Three size tiers balance memory efficiency with reuse:
//   - Small (default 2KB): typical sequenced events
//   - Medium (default 16KB): batched or oversized payloads
//   - Large (default 64KB): maximum UDP datagram size
//
// Requests larger than the large tier are allocated directly and not pooled,
// to avoid keeping very large buffers in memory indefinitely.
//
// All operations are safe for concurrent use via sync.Pool.
package bufpool

import (
	"sync"
)

// Default buffer size classes.
// These can be overridden when creating a custom pool with NewPool.
const (
	// DefaultSmallSize covers typical event datagrams (2KB)
	DefaultSmallSize = 2 << 10

	// DefaultMediumSize covers large payloads (16KB)
	DefaultMediumSize = 16 << 10

	// DefaultLargeSize covers the maximum UDP datagram (64KB)
	DefaultLargeSize = 64 << 10
)

// Pool manages a set of byte slice pools organized by size class.
// It automatically selects the appropriate pool based on requested size
// and provides fallback allocation for oversized requests.
type Pool struct {
	small      sync.Pool
	medium     sync.Pool
	large      sync.Pool
	smallSize  int
	mediumSize int
	largeSize  int
}

// Config holds configuration for creating a custom buffer pool.
type Config struct {
	// SmallSize is the size of small buffers (default: 2KB)
	SmallSize int

	// MediumSize is the size of medium buffers (default: 16KB)
	MediumSize int

	// LargeSize is the size of large buffers (default: 64KB)
	LargeSize int
}

// NewPool creates a new buffer pool with the given configuration.
// If config is nil, default values are used.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = &Config{}
	}

	p := &Pool{
		smallSize:  cfg.SmallSize,
		mediumSize: cfg.MediumSize,
		largeSize:  cfg.LargeSize,
	}
	if p.smallSize <= 0 {
		p.smallSize = DefaultSmallSize
	}
	if p.mediumSize <= 0 {
		p.mediumSize = DefaultMediumSize
	}
	if p.largeSize <= 0 {
		p.largeSize = DefaultLargeSize
	}

	p.small = sync.Pool{
		New: func() any {
			buf := make([]byte, p.smallSize)
			return &buf
		},
	}
	p.medium = sync.Pool{
		New: func() any {
			buf := make([]byte, p.mediumSize)
			return &buf
		},
	}
	p.large = sync.Pool{
		New: func() any {
			buf := make([]byte, p.largeSize)
			return &buf
		},
	}

	return p
}

// Get returns a byte slice of at least the requested size, sliced to exactly
// the requested length but backed by a pooled buffer. The caller must call
// Put() when finished or the buffer leaks out of the pool.
//
// For sizes larger than LargeSize, a new slice is allocated directly and will
// not be pooled.
func (p *Pool) Get(size int) []byte {
	var bufPtr *[]byte

	switch {
	case size <= p.smallSize:
		bufPtr = p.small.Get().(*[]byte)
	case size <= p.mediumSize:
		bufPtr = p.medium.Get().(*[]byte)
	case size <= p.largeSize:
		bufPtr = p.large.Get().(*[]byte)
	default:
		return make([]byte, size)
	}

	return (*bufPtr)[:size]
}

// Put returns a buffer to the pool for reuse. The buffer must have been
// obtained from Get() and must not be used after Put(). Oversized buffers
// are dropped for the GC.
func (p *Pool) Put(buf []byte) {
	if buf == nil {
		return
	}

	switch cap(buf) {
	case p.smallSize:
		full := buf[:cap(buf)]
		p.small.Put(&full)
	case p.mediumSize:
		full := buf[:cap(buf)]
		p.medium.Put(&full)
	case p.largeSize:
		full := buf[:cap(buf)]
		p.large.Put(&full)
	}
}

// defaultPool serves the package-level Get/Put helpers.
var defaultPool = NewPool(nil)

// Get returns a buffer of at least the requested size from the default pool.
func Get(size int) []byte {
	return defaultPool.Get(size)
}

// Put returns a buffer obtained from Get to the default pool.
func Put(buf []byte) {
	defaultPool.Put(buf)
}
