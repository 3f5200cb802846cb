// Package fifo provides the fixed-capacity single-producer/single-consumer
// buffers the datalink and MS/TP layers use to hand bytes and frames
// between an interrupt-fed (or goroutine-fed) receiver and the FSM that
// consumes them. Both flavors sacrifice one slot to distinguish empty from
// full without a separate counter: Bytes is the byte-oriented queue,
// Ring[T] the fixed-element-size form.
//
// The producer goroutine owns tail, the consumer owns head, and each side
// only loads the other's index atomically, so one producer and one
// consumer never need a lock. Neither side blocks: Put fails fast on full,
// Get/Peek fail fast on empty.
package fifo

import (
	"sync/atomic"

	"github.com/rob-gra/go-bacnet/bacerr"
)

// Bytes is a fixed-capacity SPSC byte queue. Capacity is rounded up to the
// next power of two so head/tail wrap with a bitmask instead of a modulo.
type Bytes struct {
	buf  []byte
	mask uint32
	head atomic.Uint32
	tail atomic.Uint32
}

// NewBytes allocates a Bytes able to hold at least capacity bytes at once:
// the buffer is capacity+1 rounded up to a power of two, with one slot
// sacrificed to disambiguate empty from full.
func NewBytes(capacity int) *Bytes {
	n := nextPowerOfTwo(capacity + 1)
	return &Bytes{buf: make([]byte, n), mask: uint32(n - 1)}
}

// Put appends one byte. It reports false without blocking if the buffer is
// full. Put must only be called from the single producer.
func (f *Bytes) Put(b byte) bool {
	tail := f.tail.Load()
	next := (tail + 1) & f.mask
	if next == f.head.Load() {
		return false
	}
	f.buf[tail] = b
	f.tail.Store(next)
	return true
}

// Get removes and returns the oldest byte. ok is false if the buffer is
// empty. Get must only be called from the single consumer.
func (f *Bytes) Get() (b byte, ok bool) {
	head := f.head.Load()
	if head == f.tail.Load() {
		return 0, false
	}
	b = f.buf[head]
	f.head.Store((head + 1) & f.mask)
	return b, true
}

// Peek returns the oldest byte without removing it.
func (f *Bytes) Peek() (b byte, ok bool) {
	head := f.head.Load()
	if head == f.tail.Load() {
		return 0, false
	}
	return f.buf[head], true
}

// Len returns the number of bytes currently queued.
func (f *Bytes) Len() int {
	return int((f.tail.Load() - f.head.Load()) & f.mask)
}

// Empty reports whether the buffer holds no bytes.
func (f *Bytes) Empty() bool {
	return f.head.Load() == f.tail.Load()
}

// Full reports whether the buffer cannot accept another byte.
func (f *Bytes) Full() bool {
	return (f.tail.Load()+1)&f.mask == f.head.Load()
}

// Ring is a fixed-capacity SPSC queue of fixed-size elements, the
// generalization of Bytes used for already-framed values (e.g. decoded
// MS/TP frames) rather than raw octets.
type Ring[T any] struct {
	buf  []T
	mask uint32
	head atomic.Uint32
	tail atomic.Uint32
}

// NewRing allocates a Ring able to hold at least capacity elements, sized
// the same way as NewBytes.
func NewRing[T any](capacity int) *Ring[T] {
	n := nextPowerOfTwo(capacity + 1)
	return &Ring[T]{buf: make([]T, n), mask: uint32(n - 1)}
}

// Put appends one element. It reports false without blocking if the ring is
// full. Put must only be called from the single producer.
func (r *Ring[T]) Put(v T) bool {
	tail := r.tail.Load()
	next := (tail + 1) & r.mask
	if next == r.head.Load() {
		return false
	}
	r.buf[tail] = v
	r.tail.Store(next)
	return true
}

// Get removes and returns the oldest element. Get must only be called from
// the single consumer.
func (r *Ring[T]) Get() (v T, ok bool) {
	head := r.head.Load()
	if head == r.tail.Load() {
		return v, false
	}
	v = r.buf[head]
	var zero T
	r.buf[head] = zero // drop the reference so a pointer-typed T can be GC'd
	r.head.Store((head + 1) & r.mask)
	return v, true
}

// Len returns the number of elements currently queued.
func (r *Ring[T]) Len() int {
	return int((r.tail.Load() - r.head.Load()) & r.mask)
}

// Empty reports whether the ring holds no elements.
func (r *Ring[T]) Empty() bool {
	return r.head.Load() == r.tail.Load()
}

// Full reports whether the ring cannot accept another element.
func (r *Ring[T]) Full() bool {
	return (r.tail.Load()+1)&r.mask == r.head.Load()
}

// ErrFull is the error-typed alias for a failed Put, for callers that
// propagate an error rather than a boolean.
var ErrFull = bacerr.ErrSendFailed

func nextPowerOfTwo(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
