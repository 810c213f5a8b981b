// Package xfer implements the three lock-free, allocation-free message
// channels that bridge the control and audio threads: the command ring
// (control -> audio), the return ring (audio -> control), and the schedule
// triple buffer.
package xfer

import (
	"sync/atomic"

	"golang.org/x/sys/cpu"
)

// Ring is a single-producer single-consumer, fixed-capacity, lock-free ring
// buffer. Capacity is rounded up to the next power of two so index wrapping
// is a mask instead of a modulo. Push/Pop never allocate and never block;
// a full ring simply rejects Push.
type Ring[T any] struct {
	mask uint64
	buf  []T

	head    atomic.Uint64
	_       cpu.CacheLinePad
	tail    atomic.Uint64
	_       cpu.CacheLinePad
}

// NewRing creates a Ring able to hold at least capacity entries.
func NewRing[T any](capacity int) *Ring[T] {
	n := nextPow2(capacity)
	return &Ring[T]{
		mask: uint64(n - 1),
		buf:  make([]T, n),
	}
}

func nextPow2(n int) int {
	if n < 1 {
		n = 1
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Cap reports the ring's usable capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// Push appends v to the ring. Reports false if the ring is full — the
// caller (the ring's single producer) decides whether to spin, retry, hold
// the entry back, or surface QueueFull.
func (r *Ring[T]) Push(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)) {
		return false
	}
	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// Pop removes and returns the oldest entry. Reports false if the ring is
// empty. Called only by the ring's single consumer; never allocates.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	tail := r.tail.Load()
	head := r.head.Load()
	if tail >= head {
		return zero, false
	}
	v := r.buf[tail&r.mask]
	r.buf[tail&r.mask] = zero // drop any reference so the GC can reclaim it
	r.tail.Store(tail + 1)
	return v, true
}

// Len reports an approximate number of entries currently queued — exact
// only when called from the side that isn't concurrently mutating the ring,
// since head/tail are read as two separate atomics.
func (r *Ring[T]) Len() int {
	return int(r.head.Load() - r.tail.Load())
}

// Free reports how many more entries Push could currently accept.
func (r *Ring[T]) Free() int {
	return len(r.buf) - r.Len()
}
