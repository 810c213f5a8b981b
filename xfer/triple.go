package xfer

import "sync/atomic"

// Triple is a lock-free triple buffer: the control side Publishes a new
// value without ever blocking on the audio side, and the audio side reads
// the most recently published value at a block boundary without blocking
// on the control side. Neither exec.Executor nor engine.Context uses it:
// schedules reach the audio thread only through the command ring's
// CmdNewSchedule.
//
// Only one thread may call Publish (the control thread) and only one
// thread may call Latest (the audio thread); each side privately owns an
// index into slots and the two exchange the third, "spare" slot through a
// single atomic word.
type Triple[T any] struct {
	slots [3]T

	writeIdx int // producer-private
	readIdx  int // consumer-private

	back atomic.Uint32 // low 2 bits: spare slot index; bit 2: dirty
}

const (
	tripleIdxMask  = 0x3
	tripleDirtyBit = 1 << 2
)

// NewTriple creates an empty Triple buffer.
func NewTriple[T any]() *Triple[T] {
	t := &Triple[T]{writeIdx: 0, readIdx: 1}
	t.back.Store(2) // spare slot 2, not dirty
	return t
}

// Publish writes v into the producer's current slot and atomically
// exchanges it for the spare slot, marking the result dirty.
func (t *Triple[T]) Publish(v T) {
	t.slots[t.writeIdx] = v
	old := t.back.Swap(uint32(t.writeIdx) | tripleDirtyBit)
	t.writeIdx = int(old & tripleIdxMask)
}

// Latest returns the most recently published value. ok is false if nothing
// new has arrived since the last call (including the very first call,
// before any Publish).
func (t *Triple[T]) Latest() (v T, ok bool) {
	if t.back.Load()&tripleDirtyBit == 0 {
		var zero T
		return zero, false
	}
	old := t.back.Swap(uint32(t.readIdx))
	t.readIdx = int(old & tripleIdxMask)
	return t.slots[t.readIdx], true
}
