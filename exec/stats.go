package exec

import "sync/atomic"

// Stats is a lock-free, audio-thread-written/control-thread-read block of
// observability counters; the executor itself never branches on these.
type Stats struct {
	BlocksProcessed       atomic.Uint64
	Underruns             atomic.Uint64
	LastScheduleSwapBlock atomic.Uint64

	// EventQueueOverflows counts events dropped because a node's pending
	// queue was already at its configured capacity.
	EventQueueOverflows atomic.Uint64
}
