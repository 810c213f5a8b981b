// Package engine implements the control-side Context: the Inactive/Active
// lifecycle state machine that owns a Graph, compiles and publishes
// Schedules, and stages control commands for the audio thread.
package engine

// Config holds the activation-time options for a Context.
type Config struct {
	// MaxBlockFrames bounds the block size any processor may assume.
	MaxBlockFrames int

	// NGraphInputs / NGraphOutputs are the fixed channel counts of the
	// graph's IO sentinel nodes.
	NGraphInputs  int
	NGraphOutputs int

	// HardClipOutputs saturates the final interleave stage to [-1, 1].
	HardClipOutputs bool

	// CommandRingCapacity sizes the control -> audio command ring; should
	// be large enough for the peak single update() batch.
	CommandRingCapacity int

	// EventQueueCapacityPerNode bounds how many scheduled events may be
	// pending for a single node at once.
	EventQueueCapacityPerNode int

	// InitialPoolSize is not read by Activate or Update: every pool is sized
	// from the compiled Schedule's PoolSize.
	InitialPoolSize int

	// SampleRate feeds the clock package's seconds<->sample<->beat math.
	SampleRate float64

	// HasMusicalClock enables the optional musical transport.
	HasMusicalClock bool
}

// DefaultConfig returns reasonable defaults for the ring/queue sizing
// options, leaving the topology-dependent fields at their zero value for
// the caller to set explicitly.
func DefaultConfig() Config {
	return Config{
		MaxBlockFrames:            1024,
		CommandRingCapacity:       256,
		EventQueueCapacityPerNode: 32,
		InitialPoolSize:           16,
		SampleRate:                48000,
	}
}
