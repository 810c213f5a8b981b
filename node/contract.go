// Package node defines the capability surface every realtime audio
// processor implements, and the per-block invocation contract between the
// processor executor and a node's processor.
package node

import "github.com/waveframe/engine/sample"

// Capability is a bitset of declared, static behaviors a Processor can opt
// into. Declared at construction, immutable for the processor's lifetime.
// Kept as a bitset rather than a set of interface type-assertions so the
// executor's per-block dispatch never allocates.
type Capability uint8

const (
	// OutputsAlwaysSilentUntilActive tells the compiler's silence pre-pass
	// that this node's output slots can be conservatively marked silent
	// before the schedule has run even once (e.g. a node that only ever
	// produces sound in response to an event it hasn't received yet).
	OutputsAlwaysSilentUntilActive Capability = 1 << iota

	// SkipIfAllInputsSilent tells the executor it may skip invoking
	// Process entirely when every declared input channel is silent and no
	// event is pending for this node, treating the outputs as silent
	// without running the processor.
	SkipIfAllInputsSilent
)

// Has reports whether c includes capability f.
func (c Capability) Has(f Capability) bool { return c&f != 0 }

// ProcInfo carries per-block context passed into Process.
type ProcInfo struct {
	// Frames is the block length in samples, always <= the configured
	// max_block_frames.
	Frames int

	// SecondsClockAtStart is the authoritative, underrun-aware seconds
	// clock reading at the start of this block.
	SecondsClockAtStart float64

	// SampleClockAtStart is the monotonically incrementing sample count at
	// the start of this block; does not account for underruns.
	SampleClockAtStart uint64

	// MusicalClockAtStart is the current musical position in beats, valid
	// only if HasMusicalClock is true.
	MusicalClockAtStart float64
	HasMusicalClock     bool

	// InSilenceMask has bit i set when input channel i is entirely zero
	// for this block.
	InSilenceMask sample.SilenceMask

	// StreamStatus reports backend-observed stream health for this block.
	StreamStatus StreamStatus
}

// StreamStatus reports the health of the audio stream as observed by the
// backend for the current block.
type StreamStatus uint8

const (
	StreamOK StreamStatus = iota
	StreamUnderrunSinceLast
	StreamInputOverrun
)

// ProcessStatusKind discriminates the three ProcessStatus variants without
// requiring a type switch on an interface (no allocation on the hot path).
type ProcessStatusKind uint8

const (
	StatusOutputsModified ProcessStatusKind = iota
	StatusBypass
	StatusClearAllOutputs
)

// ProcessStatus is the return value of Process. Use the constructor
// functions below rather than the zero value.
type ProcessStatus struct {
	Kind        ProcessStatusKind
	SilenceMask sample.SilenceMask // valid only when Kind == StatusOutputsModified
}

// OutputsModified reports that the processor wrote into its output buffers;
// silenceMask bit i set means output channel i is all-zero for this block.
func OutputsModified(silenceMask sample.SilenceMask) ProcessStatus {
	return ProcessStatus{Kind: StatusOutputsModified, SilenceMask: silenceMask}
}

// Bypass reports that the processor declined to run this block. The
// executor performs the compiler's bypass post-action: copy inputs 1:1 to
// outputs where channel indices line up, zeroing unmatched outputs.
func Bypass() ProcessStatus {
	return ProcessStatus{Kind: StatusBypass}
}

// ClearAllOutputs reports that every output is guaranteed silent this
// block; the executor sets the silence bits without copying anything.
func ClearAllOutputs() ProcessStatus {
	return ProcessStatus{Kind: StatusClearAllOutputs}
}

// Event is a single scheduled message delivered to a node, resolved to an
// in-block sample offset by the executor/clock package before delivery.
type Event struct {
	// SampleOffset is this event's position within the current block,
	// in [0, Frames).
	SampleOffset int
	Payload      EventPayload
}

// EventPayload is an opaque, node-defined message. The engine core never
// interprets payload contents; only concrete node implementations do.
type EventPayload interface{}

// EventIter exposes a time-ordered, ascending-by-SampleOffset view over the
// events resolved for this node on this block. A Processor may consume it
// lazily or all at once but must not retain it past Process's return — the
// executor reuses the backing storage for the next node.
type EventIter struct {
	events []Event
	pos    int
}

// NewEventIter wraps a sorted event slice. Exported for node implementations
// under test; the executor constructs these directly from its per-node
// queues.
func NewEventIter(sorted []Event) EventIter {
	return EventIter{events: sorted}
}

// Next returns the next pending event and advances the iterator, or
// (Event{}, false) when exhausted.
func (it *EventIter) Next() (Event, bool) {
	if it.pos >= len(it.events) {
		return Event{}, false
	}
	e := it.events[it.pos]
	it.pos++
	return e, true
}

// Len reports the number of events remaining (including the current
// position), without consuming them.
func (it *EventIter) Len() int { return len(it.events) - it.pos }

// Processor is the capability surface every node implements. Channel
// counts returned by ChannelConfig are fixed at construction and must never
// change afterward; the executor and compiler both rely on that invariant.
type Processor interface {
	// ChannelConfig reports the node's declared, immutable input/output
	// channel counts.
	ChannelConfig() (nIn, nOut int)

	// Capabilities reports this processor's static capability flags.
	Capabilities() Capability

	// Process runs one block. inputs has ChannelConfig's nIn entries,
	// outputs has nOut entries, each sized info.Frames. Process must not
	// retain inputs, outputs, or events past return, and must not
	// allocate.
	Process(inputs []sample.Buffer, outputs []sample.Buffer, events EventIter, info ProcInfo) ProcessStatus
}
