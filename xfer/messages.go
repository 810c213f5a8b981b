package xfer

import (
	"github.com/waveframe/engine/clock"
	"github.com/waveframe/engine/compile"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/pool"
)

// CommandKind discriminates Command variants.
type CommandKind uint8

const (
	CmdNewSchedule CommandKind = iota
	CmdEnqueueEvent
	CmdDrop
	CmdSetClockStart
	CmdShutdown
	// CmdEventBatchEnd is a sentinel: the control side drains its staging
	// queue as a contiguous group terminated by this, so the audio side
	// only ever observes a staged Update's events as a single unit.
	CmdEventBatchEnd
)

// Command is one entry of the control -> audio ring.
type Command struct {
	Kind CommandKind

	// CmdNewSchedule
	Schedule *compile.Schedule
	Pool     *pool.Pool

	// CmdEnqueueEvent
	TargetNode graph.NodeID
	Delay      clock.EventDelay
	Payload    node.EventPayload

	// CmdDrop
	DropProcessor node.Processor
	DropNode      graph.NodeID

	// CmdSetClockStart
	MusicalStartSample uint64
}

// ReturnKind discriminates Return variants.
type ReturnKind uint8

const (
	RetOldSchedule ReturnKind = iota
	RetOldPool
	RetRetiredProcessor
	// RetShutdownAck confirms the audio thread has observed CmdShutdown and
	// will zero its output and stop touching any processor from here on.
	RetShutdownAck
)

// Return is one entry of the audio -> control ring: everything the audio
// thread hands back for the control thread to deallocate or acknowledge.
type Return struct {
	Kind             ReturnKind
	OldSchedule      *compile.Schedule
	OldPool          *pool.Pool
	RetiredProcessor node.Processor
	RetiredNode      graph.NodeID
}
