package engine

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"

	"github.com/waveframe/engine/clock"
	"github.com/waveframe/engine/compile"
	"github.com/waveframe/engine/exec"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/pool"
	"github.com/waveframe/engine/xfer"
)

// State is one of the two steady states of Context's lifecycle. There is
// no separate "activating"/"deactivating" state: those transitions run to
// completion synchronously on the control thread.
type State uint8

const (
	Inactive State = iota
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// ErrNotActive is returned by Update/EnqueueEvent when called while the
// Context is Inactive.
var ErrNotActive = fmt.Errorf("engine: context is not active")

// deactivateDrainAttempts/deactivateDrainInterval bound how long
// Deactivate waits for the audio side to acknowledge Shutdown before
// force-reclaiming.
const (
	deactivateDrainAttempts = 8
	deactivateDrainInterval = time.Millisecond
)

// ringSpinAttempts bounds how many times waitForRingSpace yields to the
// audio side before giving up. The audio thread only ever frees space by
// popping, so a bounded spin here is a wait for progress, not a busy-loop
// against a stalled peer.
const ringSpinAttempts = 10000

// waitForRingSpace blocks briefly, yielding to the scheduler, until the
// command ring has room for at least n entries. Since the control thread is
// cmdRing's only producer, once this returns true a subsequent sequence of
// up to n Pushes by this same goroutine cannot fail.
func (c *Context) waitForRingSpace(n int) bool {
	if c.cmdRing.Free() >= n {
		return true
	}
	for i := 0; i < ringSpinAttempts; i++ {
		runtime.Gosched()
		if c.cmdRing.Free() >= n {
			return true
		}
	}
	return false
}

// Context is the control-side handle: it owns the mutable Graph, tracks
// which Processor belongs to which node, and drives activation, periodic
// update(), and deactivation. Every method here runs on the single control
// thread — the caller must serialize external calls itself.
type Context struct {
	cfg Config
	g   *graph.Graph
	log *log.Logger

	state State

	clk      *clock.State
	cmdRing  *xfer.Ring[xfer.Command]
	retRing  *xfer.Ring[xfer.Return]
	executor *exec.Executor

	processors map[graph.NodeID]node.Processor
	staged     []xfer.Command

	streamInterrupted atomic.Bool
}

// New constructs an Inactive Context for cfg's topology. logger may be nil,
// in which case a default charmbracelet/log logger is used.
func New(cfg Config, logger *log.Logger) *Context {
	if logger == nil {
		logger = log.Default()
	}
	return &Context{
		cfg:        cfg,
		g:          graph.New(cfg.NGraphInputs, cfg.NGraphOutputs),
		log:        logger,
		processors: make(map[graph.NodeID]node.Processor),
	}
}

// State reports the current lifecycle state.
func (c *Context) State() State { return c.state }

// Graph exposes the control-side graph model for topology edits
// (AddNode/AddEdge/RemoveNode/RemoveEdge). Safe to mutate at any time,
// Active or Inactive; changes take effect on the next Activate or Update.
func (c *Context) Graph() *graph.Graph { return c.g }

// Clock exposes the audio-thread-written, control-thread-readable clock
// state. Valid only once Active.
func (c *Context) Clock() *clock.State { return c.clk }

// Executor exposes the audio-side executor for a backend to drive.
// Valid only once Active.
func (c *Context) Executor() *exec.Executor { return c.executor }

// AddNode inserts a node into the graph and records the Processor instance
// that implements it. The Processor is handed off to the audio side on the
// next Activate/Update; the control thread must not touch it afterward.
func (c *Context) AddNode(name string, nIn, nOut int, caps node.Capability, proc node.Processor) graph.NodeID {
	id := c.g.AddNode(name, nIn, nOut, caps)
	c.processors[id] = proc
	return id
}

// RemoveNode removes a node from the graph. If the Context is Active, a
// CmdDrop is staged immediately so the audio side stops referencing the
// processor and returns it for deallocation: removal is observed by the
// audio thread strictly before the node's processor is released back.
func (c *Context) RemoveNode(id graph.NodeID) error {
	proc := c.processors[id]
	if err := c.g.RemoveNode(id); err != nil {
		return err
	}
	delete(c.processors, id)
	if c.state == Active {
		if !c.waitForRingSpace(1) {
			return &ErrQueueFull{What: "command ring (drop)"}
		}
		c.cmdRing.Push(xfer.Command{Kind: xfer.CmdDrop, DropNode: id, DropProcessor: proc})
	}
	return nil
}

// EnqueueEvent stages a scheduled event for delivery to target. Staged
// events are drained into the command ring as a single atomic batch on the
// next Update: events staged via the same Update call become visible
// together or not at all.
func (c *Context) EnqueueEvent(target graph.NodeID, delay clock.EventDelay, payload node.EventPayload) error {
	if c.state != Active {
		return ErrNotActive
	}
	pending := 0
	for _, cmd := range c.staged {
		if cmd.TargetNode == target {
			pending++
		}
	}
	if pending >= c.cfg.EventQueueCapacityPerNode {
		return &ErrQueueFull{What: "event staging"}
	}
	c.staged = append(c.staged, xfer.Command{
		Kind:       xfer.CmdEnqueueEvent,
		TargetNode: target,
		Delay:      delay,
		Payload:    payload,
	})
	return nil
}

// MarkStreamInterrupted is called by a backend, from whatever goroutine
// detects the interruption, when the open stream is lost. The transition to
// Inactive and the surfaced error happen on the next Update call.
func (c *Context) MarkStreamInterrupted() {
	c.streamInterrupted.Store(true)
}

// Activate compiles the current graph, constructs the audio-side Executor,
// and transfers every registered processor to it. On compile failure the
// Context remains Inactive and an *ActivationError is returned.
func (c *Context) Activate() error {
	sched, err := compile.Compile(c.g)
	if err != nil {
		c.log.Error("activate: compile failed", "err", err)
		return &ActivationError{Reason: "compile", Err: err}
	}

	pl := pool.New(sched.PoolSize, c.cfg.MaxBlockFrames)
	c.clk = clock.NewState(c.cfg.SampleRate, c.cfg.HasMusicalClock)
	c.cmdRing = xfer.NewRing[xfer.Command](c.cfg.CommandRingCapacity)
	c.retRing = xfer.NewRing[xfer.Return](c.cfg.CommandRingCapacity)
	c.executor = exec.New(c.cmdRing, c.retRing, c.clk, sched, pl, c.cfg.HardClipOutputs, c.cfg.EventQueueCapacityPerNode)

	for id, proc := range c.processors {
		c.executor.RegisterProcessor(id, proc)
	}

	c.g.ClearDirty()
	c.state = Active
	c.log.Info("context activated", "pool_size", sched.PoolSize, "tasks", len(sched.Tasks))
	return nil
}

// Update performs one control-thread tick: it drains the return channel,
// recompiles and republishes the schedule if the graph changed, and
// flushes any staged events as one batch. Must only be called while
// Active.
func (c *Context) Update() error {
	if c.state != Active {
		return ErrNotActive
	}

	c.drainReturns()

	if c.streamInterrupted.CompareAndSwap(true, false) {
		c.state = Inactive
		c.log.Warn("stream interrupted, context deactivated")
		return &StreamInterruptedError{Reason: "backend reported stream loss"}
	}

	if c.g.Dirty() {
		sched, err := compile.Compile(c.g)
		if err != nil {
			c.log.Warn("update: recompile failed, keeping previous schedule", "err", err)
			return &UpdateError{Reason: "recompile", Err: err}
		}
		pl := pool.New(sched.PoolSize, c.cfg.MaxBlockFrames)
		for id, proc := range c.processors {
			c.executor.RegisterProcessor(id, proc)
		}
		if !c.waitForRingSpace(1) {
			return &ErrQueueFull{What: "command ring (schedule)"}
		}
		c.cmdRing.Push(xfer.Command{Kind: xfer.CmdNewSchedule, Schedule: sched, Pool: pl})
		c.g.ClearDirty()
	}

	if len(c.staged) > 0 {
		// Reserve room for the whole batch, including the trailing sentinel,
		// before pushing any of it: a batch that can't fully fit must leave
		// c.staged untouched so the next Update can retry it whole, rather
		// than delivering a prefix with no CmdEventBatchEnd.
		need := len(c.staged) + 1
		if !c.waitForRingSpace(need) {
			return &ErrQueueFull{What: "command ring (events)"}
		}
		for _, cmd := range c.staged {
			c.cmdRing.Push(cmd)
		}
		c.cmdRing.Push(xfer.Command{Kind: xfer.CmdEventBatchEnd})
		c.staged = c.staged[:0]
	}
	return nil
}

// Deactivate sends Shutdown, waits briefly for the audio side to
// acknowledge via the return channel, and transitions to Inactive. A no-op
// if already Inactive.
func (c *Context) Deactivate() {
	if c.state != Active {
		return
	}
	// Staged-but-unflushed events don't survive a deactivate: the audio-side
	// Executor they were headed for is about to be torn down, and an
	// Activate afterward starts a fresh one with nothing pending.
	c.staged = c.staged[:0]
	c.cmdRing.Push(xfer.Command{Kind: xfer.CmdShutdown})

	acked := false
	for i := 0; i < deactivateDrainAttempts && !acked; i++ {
		if c.drainReturns() {
			acked = true
			break
		}
		time.Sleep(deactivateDrainInterval)
	}
	if !acked {
		c.log.Warn("deactivate: timed out waiting for audio-side shutdown ack, force-reclaiming")
	}

	c.state = Inactive
	c.log.Info("context deactivated")
}

// drainReturns pops every currently-available Return and applies it,
// reporting whether a RetShutdownAck was among them.
func (c *Context) drainReturns() bool {
	sawShutdownAck := false
	for {
		r, ok := c.retRing.Pop()
		if !ok {
			return sawShutdownAck
		}
		switch r.Kind {
		case xfer.RetOldSchedule, xfer.RetOldPool:
			// Go's GC reclaims these; nothing to do beyond letting the
			// reference drop here.
		case xfer.RetRetiredProcessor:
			c.log.Debug("processor retired", "node", r.RetiredNode)
		case xfer.RetShutdownAck:
			sawShutdownAck = true
		}
	}
}
