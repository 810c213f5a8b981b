// Package exec implements the processor executor: the realtime-thread loop
// that drains control commands, advances the clocks, and runs one compiled
// Schedule per block. Nothing in this package allocates on the per-block
// path once its scratch slices, event staging and per-node queues have grown
// to their working size.
package exec

import (
	"sort"

	"github.com/waveframe/engine/clock"
	"github.com/waveframe/engine/compile"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/pool"
	"github.com/waveframe/engine/sample"
	"github.com/waveframe/engine/xfer"
)

type pendingEvent struct {
	delay   clock.EventDelay
	payload node.EventPayload
}

// Executor owns everything that lives on the audio thread: the current
// Schedule/Pool pair, the registered processors, per-node pending-event
// queues, and the clock. It is driven once per block by a backend.
type Executor struct {
	cmdRing *xfer.Ring[xfer.Command]
	retRing *xfer.Ring[xfer.Return]
	clk     *clock.State

	schedule *compile.Schedule
	pl       *pool.Pool

	processors map[graph.NodeID]node.Processor
	queues     map[graph.NodeID][]pendingEvent
	resolved   map[graph.NodeID][]node.Event

	hardClip             bool
	shutdown             bool
	eventQueueCapPerNode int

	// staging accumulates CmdEnqueueEvent entries until a CmdEventBatchEnd
	// sentinel commits them atomically.
	staging []xfer.Command

	// pendingReturns holds Returns that couldn't be pushed immediately
	// because the return ring was momentarily full; retried every block.
	pendingReturns []xfer.Return

	// ins/outs are reused scratch space for Processor.Process's port
	// slices, sized to the largest possible port count so per-block
	// dispatch never allocates.
	ins  []sample.Buffer
	outs []sample.Buffer

	Stats Stats
}

// New constructs an Executor. schedule and pl are the initial (possibly
// empty) Schedule/Pool pair; engine.Context passes its first compiled pair
// here, and later ones arrive via CmdNewSchedule. The initial pool's silence
// flags are seeded from schedule.StaticSilence. eventQueueCapPerNode bounds
// how many scheduled events may be pending for a single node at once;
// excess events are dropped and counted in Stats.EventQueueOverflows.
func New(cmdRing *xfer.Ring[xfer.Command], retRing *xfer.Ring[xfer.Return], clk *clock.State, schedule *compile.Schedule, pl *pool.Pool, hardClip bool, eventQueueCapPerNode int) *Executor {
	e := &Executor{
		cmdRing:              cmdRing,
		retRing:              retRing,
		clk:                  clk,
		schedule:             schedule,
		pl:                   pl,
		processors:           make(map[graph.NodeID]node.Processor),
		queues:               make(map[graph.NodeID][]pendingEvent),
		resolved:             make(map[graph.NodeID][]node.Event),
		hardClip:             hardClip,
		eventQueueCapPerNode: eventQueueCapPerNode,
		ins:                  make([]sample.Buffer, sample.MaxChannels),
		outs:                 make([]sample.Buffer, sample.MaxChannels),
	}
	if schedule != nil && pl != nil {
		e.seedStaticSilence()
	}
	return e
}

// RegisterProcessor associates a node with the Processor instance that
// implements it. Called from the control thread's schedule-swap path before
// the corresponding CmdNewSchedule is pushed — by the time the audio thread
// sees the schedule, every TaskProcess.Node it names already has an entry.
func (e *Executor) RegisterProcessor(id graph.NodeID, p node.Processor) {
	e.processors[id] = p
}

// Process runs exactly one block: drains pending control commands, advances
// the clock, de-interleaves input, runs the schedule, and interleaves
// output. inputInterleaved/outputInterleaved are nil or empty when the
// engine has zero graph inputs/outputs respectively. Matches
// backend.Callback's (input, output, frames, clockSeconds, status) order so
// a Backend can invoke it directly.
func (e *Executor) Process(inputInterleaved, outputInterleaved []sample.Sample, frames int, clockSeconds float64, status node.StreamStatus) {
	e.drainCommands()
	e.flushPendingReturns()

	if e.shutdown {
		for i := range outputInterleaved {
			outputInterleaved[i] = 0
		}
		return
	}

	if status == node.StreamUnderrunSinceLast {
		e.Stats.Underruns.Add(1)
	}

	startCtx := clock.StartContext{
		SampleClock:  e.clk.SampleNow(),
		SecondsClock: clockSeconds,
		BeatClock:    e.clk.BeatNow(),
		TempoBPM:     e.clk.Tempo(),
		SampleRate:   e.clk.SampleRate(),
	}
	e.clk.Advance(frames, clockSeconds)

	nIn := len(e.schedule.InputSlots)
	for c := 0; c < nIn; c++ {
		buf := e.pl.Buffer(e.schedule.InputSlots[c])[:frames]
		for i := 0; i < frames; i++ {
			buf[i] = inputInterleaved[i*nIn+c]
		}
	}

	for _, tsk := range e.schedule.Tasks {
		switch tsk.Kind {
		case compile.TaskClear:
			e.pl.Clear(tsk.Dst)
		case compile.TaskCopy:
			e.pl.Copy(tsk.Src, tsk.Dst)
		case compile.TaskSum:
			e.runSum(tsk)
		case compile.TaskProcess:
			e.runProcess(tsk, frames, startCtx, status)
		}
	}

	nOut := len(e.schedule.OutputSlots)
	for c := 0; c < nOut; c++ {
		buf := e.pl.Buffer(e.schedule.OutputSlots[c])[:frames]
		for i := 0; i < frames; i++ {
			v := buf[i]
			if e.hardClip {
				if v > 1 {
					v = 1
				} else if v < -1 {
					v = -1
				}
			}
			outputInterleaved[i*nOut+c] = v
		}
	}

	e.Stats.BlocksProcessed.Add(1)
}

func (e *Executor) runSum(tsk compile.Task) {
	anyNonSilent := false
	for _, s := range tsk.Srcs {
		if !e.pl.IsSilent(s) {
			anyNonSilent = true
			break
		}
	}
	if !anyNonSilent {
		// tsk.Dst was already zeroed and flagged silent by the preceding
		// TaskClear the compiler always emits before a TaskSum.
		return
	}
	dst := e.pl.Buffer(tsk.Dst)
	for _, s := range tsk.Srcs {
		if e.pl.IsSilent(s) {
			continue
		}
		src := e.pl.Buffer(s)
		for i := range dst {
			dst[i] += src[i]
		}
	}
	e.pl.SetSilent(tsk.Dst, false)
}

func (e *Executor) runProcess(tsk compile.Task, frames int, startCtx clock.StartContext, status node.StreamStatus) {
	proc, ok := e.processors[tsk.Node]
	if !ok {
		// Schedule named a node whose processor hasn't been registered yet;
		// treat as silent rather than panic on the audio thread.
		for _, o := range tsk.Out {
			e.pl.SetSilent(o, true)
		}
		return
	}

	var inMask sample.SilenceMask
	for i, s := range tsk.In {
		if e.pl.IsSilent(s) {
			inMask = inMask.Set(i)
		}
	}

	caps := proc.Capabilities()
	hasEvents := len(e.queues[tsk.Node]) > 0
	if caps.Has(node.SkipIfAllInputsSilent) && inMask.AllSilent(len(tsk.In)) && !hasEvents {
		for _, o := range tsk.Out {
			e.pl.SetSilent(o, true)
		}
		return
	}

	ins := e.ins[:len(tsk.In)]
	for i, s := range tsk.In {
		ins[i] = e.pl.Buffer(s)[:frames]
	}
	outs := e.outs[:len(tsk.Out)]
	for i, s := range tsk.Out {
		outs[i] = e.pl.Buffer(s)[:frames]
	}

	iter := node.NewEventIter(e.resolveEvents(tsk.Node, startCtx, frames))

	info := node.ProcInfo{
		Frames:              frames,
		SecondsClockAtStart: startCtx.SecondsClock,
		SampleClockAtStart:  startCtx.SampleClock,
		MusicalClockAtStart: startCtx.BeatClock,
		HasMusicalClock:     e.clk.HasMusicalClock(),
		InSilenceMask:       inMask,
		StreamStatus:        status,
	}

	result := proc.Process(ins, outs, iter, info)
	e.applyStatus(tsk, result)
}

func (e *Executor) applyStatus(tsk compile.Task, result node.ProcessStatus) {
	switch result.Kind {
	case node.StatusOutputsModified:
		for i, o := range tsk.Out {
			e.pl.SetSilent(o, result.SilenceMask.IsSilent(i))
		}
	case node.StatusBypass:
		n := len(tsk.In)
		if len(tsk.Out) < n {
			n = len(tsk.Out)
		}
		for i := 0; i < n; i++ {
			e.pl.Copy(tsk.In[i], tsk.Out[i])
		}
		for i := n; i < len(tsk.Out); i++ {
			e.pl.Clear(tsk.Out[i])
		}
	case node.StatusClearAllOutputs:
		for _, o := range tsk.Out {
			e.pl.SetSilent(o, true)
		}
	}
}

// resolveEvents splits id's pending queue into events that fall within this
// block (returned, sorted by offset) and events that stay pending. Both the
// kept remainder and the resolved scratch slice reuse their own backing
// arrays across calls; nothing here allocates once warmed up.
func (e *Executor) resolveEvents(id graph.NodeID, startCtx clock.StartContext, frames int) []node.Event {
	queue := e.queues[id]
	if len(queue) == 0 {
		return nil
	}
	resolved := e.resolved[id][:0]
	remaining := queue[:0]
	for _, pe := range queue {
		if off, ok := clock.Resolve(pe.delay, startCtx, frames); ok {
			resolved = append(resolved, node.Event{SampleOffset: off, Payload: pe.payload})
		} else {
			remaining = append(remaining, pe)
		}
	}
	e.queues[id] = remaining
	if len(resolved) == 0 {
		e.resolved[id] = resolved
		return nil
	}
	sort.SliceStable(resolved, func(i, j int) bool { return resolved[i].SampleOffset < resolved[j].SampleOffset })
	e.resolved[id] = resolved
	return resolved
}
