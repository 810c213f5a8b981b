package exec

import "github.com/waveframe/engine/xfer"

// drainCommands pops every currently-available command off the control ring
// and applies it. Called once at the top of each Process.
func (e *Executor) drainCommands() {
	for {
		cmd, ok := e.cmdRing.Pop()
		if !ok {
			return
		}
		e.apply(cmd)
	}
}

func (e *Executor) apply(cmd xfer.Command) {
	switch cmd.Kind {
	case xfer.CmdNewSchedule:
		oldSched, oldPool := e.schedule, e.pl
		e.schedule, e.pl = cmd.Schedule, cmd.Pool
		e.seedStaticSilence()
		e.Stats.LastScheduleSwapBlock.Store(e.Stats.BlocksProcessed.Load())
		if oldSched != nil {
			e.pushReturn(xfer.Return{Kind: xfer.RetOldSchedule, OldSchedule: oldSched})
		}
		if oldPool != nil {
			e.pushReturn(xfer.Return{Kind: xfer.RetOldPool, OldPool: oldPool})
		}

	case xfer.CmdEnqueueEvent:
		// Staged, not yet visible to any node's queue: committed as a unit
		// when CmdEventBatchEnd arrives.
		e.staging = append(e.staging, cmd)

	case xfer.CmdEventBatchEnd:
		for _, staged := range e.staging {
			q := e.queues[staged.TargetNode]
			if len(q) >= e.eventQueueCapPerNode {
				e.Stats.EventQueueOverflows.Add(1)
				continue
			}
			e.queues[staged.TargetNode] = append(q, pendingEvent{
				delay:   staged.Delay,
				payload: staged.Payload,
			})
		}
		e.staging = e.staging[:0]

	case xfer.CmdDrop:
		delete(e.processors, cmd.DropNode)
		delete(e.queues, cmd.DropNode)
		e.pushReturn(xfer.Return{Kind: xfer.RetRetiredProcessor, RetiredProcessor: cmd.DropProcessor, RetiredNode: cmd.DropNode})

	case xfer.CmdSetClockStart:
		e.clk.SetMusicalStart(cmd.MusicalStartSample)

	case xfer.CmdShutdown:
		e.shutdown = true
		e.pushReturn(xfer.Return{Kind: xfer.RetShutdownAck})
	}
}

// seedStaticSilence applies a freshly swapped-in schedule's conservative
// silence pre-pass before the first block runs it.
func (e *Executor) seedStaticSilence() {
	for slot, silent := range e.schedule.StaticSilence {
		if silent {
			e.pl.Clear(slot)
		}
	}
}

func (e *Executor) pushReturn(r xfer.Return) {
	if !e.retRing.Push(r) {
		e.pendingReturns = append(e.pendingReturns, r)
	}
}

// flushPendingReturns retries any Returns that didn't fit in the ring at the
// time they were produced.
func (e *Executor) flushPendingReturns() {
	if len(e.pendingReturns) == 0 {
		return
	}
	kept := e.pendingReturns[:0]
	for _, r := range e.pendingReturns {
		if !e.retRing.Push(r) {
			kept = append(kept, r)
		}
	}
	e.pendingReturns = kept
}
