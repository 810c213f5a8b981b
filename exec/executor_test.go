package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveframe/engine/clock"
	"github.com/waveframe/engine/compile"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/node/testnode"
	"github.com/waveframe/engine/pool"
	"github.com/waveframe/engine/sample"
	"github.com/waveframe/engine/xfer"
)

func newTestExecutor(t *testing.T, g *graph.Graph, procs map[graph.NodeID]node.Processor) (*Executor, *compile.Schedule) {
	t.Helper()
	sched, err := compile.Compile(g)
	require.NoError(t, err)
	pl := pool.New(sched.PoolSize, 128)
	clk := clock.NewState(48000, false)
	e := New(xfer.NewRing[xfer.Command](16), xfer.NewRing[xfer.Return](16), clk, sched, pl, true, 32)
	for id, p := range procs {
		e.RegisterProcessor(id, p)
	}
	return e, sched
}

// Scenario: silent passthrough. An all-zero input block is fed through a
// Passthrough node and must produce an all-zero output block. De-interleaving
// does not flag input slots silent, so the node's Process still runs here.
func TestScenarioSilentPassthrough(t *testing.T) {
	g := graph.New(1, 1)
	pt := g.AddNode("passthrough", 1, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: g.InputID(), SrcChannel: 0, Dst: pt, DstChannel: 0}))
	require.NoError(t, g.AddEdge(graph.Edge{Src: pt, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{pt: &testnode.Passthrough{N: 1}})

	frames := 128
	in := make([]sample.Sample, frames)
	out := make([]sample.Sample, frames)
	e.Process(in, out, frames, 0.0, node.StreamOK)

	assert.True(t, sample.IsZero(out))
}

// Scenario: beep generator. A Sine source feeds the graph
// output directly; the executor should produce a nonzero, non-silent tone.
func TestScenarioBeepGenerator(t *testing.T) {
	g := graph.New(0, 1)
	sine := g.AddNode("sine", 0, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: sine, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{
		sine: &testnode.Sine{NOut: 1, Freq: 440, Amp: 0.5, SampleRate: 48000},
	})

	frames := 128
	out := make([]sample.Sample, frames)
	e.Process(nil, out, frames, 0.0, node.StreamOK)

	assert.False(t, sample.IsZero(out))
}

// Scenario: summing mix. Two constant sources fan into one
// graph-output channel; the executor's TaskSum must add them.
func TestScenarioSummingMix(t *testing.T) {
	g := graph.New(0, 1)
	a := g.AddNode("a", 0, 1, 0)
	b := g.AddNode("b", 0, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: a, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))
	require.NoError(t, g.AddEdge(graph.Edge{Src: b, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{
		a: &testnode.Constant{NOut: 1, Value: 0.25},
		b: &testnode.Constant{NOut: 1, Value: 0.25},
	})

	frames := 8
	out := make([]sample.Sample, frames)
	e.Process(nil, out, frames, 0.0, node.StreamOK)

	for _, v := range out {
		assert.InDelta(t, 0.5, v, 1e-6)
	}
}

// Scenario: scheduled event / SetGain. A Gain node's value
// is changed mid-stream via a scheduled event and must apply exactly at the
// resolved sample offset, not before and not after.
func TestScenarioScheduledGainEvent(t *testing.T) {
	g := graph.New(1, 1)
	gainID := g.AddNode("gain", 1, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: g.InputID(), SrcChannel: 0, Dst: gainID, DstChannel: 0}))
	require.NoError(t, g.AddEdge(graph.Edge{Src: gainID, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	gain := &testnode.Gain{N: 1, Value: 1.0}
	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{gainID: gain})

	frames := 128
	in := make([]sample.Sample, frames)
	for i := range in {
		in[i] = 1.0
	}

	// Stage a SetGain(0.0) event to fire at absolute sample 64, inside this
	// first block.
	require.True(t, e.cmdRing.Push(xfer.Command{
		Kind:       xfer.CmdEnqueueEvent,
		TargetNode: gainID,
		Delay:      clock.UntilSample(64),
		Payload:    testnode.GainEvent{Value: 0.0},
	}))
	require.True(t, e.cmdRing.Push(xfer.Command{Kind: xfer.CmdEventBatchEnd}))

	out := make([]sample.Sample, frames)
	e.Process(in, out, frames, 0.0, node.StreamOK)

	for i := 0; i < 64; i++ {
		assert.InDelta(t, 1.0, out[i], 1e-6, "sample %d before gain change", i)
	}
	for i := 64; i < frames; i++ {
		assert.InDelta(t, 0.0, out[i], 1e-6, "sample %d after gain change", i)
	}
}

// Scenario: fan-out copy. One source feeds two destinations;
// regardless of which gets a direct slot reuse and which gets a private
// copy, both must observe identical data.
func TestScenarioFanOutCopy(t *testing.T) {
	g := graph.New(0, 2)
	src := g.AddNode("src", 0, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: src, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))
	require.NoError(t, g.AddEdge(graph.Edge{Src: src, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 1}))

	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{
		src: &testnode.Constant{NOut: 1, Value: 0.75},
	})

	frames := 8
	out := make([]sample.Sample, frames*2)
	e.Process(nil, out, frames, 0.0, node.StreamOK)

	for i := 0; i < frames; i++ {
		assert.InDelta(t, 0.75, out[i*2], 1e-6)
		assert.InDelta(t, 0.75, out[i*2+1], 1e-6)
	}
}

// A dropped node's pending events are discarded, not delivered to whatever
// later reuses its slot (Open Question resolution recorded in DESIGN.md).
func TestDropDiscardsPendingEvents(t *testing.T) {
	g := graph.New(0, 1)
	id := g.AddNode("const", 0, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	e, _ := newTestExecutor(t, g, map[graph.NodeID]node.Processor{id: &testnode.Constant{NOut: 1, Value: 1.0}})

	require.True(t, e.cmdRing.Push(xfer.Command{
		Kind:       xfer.CmdEnqueueEvent,
		TargetNode: id,
		Delay:      clock.UntilSample(100000),
		Payload:    testnode.GainEvent{Value: 0},
	}))
	require.True(t, e.cmdRing.Push(xfer.Command{Kind: xfer.CmdEventBatchEnd}))
	require.True(t, e.cmdRing.Push(xfer.Command{Kind: xfer.CmdDrop, DropNode: id, DropProcessor: e.processors[id]}))

	out := make([]sample.Sample, 8)
	e.Process(nil, out, 8, 0.0, node.StreamOK)

	_, queued := e.queues[id]
	assert.False(t, queued)

	ret, ok := e.retRing.Pop()
	require.True(t, ok)
	assert.Equal(t, xfer.RetRetiredProcessor, ret.Kind)
}

// A node's pending-event queue is capped; events beyond the cap are
// dropped and counted rather than grown without bound.
func TestEventQueueCapDropsOverflow(t *testing.T) {
	g := graph.New(0, 1)
	id := g.AddNode("const", 0, 1, 0)
	require.NoError(t, g.AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: g.OutputID(), DstChannel: 0}))

	sched, err := compile.Compile(g)
	require.NoError(t, err)
	pl := pool.New(sched.PoolSize, 128)
	clk := clock.NewState(48000, false)
	const cap = 4
	e := New(xfer.NewRing[xfer.Command](32), xfer.NewRing[xfer.Return](16), clk, sched, pl, true, cap)
	e.RegisterProcessor(id, &testnode.Constant{NOut: 1, Value: 1.0})

	for i := 0; i < cap+5; i++ {
		require.True(t, e.cmdRing.Push(xfer.Command{
			Kind:       xfer.CmdEnqueueEvent,
			TargetNode: id,
			Delay:      clock.UntilSample(uint64(1_000_000 + i)),
			Payload:    testnode.GainEvent{Value: 0},
		}))
	}
	require.True(t, e.cmdRing.Push(xfer.Command{Kind: xfer.CmdEventBatchEnd}))

	out := make([]sample.Sample, 8)
	e.Process(nil, out, 8, 0.0, node.StreamOK)

	assert.Len(t, e.queues[id], cap)
	assert.Equal(t, uint64(5), e.Stats.EventQueueOverflows.Load())
}
