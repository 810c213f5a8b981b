package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveframe/engine/clock"
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node/testnode"
	"github.com/waveframe/engine/sample"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NGraphInputs = 0
	cfg.NGraphOutputs = 1
	cfg.MaxBlockFrames = 128
	return cfg
}

func TestActivateCompilesAndRegistersProcessors(t *testing.T) {
	c := New(testConfig(), nil)
	id := c.AddNode("sine", 0, 1, 0, &testnode.Sine{NOut: 1, Freq: 220, Amp: 0.3, SampleRate: 48000})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))

	require.NoError(t, c.Activate())
	assert.Equal(t, Active, c.State())

	out := make([]sample.Sample, 128)
	c.Executor().Process(nil, out, 128, 0.0, 0)
	assert.False(t, sample.IsZero(out))
}

func TestUpdateRejectedWhileInactive(t *testing.T) {
	c := New(testConfig(), nil)
	assert.ErrorIs(t, c.Update(), ErrNotActive)
}

func TestUpdateRecompilesOnDirtyGraph(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Activate())

	id := c.AddNode("const", 0, 1, 0, &testnode.Constant{NOut: 1, Value: 0.6})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))
	require.NoError(t, c.Update())

	out := make([]sample.Sample, 8)
	c.Executor().Process(nil, out, 8, 0.0, 0)
	for _, v := range out {
		assert.InDelta(t, 0.6, v, 1e-6)
	}
}

func TestEnqueueEventFlushesAsBatchOnUpdate(t *testing.T) {
	cfg := testConfig()
	cfg.NGraphInputs = 1
	c := New(cfg, nil)
	gainID := c.AddNode("gain", 1, 1, 0, &testnode.Gain{N: 1, Value: 1.0})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: c.Graph().InputID(), SrcChannel: 0, Dst: gainID, DstChannel: 0}))
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: gainID, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))
	require.NoError(t, c.Activate())

	require.NoError(t, c.EnqueueEvent(gainID, clock.UntilSample(4), testnode.GainEvent{Value: 0.0}))
	require.NoError(t, c.Update())

	in := make([]sample.Sample, 8)
	for i := range in {
		in[i] = 1.0
	}
	out := make([]sample.Sample, 8)
	c.Executor().Process(in, out, 8, 0.0, 0)

	for i := 0; i < 4; i++ {
		assert.InDelta(t, 1.0, out[i], 1e-6)
	}
	for i := 4; i < 8; i++ {
		assert.InDelta(t, 0.0, out[i], 1e-6)
	}
}

func TestStreamInterruptedSurfacesOnNextUpdate(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Activate())

	c.MarkStreamInterrupted()
	err := c.Update()
	var sie *StreamInterruptedError
	assert.ErrorAs(t, err, &sie)
	assert.Equal(t, Inactive, c.State())
}

func TestDeactivateIsIdempotent(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Activate())
	c.Deactivate()
	assert.Equal(t, Inactive, c.State())
	c.Deactivate() // no-op, must not panic
	assert.Equal(t, Inactive, c.State())
}

func TestDeactivateWaitsForShutdownAck(t *testing.T) {
	c := New(testConfig(), nil)
	require.NoError(t, c.Activate())

	done := make(chan struct{})
	go func() {
		defer close(done)
		out := make([]sample.Sample, 8)
		for i := 0; i < 10; i++ {
			c.Executor().Process(nil, out, 8, 0.0, 0)
		}
	}()

	c.Deactivate()
	<-done
	assert.Equal(t, Inactive, c.State())
}

func TestRemoveNodeStagesDropWhenActive(t *testing.T) {
	c := New(testConfig(), nil)
	id := c.AddNode("const", 0, 1, 0, &testnode.Constant{NOut: 1, Value: 1.0})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))
	require.NoError(t, c.Activate())

	require.NoError(t, c.RemoveNode(id))
	assert.Equal(t, 1, c.cmdRing.Len())
}

// Events staged but not yet flushed by Update must not survive a deactivate:
// they target an Executor that's about to be torn down (Open Question
// resolution recorded in DESIGN.md).
func TestDeactivateClearsStagedEvents(t *testing.T) {
	c := New(testConfig(), nil)
	id := c.AddNode("const", 0, 1, 0, &testnode.Constant{NOut: 1, Value: 1.0})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))
	require.NoError(t, c.Activate())

	require.NoError(t, c.EnqueueEvent(id, clock.UntilSample(4), testnode.GainEvent{Value: 0.0}))
	require.NotEmpty(t, c.staged)

	c.Deactivate()
	assert.Empty(t, c.staged)

	require.NoError(t, c.Activate())
	require.NoError(t, c.Update())
	assert.Equal(t, 0, c.cmdRing.Len())
}

// A batch that can't fully fit in the command ring (including its trailing
// CmdEventBatchEnd) leaves c.staged untouched, so a retry delivers the whole
// batch rather than a partial, sentinel-less prefix.
func TestUpdateLeavesStagedIntactWhenRingFull(t *testing.T) {
	cfg := testConfig()
	cfg.CommandRingCapacity = 2
	cfg.EventQueueCapacityPerNode = 100
	c := New(cfg, nil)
	id := c.AddNode("const", 0, 1, 0, &testnode.Constant{NOut: 1, Value: 1.0})
	require.NoError(t, c.Graph().AddEdge(graph.Edge{Src: id, SrcChannel: 0, Dst: c.Graph().OutputID(), DstChannel: 0}))
	require.NoError(t, c.Activate())

	for i := 0; i < 3; i++ {
		require.NoError(t, c.EnqueueEvent(id, clock.UntilSample(uint64(100+i)), testnode.GainEvent{Value: 0.0}))
	}
	staged := len(c.staged)

	err := c.Update()
	require.Error(t, err)
	var full *ErrQueueFull
	require.ErrorAs(t, err, &full)
	assert.Equal(t, staged, len(c.staged))
}
