package backend

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/sample"
)

func TestDummyBackendInvokesCallbackAtCadence(t *testing.T) {
	var calls atomic.Int32
	var lastFrames int
	var lastStatus node.StreamStatus

	d := NewDummyBackend()
	handle, err := d.OpenStream(DeviceSelection{
		SampleRate:        48000,
		FramesPerBuffer:   64,
		NumOutputChannels: 2,
	}, 0, func(input, output []sample.Sample, frames int, clockSeconds float64, status node.StreamStatus) {
		calls.Add(1)
		lastFrames = frames
		lastStatus = status
	})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, time.Millisecond)
	require.NoError(t, handle.Close())

	assert.Equal(t, 64, lastFrames)
	assert.Equal(t, node.StreamOK, lastStatus)
}

func TestDummyBackendEnumerateDevices(t *testing.T) {
	d := NewDummyBackend()
	ins, outs, err := d.EnumerateDevices()
	require.NoError(t, err)
	require.Len(t, ins, 1)
	require.Len(t, outs, 1)
	assert.True(t, ins[0].IsDefaultInput)
	assert.True(t, outs[0].IsDefaultOutput)
}
