// Package backend implements the device-facing contract: a Backend
// abstracts over whatever actually drives the audio callback (a real
// device via PortAudio, or a software-timed dummy for headless tests/CI),
// each invoking an engine Callback exactly once per block.
package backend

import (
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/sample"
)

// Device describes one enumerated input or output device.
type Device struct {
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// FallbackPolicy is a bitset of degradation strategies to try, in order,
// when the requested device cannot be opened.
type FallbackPolicy uint8

const (
	// FallbackToDefault retries with the platform's default device.
	FallbackToDefault FallbackPolicy = 1 << iota
	// FallbackToDummy falls all the way back to a software-timed dummy
	// stream if no real device can be opened.
	FallbackToDummy
)

// Has reports whether p includes flag.
func (p FallbackPolicy) Has(flag FallbackPolicy) bool { return p&flag != 0 }

// DeviceSelection names the requested devices and stream shape. Empty
// name fields mean "use the platform default".
type DeviceSelection struct {
	InputName         string
	OutputName        string
	SampleRate        float64
	FramesPerBuffer   int
	NumInputChannels  int
	NumOutputChannels int
}

// Callback is invoked exactly once per audio block. input/output are
// interleaved, frames long per channel; the engine side of Callback
// (exec.Executor.Process) de-interleaves input into, and interleaves output
// from, its non-interleaved internal buffers.
type Callback func(input, output []sample.Sample, frames int, clockSeconds float64, status node.StreamStatus)

// StreamHandle represents an open stream; Close stops it and releases the
// backend's resources.
type StreamHandle interface {
	Close() error
}

// Backend is the contract any device backend must honor.
type Backend interface {
	EnumerateDevices() (inputs, outputs []Device, err error)
	OpenStream(selection DeviceSelection, policy FallbackPolicy, cb Callback) (StreamHandle, error)
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
