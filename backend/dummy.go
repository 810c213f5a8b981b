package backend

import (
	"time"

	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/sample"
)

// DummyBackend is a software-timed backend that invokes Callback on a
// ticker instead of a real device, for headless tests/CI. Input is always
// silence.
type DummyBackend struct{}

// NewDummyBackend constructs a DummyBackend. It never fails to open a
// stream, which is what makes it the terminal rung of FallbackToDummy.
func NewDummyBackend() *DummyBackend { return &DummyBackend{} }

func (d *DummyBackend) EnumerateDevices() ([]Device, []Device, error) {
	dev := Device{Name: "dummy", MaxInputChannels: sample.MaxChannels, MaxOutputChannels: sample.MaxChannels, IsDefaultInput: true, IsDefaultOutput: true}
	return []Device{dev}, []Device{dev}, nil
}

func (d *DummyBackend) OpenStream(sel DeviceSelection, _ FallbackPolicy, cb Callback) (StreamHandle, error) {
	if sel.FramesPerBuffer <= 0 {
		sel.FramesPerBuffer = 512
	}
	if sel.SampleRate <= 0 {
		sel.SampleRate = 48000
	}
	h := &dummyStream{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go h.run(sel, cb)
	return h, nil
}

type dummyStream struct {
	stop chan struct{}
	done chan struct{}
}

func (h *dummyStream) run(sel DeviceSelection, cb Callback) {
	defer close(h.done)

	interval := time.Duration(float64(sel.FramesPerBuffer) / sel.SampleRate * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	nIn := maxInt(sel.NumInputChannels, 0)
	nOut := maxInt(sel.NumOutputChannels, 0)
	in := make([]sample.Sample, sel.FramesPerBuffer*nIn)
	out := make([]sample.Sample, sel.FramesPerBuffer*nOut)

	var elapsed float64
	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			cb(in, out, sel.FramesPerBuffer, elapsed, node.StreamOK)
			elapsed += float64(sel.FramesPerBuffer) / sel.SampleRate
		}
	}
}

func (h *dummyStream) Close() error {
	close(h.stop)
	<-h.done
	return nil
}
