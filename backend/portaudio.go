package backend

import (
	"fmt"

	pa "github.com/gordonklaus/portaudio"

	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/sample"
)

// PortAudioBackend drives a real audio device via gordonklaus/portaudio.
type PortAudioBackend struct{}

// NewPortAudioBackend initializes the PortAudio library. Call Close when
// done with every stream this backend opened.
func NewPortAudioBackend() (*PortAudioBackend, error) {
	if err := pa.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &PortAudioBackend{}, nil
}

// Close terminates the PortAudio library.
func (b *PortAudioBackend) Close() error { return pa.Terminate() }

func (b *PortAudioBackend) EnumerateDevices() ([]Device, []Device, error) {
	devices, err := pa.Devices()
	if err != nil {
		return nil, nil, fmt.Errorf("portaudio: enumerate devices: %w", err)
	}
	defIn, _ := pa.DefaultInputDevice()
	defOut, _ := pa.DefaultOutputDevice()

	var ins, outs []Device
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			ins = append(ins, Device{
				Name:             d.Name,
				MaxInputChannels: d.MaxInputChannels,
				IsDefaultInput:   defIn != nil && d.Name == defIn.Name,
			})
		}
		if d.MaxOutputChannels > 0 {
			outs = append(outs, Device{
				Name:              d.Name,
				MaxOutputChannels: d.MaxOutputChannels,
				IsDefaultOutput:   defOut != nil && d.Name == defOut.Name,
			})
		}
	}
	return ins, outs, nil
}

// OpenStream opens a real device stream per sel. On failure, and if policy
// permits, it degrades to the platform default device and finally to a
// DummyBackend stream.
func (b *PortAudioBackend) OpenStream(sel DeviceSelection, policy FallbackPolicy, cb Callback) (StreamHandle, error) {
	stream, err := b.openDeviceStream(sel, cb)
	if err == nil {
		return stream, nil
	}

	if policy.Has(FallbackToDefault) {
		defaultSel := sel
		defaultSel.InputName, defaultSel.OutputName = "", ""
		if s, derr := b.openDeviceStream(defaultSel, cb); derr == nil {
			return s, nil
		}
	}

	if policy.Has(FallbackToDummy) {
		return NewDummyBackend().OpenStream(sel, policy, cb)
	}

	return nil, fmt.Errorf("portaudio: open stream: %w", err)
}

func (b *PortAudioBackend) openDeviceStream(sel DeviceSelection, cb Callback) (*portAudioStream, error) {
	inDev, outDev, err := b.resolveDevices(sel)
	if err != nil {
		return nil, err
	}

	params := pa.StreamParameters{
		Input: pa.StreamDeviceParameters{
			Device:   inDev,
			Channels: sel.NumInputChannels,
			Latency:  0,
		},
		Output: pa.StreamDeviceParameters{
			Device:   outDev,
			Channels: sel.NumOutputChannels,
			Latency:  0,
		},
		SampleRate:      sel.SampleRate,
		FramesPerBuffer: sel.FramesPerBuffer,
	}
	if inDev != nil {
		params.Input.Latency = inDev.DefaultLowInputLatency
	}
	if outDev != nil {
		params.Output.Latency = outDev.DefaultLowOutputLatency
	}

	var elapsed float64
	stream, err := pa.OpenStream(params, func(in, out []float32) {
		frames := len(out)
		if sel.NumOutputChannels > 0 {
			frames /= sel.NumOutputChannels
		}
		cb(sampleSlice(in), sampleSlice(out), frames, elapsed, node.StreamOK)
		elapsed += float64(frames) / sel.SampleRate
	})
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	return &portAudioStream{stream: stream}, nil
}

func (b *PortAudioBackend) resolveDevices(sel DeviceSelection) (in, out *pa.DeviceInfo, err error) {
	devices, err := pa.Devices()
	if err != nil {
		return nil, nil, err
	}
	if sel.InputName == "" {
		in, _ = pa.DefaultInputDevice()
	} else {
		for _, d := range devices {
			if d.Name == sel.InputName && d.MaxInputChannels > 0 {
				in = d
			}
		}
		if in == nil {
			return nil, nil, fmt.Errorf("input device %q not found", sel.InputName)
		}
	}
	if sel.OutputName == "" {
		out, _ = pa.DefaultOutputDevice()
	} else {
		for _, d := range devices {
			if d.Name == sel.OutputName && d.MaxOutputChannels > 0 {
				out = d
			}
		}
		if out == nil {
			return nil, nil, fmt.Errorf("output device %q not found", sel.OutputName)
		}
	}
	return in, out, nil
}

// sampleSlice reinterprets a []float32 as []sample.Sample without copying:
// sample.Sample is a float32 alias, so the conversion is free.
func sampleSlice(buf []float32) []sample.Sample { return buf }

type portAudioStream struct {
	stream *pa.Stream
}

func (s *portAudioStream) Close() error {
	if err := s.stream.Stop(); err != nil {
		return err
	}
	return s.stream.Close()
}
