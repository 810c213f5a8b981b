// Package testnode provides small, deterministic Processor implementations
// used by compiler, executor, and end-to-end tests throughout the module.
// None of these are meant as real DSP node implementations (those are an
// explicit non-goal of the core engine) — they exist only to drive the
// scheduling and execution machinery under test.
package testnode

import (
	"math"

	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/sample"
)

// Sine is a deterministic sine generator used by the "beep generator"
// scenario. It has zero inputs and writes the same tone to
// every declared output channel.
type Sine struct {
	NOut       int
	Freq       float64
	Amp        float64
	SampleRate float64

	n uint64 // running sample count, advances every Process call
}

func (s *Sine) ChannelConfig() (int, int)    { return 0, s.NOut }
func (s *Sine) Capabilities() node.Capability { return 0 }

func (s *Sine) Process(inputs []sample.Buffer, outputs []sample.Buffer, events node.EventIter, info node.ProcInfo) node.ProcessStatus {
	for ch := range outputs {
		buf := outputs[ch]
		for i := range buf {
			t := float64(s.n+uint64(i)) / s.SampleRate
			buf[i] = sample.Sample(s.Amp * math.Sin(2*math.Pi*s.Freq*t))
		}
	}
	s.n += uint64(info.Frames)
	return node.OutputsModified(0)
}

// Constant writes a fixed value to every output channel every block.
type Constant struct {
	NOut  int
	Value float64
}

func (c *Constant) ChannelConfig() (int, int)     { return 0, c.NOut }
func (c *Constant) Capabilities() node.Capability { return 0 }

func (c *Constant) Process(inputs []sample.Buffer, outputs []sample.Buffer, events node.EventIter, info node.ProcInfo) node.ProcessStatus {
	for ch := range outputs {
		buf := outputs[ch]
		for i := range buf {
			buf[i] = sample.Sample(c.Value)
		}
	}
	if c.Value == 0 {
		return node.ClearAllOutputs()
	}
	return node.OutputsModified(0)
}

// GainEvent is the payload for Gain's SetGain event.
type GainEvent struct {
	Value float64
}

// Gain multiplies its single input channel by a gain factor that can be
// changed mid-block via a scheduled GainEvent, applied instantly at its
// resolved sample offset.
type Gain struct {
	N     int
	Value float64
}

func (g *Gain) ChannelConfig() (int, int)     { return g.N, g.N }
func (g *Gain) Capabilities() node.Capability { return node.SkipIfAllInputsSilent }

func (g *Gain) Process(inputs []sample.Buffer, outputs []sample.Buffer, events node.EventIter, info node.ProcInfo) node.ProcessStatus {
	gain := g.Value
	nextOffset := -1
	var nextGain float64
	if e, ok := events.Next(); ok {
		nextOffset = e.SampleOffset
		nextGain = e.Payload.(GainEvent).Value
	}

	for ch := range outputs {
		in := inputs[ch]
		out := outputs[ch]
		for i := 0; i < info.Frames; i++ {
			for nextOffset == i {
				gain = nextGain
				g.Value = nextGain
				if e, ok := events.Next(); ok {
					nextOffset = e.SampleOffset
					nextGain = e.Payload.(GainEvent).Value
				} else {
					nextOffset = -1
				}
			}
			out[i] = sample.Sample(float64(in[i]) * gain)
		}
	}
	return node.OutputsModified(0)
}

// Passthrough copies each input channel to the matching output channel
// unmodified; used for the "silent passthrough" scenario and as a minimal
// identity node in graph-shape tests.
type Passthrough struct {
	N int
}

func (p *Passthrough) ChannelConfig() (int, int)     { return p.N, p.N }
func (p *Passthrough) Capabilities() node.Capability { return node.SkipIfAllInputsSilent }

func (p *Passthrough) Process(inputs []sample.Buffer, outputs []sample.Buffer, events node.EventIter, info node.ProcInfo) node.ProcessStatus {
	var silence sample.SilenceMask
	for ch := range outputs {
		copy(outputs[ch], inputs[ch])
		if info.InSilenceMask.IsSilent(ch) {
			silence = silence.Set(ch)
		}
	}
	return node.OutputsModified(silence)
}
