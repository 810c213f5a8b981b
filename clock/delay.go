package clock

import "math"

// DelayKind discriminates EventDelay variants.
type DelayKind uint8

const (
	DelayImmediate DelayKind = iota
	DelayUntilSeconds
	DelayUntilSample
	DelayUntilBeat
)

// EventDelay is when a scheduled event should fire, relative to one of the
// three clocks (or immediately).
type EventDelay struct {
	Kind    DelayKind
	Seconds float64
	Sample  uint64
	Beat    float64
}

// Immediate resolves to offset 0 of the next block it's visible in.
func Immediate() EventDelay { return EventDelay{Kind: DelayImmediate} }

// UntilSeconds resolves against the seconds clock.
func UntilSeconds(t float64) EventDelay { return EventDelay{Kind: DelayUntilSeconds, Seconds: t} }

// UntilSample resolves against the sample clock.
func UntilSample(t uint64) EventDelay { return EventDelay{Kind: DelayUntilSample, Sample: t} }

// UntilBeat resolves against the musical clock.
func UntilBeat(b float64) EventDelay { return EventDelay{Kind: DelayUntilBeat, Beat: b} }

// StartContext bundles the clock readings taken at the start of a block,
// against which pending events are resolved.
type StartContext struct {
	SampleClock  uint64
	SecondsClock float64
	BeatClock    float64
	TempoBPM     float64
	SampleRate   float64
}

// Resolve computes the in-block sample offset for d given the clock
// readings at the start of the current block. ok is false when the event
// remains pending (its resolved offset falls at or beyond frames, or — for
// UntilBeat — no tempo context is available).
func Resolve(d EventDelay, ctx StartContext, frames int) (offset int, ok bool) {
	switch d.Kind {
	case DelayImmediate:
		return 0, true
	case DelayUntilSample:
		if d.Sample < ctx.SampleClock {
			return 0, true
		}
		off := int(d.Sample - ctx.SampleClock)
		if off >= frames {
			return 0, false
		}
		return off, true
	case DelayUntilSeconds:
		delta := d.Seconds - ctx.SecondsClock
		off := int(math.Round(delta * ctx.SampleRate))
		if off < 0 {
			off = 0
		}
		if off >= frames {
			return 0, false
		}
		return off, true
	case DelayUntilBeat:
		beatsPerSample := ctx.TempoBPM / 60.0 / ctx.SampleRate
		if beatsPerSample <= 0 {
			return 0, false
		}
		deltaBeats := d.Beat - ctx.BeatClock
		off := int(math.Round(deltaBeats / beatsPerSample))
		if off < 0 {
			off = 0
		}
		if off >= frames {
			return 0, false
		}
		return off, true
	default:
		return 0, false
	}
}
