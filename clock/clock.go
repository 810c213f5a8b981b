// Package clock implements the engine's three time bases (seconds, sample,
// musical) and scheduled-event delay resolution.
package clock

import (
	"math"
	"sync/atomic"
)

// State holds the three clocks. It is written only by the audio thread and
// read by the control thread through atomic loads of its exported
// snapshot-returning methods — never locked.
type State struct {
	seconds atomic.Uint64 // math.Float64bits
	sample  atomic.Uint64
	beat    atomic.Uint64 // math.Float64bits

	tempo      atomic.Uint64 // math.Float64bits, beats per minute
	playing    atomic.Bool
	hasMusic   bool
	sampleHz   float64
	musicStart atomic.Uint64 // sample at which beat 0 occurs
}

// NewState creates a clock State for a stream running at the given sample
// rate. hasMusicalClock enables the optional musical transport.
func NewState(sampleRate float64, hasMusicalClock bool) *State {
	s := &State{sampleHz: sampleRate, hasMusic: hasMusicalClock}
	s.tempo.Store(floatBits(120))
	return s
}

func floatBits(f float64) uint64   { return math.Float64bits(f) }
func bitsToFloat(b uint64) float64 { return math.Float64frombits(b) }

// SecondsNow returns the current seconds-clock reading (authoritative
// against underruns — set from the backend's native clock each block).
func (s *State) SecondsNow() float64 { return bitsToFloat(s.seconds.Load()) }

// SampleNow returns the current sample-clock reading (does not account for
// underruns: a gap between blocks produces no sample gap).
func (s *State) SampleNow() uint64 { return s.sample.Load() }

// BeatNow returns the current musical-clock reading in beats. Valid only if
// HasMusicalClock() is true.
func (s *State) BeatNow() float64 { return bitsToFloat(s.beat.Load()) }

// HasMusicalClock reports whether this engine instance was configured with
// the optional musical transport.
func (s *State) HasMusicalClock() bool { return s.hasMusic }

// Playing reports whether the musical transport is currently advancing.
func (s *State) Playing() bool { return s.playing.Load() }

// SetPlaying starts or stops musical-clock advancement.
func (s *State) SetPlaying(playing bool) { s.playing.Store(playing) }

// SetTempo sets the current tempo in beats per minute.
func (s *State) SetTempo(bpm float64) { s.tempo.Store(floatBits(bpm)) }

// Tempo returns the current tempo in beats per minute.
func (s *State) Tempo() float64 { return bitsToFloat(s.tempo.Load()) }

// Advance is called by the executor once per block: it sets the seconds
// clock from the backend-supplied reading, increments the sample clock by
// frames, and — if playing and a musical clock is configured — advances the
// beat position.
func (s *State) Advance(frames int, clockSeconds float64) {
	s.seconds.Store(floatBits(clockSeconds))
	newSample := s.sample.Load() + uint64(frames)
	s.sample.Store(newSample)
	if s.hasMusic && s.playing.Load() {
		tempo := s.Tempo()
		beatsPerSample := tempo / 60.0 / s.sampleHz
		s.beat.Store(floatBits(s.BeatNow() + beatsPerSample*float64(frames)))
	}
}

// Reseat resets the musical clock from sample*beats_per_sample, guarding
// against long-run accumulation drift.
func (s *State) Reseat() {
	if !s.hasMusic {
		return
	}
	tempo := s.Tempo()
	beatsPerSample := tempo / 60.0 / s.sampleHz
	elapsed := s.sample.Load() - s.musicStart.Load()
	s.beat.Store(floatBits(float64(elapsed) * beatsPerSample))
}

// SetMusicalStart rebases beat 0 to the given sample position, per a
// CmdSetClockStart control message.
func (s *State) SetMusicalStart(sample uint64) {
	s.musicStart.Store(sample)
	s.Reseat()
}

// SampleRate reports the configured sample rate.
func (s *State) SampleRate() float64 { return s.sampleHz }
