// Package pool implements the fixed-size, cache-aligned buffer slab the
// processor executor reuses across schedule slots each block.
package pool

import (
	"golang.org/x/sys/cpu"

	"github.com/waveframe/engine/sample"
)

// Slot indexes a single channel-sized buffer inside a Pool.
type Slot int

// silenceWord pads a single uint64 of silence bits to a cache line so each
// slot's silence flag sits on its own line, apart from its neighbors.
type silenceWord struct {
	bits uint64
	_    cpu.CacheLinePad
}

// Pool is a slab of B fixed-size sample buffers, indexed by Slot, plus a
// parallel per-slot silence flag. It is owned exclusively by the processor
// executor; the control thread never reads or writes into it directly.
//
// A Pool (and the slot count B it was sized for) is produced by the compiler
// alongside a Schedule and travels to the audio thread bundled with it; the
// previous Pool is retired back to the control thread for deallocation when a
// new one is swapped in.
type Pool struct {
	blockSize int
	buffers   [][]sample.Sample
	silence   []silenceWord
}

// New allocates a Pool of n slots, each able to hold blockSize samples.
func New(n, blockSize int) *Pool {
	p := &Pool{
		blockSize: blockSize,
		buffers:   make([][]sample.Sample, n),
		silence:   make([]silenceWord, n),
	}
	backing := make([]sample.Sample, n*blockSize)
	for i := 0; i < n; i++ {
		p.buffers[i] = backing[i*blockSize : (i+1)*blockSize : (i+1)*blockSize]
	}
	return p
}

// Len returns the number of slots in the pool.
func (p *Pool) Len() int { return len(p.buffers) }

// BlockSize returns the number of samples each slot holds.
func (p *Pool) BlockSize() int { return p.blockSize }

// Buffer returns the raw sample slice for slot s. Valid only for the
// duration of the current block.
func (p *Pool) Buffer(s Slot) []sample.Sample {
	return p.buffers[s]
}

// Clear zero-fills slot s and marks it silent.
func (p *Pool) Clear(s Slot) {
	buf := p.buffers[s]
	for i := range buf {
		buf[i] = 0
	}
	p.silence[s].bits = 1
}

// SetSilent sets or clears the silence flag for slot s without touching its
// contents.
func (p *Pool) SetSilent(s Slot, silent bool) {
	if silent {
		p.silence[s].bits = 1
	} else {
		p.silence[s].bits = 0
	}
}

// IsSilent reports whether slot s is currently flagged silent.
func (p *Pool) IsSilent(s Slot) bool {
	return p.silence[s].bits != 0
}

// Copy copies src's samples and silence flag into dst.
func (p *Pool) Copy(src, dst Slot) {
	copy(p.buffers[dst], p.buffers[src])
	p.silence[dst].bits = p.silence[src].bits
}
