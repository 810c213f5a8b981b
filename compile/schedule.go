// Package compile turns a graph.Graph into a linear Schedule of primitive
// tasks operating on a bounded pool.Pool.
package compile

import (
	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/pool"
)

// TaskKind discriminates the four primitive schedule operations.
type TaskKind uint8

const (
	TaskClear TaskKind = iota
	TaskCopy
	TaskSum
	TaskProcess
)

// Task is one primitive step of a compiled Schedule. Which fields are
// meaningful depends on Kind:
//   - TaskClear:   Dst
//   - TaskCopy:    Src, Dst
//   - TaskSum:     Srcs, Dst
//   - TaskProcess: Node, In, Out
type Task struct {
	Kind TaskKind
	Dst  pool.Slot
	Src  pool.Slot
	Srcs []pool.Slot
	Node graph.NodeID
	In   []pool.Slot
	Out  []pool.Slot
}

// Schedule is the compiled, ordered task list plus the boundary slot
// assignments the executor needs to de-interleave captured input and
// interleave the final output.
type Schedule struct {
	Tasks []Task

	// PoolSize is B: the minimum number of pool slots this schedule needs.
	PoolSize int

	// InputSlots holds one pool slot per graph-input output channel; the
	// executor writes de-interleaved captured samples directly into these
	// before running Tasks.
	InputSlots []pool.Slot

	// OutputSlots holds one pool slot per graph-output input channel; the
	// executor interleaves these into the device output buffer after
	// running Tasks.
	OutputSlots []pool.Slot

	// StaticSilence marks, per slot, the compiler's conservative silence
	// pre-pass hint for slots produced by nodes declaring
	// OutputsAlwaysSilentUntilActive. The executor seeds a fresh pool's
	// silence flags from this before the first block runs.
	StaticSilence map[pool.Slot]bool
}
