package compile

import (
	"fmt"

	"github.com/waveframe/engine/graph"
)

// CycleDetectedError reports a directed cycle found during reachability
// analysis. The previously published schedule, if any, keeps running.
type CycleDetectedError struct {
	Nodes []graph.NodeID
}

func (e *CycleDetectedError) Error() string {
	return fmt.Sprintf("compile: cycle detected among %d nodes", len(e.Nodes))
}

// ErrMissingIONode is returned if the graph's mandatory graph-output
// sentinel cannot be resolved (should not happen in practice
// since graph.New always seeds both, but defends against a malformed or
// hand-built graph.Graph reaching Compile).
var ErrMissingIONode = fmt.Errorf("compile: missing graph input/output node")

// ChannelOutOfRangeError re-exports graph's edge validation error under the
// compile package so callers checking compile errors don't need to import
// graph directly; it is a type alias for the original.
type ChannelOutOfRangeError = graph.ChannelOutOfRangeError
