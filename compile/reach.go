package compile

import "github.com/waveframe/engine/graph"

type color uint8

const (
	white color = iota
	gray
	black
)

// topoOrder walks backward from the graph-output node over incoming edges;
// the postorder of that walk is a topological order (sources first,
// graph-output last), since a node finishes only after all its predecessors. Nodes unreachable from graph-output are silently
// dropped from the returned order — they are retained in g but not
// scheduled. A directed cycle reachable from graph-output yields a
// non-nil *CycleDetectedError instead.
func topoOrder(g *graph.Graph) ([]graph.NodeID, *CycleDetectedError, error) {
	if _, err := g.Lookup(g.OutputID()); err != nil {
		return nil, nil, ErrMissingIONode
	}

	colors := make(map[graph.NodeID]color)
	var postorder []graph.NodeID
	var stack []graph.NodeID

	var cycleErr *CycleDetectedError

	var visit func(id graph.NodeID)
	visit = func(id graph.NodeID) {
		if cycleErr != nil {
			return
		}
		colors[id] = gray
		stack = append(stack, id)
		for _, pred := range g.IncomingNodes(id) {
			switch colors[pred] {
			case white:
				visit(pred)
				if cycleErr != nil {
					return
				}
			case gray:
				cycleErr = &CycleDetectedError{Nodes: cycleFrom(stack, pred)}
				return
			case black:
				// already fully processed via another path, skip.
			}
		}
		stack = stack[:len(stack)-1]
		colors[id] = black
		postorder = append(postorder, id)
	}

	visit(g.OutputID())
	if cycleErr != nil {
		return nil, cycleErr, nil
	}

	return postorder, nil, nil
}

// cycleFrom extracts the cycle participants from the current DFS stack,
// starting at the point where `back` (the gray node re-encountered) first
// appears.
func cycleFrom(stack []graph.NodeID, back graph.NodeID) []graph.NodeID {
	for i, id := range stack {
		if id == back {
			cycle := make([]graph.NodeID, len(stack)-i)
			copy(cycle, stack[i:])
			return cycle
		}
	}
	return []graph.NodeID{back}
}
