package graph

import "github.com/waveframe/engine/node"

// Graph is the control-side, mutable DAG model: an arena of nodes addressed
// by generational NodeID plus a flat edge list. The zero value is not
// usable — use New, which seeds the two mandatory graph-input/graph-output
// sentinel nodes.
type Graph struct {
	arena []Node
	free  []uint32
	edges []Edge
	dirty bool

	nInChannels  int
	nOutChannels int
}

// New creates a Graph with its graph-input and graph-output sentinel nodes
// already present; their channel counts are fixed for the lifetime of the
// Graph.
func New(nGraphInputs, nGraphOutputs int) *Graph {
	g := &Graph{
		nInChannels:  nGraphInputs,
		nOutChannels: nGraphOutputs,
	}
	g.arena = append(g.arena, Node{
		ID:   GraphInputID,
		Name: "graph_input",
		NIn:  0,
		NOut: nGraphInputs,
	})
	g.arena = append(g.arena, Node{
		ID:   GraphOutputID,
		Name: "graph_output",
		NIn:  nGraphOutputs,
		NOut: 0,
	})
	g.dirty = true
	return g
}

// InputID returns the graph-input sentinel's handle.
func (g *Graph) InputID() NodeID { return GraphInputID }

// OutputID returns the graph-output sentinel's handle.
func (g *Graph) OutputID() NodeID { return GraphOutputID }

// Dirty reports whether the graph has been structurally mutated (node or
// edge add/remove) since the last call to ClearDirty. update() uses this to
// decide whether a recompile is needed.
func (g *Graph) Dirty() bool { return g.dirty }

// ClearDirty resets the dirty flag after a successful compile.
func (g *Graph) ClearDirty() { g.dirty = false }

// AddNode inserts a new node with the given channel counts and capability
// flags, returning its handle. The caller is responsible for shipping the
// actual Processor to the audio side via a command; Graph tracks only the
// bookkeeping entry.
func (g *Graph) AddNode(name string, nIn, nOut int, caps node.Capability) NodeID {
	if len(g.free) > 0 {
		slot := g.free[len(g.free)-1]
		g.free = g.free[:len(g.free)-1]
		gen := g.arena[slot].generation + 1
		id := NodeID{slot: slot, gen: gen}
		g.arena[slot] = Node{ID: id, Name: name, NIn: nIn, NOut: nOut, Capabilities: caps, generation: gen}
		g.dirty = true
		return id
	}
	slot := uint32(len(g.arena))
	id := NodeID{slot: slot, gen: 0}
	g.arena = append(g.arena, Node{ID: id, Name: name, NIn: nIn, NOut: nOut, Capabilities: caps})
	g.dirty = true
	return id
}

// Lookup resolves a NodeID to its Node entry, failing with ErrNodeNotFound
// if the slot is unpopulated, freed, or the generation is stale.
func (g *Graph) Lookup(id NodeID) (*Node, error) {
	if int(id.slot) >= len(g.arena) {
		return nil, ErrNodeNotFound
	}
	n := &g.arena[id.slot]
	if n.freed || n.generation != id.gen {
		return nil, ErrNodeNotFound
	}
	return n, nil
}

// RemoveNode frees id's slot (bumping its generation on next reuse) and
// drops every edge touching it. The graph-input and graph-output sentinels
// may never be removed.
func (g *Graph) RemoveNode(id NodeID) error {
	if id == GraphInputID || id == GraphOutputID {
		return ErrSentinelNodeImmutable
	}
	n, err := g.Lookup(id)
	if err != nil {
		return err
	}
	n.freed = true
	g.free = append(g.free, id.slot)

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Src == id || e.Dst == id {
			continue
		}
		kept = append(kept, e)
	}
	g.edges = kept
	g.dirty = true
	return nil
}

// AddEdge validates and inserts an edge. Validation (existence of both
// endpoints, channel bounds) happens before the edge is appended, so a failed
// AddEdge never leaves the graph partially mutated. AddEdge does not check for
// cycles; those are reported when the graph is compiled.
func (g *Graph) AddEdge(e Edge) error {
	src, err := g.Lookup(e.Src)
	if err != nil {
		return err
	}
	dst, err := g.Lookup(e.Dst)
	if err != nil {
		return err
	}
	if e.SrcChannel < 0 || e.SrcChannel >= src.NOut {
		return &ChannelOutOfRangeError{Node: e.Src, Channel: e.SrcChannel, Bound: src.NOut, IsInput: false}
	}
	if e.DstChannel < 0 || e.DstChannel >= dst.NIn {
		return &ChannelOutOfRangeError{Node: e.Dst, Channel: e.DstChannel, Bound: dst.NIn, IsInput: true}
	}
	g.edges = append(g.edges, e)
	g.dirty = true
	return nil
}

// RemoveEdge removes the first edge exactly matching e, if any.
func (g *Graph) RemoveEdge(e Edge) {
	for i, existing := range g.edges {
		if existing == e {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.dirty = true
			return
		}
	}
}

// Nodes returns every live node, in arena (slot) order. Callers must not
// mutate the graph while iterating the returned slice.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.arena))
	for _, n := range g.arena {
		if !n.freed {
			out = append(out, n)
		}
	}
	return out
}

// Edges returns every edge currently in the graph.
func (g *Graph) Edges() []Edge {
	return g.edges
}

// EdgesInto returns every edge terminating at (dst, dstChannel), in
// insertion order.
func (g *Graph) EdgesInto(dst NodeID, dstChannel int) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Dst == dst && e.DstChannel == dstChannel {
			out = append(out, e)
		}
	}
	return out
}

// EdgesFrom returns every edge originating at (src, srcChannel), in
// insertion order.
func (g *Graph) EdgesFrom(src NodeID, srcChannel int) []Edge {
	var out []Edge
	for _, e := range g.edges {
		if e.Src == src && e.SrcChannel == srcChannel {
			out = append(out, e)
		}
	}
	return out
}

// IncomingNodes returns the distinct set of node IDs with at least one edge
// terminating anywhere on dst, in first-seen order. Used by the compiler's
// reverse-reachability walk.
func (g *Graph) IncomingNodes(dst NodeID) []NodeID {
	var out []NodeID
	seen := make(map[NodeID]bool)
	for _, e := range g.edges {
		if e.Dst == dst && !seen[e.Src] {
			seen[e.Src] = true
			out = append(out, e.Src)
		}
	}
	return out
}
