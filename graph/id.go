package graph

// NodeID is an opaque generational handle into a Graph's node arena.
// Reusing a freed slot bumps Generation, so a stale NodeID held after its
// slot is recycled fails lookups with ErrNodeNotFound rather than silently
// addressing the wrong node.
type NodeID struct {
	slot uint32
	gen  uint32
}

// GraphInputID and GraphOutputID are the fixed handles of the two mandatory
// sentinel nodes every Graph is created with. Neither may be removed.
var (
	GraphInputID  = NodeID{slot: 0, gen: 0}
	GraphOutputID = NodeID{slot: 1, gen: 0}
)

