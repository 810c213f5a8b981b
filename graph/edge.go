package graph

// Edge connects one output channel of a source node to one input channel of
// a destination node. Multiple edges may terminate at the same
// (dst, dstChannel) — summed at compile time — and multiple edges may
// originate at the same (src, srcChannel) — fanned out by copy or shared
// reference at compile time.
type Edge struct {
	Src        NodeID
	SrcChannel int
	Dst        NodeID
	DstChannel int
}
