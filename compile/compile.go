package compile

import (
	"sort"

	"github.com/waveframe/engine/graph"
	"github.com/waveframe/engine/node"
	"github.com/waveframe/engine/pool"
)

type portKey struct {
	node    graph.NodeID
	channel int
}

// Compile lowers g into a Schedule plus the minimum pool size B it needs,
// via topological ordering followed by liveness-interval slot assignment.
func Compile(g *graph.Graph) (*Schedule, error) {
	order, cycle, err := topoOrder(g)
	if err != nil {
		return nil, err
	}
	if cycle != nil {
		return nil, cycle
	}

	c := &compiler{
		g:         g,
		order:     order,
		pos:       make(map[graph.NodeID]int, len(order)),
		produced:  make(map[portKey]pool.Slot),
		liveUntil: make(map[pool.Slot]int),
		freeAt:    make(map[int][]pool.Slot),
		sched:     &Schedule{StaticSilence: make(map[pool.Slot]bool)},
	}
	for i, id := range order {
		c.pos[id] = i
	}
	c.computeConsumerPositions()

	for i, id := range order {
		n, err := g.Lookup(id)
		if err != nil {
			return nil, err
		}
		switch id {
		case g.InputID():
			c.emitGraphInput(n, i)
		case g.OutputID():
			c.emitGraphOutput(n, i)
		default:
			c.emitNode(n, i)
		}
		c.reclaim(i)
	}

	c.sched.PoolSize = c.nextSlot
	return c.sched, nil
}

type compiler struct {
	g     *graph.Graph
	order []graph.NodeID
	pos   map[graph.NodeID]int

	produced  map[portKey]pool.Slot // (node,channel) -> slot it was assigned
	maxUse    map[portKey]int       // (node,channel) -> last consumer position
	liveUntil map[pool.Slot]int     // slot -> position after which it's free
	freeAt    map[int][]pool.Slot   // position -> slots to release after it runs
	freeList  []pool.Slot           // sorted ascending, lowest index reused first
	nextSlot  int

	sched *Schedule
}

// computeConsumerPositions scans every edge once to find, for each
// producing (node,channel) port, the topo-order position of its
// last-running consumer. Used both for freeing producer slots and for the
// single-edge direct-use-vs-copy tie-break.
func (c *compiler) computeConsumerPositions() {
	c.maxUse = make(map[portKey]int)
	for _, e := range c.g.Edges() {
		key := portKey{e.Src, e.SrcChannel}
		p := c.pos[e.Dst]
		if cur, ok := c.maxUse[key]; !ok || p > cur {
			c.maxUse[key] = p
		}
	}
}

func (c *compiler) allocSlot() pool.Slot {
	if len(c.freeList) > 0 {
		s := c.freeList[0]
		c.freeList = c.freeList[1:]
		return s
	}
	s := pool.Slot(c.nextSlot)
	c.nextSlot++
	return s
}

func (c *compiler) scheduleFree(s pool.Slot, atPos int) {
	c.freeAt[atPos] = append(c.freeAt[atPos], s)
}

func (c *compiler) reclaim(pos int) {
	slots := c.freeAt[pos]
	if len(slots) == 0 {
		return
	}
	delete(c.freeAt, pos)
	c.freeList = append(c.freeList, slots...)
	sort.Slice(c.freeList, func(i, j int) bool { return c.freeList[i] < c.freeList[j] })
}

func (c *compiler) emitGraphInput(n *graph.Node, pos int) {
	slots := make([]pool.Slot, n.NOut)
	for ch := 0; ch < n.NOut; ch++ {
		s := c.allocSlot()
		slots[ch] = s
		key := portKey{n.ID, ch}
		c.produced[key] = s
		last, ok := c.maxUse[key]
		if !ok {
			last = pos
		}
		c.liveUntil[s] = last
		c.scheduleFree(s, last)
	}
	c.sched.InputSlots = slots
}

func (c *compiler) emitGraphOutput(n *graph.Node, pos int) {
	in := c.resolveInputs(n, pos)
	c.sched.OutputSlots = in
}

func (c *compiler) emitNode(n *graph.Node, pos int) {
	in := c.resolveInputs(n, pos)

	out := make([]pool.Slot, n.NOut)
	for ch := 0; ch < n.NOut; ch++ {
		s := c.allocSlot()
		out[ch] = s
		key := portKey{n.ID, ch}
		c.produced[key] = s
		last, ok := c.maxUse[key]
		if !ok {
			last = pos
		}
		c.liveUntil[s] = last
		if n.Capabilities.Has(node.OutputsAlwaysSilentUntilActive) {
			c.sched.StaticSilence[s] = true
		}
		c.scheduleFree(s, last)
	}

	c.sched.Tasks = append(c.sched.Tasks, Task{
		Kind: TaskProcess,
		Node: n.ID,
		In:   in,
		Out:  out,
	})
}

// resolveInputs resolves every input channel of n: zero incoming edges ->
// Clear a fresh slot; one edge -> direct reuse of the source slot if n is
// its last consumer, else Copy to a private slot; two or more edges ->
// Clear + Sum into a fresh slot.
func (c *compiler) resolveInputs(n *graph.Node, pos int) []pool.Slot {
	in := make([]pool.Slot, n.NIn)
	for ch := 0; ch < n.NIn; ch++ {
		edges := c.g.EdgesInto(n.ID, ch)
		switch len(edges) {
		case 0:
			s := c.allocSlot()
			c.sched.Tasks = append(c.sched.Tasks, Task{Kind: TaskClear, Dst: s})
			c.scheduleFree(s, pos)
			in[ch] = s
		case 1:
			e := edges[0]
			srcKey := portKey{e.Src, e.SrcChannel}
			srcSlot := c.produced[srcKey]
			if c.maxUse[srcKey] == pos {
				// n is the last consumer: use the slot directly, it is
				// freed (if not already) once this position completes.
				in[ch] = srcSlot
			} else {
				// source remains live for a later consumer: take a
				// private copy for this node's exclusive use.
				dst := c.allocSlot()
				c.sched.Tasks = append(c.sched.Tasks, Task{Kind: TaskCopy, Src: srcSlot, Dst: dst})
				c.scheduleFree(dst, pos)
				in[ch] = dst
			}
		default:
			srcs := make([]pool.Slot, len(edges))
			for i, e := range edges {
				srcs[i] = c.produced[portKey{e.Src, e.SrcChannel}]
			}
			dst := c.allocSlot()
			c.sched.Tasks = append(c.sched.Tasks,
				Task{Kind: TaskClear, Dst: dst},
				Task{Kind: TaskSum, Srcs: srcs, Dst: dst},
			)
			c.scheduleFree(dst, pos)
			in[ch] = dst
		}
	}
	return in
}
