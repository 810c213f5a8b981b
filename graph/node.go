package graph

import "github.com/waveframe/engine/node"

// Flags is the user-controllable solo/mute/bypass state of a Node, mutated
// from the control thread. It is control-side bookkeeping only: no command
// carries it to the audio side, and neither the compiler nor the executor
// reads it.
type Flags struct {
	Solo   bool
	Mute   bool
	Bypass bool
}

// Node is a named bundle of a processor and its fixed channel counts, as
// tracked on the control side. The processor itself is handed off to the
// audio thread at activation/insertion time — after that the control side
// retains only this bookkeeping entry, not the live processor.
type Node struct {
	ID    NodeID
	Name  string
	NIn   int
	NOut  int
	Flags Flags

	// Capabilities mirrors node.Processor.Capabilities(), cached on the
	// control side so the compiler can read it without touching the
	// (possibly already-shipped-away) processor.
	Capabilities node.Capability

	generation uint32 // slot generation this entry was created under
	freed      bool
}
