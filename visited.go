package relmap

// Visited is the state of one validation pass. It records which nodes the
// cascade already reached, which breaks cycles in the pending subgraph, and
// memoises each node's own validation result so validators run once per pass.
type Visited struct {
	reached map[NodeID]struct{}
	checked map[NodeID]bool
	cleared map[NodeID]struct{}
}

// NewVisited returns an empty validation pass.
func NewVisited() *Visited {
	return &Visited{
		reached: make(map[NodeID]struct{}),
		checked: make(map[NodeID]bool),
		cleared: make(map[NodeID]struct{}),
	}
}

// Add marks n as reached.
func (v *Visited) Add(n *Node) {
	v.reached[n.id] = struct{}{}
}

// Has reports whether n was reached.
func (v *Visited) Has(n *Node) bool {
	_, ok := v.reached[n.id]
	return ok
}

// Len returns the number of reached nodes.
func (v *Visited) Len() int {
	return len(v.reached)
}

func (v *Visited) result(n *Node) (valid, done bool) {
	valid, done = v.checked[n.id]
	return valid, done
}

func (v *Visited) record(n *Node, valid bool) {
	v.checked[n.id] = valid
}

// prepare resets n's error sink the first time the pass touches it, so
// entries nested into n earlier in the same pass survive its own validation.
func (v *Visited) prepare(n *Node) {
	if _, ok := v.cleared[n.id]; ok {
		return
	}
	v.cleared[n.id] = struct{}{}
	n.errs.Reset()
}
