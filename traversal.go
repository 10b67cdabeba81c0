package relmap

import "context"

// traversal is how a mapper reads committed edges. It is picked once, when
// the mapper is built: delegated when the family has a descriptor, native
// otherwise.
type traversal interface {
	eachEdge(ctx context.Context, n *Node, dir Direction, visit func(*Edge) bool) error
	eachNode(ctx context.Context, n *Node, dir Direction, visit func(*Node) bool) error
	// singleEdge reports handled=false when the strategy has no shortcut.
	singleEdge(ctx context.Context, n *Node) (e *Edge, handled bool, err error)
}

func newTraversal(family string, desc Descriptor) traversal {
	if desc != nil {
		return delegated{desc: desc}
	}
	return native{typ: family}
}

// native queries the PersistedEdgeSource for the mapper's own edge type.
type native struct {
	typ string
}

func (t native) eachEdge(ctx context.Context, n *Node, dir Direction, visit func(*Edge) bool) error {
	edges, err := n.g.PersistedEdges(ctx, n, t.typ, dir)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if !visit(e) {
			return nil
		}
	}
	return nil
}

func (t native) eachNode(ctx context.Context, n *Node, dir Direction, visit func(*Node) bool) error {
	return t.eachEdge(ctx, n, dir, func(e *Edge) bool {
		return visit(e.Other(n))
	})
}

func (native) singleEdge(context.Context, *Node) (*Edge, bool, error) {
	return nil, false, nil
}

// delegated hands committed reads to the family's descriptor.
type delegated struct {
	desc Descriptor
}

func (t delegated) eachEdge(ctx context.Context, n *Node, dir Direction, visit func(*Edge) bool) error {
	return t.desc.EachEdge(ctx, n, dir, visit)
}

func (t delegated) eachNode(ctx context.Context, n *Node, dir Direction, visit func(*Node) bool) error {
	return t.desc.EachNode(ctx, n, dir, visit)
}

func (t delegated) singleEdge(ctx context.Context, n *Node) (*Edge, bool, error) {
	s, ok := t.desc.(SingleEdger)
	if !ok {
		return nil, false, nil
	}
	e, err := s.SingleEdge(ctx, n)
	return e, true, err
}
