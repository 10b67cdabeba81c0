package relmap

import (
	"context"
	"fmt"
	"iter"
)

// Mapper reconciles the committed and pending edges of one relationship
// family of one node. Writes only touch the pending buffers; nothing reaches
// the store until Persist.
type Mapper struct {
	g        *Graph
	node     NodeID
	family   string
	desc     Descriptor
	strategy traversal
	outgoing Buffer
	incoming Buffer
}

func newMapper(n *Node, family string, desc Descriptor) *Mapper {
	return &Mapper{
		g:        n.g,
		node:     n.id,
		family:   family,
		desc:     desc,
		strategy: newTraversal(family, desc),
		outgoing: Buffer{g: n.g},
		incoming: Buffer{g: n.g},
	}
}

// Node returns the owning node.
func (m *Mapper) Node() *Node { return m.g.Node(m.node) }

// Family returns the relationship family the mapper was created for.
func (m *Mapper) Family() string { return m.family }

// Descriptor returns the family descriptor, or nil.
func (m *Mapper) Descriptor() Descriptor { return m.desc }

// EdgeType returns the canonical edge type: the descriptor's, else the family.
func (m *Mapper) EdgeType() string {
	if m.desc != nil {
		if typ := m.desc.EdgeType(); typ != "" {
			return typ
		}
	}
	return m.family
}

// Direction returns the default direction: the descriptor's, else Outgoing.
func (m *Mapper) Direction() Direction {
	if m.desc != nil {
		return m.desc.Direction()
	}
	return Outgoing
}

func (m *Mapper) edgeClass() *EdgeClass {
	if m.desc != nil {
		if c := m.desc.EdgeClass(); c != nil {
			return c
		}
	}
	return DefaultEdgeClass
}

// usePersisted gates every store read. While either buffer holds pending
// edges the caller is mid-edit, and only the buffers are served.
func (m *Mapper) usePersisted() bool {
	return m.outgoing.Len() == 0 && m.incoming.Len() == 0 && m.Node().Persisted()
}

// claim binds an edge read from the store to the first mapper that reads it.
func (m *Mapper) claim(e *Edge) {
	if e.owner != 0 {
		return
	}
	e.owner = m.node
	e.family = m.family
	e.class = m.edgeClass()
}

// WriteRelationships returns the pending buffer for dir.
func (m *Mapper) WriteRelationships(dir Direction) *Buffer {
	if dir == Outgoing {
		return &m.outgoing
	}
	return &m.incoming
}

// ReadRelationships returns the edges of the family in dir. Each range over
// the sequence re-reads: committed edges in store order when both buffers
// are empty and the node is persisted, then the dir buffer in insertion
// order. A store error is yielded once and ends the sequence.
func (m *Mapper) ReadRelationships(ctx context.Context, dir Direction) iter.Seq2[*Edge, error] {
	return func(yield func(*Edge, error) bool) {
		if m.usePersisted() {
			stopped := false
			err := m.strategy.eachEdge(ctx, m.Node(), dir, func(e *Edge) bool {
				if stopped {
					return false
				}
				m.claim(e)
				if !yield(e, nil) {
					stopped = true
				}
				return !stopped
			})
			if stopped {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
		}
		for _, e := range m.WriteRelationships(dir).Edges() {
			if !yield(e, nil) {
				return
			}
		}
	}
}

// AllRelationships reads in the default direction.
func (m *Mapper) AllRelationships(ctx context.Context) iter.Seq2[*Edge, error] {
	return m.ReadRelationships(ctx, m.Direction())
}

// SingleRelationship returns the one edge of a to-one family, or nil.
// Descriptors implementing SingleEdger answer directly when the store is
// the only source.
func (m *Mapper) SingleRelationship(ctx context.Context) (*Edge, error) {
	if m.usePersisted() {
		if e, handled, err := m.strategy.singleEdge(ctx, m.Node()); handled {
			if e != nil {
				m.claim(e)
			}
			return e, err
		}
	}
	return first(m.AllRelationships(ctx))
}

// SingleNode returns the end node of the first edge in the default
// direction, or nil.
func (m *Mapper) SingleNode(ctx context.Context) (*Node, error) {
	e, err := first(m.AllRelationships(ctx))
	if e == nil || err != nil {
		return nil, err
	}
	return e.End(), nil
}

// EachNode calls visit with the far endpoint of every edge ReadRelationships
// would yield for dir, until visit returns false.
func (m *Mapper) EachNode(ctx context.Context, dir Direction, visit func(*Node) bool) error {
	owner := m.Node()
	if m.usePersisted() {
		stopped := false
		err := m.strategy.eachNode(ctx, owner, dir, func(n *Node) bool {
			if stopped {
				return false
			}
			stopped = !visit(n)
			return !stopped
		})
		if err != nil || stopped {
			return err
		}
	}
	for _, e := range m.WriteRelationships(dir).Edges() {
		if !visit(e.Other(owner)) {
			return nil
		}
	}
	return nil
}

// CreateEdgeTo adds a pending edge between from and to. Outgoing edges start
// at from, incoming edges start at to. The edge is appended to this mapper's
// dir buffer and, when the far endpoint is managed, mirrored in the opposite
// buffer of the far endpoint's mapper of the same family.
func (m *Mapper) CreateEdgeTo(from, to *Node, dir Direction) *Edge {
	start, end := from, to
	if dir == Incoming {
		start, end = to, from
	}
	owner := m.Node()
	e := m.g.addEdge(m.EdgeType(), start, end, owner, m.family, m.edgeClass())

	far := to
	if to.id == owner.id && from.id != owner.id {
		far = from
	}
	if fm := far.Mapper(m.family); fm != nil {
		fm.WriteRelationships(dir.Reverse()).Append(e)
	}
	m.WriteRelationships(dir).Append(e)
	return e
}

// DelEdge removes a pending edge from the buffer holding it, outgoing first,
// and drops its mirror registration on the other endpoint. It reports false
// and does nothing when e is not pending here.
func (m *Mapper) DelEdge(e *Edge) bool {
	if e == nil {
		return false
	}
	switch {
	case m.outgoing.remove(e.id):
		m.unmirror(e.End(), Incoming, e.id)
	case m.incoming.remove(e.id):
		m.unmirror(e.Start(), Outgoing, e.id)
	default:
		return false
	}
	return true
}

// unmirror drops id from the dir buffer of n's mapper for this family, if n
// has one.
func (m *Mapper) unmirror(n *Node, dir Direction, id EdgeID) {
	if fm, ok := n.mappers[m.family]; ok {
		fm.WriteRelationships(dir).remove(id)
	}
}

// Persist commits the pending buffers, failing fast:
//
//  1. outgoing edges are saved in insertion order until one fails;
//  2. every edge saved in step 1 leaves the outgoing buffer together with
//     its mirror in the far endpoint's incoming buffer, while the failed
//     edge and the ones after it stay pending;
//  3. if step 1 fully succeeded, the start node of every incoming edge is
//     saved unless already persisted.
//
// Incoming edges are not removed here. They leave the buffer when their
// owner on the other side persists or deletes them. Already committed edges
// are never rolled back.
func (m *Mapper) Persist(ctx context.Context) error {
	ids := m.outgoing.IDs()
	saved := 0
	var err error
	for _, id := range ids {
		if err = m.g.Edge(id).Save(ctx); err != nil {
			break
		}
		saved++
	}
	for _, id := range ids[:saved] {
		m.unmirror(m.g.Edge(id).End(), Incoming, id)
		m.outgoing.remove(id)
	}
	if err != nil {
		m.g.log.Warn("persist outgoing edges failed",
			"family", m.family, "saved", saved, "pending", m.outgoing.Len(), "error", err)
		return err
	}

	for _, id := range m.incoming.IDs() {
		start := m.g.Edge(id).Start()
		if start.Persisted() {
			continue
		}
		if err := start.Save(ctx); err != nil {
			m.g.log.Warn("persist incoming start node failed",
				"family", m.family, "node", start.String(), "error", err)
			return err
		}
	}
	return nil
}

// Valid cascades validation over the pending outgoing edges. For each edge
// both endpoints are marked reached; the end node is validated first and
// the start node only if the end node passed. The failing endpoint's errors
// are nested under the family in the other endpoint's sink. Incoming edges
// are left to the mapper on their start node. A nil visited starts a new pass,
// and a node already reached in visited reports true.
func (m *Mapper) Valid(ctx context.Context, visited *Visited) bool {
	if visited == nil {
		visited = NewVisited()
	}
	if visited.Has(m.Node()) {
		return true
	}
	return m.validate(ctx, visited)
}

// validate walks the outgoing buffer. Node.Valid calls it for every mapper
// of the node, which the first mapper has already marked reached.
func (m *Mapper) validate(ctx context.Context, visited *Visited) bool {
	valid := true
	for _, e := range m.outgoing.Edges() {
		start, end := e.Start(), e.End()
		visited.Add(start)
		visited.Add(end)
		switch {
		case !end.Valid(ctx, visited):
			valid = false
			visited.prepare(start)
			start.errs.Nest(m.family, end.errs)
		case !start.Valid(ctx, visited):
			valid = false
			visited.prepare(end)
			end.errs.Nest(m.family, start.errs)
		}
	}
	return valid
}

// String returns a summary of the mapper state.
func (m *Mapper) String() string {
	return fmt.Sprintf("Mapper %s dir: %s type: %s outgoing %d incoming %d",
		m.family, m.Direction(), m.EdgeType(), m.outgoing.Len(), m.incoming.Len())
}

func first(seq iter.Seq2[*Edge, error]) (*Edge, error) {
	for e, err := range seq {
		return e, err
	}
	return nil, nil
}
