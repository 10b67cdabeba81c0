package relmap

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Edge is a directed, typed relationship between two nodes of the same graph.
type Edge struct {
	g      *Graph
	id     EdgeID
	typ    string
	start  NodeID
	end    NodeID
	owner  NodeID // node of the mapper that created or first read e, 0 if none
	family string
	class  *EdgeClass
	props  Properties

	native    NativeID
	committed bool
}

// ID returns the edge's arena id.
func (e *Edge) ID() EdgeID { return e.id }

// Type returns the edge type.
func (e *Edge) Type() string { return e.typ }

// Start returns the node the edge leaves.
func (e *Edge) Start() *Node { return e.g.Node(e.start) }

// End returns the node the edge enters.
func (e *Edge) End() *Node { return e.g.Node(e.end) }

// Other returns the endpoint that is not n. For a self loop it returns n.
func (e *Edge) Other(n *Node) *Node {
	if e.start == n.id {
		return e.End()
	}
	return e.Start()
}

// Family returns the relationship family of the mapper that created or first
// read e, or "" for edges no mapper has read.
func (e *Edge) Family() string { return e.family }

// Mapper returns the mapper that created or first read e. Edges listed
// through Graph.PersistedEdges and not read by any mapper return nil.
func (e *Edge) Mapper() *Mapper {
	owner := e.g.Node(e.owner)
	if owner == nil {
		return nil
	}
	return owner.mappers[e.family]
}

// Class returns the edge class of e's mapper, or DefaultEdgeClass for edges
// no mapper has read.
func (e *Edge) Class() *EdgeClass { return e.class }

// Committed reports whether e was written to the store.
func (e *Edge) Committed() bool { return e.committed }

// NativeID returns the store identity, or uuid.Nil before commit.
func (e *Edge) NativeID() NativeID { return e.native }

// Properties returns a copy of the edge properties.
func (e *Edge) Properties() Properties { return e.props.Clone() }

// Set stores a property value. Properties of committed edges are read-only.
func (e *Edge) Set(key string, value any) bool {
	if e.committed {
		return false
	}
	if e.props == nil {
		e.props = make(Properties)
	}
	e.props[key] = value
	return true
}

// Save writes e to the store. Endpoints that are not persisted yet are saved
// first, which drains their own mappers. Saving a committed edge is a no-op.
func (e *Edge) Save(ctx context.Context) error {
	if e.committed {
		return nil
	}
	if p := e.class.Policy; p != nil {
		if err := p.EvalEdge(ctx, e); err != nil {
			return NewMutationError("edge", "create", err)
		}
	}
	start, end := e.Start(), e.End()
	for _, n := range []*Node{start, end} {
		if n.Persisted() {
			continue
		}
		if err := n.Save(ctx); err != nil {
			return err
		}
	}
	// An endpoint save can reach e through its own mapper.
	if e.committed {
		return nil
	}
	if !start.Persisted() || !end.Persisted() {
		return NewMutationError("edge", "create", ErrNotPersisted)
	}
	id, err := e.g.store.CreateEdge(ctx, EdgeRecord{
		Type:       e.typ,
		Start:      start.native,
		End:        end.native,
		Properties: e.props.Clone(),
	})
	if err != nil {
		return NewMutationError("edge", "create", err)
	}
	e.native = id
	e.committed = true
	e.g.edgeByNative[id] = e.id
	e.g.log.Debug("edge created", "type", e.typ, "id", id, "start", start.native, "end", end.native)
	return nil
}

// Destroy deletes a committed edge from the store. The edge keeps its arena
// id but is no longer committed.
func (e *Edge) Destroy(ctx context.Context) error {
	if !e.committed {
		return ErrNotPersisted
	}
	if err := e.g.store.DeleteEdge(ctx, e.native); err != nil {
		return NewMutationError("edge", "delete", err)
	}
	e.g.log.Debug("edge deleted", "type", e.typ, "id", e.native)
	delete(e.g.edgeByNative, e.native)
	e.native = uuid.Nil
	e.committed = false
	return nil
}

// String returns a short description of the edge.
func (e *Edge) String() string {
	state := "pending"
	if e.committed {
		state = e.native.String()
	}
	return fmt.Sprintf("(%d)-[%s#%d %s]->(%d)", e.start, e.typ, e.id, state, e.end)
}
