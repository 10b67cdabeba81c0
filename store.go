package relmap

import (
	"context"
	"maps"

	"github.com/google/uuid"
)

// NativeID is the identity the backing store assigns to a committed node or edge.
type NativeID = uuid.UUID

// Properties holds the attribute values stored with a node or an edge.
type Properties map[string]any

// Clone returns a shallow copy of p. A nil map clones to nil.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	return maps.Clone(p)
}

// NodeRecord is a node as the store sees it.
type NodeRecord struct {
	ID         NativeID
	Label      string
	Properties Properties
}

// EdgeRecord is an edge as the store sees it.
type EdgeRecord struct {
	ID         NativeID
	Type       string
	Start      NativeID
	End        NativeID
	Properties Properties
}

// Other returns the endpoint of r that is not node. For a self loop both
// endpoints are node.
func (r EdgeRecord) Other(node NativeID) NativeID {
	if r.Start == node {
		return r.End
	}
	return r.Start
}

// PersistedEdgeSource is the only read path into the backing store's native
// traversal. Mappers without a descriptor use it to list committed edges.
type PersistedEdgeSource interface {
	// Edges returns the committed edges of type typ that start (Outgoing) or
	// end (Incoming) at node, in store order.
	Edges(ctx context.Context, node NativeID, typ string, dir Direction) ([]EdgeRecord, error)
}

// Store is the full backing store contract used by the graph.
type Store interface {
	PersistedEdgeSource

	// CreateNode writes a new node and returns its native identity.
	CreateNode(ctx context.Context, rec NodeRecord) (NativeID, error)
	// UpdateNode overwrites the label and properties of an existing node.
	UpdateNode(ctx context.Context, rec NodeRecord) error
	// Nodes returns the records for ids. Missing ids are skipped; the order
	// of the result is unspecified.
	Nodes(ctx context.Context, ids []NativeID) ([]NodeRecord, error)

	// CreateEdge writes a new edge between two committed nodes.
	CreateEdge(ctx context.Context, rec EdgeRecord) (NativeID, error)
	// DeleteEdge removes a committed edge.
	DeleteEdge(ctx context.Context, id NativeID) error
}
