package edge

import (
	"context"

	"github.com/syssam/relmap"
)

// Descriptor describes one relationship family. It implements
// relmap.Descriptor and relmap.SingleEdger.
type Descriptor struct {
	Name    string                  // Family name
	Type    string                  // Edge type; derived from Name when empty
	Inverse bool                    // Incoming by default
	Comment string                  // Free-form documentation
	Class   *relmap.EdgeClass       // Edge class; relmap.DefaultEdgeClass when nil
	Filter  func(*relmap.Edge) bool // Optional committed-edge filter
}

// Builder is the fluent builder returned by To and From.
type Builder struct {
	desc *Descriptor
}

// To starts an outgoing family.
func To(name string) *Builder {
	return &Builder{desc: &Descriptor{Name: name}}
}

// From starts an incoming family.
func From(name string) *Builder {
	return &Builder{desc: &Descriptor{Name: name, Inverse: true}}
}

// Type sets the edge type.
func (b *Builder) Type(typ string) *Builder {
	b.desc.Type = typ
	return b
}

// Class sets the edge class.
func (b *Builder) Class(c *relmap.EdgeClass) *Builder {
	b.desc.Class = c
	return b
}

// Comment sets the family comment.
func (b *Builder) Comment(c string) *Builder {
	b.desc.Comment = c
	return b
}

// Where restricts the committed edges of the family to those matching fn.
func (b *Builder) Where(fn func(*relmap.Edge) bool) *Builder {
	b.desc.Filter = fn
	return b
}

// Descriptor returns the built descriptor.
func (b *Builder) Descriptor() *Descriptor {
	return b.desc
}

// EdgeType implements relmap.Descriptor.
func (d *Descriptor) EdgeType() string {
	if d.Type != "" {
		return d.Type
	}
	return TypeName(d.Name)
}

// Direction implements relmap.Descriptor.
func (d *Descriptor) Direction() relmap.Direction {
	if d.Inverse {
		return relmap.Incoming
	}
	return relmap.Outgoing
}

// EdgeClass implements relmap.Descriptor.
func (d *Descriptor) EdgeClass() *relmap.EdgeClass {
	if d.Class == nil {
		return relmap.DefaultEdgeClass
	}
	return d.Class
}

// EachEdge implements relmap.Descriptor by reading the store directly.
func (d *Descriptor) EachEdge(ctx context.Context, n *relmap.Node, dir relmap.Direction, visit func(*relmap.Edge) bool) error {
	edges, err := n.Graph().PersistedEdges(ctx, n, d.EdgeType(), dir)
	if err != nil {
		return err
	}
	for _, e := range edges {
		if d.Filter != nil && !d.Filter(e) {
			continue
		}
		if !visit(e) {
			return nil
		}
	}
	return nil
}

// EachNode implements relmap.Descriptor.
func (d *Descriptor) EachNode(ctx context.Context, n *relmap.Node, dir relmap.Direction, visit func(*relmap.Node) bool) error {
	return d.EachEdge(ctx, n, dir, func(e *relmap.Edge) bool {
		return visit(e.Other(n))
	})
}

// SingleEdge implements relmap.SingleEdger: the first committed edge in the
// family's direction, or nil.
func (d *Descriptor) SingleEdge(ctx context.Context, n *relmap.Node) (*relmap.Edge, error) {
	var found *relmap.Edge
	err := d.EachEdge(ctx, n, d.Direction(), func(e *relmap.Edge) bool {
		found = e
		return false
	})
	return found, err
}

var (
	_ relmap.Descriptor  = (*Descriptor)(nil)
	_ relmap.SingleEdger = (*Descriptor)(nil)
)
