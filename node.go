package relmap

import (
	"context"
	"fmt"
	"maps"

	"github.com/google/uuid"
)

// Node is a persistable vertex. A node is persisted iff it has a native
// identity, and once persisted it stays persisted.
type Node struct {
	g      *Graph
	id     NodeID
	native NativeID
	label  string
	props  Properties
	errs   Errors

	raw    bool // bare store vertex, no mappers
	loaded bool // label and properties are known
	dirty  bool // properties changed since the last write
	saving bool

	mappers  map[string]*Mapper
	families []string // mapper creation order
}

// ID returns the node's arena id.
func (n *Node) ID() NodeID { return n.id }

// Graph returns the arena owning n.
func (n *Node) Graph() *Graph { return n.g }

// NativeID returns the store identity, or uuid.Nil before the first commit.
func (n *Node) NativeID() NativeID { return n.native }

// HasNativeIdentity reports whether the store assigned n an identity.
func (n *Node) HasNativeIdentity() bool { return n.native != uuid.Nil }

// Persisted reports whether n was committed to the store.
func (n *Node) Persisted() bool { return n.HasNativeIdentity() }

// IsRaw reports whether n is an unmanaged store vertex.
func (n *Node) IsRaw() bool { return n.raw }

// Loaded reports whether n's label and properties are known.
func (n *Node) Loaded() bool { return n.loaded }

// Label returns the node label.
func (n *Node) Label() string { return n.label }

// Errors returns the node's error sink.
func (n *Node) Errors() Errors { return n.errs }

// Properties returns a copy of the node's properties.
func (n *Node) Properties() Properties { return n.props.Clone() }

// Get returns the property stored under key.
func (n *Node) Get(key string) (any, bool) {
	v, ok := n.props[key]
	return v, ok
}

// Set stores a property value. The change is written on the next Save.
func (n *Node) Set(key string, value any) {
	if n.props == nil {
		n.props = make(Properties)
	}
	n.props[key] = value
	n.dirty = true
}

// Mapper returns the mapper of the given relationship family, creating it on
// first use. Raw nodes have no mappers and return nil.
func (n *Node) Mapper(family string) *Mapper {
	if n.raw {
		return nil
	}
	if m, ok := n.mappers[family]; ok {
		return m
	}
	var desc Descriptor
	if n.g.registry != nil {
		desc, _ = n.g.registry.Lookup(family)
	}
	m := newMapper(n, family, desc)
	n.mappers[family] = m
	n.families = append(n.families, family)
	return m
}

// Mappers returns the node's mappers in creation order.
func (n *Node) Mappers() []*Mapper {
	ms := make([]*Mapper, 0, len(n.families))
	for _, f := range n.families {
		ms = append(ms, n.mappers[f])
	}
	return ms
}

// Relate creates a pending edge of the given family from n to other in the
// family's default direction.
func (n *Node) Relate(family string, other *Node) *Edge {
	m := n.Mapper(family)
	if m == nil {
		return nil
	}
	return m.CreateEdgeTo(n, other, m.Direction())
}

// Valid runs the node's validators and cascades through the pending
// outgoing edges of every mapper. Validators run at most once per pass; a
// nil visited starts a new pass.
func (n *Node) Valid(ctx context.Context, visited *Visited) bool {
	if visited == nil {
		visited = NewVisited()
	}
	if valid, done := visited.result(n); done {
		return valid
	}
	if n.raw {
		visited.record(n, true)
		return true
	}
	visited.prepare(n)
	for _, v := range n.g.validators[n.label] {
		v.Validate(ctx, n, n.errs)
	}
	valid := n.errs.Empty()
	// Provisional, so cycles back to n see its own verdict.
	visited.record(n, valid)
	for _, m := range n.Mappers() {
		if !m.validate(ctx, visited) {
			valid = false
		}
	}
	visited.record(n, valid)
	return valid
}

// Save validates n, writes it to the store, and persists every mapper in
// creation order, stopping at the first failure. Calls made while n is
// already saving return nil.
func (n *Node) Save(ctx context.Context) error {
	if n.raw {
		return ErrRawNode
	}
	if n.saving {
		return nil
	}
	n.saving = true
	defer func() { n.saving = false }()

	if err := n.load(ctx); err != nil {
		return err
	}
	if !n.Valid(ctx, nil) {
		return NewValidationError(n.label, n.errs)
	}
	if err := n.write(ctx); err != nil {
		return err
	}
	for _, m := range n.Mappers() {
		if err := m.Persist(ctx); err != nil {
			return err
		}
	}
	return nil
}

// load reads the committed label and properties of a persisted stub that
// was modified before it was loaded. Pending values win over stored ones.
func (n *Node) load(ctx context.Context) error {
	if n.loaded || !n.dirty || !n.Persisted() {
		return nil
	}
	pending := n.props
	n.props = nil
	if err := n.g.Hydrate(ctx, n); err != nil {
		n.props = pending
		return NewMutationError("node", "update", err)
	}
	if n.props == nil {
		n.props = make(Properties, len(pending))
	}
	maps.Copy(n.props, pending)
	return nil
}

func (n *Node) write(ctx context.Context) error {
	rec := NodeRecord{ID: n.native, Label: n.label, Properties: n.props.Clone()}
	switch {
	case !n.Persisted():
		id, err := n.g.store.CreateNode(ctx, rec)
		if err != nil {
			return NewMutationError("node", "create", err)
		}
		n.native = id
		n.g.nodeByNative[id] = n.id
		n.g.log.Debug("node created", "label", n.label, "id", id)
	case n.dirty && n.loaded:
		if err := n.g.store.UpdateNode(ctx, rec); err != nil {
			return NewMutationError("node", "update", err)
		}
		n.g.log.Debug("node updated", "label", n.label, "id", n.native)
	}
	n.dirty = false
	return nil
}

// String returns a short description of the node.
func (n *Node) String() string {
	if n.Persisted() {
		return fmt.Sprintf("%s#%d(%s)", n.label, n.id, n.native)
	}
	return fmt.Sprintf("%s#%d(new)", n.label, n.id)
}
