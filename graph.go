package relmap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/relmap/contrib/dataloader"
)

type (
	// NodeID addresses a node inside its Graph. Ids start at 1 and are never reused.
	NodeID int
	// EdgeID addresses an edge inside its Graph. Ids start at 1 and are never reused.
	EdgeID int
)

// Graph is the arena owning every node and edge of one unit of work. Nodes,
// edges and mapper buffers refer to each other by id, never by pointer.
//
// A Graph is not safe for concurrent use.
type Graph struct {
	store      Store
	registry   Registry
	validators map[string][]Validator
	log        *slog.Logger

	nodes        []*Node
	edges        []*Edge
	nodeByNative map[NativeID]NodeID
	edgeByNative map[NativeID]EdgeID
}

// Option configures a Graph.
type Option func(*Graph)

// WithLogger sets the logger used for commit and failure events.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) {
		if l != nil {
			g.log = l
		}
	}
}

// WithRegistry sets the registry mappers consult for their family's descriptor.
func WithRegistry(r Registry) Option {
	return func(g *Graph) {
		g.registry = r
	}
}

// WithValidator adds a validator run for every node with the given label.
func WithValidator(label string, v Validator) Option {
	return func(g *Graph) {
		g.validators[label] = append(g.validators[label], v)
	}
}

// New returns an empty graph backed by store.
func New(store Store, opts ...Option) *Graph {
	g := &Graph{
		store:        store,
		validators:   make(map[string][]Validator),
		log:          slog.Default(),
		nodeByNative: make(map[NativeID]NodeID),
		edgeByNative: make(map[NativeID]EdgeID),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Store returns the backing store.
func (g *Graph) Store() Store {
	return g.store
}

// Logger returns the graph's logger.
func (g *Graph) Logger() *slog.Logger {
	return g.log
}

// NewNode adds a new, not yet persisted, managed node.
func (g *Graph) NewNode(label string, props Properties) *Node {
	n := g.addNode(label)
	n.props = props.Clone()
	n.loaded = true
	n.dirty = true
	return n
}

// Node returns the node with the given id, or nil.
func (g *Graph) Node(id NodeID) *Node {
	if id < 1 || int(id) > len(g.nodes) {
		return nil
	}
	return g.nodes[id-1]
}

// Edge returns the edge with the given id, or nil.
func (g *Graph) Edge(id EdgeID) *Edge {
	if id < 1 || int(id) > len(g.edges) {
		return nil
	}
	return g.edges[id-1]
}

// Len returns the number of nodes and edges in the arena.
func (g *Graph) Len() (nodes, edges int) {
	return len(g.nodes), len(g.edges)
}

// Load returns the managed node for a committed store node, reading its
// record when the graph has not seen its attributes yet.
func (g *Graph) Load(ctx context.Context, id NativeID) (*Node, error) {
	n := g.attach(id)
	if n.loaded {
		return n, nil
	}
	if err := g.Hydrate(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Raw wraps a committed store node without managing it: it has no mappers,
// skips validation, and far-endpoint mirror registration ignores it. If the
// graph already holds a node for id, that node is returned instead.
func (g *Graph) Raw(id NativeID) *Node {
	if nid, ok := g.nodeByNative[id]; ok {
		return g.Node(nid)
	}
	n := g.addNode("")
	n.raw = true
	n.native = id
	g.nodeByNative[id] = n.id
	return n
}

// Hydrate reads the attributes of every committed node in nodes that has not
// been loaded yet, in one store round trip.
func (g *Graph) Hydrate(ctx context.Context, nodes ...*Node) error {
	var (
		ids     []NativeID
		pending []*Node
	)
	for _, n := range nodes {
		if n == nil || n.loaded || !n.Persisted() {
			continue
		}
		ids = append(ids, n.native)
		pending = append(pending, n)
	}
	if len(ids) == 0 {
		return nil
	}
	recs, err := g.store.Nodes(ctx, ids)
	if err != nil {
		return NewQueryError("node", "nodes", err)
	}
	ordered, errs := dataloader.OrderByKeys(ids, recs, func(r NodeRecord) NativeID { return r.ID })
	var failed []error
	for i, n := range pending {
		if errs[i] != nil {
			failed = append(failed, NewNotFoundErrorWithID("node", ids[i]))
			continue
		}
		n.label = ordered[i].Label
		n.props = ordered[i].Properties.Clone()
		n.loaded = true
	}
	return NewAggregateError(failed...)
}

// PersistedEdges lists the committed edges of n with type typ in dir through
// the store's native traversal, wrapping each record once per graph.
func (g *Graph) PersistedEdges(ctx context.Context, n *Node, typ string, dir Direction) ([]*Edge, error) {
	if !n.Persisted() {
		return nil, ErrNotPersisted
	}
	recs, err := g.store.Edges(ctx, n.native, typ, dir)
	if err != nil {
		return nil, NewQueryError("edge", "edges", err)
	}
	edges := make([]*Edge, 0, len(recs))
	for _, rec := range recs {
		edges = append(edges, g.wrap(rec))
	}
	return edges, nil
}

// wrap returns the edge for a committed store record, creating it and stub
// endpoints on first sight.
func (g *Graph) wrap(rec EdgeRecord) *Edge {
	if id, ok := g.edgeByNative[rec.ID]; ok {
		return g.Edge(id)
	}
	start, end := g.attach(rec.Start), g.attach(rec.End)
	e := g.addEdge(rec.Type, start, end, nil, "", DefaultEdgeClass)
	e.native = rec.ID
	e.committed = true
	e.props = rec.Properties.Clone()
	g.edgeByNative[rec.ID] = e.id
	return e
}

// attach returns the node for a committed store id, adding an unloaded
// managed stub when the graph has not seen it.
func (g *Graph) attach(id NativeID) *Node {
	if nid, ok := g.nodeByNative[id]; ok {
		return g.Node(nid)
	}
	n := g.addNode("")
	n.native = id
	g.nodeByNative[id] = n.id
	return n
}

func (g *Graph) addNode(label string) *Node {
	n := &Node{
		g:       g,
		id:      NodeID(len(g.nodes) + 1),
		label:   label,
		errs:    make(Errors),
		mappers: make(map[string]*Mapper),
	}
	g.nodes = append(g.nodes, n)
	return n
}

func (g *Graph) addEdge(typ string, start, end, owner *Node, family string, class *EdgeClass) *Edge {
	e := &Edge{
		g:      g,
		id:     EdgeID(len(g.edges) + 1),
		typ:    typ,
		start:  start.id,
		end:    end.id,
		family: family,
		class:  class,
	}
	if owner != nil {
		e.owner = owner.id
	}
	g.edges = append(g.edges, e)
	return e
}

// String returns a short summary of the arena.
func (g *Graph) String() string {
	return fmt.Sprintf("Graph nodes: %d edges: %d", len(g.nodes), len(g.edges))
}
