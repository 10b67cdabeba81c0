// Package memgraph provides an in-memory relmap.Store. It keeps edges in
// insertion order, which makes it the reference backend for tests, and can
// inject write failures through hooks.
package memgraph

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/syssam/relmap"
)

// Calls counts store operations.
type Calls struct {
	Edges      int
	Nodes      int
	CreateNode int
	UpdateNode int
	CreateEdge int
	DeleteEdge int
}

// Store is an in-memory graph store. It is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	nodes map[relmap.NativeID]relmap.NodeRecord
	edges []relmap.EdgeRecord
	calls Calls

	newID    func() uuid.UUID
	nodeHook func(relmap.NodeRecord) error
	edgeHook func(relmap.EdgeRecord) error
}

// Option configures a Store.
type Option func(*Store)

// WithIDs sets the identity generator. The default is uuid.New.
func WithIDs(fn func() uuid.UUID) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// WithNodeHook runs fn before every node write; a non-nil error aborts it.
func WithNodeHook(fn func(relmap.NodeRecord) error) Option {
	return func(s *Store) {
		s.nodeHook = fn
	}
}

// WithEdgeHook runs fn before every edge creation; a non-nil error aborts it.
func WithEdgeHook(fn func(relmap.EdgeRecord) error) Option {
	return func(s *Store) {
		s.edgeHook = fn
	}
}

// FailEdgeAt returns an edge hook failing the n-th edge creation (1-based)
// with err.
func FailEdgeAt(n int, err error) func(relmap.EdgeRecord) error {
	var seen int
	return func(relmap.EdgeRecord) error {
		seen++
		if seen == n {
			return err
		}
		return nil
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		nodes: make(map[relmap.NativeID]relmap.NodeRecord),
		newID: uuid.New,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Edges implements relmap.PersistedEdgeSource.
func (s *Store) Edges(ctx context.Context, node relmap.NativeID, typ string, dir relmap.Direction) ([]relmap.EdgeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Edges++
	var out []relmap.EdgeRecord
	for _, e := range s.edges {
		if e.Type != typ {
			continue
		}
		if (dir == relmap.Outgoing && e.Start == node) || (dir == relmap.Incoming && e.End == node) {
			out = append(out, cloneEdge(e))
		}
	}
	return out, nil
}

// CreateNode implements relmap.Store.
func (s *Store) CreateNode(ctx context.Context, rec relmap.NodeRecord) (relmap.NativeID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.CreateNode++
	if s.nodeHook != nil {
		if err := s.nodeHook(rec); err != nil {
			return uuid.Nil, err
		}
	}
	rec.ID = s.newID()
	rec.Properties = rec.Properties.Clone()
	s.nodes[rec.ID] = rec
	return rec.ID, nil
}

// UpdateNode implements relmap.Store.
func (s *Store) UpdateNode(ctx context.Context, rec relmap.NodeRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.UpdateNode++
	if _, ok := s.nodes[rec.ID]; !ok {
		return relmap.NewNotFoundErrorWithID("node", rec.ID)
	}
	if s.nodeHook != nil {
		if err := s.nodeHook(rec); err != nil {
			return err
		}
	}
	rec.Properties = rec.Properties.Clone()
	s.nodes[rec.ID] = rec
	return nil
}

// Nodes implements relmap.Store.
func (s *Store) Nodes(ctx context.Context, ids []relmap.NativeID) ([]relmap.NodeRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.Nodes++
	out := make([]relmap.NodeRecord, 0, len(ids))
	for _, id := range ids {
		if rec, ok := s.nodes[id]; ok {
			rec.Properties = rec.Properties.Clone()
			out = append(out, rec)
		}
	}
	return out, nil
}

// CreateEdge implements relmap.Store.
func (s *Store) CreateEdge(ctx context.Context, rec relmap.EdgeRecord) (relmap.NativeID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.CreateEdge++
	for _, id := range []relmap.NativeID{rec.Start, rec.End} {
		if _, ok := s.nodes[id]; !ok {
			return uuid.Nil, relmap.NewNotFoundErrorWithID("node", id)
		}
	}
	if s.edgeHook != nil {
		if err := s.edgeHook(rec); err != nil {
			return uuid.Nil, err
		}
	}
	rec.ID = s.newID()
	s.edges = append(s.edges, cloneEdge(rec))
	return rec.ID, nil
}

// DeleteEdge implements relmap.Store.
func (s *Store) DeleteEdge(ctx context.Context, id relmap.NativeID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.DeleteEdge++
	n := len(s.edges)
	s.edges = slices.DeleteFunc(s.edges, func(e relmap.EdgeRecord) bool { return e.ID == id })
	if len(s.edges) == n {
		return relmap.NewNotFoundErrorWithID("edge", id)
	}
	return nil
}

// Calls returns a snapshot of the operation counters.
func (s *Store) Calls() Calls {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.calls
}

// Len returns the number of stored nodes and edges.
func (s *Store) Len() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes), len(s.edges)
}

func cloneEdge(e relmap.EdgeRecord) relmap.EdgeRecord {
	e.Properties = e.Properties.Clone()
	return e
}

var _ relmap.Store = (*Store)(nil)
