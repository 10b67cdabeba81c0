package relmap_test

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/memgraph"
	"github.com/syssam/relmap/schema/edge"
)

// countingDescriptor counts EachEdge calls.
type countingDescriptor struct {
	*edge.Descriptor
	calls int
}

func (d *countingDescriptor) EachEdge(ctx context.Context, n *relmap.Node, dir relmap.Direction, visit func(*relmap.Edge) bool) error {
	d.calls++
	return d.Descriptor.EachEdge(ctx, n, dir, visit)
}

func registryOf(descs map[string]relmap.Descriptor) relmap.Registry {
	return relmap.RegistryFunc(func(family string) (relmap.Descriptor, bool) {
		d, ok := descs[family]
		return d, ok
	})
}

func collect(t *testing.T, seq iter.Seq2[*relmap.Edge, error]) []*relmap.Edge {
	t.Helper()
	var out []*relmap.Edge
	for e, err := range seq {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func nativeIDs(edges []*relmap.Edge) []relmap.NativeID {
	ids := make([]relmap.NativeID, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.NativeID())
	}
	return ids
}

// committed seeds a store with alice -[FRIEND]-> bob and alice -[FRIEND]-> carol.
func committed(t *testing.T) (s *memgraph.Store, alice relmap.NativeID, edges []relmap.NativeID) {
	t.Helper()
	ctx := context.Background()
	s = memgraph.New()
	alice, err := s.CreateNode(ctx, relmap.NodeRecord{Label: "Person", Properties: relmap.Properties{"name": "alice"}})
	require.NoError(t, err)
	for _, name := range []string{"bob", "carol"} {
		id, err := s.CreateNode(ctx, relmap.NodeRecord{Label: "Person", Properties: relmap.Properties{"name": name}})
		require.NoError(t, err)
		eid, err := s.CreateEdge(ctx, relmap.EdgeRecord{Type: "FRIEND", Start: alice, End: id})
		require.NoError(t, err)
		edges = append(edges, eid)
	}
	return s, alice, edges
}

func TestReadRelationshipsDelegated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, aliceID, want := committed(t)
	desc := &countingDescriptor{Descriptor: edge.To("friends").Type("FRIEND").Descriptor()}
	g := relmap.New(store, relmap.WithRegistry(registryOf(map[string]relmap.Descriptor{"friends": desc})))
	alice, err := g.Load(ctx, aliceID)
	require.NoError(t, err)
	m := alice.Mapper("friends")
	assert.Same(t, desc, m.Descriptor())

	got := collect(t, m.ReadRelationships(ctx, relmap.Outgoing))
	assert.Equal(t, want, nativeIDs(got))
	assert.Equal(t, 1, desc.calls)

	direct, err := g.PersistedEdges(ctx, alice, "FRIEND", relmap.Outgoing)
	require.NoError(t, err)
	assert.Equal(t, direct, got)

	// A pending edge closes the gate: only the buffer is served.
	dave := g.NewNode("Person", nil)
	p := m.CreateEdgeTo(alice, dave, relmap.Outgoing)
	assert.Equal(t, []*relmap.Edge{p}, collect(t, m.ReadRelationships(ctx, relmap.Outgoing)))
	assert.Empty(t, collect(t, m.ReadRelationships(ctx, relmap.Incoming)))
	assert.Equal(t, 1, desc.calls)
}

func TestReadRelationshipsNative(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, aliceID, want := committed(t)
	g := relmap.New(store)
	alice, err := g.Load(ctx, aliceID)
	require.NoError(t, err)
	m := alice.Mapper("FRIEND")
	assert.Nil(t, m.Descriptor())
	assert.Equal(t, "FRIEND", m.EdgeType())
	assert.Equal(t, relmap.Outgoing, m.Direction())

	t.Run("restartable", func(t *testing.T) {
		seq := m.ReadRelationships(ctx, relmap.Outgoing)
		first := collect(t, seq)
		assert.Equal(t, want, nativeIDs(first))
		assert.Equal(t, first, collect(t, seq))
	})

	t.Run("early_break", func(t *testing.T) {
		var n int
		for range m.ReadRelationships(ctx, relmap.Outgoing) {
			n++
			break
		}
		assert.Equal(t, 1, n)
	})

	t.Run("each_node", func(t *testing.T) {
		var names []any
		require.NoError(t, m.EachNode(ctx, relmap.Outgoing, func(n *relmap.Node) bool {
			require.NoError(t, g.Hydrate(ctx, n))
			name, _ := n.Get("name")
			names = append(names, name)
			return true
		}))
		assert.Equal(t, []any{"bob", "carol"}, names)
	})

	t.Run("single", func(t *testing.T) {
		e, err := m.SingleRelationship(ctx)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Equal(t, want[0], e.NativeID())

		n, err := m.SingleNode(ctx)
		require.NoError(t, err)
		assert.Same(t, e.End(), n)
	})

	t.Run("store_error", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		var errs []error
		for e, err := range m.ReadRelationships(cctx, relmap.Outgoing) {
			assert.Nil(t, e)
			errs = append(errs, err)
		}
		require.Len(t, errs, 1)
		assert.True(t, relmap.IsQueryError(errs[0]))
		assert.ErrorIs(t, errs[0], context.Canceled)
	})
}

func TestReadRelationshipsUnpersisted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	g := relmap.New(store)
	a, b := g.NewNode("Person", nil), g.NewNode("Person", nil)
	m := a.Mapper("FRIEND")

	assert.Empty(t, collect(t, m.ReadRelationships(ctx, relmap.Outgoing)))
	e, err := m.SingleRelationship(ctx)
	require.NoError(t, err)
	assert.Nil(t, e)
	n, err := m.SingleNode(ctx)
	require.NoError(t, err)
	assert.Nil(t, n)

	p := m.CreateEdgeTo(a, b, relmap.Outgoing)
	e, err = m.SingleRelationship(ctx)
	require.NoError(t, err)
	assert.Same(t, p, e)
	assert.Zero(t, store.Calls().Edges)
}

func TestCreateEdgeToDelEdge(t *testing.T) {
	t.Parallel()

	g := relmap.New(memgraph.New())
	a, b := g.NewNode("Person", nil), g.NewNode("Person", nil)
	m := a.Mapper("friends")

	tests := []struct {
		dir        relmap.Direction
		start, end *relmap.Node
	}{
		{dir: relmap.Outgoing, start: a, end: b},
		{dir: relmap.Incoming, start: b, end: a},
	}
	for _, tt := range tests {
		t.Run(tt.dir.String(), func(t *testing.T) {
			e := m.CreateEdgeTo(a, b, tt.dir)
			assert.Same(t, tt.start, e.Start())
			assert.Same(t, tt.end, e.End())
			assert.Equal(t, "friends", e.Type())
			assert.Equal(t, "friends", e.Family())
			assert.Same(t, m, e.Mapper())
			assert.Same(t, relmap.DefaultEdgeClass, e.Class())
			assert.False(t, e.Committed())

			mirror := b.Mapper("friends")
			assert.True(t, m.WriteRelationships(tt.dir).Contains(e))
			assert.True(t, mirror.WriteRelationships(tt.dir.Reverse()).Contains(e))

			assert.True(t, m.DelEdge(e))
			for _, mm := range []*relmap.Mapper{m, mirror} {
				assert.Zero(t, mm.WriteRelationships(relmap.Outgoing).Len())
				assert.Zero(t, mm.WriteRelationships(relmap.Incoming).Len())
			}
			assert.False(t, m.DelEdge(e))
		})
	}
	assert.False(t, m.DelEdge(nil))
}

func TestCreateEdgeToRawNode(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	rid, err := store.CreateNode(ctx, relmap.NodeRecord{Label: "Legacy"})
	require.NoError(t, err)
	g := relmap.New(store)
	raw := g.Raw(rid)
	assert.True(t, raw.IsRaw())
	assert.Same(t, raw, g.Raw(rid))

	a := g.NewNode("Person", nil)
	e := a.Relate("owns", raw)
	require.NotNil(t, e)
	assert.Nil(t, raw.Mapper("owns"))
	assert.Nil(t, raw.Relate("owns", a))

	require.NoError(t, a.Save(ctx))
	assert.True(t, e.Committed())
	assert.ErrorIs(t, raw.Save(ctx), relmap.ErrRawNode)
	_, edges := store.Len()
	assert.Equal(t, 1, edges)
}

func TestPersistEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	g := relmap.New(store)
	a := g.NewNode("Person", nil)
	m := a.Mapper("friends")
	require.NoError(t, m.Persist(ctx))
	require.NoError(t, m.Persist(ctx))
	assert.Equal(t, memgraph.Calls{}, store.Calls())
	assert.False(t, a.Persisted())
}

func TestPersist(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	g := relmap.New(store)
	a, b, c := g.NewNode("Person", nil), g.NewNode("Person", nil), g.NewNode("Person", nil)
	ab := a.Relate("friends", b)
	ac := a.Relate("friends", c)

	require.NoError(t, a.Save(ctx))
	for _, n := range []*relmap.Node{a, b, c} {
		assert.True(t, n.Persisted(), n.String())
	}
	assert.True(t, ab.Committed())
	assert.True(t, ac.Committed())

	m := a.Mapper("friends")
	assert.Zero(t, m.WriteRelationships(relmap.Outgoing).Len())
	assert.Zero(t, b.Mapper("friends").WriteRelationships(relmap.Incoming).Len())
	assert.Zero(t, c.Mapper("friends").WriteRelationships(relmap.Incoming).Len())

	// The gate is open again and the committed edges come back from the
	// store, wrapped onto the same arena edges.
	got := collect(t, m.ReadRelationships(ctx, relmap.Outgoing))
	assert.Equal(t, []*relmap.Edge{ab, ac}, got)

	nodes, edges := store.Len()
	assert.Equal(t, 3, nodes)
	assert.Equal(t, 2, edges)
}

func TestPersistFailFast(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	boom := errors.New("boom")
	store := memgraph.New(memgraph.WithEdgeHook(memgraph.FailEdgeAt(2, boom)))
	g := relmap.New(store)

	a := g.NewNode("Person", nil)
	ends := []*relmap.Node{g.NewNode("Person", nil), g.NewNode("Person", nil), g.NewNode("Person", nil)}
	for _, n := range append([]*relmap.Node{a}, ends...) {
		require.NoError(t, n.Save(ctx))
	}
	var pending []*relmap.Edge
	for _, n := range ends {
		pending = append(pending, a.Relate("friends", n))
	}
	m := a.Mapper("friends")

	err := m.Persist(ctx)
	require.ErrorIs(t, err, boom)
	assert.True(t, relmap.IsMutationError(err))

	out := m.WriteRelationships(relmap.Outgoing)
	assert.Equal(t, []relmap.EdgeID{pending[1].ID(), pending[2].ID()}, out.IDs())
	assert.True(t, pending[0].Committed())
	assert.False(t, pending[1].Committed())
	assert.False(t, pending[2].Committed())

	assert.False(t, ends[0].Mapper("friends").WriteRelationships(relmap.Incoming).Contains(pending[0]))
	assert.True(t, ends[1].Mapper("friends").WriteRelationships(relmap.Incoming).Contains(pending[1]))
	assert.True(t, ends[2].Mapper("friends").WriteRelationships(relmap.Incoming).Contains(pending[2]))

	// Nothing committed is rolled back, and a retry drains the rest.
	require.NoError(t, m.Persist(ctx))
	assert.Zero(t, out.Len())
	_, edges := store.Len()
	assert.Equal(t, 3, edges)
}

func TestPersistLeavesIncoming(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("start_persisted", func(t *testing.T) {
		store := memgraph.New()
		g := relmap.New(store)
		a, b := g.NewNode("Person", nil), g.NewNode("Person", nil)
		require.NoError(t, a.Save(ctx))
		require.NoError(t, b.Save(ctx))
		e := a.Relate("friends", b)

		bm := b.Mapper("friends")
		require.NoError(t, bm.Persist(ctx))
		assert.True(t, bm.WriteRelationships(relmap.Incoming).Contains(e))
		assert.False(t, e.Committed())
		assert.Zero(t, store.Calls().CreateEdge)
	})

	t.Run("start_saved_through_own_path", func(t *testing.T) {
		store := memgraph.New()
		g := relmap.New(store)
		a, b := g.NewNode("Person", nil), g.NewNode("Person", nil)
		require.NoError(t, b.Save(ctx))
		bm := b.Mapper("friends")
		e := bm.CreateEdgeTo(b, a, relmap.Incoming)
		assert.Same(t, a, e.Start())

		// Persisting b saves a, whose own mapper commits e and drops the
		// mirror registration from b.
		require.NoError(t, bm.Persist(ctx))
		assert.True(t, a.Persisted())
		assert.True(t, e.Committed())
		assert.Zero(t, bm.WriteRelationships(relmap.Incoming).Len())
	})
}

func TestPersistCycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	g := relmap.New(store)
	a, b := g.NewNode("Person", nil), g.NewNode("Person", nil)
	ab := a.Relate("friends", b)
	ba := b.Relate("friends", a)

	require.NoError(t, a.Save(ctx))
	assert.True(t, ab.Committed())
	assert.True(t, ba.Committed())
	for _, n := range []*relmap.Node{a, b} {
		m := n.Mapper("friends")
		assert.Zero(t, m.WriteRelationships(relmap.Outgoing).Len(), n.String())
		assert.Zero(t, m.WriteRelationships(relmap.Incoming).Len(), n.String())
	}
	assert.Equal(t, 2, store.Calls().CreateEdge)
	assert.Equal(t, 2, store.Calls().CreateNode)
}

func requireName(_ context.Context, n *relmap.Node, errs relmap.Errors) {
	if name, _ := n.Get("name"); name == nil || name == "" {
		errs.Add("name", "can't be blank")
	}
}

func TestValidCascade(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	newGraph := func() *relmap.Graph {
		return relmap.New(memgraph.New(), relmap.WithValidator("Person", relmap.ValidatorFunc(requireName)))
	}

	t.Run("end_node_fails", func(t *testing.T) {
		g := newGraph()
		a := g.NewNode("Person", relmap.Properties{"name": "a"})
		b := g.NewNode("Person", nil)
		a.Relate("friend", b)

		visited := relmap.NewVisited()
		assert.False(t, a.Mapper("friend").Valid(ctx, visited))
		assert.True(t, visited.Has(a))
		assert.True(t, visited.Has(b))
		assert.Equal(t, []relmap.ErrorEntry{{Nested: b.Errors().Clone()}}, a.Errors().Get("friend"))
		assert.Equal(t, []relmap.ErrorEntry{{Message: "can't be blank"}}, b.Errors().Get("name"))
		assert.Empty(t, b.Errors().Get("friend"))
	})

	t.Run("start_node_fails", func(t *testing.T) {
		g := newGraph()
		a := g.NewNode("Person", nil)
		b := g.NewNode("Person", relmap.Properties{"name": "b"})
		a.Relate("friend", b)

		assert.False(t, a.Mapper("friend").Valid(ctx, nil))
		assert.Equal(t, []relmap.ErrorEntry{{Nested: a.Errors().Clone()}}, b.Errors().Get("friend"))
	})

	t.Run("already_visited", func(t *testing.T) {
		g := newGraph()
		a := g.NewNode("Person", relmap.Properties{"name": "a"})
		a.Relate("friend", g.NewNode("Person", nil))
		visited := relmap.NewVisited()
		visited.Add(a)
		assert.True(t, a.Mapper("friend").Valid(ctx, visited))
		assert.Equal(t, 1, visited.Len())
	})

	t.Run("repeated_passes_do_not_accumulate", func(t *testing.T) {
		g := newGraph()
		a := g.NewNode("Person", relmap.Properties{"name": "a"})
		b := g.NewNode("Person", nil)
		c := g.NewNode("Person", nil)
		a.Relate("friend", b)
		a.Relate("friend", c)

		for range 2 {
			assert.False(t, a.Valid(ctx, nil))
			assert.Len(t, a.Errors().Get("friend"), 2)
			assert.Len(t, b.Errors().Get("name"), 1)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		g := newGraph()
		a := g.NewNode("Person", relmap.Properties{"name": "a"})
		b := g.NewNode("Person", relmap.Properties{"name": "b"})
		a.Relate("friend", b)
		b.Relate("friend", a)
		assert.True(t, a.Valid(ctx, nil))
		assert.True(t, a.Errors().Empty())
	})

	t.Run("save_refuses_invalid", func(t *testing.T) {
		store := memgraph.New()
		g := relmap.New(store, relmap.WithValidator("Person", relmap.ValidatorFunc(requireName)))
		a := g.NewNode("Person", relmap.Properties{"name": "a"})
		a.Relate("friend", g.NewNode("Person", nil))

		err := a.Save(ctx)
		var verr *relmap.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "Person", verr.Label)
		assert.Len(t, verr.Errors.Get("friend"), 1)
		assert.Equal(t, memgraph.Calls{}, store.Calls())
	})
}

type denySelfLoops struct{}

func (denySelfLoops) EvalEdge(_ context.Context, e *relmap.Edge) error {
	if e.Start() == e.End() {
		return errors.New("self loop")
	}
	return nil
}

func TestEdgeClassPolicy(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	class := &relmap.EdgeClass{Name: "friendship", Policy: denySelfLoops{}}
	reg := registryOf(map[string]relmap.Descriptor{
		"friends": edge.To("friends").Class(class).Descriptor(),
	})
	store := memgraph.New()
	g := relmap.New(store, relmap.WithRegistry(reg))
	a := g.NewNode("Person", nil)
	loop := a.Relate("friends", a)
	assert.Same(t, class, loop.Class())
	assert.Equal(t, "FRIEND", loop.Type())

	err := a.Save(ctx)
	require.Error(t, err)
	assert.True(t, relmap.IsMutationError(err))
	assert.False(t, loop.Committed())
	assert.True(t, a.Mapper("friends").WriteRelationships(relmap.Outgoing).Contains(loop))
	assert.Zero(t, store.Calls().CreateEdge)
}

func TestValidEveryFamily(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := memgraph.New()
	g := relmap.New(store, relmap.WithValidator("Person", relmap.ValidatorFunc(requireName)))
	a := g.NewNode("Person", relmap.Properties{"name": "a"})
	a.Relate("friends", g.NewNode("Person", relmap.Properties{"name": "b"}))
	c := g.NewNode("Person", nil)
	a.Relate("likes", c)

	assert.False(t, a.Valid(ctx, nil))
	assert.Empty(t, a.Errors().Get("friends"))
	assert.Equal(t, []relmap.ErrorEntry{{Nested: c.Errors().Clone()}}, a.Errors().Get("likes"))

	err := a.Save(ctx)
	var verr *relmap.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Errors.Get("likes"), 1)
	assert.Zero(t, store.Calls().CreateNode)
	assert.False(t, c.Persisted())
}

// eagerDescriptor visits every committed edge and ignores visit's answer.
type eagerDescriptor struct {
	*edge.Descriptor
}

func (d eagerDescriptor) EachEdge(ctx context.Context, n *relmap.Node, dir relmap.Direction, visit func(*relmap.Edge) bool) error {
	edges, err := n.Graph().PersistedEdges(ctx, n, d.EdgeType(), dir)
	if err != nil {
		return err
	}
	for _, e := range edges {
		visit(e)
	}
	return nil
}

func (d eagerDescriptor) EachNode(ctx context.Context, n *relmap.Node, dir relmap.Direction, visit func(*relmap.Node) bool) error {
	return d.EachEdge(ctx, n, dir, func(e *relmap.Edge) bool {
		visit(e.Other(n))
		return true
	})
}

func TestReadRelationshipsBreak(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, aliceID, want := committed(t)
	desc := eagerDescriptor{Descriptor: edge.To("friends").Type("FRIEND").Descriptor()}
	g := relmap.New(store, relmap.WithRegistry(registryOf(map[string]relmap.Descriptor{"friends": desc})))
	alice, err := g.Load(ctx, aliceID)
	require.NoError(t, err)
	m := alice.Mapper("friends")

	var got []*relmap.Edge
	require.NotPanics(t, func() {
		for e, err := range m.ReadRelationships(ctx, relmap.Outgoing) {
			require.NoError(t, err)
			got = append(got, e)
			break
		}
	})
	assert.Equal(t, want[:1], nativeIDs(got))

	visits := 0
	require.NoError(t, m.EachNode(ctx, relmap.Outgoing, func(*relmap.Node) bool {
		visits++
		return false
	}))
	assert.Equal(t, 1, visits)
}

func TestReadRelationshipsClaim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, aliceID, want := committed(t)
	class := &relmap.EdgeClass{Name: "friendship"}
	reg := registryOf(map[string]relmap.Descriptor{
		"friends": edge.To("friends").Type("FRIEND").Class(class).Descriptor(),
	})
	g := relmap.New(store, relmap.WithRegistry(reg))
	alice, err := g.Load(ctx, aliceID)
	require.NoError(t, err)
	m := alice.Mapper("friends")

	got := collect(t, m.ReadRelationships(ctx, relmap.Outgoing))
	require.Equal(t, want, nativeIDs(got))
	for _, e := range got {
		assert.Same(t, class, e.Class())
		assert.Equal(t, "friends", e.Family())
		assert.Same(t, m, e.Mapper())
	}

	single, err := m.SingleRelationship(ctx)
	require.NoError(t, err)
	assert.Same(t, got[0], single)

	// The first reader keeps the edge.
	bob := got[0].End()
	for e, err := range bob.Mapper("FRIEND").ReadRelationships(ctx, relmap.Incoming) {
		require.NoError(t, err)
		assert.Same(t, m, e.Mapper())
	}

	t.Run("single_edge_first", func(t *testing.T) {
		g := relmap.New(store, relmap.WithRegistry(reg))
		alice, err := g.Load(ctx, aliceID)
		require.NoError(t, err)
		e, err := alice.Mapper("friends").SingleRelationship(ctx)
		require.NoError(t, err)
		require.NotNil(t, e)
		assert.Same(t, class, e.Class())
		assert.Same(t, alice.Mapper("friends"), e.Mapper())
	})
}

func TestMapperString(t *testing.T) {
	t.Parallel()

	g := relmap.New(memgraph.New())
	a := g.NewNode("Person", nil)
	a.Relate("friends", g.NewNode("Person", nil))
	assert.Equal(t, "Mapper friends dir: outgoing type: friends outgoing 1 incoming 0", a.Mapper("friends").String())
}
