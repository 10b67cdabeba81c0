package relmap

import "slices"

// Buffer is an ordered list of pending edges for one direction of a mapper.
// Insertion order is significant: reads and commits follow it.
type Buffer struct {
	g   *Graph
	ids []EdgeID
}

// Append adds e at the end of the buffer.
func (b *Buffer) Append(e *Edge) {
	b.ids = append(b.ids, e.id)
}

// Delete removes every occurrence of e and reports whether one was present.
func (b *Buffer) Delete(e *Edge) bool {
	return b.remove(e.id)
}

// Contains reports whether e is in the buffer.
func (b *Buffer) Contains(e *Edge) bool {
	return slices.Contains(b.ids, e.id)
}

// Len returns the number of buffered edges.
func (b *Buffer) Len() int {
	return len(b.ids)
}

// IDs returns a copy of the buffered edge ids in insertion order.
func (b *Buffer) IDs() []EdgeID {
	return slices.Clone(b.ids)
}

// Edges returns the buffered edges in insertion order.
func (b *Buffer) Edges() []*Edge {
	edges := make([]*Edge, len(b.ids))
	for i, id := range b.ids {
		edges[i] = b.g.Edge(id)
	}
	return edges
}

func (b *Buffer) remove(id EdgeID) bool {
	n := len(b.ids)
	b.ids = slices.DeleteFunc(b.ids, func(x EdgeID) bool { return x == id })
	return len(b.ids) != n
}
