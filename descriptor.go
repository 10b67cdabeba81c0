package relmap

import "context"

// Descriptor is the policy of one relationship family: its canonical edge
// type, its default direction, the edge class to instantiate, and traversal
// functions that read the store directly instead of going through the
// generic PersistedEdgeSource path.
type Descriptor interface {
	EdgeType() string
	Direction() Direction
	EdgeClass() *EdgeClass
	// EachEdge calls visit for every committed edge of n in dir until visit
	// returns false.
	EachEdge(ctx context.Context, n *Node, dir Direction, visit func(*Edge) bool) error
	// EachNode calls visit with the far endpoint of every committed edge of n
	// in dir until visit returns false.
	EachNode(ctx context.Context, n *Node, dir Direction, visit func(*Node) bool) error
}

// SingleEdger is implemented by descriptors that can fetch the single
// committed edge of a one-to-one relationship cheaper than a full traversal.
type SingleEdger interface {
	SingleEdge(ctx context.Context, n *Node) (*Edge, error)
}

// Registry resolves the descriptor declared for a relationship family.
type Registry interface {
	Lookup(family string) (Descriptor, bool)
}

// RegistryFunc adapts an ordinary function to a Registry.
type RegistryFunc func(family string) (Descriptor, bool)

// Lookup returns f(family).
func (f RegistryFunc) Lookup(family string) (Descriptor, bool) {
	return f(family)
}

// EdgePolicy decides whether an edge may be written. A non-nil error denies
// the write and fails Edge.Save.
type EdgePolicy interface {
	EvalEdge(ctx context.Context, e *Edge) error
}

// EdgeClass is the concrete kind of edge a relationship family creates.
type EdgeClass struct {
	Name   string
	Policy EdgePolicy
}

// DefaultEdgeClass is used by families without a descriptor or whose
// descriptor does not name a class.
var DefaultEdgeClass = &EdgeClass{Name: "relationship"}

// Validator checks a node's own attributes and records failures in errs.
type Validator interface {
	Validate(ctx context.Context, n *Node, errs Errors)
}

// ValidatorFunc adapts an ordinary function to a Validator.
type ValidatorFunc func(ctx context.Context, n *Node, errs Errors)

// Validate calls f(ctx, n, errs).
func (f ValidatorFunc) Validate(ctx context.Context, n *Node, errs Errors) {
	f(ctx, n, errs)
}
