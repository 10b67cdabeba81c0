// Package edge provides fluent builders for relationship family descriptors.
//
// A descriptor tells a node's mapper which edge type a family uses, which
// direction it reads by default, which edge class it instantiates, and how
// to list committed edges from the store.
//
// # Directions
//
//   - edge.To: the family owns outgoing edges (node -> other)
//   - edge.From: the family owns incoming edges (other -> node)
//
//	edge.To("friends")              // type FRIEND, outgoing
//	edge.From("followers").         // type FOLLOWS, incoming
//	    Type("FOLLOWS")
//
// # Edge Types
//
// Without an explicit Type the canonical type is derived from the family
// name: singular, snake case, upper case.
//
//	edge.TypeName("friends")   // "FRIEND"
//	edge.TypeName("blogPosts") // "BLOG_POST"
//
// # Edge Classes
//
// Class selects the edge kind created by the family. A class may carry a
// save policy, see package privacy:
//
//	friendship := &relmap.EdgeClass{
//	    Name:   "friendship",
//	    Policy: privacy.EdgePolicy{privacy.DenySelfLoopRule(), privacy.AlwaysAllowRule()},
//	}
//	edge.To("friends").Class(friendship)
//
// # Filtering
//
// Where restricts the committed edges a family sees, e.g. to edges whose
// far end carries a given label:
//
//	edge.To("pets").Type("OWNS").Where(func(e *relmap.Edge) bool {
//	    return e.End().Label() == "Pet"
//	})
package edge
