// Package schema declares relationship families and the edge classes they
// instantiate. Families are registered in code through the [edge] builders
// or loaded from a YAML document:
//
//	relationships:
//	  - name: friends
//	    class: friendship
//	  - name: followers
//	    type: FOLLOWS
//	    direction: incoming
//
// A Registry satisfies relmap.Registry, so it can be handed to relmap.New
// with relmap.WithRegistry. Watch reloads the document whenever the file
// changes; mappers created before a reload keep the descriptor they were
// built with.
package schema
