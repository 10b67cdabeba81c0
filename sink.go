package relmap

import (
	"maps"
	"slices"
	"strings"
)

// ErrorEntry is one recorded validation failure. It holds either a message
// about the node itself or, for relationship failures, a clone of the
// failing neighbour's whole error collection.
type ErrorEntry struct {
	Message string
	Nested  Errors
}

// String returns the message or the nested collection in braces.
func (e ErrorEntry) String() string {
	if e.Nested != nil {
		return "{" + e.Nested.String() + "}"
	}
	return e.Message
}

// Errors is a node's error sink, keyed by attribute name or relationship
// family. Entries under a key keep insertion order.
type Errors map[string][]ErrorEntry

// Add appends a message under key.
func (e Errors) Add(key, msg string) {
	e[key] = append(e[key], ErrorEntry{Message: msg})
}

// Nest appends a clone of other under key.
func (e Errors) Nest(key string, other Errors) {
	e[key] = append(e[key], ErrorEntry{Nested: other.Clone()})
}

// Get returns the entries recorded under key.
func (e Errors) Get(key string) []ErrorEntry {
	return e[key]
}

// Empty reports whether no entry was recorded.
func (e Errors) Empty() bool {
	for _, entries := range e {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// Reset removes every entry, keeping the map itself.
func (e Errors) Reset() {
	clear(e)
}

// Clone returns a deep copy. A nil sink clones to an empty one.
func (e Errors) Clone() Errors {
	c := make(Errors, len(e))
	for k, entries := range e {
		cp := make([]ErrorEntry, len(entries))
		for i, entry := range entries {
			cp[i] = ErrorEntry{Message: entry.Message}
			if entry.Nested != nil {
				cp[i].Nested = entry.Nested.Clone()
			}
		}
		c[k] = cp
	}
	return c
}

// String renders the sink with keys in sorted order.
func (e Errors) String() string {
	var sb strings.Builder
	for i, k := range slices.Sorted(maps.Keys(e)) {
		if i > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(k)
		sb.WriteString(": ")
		for j, entry := range e[k] {
			if j > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(entry.String())
		}
	}
	return sb.String()
}
