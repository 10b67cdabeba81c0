package relmap

import (
	"fmt"
	"strings"
)

// Direction selects which side of an edge a node sits on.
type Direction uint8

const (
	// Outgoing edges start at the node.
	Outgoing Direction = iota
	// Incoming edges end at the node.
	Incoming
)

// Reverse returns the opposite direction. The far endpoint of an outgoing
// edge sees it as incoming, and vice versa.
func (d Direction) Reverse() Direction {
	if d == Outgoing {
		return Incoming
	}
	return Outgoing
}

// String returns the lower-case direction name.
func (d Direction) String() string {
	switch d {
	case Outgoing:
		return "outgoing"
	case Incoming:
		return "incoming"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// ParseDirection parses "outgoing", "incoming" or their short forms "out"
// and "in". An empty string parses as Outgoing.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "outgoing", "out":
		return Outgoing, nil
	case "incoming", "in":
		return Incoming, nil
	default:
		return Outgoing, fmt.Errorf("relmap: unknown direction %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}
