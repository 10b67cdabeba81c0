package schema

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/syssam/relmap"
	"github.com/syssam/relmap/schema/edge"
)

// Family is the YAML form of one relationship family.
type Family struct {
	Name      string `yaml:"name"`
	Type      string `yaml:"type,omitempty"`
	Direction string `yaml:"direction,omitempty"`
	Class     string `yaml:"class,omitempty"`
	Comment   string `yaml:"comment,omitempty"`
}

// Document is the top level of a relationship schema file.
type Document struct {
	Relationships []Family `yaml:"relationships"`
}

// Registry maps family names to their descriptors. It is safe for
// concurrent use.
type Registry struct {
	mu       sync.RWMutex
	classes  map[string]*relmap.EdgeClass
	families map[string]*edge.Descriptor
	order    []string
}

// NewRegistry returns a registry knowing only relmap.DefaultEdgeClass.
func NewRegistry() *Registry {
	return &Registry{
		classes: map[string]*relmap.EdgeClass{
			relmap.DefaultEdgeClass.Name: relmap.DefaultEdgeClass,
		},
		families: make(map[string]*edge.Descriptor),
	}
}

// RegisterClass makes c available to families declaring class: c.Name.
// A later registration under the same name replaces the earlier one.
func (r *Registry) RegisterClass(c *relmap.EdgeClass) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.classes[c.Name] = c
}

// Class returns the edge class registered under name.
func (r *Registry) Class(name string) (*relmap.EdgeClass, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.classes[name]
	return c, ok
}

// Add registers descriptors built in code.
func (r *Registry) Add(descs ...*edge.Descriptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range descs {
		if err := r.addLocked(d); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) addLocked(d *edge.Descriptor) error {
	if d == nil || strings.TrimSpace(d.Name) == "" {
		return errors.New("relmap/schema: family name is required")
	}
	if _, ok := r.families[d.Name]; ok {
		return fmt.Errorf("relmap/schema: family %q declared twice", d.Name)
	}
	r.families[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Lookup implements relmap.Registry.
func (r *Registry) Lookup(family string) (relmap.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.families[family]
	if !ok {
		return nil, false
	}
	return d, true
}

// Families returns the registered descriptors in declaration order.
func (r *Registry) Families() []*edge.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*edge.Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.families[name])
	}
	return out
}

// Parse decodes a relationship schema document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("relmap/schema: decode: %w", err)
	}
	return &doc, nil
}

// Load replaces every registered family with the ones declared in data.
// The registry is left untouched when data is invalid.
func (r *Registry) Load(data []byte) error {
	doc, err := Parse(data)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	descs := make([]*edge.Descriptor, 0, len(doc.Relationships))
	for i, f := range doc.Relationships {
		d, err := r.describeLocked(f)
		if err != nil {
			return fmt.Errorf("relmap/schema: relationships[%d]: %w", i, err)
		}
		descs = append(descs, d)
	}
	prev, prevOrder := r.families, r.order
	r.families, r.order = make(map[string]*edge.Descriptor, len(descs)), nil
	for _, d := range descs {
		if err := r.addLocked(d); err != nil {
			r.families, r.order = prev, prevOrder
			return err
		}
	}
	return nil
}

// LoadFile reads path and calls Load.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("relmap/schema: %w", err)
	}
	return r.Load(data)
}

func (r *Registry) describeLocked(f Family) (*edge.Descriptor, error) {
	dir, err := relmap.ParseDirection(f.Direction)
	if err != nil {
		return nil, err
	}
	b := edge.To(f.Name)
	if dir == relmap.Incoming {
		b = edge.From(f.Name)
	}
	if f.Type != "" {
		b = b.Type(f.Type)
	}
	if f.Comment != "" {
		b = b.Comment(f.Comment)
	}
	if f.Class != "" {
		c, ok := r.classes[f.Class]
		if !ok {
			return nil, fmt.Errorf("unknown edge class %q", f.Class)
		}
		b = b.Class(c)
	}
	return b.Descriptor(), nil
}

// Names returns the registered family names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := slices.Clone(r.order)
	slices.Sort(names)
	return names
}

var _ relmap.Registry = (*Registry)(nil)
