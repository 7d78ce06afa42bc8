package schema

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/fields"
)

// ComponentSchema is a named set of attribute schemas.
//
// It is assembled with AddAttribute (or Define) and then registered once.
// Registration is the contract boundary after which the schema is treated as
// read-only; extending it afterwards is not prevented, but components built
// before the change keep their original attribute set and report Stale.
//
//	position := schema.NewComponent("position")
//	_ = position.Define("x", fields.Float64, 0.0)
//	_ = position.Define("y", fields.Float64, 0.0)
//	_ = registry.Default().Register(position)
type ComponentSchema struct {
	id         uuid.UUID
	name       string
	attributes map[string]*AttributeSchema
}

// NewComponent creates an empty component schema with a fresh id.
func NewComponent(name string) *ComponentSchema {
	return NewComponentWithID(uuid.New(), name)
}

// NewComponentWithID creates an empty component schema with a known id.
func NewComponentWithID(id uuid.UUID, name string) *ComponentSchema {
	return &ComponentSchema{
		id:         id,
		name:       name,
		attributes: make(map[string]*AttributeSchema),
	}
}

func (c *ComponentSchema) ID() uuid.UUID { return c.id }
func (c *ComponentSchema) Name() string  { return c.name }

// AddAttribute adds an attribute schema. Names are unique within a component schema.
func (c *ComponentSchema) AddAttribute(attr *AttributeSchema) error {
	if attr == nil {
		return ErrNilSchema
	}
	if _, exists := c.attributes[attr.Name()]; exists {
		return fmt.Errorf("%s.%s: %w", c.name, attr.Name(), ErrDuplicateAttributeName)
	}
	c.attributes[attr.Name()] = attr
	return nil
}

// Define builds an attribute schema and adds it.
func (c *ComponentSchema) Define(name string, typ fields.Type, defaultValue any) error {
	attr, err := NewAttribute(name, typ, defaultValue)
	if err != nil {
		return fmt.Errorf("%s: %w", c.name, err)
	}
	return c.AddAttribute(attr)
}

// DefineZero adds an attribute whose default is the zero value of typ.
func (c *ComponentSchema) DefineZero(name string, typ fields.Type) error {
	return c.Define(name, typ, fields.Zero(typ))
}

// Attribute returns the attribute schema with the given name.
func (c *ComponentSchema) Attribute(name string) (*AttributeSchema, bool) {
	a, ok := c.attributes[name]
	return a, ok
}

// Has reports whether the schema defines an attribute with the given name.
func (c *ComponentSchema) Has(name string) bool {
	_, ok := c.attributes[name]
	return ok
}

// Attributes returns the attribute schemas ordered by name.
func (c *ComponentSchema) Attributes() []*AttributeSchema {
	out := make([]*AttributeSchema, 0, len(c.attributes))
	for _, name := range slices.Sorted(maps.Keys(c.attributes)) {
		out = append(out, c.attributes[name])
	}
	return out
}

func (c *ComponentSchema) Len() int { return len(c.attributes) }

// Fingerprint hashes the component name and the attribute names and types.
// Two schemas with the same shape have the same fingerprint regardless of ids,
// defaults or definition order.
func (c *ComponentSchema) Fingerprint() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(c.name)
	for _, a := range c.Attributes() {
		_, _ = d.WriteString("\x00")
		_, _ = d.WriteString(a.Name())
		_, _ = d.WriteString(":")
		_, _ = d.WriteString(a.Type().String())
	}
	return d.Sum64()
}

func (c *ComponentSchema) String() string {
	parts := make([]string, 0, len(c.attributes))
	for _, a := range c.Attributes() {
		parts = append(parts, a.Name()+" "+a.Type().String())
	}
	return c.name + "{" + strings.Join(parts, ", ") + "}"
}
