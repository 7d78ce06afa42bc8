package models

import (
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/events"
	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/schema"
)

// Component is an instance of a ComponentSchema attached to one Entity.
// It holds exactly one Attribute per attribute schema known at creation time.
type Component struct {
	id          uuid.UUID
	schema      *schema.ComponentSchema
	entity      *Entity
	attributes  map[string]*Attribute
	fingerprint uint64
	changed     events.Feed[AttributeChanged]
}

func newComponent(s *schema.ComponentSchema, e *Entity) *Component {
	c := &Component{
		id:          uuid.New(),
		schema:      s,
		entity:      e,
		attributes:  make(map[string]*Attribute, s.Len()),
		fingerprint: s.Fingerprint(),
	}
	for _, as := range s.Attributes() {
		c.attributes[as.Name()] = newAttribute(as, c)
	}
	return c
}

func (c *Component) ID() uuid.UUID                   { return c.id }
func (c *Component) Name() string                    { return c.schema.Name() }
func (c *Component) Schema() *schema.ComponentSchema { return c.schema }
func (c *Component) Entity() *Entity                 { return c.entity }

// Attribute returns the attribute with the given name.
func (c *Component) Attribute(name string) (*Attribute, error) {
	if !c.schema.Has(name) {
		return nil, fmt.Errorf("%s.%s: %w", c.Name(), name, schema.ErrUnknownAttribute)
	}
	a, ok := c.attributes[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", c.Name(), name, ErrStaleComponent)
	}
	return a, nil
}

// Attributes returns the attributes ordered by name.
func (c *Component) Attributes() []*Attribute {
	out := make([]*Attribute, 0, len(c.attributes))
	for _, name := range slices.Sorted(maps.Keys(c.attributes)) {
		out = append(out, c.attributes[name])
	}
	return out
}

// Get returns the current value of the named attribute.
func (c *Component) Get(name string) (any, error) {
	a, err := c.Attribute(name)
	if err != nil {
		return nil, err
	}
	return a.Value(), nil
}

// Set assigns the named attribute.
func (c *Component) Set(name string, value any) error {
	a, err := c.Attribute(name)
	if err != nil {
		return err
	}
	return a.Set(value)
}

// Stale reports whether the schema gained or lost attributes since the component was built.
func (c *Component) Stale() bool {
	return c.fingerprint != c.schema.Fingerprint()
}

// OnChanged subscribes fn to attribute changes of this component.
func (c *Component) OnChanged(fn func(AttributeChanged)) events.Subscription {
	return c.changed.Subscribe(fn)
}

func (c *Component) attributeChanged(name string, old, next any) {
	if !fields.Changed(old, next) {
		return
	}
	c.emit(AttributeChanged{Component: c, Attribute: name, Old: old, New: next})
}

func (c *Component) attributeMutated(name string, current any) {
	c.emit(AttributeChanged{Component: c, Attribute: name, Old: current, New: current, InPlace: true})
}

// emit notifies the component's subscribers, then the entity's.
func (c *Component) emit(ev AttributeChanged) {
	c.changed.Emit(ev)
	if c.entity != nil {
		c.entity.changed.Emit(ev)
	}
}

func (c *Component) String() string {
	return fmt.Sprintf("%s(%s)", c.Name(), c.id)
}
