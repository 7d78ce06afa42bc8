package schema

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/fields"
)

// AttributeSchema describes one attribute: its name, declared type and default.
// It is immutable once constructed.
type AttributeSchema struct {
	id              uuid.UUID
	name            string
	typ             fields.Type
	defaultValue    any
	containerNotify bool
	propertyNotify  bool
}

// NewAttribute builds an attribute schema with a fresh id.
// The default value is converted to typ; a failed conversion returns fields.ErrInvalidDefault.
func NewAttribute(name string, typ fields.Type, defaultValue any) (*AttributeSchema, error) {
	return NewAttributeWithID(uuid.New(), name, typ, defaultValue)
}

// NewAttributeWithID builds an attribute schema with a known id, as needed when
// schemas are reconstructed from elsewhere.
func NewAttributeWithID(id uuid.UUID, name string, typ fields.Type, defaultValue any) (*AttributeSchema, error) {
	if name == "" {
		return nil, ErrInvalidName
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("attribute %q: %w", name, fields.ErrUnknownType)
	}
	def, err := fields.Convert(typ, defaultValue)
	if err != nil {
		return nil, fmt.Errorf("attribute %q: %w: %v", name, fields.ErrInvalidDefault, err)
	}

	container, property := fields.Capabilities(typ)
	return &AttributeSchema{
		id:              id,
		name:            name,
		typ:             typ,
		defaultValue:    def,
		containerNotify: container,
		propertyNotify:  property,
	}, nil
}

func (a *AttributeSchema) ID() uuid.UUID     { return a.id }
func (a *AttributeSchema) Name() string      { return a.name }
func (a *AttributeSchema) Type() fields.Type { return a.typ }

// Default returns the default value in the canonical form of Type.
// Mutable containers are shared; use NewValue for a value to store in an attribute.
func (a *AttributeSchema) Default() any { return a.defaultValue }

// NewValue returns the initial value for a new attribute instance.
// Mutable defaults are cloned so instances never share a container.
func (a *AttributeSchema) NewValue() any {
	if c, ok := a.defaultValue.(fields.Cloner); ok {
		return c.Clone()
	}
	return a.defaultValue
}

// SupportsContainerNotify reports whether values of the declared type announce element changes.
func (a *AttributeSchema) SupportsContainerNotify() bool { return a.containerNotify }

// SupportsPropertyNotify reports whether values of the declared type announce property changes.
func (a *AttributeSchema) SupportsPropertyNotify() bool { return a.propertyNotify }

func (a *AttributeSchema) String() string {
	return fmt.Sprintf("%s %s = %v", a.name, a.typ, a.defaultValue)
}
