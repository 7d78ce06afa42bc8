package models

import (
	"fmt"

	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/schema"
)

// Attribute is one live, typed value slot of a Component.
type Attribute struct {
	schema    *schema.AttributeSchema
	component *Component
	value     any
	// release detaches the nested-change listener held on value, nil when none is attached.
	release func()
}

func newAttribute(s *schema.AttributeSchema, c *Component) *Attribute {
	a := &Attribute{
		schema:    s,
		component: c,
		value:     s.NewValue(),
	}
	a.rebind()
	return a
}

func (a *Attribute) Schema() *schema.AttributeSchema { return a.schema }
func (a *Attribute) Name() string                    { return a.schema.Name() }
func (a *Attribute) Type() fields.Type               { return a.schema.Type() }
func (a *Attribute) Component() *Component           { return a.component }
func (a *Attribute) Value() any                      { return a.value }

// Set replaces the attribute value.
//
// The value is first converted to the declared type; if that fails,
// fields.ErrTypeMismatch is returned and nothing changes. Otherwise:
//
//  1. the listener on the old value is detached when the value is replaced,
//  2. the new value is stored, even when it equals the old one,
//  3. a single nested-change listener is attached to the stored value when
//     the declared type supports one (container changes before property changes),
//  4. the component is notified; it raises a change only when old and new differ.
func (a *Attribute) Set(value any) error {
	converted, err := fields.Convert(a.schema.Type(), value)
	if err != nil {
		return fmt.Errorf("set %s.%s: %w", a.component.Name(), a.schema.Name(), err)
	}

	old := a.value
	if old != nil && converted != nil && !fields.Equal(old, converted) {
		a.unbind()
	}
	a.value = converted
	a.rebind()
	a.component.attributeChanged(a.schema.Name(), old, converted)
	return nil
}

// Bound reports whether a nested-change listener is attached to the current value.
func (a *Attribute) Bound() bool {
	return a.release != nil
}

func (a *Attribute) unbind() {
	if a.release != nil {
		a.release()
		a.release = nil
	}
}

func (a *Attribute) rebind() {
	// An equal re-set or a nil transition skips the unbind in Set; at most one
	// listener may stay live, so drop it before attaching the next one.
	a.unbind()
	a.release = bind(a.schema, a.value, a.forward)
}

// bind attaches forward to value according to the capability flags of s.
// The container capability wins when a type offers both.
func bind(s *schema.AttributeSchema, value any, forward func()) (release func()) {
	switch {
	case s.SupportsContainerNotify():
		if n, ok := value.(fields.ContainerNotifier); ok {
			return n.OnContainerChanged(func(fields.ContainerChange) { forward() })
		}
	case s.SupportsPropertyNotify():
		if n, ok := value.(fields.PropertyNotifier); ok {
			return n.OnPropertyChanged(func(string) { forward() })
		}
	}
	return nil
}

func (a *Attribute) forward() {
	a.component.attributeMutated(a.schema.Name(), a.value)
}

func (a *Attribute) String() string {
	return fmt.Sprintf("%s.%s=%v", a.component.Name(), a.schema.Name(), a.value)
}

// As reads the attribute value as T.
func As[T any](a *Attribute) (T, error) {
	v, ok := a.value.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s.%s holds %T, not %T: %w",
			a.component.Name(), a.schema.Name(), a.value, zero, fields.ErrTypeMismatch)
	}
	return v, nil
}
