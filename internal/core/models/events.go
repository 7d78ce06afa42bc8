package models

// AttributeChanged is raised by a Component, and re-raised verbatim by its Entity,
// after an attribute value changed.
//
// For an identity change Old and New differ. For an in-place mutation of an
// observable value (a List element added, a Record property set) Old and New are
// the same current value and InPlace is true.
type AttributeChanged struct {
	Component *Component
	Attribute string
	Old       any
	New       any
	InPlace   bool
}

// Entity is a shorthand for Component.Entity().
func (e AttributeChanged) Entity() *Entity {
	return e.Component.Entity()
}

// ComponentCreated is raised by an Entity after it lazily created a component.
type ComponentCreated struct {
	Entity    *Entity
	Component *Component
}

// Proposal is a governed attribute change. It carries no response channel:
// an arbiter that accepts it commits through the normal attribute set path.
type Proposal struct {
	Entity    *Entity
	Component string
	Attribute string
	Value     any
}

// Apply commits the proposal directly, bypassing arbitration.
func (p Proposal) Apply() error {
	attr, err := p.Entity.Attribute(p.Component, p.Attribute)
	if err != nil {
		return err
	}
	return attr.Set(p.Value)
}

// EntityEvent is raised by an EntityCollection when membership changes.
type EntityEvent struct {
	Collection *EntityCollection
	Entity     *Entity
}
