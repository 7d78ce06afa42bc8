package models

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/events"
	"github.com/zeusync/eca/internal/core/schema"
	"github.com/zeusync/eca/internal/core/schema/registry"
)

// SchemaResolver resolves component names to schemas. *registry.Registry implements it.
type SchemaResolver interface {
	Find(name string) (*schema.ComponentSchema, bool)
}

// Entity is an identity plus a lazily populated set of components.
//
// Components are created on first access by name and never removed.
// Every change raised by a component is re-raised verbatim by the entity.
type Entity struct {
	id       uuid.UUID
	owner    uuid.UUID
	resolver SchemaResolver

	mx         sync.RWMutex
	components map[string]*Component

	created  events.Feed[ComponentCreated]
	changed  events.Feed[AttributeChanged]
	proposed events.Feed[Proposal]
}

// New creates an entity with a fresh id, owned by the global collection and
// resolving components against the default registry.
func New() *Entity {
	return NewEntity(registry.Default())
}

// NewEntity creates an entity with a fresh id, owned by the global collection.
func NewEntity(resolver SchemaResolver) *Entity {
	return NewEntityWithID(uuid.New(), Global().ID(), resolver)
}

// NewEntityWithID creates an entity with explicit identity, as replicated from
// another authority.
func NewEntityWithID(id, owner uuid.UUID, resolver SchemaResolver) *Entity {
	if resolver == nil {
		resolver = registry.Default()
	}
	return &Entity{
		id:         id,
		owner:      owner,
		resolver:   resolver,
		components: make(map[string]*Component),
	}
}

func (e *Entity) ID() uuid.UUID { return e.id }

// Owner identifies the authority that is authoritative for this entity.
func (e *Entity) Owner() uuid.UUID { return e.owner }

// Component returns the component with the given name, creating it on first access.
// A name with no registered schema fails with schema.ErrUnknownComponent.
func (e *Entity) Component(name string) (*Component, error) {
	e.mx.RLock()
	c, ok := e.components[name]
	e.mx.RUnlock()
	if ok {
		return c, nil
	}

	s, found := e.resolver.Find(name)
	if !found {
		return nil, fmt.Errorf("%s: %w", name, schema.ErrUnknownComponent)
	}

	e.mx.Lock()
	if c, ok = e.components[name]; ok {
		e.mx.Unlock()
		return c, nil
	}
	c = newComponent(s, e)
	e.components[name] = c
	e.mx.Unlock()

	e.created.Emit(ComponentCreated{Entity: e, Component: c})
	return c, nil
}

// Contains reports whether the component was already created. It never creates one.
func (e *Entity) Contains(name string) bool {
	e.mx.RLock()
	defer e.mx.RUnlock()
	_, ok := e.components[name]
	return ok
}

// Components returns the created components ordered by name.
func (e *Entity) Components() []*Component {
	e.mx.RLock()
	defer e.mx.RUnlock()
	out := make([]*Component, 0, len(e.components))
	for _, name := range slices.Sorted(maps.Keys(e.components)) {
		out = append(out, e.components[name])
	}
	return out
}

// Attribute resolves component and attribute in one call, creating the component if needed.
func (e *Entity) Attribute(component, attribute string) (*Attribute, error) {
	c, err := e.Component(component)
	if err != nil {
		return nil, err
	}
	return c.Attribute(attribute)
}

// Propose submits a governed change.
//
// When an arbiter is subscribed through OnProposed the proposal is handed to it
// and nothing else happens: committing is up to the arbiter. Without an arbiter
// the change is applied at once, exactly like a direct Set.
func (e *Entity) Propose(p Proposal) error {
	p.Entity = e
	if e.Arbitrated() {
		e.proposed.Emit(p)
		return nil
	}
	return p.Apply()
}

// Arbitrated reports whether proposals are currently routed to an arbiter.
func (e *Entity) Arbitrated() bool {
	return e.proposed.Len() > 0
}

// OnComponentCreated subscribes fn to lazy component creation.
func (e *Entity) OnComponentCreated(fn func(ComponentCreated)) events.Subscription {
	return e.created.Subscribe(fn)
}

// OnChanged subscribes fn to attribute changes of every component of the entity.
func (e *Entity) OnChanged(fn func(AttributeChanged)) events.Subscription {
	return e.changed.Subscribe(fn)
}

// OnProposed registers an arbiter. Cancelling the last subscription returns the
// entity to applying proposals directly.
func (e *Entity) OnProposed(fn func(Proposal)) events.Subscription {
	return e.proposed.Subscribe(fn)
}

func (e *Entity) String() string {
	return e.id.String()
}
