package models

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/zeusync/eca/internal/core/events"
)

// EntityCollection is a concurrency-safe set of entities keyed by id.
// Notifications are raised after the lock is released.
type EntityCollection struct {
	id uuid.UUID

	mx       sync.RWMutex
	entities map[uuid.UUID]*Entity

	added   events.Feed[EntityEvent]
	removed events.Feed[EntityEvent]
}

func NewCollection() *EntityCollection {
	return NewCollectionWithID(uuid.New())
}

func NewCollectionWithID(id uuid.UUID) *EntityCollection {
	return &EntityCollection{
		id:       id,
		entities: make(map[uuid.UUID]*Entity),
	}
}

// ID is the authority id that entities owned by this collection carry.
func (c *EntityCollection) ID() uuid.UUID { return c.id }

// Add inserts entity. An id already present fails with ErrDuplicateEntity.
func (c *EntityCollection) Add(entity *Entity) error {
	if entity == nil {
		return ErrNilEntity
	}

	c.mx.Lock()
	if _, exists := c.entities[entity.ID()]; exists {
		c.mx.Unlock()
		return fmt.Errorf("%s: %w", entity.ID(), ErrDuplicateEntity)
	}
	c.entities[entity.ID()] = entity
	c.mx.Unlock()

	c.added.Emit(EntityEvent{Collection: c, Entity: entity})
	return nil
}

// Remove deletes entity and reports whether it was a member.
// The removed notification is raised only when something was removed.
func (c *EntityCollection) Remove(entity *Entity) bool {
	if entity == nil {
		return false
	}

	c.mx.Lock()
	current, exists := c.entities[entity.ID()]
	if exists {
		delete(c.entities, entity.ID())
	}
	c.mx.Unlock()

	if !exists {
		return false
	}
	c.removed.Emit(EntityEvent{Collection: c, Entity: current})
	return true
}

// Find returns the entity with the given id or ErrEntityNotFound.
func (c *EntityCollection) Find(id uuid.UUID) (*Entity, error) {
	c.mx.RLock()
	e, ok := c.entities[id]
	c.mx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrEntityNotFound)
	}
	return e, nil
}

// FindString is Find for a textual id.
func (c *EntityCollection) FindString(id string) (*Entity, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", id, ErrEntityNotFound)
	}
	return c.Find(parsed)
}

func (c *EntityCollection) Contains(id uuid.UUID) bool {
	c.mx.RLock()
	defer c.mx.RUnlock()
	_, ok := c.entities[id]
	return ok
}

func (c *EntityCollection) Len() int {
	c.mx.RLock()
	defer c.mx.RUnlock()
	return len(c.entities)
}

// All iterates over a snapshot of the members, ordered by id.
func (c *EntityCollection) All() iter.Seq[*Entity] {
	c.mx.RLock()
	ids := slices.SortedFunc(maps.Keys(c.entities), func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})
	snapshot := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		snapshot = append(snapshot, c.entities[id])
	}
	c.mx.RUnlock()

	return slices.Values(snapshot)
}

// Clear removes every member, raising one removed notification per entity.
func (c *EntityCollection) Clear() {
	c.mx.Lock()
	old := c.entities
	c.entities = make(map[uuid.UUID]*Entity)
	c.mx.Unlock()

	for _, e := range old {
		c.removed.Emit(EntityEvent{Collection: c, Entity: e})
	}
}

func (c *EntityCollection) OnAdded(fn func(EntityEvent)) events.Subscription {
	return c.added.Subscribe(fn)
}

func (c *EntityCollection) OnRemoved(fn func(EntityEvent)) events.Subscription {
	return c.removed.Subscribe(fn)
}

var (
	globalMx sync.Mutex
	global   *EntityCollection
)

// Global returns the process-wide default collection. Its id is the owner of
// every entity created without explicit identity.
func Global() *EntityCollection {
	globalMx.Lock()
	defer globalMx.Unlock()
	if global == nil {
		global = NewCollection()
	}
	return global
}

// SetGlobal replaces the default collection and returns the previous one.
func SetGlobal(c *EntityCollection) *EntityCollection {
	globalMx.Lock()
	defer globalMx.Unlock()
	prev := global
	global = c
	return prev
}
