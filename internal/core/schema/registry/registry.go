package registry

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/zeusync/eca/internal/core/events"
	"github.com/zeusync/eca/internal/core/schema"
)

// RegisteredEvent is raised after a component schema has been registered.
type RegisteredEvent struct {
	Registry *Registry
	Schema   *schema.ComponentSchema
}

// Registry is an append-only catalog of component schemas keyed by name.
//
// The name map is not synchronized: schemas are expected to be registered by a
// single goroutine during start-up, before entities resolve them.
type Registry struct {
	schemas    map[string]*schema.ComponentSchema
	registered events.Feed[RegisteredEvent]
}

func New() *Registry {
	return &Registry{schemas: make(map[string]*schema.ComponentSchema)}
}

// Register stores s and notifies registration subscribers before returning.
// A name that is already registered is rejected with schema.ErrDuplicateSchemaName
// and the registry keeps the first schema.
func (r *Registry) Register(s *schema.ComponentSchema) error {
	if s == nil {
		return schema.ErrNilSchema
	}
	if s.Name() == "" {
		return schema.ErrInvalidName
	}
	if _, exists := r.schemas[s.Name()]; exists {
		return fmt.Errorf("register %q: %w", s.Name(), schema.ErrDuplicateSchemaName)
	}
	r.schemas[s.Name()] = s
	r.registered.Emit(RegisteredEvent{Registry: r, Schema: s})
	return nil
}

// RegisterAll registers schemas in order and stops at the first failure.
func (r *Registry) RegisterAll(schemas ...*schema.ComponentSchema) error {
	for _, s := range schemas {
		if err := r.Register(s); err != nil {
			return err
		}
	}
	return nil
}

// Find returns the schema registered under name. Absence is not an error.
func (r *Registry) Find(name string) (*schema.ComponentSchema, bool) {
	s, ok := r.schemas[name]
	return s, ok
}

// List returns a snapshot of the registered schemas ordered by name.
func (r *Registry) List() []*schema.ComponentSchema {
	out := make([]*schema.ComponentSchema, 0, len(r.schemas))
	for _, name := range slices.Sorted(maps.Keys(r.schemas)) {
		out = append(out, r.schemas[name])
	}
	return out
}

func (r *Registry) Len() int { return len(r.schemas) }

// OnRegistered subscribes fn to registrations.
func (r *Registry) OnRegistered(fn func(RegisteredEvent)) events.Subscription {
	return r.registered.Subscribe(fn)
}

var (
	defaultMx       sync.Mutex
	defaultRegistry *Registry
)

// Default returns the process-wide registry, creating it on first use.
func Default() *Registry {
	defaultMx.Lock()
	defer defaultMx.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = New()
	}
	return defaultRegistry
}

// SetDefault replaces the process-wide registry and returns the previous one.
// Passing nil resets it so the next Default call creates a fresh registry.
func SetDefault(r *Registry) *Registry {
	defaultMx.Lock()
	defer defaultMx.Unlock()
	prev := defaultRegistry
	defaultRegistry = r
	return prev
}
