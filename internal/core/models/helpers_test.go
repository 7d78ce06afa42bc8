package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeusync/eca/internal/core/fields"
	"github.com/zeusync/eca/internal/core/schema"
	"github.com/zeusync/eca/internal/core/schema/registry"
)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r := registry.New()

	position := schema.NewComponent("position")
	require.NoError(t, position.Define("x", fields.Float64, 0.0))
	require.NoError(t, position.Define("y", fields.Float64, 0.0))

	inventory := schema.NewComponent("inventory")
	require.NoError(t, inventory.Define("items", fields.List, []any{}))

	stats := schema.NewComponent("stats")
	require.NoError(t, stats.Define("values", fields.Record, map[string]any{}))

	health := schema.NewComponent("health")
	require.NoError(t, health.Define("hp", fields.Int, 100))
	require.NoError(t, health.DefineZero("tag", fields.Any))

	require.NoError(t, r.RegisterAll(position, inventory, stats, health))
	return r
}

func testEntity(t *testing.T) *Entity {
	t.Helper()
	return NewEntity(testRegistry(t))
}

// recorder collects the changes an entity re-raises.
type recorder struct {
	changes []AttributeChanged
}

func record(e *Entity) *recorder {
	r := &recorder{}
	e.OnChanged(func(c AttributeChanged) { r.changes = append(r.changes, c) })
	return r
}

func mustAttribute(t *testing.T, e *Entity, component, attribute string) *Attribute {
	t.Helper()
	a, err := e.Attribute(component, attribute)
	require.NoError(t, err)
	return a
}
