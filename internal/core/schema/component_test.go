package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/eca/internal/core/fields"
)

func position(t *testing.T) *ComponentSchema {
	t.Helper()
	c := NewComponent("position")
	require.NoError(t, c.Define("y", fields.Float64, 0.0))
	require.NoError(t, c.DefineZero("x", fields.Float64))
	return c
}

func TestComponentSchema(t *testing.T) {
	c := position(t)

	assert.Equal(t, "position", c.Name())
	assert.Equal(t, 2, c.Len())
	assert.True(t, c.Has("x"))
	assert.False(t, c.Has("z"))

	x, ok := c.Attribute("x")
	require.True(t, ok)
	assert.Equal(t, 0.0, x.Default())

	names := make([]string, 0, 2)
	for _, a := range c.Attributes() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"x", "y"}, names)
	assert.Equal(t, "position{x float64, y float64}", c.String())
}

func TestComponentSchemaDuplicateAttribute(t *testing.T) {
	c := position(t)

	err := c.Define("x", fields.Int, 0)
	assert.ErrorIs(t, err, ErrDuplicateAttributeName)
	assert.ErrorIs(t, err, ErrSchema)

	x, _ := c.Attribute("x")
	assert.Equal(t, fields.Float64, x.Type())

	assert.ErrorIs(t, c.AddAttribute(nil), ErrNilSchema)
}

func TestComponentSchemaDefineInvalidDefault(t *testing.T) {
	c := NewComponent("health")
	err := c.Define("hp", fields.Uint, -5)
	assert.ErrorIs(t, err, fields.ErrInvalidDefault)
	assert.Equal(t, 0, c.Len())
}

func TestComponentSchemaFingerprint(t *testing.T) {
	a := position(t)

	b := NewComponent("position")
	require.NoError(t, b.Define("x", fields.Float64, 5.0))
	require.NoError(t, b.Define("y", fields.Float64, 7.0))
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())

	require.NoError(t, b.DefineZero("z", fields.Float64))
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())

	c := NewComponent("position")
	require.NoError(t, c.Define("x", fields.Int, 0))
	require.NoError(t, c.Define("y", fields.Float64, 0))
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}
