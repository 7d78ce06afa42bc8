package models

import (
	"bytes"
	"slices"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectionAddFindRemove(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection()
	e := NewEntity(reg)

	var added, removed []*Entity
	c.OnAdded(func(ev EntityEvent) {
		assert.Same(t, c, ev.Collection)
		// members are visible to handlers
		assert.True(t, c.Contains(ev.Entity.ID()))
		added = append(added, ev.Entity)
	})
	c.OnRemoved(func(ev EntityEvent) { removed = append(removed, ev.Entity) })

	require.NoError(t, c.Add(e))
	assert.Equal(t, 1, c.Len())

	found, err := c.Find(e.ID())
	require.NoError(t, err)
	assert.Same(t, e, found)

	found, err = c.FindString(e.ID().String())
	require.NoError(t, err)
	assert.Same(t, e, found)

	assert.True(t, c.Remove(e))
	assert.False(t, c.Remove(e))
	assert.False(t, c.Remove(nil))

	assert.Equal(t, []*Entity{e}, added)
	assert.Equal(t, []*Entity{e}, removed)
	assert.Equal(t, 0, c.Len())
}

func TestCollectionRejects(t *testing.T) {
	c := NewCollection()
	e := NewEntity(testRegistry(t))
	require.NoError(t, c.Add(e))

	calls := 0
	c.OnAdded(func(EntityEvent) { calls++ })

	assert.ErrorIs(t, c.Add(e), ErrDuplicateEntity)
	assert.ErrorIs(t, c.Add(NewEntityWithID(e.ID(), uuid.New(), nil)), ErrDuplicateEntity)
	assert.ErrorIs(t, c.Add(nil), ErrNilEntity)
	assert.Equal(t, 0, calls)

	_, err := c.Find(uuid.New())
	assert.ErrorIs(t, err, ErrEntityNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = c.FindString("not-a-uuid")
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestCollectionAllAndClear(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection()
	for range 5 {
		require.NoError(t, c.Add(NewEntity(reg)))
	}

	all := slices.Collect(c.All())
	require.Len(t, all, 5)
	assert.True(t, slices.IsSortedFunc(all, func(a, b *Entity) int {
		x, y := a.ID(), b.ID()
		return bytes.Compare(x[:], y[:])
	}))

	removed := 0
	c.OnRemoved(func(EntityEvent) { removed++ })
	c.Clear()
	assert.Equal(t, 5, removed)
	assert.Equal(t, 0, c.Len())

	// the snapshot taken earlier is unaffected
	assert.Len(t, all, 5)
}

func TestCollectionConcurrentAdd(t *testing.T) {
	reg := testRegistry(t)
	c := NewCollection()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				assert.NoError(t, c.Add(NewEntityWithID(uuid.New(), c.ID(), reg)))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 400, c.Len())
}

func TestGlobal(t *testing.T) {
	prev := SetGlobal(nil)
	t.Cleanup(func() { SetGlobal(prev) })

	g := Global()
	require.NotNil(t, g)
	assert.Same(t, g, Global())

	id := uuid.New()
	custom := NewCollectionWithID(id)
	assert.Same(t, g, SetGlobal(custom))
	assert.Equal(t, id, Global().ID())
}
