package fields

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordNotifications(t *testing.T) {
	r := NewRecord(map[string]any{"hp": 10})
	var got []string
	r.OnPropertyChanged(func(name string) { got = append(got, name) })

	r.Set("hp", 10)
	assert.Empty(t, got)

	r.Set("hp", 9)
	r.Set("mana", 3)
	assert.True(t, r.Delete("mana"))
	assert.False(t, r.Delete("mana"))

	assert.Equal(t, []string{"hp", "mana", "mana"}, got)
	assert.Equal(t, []string{"hp"}, r.Names())
}

func TestRecordCopies(t *testing.T) {
	src := map[string]any{"a": 1}
	r := NewRecord(src)
	src["b"] = 2
	assert.Equal(t, 1, r.Len())

	snap := r.Snapshot()
	snap["c"] = 3
	_, ok := r.Get("c")
	assert.False(t, ok)

	r.OnPropertyChanged(func(string) {})
	clone := r.Clone().(*RecordValue)
	assert.Equal(t, 0, clone.Listeners())
	assert.Equal(t, 1, r.Listeners())
	clone.Set("a", 5)
	a, _ := r.Get("a")
	assert.Equal(t, 1, a)

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}

func TestPlain(t *testing.T) {
	inner := NewRecord(map[string]any{"tags": NewList("x")})
	v := Plain(NewList(1, inner))

	assert.Equal(t, []any{1, map[string]any{"tags": []any{"x"}}}, v)
	assert.Equal(t, 5, Plain(5))
	assert.Nil(t, Plain(nil))
}
