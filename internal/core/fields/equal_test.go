package fields

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type point struct{ X, Y int }

type approx float64

func (a approx) Equal(other any) bool {
	b, ok := other.(approx)
	if !ok {
		return false
	}
	d := float64(a - b)
	return d < 0.01 && d > -0.01
}

func TestEqual(t *testing.T) {
	list := NewList(1)
	ts := time.Now()

	tests := []struct {
		name string
		a, b any
		want bool
	}{
		{"both nil", nil, nil, true},
		{"nil and value", nil, 0, false},
		{"value and nil", "", nil, false},
		{"same int", 3, 3, true},
		{"different kinds", 3, int64(3), false},
		{"structs by value", point{1, 2}, point{1, 2}, true},
		{"bytes by content", []byte("ab"), []byte("ab"), true},
		{"time by instant", ts, ts.In(time.UTC), true},
		{"list by identity", list, list, true},
		{"lists with same content", NewList(1), NewList(1), false},
		{"equaler", approx(1.0), approx(1.001), true},
		{"slices deep", []int{1}, []int{1}, true},
		{"nan float64", math.NaN(), math.NaN(), true},
		{"nan float32", float32(math.NaN()), float32(math.NaN()), true},
		{"nan and number", math.NaN(), 1.0, false},
		{"nan across widths", math.NaN(), float32(math.NaN()), false},
		{"signed zeros", 0.0, math.Copysign(0, -1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Equal(tt.a, tt.b))
		})
	}
}

func TestChanged(t *testing.T) {
	assert.False(t, Changed(nil, nil))
	assert.True(t, Changed(nil, 1))
	assert.True(t, Changed(1, nil))
	assert.False(t, Changed(1, 1))
	assert.True(t, Changed(1, 2))
	assert.False(t, Changed(math.NaN(), math.NaN()))
}
