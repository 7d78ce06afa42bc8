package fields

import (
	"bytes"
	"math"
	"reflect"
	"time"
)

// Equaler lets a value type define its own equality, like an overridden Equals.
type Equaler interface {
	Equal(other any) bool
}

// Equal reports whether two attribute values are equal.
//
// Two nils are equal, a nil never equals a non-nil. Containers (*ListValue, *RecordValue)
// and other pointers compare by identity. Values implementing Equaler decide
// for themselves; byte slices and times compare by content. A NaN equals a NaN
// of the same float type.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if e, ok := a.(Equaler); ok {
		return e.Equal(b)
	}
	switch x := a.(type) {
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case float64:
		y, ok := b.(float64)
		return ok && (x == y || math.IsNaN(x) && math.IsNaN(y))
	case float32:
		y, ok := b.(float32)
		return ok && (x == y || math.IsNaN(float64(x)) && math.IsNaN(float64(y)))
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

// Changed is the notification rule for identity changes: exactly one side is nil,
// or both are non-nil and not Equal.
func Changed(old, next any) bool {
	if old == nil {
		return next != nil
	}
	return next == nil || !Equal(old, next)
}
