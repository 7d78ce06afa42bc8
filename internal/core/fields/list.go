package fields

import (
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zeusync/eca/internal/core/events"
)

var (
	_ ContainerNotifier = (*ListValue)(nil)
	_ Cloner            = (*ListValue)(nil)
)

// ListValue is an ordered container of untyped elements that notifies subscribers
// after every structural change. Element access is guarded; notifications are
// delivered after the lock is released, so handlers may read the list.
type ListValue struct {
	mx      sync.RWMutex
	items   []any
	changed events.Feed[ContainerChange]
}

// NewList creates a list holding a copy of values.
func NewList(values ...any) *ListValue {
	items := make([]any, len(values))
	copy(items, values)
	return &ListValue{items: items}
}

// Len returns the number of elements.
func (l *ListValue) Len() int {
	l.mx.RLock()
	defer l.mx.RUnlock()
	return len(l.items)
}

// At returns the element at index i.
func (l *ListValue) At(i int) (any, bool) {
	l.mx.RLock()
	defer l.mx.RUnlock()
	if i < 0 || i >= len(l.items) {
		return nil, false
	}
	return l.items[i], true
}

// Values returns a snapshot of the elements.
func (l *ListValue) Values() []any {
	l.mx.RLock()
	defer l.mx.RUnlock()
	out := make([]any, len(l.items))
	copy(out, l.items)
	return out
}

// Append adds value at the end.
func (l *ListValue) Append(value any) {
	l.mx.Lock()
	l.items = append(l.items, value)
	idx := len(l.items) - 1
	l.mx.Unlock()

	l.changed.Emit(ContainerChange{Action: ActionAdd, Index: idx, New: value})
}

// Insert places value at index i, shifting later elements.
func (l *ListValue) Insert(i int, value any) error {
	l.mx.Lock()
	if i < 0 || i > len(l.items) {
		n := len(l.items)
		l.mx.Unlock()
		return fmt.Errorf("insert at %d of %d: %w", i, n, ErrIndexOutOfRange)
	}
	l.items = append(l.items, nil)
	copy(l.items[i+1:], l.items[i:])
	l.items[i] = value
	l.mx.Unlock()

	l.changed.Emit(ContainerChange{Action: ActionAdd, Index: i, New: value})
	return nil
}

// Set replaces the element at index i.
func (l *ListValue) Set(i int, value any) error {
	l.mx.Lock()
	if i < 0 || i >= len(l.items) {
		n := len(l.items)
		l.mx.Unlock()
		return fmt.Errorf("set at %d of %d: %w", i, n, ErrIndexOutOfRange)
	}
	old := l.items[i]
	l.items[i] = value
	l.mx.Unlock()

	l.changed.Emit(ContainerChange{Action: ActionReplace, Index: i, Old: old, New: value})
	return nil
}

// RemoveAt deletes the element at index i.
func (l *ListValue) RemoveAt(i int) error {
	l.mx.Lock()
	if i < 0 || i >= len(l.items) {
		n := len(l.items)
		l.mx.Unlock()
		return fmt.Errorf("remove at %d of %d: %w", i, n, ErrIndexOutOfRange)
	}
	old := l.items[i]
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.mx.Unlock()

	l.changed.Emit(ContainerChange{Action: ActionRemove, Index: i, Old: old})
	return nil
}

// Clear removes every element. Clearing an empty list raises nothing.
func (l *ListValue) Clear() {
	l.mx.Lock()
	if len(l.items) == 0 {
		l.mx.Unlock()
		return
	}
	l.items = nil
	l.mx.Unlock()

	l.changed.Emit(ContainerChange{Action: ActionReset, Index: -1})
}

// OnContainerChanged subscribes fn to structural changes.
func (l *ListValue) OnContainerChanged(fn func(ContainerChange)) (cancel func()) {
	return l.changed.Subscribe(fn).Cancel
}

// Listeners returns the number of attached change listeners.
func (l *ListValue) Listeners() int {
	return l.changed.Len()
}

// Clone returns an independent list with the same elements and no listeners.
func (l *ListValue) Clone() any {
	return NewList(l.Values()...)
}

func (l *ListValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Values())
}

func (l *ListValue) String() string {
	return fmt.Sprint(l.Values())
}
