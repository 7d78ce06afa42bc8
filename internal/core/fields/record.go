package fields

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/goccy/go-json"
	"github.com/zeusync/eca/internal/core/events"
)

var (
	_ PropertyNotifier = (*RecordValue)(nil)
	_ Cloner           = (*RecordValue)(nil)
)

// RecordValue is a bag of named properties that notifies subscribers with the
// property name whenever one is set to a different value or deleted.
type RecordValue struct {
	mx      sync.RWMutex
	props   map[string]any
	changed events.Feed[string]
}

// NewRecord creates a record holding a copy of props.
func NewRecord(props map[string]any) *RecordValue {
	r := &RecordValue{props: make(map[string]any, len(props))}
	maps.Copy(r.props, props)
	return r
}

func (r *RecordValue) Get(name string) (any, bool) {
	r.mx.RLock()
	defer r.mx.RUnlock()
	v, ok := r.props[name]
	return v, ok
}

// Set assigns a property. Setting an equal value raises nothing.
func (r *RecordValue) Set(name string, value any) {
	r.mx.Lock()
	old, existed := r.props[name]
	if existed && Equal(old, value) {
		r.mx.Unlock()
		return
	}
	r.props[name] = value
	r.mx.Unlock()

	r.changed.Emit(name)
}

// Delete removes a property and reports whether it existed.
func (r *RecordValue) Delete(name string) bool {
	r.mx.Lock()
	_, existed := r.props[name]
	delete(r.props, name)
	r.mx.Unlock()

	if existed {
		r.changed.Emit(name)
	}
	return existed
}

// Names returns the property names in sorted order.
func (r *RecordValue) Names() []string {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return slices.Sorted(maps.Keys(r.props))
}

func (r *RecordValue) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.props)
}

// Snapshot returns a copy of all properties.
func (r *RecordValue) Snapshot() map[string]any {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return maps.Clone(r.props)
}

// OnPropertyChanged subscribes fn to property changes.
func (r *RecordValue) OnPropertyChanged(fn func(property string)) (cancel func()) {
	return r.changed.Subscribe(fn).Cancel
}

// Listeners returns the number of attached change listeners.
func (r *RecordValue) Listeners() int {
	return r.changed.Len()
}

// Clone returns an independent record with the same properties and no listeners.
func (r *RecordValue) Clone() any {
	return NewRecord(r.Snapshot())
}

func (r *RecordValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Snapshot())
}

func (r *RecordValue) String() string {
	return fmt.Sprint(r.Snapshot())
}
