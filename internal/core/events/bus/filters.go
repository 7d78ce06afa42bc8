package bus

import "slices"

// ForEntity accepts only events whose payload concerns the entity with the given id.
func ForEntity(id string) EventFilter {
	return func(e Event) bool {
		return EntityID(e.Data()) == id
	}
}

// SkipTypes rejects events of the listed types.
func SkipTypes(types ...string) EventFilter {
	skipped := slices.Clone(types)
	return func(e Event) bool {
		return !slices.Contains(skipped, e.Type())
	}
}
