package fields

// Plain returns a detached copy of v built from []any and map[string]any in
// place of ListValue and RecordValue, so it can leave the goroutine that owns v.
// Other values are returned as is.
func Plain(v any) any {
	switch t := v.(type) {
	case *ListValue:
		values := t.Values()
		for i, item := range values {
			values[i] = Plain(item)
		}
		return values
	case *RecordValue:
		snapshot := t.Snapshot()
		for k, item := range snapshot {
			snapshot[k] = Plain(item)
		}
		return snapshot
	default:
		return v
	}
}
