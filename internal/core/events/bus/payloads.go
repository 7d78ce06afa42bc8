package bus

// Runtime event types.
const (
	TypeSchemaRegistered  = "eca.schema.registered"
	TypeEntityAdded       = "eca.entity.added"
	TypeEntityRemoved     = "eca.entity.removed"
	TypeComponentCreated  = "eca.component.created"
	TypeAttributeChanged  = "eca.attribute.changed"
	TypeAttributeProposed = "eca.attribute.proposed"
)

// Types lists every runtime event type.
var Types = []string{
	TypeSchemaRegistered,
	TypeEntityAdded,
	TypeEntityRemoved,
	TypeComponentCreated,
	TypeAttributeChanged,
	TypeAttributeProposed,
}

// Payloads hold ids and detached values only, never live model objects.

type SchemaRegistered struct {
	Schema     string   `json:"schema"`
	ID         string   `json:"id"`
	Attributes []string `json:"attributes"`
}

type EntityMembership struct {
	Collection string `json:"collection"`
	Entity     string `json:"entity"`
	Owner      string `json:"owner"`
}

type ComponentCreated struct {
	Entity    string `json:"entity"`
	Component string `json:"component"`
}

type AttributeChanged struct {
	Entity    string `json:"entity"`
	Component string `json:"component"`
	Attribute string `json:"attribute"`
	Old       any    `json:"old"`
	New       any    `json:"new"`
	InPlace   bool   `json:"inPlace,omitempty"`
}

type AttributeProposed struct {
	Entity    string `json:"entity"`
	Component string `json:"component"`
	Attribute string `json:"attribute"`
	Value     any    `json:"value"`
}

// EntityID returns the entity a payload refers to, or "" for schema events.
func EntityID(data any) string {
	switch p := data.(type) {
	case EntityMembership:
		return p.Entity
	case ComponentCreated:
		return p.Entity
	case AttributeChanged:
		return p.Entity
	case AttributeProposed:
		return p.Entity
	default:
		return ""
	}
}
