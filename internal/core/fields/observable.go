package fields

// ChangeAction describes a structural change of a container.
type ChangeAction uint8

const (
	ActionAdd ChangeAction = iota
	ActionRemove
	ActionReplace
	ActionReset
)

func (a ChangeAction) String() string {
	switch a {
	case ActionAdd:
		return "add"
	case ActionRemove:
		return "remove"
	case ActionReplace:
		return "replace"
	case ActionReset:
		return "reset"
	default:
		return "unknown"
	}
}

// ContainerChange is raised by a ContainerNotifier after its elements changed.
type ContainerChange struct {
	Action ChangeAction
	// Index of the affected element, -1 for ActionReset.
	Index int
	Old   any
	New   any
}

// ContainerNotifier is implemented by values that announce changes of their elements.
type ContainerNotifier interface {
	OnContainerChanged(fn func(ContainerChange)) (cancel func())
}

// PropertyNotifier is implemented by values that announce changes of their named properties.
type PropertyNotifier interface {
	OnPropertyChanged(fn func(property string)) (cancel func())
}

// Cloner is implemented by mutable values that must not be shared between attributes.
type Cloner interface {
	Clone() any
}
