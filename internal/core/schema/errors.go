package schema

import (
	"errors"
	"fmt"
)

// ErrSchema is the class of every naming error: duplicate names at definition or
// registration time and unknown names at lookup time.
var ErrSchema = errors.New("schema error")

// Definition errors
var (
	ErrDuplicateSchemaName    = fmt.Errorf("%w: component schema name already registered", ErrSchema)
	ErrDuplicateAttributeName = fmt.Errorf("%w: attribute name already defined", ErrSchema)
	ErrInvalidName            = fmt.Errorf("%w: name must not be empty", ErrSchema)
	ErrNilSchema              = fmt.Errorf("%w: schema is nil", ErrSchema)
)

// Lookup errors
var (
	ErrUnknownComponent = fmt.Errorf("%w: component is not registered", ErrSchema)
	ErrUnknownAttribute = fmt.Errorf("%w: attribute is not defined by the component schema", ErrSchema)
)
