package models

import (
	"errors"
	"fmt"

	"github.com/zeusync/eca/internal/core/schema"
)

// ErrNotFound is the class of failed entity lookups.
var ErrNotFound = errors.New("not found")

// Collection errors
var (
	ErrEntityNotFound  = fmt.Errorf("%w: entity is not in the collection", ErrNotFound)
	ErrDuplicateEntity = errors.New("entity id already in the collection")
	ErrNilEntity       = errors.New("entity is nil")
)

// Component errors
var (
	// ErrStaleComponent is returned for attributes added to a schema after the
	// component was built from it.
	ErrStaleComponent = fmt.Errorf("%w: attribute was added after the component was created", schema.ErrUnknownAttribute)
)
