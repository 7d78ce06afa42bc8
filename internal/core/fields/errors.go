package fields

import (
	"errors"
	"fmt"
)

// ErrType is the class of every value/type incompatibility.
var ErrType = errors.New("type error")

var (
	// ErrTypeMismatch is returned when an assigned value cannot be converted to the declared type.
	ErrTypeMismatch = fmt.Errorf("%w: value not convertible to declared type", ErrType)
	// ErrInvalidDefault is returned when a schema default cannot be converted to the declared type.
	ErrInvalidDefault = fmt.Errorf("%w: default value not convertible to declared type", ErrType)
	// ErrUnknownType is returned for type names that do not map to a Type.
	ErrUnknownType = fmt.Errorf("%w: unknown type", ErrType)
)

// Container errors
var (
	ErrIndexOutOfRange = errors.New("index out of range")
)
