package bus

import "errors"

var (
	ErrNilHandler = errors.New("bus: handler is nil")
	ErrNilEvent   = errors.New("bus: event is nil")
	ErrClosed     = errors.New("bus: mirror is closed")
)
