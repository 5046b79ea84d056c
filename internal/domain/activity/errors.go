package activity

import "errors"

// ErrInvalidInput indicates an event is missing required fields.
var ErrInvalidInput = errors.New("invalid activity input")
