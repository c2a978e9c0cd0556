package event

import "errors"

// ErrInvalidInput indicates a malformed event.
var ErrInvalidInput = errors.New("invalid event input")
