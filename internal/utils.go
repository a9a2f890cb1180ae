package internal

import "errors"

// ErrNotFound is the cause wrapped by gateways when a row does not exist.
var ErrNotFound = errors.New("not found")
