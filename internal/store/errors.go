package store

import "errors"

// ErrNotFound is returned when a requested batch does not exist.
var ErrNotFound = errors.New("storage: not found")
