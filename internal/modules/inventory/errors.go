package inventory

import "errors"

var (
	// ErrValidation is returned for bad input, before anything is persisted.
	ErrValidation = errors.New("validation error")
	// ErrNotFound is returned when no product has the requested id.
	ErrNotFound = errors.New("product not found")
	// ErrStore wraps failures of the underlying store.
	ErrStore = errors.New("store error")
)
