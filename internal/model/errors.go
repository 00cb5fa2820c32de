package model

import "errors"

var (
	// ErrNotFound is returned for unknown module, case or question ids.
	ErrNotFound = errors.New("not found")
	// ErrInvalidSelection is returned when a selected option is not one of the question's options.
	ErrInvalidSelection = errors.New("invalid selection")
	// ErrInvalidCatalog is returned when catalog data violates an integrity rule.
	ErrInvalidCatalog = errors.New("invalid catalog")
)
