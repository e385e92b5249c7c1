package domain

import "errors"

var (
	// ErrNotFound indicates the requested entity does not exist or is not
	// visible to the requesting user.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input data.
	ErrValidation = errors.New("validation error")

	// ErrConflict indicates the operation conflicts with current state.
	ErrConflict = errors.New("conflict")
)
