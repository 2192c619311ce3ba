package repository

import "errors"

var (
	// ErrNotFound indicates an entity was not located.
	ErrNotFound = errors.New("repository: not found")

	// ErrConflict indicates a unique constraint or primary key collision.
	ErrConflict = errors.New("repository: conflict")

	// ErrInvalidArgument indicates the backend rejected a value.
	ErrInvalidArgument = errors.New("repository: invalid argument")
)
