package repository

import "errors"

var (
	// ErrNotFound means the slot or row is empty.
	ErrNotFound = errors.New("not found")

	// ErrConflict means a rent ID is already stored under another key.
	ErrConflict = errors.New("conflict: rent id already stored")

	// ErrInvalidInput means a record is missing a required field.
	ErrInvalidInput = errors.New("invalid input")
)
