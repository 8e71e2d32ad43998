package domain

import "errors"

var (
	// ErrValidation marks missing or malformed input. No side effects have happened.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound marks a reference to a user that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate marks a unique phone violation, usually a creation race.
	ErrDuplicate = errors.New("duplicate")

	// ErrInternal marks a store, notifier or agent fault.
	ErrInternal = errors.New("internal error")
)
