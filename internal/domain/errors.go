package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed caller input (bad destination, bad payload).
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks a lookup miss (template, message, provider message id).
	ErrNotFound = errors.New("not found")
	// ErrConflict marks a concurrent state mutation on the same message id.
	ErrConflict = errors.New("conflict")
	// ErrInvalidState marks an operation not allowed in the message's current status.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnknownStatus marks a provider status outside the closed mapping table.
	ErrUnknownStatus = errors.New("unknown status")
)

// MissingVariableError reports a required template placeholder with no supplied value.
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing required template variable %q", e.Name)
}

func (e *MissingVariableError) Unwrap() error {
	return ErrValidation
}
