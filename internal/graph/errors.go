package graph

import (
	"errors"
	"fmt"
)

// ErrUnknownKind reports an operator kind with no registry entry.
// Match with errors.Is.
var ErrUnknownKind = errors.New("unknown operator kind")

// UnknownKindError names the unregistered kind.
type UnknownKindError struct {
	Kind string
}

// Error implements the error interface.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("unknown operator kind %q", e.Kind)
}

// Unwrap ties the error to ErrUnknownKind for errors.Is matching.
func (e *UnknownKindError) Unwrap() error {
	return ErrUnknownKind
}
