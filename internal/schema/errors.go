package schema

import (
	"errors"
	"fmt"
)

// ErrSchema is the root of every schema validation failure, both for
// malformed schemas at construction and for incompatible schemas rejected
// by an operator's inference rule. Match with errors.Is.
var ErrSchema = errors.New("invalid schema")

// SchemaError describes one concrete schema violation.
type SchemaError struct {
	Subject string
	Reason  string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: %s: %s", e.Subject, e.Reason)
}

// Unwrap ties the error to ErrSchema for errors.Is matching.
func (e *SchemaError) Unwrap() error {
	return ErrSchema
}
