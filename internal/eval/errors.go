package eval

import (
	"errors"
	"fmt"

	"github.com/vk/eventflowgo/internal/graph"
)

// ErrSchemaMismatch reports input datasets that do not satisfy the
// schedule's input contract. Match with errors.Is.
var ErrSchemaMismatch = errors.New("input datasets do not match the schedule")

// SchemaMismatchError names the first offending input binding: a
// schedule input with no dataset, a dataset bound to a node the schedule
// does not take, or a dataset whose schema disagrees with its node.
type SchemaMismatchError struct {
	NodeID graph.NodeID
	Node   string
	Reason string
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("input %q: %s", e.Node, e.Reason)
}

// Unwrap ties the error to ErrSchemaMismatch for errors.Is matching.
func (e *SchemaMismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// OperatorError reports the step that aborted a run. Unwrap exposes the
// kernel's own error, so errors.Is and errors.As reach the cause.
type OperatorError struct {
	Step int
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *OperatorError) Error() string {
	return fmt.Sprintf("step %d (%s): %v", e.Step, e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *OperatorError) Unwrap() error {
	return e.Err
}
