package schedule

import (
	"errors"
	"fmt"
	"strings"

	"github.com/vk/eventflowgo/internal/graph"
)

// ErrCycle reports a cyclic producer relation. Structural, never
// retryable. Match with errors.Is.
var ErrCycle = errors.New("graph contains a cycle")

// CycleError carries one witness cycle as node labels, first node
// repeated at the end.
type CycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("graph contains a cycle: %s", strings.Join(e.Path, " -> "))
}

// Unwrap ties the error to ErrCycle for errors.Is matching.
func (e *CycleError) Unwrap() error {
	return ErrCycle
}

// ErrMissingInput reports a reachable source node the caller did not
// declare available. Caller-correctable. Match with errors.Is.
var ErrMissingInput = errors.New("missing input")

// MissingInputError names the unbound source node.
type MissingInputError struct {
	NodeID graph.NodeID
	Node   string
}

// Error implements the error interface.
func (e *MissingInputError) Error() string {
	return fmt.Sprintf("node %q is a source and is not among the available inputs", e.Node)
}

// Unwrap ties the error to ErrMissingInput for errors.Is matching.
func (e *MissingInputError) Unwrap() error {
	return ErrMissingInput
}
