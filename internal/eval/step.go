package eval

import (
	"context"
	"fmt"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schedule"
)

// invoke runs one step's kernel over datasets already in the store and
// publishes its outputs. Every failure path comes back as *OperatorError.
func invoke(ctx context.Context, g *graph.Graph, st *store, stepIdx int, step schedule.Step) error {
	op := step.Op
	fail := func(err error) error {
		return &OperatorError{Step: stepIdx, Op: op.Label(), Err: err}
	}

	kernel, ok := g.Registry().Kernel(op.Kind())
	if !ok {
		return fail(fmt.Errorf("no kernel registered for kind %q", op.Kind()))
	}

	in := make([]*eventset.EventSet, len(op.Inputs()))
	for i, id := range op.Inputs() {
		es, ok := st.get(id)
		if !ok {
			return fail(fmt.Errorf("input %s is not materialized", nodeLabel(g, id)))
		}
		in[i] = es
	}

	out, err := runKernel(ctx, kernel, in, op)
	if err != nil {
		return fail(err)
	}
	if len(out) != len(op.Outputs()) {
		return fail(fmt.Errorf("kernel returned %d datasets, operator declares %d outputs", len(out), len(op.Outputs())))
	}
	for i, id := range op.Outputs() {
		node := g.Node(id)
		if out[i] == nil {
			return fail(fmt.Errorf("kernel returned a nil dataset for %s", node.Label()))
		}
		if !out[i].Schema().Equal(node.Schema()) {
			return fail(fmt.Errorf("kernel output schema %s for %s does not match planned schema %s",
				out[i].Schema(), node.Label(), node.Schema()))
		}
	}
	for i, id := range op.Outputs() {
		st.put(id, out[i])
	}
	return nil
}

// runKernel invokes the kernel, converting a panic into an error.
func runKernel(ctx context.Context, kernel registry.Kernel, in []*eventset.EventSet, op *graph.Operator) (out []*eventset.EventSet, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("kernel panicked: %v", r)
		}
	}()
	return kernel.Run(ctx, in, op.Attrs())
}
