package eval

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/vk/eventflowgo/internal/ctxlog"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/schedule"
)

// Options tunes a single run.
type Options struct {
	// Workers caps concurrent kernel invocations. Values below 2 select
	// the sequential executor, which runs steps in plan order on the
	// calling goroutine.
	Workers int
}

// Run executes a schedule over the given input datasets and returns the
// requested outputs keyed by node id.
//
// The inputs must be keyed exactly by the schedule's Inputs: a missing
// binding, an unexpected one, or a dataset whose schema differs from its
// node's fails with *SchemaMismatchError before any kernel runs. A
// failing kernel aborts the run with *OperatorError wrapping the cause;
// in concurrent mode, kernels already in flight finish first.
func Run(ctx context.Context, s *schedule.Schedule, inputs map[graph.NodeID]*eventset.EventSet, opts Options) (map[graph.NodeID]*eventset.EventSet, error) {
	logger := ctxlog.FromContext(ctx).With("runID", uuid.NewString())
	ctx = ctxlog.WithLogger(ctx, logger)

	if err := checkInputs(s, inputs); err != nil {
		return nil, err
	}

	st := newStore(len(inputs) + s.NumSteps())
	for id, es := range inputs {
		st.put(id, es)
	}

	logger.Debug("Starting run.", "steps", s.NumSteps(), "workers", opts.Workers, "plan", s.String())

	var err error
	if opts.Workers > 1 {
		err = runPool(ctx, s, st, opts.Workers)
	} else {
		err = runSequential(ctx, s, st)
	}
	if err != nil {
		return nil, err
	}

	out := make(map[graph.NodeID]*eventset.EventSet, len(s.Outputs()))
	for _, id := range s.Outputs() {
		es, ok := st.get(id)
		if !ok {
			return nil, fmt.Errorf("output %s was not materialized", nodeLabel(s.Graph(), id))
		}
		out[id] = es
	}
	logger.Debug("Run finished.", "outputs", len(out))
	return out, nil
}

// checkInputs enforces the "keyed exactly" contract against the
// schedule's boundary.
func checkInputs(s *schedule.Schedule, inputs map[graph.NodeID]*eventset.EventSet) error {
	g := s.Graph()
	want := make(map[graph.NodeID]bool, len(inputs))
	for _, id := range s.Inputs() {
		want[id] = true
		node := g.Node(id)
		es, ok := inputs[id]
		if !ok {
			return &SchemaMismatchError{NodeID: id, Node: node.Label(), Reason: "no dataset bound"}
		}
		if es == nil {
			return &SchemaMismatchError{NodeID: id, Node: node.Label(), Reason: "dataset is nil"}
		}
		if !es.Schema().Equal(node.Schema()) {
			return &SchemaMismatchError{
				NodeID: id,
				Node:   node.Label(),
				Reason: fmt.Sprintf("dataset schema %s does not match node schema %s", es.Schema(), node.Schema()),
			}
		}
	}

	var extras []graph.NodeID
	for id := range inputs {
		if !want[id] {
			extras = append(extras, id)
		}
	}
	if len(extras) > 0 {
		sort.Slice(extras, func(i, j int) bool { return extras[i] < extras[j] })
		id := extras[0]
		return &SchemaMismatchError{NodeID: id, Node: nodeLabel(g, id), Reason: "not an input of this schedule"}
	}
	return nil
}

// runSequential executes steps in plan order on the calling goroutine,
// honoring each step's release set. The context is checked between
// steps; a running kernel is never interrupted.
func runSequential(ctx context.Context, s *schedule.Schedule, st *store) error {
	logger := ctxlog.FromContext(ctx)
	g := s.Graph()
	for i, step := range s.Steps() {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("Running step.", "step", i, "op", step.Op.Label())
		if err := invoke(ctx, g, st, i, step); err != nil {
			return err
		}
		for _, id := range step.Release {
			freed := st.free(id)
			logger.Debug("Released dataset.", "node", nodeLabel(g, id), "bytes", freed)
		}
	}
	return nil
}

func nodeLabel(g *graph.Graph, id graph.NodeID) string {
	if n := g.Node(id); n != nil {
		return n.Label()
	}
	return fmt.Sprintf("node:%d", id)
}
