package eval_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/vk/eventflowgo/internal/eval"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schedule"
	"github.com/vk/eventflowgo/internal/testutil"
)

// planChain builds x -> ADD_CONST(value) -> out and plans it.
func planChain(t *testing.T, value float64) (*schedule.Schedule, graph.NodeID, graph.NodeID) {
	t.Helper()
	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	out, err := g.AddOperator("ADD_CONST", []graph.NodeID{x}, opdef.Attributes{"value": opdef.FloatValue(value)})
	require.NoError(t, err)
	s, err := schedule.Build(g, out, []graph.NodeID{x})
	require.NoError(t, err)
	return s, x, out[0]
}

func TestRunAddConstant(t *testing.T) {
	s, x, out := planChain(t, 2.0)
	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0, 1, 2}, []float64{1, 2, 3})

	got, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{})
	require.NoError(t, err)

	require.Len(t, got, 1)
	b := testutil.FlatBucket(got[out])
	assert.Equal(t, []float64{0, 1, 2}, b.Timestamps)
	assert.Equal(t, []float64{3, 4, 5}, b.Column(0).Float64s())
}

func TestRunIdentityPassthrough(t *testing.T) {
	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	s, err := schedule.Build(g, []graph.NodeID{x}, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{1, 2}, []float64{10, 20})
	got, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{})
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Same(t, in, got[x], "an already-available output is handed back as-is")
}

func TestRunCombineTwoInputs(t *testing.T) {
	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	y, err := g.AddSource("y", testutil.FloatSchema("v"))
	require.NoError(t, err)
	out, err := g.AddOperator("COMBINE", []graph.NodeID{x, y}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, out, []graph.NodeID{x, y})
	require.NoError(t, err)

	inputs := map[graph.NodeID]*eventset.EventSet{
		x: testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0, 1}, []float64{1, 2}),
		y: testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0, 1}, []float64{10, 20}),
	}
	got, err := eval.Run(context.Background(), s, inputs, eval.Options{})
	require.NoError(t, err)

	assert.Equal(t, []float64{11, 22}, testutil.FlatBucket(got[out[0]]).Column(0).Float64s())
}

func TestRunOnlyRequestedOutputsReturned(t *testing.T) {
	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	split, err := g.AddOperator("SPLIT", []graph.NodeID{x}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, []graph.NodeID{split[0]}, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})
	got, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{})
	require.NoError(t, err)

	require.Len(t, got, 1)
	_, ok := got[split[1]]
	assert.False(t, ok, "the surplus output must not leak into the result")
}

func TestRunInputContract(t *testing.T) {
	s, x, _ := planChain(t, 1.0)
	good := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})

	t.Run("missing binding", func(t *testing.T) {
		_, err := eval.Run(context.Background(), s, nil, eval.Options{})
		require.ErrorIs(t, err, eval.ErrSchemaMismatch)
		var mismatch *eval.SchemaMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, "x", mismatch.Node)
		assert.Contains(t, mismatch.Reason, "no dataset bound")
	})

	t.Run("nil dataset", func(t *testing.T) {
		_, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: nil}, eval.Options{})
		require.ErrorIs(t, err, eval.ErrSchemaMismatch)
	})

	t.Run("unexpected binding", func(t *testing.T) {
		inputs := map[graph.NodeID]*eventset.EventSet{x: good, 99: good}
		_, err := eval.Run(context.Background(), s, inputs, eval.Options{})
		require.ErrorIs(t, err, eval.ErrSchemaMismatch)
		var mismatch *eval.SchemaMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, graph.NodeID(99), mismatch.NodeID)
		assert.Contains(t, mismatch.Reason, "not an input")
	})

	t.Run("schema disagreement", func(t *testing.T) {
		bad := testutil.FlatEventSet(testutil.FloatSchema("other"), []float64{0}, []float64{1})
		_, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: bad}, eval.Options{})
		require.ErrorIs(t, err, eval.ErrSchemaMismatch)
		var mismatch *eval.SchemaMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Contains(t, mismatch.Reason, "does not match")
	})
}

func TestRunKernelFailure(t *testing.T) {
	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	out, err := g.AddOperator("FAIL", []graph.NodeID{x}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, out, []graph.NodeID{x})
	require.NoError(t, err)
	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})

	for _, workers := range []int{1, 4} {
		_, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{Workers: workers})
		require.Error(t, err)
		assert.ErrorIs(t, err, testutil.ErrKernelFailure)

		var opErr *eval.OperatorError
		require.ErrorAs(t, err, &opErr)
		assert.Equal(t, 0, opErr.Step)
		assert.Equal(t, "FAIL:0", opErr.Op)
	}
}

func TestRunFailureSkipsDownstream(t *testing.T) {
	defer goleak.VerifyNone(t)

	var passRuns atomic.Int32
	reg := registry.New()
	reg.RegisterKind(testutil.FailKind{})
	reg.RegisterKernel("FAIL", registry.KernelFunc(func(_ context.Context, _ []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		return nil, testutil.ErrKernelFailure
	}))
	reg.RegisterKind(testutil.PassKind{})
	reg.RegisterKernel("PASS", registry.KernelFunc(func(_ context.Context, in []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		passRuns.Add(1)
		return []*eventset.EventSet{in[0]}, nil
	}))
	require.NoError(t, reg.Validate())

	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	mid, err := g.AddOperator("FAIL", []graph.NodeID{x}, nil)
	require.NoError(t, err)
	out, err := g.AddOperator("PASS", []graph.NodeID{mid[0]}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, out, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})
	_, err = eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{Workers: 2})

	require.ErrorIs(t, err, testutil.ErrKernelFailure)
	assert.Zero(t, passRuns.Load(), "downstream of a failed step must not run")
}

func TestRunConcurrentStepsOverlap(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New()
	sleeper := testutil.NewSleeperModule(60 * time.Millisecond)
	sleeper.Register(reg)
	require.NoError(t, reg.Validate())

	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	first, err := g.AddOperator("SLEEP", []graph.NodeID{x}, opdef.Attributes{"id": opdef.StringValue("a")})
	require.NoError(t, err)
	second, err := g.AddOperator("SLEEP", []graph.NodeID{x}, opdef.Attributes{"id": opdef.StringValue("b")})
	require.NoError(t, err)
	s, err := schedule.Build(g, []graph.NodeID{first[0], second[0]}, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})
	_, err = eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{Workers: 2})
	require.NoError(t, err)

	recA, ok := sleeper.Record("a")
	require.True(t, ok)
	recB, ok := sleeper.Record("b")
	require.True(t, ok)
	assert.True(t, recA.Start.Before(recB.End) && recB.Start.Before(recA.End),
		"independent steps should execute concurrently, got %v/%v and %v/%v",
		recA.Start, recA.End, recB.Start, recB.End)
}

func TestRunConcurrentMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	g := graph.New(testutil.StubRegistry())
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	base, err := g.AddOperator("ADD_CONST", []graph.NodeID{x}, opdef.Attributes{"value": opdef.FloatValue(1)})
	require.NoError(t, err)
	split, err := g.AddOperator("SPLIT", []graph.NodeID{base[0]}, nil)
	require.NoError(t, err)
	left, err := g.AddOperator("ADD_CONST", []graph.NodeID{split[0]}, opdef.Attributes{"value": opdef.FloatValue(10)})
	require.NoError(t, err)
	right, err := g.AddOperator("ADD_CONST", []graph.NodeID{split[1]}, opdef.Attributes{"value": opdef.FloatValue(100)})
	require.NoError(t, err)
	merged, err := g.AddOperator("COMBINE", []graph.NodeID{left[0], right[0]}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, merged, []graph.NodeID{x})
	require.NoError(t, err)

	newInput := func() map[graph.NodeID]*eventset.EventSet {
		return map[graph.NodeID]*eventset.EventSet{
			x: testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0, 1}, []float64{1, 2}),
		}
	}

	seq, err := eval.Run(context.Background(), s, newInput(), eval.Options{Workers: 1})
	require.NoError(t, err)
	par, err := eval.Run(context.Background(), s, newInput(), eval.Options{Workers: 4})
	require.NoError(t, err)

	assert.Equal(t, []float64{114, 116}, testutil.FlatBucket(seq[merged[0]]).Column(0).Float64s())
	assert.True(t, seq[merged[0]].Equal(par[merged[0]]))
}

func TestRunCanceledContext(t *testing.T) {
	defer goleak.VerifyNone(t)

	s, x, _ := planChain(t, 1.0)
	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, workers := range []int{1, 4} {
		_, err := eval.Run(ctx, s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{Workers: workers})
		assert.ErrorIs(t, err, context.Canceled)
	}
}

func TestRunKernelPanicRecovered(t *testing.T) {
	defer goleak.VerifyNone(t)

	reg := registry.New()
	reg.RegisterKind(testutil.PassKind{})
	reg.RegisterKernel("PASS", registry.KernelFunc(func(_ context.Context, _ []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		panic("boom")
	}))
	require.NoError(t, reg.Validate())

	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	out, err := g.AddOperator("PASS", []graph.NodeID{x}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, out, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})
	for _, workers := range []int{1, 4} {
		_, err := eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{Workers: workers})
		var opErr *eval.OperatorError
		require.ErrorAs(t, err, &opErr)
		assert.Contains(t, opErr.Err.Error(), "panicked")
	}
}

func TestRunRejectsMisbehavingKernel(t *testing.T) {
	reg := registry.New()
	reg.RegisterKind(testutil.SplitKind{})
	reg.RegisterKernel("SPLIT", registry.KernelFunc(func(_ context.Context, in []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		return []*eventset.EventSet{in[0]}, nil
	}))
	require.NoError(t, reg.Validate())

	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	out, err := g.AddOperator("SPLIT", []graph.NodeID{x}, nil)
	require.NoError(t, err)
	s, err := schedule.Build(g, []graph.NodeID{out[0]}, []graph.NodeID{x})
	require.NoError(t, err)

	in := testutil.FlatEventSet(testutil.FloatSchema("v"), []float64{0}, []float64{1})
	_, err = eval.Run(context.Background(), s, map[graph.NodeID]*eventset.EventSet{x: in}, eval.Options{})

	var opErr *eval.OperatorError
	require.ErrorAs(t, err, &opErr)
	assert.Contains(t, opErr.Err.Error(), "declares 2 outputs")
}
