package glue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
	"github.com/vk/eventflowgo/internal/testutil"
)

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"GLUE"}, r.Keys())
}

func TestInferSchemas(t *testing.T) {
	t.Run("features concatenate", func(t *testing.T) {
		left := testutil.FloatSchema("a", "b")
		right := testutil.FloatSchema("c")
		out, err := glueKind{}.InferSchemas([]*schema.Schema{left, right}, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c"}, out[0].FeatureNames())
	})

	t.Run("name collision rejected", func(t *testing.T) {
		left := testutil.FloatSchema("a")
		right := testutil.FloatSchema("a")
		_, err := glueKind{}.InferSchemas([]*schema.Schema{left, right}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrSchema)
		assert.Contains(t, err.Error(), "duplicate feature name")
	})

	t.Run("index mismatch rejected", func(t *testing.T) {
		left := testutil.FloatSchema("a")
		right := schema.MustNew(
			[]schema.Feature{{Name: "b", DType: schema.Float64}},
			[]schema.Index{{Name: "store", DType: schema.String}},
		)
		_, err := glueKind{}.InferSchemas([]*schema.Schema{left, right}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different index columns")
	})
}

func TestKernelConcatenatesColumns(t *testing.T) {
	left := testutil.FlatEventSet(testutil.FloatSchema("a"), []float64{1, 2}, []float64{10, 20})
	right := testutil.FlatEventSet(testutil.FloatSchema("b"), []float64{1, 2}, []float64{100, 200})

	out, err := glueKernel(context.Background(), []*eventset.EventSet{left, right}, nil)
	require.NoError(t, err)
	b := testutil.FlatBucket(out[0])
	assert.Equal(t, []float64{1, 2}, b.Timestamps)
	assert.Equal(t, []float64{10, 20}, b.Column(0).Float64s())
	assert.Equal(t, []float64{100, 200}, b.Column(1).Float64s())
}

func TestKernelRequiresIdenticalTimestamps(t *testing.T) {
	left := testutil.FlatEventSet(testutil.FloatSchema("a"), []float64{1, 2}, []float64{10, 20})
	right := testutil.FlatEventSet(testutil.FloatSchema("b"), []float64{1, 3}, []float64{100, 200})

	_, err := glueKernel(context.Background(), []*eventset.EventSet{left, right}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "different timestamps")
}
