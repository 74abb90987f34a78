package prefix

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
	"github.com/vk/eventflowgo/internal/testutil"
)

func TestRegister(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)
	require.NoError(t, r.Validate())
	assert.Equal(t, []string{"PREFIX"}, r.Keys())
}

func TestInferSchemas(t *testing.T) {
	t.Run("renames every feature", func(t *testing.T) {
		in := testutil.FloatSchema("price", "cost")
		out, err := prefixKind{}.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
			"prefix": opdef.StringValue("daily_"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"daily_price", "daily_cost"}, out[0].FeatureNames())
	})

	t.Run("stacked prefixes fuse", func(t *testing.T) {
		in := testutil.FloatSchema("price", "cost")
		inner, err := prefixKind{}.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
			"prefix": opdef.StringValue("a_"),
		})
		require.NoError(t, err)
		outer, err := prefixKind{}.InferSchemas(inner, opdef.Attributes{
			"prefix": opdef.StringValue("b_"),
		})
		require.NoError(t, err)
		fused, err := prefixKind{}.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
			"prefix": opdef.StringValue("b_a_"),
		})
		require.NoError(t, err)
		assert.True(t, outer[0].Equal(fused[0]))
		assert.Equal(t, []string{"b_a_price", "b_a_cost"}, outer[0].FeatureNames())
	})

	t.Run("collision with an index name rejected", func(t *testing.T) {
		in := schema.MustNew(
			[]schema.Feature{{Name: "x", DType: schema.Float64}},
			[]schema.Index{{Name: "px", DType: schema.String}},
		)
		_, err := prefixKind{}.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
			"prefix": opdef.StringValue("p"),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrSchema)
	})
}

func TestKernelSharesData(t *testing.T) {
	in := testutil.FlatEventSet(testutil.FloatSchema("price"), []float64{1, 2}, []float64{10, 20})
	out, err := prefixKernel(context.Background(), []*eventset.EventSet{in}, opdef.Attributes{
		"prefix": opdef.StringValue("p_"),
	})
	require.NoError(t, err)
	b := testutil.FlatBucket(out[0])
	assert.Equal(t, []string{"p_price"}, out[0].Schema().FeatureNames())
	assert.Same(t, testutil.FlatBucket(in).Column(0), b.Column(0))
}
