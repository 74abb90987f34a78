package lag

import (
	"context"
	"testing"
	"time"

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
	assert.Equal(t, []string{"LAG", "LEAK"}, r.Keys())
}

func TestInferSchemas(t *testing.T) {
	in := testutil.FloatSchema("price")

	t.Run("schema passes through", func(t *testing.T) {
		for _, key := range []string{"LAG", "LEAK"} {
			k := shiftKind{key: key}
			out, err := k.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
				"duration": opdef.DurationValue(time.Hour),
			})
			require.NoError(t, err, key)
			require.Len(t, out, 1)
			assert.True(t, out[0].Equal(in), key)
		}
	})

	t.Run("non-positive duration rejected", func(t *testing.T) {
		k := shiftKind{key: "LAG"}
		_, err := k.InferSchemas([]*schema.Schema{in}, opdef.Attributes{
			"duration": opdef.DurationValue(0),
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, opdef.ErrAttr)
	})
}

func TestKernelShiftsTimestamps(t *testing.T) {
	s := testutil.FloatSchema("price")
	in := testutil.FlatEventSet(s, []float64{1, 2, 3}, []float64{10, 20, 30})
	attrs := opdef.Attributes{"duration": opdef.DurationValue(90 * time.Second)}

	t.Run("LAG shifts forward", func(t *testing.T) {
		out, err := shiftKernel(1)(context.Background(), []*eventset.EventSet{in}, attrs)
		require.NoError(t, err)
		b := testutil.FlatBucket(out[0])
		assert.Equal(t, []float64{91, 92, 93}, b.Timestamps)
		assert.Equal(t, []float64{10, 20, 30}, b.Column(0).Float64s())
	})

	t.Run("LEAK shifts backward", func(t *testing.T) {
		out, err := shiftKernel(-1)(context.Background(), []*eventset.EventSet{in}, attrs)
		require.NoError(t, err)
		b := testutil.FlatBucket(out[0])
		assert.Equal(t, []float64{-89, -88, -87}, b.Timestamps)
	})

	t.Run("input untouched", func(t *testing.T) {
		assert.Equal(t, []float64{1, 2, 3}, testutil.FlatBucket(in).Timestamps)
	})
}

func TestKernelShiftsFuse(t *testing.T) {
	s := testutil.FloatSchema("price")
	in := testutil.FlatEventSet(s, []float64{1, 2, 3}, []float64{10, 20, 30})

	lag := func(es *eventset.EventSet, d time.Duration) *eventset.EventSet {
		out, err := shiftKernel(1)(context.Background(), []*eventset.EventSet{es},
			opdef.Attributes{"duration": opdef.DurationValue(d)})
		require.NoError(t, err)
		return out[0]
	}

	chained := lag(lag(in, 30*time.Second), time.Minute)
	fused := lag(in, 90*time.Second)
	assert.True(t, chained.Equal(fused))
	assert.True(t, chained.Schema().Equal(in.Schema()))
	assert.Equal(t, []float64{91, 92, 93}, testutil.FlatBucket(chained).Timestamps)
}
