package arith

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
	assert.Len(t, r.Keys(), 7)
	assert.Contains(t, r.Keys(), "ADDITION")
	assert.Contains(t, r.Keys(), "FLOORDIV")
}

func opByKey(t *testing.T, key string) op {
	t.Helper()
	for _, o := range ops {
		if o.key == key {
			return o
		}
	}
	t.Fatalf("no op %s", key)
	return op{}
}

func TestInferSchemas(t *testing.T) {
	left := testutil.FloatSchema("price")
	right := testutil.FloatSchema("cost")

	t.Run("output feature names carry the prefix", func(t *testing.T) {
		cases := map[string]string{
			"ADDITION":       "add_price_cost",
			"SUBTRACTION":    "sub_price_cost",
			"MULTIPLICATION": "mult_price_cost",
			"DIVISION":       "div_price_cost",
			"FLOORDIV":       "floordiv_price_cost",
			"MODULO":         "mod_price_cost",
			"POWER":          "pow_price_cost",
		}
		for key, want := range cases {
			k := binaryKind{op: opByKey(t, key)}
			out, err := k.InferSchemas([]*schema.Schema{left, right}, nil)
			require.NoError(t, err, key)
			require.Equal(t, 1, out[0].NumFeatures(), key)
			f := out[0].Features()[0]
			assert.Equal(t, want, f.Name, key)
			assert.Equal(t, schema.Float64, f.DType, key)
		}
	})

	t.Run("feature count mismatch", func(t *testing.T) {
		wide := testutil.FloatSchema("a", "b")
		_, err := binaryKind{op: opByKey(t, "ADDITION")}.InferSchemas([]*schema.Schema{left, wide}, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, schema.ErrSchema)
		assert.Contains(t, err.Error(), "left has 1 features, right has 2")
	})

	t.Run("dtype mismatch", func(t *testing.T) {
		ints := schema.MustNew([]schema.Feature{{Name: "cost", DType: schema.Int64}}, nil)
		_, err := binaryKind{op: opByKey(t, "ADDITION")}.InferSchemas([]*schema.Schema{left, ints}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different dtypes")
	})

	t.Run("non-numeric features rejected", func(t *testing.T) {
		strs := schema.MustNew([]schema.Feature{{Name: "tag", DType: schema.String}}, nil)
		_, err := binaryKind{op: opByKey(t, "ADDITION")}.InferSchemas([]*schema.Schema{strs, strs}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected a numeric type")
	})

	t.Run("division rejects integers", func(t *testing.T) {
		ints := schema.MustNew([]schema.Feature{{Name: "qty", DType: schema.Int64}}, nil)
		_, err := binaryKind{op: opByKey(t, "DIVISION")}.InferSchemas([]*schema.Schema{ints, ints}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "use FLOORDIV")

		out, err := binaryKind{op: opByKey(t, "FLOORDIV")}.InferSchemas([]*schema.Schema{ints, ints}, nil)
		require.NoError(t, err)
		assert.Equal(t, schema.Int64, out[0].Features()[0].DType)
	})

	t.Run("index mismatch", func(t *testing.T) {
		indexed := schema.MustNew(
			[]schema.Feature{{Name: "price", DType: schema.Float64}},
			[]schema.Index{{Name: "store", DType: schema.String}},
		)
		_, err := binaryKind{op: opByKey(t, "ADDITION")}.InferSchemas([]*schema.Schema{left, indexed}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different index columns")
	})
}

func TestKernelFloatValues(t *testing.T) {
	s := testutil.FloatSchema("v")
	left := testutil.FlatEventSet(s, []float64{1, 2}, []float64{7, -7})
	right := testutil.FlatEventSet(s, []float64{1, 2}, []float64{2, 2})

	cases := map[string][]float64{
		"ADDITION":       {9, -5},
		"SUBTRACTION":    {5, -9},
		"MULTIPLICATION": {14, -14},
		"DIVISION":       {3.5, -3.5},
		"FLOORDIV":       {3, -4},
		"MODULO":         {1, 1},
		"POWER":          {49, 49},
	}
	for key, want := range cases {
		t.Run(key, func(t *testing.T) {
			out, err := kernel(opByKey(t, key))(context.Background(), []*eventset.EventSet{left, right}, nil)
			require.NoError(t, err)
			got := testutil.FlatBucket(out[0]).Column(0).Float64s()
			assert.InDeltaSlice(t, want, got, 1e-9)
		})
	}
}

func TestKernelIntegerValues(t *testing.T) {
	s := schema.MustNew([]schema.Feature{{Name: "v", DType: schema.Int64}}, nil)
	newSet := func(vals []int64) *eventset.EventSet {
		es := eventset.New(s)
		b := es.GetOrCreateBucket(nil)
		b.Timestamps = []float64{1, 2, 3}
		b.Columns[0] = eventset.Int64Column(vals)
		return es
	}
	left := newSet([]int64{-7, 10, 5})
	right := newSet([]int64{2, 3, 0})

	cases := map[string][]int64{
		"ADDITION":       {-5, 13, 5},
		"SUBTRACTION":    {-9, 7, 5},
		"MULTIPLICATION": {-14, 30, 0},
		"FLOORDIV":       {-4, 3, 0},
		"MODULO":         {1, 1, 0},
		"POWER":          {49, 1000, 1},
	}
	for key, want := range cases {
		t.Run(key, func(t *testing.T) {
			out, err := kernel(opByKey(t, key))(context.Background(), []*eventset.EventSet{left, right}, nil)
			require.NoError(t, err)
			b, ok := out[0].Bucket(nil)
			require.True(t, ok)
			assert.Equal(t, want, b.Column(0).Int64s())
		})
	}
}

func TestKernelRejectsMisalignedInputs(t *testing.T) {
	s := testutil.FloatSchema("v")

	t.Run("different timestamps", func(t *testing.T) {
		left := testutil.FlatEventSet(s, []float64{1, 2}, []float64{1, 2})
		right := testutil.FlatEventSet(s, []float64{1, 3}, []float64{1, 2})
		_, err := kernel(opByKey(t, "ADDITION"))(context.Background(), []*eventset.EventSet{left, right}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "different timestamps")
	})

	t.Run("missing index key", func(t *testing.T) {
		indexed := schema.MustNew(
			[]schema.Feature{{Name: "v", DType: schema.Float64}},
			[]schema.Index{{Name: "store", DType: schema.String}},
		)
		left := eventset.New(indexed)
		lb := left.GetOrCreateBucket([]eventset.KeyValue{eventset.StrKey("NY")})
		lb.Timestamps = []float64{1}
		lb.Columns[0] = eventset.Float64Column([]float64{1})
		right := eventset.New(indexed)
		rb := right.GetOrCreateBucket([]eventset.KeyValue{eventset.StrKey("SF")})
		rb.Timestamps = []float64{1}
		rb.Columns[0] = eventset.Float64Column([]float64{1})

		_, err := kernel(opByKey(t, "ADDITION"))(context.Background(), []*eventset.EventSet{left, right}, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing index key")
	})
}
