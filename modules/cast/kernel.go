package cast

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

func castKernel(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	target := attrs["dtype"].DType()
	in := inputs[0]
	outSchema, err := castKind{}.InferSchemas([]*schema.Schema{in.Schema()}, attrs)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])
	names := in.Schema().FeatureNames()
	for _, b := range in.Buckets() {
		ob := out.GetOrCreateBucket(b.Key)
		ob.Timestamps = b.Timestamps
		for i := range b.Columns {
			col, err := castColumn(names[i], b.Column(i), target)
			if err != nil {
				return nil, err
			}
			ob.Columns[i] = col
		}
	}
	return []*eventset.EventSet{out}, nil
}

// castColumn converts one column to the target dtype. A column already
// of the target dtype is shared, not copied.
func castColumn(name string, col *eventset.Column, to schema.DType) (*eventset.Column, error) {
	if col.DType() == to {
		return col, nil
	}
	n := col.Len()
	switch to {
	case schema.Float64:
		vals := make([]float64, n)
		for i := 0; i < n; i++ {
			v, err := floatAt(name, col, i)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return eventset.Float64Column(vals), nil
	case schema.Float32:
		vals := make([]float32, n)
		for i := 0; i < n; i++ {
			v, err := floatAt(name, col, i)
			if err != nil {
				return nil, err
			}
			vals[i] = float32(v)
		}
		return eventset.Float32Column(vals), nil
	case schema.Int64:
		vals := make([]int64, n)
		for i := 0; i < n; i++ {
			v, err := intAt(name, col, i)
			if err != nil {
				return nil, err
			}
			vals[i] = v
		}
		return eventset.Int64Column(vals), nil
	case schema.Int32:
		vals := make([]int32, n)
		for i := 0; i < n; i++ {
			v, err := intAt(name, col, i)
			if err != nil {
				return nil, err
			}
			vals[i] = int32(v)
		}
		return eventset.Int32Column(vals), nil
	case schema.String:
		vals := make([]string, n)
		for i := 0; i < n; i++ {
			vals[i] = stringAt(col, i)
		}
		return eventset.StringColumn(vals), nil
	case schema.Bool:
		vals := make([]bool, n)
		for i := 0; i < n; i++ {
			vals[i] = boolAt(col, i)
		}
		return eventset.BoolColumn(vals), nil
	}
	return nil, fmt.Errorf("CAST: unsupported target dtype %s", to)
}

func floatAt(name string, col *eventset.Column, i int) (float64, error) {
	switch col.DType() {
	case schema.Float64:
		return col.Float64s()[i], nil
	case schema.Float32:
		return float64(col.Float32s()[i]), nil
	case schema.Int64:
		return float64(col.Int64s()[i]), nil
	case schema.Int32:
		return float64(col.Int32s()[i]), nil
	case schema.Bool:
		if col.Bools()[i] {
			return 1, nil
		}
		return 0, nil
	case schema.String:
		s := col.Strings()[i]
		if s == "" {
			return math.NaN(), nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("CAST: feature %q: cannot parse %q as a float", name, s)
		}
		return v, nil
	}
	return 0, fmt.Errorf("CAST: feature %q has unsupported dtype %s", name, col.DType())
}

func intAt(name string, col *eventset.Column, i int) (int64, error) {
	switch col.DType() {
	case schema.Float64:
		return truncate(col.Float64s()[i]), nil
	case schema.Float32:
		return truncate(float64(col.Float32s()[i])), nil
	case schema.Int64:
		return col.Int64s()[i], nil
	case schema.Int32:
		return int64(col.Int32s()[i]), nil
	case schema.Bool:
		if col.Bools()[i] {
			return 1, nil
		}
		return 0, nil
	case schema.String:
		s := col.Strings()[i]
		if s == "" {
			return 0, nil
		}
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("CAST: feature %q: cannot parse %q as an integer", name, s)
		}
		return v, nil
	}
	return 0, fmt.Errorf("CAST: feature %q has unsupported dtype %s", name, col.DType())
}

// truncate rounds toward zero. NaN maps to 0 and infinities clamp to the
// int64 range; the plain conversion is undefined for those values.
func truncate(v float64) int64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt64:
		return math.MaxInt64
	case v <= math.MinInt64:
		return math.MinInt64
	}
	return int64(v)
}

func stringAt(col *eventset.Column, i int) string {
	switch col.DType() {
	case schema.Float64:
		return strconv.FormatFloat(col.Float64s()[i], 'g', -1, 64)
	case schema.Float32:
		return strconv.FormatFloat(float64(col.Float32s()[i]), 'g', -1, 32)
	case schema.Int64:
		return strconv.FormatInt(col.Int64s()[i], 10)
	case schema.Int32:
		return strconv.FormatInt(int64(col.Int32s()[i]), 10)
	}
	return col.Strings()[i]
}

func boolAt(col *eventset.Column, i int) bool {
	switch col.DType() {
	case schema.Float64:
		return col.Float64s()[i] != 0
	case schema.Float32:
		return col.Float32s()[i] != 0
	case schema.Int64:
		return col.Int64s()[i] != 0
	case schema.Int32:
		return col.Int32s()[i] != 0
	}
	return col.Bools()[i]
}
