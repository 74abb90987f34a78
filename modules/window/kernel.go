package window

import (
	"context"
	"math"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

func kernel(o op) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
		w := attrs["window_length"].Duration().Seconds()
		in := inputs[0]
		outSchema, err := windowKind{op: o}.InferSchemas([]*schema.Schema{in.Schema()}, attrs)
		if err != nil {
			return nil, err
		}
		out := eventset.New(outSchema[0])
		for _, b := range in.Buckets() {
			ob := out.GetOrCreateBucket(b.Key)
			ob.Timestamps = append([]float64(nil), b.Timestamps...)
			for i := range b.Columns {
				if o.counting {
					ob.Columns[i] = countColumn(b.Timestamps, b.Column(i), w)
				} else {
					ob.Columns[i] = aggregateColumn(o, b.Timestamps, b.Column(i), w)
				}
			}
		}
		return []*eventset.EventSet{out}, nil
	}
}

// aggregateColumn slides the trailing window over one float column with
// two pointers, keeping a running sum and a running count of non-NaN
// values. The aggregate of an empty window is agg(0, 0), which is 0 for
// the sum and NaN for the average.
func aggregateColumn(o op, ts []float64, col *eventset.Column, w float64) *eventset.Column {
	read := floatReader(col)
	vals := make([]float64, len(ts))
	sum, n, lo := 0.0, 0, 0
	for i := range ts {
		if v := read(i); !math.IsNaN(v) {
			sum += v
			n++
		}
		for ts[lo] <= ts[i]-w {
			if v := read(lo); !math.IsNaN(v) {
				sum -= v
				n--
			}
			lo++
		}
		if n == 0 {
			vals[i] = o.agg(0, 0)
		} else {
			vals[i] = o.agg(sum, n)
		}
	}
	if col.DType() == schema.Float32 {
		out := make([]float32, len(vals))
		for i, v := range vals {
			out[i] = float32(v)
		}
		return eventset.Float32Column(out)
	}
	return eventset.Float64Column(vals)
}

// countColumn counts the window's non-NaN values for float columns and
// all of its events for every other dtype.
func countColumn(ts []float64, col *eventset.Column, w float64) *eventset.Column {
	vals := make([]int32, len(ts))
	if col.DType().IsFloat() {
		read := floatReader(col)
		n, lo := 0, 0
		for i := range ts {
			if !math.IsNaN(read(i)) {
				n++
			}
			for ts[lo] <= ts[i]-w {
				if !math.IsNaN(read(lo)) {
					n--
				}
				lo++
			}
			vals[i] = int32(n)
		}
		return eventset.Int32Column(vals)
	}
	lo := 0
	for i := range ts {
		for ts[lo] <= ts[i]-w {
			lo++
		}
		vals[i] = int32(i - lo + 1)
	}
	return eventset.Int32Column(vals)
}

func floatReader(col *eventset.Column) func(i int) float64 {
	if col.DType() == schema.Float32 {
		vals := col.Float32s()
		return func(i int) float64 { return float64(vals[i]) }
	}
	vals := col.Float64s()
	return func(i int) float64 { return vals[i] }
}
