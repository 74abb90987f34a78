package compare

import (
	"context"
	"fmt"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

func kernel(o op) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		left, right := inputs[0], inputs[1]
		outSchema, err := compareKind{op: o}.InferSchemas([]*schema.Schema{left.Schema(), right.Schema()}, nil)
		if err != nil {
			return nil, err
		}
		out := eventset.New(outSchema[0])
		if left.NumBuckets() != right.NumBuckets() {
			return nil, fmt.Errorf("%s: left has %d index keys, right has %d", o.key, left.NumBuckets(), right.NumBuckets())
		}
		for _, lb := range left.Buckets() {
			rb, ok := right.Bucket(lb.Key)
			if !ok {
				return nil, fmt.Errorf("%s: right input is missing index key [%s]", o.key, keyString(lb.Key))
			}
			if !sameTimestamps(lb.Timestamps, rb.Timestamps) {
				return nil, fmt.Errorf("%s: inputs have different timestamps for index key [%s]", o.key, keyString(lb.Key))
			}
			ob := out.GetOrCreateBucket(lb.Key)
			ob.Timestamps = append([]float64(nil), lb.Timestamps...)
			for i := range lb.Columns {
				ob.Columns[i] = compareColumn(o, lb.Column(i), rb.Column(i))
			}
		}
		return []*eventset.EventSet{out}, nil
	}
}

func compareColumn(o op, left, right *eventset.Column) *eventset.Column {
	vals := make([]bool, left.Len())
	switch left.DType() {
	case schema.Float64:
		a, b := left.Float64s(), right.Float64s()
		for i := range a {
			vals[i] = o.f(a[i], b[i])
		}
	case schema.Float32:
		a, b := left.Float32s(), right.Float32s()
		for i := range a {
			vals[i] = o.f(float64(a[i]), float64(b[i]))
		}
	case schema.Int64:
		a, b := left.Int64s(), right.Int64s()
		for i := range a {
			vals[i] = o.i(a[i], b[i])
		}
	case schema.Int32:
		a, b := left.Int32s(), right.Int32s()
		for i := range a {
			vals[i] = o.i(int64(a[i]), int64(b[i]))
		}
	case schema.String:
		a, b := left.Strings(), right.Strings()
		for i := range a {
			vals[i] = o.s(a[i], b[i])
		}
	case schema.Bool:
		a, b := left.Bools(), right.Bools()
		for i := range a {
			vals[i] = o.b(a[i], b[i])
		}
	}
	return eventset.BoolColumn(vals)
}

func sameTimestamps(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func keyString(key []eventset.KeyValue) string {
	s := ""
	for i, kv := range key {
		if i > 0 {
			s += ", "
		}
		s += kv.String()
	}
	return s
}
