package scalar

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

func kernel(o op) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
		k := attrs["value"].Float()
		in := inputs[0]
		outSchema, err := scalarKind{op: o}.InferSchemas([]*schema.Schema{in.Schema()}, attrs)
		if err != nil {
			return nil, err
		}
		out := eventset.New(outSchema[0])
		for _, b := range in.Buckets() {
			ob := out.GetOrCreateBucket(b.Key)
			ob.Timestamps = append([]float64(nil), b.Timestamps...)
			for i := range b.Columns {
				ob.Columns[i] = scalarColumn(o, b.Column(i), k)
			}
		}
		return []*eventset.EventSet{out}, nil
	}
}

func scalarColumn(o op, col *eventset.Column, k float64) *eventset.Column {
	if o.test != nil {
		vals := make([]bool, col.Len())
		switch col.DType() {
		case schema.Float64:
			for i, v := range col.Float64s() {
				vals[i] = o.test(v, k)
			}
		case schema.Float32:
			for i, v := range col.Float32s() {
				vals[i] = o.test(float64(v), k)
			}
		}
		return eventset.BoolColumn(vals)
	}
	switch col.DType() {
	case schema.Float32:
		vals := make([]float32, col.Len())
		for i, v := range col.Float32s() {
			vals[i] = float32(o.apply(float64(v), k))
		}
		return eventset.Float32Column(vals)
	default:
		vals := make([]float64, col.Len())
		for i, v := range col.Float64s() {
			vals[i] = o.apply(v, k)
		}
		return eventset.Float64Column(vals)
	}
}
