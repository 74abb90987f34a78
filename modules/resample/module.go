// Package resample registers the RESAMPLE operator kind: it re-emits the
// input's features at the sampling input's timestamps. For each sampling
// event the value is the input's last value at or before that time;
// sampling events before the input's first event get missing values.
package resample

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the RESAMPLE kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(resampleKind{})
	r.RegisterKernel("RESAMPLE", registry.KernelFunc(resampleKernel))
}

type resampleKind struct{}

func (resampleKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "RESAMPLE",
		Inputs:  []string{"input", "sampling"},
		Outputs: []string{"output"},
	}
}

func (resampleKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	in, sampling := inputs[0], inputs[1]
	if !in.EqualIndexes(sampling) {
		return nil, &schema.SchemaError{Subject: "RESAMPLE", Reason: "inputs have different index columns"}
	}
	if in.UnixTime() != sampling.UnixTime() {
		return nil, &schema.SchemaError{Subject: "RESAMPLE", Reason: "inputs have different time units"}
	}
	out, err := schema.New(in.Features(), in.Indexes())
	if err != nil {
		return nil, err
	}
	if sampling.UnixTime() {
		out = out.WithUnixTime()
	}
	return []*schema.Schema{out}, nil
}

// resampleKernel walks each sampling bucket with a cursor into the
// matching input bucket. Both timestamp arrays are ascending, so one
// forward pass per bucket suffices. Sampling keys absent from the input
// produce all-missing rows; input keys absent from the sampling are
// dropped.
func resampleKernel(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	in, sampling := inputs[0], inputs[1]
	outSchema, err := resampleKind{}.InferSchemas([]*schema.Schema{in.Schema(), sampling.Schema()}, nil)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])
	for _, sb := range sampling.Buckets() {
		ob := out.GetOrCreateBucket(sb.Key)
		ob.Timestamps = append([]float64(nil), sb.Timestamps...)
		ib, ok := in.Bucket(sb.Key)
		if !ok || ib.NumEvents() == 0 {
			for range sb.Timestamps {
				for _, col := range ob.Columns {
					col.AppendMissing()
				}
			}
			continue
		}
		cursor := -1
		for _, t := range sb.Timestamps {
			for cursor+1 < len(ib.Timestamps) && ib.Timestamps[cursor+1] <= t {
				cursor++
			}
			for c, col := range ob.Columns {
				if cursor < 0 {
					col.AppendMissing()
				} else {
					col.AppendFrom(ib.Column(c), cursor)
				}
			}
		}
	}
	return []*eventset.EventSet{out}, nil
}
