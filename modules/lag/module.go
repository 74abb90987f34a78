// Package lag registers the LAG and LEAK operator kinds: pure timestamp
// shifts that move every event forward (LAG) or backward (LEAK) by a
// fixed duration, leaving features and indexes untouched.
package lag

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the LAG and LEAK kinds and kernels.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(shiftKind{key: "LAG", sign: 1})
	r.RegisterKernel("LAG", registry.KernelFunc(shiftKernel(1)))
	r.RegisterKind(shiftKind{key: "LEAK", sign: -1})
	r.RegisterKernel("LEAK", registry.KernelFunc(shiftKernel(-1)))
}

// shiftKind covers both directions; sign is +1 for LAG, -1 for LEAK.
type shiftKind struct {
	key  string
	sign float64
}

func (k shiftKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.key,
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "duration", Type: opdef.TypeDuration}},
	}
}

func (k shiftKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	if attrs["duration"].Duration() <= 0 {
		return nil, &opdef.AttrError{Kind: k.key, Attr: "duration", Reason: "must be positive"}
	}
	return []*schema.Schema{inputs[0]}, nil
}

func shiftKernel(sign float64) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
		shift := sign * attrs["duration"].Duration().Seconds()
		in := inputs[0]
		out := eventset.New(in.Schema())
		for _, b := range in.Buckets() {
			ob := out.GetOrCreateBucket(b.Key)
			ob.Timestamps = make([]float64, len(b.Timestamps))
			for i, ts := range b.Timestamps {
				ob.Timestamps[i] = ts + shift
			}
			copy(ob.Columns, b.Columns)
		}
		return []*eventset.EventSet{out}, nil
	}
}
