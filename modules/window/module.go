// Package window registers the trailing-window aggregation kinds
// SIMPLE_MOVING_AVERAGE, MOVING_SUM and MOVING_COUNT. For each event at
// time t the aggregate covers the events of the same index key in
// (t - window_length, t]. NaN values are skipped. The average and sum
// require float features; the count accepts any dtype and emits int32.
package window

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the window kinds and kernels.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(windowKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

type op struct {
	key      string
	counting bool
	agg      func(sum float64, n int) float64
}

var ops = []op{
	{
		key: "SIMPLE_MOVING_AVERAGE",
		agg: func(sum float64, n int) float64 { return sum / float64(n) },
	},
	{
		key: "MOVING_SUM",
		agg: func(sum float64, _ int) float64 { return sum },
	},
	{
		key:      "MOVING_COUNT",
		counting: true,
	},
}

type windowKind struct {
	op op
}

func (k windowKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "window_length", Type: opdef.TypeDuration}},
	}
}

func (k windowKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	if attrs["window_length"].Duration() <= 0 {
		return nil, &opdef.AttrError{Kind: k.op.key, Attr: "window_length", Reason: "must be positive"}
	}
	in := inputs[0]
	features := make([]schema.Feature, in.NumFeatures())
	for i, f := range in.Features() {
		if !k.op.counting && !f.DType.IsFloat() {
			return nil, &schema.SchemaError{
				Subject: k.op.key,
				Reason:  fmt.Sprintf("feature %q has dtype %s, expected a float type", f.Name, f.DType),
			}
		}
		features[i] = f
		if k.op.counting {
			features[i].DType = schema.Int32
		}
	}
	out, err := schema.New(features, in.Indexes())
	if err != nil {
		return nil, err
	}
	if in.UnixTime() {
		out = out.WithUnixTime()
	}
	return []*schema.Schema{out}, nil
}
