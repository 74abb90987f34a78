// Package unary registers the single-input element-wise operator kinds:
// ABS and LOG on float features, INVERT on boolean features, and ISNAN
// and NOTNAN turning float features into booleans. Feature names are
// preserved.
package unary

import (
	"fmt"
	"math"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers every unary kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(unaryKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

// op describes one unary kind. Float kinds set apply (and test when the
// output is boolean); INVERT sets flip instead and works on booleans.
type op struct {
	key   string
	apply func(v float64) float64
	test  func(v float64) bool
	flip  bool
}

var ops = []op{
	{key: "ABS", apply: math.Abs},
	{key: "LOG", apply: math.Log},
	{key: "INVERT", flip: true},
	{key: "ISNAN", test: math.IsNaN},
	{key: "NOTNAN", test: func(v float64) bool { return !math.IsNaN(v) }},
}

type unaryKind struct {
	op op
}

func (k unaryKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
	}
}

func (k unaryKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	features := make([]schema.Feature, in.NumFeatures())
	for i, f := range in.Features() {
		if k.op.flip {
			if f.DType != schema.Bool {
				return nil, &schema.SchemaError{
					Subject: k.op.key,
					Reason:  fmt.Sprintf("feature %q has dtype %s, expected bool", f.Name, f.DType),
				}
			}
		} else if !f.DType.IsFloat() {
			return nil, &schema.SchemaError{
				Subject: k.op.key,
				Reason:  fmt.Sprintf("feature %q has dtype %s, expected a float type", f.Name, f.DType),
			}
		}
		features[i] = f
		if k.op.test != nil {
			features[i].DType = schema.Bool
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
