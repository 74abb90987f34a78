// Package scalar registers the operator kinds that combine every float
// feature with one constant: ADDITION_SCALAR, SUBTRACTION_SCALAR,
// MULTIPLICATION_SCALAR, DIVISION_SCALAR, POWER_SCALAR and the boolean
// producing GREATER_SCALAR, LESS_SCALAR and EQUAL_SCALAR. The constant
// is the "value" attribute. Feature names are preserved; non-float
// features must be cast first.
package scalar

import (
	"fmt"
	"math"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers every scalar kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(scalarKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

// op describes one scalar kind. Exactly one of apply and test is set:
// apply keeps the feature dtype, test turns it into a boolean.
type op struct {
	key   string
	apply func(v, k float64) float64
	test  func(v, k float64) bool
}

var ops = []op{
	{key: "ADDITION_SCALAR", apply: func(v, k float64) float64 { return v + k }},
	{key: "SUBTRACTION_SCALAR", apply: func(v, k float64) float64 { return v - k }},
	{key: "MULTIPLICATION_SCALAR", apply: func(v, k float64) float64 { return v * k }},
	{key: "DIVISION_SCALAR", apply: func(v, k float64) float64 { return v / k }},
	{key: "POWER_SCALAR", apply: math.Pow},
	{key: "GREATER_SCALAR", test: func(v, k float64) bool { return v > k }},
	{key: "LESS_SCALAR", test: func(v, k float64) bool { return v < k }},
	{key: "EQUAL_SCALAR", test: func(v, k float64) bool { return v == k }},
}

type scalarKind struct {
	op op
}

func (k scalarKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "value", Type: opdef.TypeFloat}},
	}
}

func (k scalarKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	features := make([]schema.Feature, in.NumFeatures())
	for i, f := range in.Features() {
		if !f.DType.IsFloat() {
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
