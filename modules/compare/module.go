// Package compare registers the element-wise comparison operator kinds
// EQUAL, GREATER and LESS. Features are paired by position like the
// arithmetic kinds, and every output feature is boolean. EQUAL accepts
// any matching dtype pair; GREATER and LESS require numeric features.
package compare

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the comparison kinds and kernels.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(compareKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

type op struct {
	key         string
	prefix      string
	numericOnly bool
	f           func(a, b float64) bool
	i           func(a, b int64) bool
	s           func(a, b string) bool
	b           func(a, b bool) bool
}

var ops = []op{
	{
		key:    "EQUAL",
		prefix: "eq",
		f:      func(a, b float64) bool { return a == b },
		i:      func(a, b int64) bool { return a == b },
		s:      func(a, b string) bool { return a == b },
		b:      func(a, b bool) bool { return a == b },
	},
	{
		key:         "GREATER",
		prefix:      "gt",
		numericOnly: true,
		f:           func(a, b float64) bool { return a > b },
		i:           func(a, b int64) bool { return a > b },
	},
	{
		key:         "LESS",
		prefix:      "lt",
		numericOnly: true,
		f:           func(a, b float64) bool { return a < b },
		i:           func(a, b int64) bool { return a < b },
	},
}

type compareKind struct {
	op op
}

func (k compareKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"left", "right"},
		Outputs: []string{"output"},
	}
}

func (k compareKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	left, right := inputs[0], inputs[1]
	if err := checkPairable(k.op.key, left, right); err != nil {
		return nil, err
	}
	rf := right.Features()
	features := make([]schema.Feature, left.NumFeatures())
	for i, f := range left.Features() {
		if k.op.numericOnly && !f.DType.IsNumeric() {
			return nil, &schema.SchemaError{
				Subject: k.op.key,
				Reason:  fmt.Sprintf("feature %q has dtype %s, expected a numeric type", f.Name, f.DType),
			}
		}
		features[i] = schema.Feature{
			Name:  k.op.prefix + "_" + f.Name + "_" + rf[i].Name,
			DType: schema.Bool,
		}
	}
	out, err := schema.New(features, left.Indexes())
	if err != nil {
		return nil, err
	}
	if left.UnixTime() {
		out = out.WithUnixTime()
	}
	return []*schema.Schema{out}, nil
}

func checkPairable(kind string, left, right *schema.Schema) error {
	if left.NumFeatures() != right.NumFeatures() {
		return &schema.SchemaError{
			Subject: kind,
			Reason:  fmt.Sprintf("left has %d features, right has %d", left.NumFeatures(), right.NumFeatures()),
		}
	}
	rf := right.Features()
	for i, f := range left.Features() {
		if f.DType != rf[i].DType {
			return &schema.SchemaError{
				Subject: kind,
				Reason:  fmt.Sprintf("features %q (%s) and %q (%s) have different dtypes", f.Name, f.DType, rf[i].Name, rf[i].DType),
			}
		}
	}
	if !left.EqualIndexes(right) {
		return &schema.SchemaError{Subject: kind, Reason: "inputs have different index columns"}
	}
	if left.UnixTime() != right.UnixTime() {
		return &schema.SchemaError{Subject: kind, Reason: "inputs have different time units"}
	}
	return nil
}
