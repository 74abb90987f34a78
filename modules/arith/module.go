// Package arith registers the feature-wise binary math operator kinds:
// ADDITION, SUBTRACTION, MULTIPLICATION, DIVISION, FLOORDIV, MODULO and
// POWER. Features are paired by position; both inputs must agree on
// feature count, per-position dtype, index columns and time unit.
package arith

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers every arithmetic kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(binaryKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

// op describes one arithmetic kind: its key, the prefix stamped onto
// output feature names, the per-dtype value functions, and whether
// integer features are rejected at schema inference.
type op struct {
	key        string
	prefix     string
	rejectInts bool
	f          func(a, b float64) float64
	i          func(a, b int64) int64
}

var ops = []op{
	{key: "ADDITION", prefix: "add", f: addF, i: addI},
	{key: "SUBTRACTION", prefix: "sub", f: subF, i: subI},
	{key: "MULTIPLICATION", prefix: "mult", f: multF, i: multI},
	{key: "DIVISION", prefix: "div", rejectInts: true, f: divF},
	{key: "FLOORDIV", prefix: "floordiv", f: floordivF, i: floordivI},
	{key: "MODULO", prefix: "mod", f: modF, i: modI},
	{key: "POWER", prefix: "pow", f: powF, i: powI},
}

type binaryKind struct {
	op op
}

func (k binaryKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"left", "right"},
		Outputs: []string{"output"},
	}
}

func (k binaryKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	left, right := inputs[0], inputs[1]
	if err := checkPairable(k.op.key, left, right); err != nil {
		return nil, err
	}
	rf := right.Features()
	features := make([]schema.Feature, left.NumFeatures())
	for i, f := range left.Features() {
		if !f.DType.IsNumeric() {
			return nil, &schema.SchemaError{
				Subject: k.op.key,
				Reason:  fmt.Sprintf("feature %q has dtype %s, expected a numeric type", f.Name, f.DType),
			}
		}
		if k.op.rejectInts && f.DType.IsInteger() {
			return nil, &schema.SchemaError{
				Subject: k.op.key,
				Reason:  fmt.Sprintf("feature %q has dtype %s; cast to a float type or use FLOORDIV", f.Name, f.DType),
			}
		}
		features[i] = schema.Feature{
			Name:  k.op.prefix + "_" + f.Name + "_" + rf[i].Name,
			DType: f.DType,
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

// checkPairable enforces the rules shared by every positional binary
// kind: equal feature counts, equal per-position dtypes, equal index
// columns and the same time unit.
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
