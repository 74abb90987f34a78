// Package join registers the JOIN operator kind: a left join of two
// inputs sharing the same index columns. Rows pair up on exact
// timestamp equality, plus equality of the int64 feature named by the
// optional "on" attribute. Unmatched left rows carry missing values for
// the right features; unmatched right rows are dropped.
package join

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the JOIN kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(joinKind{})
	r.RegisterKernel("JOIN", registry.KernelFunc(joinKernel))
}

type joinKind struct{}

func (joinKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "JOIN",
		Inputs:  []string{"left", "right"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "on", Type: opdef.TypeString, Optional: true}},
	}
}

func (joinKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	left, right := inputs[0], inputs[1]
	if !left.EqualIndexes(right) {
		return nil, &schema.SchemaError{Subject: "JOIN", Reason: "inputs have different index columns"}
	}
	if left.UnixTime() != right.UnixTime() {
		return nil, &schema.SchemaError{Subject: "JOIN", Reason: "inputs have different time units"}
	}
	on := attrs["on"].Str()
	if on != "" {
		for side, s := range map[string]*schema.Schema{"left": left, "right": right} {
			f, ok := s.FeatureByName(on)
			if !ok {
				return nil, &schema.SchemaError{Subject: "JOIN", Reason: fmt.Sprintf("%s input has no feature %q", side, on)}
			}
			if f.DType != schema.Int64 {
				return nil, &schema.SchemaError{
					Subject: "JOIN",
					Reason:  fmt.Sprintf("join feature %q on the %s input has dtype %s, expected int64", on, side, f.DType),
				}
			}
		}
	}
	features := left.Features()
	for _, f := range right.Features() {
		if f.Name == on {
			continue
		}
		features = append(features, f)
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
