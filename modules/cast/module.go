// Package cast registers the CAST operator kind: it converts every
// feature to the dtype named by the "dtype" attribute. Numeric casts
// truncate toward zero, booleans map to 0 and 1, and string conversions
// go through the usual decimal formats. Casting between string and bool
// is rejected at schema inference.
package cast

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the CAST kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(castKind{})
	r.RegisterKernel("CAST", registry.KernelFunc(castKernel))
}

type castKind struct{}

func (castKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "CAST",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "dtype", Type: opdef.TypeDType}},
	}
}

func (castKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	target := attrs["dtype"].DType()
	features := make([]schema.Feature, in.NumFeatures())
	for i, f := range in.Features() {
		if !castable(f.DType, target) {
			return nil, &schema.SchemaError{
				Subject: "CAST",
				Reason:  fmt.Sprintf("feature %q cannot be cast from %s to %s", f.Name, f.DType, target),
			}
		}
		features[i] = schema.Feature{Name: f.Name, DType: target}
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

// castable rejects only the string/bool pairings.
func castable(from, to schema.DType) bool {
	if from == schema.String && to == schema.Bool {
		return false
	}
	if from == schema.Bool && to == schema.String {
		return false
	}
	return true
}
