// Package prefix registers the PREFIX operator kind: it renames every
// feature to the "prefix" attribute followed by the original name. Data
// is untouched, so the kernel can share the input's columns.
package prefix

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the PREFIX kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(prefixKind{})
	r.RegisterKernel("PREFIX", registry.KernelFunc(prefixKernel))
}

type prefixKind struct{}

func (prefixKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "PREFIX",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "prefix", Type: opdef.TypeString}},
	}
}

func (prefixKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	p := attrs["prefix"].Str()
	features := make([]schema.Feature, in.NumFeatures())
	for i, f := range in.Features() {
		features[i] = schema.Feature{Name: p + f.Name, DType: f.DType}
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

func prefixKernel(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	in := inputs[0]
	outSchema, err := prefixKind{}.InferSchemas([]*schema.Schema{in.Schema()}, attrs)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])
	for _, b := range in.Buckets() {
		ob := out.GetOrCreateBucket(b.Key)
		ob.Timestamps = b.Timestamps
		copy(ob.Columns, b.Columns)
	}
	return []*eventset.EventSet{out}, nil
}
