// Package reindex registers the SET_INDEX operator kind: it moves the
// feature columns named by the "features" attribute into the index,
// regrouping every event under its new key. With "append" set the
// existing index columns stay in front of the new ones; otherwise they
// are discarded. Only int64, int32 and string features can become index
// columns.
package reindex

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the SET_INDEX kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(setIndexKind{})
	r.RegisterKernel("SET_INDEX", registry.KernelFunc(setIndexKernel))
}

type setIndexKind struct{}

func (setIndexKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "SET_INDEX",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs: []opdef.AttrSpec{
			{Name: "features", Type: opdef.TypeStrings},
			{Name: "append", Type: opdef.TypeBool, Optional: true},
		},
	}
}

func (setIndexKind) InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	names := attrs["features"].Strings()
	if len(names) == 0 {
		return nil, &opdef.AttrError{Kind: "SET_INDEX", Attr: "features", Reason: "must name at least one feature"}
	}
	seen := make(map[string]struct{}, len(names))
	indexes := in.Indexes()
	if !attrs["append"].Bool() {
		indexes = nil
	}
	for _, name := range names {
		if _, dup := seen[name]; dup {
			return nil, &opdef.AttrError{Kind: "SET_INDEX", Attr: "features", Reason: fmt.Sprintf("feature %q named twice", name)}
		}
		seen[name] = struct{}{}
		f, ok := in.FeatureByName(name)
		if !ok {
			return nil, &schema.SchemaError{Subject: "SET_INDEX", Reason: fmt.Sprintf("input has no feature %q", name)}
		}
		if !f.DType.ValidIndex() {
			return nil, &schema.SchemaError{
				Subject: "SET_INDEX",
				Reason:  fmt.Sprintf("feature %q has dtype %s, which cannot be an index column", name, f.DType),
			}
		}
		indexes = append(indexes, schema.Index{Name: f.Name, DType: f.DType})
	}
	var features []schema.Feature
	for _, f := range in.Features() {
		if _, moved := seen[f.Name]; !moved {
			features = append(features, f)
		}
	}
	out, err := schema.New(features, indexes)
	if err != nil {
		return nil, err
	}
	if in.UnixTime() {
		out = out.WithUnixTime()
	}
	return []*schema.Schema{out}, nil
}
