package runfile

import (
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/schema"
)

// ConvertAttrs evaluates raw override attributes against an operator
// definition, producing typed attribute values. Expressions must be
// literals; there is no evaluation context. Attribute names the
// definition does not declare are rejected.
func ConvertAttrs(attrs hcl.Attributes, def opdef.Definition) (opdef.Attributes, error) {
	out := make(opdef.Attributes, len(attrs))
	for name, attr := range attrs {
		spec, ok := def.AttrSpec(name)
		if !ok {
			return nil, &opdef.AttrError{Kind: def.Key, Attr: name, Reason: "unknown attribute"}
		}
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %q: %w", name, diags)
		}
		v, err := convertValue(val, spec.Type)
		if err != nil {
			return nil, &opdef.AttrError{Kind: def.Key, Attr: name, Reason: err.Error()}
		}
		out[name] = v
	}
	return out, nil
}

func convertValue(val cty.Value, t opdef.AttrType) (opdef.Value, error) {
	switch t {
	case opdef.TypeString:
		var s string
		if err := gocty.FromCtyValue(val, &s); err != nil {
			return opdef.Value{}, err
		}
		return opdef.StringValue(s), nil
	case opdef.TypeInt:
		var n int64
		if err := gocty.FromCtyValue(val, &n); err != nil {
			return opdef.Value{}, err
		}
		return opdef.IntValue(n), nil
	case opdef.TypeFloat:
		var f float64
		if err := gocty.FromCtyValue(val, &f); err != nil {
			return opdef.Value{}, err
		}
		return opdef.FloatValue(f), nil
	case opdef.TypeBool:
		var b bool
		if err := gocty.FromCtyValue(val, &b); err != nil {
			return opdef.Value{}, err
		}
		return opdef.BoolValue(b), nil
	case opdef.TypeDuration:
		var s string
		if err := gocty.FromCtyValue(val, &s); err != nil {
			return opdef.Value{}, err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return opdef.Value{}, err
		}
		return opdef.DurationValue(d), nil
	case opdef.TypeStrings:
		// HCL list literals come through as tuples, so convert first.
		listVal, err := convert.Convert(val, cty.List(cty.String))
		if err != nil {
			return opdef.Value{}, err
		}
		var ss []string
		for it := listVal.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			ss = append(ss, ev.AsString())
		}
		return opdef.StringsValue(ss...), nil
	case opdef.TypeDType:
		var s string
		if err := gocty.FromCtyValue(val, &s); err != nil {
			return opdef.Value{}, err
		}
		dt, err := schema.ParseDType(s)
		if err != nil {
			return opdef.Value{}, err
		}
		return opdef.DTypeValue(dt), nil
	}
	return opdef.Value{}, fmt.Errorf("unsupported attribute type %v", t)
}
