// Package opdef declares what an operator kind looks like from the
// outside: its registry key, its input and output ports, and the typed
// attributes it accepts. The graph layer validates operator construction
// against these definitions without knowing anything about kernels.
package opdef

import (
	"fmt"
	"strings"
	"time"

	"github.com/vk/eventflowgo/internal/schema"
)

// AttrType enumerates the types an operator attribute can carry.
type AttrType int

const (
	TypeString AttrType = iota
	TypeInt
	TypeFloat
	TypeBool
	TypeDuration
	TypeStrings
	TypeDType
)

// String returns the attribute type name used in error messages and
// serialized documents.
func (t AttrType) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	case TypeDuration:
		return "duration"
	case TypeStrings:
		return "strings"
	case TypeDType:
		return "dtype"
	default:
		return fmt.Sprintf("attrtype(%d)", int(t))
	}
}

// ParseAttrType maps a type name back to its AttrType.
func ParseAttrType(s string) (AttrType, error) {
	for _, t := range []AttrType{TypeString, TypeInt, TypeFloat, TypeBool, TypeDuration, TypeStrings, TypeDType} {
		if t.String() == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown attribute type %q", s)
}

// Value is one typed attribute value. The zero value is the empty string.
type Value struct {
	typ   AttrType
	str   string
	i     int64
	f     float64
	b     bool
	d     time.Duration
	strs  []string
	dtype schema.DType
}

// StringValue wraps a string attribute.
func StringValue(s string) Value { return Value{typ: TypeString, str: s} }

// IntValue wraps an int64 attribute.
func IntValue(i int64) Value { return Value{typ: TypeInt, i: i} }

// FloatValue wraps a float64 attribute.
func FloatValue(f float64) Value { return Value{typ: TypeFloat, f: f} }

// BoolValue wraps a bool attribute.
func BoolValue(b bool) Value { return Value{typ: TypeBool, b: b} }

// DurationValue wraps a time.Duration attribute.
func DurationValue(d time.Duration) Value { return Value{typ: TypeDuration, d: d} }

// StringsValue wraps a string list attribute.
func StringsValue(ss ...string) Value {
	return Value{typ: TypeStrings, strs: append([]string(nil), ss...)}
}

// DTypeValue wraps a schema dtype attribute.
func DTypeValue(d schema.DType) Value { return Value{typ: TypeDType, dtype: d} }

// Type returns the attribute type tag.
func (v Value) Type() AttrType { return v.typ }

// Str returns the string payload.
func (v Value) Str() string { return v.str }

// Int returns the int64 payload.
func (v Value) Int() int64 { return v.i }

// Float returns the float64 payload.
func (v Value) Float() float64 { return v.f }

// Bool returns the bool payload.
func (v Value) Bool() bool { return v.b }

// Duration returns the duration payload.
func (v Value) Duration() time.Duration { return v.d }

// Strings returns a copy of the string list payload.
func (v Value) Strings() []string { return append([]string(nil), v.strs...) }

// DType returns the dtype payload.
func (v Value) DType() schema.DType { return v.dtype }

// Equal reports whether two values have the same type and payload.
func (v Value) Equal(o Value) bool {
	if v.typ != o.typ {
		return false
	}
	switch v.typ {
	case TypeStrings:
		if len(v.strs) != len(o.strs) {
			return false
		}
		for i := range v.strs {
			if v.strs[i] != o.strs[i] {
				return false
			}
		}
		return true
	default:
		return v.str == o.str && v.i == o.i && v.f == o.f && v.b == o.b && v.d == o.d && v.dtype == o.dtype
	}
}

// String renders the value for logs and error messages.
func (v Value) String() string {
	switch v.typ {
	case TypeString:
		return fmt.Sprintf("%q", v.str)
	case TypeInt:
		return fmt.Sprintf("%d", v.i)
	case TypeFloat:
		return fmt.Sprintf("%g", v.f)
	case TypeBool:
		return fmt.Sprintf("%t", v.b)
	case TypeDuration:
		return v.d.String()
	case TypeStrings:
		return "[" + strings.Join(v.strs, ", ") + "]"
	case TypeDType:
		return v.dtype.String()
	default:
		return "<invalid>"
	}
}

// Attributes maps attribute names to values for one operator instance.
type Attributes map[string]Value

// Clone returns a shallow copy safe to mutate independently.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Equal reports whether two attribute maps hold the same names and values.
func (a Attributes) Equal(o Attributes) bool {
	if len(a) != len(o) {
		return false
	}
	for k, v := range a {
		ov, ok := o[k]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
