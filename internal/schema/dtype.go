// Package schema describes the shape of data flowing along one graph edge:
// an ordered list of named, typed features plus an ordered list of named,
// typed index columns. Schemas carry no data and are immutable once built.
package schema

import "fmt"

// DType enumerates the value types a feature or index column can hold.
type DType int

const (
	Float64 DType = iota
	Float32
	Int64
	Int32
	String
	Bool
)

var dtypeNames = map[DType]string{
	Float64: "float64",
	Float32: "float32",
	Int64:   "int64",
	Int32:   "int32",
	String:  "string",
	Bool:    "bool",
}

// String returns the canonical lowercase name of the dtype.
func (d DType) String() string {
	if name, ok := dtypeNames[d]; ok {
		return name
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// ParseDType maps a canonical name back to its DType.
func ParseDType(s string) (DType, error) {
	for d, name := range dtypeNames {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}

// IsFloat reports whether the dtype is float32 or float64.
func (d DType) IsFloat() bool {
	return d == Float64 || d == Float32
}

// IsInteger reports whether the dtype is int32 or int64.
func (d DType) IsInteger() bool {
	return d == Int64 || d == Int32
}

// IsNumeric reports whether the dtype is a float or integer type.
func (d DType) IsNumeric() bool {
	return d.IsFloat() || d.IsInteger()
}

// ValidIndex reports whether the dtype may be used for an index column.
// Float keys are rejected since NaN breaks grouping, and bool keys are
// not supported.
func (d DType) ValidIndex() bool {
	return d == Int64 || d == Int32 || d == String
}
