package schema

import (
	"fmt"
	"strings"
)

// Feature is one named, typed value column.
type Feature struct {
	Name  string
	DType DType
}

// Index is one named, typed grouping-key column.
type Index struct {
	Name  string
	DType DType
}

// Schema is the typed shape of the data bound to one graph edge. It holds
// no data. The feature and index orders are significant and preserved.
type Schema struct {
	features []Feature
	indexes  []Index
	unixTime bool
}

// New validates and builds a Schema. Feature names must be unique, index
// names must be unique and disjoint from feature names, and index dtypes
// are restricted to int64, int32 and string.
func New(features []Feature, indexes []Index) (*Schema, error) {
	seen := make(map[string]struct{}, len(features)+len(indexes))
	for _, f := range features {
		if f.Name == "" {
			return nil, &SchemaError{Subject: "feature", Reason: "empty name"}
		}
		if _, dup := seen[f.Name]; dup {
			return nil, &SchemaError{Subject: f.Name, Reason: "duplicate feature name"}
		}
		seen[f.Name] = struct{}{}
	}
	for _, ix := range indexes {
		if ix.Name == "" {
			return nil, &SchemaError{Subject: "index", Reason: "empty name"}
		}
		if _, dup := seen[ix.Name]; dup {
			return nil, &SchemaError{Subject: ix.Name, Reason: "index name collides with a feature or another index"}
		}
		seen[ix.Name] = struct{}{}
		if !ix.DType.ValidIndex() {
			return nil, &SchemaError{Subject: ix.Name, Reason: fmt.Sprintf("dtype %s not allowed for an index", ix.DType)}
		}
	}
	return &Schema{
		features: append([]Feature(nil), features...),
		indexes:  append([]Index(nil), indexes...),
	}, nil
}

// MustNew is New for statically known-good schemas, typically in tests.
func MustNew(features []Feature, indexes []Index) *Schema {
	s, err := New(features, indexes)
	if err != nil {
		panic(err)
	}
	return s
}

// WithUnixTime returns a copy of the schema whose timestamps are declared
// to be Unix epoch seconds. Calendar operators require this.
func (s *Schema) WithUnixTime() *Schema {
	out := *s
	out.unixTime = true
	return &out
}

// UnixTime reports whether timestamps are Unix epoch seconds.
func (s *Schema) UnixTime() bool {
	return s.unixTime
}

// Features returns a copy of the ordered feature list.
func (s *Schema) Features() []Feature {
	return append([]Feature(nil), s.features...)
}

// Indexes returns a copy of the ordered index list.
func (s *Schema) Indexes() []Index {
	return append([]Index(nil), s.indexes...)
}

// NumFeatures returns the number of feature columns.
func (s *Schema) NumFeatures() int {
	return len(s.features)
}

// NumIndexes returns the number of index columns.
func (s *Schema) NumIndexes() int {
	return len(s.indexes)
}

// FeatureNames returns the feature names in schema order.
func (s *Schema) FeatureNames() []string {
	names := make([]string, len(s.features))
	for i, f := range s.features {
		names[i] = f.Name
	}
	return names
}

// IndexNames returns the index names in schema order.
func (s *Schema) IndexNames() []string {
	names := make([]string, len(s.indexes))
	for i, ix := range s.indexes {
		names[i] = ix.Name
	}
	return names
}

// FeatureByName looks a feature up by name.
func (s *Schema) FeatureByName(name string) (Feature, bool) {
	for _, f := range s.features {
		if f.Name == name {
			return f, true
		}
	}
	return Feature{}, false
}

// Equal reports whether two schemas have identical features, indexes and
// time unit, in the same order.
func (s *Schema) Equal(o *Schema) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.unixTime != o.unixTime || len(s.features) != len(o.features) || len(s.indexes) != len(o.indexes) {
		return false
	}
	for i, f := range s.features {
		if o.features[i] != f {
			return false
		}
	}
	for i, ix := range s.indexes {
		if o.indexes[i] != ix {
			return false
		}
	}
	return true
}

// EqualIndexes reports whether two schemas share the same index columns in
// the same order. Operators pairing two inputs require this.
func (s *Schema) EqualIndexes(o *Schema) bool {
	if len(s.indexes) != len(o.indexes) {
		return false
	}
	for i, ix := range s.indexes {
		if o.indexes[i] != ix {
			return false
		}
	}
	return true
}

// String renders a compact single-line form for logs and error messages.
func (s *Schema) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, f := range s.features {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", f.Name, f.DType)
	}
	if len(s.indexes) > 0 {
		b.WriteString(" | index ")
		for i, ix := range s.indexes {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s %s", ix.Name, ix.DType)
		}
	}
	if s.unixTime {
		b.WriteString(" | unix")
	}
	b.WriteByte(')')
	return b.String()
}
