package opdef

import (
	"errors"
	"fmt"
)

// ErrAttr is the root of every attribute validation failure.
var ErrAttr = errors.New("invalid operator attributes")

// AttrError describes one attribute violation for one operator kind.
type AttrError struct {
	Kind   string
	Attr   string
	Reason string
}

// Error implements the error interface.
func (e *AttrError) Error() string {
	return fmt.Sprintf("%s: attribute %q: %s", e.Kind, e.Attr, e.Reason)
}

// Unwrap ties the error to ErrAttr for errors.Is matching.
func (e *AttrError) Unwrap() error {
	return ErrAttr
}

// AttrSpec declares one attribute an operator kind accepts.
type AttrSpec struct {
	Name     string
	Type     AttrType
	Optional bool
}

// Definition describes one operator kind: its registry key, the ordered
// names of its input and output ports (fixed arity), and its attribute
// specs. Definitions are plain data shared by the graph layer and the
// registry.
type Definition struct {
	Key     string
	Inputs  []string
	Outputs []string
	Attrs   []AttrSpec
}

// AttrSpec looks an attribute spec up by name.
func (d Definition) AttrSpec(name string) (AttrSpec, bool) {
	for _, spec := range d.Attrs {
		if spec.Name == name {
			return spec, true
		}
	}
	return AttrSpec{}, false
}

// CheckAttrs validates an attribute map against the definition: required
// attributes present, no unknown names, every value of the declared type.
func (d Definition) CheckAttrs(attrs Attributes) error {
	for _, spec := range d.Attrs {
		v, ok := attrs[spec.Name]
		if !ok {
			if spec.Optional {
				continue
			}
			return &AttrError{Kind: d.Key, Attr: spec.Name, Reason: "required attribute missing"}
		}
		if v.Type() != spec.Type {
			return &AttrError{
				Kind:   d.Key,
				Attr:   spec.Name,
				Reason: fmt.Sprintf("expected %s, got %s", spec.Type, v.Type()),
			}
		}
	}
	for name := range attrs {
		if _, ok := d.AttrSpec(name); !ok {
			return &AttrError{Kind: d.Key, Attr: name, Reason: "unknown attribute"}
		}
	}
	return nil
}
