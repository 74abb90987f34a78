// Package serialize round-trips graphs through a versioned JSON document.
// Decoding re-validates everything through graph.Restore, so a document
// is never trusted beyond its syntax.
package serialize

import (
	"fmt"
	"time"

	json "github.com/json-iterator/go"

	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Version is the document format version this package reads and writes.
const Version = 1

// Document is the on-disk form of a graph.
type Document struct {
	Version   int    `json:"version"`
	Nodes     []Node `json:"nodes"`
	Operators []Op   `json:"operators"`
}

// Node is one node row.
type Node struct {
	Name     string `json:"name,omitempty"`
	Schema   Schema `json:"schema"`
	Producer int    `json:"producer"`
}

// Schema is the document form of a node schema.
type Schema struct {
	Features []Feature `json:"features"`
	Indexes  []Feature `json:"indexes,omitempty"`
	UnixTime bool      `json:"unix_time,omitempty"`
}

// Feature is one named, typed column.
type Feature struct {
	Name  string `json:"name"`
	DType string `json:"dtype"`
}

// Op is one operator row. Attribute values carry their type tag so the
// reader does not have to guess between, say, an int and a duration.
type Op struct {
	Kind    string          `json:"kind"`
	Attrs   map[string]Attr `json:"attrs,omitempty"`
	Inputs  []int           `json:"inputs"`
	Outputs []int           `json:"outputs"`
}

// Attr is one typed attribute value.
type Attr struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// Encode renders a graph as an indented JSON document.
func Encode(g *graph.Graph) ([]byte, error) {
	doc := Document{Version: Version}

	for _, n := range g.Nodes() {
		producer := -1
		if opID, ok := n.Producer(); ok {
			producer = int(opID)
		}
		doc.Nodes = append(doc.Nodes, Node{
			Name:     n.Name(),
			Schema:   encodeSchema(n.Schema()),
			Producer: producer,
		})
	}

	for _, op := range g.Ops() {
		row := Op{
			Kind:    op.Kind(),
			Inputs:  nodeIDsToInts(op.Inputs()),
			Outputs: nodeIDsToInts(op.Outputs()),
		}
		attrs := op.Attrs()
		if len(attrs) > 0 {
			row.Attrs = make(map[string]Attr, len(attrs))
			for name, v := range attrs {
				a, err := encodeAttr(v)
				if err != nil {
					return nil, fmt.Errorf("operator %s, attribute %q: %w", op.Label(), name, err)
				}
				row.Attrs[name] = a
			}
		}
		doc.Operators = append(doc.Operators, row)
	}

	return json.MarshalIndent(doc, "", "  ")
}

// Decode parses a document and rebuilds the graph against the given
// registry. Kinds must be registered and the stored schemas must agree
// with what the kinds infer; a structurally cyclic document decodes
// fine and is rejected later by the planner.
func Decode(reg *registry.Registry, data []byte) (*graph.Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported graph document version %d, want %d", doc.Version, Version)
	}

	nodes := make([]graph.RestoredNode, len(doc.Nodes))
	for i, n := range doc.Nodes {
		s, err := decodeSchema(n.Schema)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		nodes[i] = graph.RestoredNode{Name: n.Name, Schema: s, Producer: n.Producer}
	}

	ops := make([]graph.RestoredOp, len(doc.Operators))
	for i, row := range doc.Operators {
		attrs := make(opdef.Attributes, len(row.Attrs))
		for name, a := range row.Attrs {
			v, err := decodeAttr(a)
			if err != nil {
				return nil, fmt.Errorf("operator %d (%s), attribute %q: %w", i, row.Kind, name, err)
			}
			attrs[name] = v
		}
		ops[i] = graph.RestoredOp{Kind: row.Kind, Attrs: attrs, Inputs: row.Inputs, Outputs: row.Outputs}
	}

	return graph.Restore(reg, nodes, ops)
}

func encodeSchema(s *schema.Schema) Schema {
	out := Schema{UnixTime: s.UnixTime()}
	for _, f := range s.Features() {
		out.Features = append(out.Features, Feature{Name: f.Name, DType: f.DType.String()})
	}
	for _, idx := range s.Indexes() {
		out.Indexes = append(out.Indexes, Feature{Name: idx.Name, DType: idx.DType.String()})
	}
	return out
}

func decodeSchema(doc Schema) (*schema.Schema, error) {
	features := make([]schema.Feature, len(doc.Features))
	for i, f := range doc.Features {
		dt, err := schema.ParseDType(f.DType)
		if err != nil {
			return nil, err
		}
		features[i] = schema.Feature{Name: f.Name, DType: dt}
	}
	indexes := make([]schema.Index, len(doc.Indexes))
	for i, f := range doc.Indexes {
		dt, err := schema.ParseDType(f.DType)
		if err != nil {
			return nil, err
		}
		indexes[i] = schema.Index{Name: f.Name, DType: dt}
	}
	s, err := schema.New(features, indexes)
	if err != nil {
		return nil, err
	}
	if doc.UnixTime {
		s = s.WithUnixTime()
	}
	return s, nil
}

func encodeAttr(v opdef.Value) (Attr, error) {
	var payload any
	switch v.Type() {
	case opdef.TypeString:
		payload = v.Str()
	case opdef.TypeInt:
		payload = v.Int()
	case opdef.TypeFloat:
		payload = v.Float()
	case opdef.TypeBool:
		payload = v.Bool()
	case opdef.TypeDuration:
		payload = v.Duration().String()
	case opdef.TypeStrings:
		payload = v.Strings()
	case opdef.TypeDType:
		payload = v.DType().String()
	default:
		return Attr{}, fmt.Errorf("unencodable attribute type %v", v.Type())
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Attr{}, err
	}
	return Attr{Type: v.Type().String(), Value: raw}, nil
}

func decodeAttr(a Attr) (opdef.Value, error) {
	t, err := opdef.ParseAttrType(a.Type)
	if err != nil {
		return opdef.Value{}, err
	}
	switch t {
	case opdef.TypeString:
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return opdef.Value{}, err
		}
		return opdef.StringValue(s), nil
	case opdef.TypeInt:
		var n int64
		if err := json.Unmarshal(a.Value, &n); err != nil {
			return opdef.Value{}, err
		}
		return opdef.IntValue(n), nil
	case opdef.TypeFloat:
		var f float64
		if err := json.Unmarshal(a.Value, &f); err != nil {
			return opdef.Value{}, err
		}
		return opdef.FloatValue(f), nil
	case opdef.TypeBool:
		var b bool
		if err := json.Unmarshal(a.Value, &b); err != nil {
			return opdef.Value{}, err
		}
		return opdef.BoolValue(b), nil
	case opdef.TypeDuration:
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return opdef.Value{}, err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return opdef.Value{}, err
		}
		return opdef.DurationValue(d), nil
	case opdef.TypeStrings:
		var ss []string
		if err := json.Unmarshal(a.Value, &ss); err != nil {
			return opdef.Value{}, err
		}
		return opdef.StringsValue(ss...), nil
	case opdef.TypeDType:
		var s string
		if err := json.Unmarshal(a.Value, &s); err != nil {
			return opdef.Value{}, err
		}
		dt, err := schema.ParseDType(s)
		if err != nil {
			return opdef.Value{}, err
		}
		return opdef.DTypeValue(dt), nil
	}
	return opdef.Value{}, fmt.Errorf("undecodable attribute type %q", a.Type)
}

func nodeIDsToInts(ids []graph.NodeID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
