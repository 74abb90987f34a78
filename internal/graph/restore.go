package graph

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// RestoredNode is one node row of a decoded graph document.
type RestoredNode struct {
	Name     string
	Schema   *schema.Schema
	Producer int // index into the ops list, -1 for sources
}

// RestoredOp is one operator row of a decoded graph document.
type RestoredOp struct {
	Kind    string
	Attrs   opdef.Attributes
	Inputs  []int
	Outputs []int
}

// Restore rebuilds a graph from document rows, re-running every check
// AddOperator performs: kinds must be registered, attributes and arity
// must satisfy the definition, and each operator's stated output schemas
// must equal what its inference rule computes from the stated input
// schemas. Producer back-references must agree with the operators'
// output lists.
//
// Acyclicity is deliberately not checked here. A document describing a
// cyclic producer relation restores fine and is rejected by
// schedule.Build, which owns structural validation.
func Restore(reg *registry.Registry, nodes []RestoredNode, ops []RestoredOp) (*Graph, error) {
	g := New(reg)

	for i, rn := range nodes {
		if rn.Schema == nil {
			return nil, fmt.Errorf("node %d: missing schema", i)
		}
		if rn.Producer < -1 || rn.Producer >= len(ops) {
			return nil, fmt.Errorf("node %d: producer %d out of range", i, rn.Producer)
		}
		if rn.Name != "" {
			if _, taken := g.names[rn.Name]; taken {
				return nil, fmt.Errorf("node %d: name %q already in use", i, rn.Name)
			}
			g.names[rn.Name] = NodeID(i)
		}
		g.nodes = append(g.nodes, &Node{
			id:       NodeID(i),
			name:     rn.Name,
			schema:   rn.Schema,
			producer: OpID(rn.Producer),
		})
	}

	for i, ro := range ops {
		k, ok := reg.Kind(ro.Kind)
		if !ok {
			return nil, &UnknownKindError{Kind: ro.Kind}
		}
		def := k.Definition()

		if len(ro.Inputs) != len(def.Inputs) {
			return nil, &schema.SchemaError{
				Subject: ro.Kind,
				Reason:  fmt.Sprintf("operator %d: expects %d inputs, document has %d", i, len(def.Inputs), len(ro.Inputs)),
			}
		}
		if len(ro.Outputs) != len(def.Outputs) {
			return nil, &schema.SchemaError{
				Subject: ro.Kind,
				Reason:  fmt.Sprintf("operator %d: declares %d outputs, document has %d", i, len(def.Outputs), len(ro.Outputs)),
			}
		}

		attrs := ro.Attrs
		if attrs == nil {
			attrs = opdef.Attributes{}
		}
		if err := def.CheckAttrs(attrs); err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}

		inSchemas := make([]*schema.Schema, len(ro.Inputs))
		for j, idx := range ro.Inputs {
			if idx < 0 || idx >= len(nodes) {
				return nil, fmt.Errorf("operator %d (%s): input %d out of range", i, ro.Kind, idx)
			}
			inSchemas[j] = nodes[idx].Schema
		}

		outSchemas, err := k.InferSchemas(inSchemas, attrs)
		if err != nil {
			return nil, fmt.Errorf("operator %d: %w", i, err)
		}
		for j, idx := range ro.Outputs {
			if idx < 0 || idx >= len(nodes) {
				return nil, fmt.Errorf("operator %d (%s): output %d out of range", i, ro.Kind, idx)
			}
			if nodes[idx].Producer != i {
				return nil, fmt.Errorf("operator %d (%s): node %d does not name it as producer", i, ro.Kind, idx)
			}
			if !outSchemas[j].Equal(nodes[idx].Schema) {
				return nil, &schema.SchemaError{
					Subject: ro.Kind,
					Reason: fmt.Sprintf("operator %d: stored schema %s for node %d disagrees with inferred %s",
						i, nodes[idx].Schema, idx, outSchemas[j]),
				}
			}
		}

		g.ops = append(g.ops, &Operator{
			id:      OpID(i),
			kind:    ro.Kind,
			attrs:   attrs.Clone(),
			inputs:  intsToNodeIDs(ro.Inputs),
			outputs: intsToNodeIDs(ro.Outputs),
		})
	}

	// Every produced node must appear in its producer's output list.
	for i, rn := range nodes {
		if rn.Producer < 0 {
			continue
		}
		found := false
		for _, out := range ops[rn.Producer].Outputs {
			if out == i {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("node %d: producer %d does not list it as an output", i, rn.Producer)
		}
	}

	return g, nil
}

func intsToNodeIDs(idxs []int) []NodeID {
	out := make([]NodeID, len(idxs))
	for i, idx := range idxs {
		out[i] = NodeID(idx)
	}
	return out
}
