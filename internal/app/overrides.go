package app

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/runfile"
)

// applyOverrides patches operator attributes named by the run file and
// rebuilds the graph. The rebuild re-runs schema inference with the
// patched attributes, so an override that would change any node schema
// is rejected.
func applyOverrides(g *graph.Graph, overrides []runfile.Override) (*graph.Graph, error) {
	if len(overrides) == 0 {
		return g, nil
	}

	nodes := make([]graph.RestoredNode, g.NumNodes())
	for _, n := range g.Nodes() {
		producer := -1
		if opID, ok := n.Producer(); ok {
			producer = int(opID)
		}
		nodes[n.ID()] = graph.RestoredNode{Name: n.Name(), Schema: n.Schema(), Producer: producer}
	}
	ops := make([]graph.RestoredOp, g.NumOps())
	for _, op := range g.Ops() {
		ops[op.ID()] = graph.RestoredOp{
			Kind:    op.Kind(),
			Attrs:   op.Attrs(),
			Inputs:  nodeIDsToInts(op.Inputs()),
			Outputs: nodeIDsToInts(op.Outputs()),
		}
	}

	for _, ov := range overrides {
		node, ok := g.NodeByName(ov.Name)
		if !ok {
			return nil, fmt.Errorf("override %q: the graph has no node with that name", ov.Name)
		}
		opID, ok := node.Producer()
		if !ok {
			return nil, fmt.Errorf("override %q: the node is a source, there is no operator to patch", ov.Name)
		}
		op := g.Op(opID)
		kind, ok := g.Registry().Kind(op.Kind())
		if !ok {
			return nil, fmt.Errorf("override %q: unknown operator kind %q", ov.Name, op.Kind())
		}
		patch, err := runfile.ConvertAttrs(ov.Attrs, kind.Definition())
		if err != nil {
			return nil, fmt.Errorf("override %q: %w", ov.Name, err)
		}
		merged := ops[opID].Attrs.Clone()
		for name, v := range patch {
			merged[name] = v
		}
		ops[opID].Attrs = merged
	}

	patched, err := graph.Restore(g.Registry(), nodes, ops)
	if err != nil {
		return nil, fmt.Errorf("apply overrides: %w", err)
	}
	return patched, nil
}

func nodeIDsToInts(ids []graph.NodeID) []int {
	out := make([]int, len(ids))
	for i, id := range ids {
		out[i] = int(id)
	}
	return out
}
