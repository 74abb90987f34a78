package graph

import (
	"fmt"

	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// NodeID addresses a node in its graph's arena, in creation order.
type NodeID int

// OpID addresses an operator in its graph's arena, in creation order.
// The schedule's deterministic tie-breaking is defined over this order.
type OpID int

// Node is a typed placeholder for a dataset at one point in the graph.
type Node struct {
	id       NodeID
	name     string
	schema   *schema.Schema
	producer OpID // -1 for source nodes
}

// ID returns the node's arena id.
func (n *Node) ID() NodeID { return n.id }

// Name returns the node's name, or "" if it was never named.
func (n *Node) Name() string { return n.name }

// Schema returns the node's schema.
func (n *Node) Schema() *schema.Schema { return n.schema }

// Producer returns the id of the operator producing this node, or false
// for a source node.
func (n *Node) Producer() (OpID, bool) {
	if n.producer < 0 {
		return 0, false
	}
	return n.producer, true
}

// Label renders the node for error messages and logs: its name when it
// has one, otherwise its arena id.
func (n *Node) Label() string {
	if n.name != "" {
		return n.name
	}
	return fmt.Sprintf("node:%d", n.id)
}

// Operator is one named transformation instance: fixed input and output
// node lists plus the attribute values it was constructed with.
type Operator struct {
	id      OpID
	kind    string
	attrs   opdef.Attributes
	inputs  []NodeID
	outputs []NodeID
}

// ID returns the operator's arena id.
func (o *Operator) ID() OpID { return o.id }

// Kind returns the operator's registry key.
func (o *Operator) Kind() string { return o.kind }

// Attrs returns a copy of the operator's attributes.
func (o *Operator) Attrs() opdef.Attributes { return o.attrs.Clone() }

// Inputs returns a copy of the ordered input node ids.
func (o *Operator) Inputs() []NodeID { return append([]NodeID(nil), o.inputs...) }

// Outputs returns a copy of the ordered output node ids.
func (o *Operator) Outputs() []NodeID { return append([]NodeID(nil), o.outputs...) }

// Label renders the operator for error messages and logs.
func (o *Operator) Label() string {
	return fmt.Sprintf("%s:%d", o.kind, o.id)
}

// Graph owns the node and operator arenas and grows them through
// AddSource and AddOperator. It is not safe for concurrent mutation;
// once construction is done it is immutable and safe to share.
type Graph struct {
	reg   *registry.Registry
	nodes []*Node
	ops   []*Operator
	names map[string]NodeID
}

// New returns an empty graph bound to a registry.
func New(reg *registry.Registry) *Graph {
	return &Graph{
		reg:   reg,
		names: make(map[string]NodeID),
	}
}

// Registry returns the registry the graph validates kinds against.
func (g *Graph) Registry() *registry.Registry { return g.reg }

// NumNodes returns the node count.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumOps returns the operator count.
func (g *Graph) NumOps() int { return len(g.ops) }

// Node returns the node with the given id, or nil if out of range.
func (g *Graph) Node(id NodeID) *Node {
	if id < 0 || int(id) >= len(g.nodes) {
		return nil
	}
	return g.nodes[id]
}

// Op returns the operator with the given id, or nil if out of range.
func (g *Graph) Op(id OpID) *Operator {
	if id < 0 || int(id) >= len(g.ops) {
		return nil
	}
	return g.ops[id]
}

// Nodes returns the nodes in creation order.
func (g *Graph) Nodes() []*Node { return append([]*Node(nil), g.nodes...) }

// Ops returns the operators in creation order.
func (g *Graph) Ops() []*Operator { return append([]*Operator(nil), g.ops...) }

// NodeByName looks a node up by its name.
func (g *Graph) NodeByName(name string) (*Node, bool) {
	id, ok := g.names[name]
	if !ok {
		return nil, false
	}
	return g.nodes[id], true
}

// Producer returns the operator producing a node, or false for sources
// and unknown ids.
func (g *Graph) Producer(id NodeID) (*Operator, bool) {
	n := g.Node(id)
	if n == nil {
		return nil, false
	}
	opID, ok := n.Producer()
	if !ok {
		return nil, false
	}
	return g.ops[opID], true
}

// AddSource creates a named boundary node with no producer.
func (g *Graph) AddSource(name string, s *schema.Schema) (NodeID, error) {
	if name == "" {
		return 0, fmt.Errorf("source node requires a name")
	}
	if s == nil {
		return 0, fmt.Errorf("source node %q requires a schema", name)
	}
	if _, taken := g.names[name]; taken {
		return 0, fmt.Errorf("node name %q already in use", name)
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, &Node{id: id, name: name, schema: s, producer: -1})
	g.names[name] = id
	return id, nil
}

// NameNode assigns a name to an existing unnamed node so run files and
// callers can address it. Names are unique per graph.
func (g *Graph) NameNode(id NodeID, name string) error {
	n := g.Node(id)
	if n == nil {
		return fmt.Errorf("unknown node id %d", id)
	}
	if name == "" {
		return fmt.Errorf("node name must not be empty")
	}
	if n.name != "" {
		return fmt.Errorf("node %s already named", n.Label())
	}
	if _, taken := g.names[name]; taken {
		return fmt.Errorf("node name %q already in use", name)
	}
	n.name = name
	g.names[name] = id
	return nil
}

// AddOperator constructs a new operator of the given kind over existing
// nodes and returns its freshly created output nodes. Everything is
// validated before the arena is touched: an unknown kind, bad arity, bad
// attributes or an inference failure leaves the graph unchanged.
func (g *Graph) AddOperator(kind string, inputs []NodeID, attrs opdef.Attributes) ([]NodeID, error) {
	k, ok := g.reg.Kind(kind)
	if !ok {
		return nil, &UnknownKindError{Kind: kind}
	}
	def := k.Definition()

	if len(inputs) != len(def.Inputs) {
		return nil, &schema.SchemaError{
			Subject: kind,
			Reason:  fmt.Sprintf("expects %d inputs (%v), got %d", len(def.Inputs), def.Inputs, len(inputs)),
		}
	}
	inSchemas := make([]*schema.Schema, len(inputs))
	for i, id := range inputs {
		n := g.Node(id)
		if n == nil {
			return nil, fmt.Errorf("%s: input %q: unknown node id %d", kind, def.Inputs[i], id)
		}
		inSchemas[i] = n.Schema()
	}

	if attrs == nil {
		attrs = opdef.Attributes{}
	}
	if err := def.CheckAttrs(attrs); err != nil {
		return nil, err
	}

	outSchemas, err := k.InferSchemas(inSchemas, attrs)
	if err != nil {
		return nil, err
	}
	if len(outSchemas) != len(def.Outputs) {
		return nil, fmt.Errorf("%s: inference returned %d schemas, definition declares %d outputs", kind, len(outSchemas), len(def.Outputs))
	}

	op := &Operator{
		id:     OpID(len(g.ops)),
		kind:   kind,
		attrs:  attrs.Clone(),
		inputs: append([]NodeID(nil), inputs...),
	}
	outIDs := make([]NodeID, len(outSchemas))
	for i, s := range outSchemas {
		id := NodeID(len(g.nodes))
		g.nodes = append(g.nodes, &Node{id: id, schema: s, producer: op.id})
		outIDs[i] = id
	}
	op.outputs = outIDs
	g.ops = append(g.ops, op)
	return outIDs, nil
}
