// Package graph holds the symbolic computation model: typed placeholder
// nodes and the operators connecting them, owned by a single arena.
//
// A Graph is built in the define phase and never touches data. Nodes and
// operators are immutable once created and addressed by creation-order
// ids, so every edge is a plain index: an operator records its input and
// output node ids, a node records the id of the operator that produces
// it. Backward traversal from outputs to sources needs no separate
// adjacency structure.
//
// AddOperator validates arity, attributes and input schemas against the
// registered kind before anything is materialized, so a failed call
// leaves the graph exactly as it was. Restore rebuilds a graph from a
// serialized document under the same checks, except acyclicity, which is
// deliberately left to the scheduling layer.
package graph
