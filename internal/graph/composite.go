package graph

// Composite assembles a reusable sequence of operator calls as if it were
// a single transformation. Applying one simply inlines its calls into the
// parent graph at construction time, so the scheduling and evaluation
// layers only ever see primitive operators.
type Composite func(g *Graph, inputs []NodeID) ([]NodeID, error)

// Apply expands a composite over the given inputs. If the composite fails
// partway, operators it already added remain in the graph; they are
// harmless because scheduling is output-driven and never includes
// operators that no requested output depends on.
func (g *Graph) Apply(c Composite, inputs ...NodeID) ([]NodeID, error) {
	return c(g, inputs)
}
