package schedule

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/vk/eventflowgo/internal/graph"
)

// Step is one planned operator invocation. Release lists the nodes whose
// datasets are dead once the step has run: this step was their last
// consumer, or they are surplus outputs of the step itself. Requested
// outputs never appear in a Release set.
type Step struct {
	Op      *graph.Operator
	Release []graph.NodeID
}

// Schedule is the ordered, minimal plan realizing the requested outputs
// from the available inputs. It holds no data and is cheap to discard.
type Schedule struct {
	g       *graph.Graph
	steps   []Step
	inputs  []graph.NodeID
	outputs []graph.NodeID
}

// Graph returns the graph the schedule was planned over.
func (s *Schedule) Graph() *graph.Graph { return s.g }

// Steps returns the planned steps in execution order.
func (s *Schedule) Steps() []Step { return append([]Step(nil), s.steps...) }

// NumSteps returns the number of planned operator invocations.
func (s *Schedule) NumSteps() int { return len(s.steps) }

// Inputs returns the boundary nodes the executor must be given datasets
// for, in creation order. Declared-available nodes nothing depends on are
// not included.
func (s *Schedule) Inputs() []graph.NodeID { return append([]graph.NodeID(nil), s.inputs...) }

// Outputs returns the requested output nodes in request order, first
// occurrence kept for duplicates.
func (s *Schedule) Outputs() []graph.NodeID { return append([]graph.NodeID(nil), s.outputs...) }

// String renders the plan compactly for logs.
func (s *Schedule) String() string {
	if len(s.steps) == 0 {
		return "<empty>"
	}
	labels := make([]string, len(s.steps))
	for i, st := range s.steps {
		labels[i] = st.Op.Label()
	}
	return strings.Join(labels, " -> ")
}

// Build plans the execution of requestedOutputs given availableInputs.
//
// Backward reachability stops at available nodes (interior nodes may be
// declared available and act as boundaries) and otherwise follows
// producer links. A revisit of a node on the current path fails with
// *CycleError; a reached source missing from availableInputs fails with
// *MissingInputError. Operators are then ordered topologically with ties
// broken by creation order, and per-step release sets are derived from
// each node's last consumer.
func Build(g *graph.Graph, requestedOutputs, availableInputs []graph.NodeID) (*Schedule, error) {
	if len(requestedOutputs) == 0 {
		return nil, fmt.Errorf("no outputs requested")
	}
	for _, id := range availableInputs {
		if g.Node(id) == nil {
			return nil, fmt.Errorf("available input: unknown node id %d", id)
		}
	}
	avail := make(map[graph.NodeID]bool, len(availableInputs))
	for _, id := range availableInputs {
		avail[id] = true
	}

	outputs := make([]graph.NodeID, 0, len(requestedOutputs))
	requested := make(map[graph.NodeID]bool, len(requestedOutputs))
	for _, id := range requestedOutputs {
		if g.Node(id) == nil {
			return nil, fmt.Errorf("requested output: unknown node id %d", id)
		}
		if !requested[id] {
			requested[id] = true
			outputs = append(outputs, id)
		}
	}

	needed, boundary, err := reach(g, outputs, avail)
	if err != nil {
		return nil, err
	}

	order := ordered(g, needed)
	steps := releasePlan(order, requested)

	inputs := make([]graph.NodeID, 0, len(boundary))
	for id := range boundary {
		inputs = append(inputs, id)
	}
	sort.Slice(inputs, func(i, j int) bool { return inputs[i] < inputs[j] })

	return &Schedule{g: g, steps: steps, inputs: inputs, outputs: outputs}, nil
}

// reach collects the operators backward-reachable from the outputs,
// stopping at available nodes. It returns the needed operator set and
// the boundary nodes actually consumed (or directly requested).
func reach(g *graph.Graph, outputs []graph.NodeID, avail map[graph.NodeID]bool) (map[graph.OpID]*graph.Operator, map[graph.NodeID]bool, error) {
	needed := make(map[graph.OpID]*graph.Operator)
	boundary := make(map[graph.NodeID]bool)

	// Three-color depth-first walk along producer links. permanent holds
	// fully resolved nodes, onPath the current recursion stack.
	permanent := make(map[graph.NodeID]bool)
	onPath := make(map[graph.NodeID]bool)
	var path []graph.NodeID

	var visit func(id graph.NodeID) error
	visit = func(id graph.NodeID) error {
		if permanent[id] {
			return nil
		}
		if onPath[id] {
			return &CycleError{Path: witness(g, path, id)}
		}
		if avail[id] {
			boundary[id] = true
			permanent[id] = true
			return nil
		}
		op, ok := g.Producer(id)
		if !ok {
			return &MissingInputError{NodeID: id, Node: g.Node(id).Label()}
		}

		onPath[id] = true
		path = append(path, id)
		needed[op.ID()] = op
		for _, in := range op.Inputs() {
			if err := visit(in); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		delete(onPath, id)
		permanent[id] = true
		return nil
	}

	for _, id := range outputs {
		if err := visit(id); err != nil {
			return nil, nil, err
		}
	}
	return needed, boundary, nil
}

// witness slices the current path from the first occurrence of the
// revisited node and closes the loop for the error message.
func witness(g *graph.Graph, path []graph.NodeID, repeat graph.NodeID) []string {
	start := 0
	for i, id := range path {
		if id == repeat {
			start = i
			break
		}
	}
	labels := make([]string, 0, len(path)-start+1)
	for _, id := range path[start:] {
		labels = append(labels, g.Node(id).Label())
	}
	labels = append(labels, g.Node(repeat).Label())
	return labels
}

// opHeap is a min-heap of operators keyed by creation order.
type opHeap []*graph.Operator

func (h opHeap) Len() int           { return len(h) }
func (h opHeap) Less(i, j int) bool { return h[i].ID() < h[j].ID() }
func (h opHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *opHeap) Push(x any)        { *h = append(*h, x.(*graph.Operator)) }

func (h *opHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// ordered runs Kahn's algorithm over the needed operators. The ready set
// is a min-heap on creation order, which breaks every tie
// deterministically. The reach phase has already rejected cycles, so the
// result always covers the full set.
func ordered(g *graph.Graph, needed map[graph.OpID]*graph.Operator) []*graph.Operator {
	producersOf := make(map[graph.OpID]map[graph.OpID]struct{}, len(needed))
	dependentsOf := make(map[graph.OpID]map[graph.OpID]struct{}, len(needed))
	for id, op := range needed {
		for _, in := range op.Inputs() {
			prod, ok := g.Producer(in)
			if !ok {
				continue
			}
			pid := prod.ID()
			if _, isNeeded := needed[pid]; !isNeeded {
				continue
			}
			if producersOf[id] == nil {
				producersOf[id] = make(map[graph.OpID]struct{})
			}
			producersOf[id][pid] = struct{}{}
			if dependentsOf[pid] == nil {
				dependentsOf[pid] = make(map[graph.OpID]struct{})
			}
			dependentsOf[pid][id] = struct{}{}
		}
	}

	indegree := make(map[graph.OpID]int, len(needed))
	ready := &opHeap{}
	for id, op := range needed {
		indegree[id] = len(producersOf[id])
		if indegree[id] == 0 {
			heap.Push(ready, op)
		}
	}

	order := make([]*graph.Operator, 0, len(needed))
	for ready.Len() > 0 {
		op := heap.Pop(ready).(*graph.Operator)
		order = append(order, op)
		deps := make([]graph.OpID, 0, len(dependentsOf[op.ID()]))
		for did := range dependentsOf[op.ID()] {
			deps = append(deps, did)
		}
		sort.Slice(deps, func(i, j int) bool { return deps[i] < deps[j] })
		for _, did := range deps {
			indegree[did]--
			if indegree[did] == 0 {
				heap.Push(ready, needed[did])
			}
		}
	}
	return order
}

// releasePlan assigns each live node to the step after which its dataset
// is dead: the last step consuming it, or its producing step when nothing
// in the plan consumes it. Requested outputs are never released.
func releasePlan(order []*graph.Operator, requested map[graph.NodeID]bool) []Step {
	lastUse := make(map[graph.NodeID]int)
	for i, op := range order {
		for _, out := range op.Outputs() {
			lastUse[out] = i
		}
	}
	for i, op := range order {
		for _, in := range op.Inputs() {
			lastUse[in] = i
		}
	}

	steps := make([]Step, len(order))
	for i, op := range order {
		steps[i] = Step{Op: op}
	}
	release := make(map[int][]graph.NodeID)
	for id, i := range lastUse {
		if requested[id] {
			continue
		}
		release[i] = append(release[i], id)
	}
	for i := range steps {
		ids := release[i]
		sort.Slice(ids, func(a, b int) bool { return ids[a] < ids[b] })
		steps[i].Release = ids
	}
	return steps
}
