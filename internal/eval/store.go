package eval

import (
	"fmt"
	"sync"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/graph"
)

// store holds the materialized dataset of each live node during a run.
// Every node is written exactly once, by its producing step or by input
// binding, and dropped once dead, so peak memory tracks the plan's
// working set rather than its full node count.
type store struct {
	mu   sync.Mutex
	data map[graph.NodeID]*eventset.EventSet
}

func newStore(size int) *store {
	return &store{data: make(map[graph.NodeID]*eventset.EventSet, size)}
}

func (s *store) put(id graph.NodeID, es *eventset.EventSet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[id]; ok {
		panic(fmt.Sprintf("eval: node %d written twice", id))
	}
	s.data[id] = es
}

func (s *store) get(id graph.NodeID) (*eventset.EventSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.data[id]
	return es, ok
}

// free drops a node's dataset and returns the approximate bytes it held.
// Callers still holding the dataset keep it alive; free only ends the
// store's claim on it.
func (s *store) free(id graph.NodeID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	es, ok := s.data[id]
	if !ok {
		return 0
	}
	delete(s.data, id)
	return es.MemoryUsage()
}
