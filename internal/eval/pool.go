package eval

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/vk/eventflowgo/internal/ctxlog"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/schedule"
)

// stepState is the pool's scheduling view of one step.
type stepState struct {
	idx        int
	step       schedule.Step
	depCount   atomic.Int32
	dependents []int
	skipOnce   sync.Once
}

// poolRun owns the shared state of one concurrent run.
type poolRun struct {
	g         *graph.Graph
	st        *store
	states    []*stepState
	refs      map[graph.NodeID]*atomic.Int32
	requested map[graph.NodeID]bool
	ready     chan *stepState
	wg        sync.WaitGroup
	cancel    context.CancelFunc

	mu       sync.Mutex
	firstErr error
}

// runPool executes steps on a bounded worker pool. A step becomes ready
// when every step producing one of its inputs has finished. The first
// failure cancels the run and skips everything downstream; kernels
// already in flight drain before Run returns.
//
// Release bookkeeping differs from the sequential path: completion order
// is not plan order, so the planner's per-step release sets do not
// apply. Each node instead carries a count of its consuming steps and is
// freed when the count reaches zero.
func runPool(ctx context.Context, s *schedule.Schedule, st *store, workers int) error {
	steps := s.Steps()
	if len(steps) == 0 {
		return ctx.Err()
	}
	if workers > len(steps) {
		workers = len(steps)
	}

	producerStep := make(map[graph.NodeID]int, len(steps))
	for i, step := range steps {
		for _, out := range step.Op.Outputs() {
			producerStep[out] = i
		}
	}

	states := make([]*stepState, len(steps))
	for i, step := range steps {
		states[i] = &stepState{idx: i, step: step}
	}
	for i, step := range steps {
		seen := make(map[int]bool)
		for _, in := range step.Op.Inputs() {
			p, ok := producerStep[in]
			if !ok || seen[p] {
				continue
			}
			seen[p] = true
			states[i].depCount.Add(1)
			states[p].dependents = append(states[p].dependents, i)
		}
	}

	refs := make(map[graph.NodeID]*atomic.Int32)
	for _, step := range steps {
		seen := make(map[graph.NodeID]bool)
		for _, in := range step.Op.Inputs() {
			if seen[in] {
				continue
			}
			seen[in] = true
			if refs[in] == nil {
				refs[in] = new(atomic.Int32)
			}
			refs[in].Add(1)
		}
	}
	requested := make(map[graph.NodeID]bool, len(s.Outputs()))
	for _, id := range s.Outputs() {
		requested[id] = true
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	run := &poolRun{
		g:         s.Graph(),
		st:        st,
		states:    states,
		refs:      refs,
		requested: requested,
		ready:     make(chan *stepState, len(steps)),
		cancel:    cancel,
	}

	run.wg.Add(len(steps))
	for _, ss := range states {
		if ss.depCount.Load() == 0 {
			run.ready <- ss
		}
	}

	logger := ctxlog.FromContext(ctx)
	logger.Debug("Starting worker pool.", "workers", workers, "steps", len(steps))
	for i := 0; i < workers; i++ {
		go run.worker(runCtx, i)
	}
	run.wg.Wait()
	close(run.ready)

	if err := run.err(); err != nil {
		return err
	}
	return ctx.Err()
}

// worker is the processing loop of a single pool goroutine.
func (r *poolRun) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx).With("worker", workerID)
	for ss := range r.ready {
		if ctx.Err() != nil {
			ss.skipOnce.Do(func() {
				logger.Debug("Run canceled, skipping step.", "step", ss.idx)
				r.wg.Done()
				r.skipDependents(ctx, ss)
			})
			continue
		}

		logger.Debug("Running step.", "step", ss.idx, "op", ss.step.Op.Label())
		if err := invoke(ctx, r.g, r.st, ss.idx, ss.step); err != nil {
			logger.Error("Step failed.", "step", ss.idx, "op", ss.step.Op.Label(), "error", err)
			r.fail(err)
			r.skipDependents(ctx, ss)
			r.wg.Done()
			continue
		}

		r.finish(ctx, ss)
		r.wg.Done()
	}
}

// finish publishes a completed step: dependents with all producers done
// become ready, surplus outputs are freed at once, and each input's
// consumer count is decremented, freeing the dataset on its last use.
func (r *poolRun) finish(ctx context.Context, ss *stepState) {
	for _, dep := range ss.dependents {
		if r.states[dep].depCount.Add(-1) == 0 {
			r.ready <- r.states[dep]
		}
	}

	for _, out := range ss.step.Op.Outputs() {
		if r.refs[out] == nil && !r.requested[out] {
			r.release(ctx, out)
		}
	}
	seen := make(map[graph.NodeID]bool)
	for _, in := range ss.step.Op.Inputs() {
		if seen[in] {
			continue
		}
		seen[in] = true
		if r.refs[in].Add(-1) == 0 && !r.requested[in] {
			r.release(ctx, in)
		}
	}
}

func (r *poolRun) release(ctx context.Context, id graph.NodeID) {
	freed := r.st.free(id)
	ctxlog.FromContext(ctx).Debug("Released dataset.", "node", nodeLabel(r.g, id), "bytes", freed)
}

// skipDependents transitively marks the downstream of a failed step as
// done without running it. A skipped step's own error is a symptom, not
// a cause, so nothing is recorded for it.
func (r *poolRun) skipDependents(ctx context.Context, ss *stepState) {
	logger := ctxlog.FromContext(ctx)
	for _, dep := range ss.dependents {
		ds := r.states[dep]
		ds.skipOnce.Do(func() {
			logger.Warn("Skipping step, upstream failed.", "step", ds.idx, "op", ds.step.Op.Label(), "upstream", ss.step.Op.Label())
			r.wg.Done()
			r.skipDependents(ctx, ds)
		})
	}
}

// fail records the run's first real error and cancels everything else.
func (r *poolRun) fail(err error) {
	r.mu.Lock()
	if r.firstErr == nil {
		r.firstErr = err
	}
	r.mu.Unlock()
	r.cancel()
}

func (r *poolRun) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.firstErr
}
