package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// ErrKernelFailure is what the FAIL stub kernel returns, so tests can
// assert the cause survives error wrapping.
var ErrKernelFailure = errors.New("kernel failure")

// PassKind is a 1-in 1-out identity: schema and data pass through.
type PassKind struct{}

// Definition implements registry.Kind.
func (PassKind) Definition() opdef.Definition {
	return opdef.Definition{Key: "PASS", Inputs: []string{"input"}, Outputs: []string{"output"}}
}

// InferSchemas implements registry.Kind.
func (PassKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	return []*schema.Schema{inputs[0]}, nil
}

// CombineKind is a 2-in 1-out merge requiring identical input schemas.
// Its stub kernel sums float64 features position-wise.
type CombineKind struct{}

// Definition implements registry.Kind.
func (CombineKind) Definition() opdef.Definition {
	return opdef.Definition{Key: "COMBINE", Inputs: []string{"left", "right"}, Outputs: []string{"output"}}
}

// InferSchemas implements registry.Kind.
func (CombineKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	if !inputs[0].Equal(inputs[1]) {
		return nil, &schema.SchemaError{Subject: "COMBINE", Reason: "input schemas differ"}
	}
	return []*schema.Schema{inputs[0]}, nil
}

// SplitKind is a 1-in 2-out duplicate, for multi-output plans.
type SplitKind struct{}

// Definition implements registry.Kind.
func (SplitKind) Definition() opdef.Definition {
	return opdef.Definition{Key: "SPLIT", Inputs: []string{"input"}, Outputs: []string{"first", "second"}}
}

// InferSchemas implements registry.Kind.
func (SplitKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	return []*schema.Schema{inputs[0], inputs[0]}, nil
}

// FailKind is a 1-in 1-out identity whose stub kernel always fails.
type FailKind struct{}

// Definition implements registry.Kind.
func (FailKind) Definition() opdef.Definition {
	return opdef.Definition{Key: "FAIL", Inputs: []string{"input"}, Outputs: []string{"output"}}
}

// InferSchemas implements registry.Kind.
func (FailKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	return []*schema.Schema{inputs[0]}, nil
}

// AddConstKind adds a float constant to every float64 feature.
type AddConstKind struct{}

// Definition implements registry.Kind.
func (AddConstKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "ADD_CONST",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "value", Type: opdef.TypeFloat}},
	}
}

// InferSchemas implements registry.Kind.
func (AddConstKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	for _, f := range inputs[0].Features() {
		if f.DType != schema.Float64 {
			return nil, &schema.SchemaError{Subject: f.Name, Reason: "ADD_CONST requires float64 features"}
		}
	}
	return []*schema.Schema{inputs[0]}, nil
}

// passKernel forwards its single input.
func passKernel(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	return []*eventset.EventSet{inputs[0]}, nil
}

// combineKernel sums float64 features of two identically shaped datasets.
func combineKernel(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	left, right := inputs[0], inputs[1]
	out := eventset.New(left.Schema())
	for _, lb := range left.Buckets() {
		rb, ok := right.Bucket(lb.Key)
		if !ok {
			return nil, fmt.Errorf("bucket %v missing on right side", lb.Key)
		}
		ob := out.GetOrCreateBucket(lb.Key)
		ob.Timestamps = append([]float64(nil), lb.Timestamps...)
		for i := range lb.Columns {
			lv, rv := lb.Column(i).Float64s(), rb.Column(i).Float64s()
			sum := make([]float64, len(lv))
			for j := range lv {
				sum[j] = lv[j] + rv[j]
			}
			ob.Columns[i] = eventset.Float64Column(sum)
		}
	}
	return []*eventset.EventSet{out}, nil
}

// splitKernel forwards its input twice.
func splitKernel(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	return []*eventset.EventSet{inputs[0], inputs[0]}, nil
}

// failKernel always fails.
func failKernel(_ context.Context, _ []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	return nil, ErrKernelFailure
}

// addConstKernel adds the value attribute to every float64 feature.
func addConstKernel(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	k := attrs["value"].Float()
	in := inputs[0]
	out := eventset.New(in.Schema())
	for _, b := range in.Buckets() {
		ob := out.GetOrCreateBucket(b.Key)
		ob.Timestamps = append([]float64(nil), b.Timestamps...)
		for i := range b.Columns {
			src := b.Column(i).Float64s()
			vals := make([]float64, len(src))
			for j, v := range src {
				vals[j] = v + k
			}
			ob.Columns[i] = eventset.Float64Column(vals)
		}
	}
	return []*eventset.EventSet{out}, nil
}

// StubModule registers the stub kinds with their default kernels.
type StubModule struct{}

// Register implements registry.Module.
func (StubModule) Register(r *registry.Registry) {
	r.RegisterKind(PassKind{})
	r.RegisterKernel("PASS", registry.KernelFunc(passKernel))
	r.RegisterKind(CombineKind{})
	r.RegisterKernel("COMBINE", registry.KernelFunc(combineKernel))
	r.RegisterKind(SplitKind{})
	r.RegisterKernel("SPLIT", registry.KernelFunc(splitKernel))
	r.RegisterKind(FailKind{})
	r.RegisterKernel("FAIL", registry.KernelFunc(failKernel))
	r.RegisterKind(AddConstKind{})
	r.RegisterKernel("ADD_CONST", registry.KernelFunc(addConstKernel))
}

// StubRegistry returns a validated registry holding the stub kinds.
func StubRegistry() *registry.Registry {
	r := registry.New()
	StubModule{}.Register(r)
	if err := r.Validate(); err != nil {
		panic(err)
	}
	return r
}

// ExecutionRecord holds the start and end times of one kernel run.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// SleeperModule registers a SLEEP kind whose kernel sleeps for a fixed
// duration and records its execution window keyed by the "id" attribute.
// Concurrency tests use the recorded windows to prove overlap.
type SleeperModule struct {
	mu         sync.Mutex
	sleep      time.Duration
	Executions map[string]*ExecutionRecord
}

// NewSleeperModule creates a sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{
		sleep:      sleep,
		Executions: make(map[string]*ExecutionRecord),
	}
}

// sleeperKind is the schema half of SLEEP: identity with an id attribute.
type sleeperKind struct{}

func (sleeperKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "SLEEP",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs:   []opdef.AttrSpec{{Name: "id", Type: opdef.TypeString}},
	}
}

func (sleeperKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	return []*schema.Schema{inputs[0]}, nil
}

// Register implements registry.Module.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.RegisterKind(sleeperKind{})
	r.RegisterKernel("SLEEP", registry.KernelFunc(func(ctx context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
		start := time.Now()
		select {
		case <-time.After(m.sleep):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		m.mu.Lock()
		m.Executions[attrs["id"].Str()] = &ExecutionRecord{Start: start, End: time.Now()}
		m.mu.Unlock()
		return []*eventset.EventSet{inputs[0]}, nil
	}))
}

// Record returns the execution record for an id, if the kernel ran.
func (m *SleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.Executions[id]
	return rec, ok
}
