package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module is the interface all operator modules implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Kind is the schema-level half of an operator kind: its definition and a
// pure, deterministic inference function from input schemas plus
// attributes to output schemas. Implementations must not touch data.
type Kind interface {
	Definition() opdef.Definition
	InferSchemas(inputs []*schema.Schema, attrs opdef.Attributes) ([]*schema.Schema, error)
}

// Kernel is the data-level half: the concrete computation invoked by the
// executor. The returned datasets must match the schemas produced by the
// kind's inference function, in the definition's output order. Kernels
// never mutate their inputs.
type Kernel interface {
	Run(ctx context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error)
}

// KernelFunc adapts a plain function to the Kernel interface.
type KernelFunc func(ctx context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error)

// Run implements Kernel.
func (f KernelFunc) Run(ctx context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	return f(ctx, inputs, attrs)
}

// Registry holds the registered kinds and kernels for one application
// instance.
type Registry struct {
	kinds   map[string]Kind
	kernels map[string]Kernel
}

// New creates and initializes a new Registry instance.
func New() *Registry {
	return &Registry{
		kinds:   make(map[string]Kind),
		kernels: make(map[string]Kernel),
	}
}

// RegisterKind registers the schema-level half of an operator kind,
// keyed by its definition. Duplicate registration is a programmer error
// and panics.
func (r *Registry) RegisterKind(k Kind) {
	key := k.Definition().Key
	if key == "" {
		panic("registry: kind with empty key")
	}
	if _, exists := r.kinds[key]; exists {
		panic(fmt.Sprintf("registry: kind %q already registered", key))
	}
	slog.Debug("Registering operator kind.", "key", key)
	r.kinds[key] = k
}

// RegisterKernel registers the data-level half of an operator kind.
// Duplicate registration is a programmer error and panics.
func (r *Registry) RegisterKernel(key string, kernel Kernel) {
	if _, exists := r.kernels[key]; exists {
		panic(fmt.Sprintf("registry: kernel %q already registered", key))
	}
	slog.Debug("Registering operator kernel.", "key", key)
	r.kernels[key] = kernel
}

// Kind looks up a registered kind by key.
func (r *Registry) Kind(key string) (Kind, bool) {
	k, ok := r.kinds[key]
	return k, ok
}

// Kernel looks up a registered kernel by key.
func (r *Registry) Kernel(key string) (Kernel, bool) {
	k, ok := r.kernels[key]
	return k, ok
}

// Keys returns every registered kind key, sorted.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.kinds))
	for key := range r.kinds {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
