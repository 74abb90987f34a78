package registry

import (
	"fmt"
	"sort"
	"strings"
)

// Validate performs a strict parity and shape check over the registry.
// Every kind must have a kernel and every kernel a kind, definitions must
// declare at least one input and one output port with unique names, and
// attribute specs must not repeat. All violations are reported together.
func (r *Registry) Validate() error {
	var errs []string

	for key, kind := range r.kinds {
		if _, ok := r.kernels[key]; !ok {
			errs = append(errs, fmt.Sprintf("kind %q: no kernel registered", key))
		}
		def := kind.Definition()
		if def.Key != key {
			errs = append(errs, fmt.Sprintf("kind %q: definition key is %q", key, def.Key))
		}
		if len(def.Inputs) == 0 {
			errs = append(errs, fmt.Sprintf("kind %q: definition declares no input ports", key))
		}
		if len(def.Outputs) == 0 {
			errs = append(errs, fmt.Sprintf("kind %q: definition declares no output ports", key))
		}
		seen := make(map[string]struct{}, len(def.Inputs)+len(def.Outputs))
		for _, port := range append(append([]string(nil), def.Inputs...), def.Outputs...) {
			if port == "" {
				errs = append(errs, fmt.Sprintf("kind %q: empty port name", key))
				continue
			}
			if _, dup := seen[port]; dup {
				errs = append(errs, fmt.Sprintf("kind %q: duplicate port name %q", key, port))
			}
			seen[port] = struct{}{}
		}
		attrs := make(map[string]struct{}, len(def.Attrs))
		for _, spec := range def.Attrs {
			if spec.Name == "" {
				errs = append(errs, fmt.Sprintf("kind %q: empty attribute name", key))
				continue
			}
			if _, dup := attrs[spec.Name]; dup {
				errs = append(errs, fmt.Sprintf("kind %q: duplicate attribute %q", key, spec.Name))
			}
			attrs[spec.Name] = struct{}{}
		}
	}

	for key := range r.kernels {
		if _, ok := r.kinds[key]; !ok {
			errs = append(errs, fmt.Sprintf("kernel %q: no kind registered", key))
		}
	}

	if len(errs) > 0 {
		// Stable report order regardless of map iteration.
		sort.Strings(errs)
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
