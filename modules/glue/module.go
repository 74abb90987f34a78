// Package glue registers the GLUE operator kind: it concatenates the
// features of two inputs sharing the same index columns and, at run
// time, exactly the same timestamps per index key. Feature names must
// not collide. GLUE is binary; chain it to combine more inputs.
package glue

import (
	"context"
	"fmt"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the GLUE kind and kernel.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind(glueKind{})
	r.RegisterKernel("GLUE", registry.KernelFunc(glueKernel))
}

type glueKind struct{}

func (glueKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "GLUE",
		Inputs:  []string{"left", "right"},
		Outputs: []string{"output"},
	}
}

func (glueKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	left, right := inputs[0], inputs[1]
	if !left.EqualIndexes(right) {
		return nil, &schema.SchemaError{Subject: "GLUE", Reason: "inputs have different index columns"}
	}
	if left.UnixTime() != right.UnixTime() {
		return nil, &schema.SchemaError{Subject: "GLUE", Reason: "inputs have different time units"}
	}
	features := append(left.Features(), right.Features()...)
	out, err := schema.New(features, left.Indexes())
	if err != nil {
		return nil, err
	}
	if left.UnixTime() {
		out = out.WithUnixTime()
	}
	return []*schema.Schema{out}, nil
}

func glueKernel(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
	left, right := inputs[0], inputs[1]
	outSchema, err := glueKind{}.InferSchemas([]*schema.Schema{left.Schema(), right.Schema()}, nil)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])
	if left.NumBuckets() != right.NumBuckets() {
		return nil, fmt.Errorf("GLUE: left has %d index keys, right has %d", left.NumBuckets(), right.NumBuckets())
	}
	nLeft := left.Schema().NumFeatures()
	for _, lb := range left.Buckets() {
		rb, ok := right.Bucket(lb.Key)
		if !ok {
			return nil, fmt.Errorf("GLUE: right input is missing index key [%s]", keyString(lb.Key))
		}
		if !sameTimestamps(lb.Timestamps, rb.Timestamps) {
			return nil, fmt.Errorf("GLUE: inputs have different timestamps for index key [%s]", keyString(lb.Key))
		}
		ob := out.GetOrCreateBucket(lb.Key)
		ob.Timestamps = append([]float64(nil), lb.Timestamps...)
		copy(ob.Columns, lb.Columns)
		copy(ob.Columns[nLeft:], rb.Columns)
	}
	return []*eventset.EventSet{out}, nil
}

func sameTimestamps(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func keyString(key []eventset.KeyValue) string {
	s := ""
	for i, kv := range key {
		if i > 0 {
			s += ", "
		}
		s += kv.String()
	}
	return s
}
