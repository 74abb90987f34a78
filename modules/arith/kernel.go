package arith

import (
	"context"
	"fmt"
	"math"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// kernel builds the data-level half of one arithmetic kind. Buckets are
// paired by index key and rows by position, which requires both inputs
// to carry the same keys and identical timestamps per key.
func kernel(o op) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		left, right := inputs[0], inputs[1]
		outSchema, err := binaryKind{op: o}.InferSchemas([]*schema.Schema{left.Schema(), right.Schema()}, nil)
		if err != nil {
			return nil, err
		}
		out := eventset.New(outSchema[0])
		if left.NumBuckets() != right.NumBuckets() {
			return nil, fmt.Errorf("%s: left has %d index keys, right has %d", o.key, left.NumBuckets(), right.NumBuckets())
		}
		for _, lb := range left.Buckets() {
			rb, ok := right.Bucket(lb.Key)
			if !ok {
				return nil, fmt.Errorf("%s: right input is missing index key [%s]", o.key, keyString(lb.Key))
			}
			if !sameTimestamps(lb.Timestamps, rb.Timestamps) {
				return nil, fmt.Errorf("%s: inputs have different timestamps for index key [%s]", o.key, keyString(lb.Key))
			}
			ob := out.GetOrCreateBucket(lb.Key)
			ob.Timestamps = append([]float64(nil), lb.Timestamps...)
			for i := range lb.Columns {
				ob.Columns[i] = applyColumn(o, lb.Column(i), rb.Column(i))
			}
		}
		return []*eventset.EventSet{out}, nil
	}
}

func applyColumn(o op, left, right *eventset.Column) *eventset.Column {
	switch left.DType() {
	case schema.Float64:
		a, b := left.Float64s(), right.Float64s()
		vals := make([]float64, len(a))
		for i := range a {
			vals[i] = o.f(a[i], b[i])
		}
		return eventset.Float64Column(vals)
	case schema.Float32:
		a, b := left.Float32s(), right.Float32s()
		vals := make([]float32, len(a))
		for i := range a {
			vals[i] = float32(o.f(float64(a[i]), float64(b[i])))
		}
		return eventset.Float32Column(vals)
	case schema.Int64:
		a, b := left.Int64s(), right.Int64s()
		vals := make([]int64, len(a))
		for i := range a {
			vals[i] = o.i(a[i], b[i])
		}
		return eventset.Int64Column(vals)
	case schema.Int32:
		a, b := left.Int32s(), right.Int32s()
		vals := make([]int32, len(a))
		for i := range a {
			vals[i] = int32(o.i(int64(a[i]), int64(b[i])))
		}
		return eventset.Int32Column(vals)
	}
	panic("arith: non-numeric column slipped past schema inference")
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

func addF(a, b float64) float64  { return a + b }
func subF(a, b float64) float64  { return a - b }
func multF(a, b float64) float64 { return a * b }
func divF(a, b float64) float64  { return a / b }

func floordivF(a, b float64) float64 { return math.Floor(a / b) }

// modF is the floored modulo: the result takes the divisor's sign.
func modF(a, b float64) float64 {
	r := math.Mod(a, b)
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

func powF(a, b float64) float64 { return math.Pow(a, b) }

func addI(a, b int64) int64  { return a + b }
func subI(a, b int64) int64  { return a - b }
func multI(a, b int64) int64 { return a * b }

// floordivI rounds toward negative infinity and yields zero for a zero
// divisor instead of faulting.
func floordivI(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// modI is the floored modulo and yields zero for a zero divisor.
func modI(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	r := a % b
	if r != 0 && (r < 0) != (b < 0) {
		r += b
	}
	return r
}

// powI is integer exponentiation; negative exponents underflow to zero.
func powI(a, b int64) int64 {
	if b < 0 {
		return 0
	}
	result := int64(1)
	for ; b > 0; b >>= 1 {
		if b&1 == 1 {
			result *= a
		}
		a *= a
	}
	return result
}
