package join

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// rowKey pairs one row's timestamp with its join value; On stays zero
// when no "on" attribute is set.
type rowKey struct {
	ts float64
	on int64
}

// joinKernel pairs each left row with the first right row of the same
// index key carrying an equal timestamp (and equal "on" value when
// configured). The output keeps the left input's buckets and sampling.
func joinKernel(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	left, right := inputs[0], inputs[1]
	outSchema, err := joinKind{}.InferSchemas([]*schema.Schema{left.Schema(), right.Schema()}, attrs)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])

	on := attrs["on"].Str()
	leftOn, rightOn := -1, -1
	var rightCols []int
	for c, f := range left.Schema().Features() {
		if on != "" && f.Name == on {
			leftOn = c
		}
	}
	rightFeatures := right.Schema().Features()
	for c, f := range rightFeatures {
		if on != "" && f.Name == on {
			rightOn = c
			continue
		}
		rightCols = append(rightCols, c)
	}
	nLeft := left.Schema().NumFeatures()

	for _, lb := range left.Buckets() {
		ob := out.GetOrCreateBucket(lb.Key)
		ob.Timestamps = append([]float64(nil), lb.Timestamps...)
		copy(ob.Columns, lb.Columns)

		var lookup map[rowKey]int
		rb, haveRight := right.Bucket(lb.Key)
		if haveRight {
			lookup = make(map[rowKey]int, rb.NumEvents())
			for r := 0; r < rb.NumEvents(); r++ {
				k := rowKey{ts: rb.Timestamps[r]}
				if rightOn >= 0 {
					k.on = rb.Column(rightOn).Int64s()[r]
				}
				if _, dup := lookup[k]; !dup {
					lookup[k] = r
				}
			}
		}

		for j, c := range rightCols {
			dst := eventset.NewColumn(rightFeatures[c].DType)
			for r := 0; r < lb.NumEvents(); r++ {
				k := rowKey{ts: lb.Timestamps[r]}
				if leftOn >= 0 {
					k.on = lb.Column(leftOn).Int64s()[r]
				}
				if src, ok := lookup[k]; ok {
					dst.AppendFrom(rb.Column(c), src)
				} else {
					dst.AppendMissing()
				}
			}
			ob.Columns[nLeft+j] = dst
		}
	}
	return []*eventset.EventSet{out}, nil
}
