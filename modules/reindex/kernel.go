package reindex

import (
	"context"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// setIndexKernel regroups every event under its new index key one row at
// a time. Rows from different source buckets can land in the same target
// bucket, so each target bucket is re-sorted by timestamp at the end.
func setIndexKernel(_ context.Context, inputs []*eventset.EventSet, attrs opdef.Attributes) ([]*eventset.EventSet, error) {
	in := inputs[0]
	outSchema, err := setIndexKind{}.InferSchemas([]*schema.Schema{in.Schema()}, attrs)
	if err != nil {
		return nil, err
	}
	out := eventset.New(outSchema[0])

	names := attrs["features"].Strings()
	moved := make(map[string]struct{}, len(names))
	for _, name := range names {
		moved[name] = struct{}{}
	}
	var keyCols, keepCols []int
	inFeatures := in.Schema().Features()
	for _, name := range names {
		for c, f := range inFeatures {
			if f.Name == name {
				keyCols = append(keyCols, c)
			}
		}
	}
	for c, f := range inFeatures {
		if _, ok := moved[f.Name]; !ok {
			keepCols = append(keepCols, c)
		}
	}
	appendOld := attrs["append"].Bool()

	for _, b := range in.Buckets() {
		for r := 0; r < b.NumEvents(); r++ {
			var key []eventset.KeyValue
			if appendOld {
				key = append(key, b.Key...)
			}
			for _, c := range keyCols {
				key = append(key, keyValueAt(b.Column(c), r))
			}
			ob := out.GetOrCreateBucket(key)
			ob.Timestamps = append(ob.Timestamps, b.Timestamps[r])
			for j, c := range keepCols {
				ob.Columns[j].AppendFrom(b.Column(c), r)
			}
		}
	}
	for _, ob := range out.Buckets() {
		ob.SortByTimestamp()
	}
	return []*eventset.EventSet{out}, nil
}

func keyValueAt(col *eventset.Column, i int) eventset.KeyValue {
	switch col.DType() {
	case schema.Int64:
		return eventset.Int64Key(col.Int64s()[i])
	case schema.Int32:
		return eventset.Int32Key(col.Int32s()[i])
	default:
		return eventset.StrKey(col.Strings()[i])
	}
}
