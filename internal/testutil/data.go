package testutil

import (
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/schema"
)

// FloatSchema builds an index-free schema of float64 features.
func FloatSchema(names ...string) *schema.Schema {
	features := make([]schema.Feature, len(names))
	for i, n := range names {
		features[i] = schema.Feature{Name: n, DType: schema.Float64}
	}
	return schema.MustNew(features, nil)
}

// FlatEventSet builds a dataset with a single index-free bucket from
// parallel timestamp and value slices, one values slice per feature.
func FlatEventSet(s *schema.Schema, ts []float64, values ...[]float64) *eventset.EventSet {
	if len(values) != s.NumFeatures() {
		panic("testutil: value slice count does not match feature count")
	}
	for _, v := range values {
		if len(v) != len(ts) {
			panic("testutil: value slice length does not match timestamp count")
		}
	}
	es := eventset.New(s)
	b := es.GetOrCreateBucket(nil)
	b.Timestamps = append([]float64(nil), ts...)
	for i, v := range values {
		b.Columns[i] = eventset.Float64Column(append([]float64(nil), v...))
	}
	return es
}

// FlatBucket returns the single bucket of an index-free dataset.
func FlatBucket(es *eventset.EventSet) *eventset.Bucket {
	b, ok := es.Bucket(nil)
	if !ok {
		panic("testutil: dataset has no index-free bucket")
	}
	return b
}
