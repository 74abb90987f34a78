// Package eventset is the concrete in-memory dataset container bound to
// graph nodes at evaluation time: events grouped into buckets by index
// key, each bucket holding a sorted timestamp column plus one typed value
// column per feature.
package eventset

import (
	"sort"

	"github.com/vk/eventflowgo/internal/schema"
)

// Bucket holds every event sharing one index key. Timestamps are kept
// ascending; Columns parallels the schema's feature order and every
// column's length equals the timestamp count.
type Bucket struct {
	Key        []KeyValue
	Timestamps []float64
	Columns    []*Column
}

// Column returns the value column at feature position i.
func (b *Bucket) Column(i int) *Column { return b.Columns[i] }

// NumEvents returns the number of events in the bucket.
func (b *Bucket) NumEvents() int { return len(b.Timestamps) }

// SortByTimestamp reorders the bucket's events into ascending timestamp
// order, keeping the original order among equal timestamps.
func (b *Bucket) SortByTimestamp() {
	n := len(b.Timestamps)
	if sort.Float64sAreSorted(b.Timestamps) {
		return
	}
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	sort.SliceStable(perm, func(i, j int) bool {
		return b.Timestamps[perm[i]] < b.Timestamps[perm[j]]
	})
	ts := make([]float64, n)
	for i, p := range perm {
		ts[i] = b.Timestamps[p]
	}
	b.Timestamps = ts
	for i, col := range b.Columns {
		b.Columns[i] = col.gather(perm)
	}
}

// EventSet is one concrete dataset: a schema plus data buckets grouped by
// index key. Iteration over buckets is deterministic (canonical encoded
// key order) so kernels and writers produce identical output across runs.
type EventSet struct {
	schema  *schema.Schema
	buckets map[string]*Bucket
	order   []string
}

// New returns an empty EventSet for the given schema.
func New(s *schema.Schema) *EventSet {
	return &EventSet{
		schema:  s,
		buckets: make(map[string]*Bucket),
	}
}

// Schema returns the dataset's schema.
func (es *EventSet) Schema() *schema.Schema { return es.schema }

// NumBuckets returns the number of distinct index keys.
func (es *EventSet) NumBuckets() int { return len(es.buckets) }

// NumEvents returns the total event count across all buckets.
func (es *EventSet) NumEvents() int {
	n := 0
	for _, b := range es.buckets {
		n += b.NumEvents()
	}
	return n
}

// Bucket looks up the bucket for a key, if present.
func (es *EventSet) Bucket(key []KeyValue) (*Bucket, bool) {
	b, ok := es.buckets[EncodeKey(key)]
	return b, ok
}

// GetOrCreateBucket returns the bucket for a key, creating it with empty
// columns matching the schema's features if absent. The key's component
// dtypes must match the schema's index columns.
func (es *EventSet) GetOrCreateBucket(key []KeyValue) *Bucket {
	enc := EncodeKey(key)
	if b, ok := es.buckets[enc]; ok {
		return b
	}
	cols := make([]*Column, es.schema.NumFeatures())
	for i, f := range es.schema.Features() {
		cols[i] = NewColumn(f.DType)
	}
	b := &Bucket{
		Key:     append([]KeyValue(nil), key...),
		Columns: cols,
	}
	es.buckets[enc] = b
	i := sort.SearchStrings(es.order, enc)
	es.order = append(es.order, "")
	copy(es.order[i+1:], es.order[i:])
	es.order[i] = enc
	return b
}

// Buckets returns all buckets in canonical key order.
func (es *EventSet) Buckets() []*Bucket {
	out := make([]*Bucket, len(es.order))
	for i, enc := range es.order {
		out[i] = es.buckets[enc]
	}
	return out
}

// Equal reports whether two datasets carry the same schema and the same
// events, bucket by bucket. NaNs compare equal so missing float values do
// not poison the comparison.
func (es *EventSet) Equal(o *EventSet) bool {
	if !es.schema.Equal(o.schema) || len(es.buckets) != len(o.buckets) {
		return false
	}
	for enc, b := range es.buckets {
		ob, ok := o.buckets[enc]
		if !ok || len(b.Timestamps) != len(ob.Timestamps) {
			return false
		}
		for i, ts := range b.Timestamps {
			if ts != ob.Timestamps[i] {
				return false
			}
		}
		for i, col := range b.Columns {
			if !col.Equal(ob.Columns[i]) {
				return false
			}
		}
	}
	return true
}

// MemoryUsage approximates the heap bytes held by the dataset's data
// arrays. Used by the executor to log how much a release frees.
func (es *EventSet) MemoryUsage() int {
	n := 0
	for _, b := range es.buckets {
		n += 8 * len(b.Timestamps)
		for _, col := range b.Columns {
			n += col.memoryBytes()
		}
	}
	return n
}
