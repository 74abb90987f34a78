// Package calendar registers the operator kinds deriving calendar fields
// from event timestamps: CALENDAR_MONTH (1 to 12), CALENDAR_YEAR and
// CALENDAR_DAY_OF_WEEK (0 is Monday). They require the input schema to
// declare Unix epoch timestamps and evaluate in UTC, ignoring the
// input's features entirely.
package calendar

import (
	"context"
	"time"

	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schema"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the calendar kinds and kernels.
func (m *Module) Register(r *registry.Registry) {
	for _, op := range ops {
		r.RegisterKind(calendarKind{op: op})
		r.RegisterKernel(op.key, kernel(op))
	}
}

type op struct {
	key     string
	feature string
	field   func(t time.Time) int32
}

var ops = []op{
	{
		key:     "CALENDAR_MONTH",
		feature: "calendar_month",
		field:   func(t time.Time) int32 { return int32(t.Month()) },
	},
	{
		key:     "CALENDAR_YEAR",
		feature: "calendar_year",
		field:   func(t time.Time) int32 { return int32(t.Year()) },
	},
	{
		key:     "CALENDAR_DAY_OF_WEEK",
		feature: "calendar_day_of_week",
		field:   func(t time.Time) int32 { return int32((int(t.Weekday()) + 6) % 7) },
	},
}

type calendarKind struct {
	op op
}

func (k calendarKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     k.op.key,
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
	}
}

func (k calendarKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	in := inputs[0]
	if !in.UnixTime() {
		return nil, &schema.SchemaError{
			Subject: k.op.key,
			Reason:  "input timestamps are not Unix epoch seconds",
		}
	}
	out, err := schema.New([]schema.Feature{{Name: k.op.feature, DType: schema.Int32}}, in.Indexes())
	if err != nil {
		return nil, err
	}
	return []*schema.Schema{out.WithUnixTime()}, nil
}

func kernel(o op) registry.KernelFunc {
	return func(_ context.Context, inputs []*eventset.EventSet, _ opdef.Attributes) ([]*eventset.EventSet, error) {
		in := inputs[0]
		outSchema, err := calendarKind{op: o}.InferSchemas([]*schema.Schema{in.Schema()}, nil)
		if err != nil {
			return nil, err
		}
		out := eventset.New(outSchema[0])
		for _, b := range in.Buckets() {
			ob := out.GetOrCreateBucket(b.Key)
			ob.Timestamps = b.Timestamps
			vals := make([]int32, len(b.Timestamps))
			for i, ts := range b.Timestamps {
				sec, frac := int64(ts), ts-float64(int64(ts))
				t := time.Unix(sec, int64(frac*1e9)).UTC()
				vals[i] = o.field(t)
			}
			ob.Columns[0] = eventset.Int32Column(vals)
		}
		return []*eventset.EventSet{out}, nil
	}
}
