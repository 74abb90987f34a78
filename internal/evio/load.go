package evio

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/vk/eventflowgo/internal/ctxlog"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/schema"
)

// InputSpec binds one named graph input to a CSV file.
type InputSpec struct {
	Name            string
	Path            string
	Schema          *schema.Schema
	TimestampColumn string
}

// LoadInputs reads every input file concurrently and returns the
// datasets keyed by input name. The first failure cancels the rest.
func LoadInputs(ctx context.Context, specs []InputSpec) (map[string]*eventset.EventSet, error) {
	logger := ctxlog.FromContext(ctx)
	results := make([]*eventset.EventSet, len(specs))

	eg, ctx := errgroup.WithContext(ctx)
	for i, spec := range specs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			es, err := ReadCSVFile(spec.Path, spec.Schema, spec.TimestampColumn)
			if err != nil {
				return err
			}
			logger.Debug("Loaded input.", "input", spec.Name, "path", spec.Path, "events", es.NumEvents(), "buckets", es.NumBuckets())
			results[i] = es
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*eventset.EventSet, len(specs))
	for i, spec := range specs {
		out[spec.Name] = results[i]
	}
	return out, nil
}
