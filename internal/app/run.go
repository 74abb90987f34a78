package app

import (
	"context"
	"fmt"
	"os"

	"github.com/vk/eventflowgo/internal/ctxlog"
	"github.com/vk/eventflowgo/internal/eval"
	"github.com/vk/eventflowgo/internal/eventset"
	"github.com/vk/eventflowgo/internal/evio"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/runfile"
	"github.com/vk/eventflowgo/internal/schedule"
	"github.com/vk/eventflowgo/internal/serialize"
)

// Run executes one evaluation described by the configured run file.
func (a *App) Run(ctx context.Context, cfg *Config) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	rf, err := runfile.Load(ctx, cfg.RunPath)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(rf.GraphPath)
	if err != nil {
		return fmt.Errorf("read graph document: %w", err)
	}
	g, err := serialize.Decode(a.registry, data)
	if err != nil {
		return fmt.Errorf("decode graph document %s: %w", rf.GraphPath, err)
	}
	a.logger.Debug("Graph document decoded.", "nodes", g.NumNodes(), "operators", g.NumOps())

	g, err = applyOverrides(g, rf.Overrides)
	if err != nil {
		return err
	}

	available := make([]graph.NodeID, 0, len(rf.Inputs))
	inputByID := make(map[graph.NodeID]runfile.Input, len(rf.Inputs))
	for _, in := range rf.Inputs {
		node, ok := g.NodeByName(in.Name)
		if !ok {
			return fmt.Errorf("input %q: the graph has no node with that name", in.Name)
		}
		available = append(available, node.ID())
		inputByID[node.ID()] = in
	}
	requested := make([]graph.NodeID, 0, len(rf.Outputs))
	for _, out := range rf.Outputs {
		node, ok := g.NodeByName(out.Name)
		if !ok {
			return fmt.Errorf("output %q: the graph has no node with that name", out.Name)
		}
		requested = append(requested, node.ID())
	}

	sched, err := schedule.Build(g, requested, available)
	if err != nil {
		return fmt.Errorf("plan evaluation: %w", err)
	}
	a.logger.Info("Evaluation planned.", "steps", sched.NumSteps(), "inputs", len(sched.Inputs()))

	// Only inputs the plan actually consumes are loaded.
	specs := make([]evio.InputSpec, 0, len(sched.Inputs()))
	for _, id := range sched.Inputs() {
		in := inputByID[id]
		specs = append(specs, evio.InputSpec{
			Name:            in.Name,
			Path:            in.Path,
			Schema:          g.Node(id).Schema(),
			TimestampColumn: in.TimestampColumn,
		})
	}
	named, err := evio.LoadInputs(ctx, specs)
	if err != nil {
		return fmt.Errorf("load inputs: %w", err)
	}
	datasets := make(map[graph.NodeID]*eventset.EventSet, len(specs))
	for _, spec := range specs {
		node, _ := g.NodeByName(spec.Name)
		datasets[node.ID()] = named[spec.Name]
	}

	workers := cfg.Workers
	if workers == 0 {
		workers = rf.Workers
	}
	a.logger.Info("Starting evaluation.", "workers", workers)
	results, err := eval.Run(ctx, sched, datasets, eval.Options{Workers: workers})
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}
	a.logger.Info("Evaluation finished.", "outputs", len(results))

	for _, out := range rf.Outputs {
		node, _ := g.NodeByName(out.Name)
		es := results[node.ID()]
		if err := evio.WriteCSVFile(out.Path, es); err != nil {
			return fmt.Errorf("write output %q: %w", out.Name, err)
		}
		a.logger.Info("Output written.", "output", out.Name, "path", out.Path, "events", es.NumEvents())
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
