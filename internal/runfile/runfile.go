// Package runfile parses the HCL run file: which graph document to
// evaluate, which CSV files feed its inputs, attribute overrides to
// apply before planning, and where requested outputs go.
package runfile

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/vk/eventflowgo/internal/ctxlog"
)

// File is the decoded run file. Relative paths inside it are resolved
// against the file's own directory.
type File struct {
	Path      string
	GraphPath string
	Workers   int
	Inputs    []Input
	Overrides []Override
	Outputs   []Output
}

// Input binds a named graph source to a CSV file.
type Input struct {
	Name            string
	Path            string
	TimestampColumn string
}

// Override patches the attributes of the operator producing the named
// node. Values stay as raw HCL attributes until the operator's
// definition is known; see ConvertAttrs.
type Override struct {
	Name  string
	Attrs hcl.Attributes
}

// Output routes a named node's dataset to a CSV file.
type Output struct {
	Name string
	Path string
}

type fileRoot struct {
	GraphPath string           `hcl:"graph"`
	Workers   int              `hcl:"workers,optional"`
	Inputs    []*inputBlock    `hcl:"input,block"`
	Overrides []*overrideBlock `hcl:"override,block"`
	Outputs   []*outputBlock   `hcl:"output,block"`
}

type inputBlock struct {
	Name            string `hcl:"name,label"`
	Path            string `hcl:"path"`
	TimestampColumn string `hcl:"timestamp_column,optional"`
}

type overrideBlock struct {
	Name string   `hcl:"name,label"`
	Body hcl.Body `hcl:",remain"`
}

type outputBlock struct {
	Name string `hcl:"name,label"`
	Path string `hcl:"path"`
}

// Load parses and validates a run file.
func Load(ctx context.Context, path string) (*File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading run file.", "path", path)

	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse run file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode run file %s: %w", path, diags)
	}

	if root.GraphPath == "" {
		return nil, fmt.Errorf("run file %s: graph path is empty", path)
	}
	if root.Workers < 0 {
		return nil, fmt.Errorf("run file %s: workers must not be negative", path)
	}
	if len(root.Outputs) == 0 {
		return nil, fmt.Errorf("run file %s: at least one output block is required", path)
	}

	dir := filepath.Dir(path)
	file := &File{
		Path:      path,
		GraphPath: resolve(dir, root.GraphPath),
		Workers:   root.Workers,
	}

	seenInputs := make(map[string]bool, len(root.Inputs))
	for _, in := range root.Inputs {
		if seenInputs[in.Name] {
			return nil, fmt.Errorf("run file %s: duplicate input %q", path, in.Name)
		}
		seenInputs[in.Name] = true
		file.Inputs = append(file.Inputs, Input{
			Name:            in.Name,
			Path:            resolve(dir, in.Path),
			TimestampColumn: in.TimestampColumn,
		})
	}

	seenOverrides := make(map[string]bool, len(root.Overrides))
	for _, ov := range root.Overrides {
		if seenOverrides[ov.Name] {
			return nil, fmt.Errorf("run file %s: duplicate override %q", path, ov.Name)
		}
		seenOverrides[ov.Name] = true
		attrs, diags := ov.Body.JustAttributes()
		if diags.HasErrors() {
			return nil, fmt.Errorf("run file %s, override %q: %w", path, ov.Name, diags)
		}
		file.Overrides = append(file.Overrides, Override{Name: ov.Name, Attrs: attrs})
	}

	seenOutputs := make(map[string]bool, len(root.Outputs))
	for _, out := range root.Outputs {
		if seenOutputs[out.Name] {
			return nil, fmt.Errorf("run file %s: duplicate output %q", path, out.Name)
		}
		seenOutputs[out.Name] = true
		file.Outputs = append(file.Outputs, Output{Name: out.Name, Path: resolve(dir, out.Path)})
	}

	logger.Debug("Run file loaded.", "inputs", len(file.Inputs), "overrides", len(file.Overrides), "outputs", len(file.Outputs))
	return file, nil
}

func resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}
