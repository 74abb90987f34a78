package integration_tests

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/eventflowgo/internal/app"
	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/serialize"
)

// harnessResult holds the outcomes of one full evaluation run.
type harnessResult struct {
	Dir       string
	LogOutput string
	Err       error
}

// runEvaluation is the harness for end-to-end tests. It creates a temp
// directory, lets the test build a graph against the app's own registry,
// writes the encoded graph document as graph.json next to the given
// files, and runs one evaluation driven by run.hcl. Relative paths in
// the run file resolve against the temp directory.
func runEvaluation(t *testing.T, build func(t *testing.T, g *graph.Graph), files map[string]string) *harnessResult {
	t.Helper()

	dir := t.TempDir()
	cfg, err := app.NewConfig(app.Config{RunPath: filepath.Join(dir, "run.hcl"), LogFormat: "text"})
	require.NoError(t, err)
	testApp, logBuffer := app.SetupAppTest(t, cfg)

	g := graph.New(testApp.Registry())
	build(t, g)
	doc, err := serialize.Encode(g)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graph.json"), doc, 0o644))

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	runErr := testApp.Run(context.Background(), cfg)
	return &harnessResult{Dir: dir, LogOutput: logBuffer.String(), Err: runErr}
}

// readOutput returns the lines of a CSV the evaluation wrote.
func readOutput(t *testing.T, dir, name string) []string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}
