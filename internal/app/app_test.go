package app

import (
	"testing"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/runfile"
	"github.com/vk/eventflowgo/internal/testutil"
	"github.com/vk/eventflowgo/modules/prefix"
)

func TestNewAppRegistersCoreKinds(t *testing.T) {
	cfg := &Config{RunPath: "run.hcl"}
	app, logBuffer := SetupAppTest(t, cfg)

	keys := app.Registry().Keys()
	assert.Len(t, keys, 37)
	for _, key := range []string{
		"LAG", "LEAK", "ADDITION", "EQUAL", "ADDITION_SCALAR", "ABS",
		"SIMPLE_MOVING_AVERAGE", "RESAMPLE", "GLUE", "PREFIX", "CAST",
		"CALENDAR_MONTH", "SET_INDEX", "JOIN",
	} {
		assert.Contains(t, keys, key)
	}

	assert.Contains(t, logBuffer.String(), "All operator modules registered.")
}

// kindOnlyModule registers a kind but forgets its kernel.
type kindOnlyModule struct{}

func (kindOnlyModule) Register(r *registry.Registry) {
	r.RegisterKind(testutil.PassKind{})
}

func TestNewAppPanicsOnIncompleteModule(t *testing.T) {
	logBuffer := &testutil.SafeBuffer{}
	cfg := &Config{RunPath: "run.hcl"}
	require.Panics(t, func() {
		NewApp(logBuffer, cfg, kindOnlyModule{})
	})
}

func parseOverrideAttrs(t *testing.T, src string) hcl.Attributes {
	t.Helper()
	f, diags := hclparse.NewParser().ParseHCL([]byte(src), "override.hcl")
	require.False(t, diags.HasErrors(), diags.Error())
	attrs, diags := f.Body.JustAttributes()
	require.False(t, diags.HasErrors(), diags.Error())
	return attrs
}

// stubGraph is prices -> ADD_CONST(value=1) -> shifted.
func stubGraph(t *testing.T) *graph.Graph {
	t.Helper()
	g := graph.New(testutil.StubRegistry())
	src, err := g.AddSource("prices", testutil.FloatSchema("x"))
	require.NoError(t, err)
	outs, err := g.AddOperator("ADD_CONST", []graph.NodeID{src}, opdef.Attributes{"value": opdef.FloatValue(1)})
	require.NoError(t, err)
	require.NoError(t, g.NameNode(outs[0], "shifted"))
	return g
}

func TestApplyOverrides(t *testing.T) {
	t.Run("patches the named operator", func(t *testing.T) {
		g := stubGraph(t)
		patched, err := applyOverrides(g, []runfile.Override{
			{Name: "shifted", Attrs: parseOverrideAttrs(t, `value = 5`)},
		})
		require.NoError(t, err)

		assert.Equal(t, 5.0, patched.Op(0).Attrs()["value"].Float())
		assert.Equal(t, g.NumNodes(), patched.NumNodes())
		assert.Equal(t, g.NumOps(), patched.NumOps())

		// The original graph is left alone.
		assert.Equal(t, 1.0, g.Op(0).Attrs()["value"].Float())
	})

	t.Run("no overrides returns the graph unchanged", func(t *testing.T) {
		g := stubGraph(t)
		patched, err := applyOverrides(g, nil)
		require.NoError(t, err)
		assert.Same(t, g, patched)
	})

	t.Run("unknown node name", func(t *testing.T) {
		g := stubGraph(t)
		_, err := applyOverrides(g, []runfile.Override{
			{Name: "bogus", Attrs: parseOverrideAttrs(t, `value = 5`)},
		})
		assert.ErrorContains(t, err, "the graph has no node with that name")
	})

	t.Run("source nodes cannot be patched", func(t *testing.T) {
		g := stubGraph(t)
		_, err := applyOverrides(g, []runfile.Override{
			{Name: "prices", Attrs: parseOverrideAttrs(t, `value = 5`)},
		})
		assert.ErrorContains(t, err, "there is no operator to patch")
	})

	t.Run("attribute unknown to the operator", func(t *testing.T) {
		g := stubGraph(t)
		_, err := applyOverrides(g, []runfile.Override{
			{Name: "shifted", Attrs: parseOverrideAttrs(t, `wavelength = 5`)},
		})
		assert.ErrorIs(t, err, opdef.ErrAttr)
	})

	t.Run("schema-changing override is rejected", func(t *testing.T) {
		reg := registry.New()
		(&prefix.Module{}).Register(reg)
		require.NoError(t, reg.Validate())

		g := graph.New(reg)
		src, err := g.AddSource("prices", testutil.FloatSchema("x"))
		require.NoError(t, err)
		outs, err := g.AddOperator("PREFIX", []graph.NodeID{src}, opdef.Attributes{"prefix": opdef.StringValue("a_")})
		require.NoError(t, err)
		require.NoError(t, g.NameNode(outs[0], "renamed"))

		// A new prefix renames the output features, so the stored
		// schema no longer matches what inference computes.
		_, err = applyOverrides(g, []runfile.Override{
			{Name: "renamed", Attrs: parseOverrideAttrs(t, `prefix = "b_"`)},
		})
		assert.ErrorContains(t, err, "apply overrides")
		assert.ErrorContains(t, err, "disagrees with inferred")
	})
}
