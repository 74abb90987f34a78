package serialize_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/eventflowgo/internal/graph"
	"github.com/vk/eventflowgo/internal/opdef"
	"github.com/vk/eventflowgo/internal/registry"
	"github.com/vk/eventflowgo/internal/schedule"
	"github.com/vk/eventflowgo/internal/schema"
	"github.com/vk/eventflowgo/internal/serialize"
	"github.com/vk/eventflowgo/internal/testutil"
)

// allAttrsKind exists to push one value of every attribute type through
// the codec.
type allAttrsKind struct{}

func (allAttrsKind) Definition() opdef.Definition {
	return opdef.Definition{
		Key:     "ALL_ATTRS",
		Inputs:  []string{"input"},
		Outputs: []string{"output"},
		Attrs: []opdef.AttrSpec{
			{Name: "s", Type: opdef.TypeString},
			{Name: "i", Type: opdef.TypeInt},
			{Name: "f", Type: opdef.TypeFloat},
			{Name: "b", Type: opdef.TypeBool},
			{Name: "d", Type: opdef.TypeDuration},
			{Name: "ss", Type: opdef.TypeStrings},
			{Name: "dt", Type: opdef.TypeDType},
		},
	}
}

func (allAttrsKind) InferSchemas(inputs []*schema.Schema, _ opdef.Attributes) ([]*schema.Schema, error) {
	return []*schema.Schema{inputs[0]}, nil
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	reg := testutil.StubRegistry()
	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("price", "qty"))
	require.NoError(t, err)
	added, err := g.AddOperator("ADD_CONST", []graph.NodeID{x}, opdef.Attributes{"value": opdef.FloatValue(2.5)})
	require.NoError(t, err)
	split, err := g.AddOperator("SPLIT", []graph.NodeID{added[0]}, nil)
	require.NoError(t, err)
	require.NoError(t, g.NameNode(split[0], "first"))

	data, err := serialize.Encode(g)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind": "ADD_CONST"`)
	assert.Contains(t, string(data), `"type": "float"`)

	restored, err := serialize.Decode(reg, data)
	require.NoError(t, err)

	require.Equal(t, g.NumNodes(), restored.NumNodes())
	require.Equal(t, g.NumOps(), restored.NumOps())
	for _, n := range g.Nodes() {
		rn := restored.Node(n.ID())
		assert.Equal(t, n.Name(), rn.Name())
		assert.True(t, n.Schema().Equal(rn.Schema()))
	}
	for _, op := range g.Ops() {
		rop := restored.Op(op.ID())
		assert.Equal(t, op.Kind(), rop.Kind())
		assert.True(t, op.Attrs().Equal(rop.Attrs()))
		assert.Equal(t, op.Inputs(), rop.Inputs())
		assert.Equal(t, op.Outputs(), rop.Outputs())
	}

	named, ok := restored.NodeByName("first")
	require.True(t, ok)
	assert.Equal(t, split[0], named.ID())
}

func TestAttributeTypesSurviveRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.RegisterKind(allAttrsKind{})

	g := graph.New(reg)
	x, err := g.AddSource("x", testutil.FloatSchema("v"))
	require.NoError(t, err)
	attrs := opdef.Attributes{
		"s":  opdef.StringValue("hello"),
		"i":  opdef.IntValue(42),
		"f":  opdef.FloatValue(3.25),
		"b":  opdef.BoolValue(true),
		"d":  opdef.DurationValue(3 * time.Hour),
		"ss": opdef.StringsValue("a", "b"),
		"dt": opdef.DTypeValue(schema.Int32),
	}
	_, err = g.AddOperator("ALL_ATTRS", []graph.NodeID{x}, attrs)
	require.NoError(t, err)

	data, err := serialize.Encode(g)
	require.NoError(t, err)
	restored, err := serialize.Decode(reg, data)
	require.NoError(t, err)

	assert.True(t, attrs.Equal(restored.Op(0).Attrs()))
}

func TestDecodeCyclicDocument(t *testing.T) {
	// A cycle cannot be built through the API, but a document may state
	// one. Decoding succeeds; planning is where it fails.
	doc := `{
  "version": 1,
  "nodes": [
    {"name": "p", "schema": {"features": [{"name": "v", "dtype": "float64"}]}, "producer": 1},
    {"name": "q", "schema": {"features": [{"name": "v", "dtype": "float64"}]}, "producer": 0}
  ],
  "operators": [
    {"kind": "PASS", "inputs": [0], "outputs": [1]},
    {"kind": "PASS", "inputs": [1], "outputs": [0]}
  ]
}`
	g, err := serialize.Decode(testutil.StubRegistry(), []byte(doc))
	require.NoError(t, err)

	_, err = schedule.Build(g, []graph.NodeID{0}, nil)
	assert.ErrorIs(t, err, schedule.ErrCycle)
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	reg := testutil.StubRegistry()

	t.Run("wrong version", func(t *testing.T) {
		_, err := serialize.Decode(reg, []byte(`{"version": 99, "nodes": [], "operators": []}`))
		assert.ErrorContains(t, err, "version 99")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := serialize.Decode(reg, []byte(`{"version": 1,`))
		assert.ErrorContains(t, err, "parse graph document")
	})

	t.Run("unknown kind", func(t *testing.T) {
		doc := `{
  "version": 1,
  "nodes": [
    {"schema": {"features": [{"name": "v", "dtype": "float64"}]}, "producer": -1},
    {"schema": {"features": [{"name": "v", "dtype": "float64"}]}, "producer": 0}
  ],
  "operators": [{"kind": "NO_SUCH_KIND", "inputs": [0], "outputs": [1]}]
}`
		_, err := serialize.Decode(reg, []byte(doc))
		var unknown *graph.UnknownKindError
		require.ErrorAs(t, err, &unknown)
		assert.Equal(t, "NO_SUCH_KIND", unknown.Kind)
	})

	t.Run("unknown dtype", func(t *testing.T) {
		doc := `{
  "version": 1,
  "nodes": [{"schema": {"features": [{"name": "v", "dtype": "complex128"}]}, "producer": -1}],
  "operators": []
}`
		_, err := serialize.Decode(reg, []byte(doc))
		assert.ErrorContains(t, err, "complex128")
	})

	t.Run("tampered output schema", func(t *testing.T) {
		// PASS must preserve the schema; a document claiming otherwise
		// fails inference re-validation.
		doc := `{
  "version": 1,
  "nodes": [
    {"schema": {"features": [{"name": "v", "dtype": "float64"}]}, "producer": -1},
    {"schema": {"features": [{"name": "v", "dtype": "int64"}]}, "producer": 0}
  ],
  "operators": [{"kind": "PASS", "inputs": [0], "outputs": [1]}]
}`
		_, err := serialize.Decode(reg, []byte(doc))
		assert.ErrorContains(t, err, "disagrees")
	})
}
