package worksheet

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/fire"
	"github.com/roach88/firegraph/internal/ir"
)

func TestMain(m *testing.M) {
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	os.Exit(m.Run())
}

func surfaceDag(t *testing.T, opts ...engine.Option) (*engine.Dag, *engine.MemorySink) {
	t.Helper()
	cat, err := fire.SurfaceCatalog()
	require.NoError(t, err)
	sink := engine.NewMemorySink()
	d := engine.New(cat, append([]engine.Option{engine.WithSink(sink)}, opts...)...)
	require.NoError(t, d.Err())
	return d, sink
}

func TestLoad(t *testing.T) {
	ws, err := Load(filepath.Join("testdata", "wind_sweep.hcl"))
	require.NoError(t, err)

	assert.Equal(t, "wind-sweep", ws.Dag)
	assert.Equal(t, "recursive", ws.Strategy)
	assert.Equal(t, 100, ws.RunLimit)
	assert.Equal(t, []string{"surface.fire.spreadRate.head"}, ws.Select)
	assert.Equal(t, []Config{{Key: "configure.slope.steepness", Value: ir.Text("ratio")}}, ws.Configs)

	require.Len(t, ws.Inputs, 3)
	assert.Equal(t, Input{Key: "surface.fuel.spreadRate.basic", Values: []ir.Value{ir.Number(10)}}, ws.Inputs[0])
	assert.Equal(t, Input{Key: "site.slope.steepness.ratio", Values: []ir.Value{ir.Number(0.2)}}, ws.Inputs[1])
	assert.Equal(t, Input{
		Key:     "site.wind.speed.atMidflame",
		Values:  []ir.Value{ir.Number(0), ir.Number(5), ir.Number(10)},
		Display: true,
	}, ws.Inputs[2])
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.hcl"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read worksheet")
}

func TestWorksheetRun(t *testing.T) {
	ws, err := Load(filepath.Join("testdata", "wind_sweep.hcl"))
	require.NoError(t, err)

	opts, err := ws.Options()
	require.NoError(t, err)
	d, sink := surfaceDag(t, opts...)

	require.NoError(t, ws.Apply(d))
	assert.Equal(t, "wind-sweep", d.Name())
	assert.Equal(t, engine.StrategyRecursive, d.Strategy().Name())
	assert.Equal(t, 100, d.RunLimit())

	wind, ok, err := d.Inputs("site.wind.speed.atMidflame")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, wind, 3)
	assert.InDelta(t, 440, float64(wind[1].(ir.Number)), 1e-9, "display mi/h converted to ft/min")

	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Combinations)

	got := sink.Values("surface.fire.spreadRate.head")
	require.Len(t, got, 3)
	want := []float64{12.111616000000001, 109.95410267475268, 236.89462298421543}
	for i := range want {
		assert.InDelta(t, want[i], float64(got[i].(ir.Number)), 1e-6)
	}
}

func TestParse_Functions(t *testing.T) {
	src := `
input "site.temperature.air" {
  values = concat([50, 60], range(70, 90, 10), [max(95, 100)])
}
`
	ws, err := Parse("functions.hcl", []byte(src))
	require.NoError(t, err)
	require.Len(t, ws.Inputs, 1)
	assert.Equal(t, []ir.Value{
		ir.Number(50), ir.Number(60), ir.Number(70), ir.Number(80), ir.Number(100),
	}, ws.Inputs[0].Values)
}

func TestParse_Values(t *testing.T) {
	src := `
config "configure.wind.speed" {
  value = null
}
input "a" {
  values = ["x", true, null, 1.5]
}
`
	ws, err := Parse("values.hcl", []byte(src))
	require.NoError(t, err)
	assert.Equal(t, ir.Null{}, ws.Configs[0].Value)
	assert.Equal(t, []ir.Value{ir.Text("x"), ir.Bool(true), ir.Null{}, ir.Number(1.5)}, ws.Inputs[0].Values)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{
			name:    "syntax",
			src:     `dag = `,
			wantErr: "failed to parse worksheet",
		},
		{
			name:    "unknown attribute",
			src:     `fuel = "grass"`,
			wantErr: "failed to decode worksheet",
		},
		{
			name:    "missing label",
			src:     `input { values = [1] }`,
			wantErr: "failed to decode worksheet",
		},
		{
			name:    "missing values",
			src:     `input "a" {}`,
			wantErr: "failed to decode worksheet",
		},
		{
			name:    "unknown function",
			src:     `input "a" { values = upper("x") }`,
			wantErr: "failed to decode worksheet",
		},
		{
			name:    "unknown strategy",
			src:     `strategy = "breadth"`,
			wantErr: "unknown strategy",
		},
		{
			name:    "run limit",
			src:     `run_limit = 0`,
			wantErr: "run_limit must be positive",
		},
		{
			name:    "duplicate input",
			src:     "input \"a\" { values = [1] }\ninput \"a\" { values = [2] }",
			wantErr: `duplicate input block "a"`,
		},
		{
			name:    "duplicate config",
			src:     "config \"c\" { value = 1 }\nconfig \"c\" { value = 2 }",
			wantErr: `duplicate config block "c"`,
		},
		{
			name:    "object value",
			src:     `input "a" { values = [{x = 1}] }`,
			wantErr: "unsupported value type",
		},
		{
			name:    "null values",
			src:     `input "a" { values = null }`,
			wantErr: "values must be a known list",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("bad.hcl", []byte(tt.src))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApply_InvalidInputs(t *testing.T) {
	src := `
input "site.wind.speed.atMidflame" {
  values = [0, -5]
  display = true
}
input "site.temperature.air" {
  values = [70, "warm"]
}
`
	ws, err := Parse("invalid.hcl", []byte(src))
	require.NoError(t, err)

	d, _ := surfaceDag(t)
	require.NoError(t, d.Input(engine.Input("site.temperature.air", ir.Number(60))))

	err = ws.Apply(d)
	var invalid *InvalidInputError
	require.ErrorAs(t, err, &invalid)
	require.Len(t, invalid.Failures, 2)
	assert.Equal(t, "site.wind.speed.atMidflame", invalid.Failures[0].Node)
	assert.Equal(t, 1, invalid.Failures[0].Position)
	assert.Equal(t, "site.temperature.air", invalid.Failures[1].Node)
	assert.Equal(t, 1, invalid.Failures[1].Position)
	assert.Contains(t, err.Error(), "2 invalid input values")

	prev, ok, err := d.Inputs("site.temperature.air")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []ir.Value{ir.Number(60)}, prev, "rejected worksheet leaves inputs untouched")
}

func TestApply_UnknownNode(t *testing.T) {
	d, _ := surfaceDag(t)

	ws := &Worksheet{Select: []string{"surface.fire.nope"}}
	err := ws.Apply(d)
	require.Error(t, err)
	assert.True(t, engine.IsLocatorError(err))

	ws = &Worksheet{Configs: []Config{{Key: "configure.wind.speed", Value: ir.Text("sideways")}}}
	err = ws.Apply(d)
	require.Error(t, err)
	assert.True(t, engine.IsValidationError(err))
}

func TestApply_ReplacesSelection(t *testing.T) {
	d, _ := surfaceDag(t)
	require.NoError(t, d.Select("surface.fire.scorchHeight"))

	ws := &Worksheet{Select: []string{"surface.fire.spreadRate.head"}}
	require.NoError(t, ws.Apply(d))

	var selected []string
	for _, n := range d.SelectedNodes() {
		selected = append(selected, n.Key())
	}
	assert.Equal(t, []string{"surface.fire.spreadRate.head"}, selected)
}
