package cli

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/store"
)

type runResponse struct {
	Status string    `json:"status"`
	Data   RunResult `json:"data"`
	Error  *CLIError `json:"error"`
	RunID  string    `json:"run_id"`
}

// sequencedRun returns a run command with deterministic run ids.
func sequencedRun(format string, ids ...string) *cobra.Command {
	return newRunCommand(&RunOptions{
		RootOptions: &RootOptions{Format: format},
		RunIDs:      store.NewSequenceGenerator(ids...),
	})
}

// tableLines returns the whitespace-split fields of each non-empty line.
func tableLines(out string) [][]string {
	var lines [][]string
	for _, l := range strings.Split(out, "\n") {
		if f := strings.Fields(l); len(f) > 0 {
			lines = append(lines, f)
		}
	}
	return lines
}

func TestRunRecordsSweep(t *testing.T) {
	dir, catalogPath, worksheetPath := plotFixture(t)
	dbPath := filepath.Join(dir, "runs.db")

	out, err := execute(sequencedRun("text", "run-1"),
		"--catalog", catalogPath, "--db", dbPath, "--show", worksheetPath)
	require.NoError(t, err)

	assert.Contains(t, out, "✓ Run run-1 recorded (dag plot-sweep, strategy odometer)")
	assert.Contains(t, out, "4 combination(s)")
	assert.Contains(t, out, "plot.area (ft2)")

	lines := tableLines(out)
	require.GreaterOrEqual(t, len(lines), 4)
	assert.Equal(t, [][]string{
		{"10", "5", "50"},
		{"10", "8", "80"},
		{"20", "5", "100"},
		{"20", "8", "160"},
	}, lines[len(lines)-4:])

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.ReadRun(t.Context(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, "plot-sweep", run.Dag)
	assert.Equal(t, "plot", run.Catalog)
	assert.Equal(t, store.StatusComplete, run.Status)
	assert.Equal(t, 4, run.Combinations)
}

func TestRunJSON(t *testing.T) {
	dir, catalogPath, worksheetPath := plotFixture(t)

	out, err := execute(sequencedRun("json", "run-json"),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), "--show", worksheetPath)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "run-json", resp.RunID)
	assert.True(t, resp.Data.OK)
	assert.Equal(t, 4, resp.Data.Combinations)
	assert.Positive(t, resp.Data.Evaluations)
	require.NotNil(t, resp.Data.Table)
	require.Len(t, resp.Data.Table.Columns, 3)
	assert.Equal(t, "plot.length", resp.Data.Table.Columns[0].Key)
	assert.True(t, resp.Data.Table.Columns[0].Input)
	assert.Equal(t, "plot.area", resp.Data.Table.Columns[2].Key)
	assert.Equal(t, "ft2", resp.Data.Table.Columns[2].Units)
	assert.Len(t, resp.Data.Table.Rows, 4)
}

func TestRunLimitAborts(t *testing.T) {
	dir, catalogPath, worksheetPath := plotFixture(t)
	dbPath := filepath.Join(dir, "runs.db")

	out, err := execute(sequencedRun("text", "run-limited"),
		"--catalog", catalogPath, "--db", dbPath, "--run-limit", "3", worksheetPath)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "run aborted")
	assert.Contains(t, out, "✗ Run run-limited aborted")
	assert.Contains(t, out, "3 combination(s)")

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()
	run, err := st.ReadRun(t.Context(), "run-limited")
	require.NoError(t, err)
	assert.Equal(t, store.StatusAborted, run.Status)
	assert.False(t, run.OK)
}

func TestRunStrategyFlag(t *testing.T) {
	dir, catalogPath, worksheetPath := plotFixture(t)

	out, err := execute(sequencedRun("text", "run-r"),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), "--strategy", "recursive", worksheetPath)
	require.NoError(t, err)
	assert.Contains(t, out, "strategy recursive")
}

func TestRunUnknownStrategy(t *testing.T) {
	dir, catalogPath, worksheetPath := plotFixture(t)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), "--strategy", "sideways", worksheetPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeGeneric)
}

func TestRunInvalidInput(t *testing.T) {
	dir, catalogPath, _ := plotFixture(t)
	ws := writeFile(t, dir, "bad.hcl", `
select = ["plot.area"]

input "plot.length" {
  values = [-5]
}
`)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), ws)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeInvalidInput)
	assert.Contains(t, out, "plot.length")
}

func TestRunUnnamedWorksheetTakesFileName(t *testing.T) {
	dir, catalogPath, _ := plotFixture(t)
	ws := writeFile(t, dir, "unnamed.hcl", `
select = ["plot.area"]

input "plot.length" {
  values = [3]
}

input "plot.width" {
  values = [4]
}
`)

	out, err := execute(sequencedRun("json", "run-u"),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), ws)
	require.NoError(t, err)

	var resp runResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "unnamed", resp.Data.Dag)
	assert.Equal(t, 1, resp.Data.Combinations)
}

func TestRunMissingWorksheet(t *testing.T) {
	dir, catalogPath, _ := plotFixture(t)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--catalog", catalogPath, "--db", filepath.Join(dir, "runs.db"), filepath.Join(dir, "nope.hcl"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeWorksheet)
}

func TestRunMissingCatalog(t *testing.T) {
	dir, _, worksheetPath := plotFixture(t)

	out, err := execute(NewRunCommand(&RootOptions{Format: "text"}),
		"--catalog", filepath.Join(dir, "nope.cue"), "--db", filepath.Join(dir, "runs.db"), worksheetPath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, ErrCodeNotFound)
}

func TestRunRequiresWorksheetArg(t *testing.T) {
	_, err := execute(NewRunCommand(&RootOptions{Format: "text"}))
	require.Error(t, err)
}

func TestRunOptionsLayering(t *testing.T) {
	loaded, err := loadBoundCatalog(BuiltinSurface)
	require.NoError(t, err)

	layer := func(opts ...engine.Option) func() ([]engine.Option, error) {
		return func() ([]engine.Option, error) { return opts, nil }
	}
	recursive, err := engine.StrategyByName(engine.StrategyRecursive)
	require.NoError(t, err)
	odometer, err := engine.StrategyByName(engine.StrategyOdometer)
	require.NoError(t, err)

	tests := []struct {
		name   string
		flag   string
		layers []func() ([]engine.Option, error)
		want   string
	}{
		{"config only", "", []func() ([]engine.Option, error){layer(engine.WithStrategy(recursive))}, engine.StrategyRecursive},
		{"worksheet over config", "", []func() ([]engine.Option, error){
			layer(engine.WithStrategy(recursive)),
			layer(engine.WithStrategy(odometer)),
		}, engine.StrategyOdometer},
		{"flag over both", engine.StrategyRecursive, []func() ([]engine.Option, error){
			layer(engine.WithStrategy(odometer)),
			layer(engine.WithStrategy(odometer)),
		}, engine.StrategyRecursive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, err := runOptions(&RunOptions{Strategy: tt.flag}, tt.layers...)
			require.NoError(t, err)
			d := engine.New(loaded.Catalog, opts...)
			require.NoError(t, d.Err())
			assert.Equal(t, tt.want, d.Strategy().Name())
		})
	}
}

func TestRunOptionsNegativeLimit(t *testing.T) {
	_, err := runOptions(&RunOptions{RunLimit: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestWorksheetName(t *testing.T) {
	assert.Equal(t, "sweep", worksheetName("sweep.hcl"))
	assert.Equal(t, "fuel-sweep", worksheetName(filepath.Join("a", "b", "fuel-sweep.hcl")))
	assert.Equal(t, "plain", worksheetName("plain"))
}
