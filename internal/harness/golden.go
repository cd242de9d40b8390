package harness

import (
	"math"
	"strconv"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/firegraph/internal/ir"
)

// SnapshotDigits is the number of significant digits numbers keep in a
// snapshot, so that snapshots are stable across floating-point
// implementations of the formulas.
const SnapshotDigits = 10

// Snapshot captures the outcome and recorded table of a scenario.
// Serialized as canonical JSON for deterministic comparison.
type Snapshot struct {
	ScenarioName string
	OK           bool
	Message      string
	RunError     string
	Combinations int
	Evaluations  int
	Columns      []SnapshotColumn
	Rows         [][]ir.Value
}

// SnapshotColumn is one captured node.
type SnapshotColumn struct {
	Key   string
	Units string
	Input bool
}

// NewSnapshot builds a snapshot of a result.
func NewSnapshot(name string, result *Result) *Snapshot {
	s := &Snapshot{
		ScenarioName: name,
		OK:           result.Summary.OK,
		Message:      result.Summary.Message,
		RunError:     result.RunError,
		Combinations: result.Summary.Combinations,
		Evaluations:  result.Summary.NodeEvaluations,
	}
	if result.Table == nil {
		return s
	}
	for _, c := range result.Table.Columns {
		s.Columns = append(s.Columns, SnapshotColumn{Key: c.Key, Units: c.Units, Input: c.Input})
	}
	for _, row := range result.Table.Rows {
		out := make([]ir.Value, len(row))
		for i, v := range row {
			out[i] = roundValue(v)
		}
		s.Rows = append(s.Rows, out)
	}
	return s
}

// roundValue keeps SnapshotDigits significant digits of a finite number.
func roundValue(v ir.Value) ir.Value {
	n, ok := v.(ir.Number)
	if !ok || math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
		return v
	}
	f, err := strconv.ParseFloat(strconv.FormatFloat(float64(n), 'g', SnapshotDigits, 64), 64)
	if err != nil {
		return v
	}
	return ir.Number(f)
}

// toCanonicalMap converts a Snapshot to a map[string]any for canonical JSON serialization.
// This is required because ir.MarshalCanonical only handles IR types and primitives.
func (s *Snapshot) toCanonicalMap() map[string]any {
	columns := make([]any, len(s.Columns))
	for i, c := range s.Columns {
		col := map[string]any{
			"key":   c.Key,
			"input": c.Input,
		}
		if c.Units != "" {
			col["units"] = c.Units
		}
		columns[i] = col
	}

	rows := make([]any, len(s.Rows))
	for i, row := range s.Rows {
		rows[i] = row
	}

	result := map[string]any{
		"scenario_name": s.ScenarioName,
		"ok":            s.OK,
		"combinations":  s.Combinations,
		"evaluations":   s.Evaluations,
		"columns":       columns,
		"rows":          rows,
	}
	if s.Message != "" {
		result["message"] = s.Message
	}
	if s.RunError != "" {
		result["run_error"] = s.RunError
	}
	return result
}

// Marshal returns the canonical JSON form of the snapshot.
func (s *Snapshot) Marshal() ([]byte, error) {
	return ir.MarshalCanonical(s.toCanonicalMap())
}

// RunWithGolden executes a scenario and compares the snapshot against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the given result's snapshot against a golden file.
// This is useful when you've already run a scenario and want to compare
// the result against a golden file without re-running.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(scenarioName, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
