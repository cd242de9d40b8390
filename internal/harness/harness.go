package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/fire"
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/store"
	"github.com/roach88/firegraph/internal/testutil"
	"github.com/roach88/firegraph/internal/worksheet"
)

// Harness is the scenario execution engine.
// It runs scenarios with a deterministic clock and run id so that the
// recorded table is reproducible.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	runIDs *testutil.FixedRunIDGenerator
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Load the catalog (embedded or compiled from CUE)
// 2. Create a graph instance recording into the store
// 3. Configure, select, and assign inputs
// 4. Run and compare the outcome with the expect clause
// 5. Read the recorded table back and evaluate assertions
//
// An error is returned only when the scenario cannot be executed at all.
// Failed expectations are reported in the result.
func Run(scenario *Scenario) (*Result, error) {
	cat, err := LoadCatalog(scenario.Catalog)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(),
		runIDs: testutil.NewFixedRunIDGenerator("run-" + scenario.Name),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	return h.run(context.Background(), cat, scenario)
}

// LoadCatalog returns the embedded surface catalog for BuiltinSurface, or
// compiles a CUE file bound to the fire formulas plus Calc.fail.
func LoadCatalog(name string) (*catalog.Catalog, error) {
	if name == BuiltinSurface {
		return fire.SurfaceCatalog()
	}
	return fire.LoadCatalog(name, catalog.Merge(fire.Registry(), testutil.Registry()))
}

func (h *Harness) run(ctx context.Context, cat *catalog.Catalog, scenario *Scenario) (*Result, error) {
	sink := h.store.NewSink(ctx,
		store.WithRunIDGenerator(h.runIDs),
		store.WithClock(h.clock),
	)

	ws, err := scenarioWorksheet(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	opts, err := ws.Options()
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	opts = append(opts, engine.WithSink(sink))

	result := NewResult()
	d := engine.New(cat, opts...)

	runErr := d.Err()
	if runErr == nil {
		runErr = ws.Apply(d)
	}
	if runErr == nil {
		result.Summary, runErr = d.Run()
	}
	if runErr != nil {
		result.RunError = runErr.Error()
	}

	h.logger.Info("scenario run",
		"scenario", scenario.Name,
		"ok", result.Summary.OK,
		"combinations", result.Summary.Combinations,
		"error", result.RunError,
	)

	if sink.RunID() != "" {
		table, err := h.store.ReadTable(ctx, sink.RunID())
		if err != nil {
			return nil, fmt.Errorf("failed to read recorded table: %w", err)
		}
		result.Table = &table
	}

	for _, msg := range checkExpect(scenario.Expect, result) {
		result.AddError(msg)
	}

	actx := &AssertionContext{Store: h.store, Ctx: ctx}
	for _, msg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(msg)
	}
	return result, nil
}

// scenarioWorksheet converts the scenario's run settings into a worksheet.
// Map entries are sorted by key so that application order is stable.
func scenarioWorksheet(s *Scenario) (*worksheet.Worksheet, error) {
	ws := &worksheet.Worksheet{
		Path:     s.Name,
		Dag:      s.Dag,
		Strategy: s.Strategy,
		RunLimit: s.RunLimit,
		Select:   slices.Clone(s.Select),
	}
	if ws.Dag == "" {
		ws.Dag = s.Name
	}

	for _, key := range sortedKeys(s.Configure) {
		v, err := ir.FromAny(s.Configure[key])
		if err != nil {
			return nil, fmt.Errorf("configure %q: %w", key, err)
		}
		ws.Configs = append(ws.Configs, worksheet.Config{Key: key, Value: v})
	}

	add := func(inputs map[string]any, display bool) error {
		for _, key := range sortedKeys(inputs) {
			vals, err := convertValues(inputs[key])
			if err != nil {
				return fmt.Errorf("input %q: %w", key, err)
			}
			ws.Inputs = append(ws.Inputs, worksheet.Input{Key: key, Values: vals, Display: display})
		}
		return nil
	}
	if err := add(s.Inputs, false); err != nil {
		return nil, err
	}
	if err := add(s.DisplayInputs, true); err != nil {
		return nil, err
	}
	return ws, nil
}

// convertValues converts a YAML-parsed scalar or list into candidate values.
func convertValues(raw any) ([]ir.Value, error) {
	list, ok := raw.([]any)
	if !ok {
		v, err := ir.FromAny(raw)
		if err != nil {
			return nil, err
		}
		return []ir.Value{v}, nil
	}
	out := make([]ir.Value, len(list))
	for i, item := range list {
		v, err := ir.FromAny(item)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// checkExpect compares the run outcome with the expect clause.
func checkExpect(expect *ExpectClause, result *Result) []string {
	if expect == nil {
		expect = &ExpectClause{}
	}
	var errs []string

	if expect.Error != "" {
		if !containsFold(result.RunError, expect.Error) {
			errs = append(errs, fmt.Sprintf("expected error containing %q, got %q", expect.Error, result.RunError))
		}
		return errs
	}
	if result.RunError != "" {
		return append(errs, fmt.Sprintf("unexpected error: %s", result.RunError))
	}

	wantOK := expect.OK == nil || *expect.OK
	if result.Summary.OK != wantOK {
		errs = append(errs, fmt.Sprintf("expected ok=%t, got ok=%t (message %q)", wantOK, result.Summary.OK, result.Summary.Message))
	}
	if expect.Combinations != nil && result.Summary.Combinations != *expect.Combinations {
		errs = append(errs, fmt.Sprintf("expected %d combinations, got %d", *expect.Combinations, result.Summary.Combinations))
	}
	if expect.Message != "" && !containsFold(result.Summary.Message, expect.Message) {
		errs = append(errs, fmt.Sprintf("expected message containing %q, got %q", expect.Message, result.Summary.Message))
	}
	return errs
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
