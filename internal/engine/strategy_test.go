package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/testutil"
)

func TestStrategyByName(t *testing.T) {
	s, err := StrategyByName("recursive")
	require.NoError(t, err)
	assert.Equal(t, Recursive{}, s)

	s, err = StrategyByName("odometer")
	require.NoError(t, err)
	assert.Equal(t, Odometer{}, s)

	s, err = StrategyByName("")
	require.NoError(t, err)
	assert.Equal(t, StrategyOdometer, s.Name())

	_, err = StrategyByName("parallel")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown strategy "parallel"`)
}

type scenario struct {
	name     string
	settings []Setting
	selected []Locator
	inputs   []Assignment
}

func equivalenceScenarios() []scenario {
	return []scenario{
		{
			name:     "single combination",
			selected: []Locator{"scaled"},
		},
		{
			name:     "two inputs",
			selected: []Locator{"scaled"},
			inputs: []Assignment{
				Input("site.wind.midflame", nums(1, 2, 3)...),
				Input("site.moisture.dead.tl1h", nums(0.05, 0.1)...),
			},
		},
		{
			name:     "inputs at different depths",
			settings: []Setting{Config("configure.slope", ir.Text("degrees"))},
			selected: []Locator{"scaled", "unrelated", "ellipse.area"},
			inputs: []Assignment{
				Input("site.slope.degrees", nums(0, 10, 20)...),
				Input("site.wind.midflame", nums(4, 8)...),
				Input("site.moisture.dead.tl1h", nums(0.03, 0.06, 0.09)...),
			},
		},
		{
			name:     "derived wind",
			settings: []Setting{Config("configure.wind", ir.Text("at20ft"))},
			selected: []Locator{"ellipse.area", "fuel.moisture"},
			inputs: []Assignment{
				Input("site.wind.at20ft", nums(5, 10, 15, 20)...),
				Input("site.slope.ratio", nums(0, 0.5)...),
			},
		},
	}
}

func runScenario(t *testing.T, sc scenario, strategy Strategy) (RunSummary, *MemorySink) {
	t.Helper()
	sink := NewMemorySink()
	d := New(sweepCatalog(t), WithStrategy(strategy), WithSink(sink))
	require.NoError(t, d.Configure(sc.settings...))
	require.NoError(t, d.Select(sc.selected...))
	require.NoError(t, d.Input(sc.inputs...))
	summary, err := d.Run()
	require.NoError(t, err)
	return summary, sink
}

func TestStrategyEquivalence(t *testing.T) {
	for _, sc := range equivalenceScenarios() {
		t.Run(sc.name, func(t *testing.T) {
			rs, rsink := runScenario(t, sc, Recursive{})
			os, osink := runScenario(t, sc, Odometer{})

			assert.Equal(t, rs.Combinations, os.Combinations)
			assert.Equal(t, keys(rsink.Nodes()), keys(osink.Nodes()))
			assert.Equal(t, rsink.Rows(), osink.Rows(), "identical values in identical order")
			assert.LessOrEqual(t, os.NodeEvaluations, rs.NodeEvaluations)
		})
	}
}

func TestSweepCardinalityAcrossScenarios(t *testing.T) {
	want := []int{1, 6, 18, 8}
	for i, sc := range equivalenceScenarios() {
		for _, strategy := range []Strategy{Recursive{}, Odometer{}} {
			summary, sink := runScenario(t, sc, strategy)
			assert.Equal(t, want[i], summary.Combinations, "%s/%s", sc.name, strategy.Name())
			assert.Equal(t, want[i], sink.Len())
		}
	}
}

// early -> a -> b -> c with a second input late feeding c. Only the nodes
// after late in execution order are re-evaluated when late advances.
func TestOdometerReevaluatesSuffixOnly(t *testing.T) {
	cat := testutil.NewGenome("suffix").
		Input("early", "Number", ir.Number(1)).
		Gene("a", "Number", testutil.Default("Calc.add", testutil.R("early"), testutil.L(ir.Number(1)))).
		Gene("b", "Number", testutil.Default("Calc.multiply", testutil.R("a"), testutil.L(ir.Number(2)))).
		Input("late", "Number", ir.Number(0)).
		Gene("c", "Number", testutil.Default("Calc.add", testutil.R("b"), testutil.R("late"))).
		Catalog(t)

	run := func(s Strategy) (RunSummary, *MemorySink) {
		sink := NewMemorySink()
		d := New(cat, WithStrategy(s), WithSink(sink))
		require.NoError(t, d.Select("c"))
		require.NoError(t, d.Input(
			Input("early", nums(1, 2)...),
			Input("late", nums(10, 20, 30)...),
		))
		summary, err := d.Run()
		require.NoError(t, err)
		return summary, sink
	}

	// Order: early, a, late, b, c.
	rs, rsink := run(Recursive{})
	os, osink := run(Odometer{})

	assert.Equal(t, nums(14, 24, 34, 16, 26, 36), osink.Values("c"))
	assert.Equal(t, rsink.Rows(), osink.Rows())
	assert.Equal(t, 6, os.Combinations)

	// a once per early value; b and c once per combination.
	assert.Equal(t, 2+6+6, os.NodeEvaluations)
	assert.LessOrEqual(t, os.NodeEvaluations, rs.NodeEvaluations)
}

func TestWalkAccessors(t *testing.T) {
	var seen struct {
		length, inputs, evaluations, combinations int
	}
	probe := probeStrategy{fn: func(w *Walk) error {
		seen.length = w.Len()
		for i := 0; i < w.Len(); i++ {
			if w.IsInput(i) {
				seen.inputs += w.Values(i)
			}
		}
		if err := (Odometer{}).Run(w); err != nil {
			return err
		}
		seen.evaluations = w.Evaluations()
		seen.combinations = w.Combinations()
		return nil
	}}

	d := New(sweepCatalog(t), WithStrategy(probe))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(Input("site.wind.midflame", nums(1, 2)...)))
	summary, err := d.Run()
	require.NoError(t, err)

	assert.Equal(t, 8, seen.length)
	assert.Equal(t, 1+2+1, seen.inputs)
	assert.Equal(t, summary.NodeEvaluations, seen.evaluations)
	assert.Equal(t, 2, seen.combinations)
}

type probeStrategy struct {
	fn func(w *Walk) error
}

func (probeStrategy) Name() string        { return "probe" }
func (p probeStrategy) Run(w *Walk) error { return p.fn(w) }
