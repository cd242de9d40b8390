package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/testutil"
)

func TestNodeLocators(t *testing.T) {
	d := New(sweepCatalog(t))

	byKey, err := d.Node("spread")
	require.NoError(t, err)
	byIndex, err := d.Node(byKey.Index())
	require.NoError(t, err)
	byNode, err := d.Node(byKey)
	require.NoError(t, err)

	assert.Same(t, byKey, byIndex)
	assert.Same(t, byKey, byNode)

	tests := []struct {
		name string
		loc  Locator
	}{
		{"unknown key", "spread.rate"},
		{"negative index", -1},
		{"index out of range", 99},
		{"unsupported type", 3.5},
		{"nil node", (*Node)(nil)},
		{"node of another dag", New(sweepCatalog(t)).MustNode("spread")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Node(tt.loc)
			require.Error(t, err)
			assert.True(t, IsLocatorError(err))
		})
	}

	assert.Panics(t, func() { d.MustNode("missing") })
	assert.True(t, IsLocatorError(d.Select("missing")))
	assert.True(t, IsLocatorError(d.Input(Input("missing", ir.Number(1)))))
}

func TestNodeAccessors(t *testing.T) {
	d := New(sweepCatalog(t))
	n := d.MustNode("site.moisture.dead.tl1h")

	assert.Equal(t, "site.moisture.dead.tl1h", n.Key())
	assert.Equal(t, "site.moisture.dead.tl1h", n.Label(), "label falls back to key")
	assert.Equal(t, ir.Number(0.05), n.Value())
	assert.InDelta(t, 5.0, float64(n.DisplayValue().(ir.Number)), 1e-9)
	assert.Equal(t, "ratio", n.Units())
	assert.Equal(t, "%", n.DisplayUnits())
	assert.Equal(t, "5 %", n.DisplayString())
	assert.Equal(t, "Fraction", n.Type().Name)
	assert.Equal(t, ir.MethodInput, n.Method())
	assert.True(t, n.IsInput())
	assert.False(t, n.IsConfig())
	assert.True(t, d.MustNode("configure.slope").IsConfig())

	assert.Equal(t, "default", d.Name())
	assert.Equal(t, "sweep", d.Catalog().Name())
	assert.Len(t, d.Nodes(), 15)
	assert.Equal(t, "Dag(default, 15 nodes)", d.String())
}

func TestConfigureValidation(t *testing.T) {
	d := New(sweepCatalog(t))

	err := d.Configure(Config("spread", ir.Number(1)))
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "not a configuration node")

	// The whole batch is rejected; the valid first pair is not applied.
	err = d.Configure(
		Config("configure.slope", ir.Text("degrees")),
		Config("configure.wind", ir.Text("at40ft")),
	)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, ir.Text("ratio"), d.MustNode("configure.slope").Value())
	assert.Equal(t, ir.Text("midflame"), d.MustNode("configure.wind").Value())

	assert.True(t, IsLocatorError(d.Configure(Config("configure.nothing", ir.Text("x")))))
}

func TestDefaultInput(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("fuel.moisture"))

	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Combinations)
	assert.True(t, summary.OK)

	sink := d.Sink().(*MemorySink)
	assert.Equal(t, []ir.Value{ir.Number(0.05)}, sink.Values("site.moisture.dead.tl1h"))
	assert.Equal(t, []ir.Value{ir.Number(0.05)}, sink.Values("fuel.moisture"))
}

func TestRunSingleCombinationValues(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))

	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, RunSummary{Combinations: 1, NodeEvaluations: 5, OK: true}, summary)

	sink := d.Sink().(*MemorySink)
	assert.Equal(t, []string{"site.slope.ratio", "site.wind.midflame", "site.moisture.dead.tl1h", "scaled"}, keys(sink.Nodes()))
	require.Len(t, sink.Values("scaled"), 1)
	assert.InDelta(t, 1.5, float64(sink.Values("scaled")[0].(ir.Number)), 1e-9)
	assert.InDelta(t, 0.15, float64(d.MustNode("spread").Value().(ir.Number)), 1e-9)
}

func TestSweepCardinality(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(
		Input("site.wind.midflame", nums(1, 2, 3)...),
		Input("site.moisture.dead.tl1h", nums(0.05, 0.1)...),
		Input("site.slope.ratio", nums(0, 0.2, 0.4, 0.6)...),
	))

	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 3*2*4, summary.Combinations)
	assert.Equal(t, 24, d.Sink().(*MemorySink).Len())
}

func TestSweepOrderLastInputFastest(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(
		Input("site.wind.midflame", nums(1, 2)...),
		Input("site.moisture.dead.tl1h", nums(0.05, 0.1)...),
	))

	_, err := d.Run()
	require.NoError(t, err)
	sink := d.Sink().(*MemorySink)
	assert.Equal(t, nums(1, 1, 2, 2), sink.Values("site.wind.midflame"))
	assert.Equal(t, nums(0.05, 0.1, 0.05, 0.1), sink.Values("site.moisture.dead.tl1h"))

	scaled := sink.Values("scaled")
	want := []float64{11.5, 12, 21.5, 22}
	require.Len(t, scaled, len(want))
	for i, w := range want {
		assert.InDelta(t, w, float64(scaled[i].(ir.Number)), 1e-9)
	}
}

func TestInputsPersistUntilCleared(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(Input("site.wind.midflame", nums(1, 2)...)))

	vals, ok, err := d.Inputs("site.wind.midflame")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, nums(1, 2), vals)

	s1, err := d.Run()
	require.NoError(t, err)
	s2, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, s1.Combinations)
	assert.Equal(t, 2, s2.Combinations)

	// Input replaces rather than appends.
	require.NoError(t, d.Input(Input("site.wind.midflame", nums(7)...)))
	s3, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, s3.Combinations)

	d.ClearInputs()
	_, ok, err = d.Inputs("site.wind.midflame")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInputOnNonInputNodeIsStored(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(Input("site.wind.at20ft", nums(10, 20)...)))

	// at20ft is not required under the default configuration.
	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Combinations)

	// Once the configuration routes through at20ft the stored values are swept.
	require.NoError(t, d.Configure(Config("configure.wind", ir.Text("at20ft"))))
	summary, err = d.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Combinations)
	midflame := d.Sink().(*MemorySink).Values("site.wind.at20ft")
	assert.Equal(t, nums(10, 20), midflame)
}

func TestEmptyInputListIsMissingInput(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(Input("site.wind.midflame")))

	_, err := d.Run()
	require.Error(t, err)
	assert.True(t, IsMissingInputError(err))
	assert.Contains(t, err.Error(), "site.wind.midflame")
}

func TestRunLimitEnforcement(t *testing.T) {
	for _, strategy := range []Strategy{Recursive{}, Odometer{}} {
		t.Run(strategy.Name(), func(t *testing.T) {
			sink := NewMemorySink()
			d := New(sweepCatalog(t), WithStrategy(strategy), WithSink(sink), WithRunLimit(4))
			require.NoError(t, d.Select("scaled"))
			require.NoError(t, d.Input(
				Input("site.wind.midflame", nums(1, 2, 3)...),
				Input("site.moisture.dead.tl1h", nums(0.05, 0.1)...),
			))

			summary, err := d.Run()
			require.NoError(t, err, "run limit is reported in the summary")
			assert.False(t, summary.OK)
			assert.Equal(t, 4, summary.Combinations)
			assert.Contains(t, summary.Message, "run limit exceeded")
			assert.LessOrEqual(t, sink.Len(), 4)
			assert.True(t, sink.Ended(), "End is called after an abort")
			assert.Equal(t, summary, sink.Summary())
		})
	}
}

func TestRunLimitEqualToCombinationsIsOK(t *testing.T) {
	d := New(sweepCatalog(t), WithRunLimit(6))
	require.NoError(t, d.Select("scaled"))
	require.NoError(t, d.Input(
		Input("site.wind.midflame", nums(1, 2, 3)...),
		Input("site.moisture.dead.tl1h", nums(0.05, 0.1)...),
	))

	summary, err := d.Run()
	require.NoError(t, err)
	assert.True(t, summary.OK)
	assert.Equal(t, 6, summary.Combinations)
	assert.Equal(t, 6, d.RunLimit())
}

func TestEvaluationError(t *testing.T) {
	cat := testutil.NewGenome("broken").
		Input("x", "Number", ir.Number(1)).
		Gene("y", "Number", testutil.Default("Calc.fail", testutil.R("x"))).
		Catalog(t)

	sink := NewMemorySink()
	d := New(cat, WithSink(sink))
	require.NoError(t, d.Select("y"))

	summary, err := d.Run()
	require.Error(t, err)
	assert.True(t, IsEvaluationError(err))
	assert.Contains(t, err.Error(), "Calc.fail failed")
	assert.Contains(t, err.Error(), "intentional failure")
	assert.False(t, summary.OK)
	assert.True(t, sink.Ended())
}

func TestNoRequiredNodesRecordsOneCombination(t *testing.T) {
	for _, strategy := range []Strategy{Recursive{}, Odometer{}} {
		d := New(sweepCatalog(t), WithStrategy(strategy))
		summary, err := d.Run()
		require.NoError(t, err)
		assert.Equal(t, RunSummary{Combinations: 1, OK: true}, summary, strategy.Name())
	}
}

type failingSink struct {
	MemorySink
	initErr, storeErr, endErr error
}

func (s *failingSink) Init(info RunInfo) error {
	if s.initErr != nil {
		return s.initErr
	}
	return s.MemorySink.Init(info)
}

func (s *failingSink) Store() error {
	if s.storeErr != nil {
		return s.storeErr
	}
	return s.MemorySink.Store()
}

func (s *failingSink) End(summary RunSummary) error {
	if err := s.MemorySink.End(summary); err != nil {
		return err
	}
	return s.endErr
}

func TestSinkFailures(t *testing.T) {
	boom := errors.New("disk full")
	tests := []struct {
		name  string
		sink  *failingSink
		ended bool
	}{
		{"init", &failingSink{initErr: boom}, false},
		{"store", &failingSink{storeErr: boom}, true},
		{"end", &failingSink{endErr: boom}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(sweepCatalog(t), WithSink(tt.sink))
			require.NoError(t, d.Select("scaled"))

			_, err := d.Run()
			require.Error(t, err)
			assert.ErrorIs(t, err, boom)

			var ge *GraphError
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, ErrCodeSink, ge.Code)
			assert.Equal(t, tt.ended, tt.sink.Ended())
		})
	}
}

func TestValidateInputs(t *testing.T) {
	d := New(sweepCatalog(t))
	before := d.MustNode("site.moisture.dead.tl1h").Value()

	failures, err := d.ValidateNativeInputs(
		Input("site.moisture.dead.tl1h", nums(0.05, -1, 7)...),
		Input("site.wind.midflame", ir.Text("calm")),
	)
	require.NoError(t, err)
	require.Len(t, failures, 3)
	assert.Equal(t, "site.moisture.dead.tl1h", failures[0].Node)
	assert.Equal(t, 1, failures[0].Position)
	assert.Equal(t, ir.Number(-1), failures[0].Value)
	assert.Contains(t, failures[0].Message, "below minimum")
	assert.Equal(t, 2, failures[1].Position)
	assert.Equal(t, "site.wind.midflame", failures[2].Node)

	// Display units: 5 % is 0.05 native; 600 % is above the maximum.
	failures, err = d.ValidateDisplayInputs(Input("site.moisture.dead.tl1h", nums(5, 600)...))
	require.NoError(t, err)
	require.Len(t, failures, 1)
	assert.Equal(t, ir.Number(600), failures[0].Value)

	_, err = d.ValidateNativeInputs(Input("nope", ir.Number(1)))
	assert.True(t, IsLocatorError(err))

	assert.Equal(t, before, d.MustNode("site.moisture.dead.tl1h").Value(), "validation never mutates")
	_, assigned, _ := d.Inputs("site.moisture.dead.tl1h")
	assert.False(t, assigned)

	native, err := d.NativeValues("site.moisture.dead.tl1h", nums(5, 10))
	require.NoError(t, err)
	assert.InDelta(t, 0.05, float64(native[0].(ir.Number)), 1e-12)
	assert.InDelta(t, 0.10, float64(native[1].(ir.Number)), 1e-12)
}

func TestSetters(t *testing.T) {
	d := New(sweepCatalog(t))
	assert.Equal(t, StrategyOdometer, d.Strategy().Name())
	assert.Equal(t, DefaultRunLimit, d.RunLimit())

	d.SetStrategy(Recursive{})
	d.SetRunLimit(10)
	sink := NewMemorySink()
	d.SetSink(sink)

	assert.Equal(t, StrategyRecursive, d.Strategy().Name())
	assert.Equal(t, 10, d.RunLimit())
	assert.Same(t, sink, d.Sink())
}
