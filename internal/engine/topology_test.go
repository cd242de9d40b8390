package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/testutil"
)

func TestSortedOrderDefaultConfiguration(t *testing.T) {
	d := New(sweepCatalog(t))
	require.NoError(t, d.Err())

	// An input sorts after ordinary nodes of greater depth; ties keep index order.
	assert.Equal(t, []string{
		"site.slope.ratio",        // depth 5, input
		"site.wind.midflame",      // depth 4, input
		"site.moisture.dead.tl1h", // depth 4, input
		"slope.used",              // depth 4
		"spread",                  // depth 3
		"site.slope.degrees",      // depth 2, input
		"ellipse.ratio",           // depth 2
		"site.wind.at20ft",        // depth 1, input
		"configure.slope",
		"configure.wind",
		"configure.ellipse",
		"scaled",
		"ellipse.area",
		"unrelated",
		"fuel.moisture",
	}, keys(d.SortedNodes()))

	spread := d.MustNode("spread")
	assert.Equal(t, 3, spread.Depth())
	assert.Equal(t, 4, spread.Order())
	assert.Equal(t, []string{"site.wind.midflame", "slope.used", "site.moisture.dead.tl1h"}, keys(spread.Producers()))
	assert.Equal(t, []string{"scaled", "ellipse.ratio"}, keys(spread.Consumers()))
}

func TestTopologicalValidity(t *testing.T) {
	configs := [][]Setting{
		nil,
		{Config("configure.slope", ir.Text("degrees"))},
		{Config("configure.wind", ir.Text("at20ft"))},
		{Config("configure.slope", ir.Text("degrees")), Config("configure.wind", ir.Text("at20ft")), Config("configure.ellipse", ir.Text("off"))},
	}
	for _, cfg := range configs {
		d := New(sweepCatalog(t))
		require.NoError(t, d.Configure(cfg...))
		for _, n := range d.Nodes() {
			for _, p := range n.Producers() {
				assert.Less(t, p.Order(), n.Order(), "%s must sort before %s", p.Key(), n.Key())
			}
		}
	}
}

func TestConfigureRewiresProducers(t *testing.T) {
	d := New(sweepCatalog(t))
	used := d.MustNode("slope.used")
	assert.Equal(t, []string{"site.slope.ratio"}, keys(used.Producers()))
	assert.Equal(t, ir.MethodBind, used.Method())
	assert.Equal(t, 1, used.Updater())

	require.NoError(t, d.Configure(Config("configure.slope", ir.Text("degrees"))))
	assert.Equal(t, []string{"site.slope.degrees"}, keys(used.Producers()))
	assert.Equal(t, ir.MethodRef("Calc.multiply"), used.Method())
	assert.Equal(t, 0, used.Updater())
	assert.Empty(t, d.MustNode("site.slope.ratio").Consumers())

	midflame := d.MustNode("site.wind.midflame")
	assert.True(t, midflame.IsInput())
	require.NoError(t, d.Configure(Config("configure.wind", ir.Text("at20ft"))))
	assert.False(t, midflame.IsInput())
	assert.Equal(t, []string{"site.wind.at20ft"}, keys(midflame.Producers()))
	assert.Equal(t, []string{"configure.wind"}, keys(midflame.ConfigNodes()))
}

func TestIdempotentResort(t *testing.T) {
	once := New(sweepCatalog(t))
	require.NoError(t, once.Select("scaled", "ellipse.area"))
	require.NoError(t, once.Configure(Config("configure.slope", ir.Text("degrees"))))

	twice := New(sweepCatalog(t))
	require.NoError(t, twice.Select("scaled", "ellipse.area"))
	require.NoError(t, twice.Configure(Config("configure.slope", ir.Text("degrees"))))
	require.NoError(t, twice.Configure(Config("configure.slope", ir.Text("degrees"))))

	assert.Equal(t, keys(once.SortedNodes()), keys(twice.SortedNodes()))
	assert.Equal(t, keys(once.RequiredNodes()), keys(twice.RequiredNodes()))
	for _, n := range twice.Nodes() {
		assert.Len(t, n.Producers(), len(once.MustNode(n.Index()).Producers()), n.Key())
	}
}

func cycleBuilder() *testutil.GenomeBuilder {
	return testutil.NewGenome("cycle").
		Option("Loop", "open", "closed").
		Config("configure.loop", "Loop").
		Input("seed", "Number", ir.Number(1)).
		Gene("a", "Number",
			testutil.When("configure.loop", ir.Text("closed"), "Calc.add", testutil.R("b")),
			testutil.Default("Calc.add", testutil.R("seed"))).
		Gene("b", "Number", testutil.Default("Calc.add", testutil.R("a")))
}

func TestCycleDetectedOnConfigure(t *testing.T) {
	d := New(cycleBuilder().Catalog(t))
	require.NoError(t, d.Err())
	require.NoError(t, d.Select("b"))

	err := d.Configure(Config("configure.loop", ir.Text("closed")))
	require.Error(t, err)
	assert.True(t, IsCycleError(err))

	var ge *GraphError
	require.ErrorAs(t, err, &ge)
	assert.Equal(t, []string{"a", "b", "a"}, ge.Path)
	assert.Contains(t, err.Error(), "a -> b -> a")

	// Run refuses while the wiring error is pending.
	_, runErr := d.Run()
	assert.True(t, IsCycleError(runErr))

	// Reconfiguring away from the loop clears the error.
	require.NoError(t, d.Configure(Config("configure.loop", ir.Text("open"))))
	require.NoError(t, d.Err())
	summary, err := d.Run()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Combinations)
}

func TestCycleDetectedAtConstruction(t *testing.T) {
	cat := testutil.NewGenome("mutual").
		Gene("a", "Number", testutil.Default("Calc.add", testutil.R("b"))).
		Gene("b", "Number", testutil.Default("Calc.add", testutil.R("a"))).
		Catalog(t)

	d := New(cat)
	require.Error(t, d.Err())
	assert.True(t, IsCycleError(d.Err()))
}

func TestSelfReferenceIsCycle(t *testing.T) {
	cat := testutil.NewGenome("self").
		Gene("a", "Number", testutil.Default("Calc.add", testutil.R("a"))).
		Catalog(t)

	d := New(cat)
	assert.True(t, IsCycleError(d.Err()))
}

func TestConfigurationErrorWhenNoUpdaterMatches(t *testing.T) {
	cat := testutil.NewGenome("nodefault").
		Option("Mode", "one", "two").
		Config("configure.mode", "Mode").
		Gene("only.one", "Number", testutil.When("configure.mode", ir.Text("one"), ir.MethodFixed, testutil.L(ir.Number(1)))).
		Catalog(t)

	d := New(cat)
	require.NoError(t, d.Err())

	err := d.Configure(Config("configure.mode", ir.Text("two")))
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
	assert.Contains(t, err.Error(), "only.one")
}
