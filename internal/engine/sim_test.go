package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/ir"
)

func TestSimNamedDags(t *testing.T) {
	sim := NewSim(sweepCatalog(t), WithRunLimit(50))

	a, err := sim.CreateDag("what-if-a")
	require.NoError(t, err)
	b, err := sim.CreateDag("what-if-b", WithStrategy(Recursive{}))
	require.NoError(t, err)

	_, err = sim.CreateDag("what-if-a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	assert.Equal(t, "what-if-a", a.Name())
	assert.Equal(t, 50, a.RunLimit(), "host options apply to every dag")
	assert.Equal(t, StrategyRecursive, b.Strategy().Name())
	assert.Same(t, sim.Catalog(), a.Catalog())
	assert.Equal(t, []string{"what-if-a", "what-if-b"}, sim.Names())

	got, ok := sim.Dag("what-if-b")
	require.True(t, ok)
	assert.Same(t, b, got)

	assert.True(t, sim.DeleteDag("what-if-a"))
	assert.False(t, sim.DeleteDag("what-if-a"))
	_, ok = sim.Dag("what-if-a")
	assert.False(t, ok)
	assert.Equal(t, []string{"what-if-b"}, sim.Names())
}

func TestSimDagsAreIndependent(t *testing.T) {
	sim := NewSim(sweepCatalog(t))
	a, err := sim.CreateDag("a")
	require.NoError(t, err)
	b, err := sim.CreateDag("b")
	require.NoError(t, err)

	require.NoError(t, a.Configure(Config("configure.slope", ir.Text("degrees"))))
	assert.Equal(t, ir.Text("ratio"), b.MustNode("configure.slope").Value())
	assert.NotEqual(t, keys(a.MustNode("slope.used").Producers()), keys(b.MustNode("slope.used").Producers()))
}

func TestSimConcurrentDags(t *testing.T) {
	sim := NewSim(sweepCatalog(t))

	var wg sync.WaitGroup
	results := make([]int, 8)
	errs := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := sim.CreateDag(fmt.Sprintf("scenario-%d", i))
			if err != nil {
				errs[i] = err
				return
			}
			if err := d.Select("scaled"); err != nil {
				errs[i] = err
				return
			}
			values := make([]ir.Value, i+1)
			for k := range values {
				values[k] = ir.Number(float64(k))
			}
			if err := d.Input(Input("site.wind.midflame", values...)); err != nil {
				errs[i] = err
				return
			}
			summary, err := d.Run()
			errs[i] = err
			results[i] = summary.Combinations
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, i+1, results[i])
	}
	assert.Len(t, sim.Names(), 8)
}
