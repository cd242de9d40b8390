package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzeCycles_Empty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCycles_Acyclic(t *testing.T) {
	g, err := CompileSource("dag.cue", []byte(`
types: N: {kind: "number"}
genes: {
	a: {type: "N", method: "Dag.input"}
	b: {type: "N", method: "Dag.bind", args: [{ref: "a"}]}
	c: {type: "N", method: "Calc.add", args: [{ref: "a"}, {ref: "b"}]}
}`))
	require.NoError(t, err)
	assert.Empty(t, AnalyzeCycles(g))
}

func TestAnalyzeCycles_AlternativeUpdaters(t *testing.T) {
	// The slope pair references each other only under different
	// configurations; still reported, as a warning.
	g := compileSlope(t)

	warnings := AnalyzeCycles(g)
	require.Len(t, warnings, 1)
	w := warnings[0]
	assert.Equal(t, "warning", w.Level)
	assert.Equal(t, []string{"site.slope.ratio", "site.slope.degrees", "site.slope.ratio"}, w.Path)
	assert.Contains(t, w.Message, "Potential cycle detected")
}

func TestAnalyzeCycles_SelfLoop(t *testing.T) {
	g, err := CompileSource("self.cue", []byte(`
types: N: {kind: "number"}
genes: a: {type: "N", method: "Dag.bind", args: [{ref: "a"}]}`))
	require.NoError(t, err)

	warnings := AnalyzeCycles(g)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "a"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "Self-referencing")
}

func TestAnalyzeCycles_ThreeNodes(t *testing.T) {
	g, err := CompileSource("three.cue", []byte(`
types: N: {kind: "number"}
genes: {
	a: {type: "N", method: "Dag.bind", args: [{ref: "c"}]}
	b: {type: "N", method: "Dag.bind", args: [{ref: "a"}]}
	c: {type: "N", method: "Dag.bind", args: [{ref: "b"}]}
	d: {type: "N", method: "Dag.bind", args: [{ref: "c"}]}
}`))
	require.NoError(t, err)

	warnings := AnalyzeCycles(g)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "c", "b", "a"}, warnings[0].Path)
}

func TestAnalyzeCycles_ConditionEdges(t *testing.T) {
	g, err := CompileSource("cond.cue", []byte(`
types: {N: {kind: "number"}, O: {kind: "option", options: ["x"]}}
genes: {
	c: {type: "O", method: "Dag.config"}
	a: {type: "N", updaters: [{when: {config: "c", equals: "x"}, method: "Dag.bind", args: [{ref: "b"}]}, {method: "Dag.input"}]}
	b: {type: "N", method: "Dag.bind", args: [{ref: "a"}]}
}`))
	require.NoError(t, err)

	warnings := AnalyzeCycles(g)
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"a", "b", "a"}, warnings[0].Path)
}

func TestAnalyzeCycles_Deterministic(t *testing.T) {
	g := compileSlope(t)
	first := AnalyzeCycles(g)
	for range 10 {
		assert.Equal(t, first, AnalyzeCycles(g))
	}
}
