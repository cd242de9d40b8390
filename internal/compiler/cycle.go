package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/firegraph/internal/ir"
)

// CycleWarning represents a potential cycle among gene updaters.
//
// Cycles are warnings, not errors, because a graph instance only wires the
// updater each configuration selects. A cycle across alternative updaters
// (wind speed derived from midflame in one configuration and midflame from
// wind speed in another) is legal as long as no single configuration
// activates every edge. The engine rejects an active cycle at wiring time.
type CycleWarning struct {
	Path    []string `json:"path"`    // Cycle path: ["a", "b", "a"]
	Message string   `json:"message"` // Human-readable description
	Level   string   `json:"level"`   // "warning" or "info"
}

// AnalyzeCycles performs static cycle analysis over every updater variant.
//
// The algorithm:
//  1. Build gene → dependency graph from reference arguments and conditions
//  2. Use Tarjan's algorithm to find strongly connected components
//  3. Report each SCC with size > 1 or self-loops as a potential cycle warning
//
// Genes are visited in index order so output is deterministic.
// An acyclic genome returns an empty warning list.
func AnalyzeCycles(g *ir.Genome) []CycleWarning {
	if g == nil || len(g.Genes) == 0 {
		return []CycleWarning{}
	}

	graph := buildDependencyGraph(g)
	sccs := tarjanSCC(graph)

	warnings := []CycleWarning{}
	for _, scc := range sccs {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(g, scc, graph))
		}
	}
	slices.SortStableFunc(warnings, func(a, b CycleWarning) int {
		return strings.Compare(a.Path[0], b.Path[0])
	})
	return warnings
}

// dependencyGraph maps gene index → sorted gene indices it may read.
type dependencyGraph [][]int

func buildDependencyGraph(g *ir.Genome) dependencyGraph {
	graph := make(dependencyGraph, len(g.Genes))
	for i, gene := range g.Genes {
		var deps []int
		for _, u := range gene.Updaters {
			if u.When != nil {
				deps = append(deps, u.When.Config)
			}
			for _, p := range u.Params {
				if p.Kind == ir.ParamRef {
					deps = append(deps, p.Index)
				}
			}
		}
		slices.Sort(deps)
		graph[i] = slices.Compact(deps)
	}
	return graph
}

func hasSelfLoop(node int, graph dependencyGraph) bool {
	_, found := slices.BinarySearch(graph[node], node)
	return found
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Members of each SCC are returned in ascending index order.
func tarjanSCC(graph dependencyGraph) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(graph))
		lowlink = make([]int, len(graph))
		onStack = make([]bool, len(graph))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if w < 0 || w >= len(graph) {
				continue
			}
			if indices[w] < 0 {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	for node := range graph {
		if indices[node] < 0 {
			strongConnect(node)
		}
	}
	return sccs
}

func cycleSCCToWarning(g *ir.Genome, scc []int, graph dependencyGraph) CycleWarning {
	var path []string
	if len(scc) == 1 {
		key := g.Genes[scc[0]].Key
		path = []string{key, key}
		return CycleWarning{
			Path:    path,
			Message: fmt.Sprintf("Self-referencing gene detected: %s → %s", key, key),
			Level:   "warning",
		}
	}

	for _, idx := range reconstructCyclePath(scc, graph) {
		path = append(path, g.Genes[idx].Key)
	}
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("Potential cycle detected: %s", strings.Join(path, " → ")),
		Level:   "warning",
	}
}

// reconstructCyclePath walks from the lowest member along the lowest
// unvisited in-SCC edge until it returns to the start.
func reconstructCyclePath(scc []int, graph dependencyGraph) []int {
	inSCC := make(map[int]bool, len(scc))
	for _, n := range scc {
		inSCC[n] = true
	}

	start := scc[0]
	current := start
	path := []int{current}
	visited := map[int]bool{}

	for {
		visited[current] = true
		next := -1
		for _, w := range graph[current] {
			if inSCC[w] && (!visited[w] || w == start) {
				next = w
				if w != start {
					break
				}
			}
		}
		if next < 0 {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}
	return path
}
