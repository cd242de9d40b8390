package engine

import (
	"log/slog"
	"slices"

	"github.com/roach88/firegraph/internal/ir"
)

// resolveUpdater returns the index of the first updater whose condition
// matches the current value of its configuration node, else the default,
// and records each configuration node tested along the way in n.configs.
// Returns -1 when nothing matches.
func (d *Dag) resolveUpdater(n *Node) int {
	for j, u := range n.Gene().Updaters {
		if u.IsDefault() {
			return j
		}
		n.configs = appendUnique(n.configs, u.When.Config)
		cfg := d.nodes[u.When.Config]
		if ir.Equal(cfg.value, d.cat.Literal(u.When.Literal)) {
			return j
		}
	}
	return -1
}

// setTopology rebuilds the wiring of every node from the current
// configuration, assigns depths, and sorts the execution order.
//
// INVARIANTS:
//   - every producer sorts before each of its consumers
//   - an input sorts after every ordinary node of greater depth
//   - ties keep gene index order
func (d *Dag) setTopology() error {
	for _, n := range d.nodes {
		n.reset()
	}

	for _, n := range d.nodes {
		j := d.resolveUpdater(n)
		if j < 0 {
			return NewConfigurationError(n.Key())
		}
		u := n.Gene().Updaters[j]
		ref := d.cat.MethodRef(u.Method)

		n.updater = j
		n.method = d.cat.Method(u.Method)
		n.input = ref == ir.MethodInput
		n.config = ref == ir.MethodConfig
		n.enabled = ref != ir.MethodDisabled
		for _, p := range u.Params {
			if p.Kind != ir.ParamRef {
				continue
			}
			producer := d.nodes[p.Index]
			n.producers = appendUnique(n.producers, producer.index)
			producer.consumers = appendUnique(producer.consumers, n.index)
		}
	}

	if err := d.setDepths(); err != nil {
		return err
	}

	d.sorted = d.sorted[:0]
	d.sorted = append(d.sorted, d.nodes...)
	slices.SortStableFunc(d.sorted, func(a, b *Node) int {
		return b.sortKey() - a.sortKey()
	})
	for i, n := range d.sorted {
		n.order = i
	}

	slog.Debug("dag wired",
		"dag", d.name,
		"nodes", len(d.nodes),
		"max_depth", d.maxDepth())
	return nil
}

// setDepths assigns depth(n) = 1 + max(depth(consumers)) by memoized DFS.
// Revisiting a node on the current path is a cyclical dependency.
func (d *Dag) setDepths() error {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make([]int, len(d.nodes))
	var path []int

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case onPath:
			keys := make([]string, 0, len(path)+1)
			for _, p := range path {
				keys = append(keys, d.nodes[p].Key())
			}
			keys = append(keys, d.nodes[i].Key())
			return NewCycleError(keys)
		}

		state[i] = onPath
		path = append(path, i)
		n := d.nodes[i]
		depth := 1
		for _, c := range n.consumers {
			if err := visit(c); err != nil {
				return err
			}
			depth = max(depth, d.nodes[c].depth+1)
		}
		n.depth = depth
		path = path[:len(path)-1]
		state[i] = done
		return nil
	}

	for i := range d.nodes {
		if err := visit(i); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dag) maxDepth() int {
	m := 0
	for _, n := range d.nodes {
		m = max(m, n.depth)
	}
	return m
}

// setRequired recomputes the required set from the selected, enabled nodes.
func (d *Dag) setRequired() error {
	for _, n := range d.nodes {
		n.required = false
	}
	for _, n := range d.nodes {
		if n.selected && n.enabled {
			if err := d.require(n); err != nil {
				return err
			}
		}
	}
	return nil
}

// require marks n, its configuration nodes, and its producers.
func (d *Dag) require(n *Node) error {
	if n.required {
		return nil
	}
	n.required = true
	for _, c := range n.configs {
		if err := d.require(d.nodes[c]); err != nil {
			return err
		}
	}
	for _, p := range n.producers {
		producer := d.nodes[p]
		if !producer.enabled {
			return NewUnsatisfiableError(n.Key(), producer.Key())
		}
		if err := d.require(producer); err != nil {
			return err
		}
	}
	return nil
}
