package engine

import (
	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/variant"
)

// Node is the runtime instance of one gene inside one Dag.
//
// Producers and consumers are index lists into the owning Dag's node
// array, never owning references.
type Node struct {
	dag   *Dag
	index int
	value ir.Value

	selected bool // caller-requested output; survives rewiring

	// Wiring state, rebuilt by reset and setTopology.
	enabled   bool
	required  bool
	input     bool
	config    bool
	updater   int            // index into gene.Updaters, -1 when unresolved
	method    catalog.Method // bound callable; nil is identity
	configs   []int          // configuration nodes tested to choose the updater
	producers []int
	consumers []int
	depth     int
	order     int
}

// reset clears topology and the input and required flags.
func (n *Node) reset() {
	n.enabled = true
	n.required = false
	n.input = false
	n.config = false
	n.updater = -1
	n.method = nil
	n.configs = n.configs[:0]
	n.producers = n.producers[:0]
	n.consumers = n.consumers[:0]
	n.depth = 0
	n.order = 0
}

// Index returns the gene index.
func (n *Node) Index() int { return n.index }

// Key returns the gene key.
func (n *Node) Key() string { return n.Gene().Key }

// Label returns the gene label, falling back to the key.
func (n *Node) Label() string {
	if l := n.Gene().Label; l != "" {
		return l
	}
	return n.Key()
}

// Gene returns the static definition.
func (n *Node) Gene() *ir.Gene { return n.dag.cat.Gene(n.index) }

// Type returns the value type descriptor.
func (n *Node) Type() *ir.ValueType { return n.dag.cat.Type(n.index) }

// Value returns the current native value.
func (n *Node) Value() ir.Value { return n.value }

// DisplayValue returns the current value in display units.
func (n *Node) DisplayValue() ir.Value { return variant.ToDisplay(n.Type(), n.value) }

// DisplayString formats the current value with display units.
func (n *Node) DisplayString() string { return variant.FormatDisplay(n.Type(), n.value) }

// Units returns the native units.
func (n *Node) Units() string { return n.Type().Units }

// DisplayUnits returns the display units.
func (n *Node) DisplayUnits() string { return variant.DisplayUnits(n.Type()) }

// Method returns the name of the active operation, or "" if unresolved.
func (n *Node) Method() ir.MethodRef {
	if n.updater < 0 {
		return ""
	}
	return n.dag.cat.MethodRef(n.Gene().Updaters[n.updater].Method)
}

// Updater returns the index of the active updater rule, or -1.
func (n *Node) Updater() int { return n.updater }

// IsEnabled reports whether the active operation is not Dag.disabled.
func (n *Node) IsEnabled() bool { return n.enabled }

// IsRequired reports whether the node is in the required set.
func (n *Node) IsRequired() bool { return n.required }

// IsSelected reports whether the caller selected the node.
func (n *Node) IsSelected() bool { return n.selected }

// IsInput reports whether the active operation is Dag.input.
func (n *Node) IsInput() bool { return n.input }

// IsConfig reports whether the node is a configuration node.
func (n *Node) IsConfig() bool { return n.config }

// ConfigNodes returns the configuration nodes whose values chose the
// active updater: every condition tested up to and including the match.
func (n *Node) ConfigNodes() []*Node { return n.dag.lookup(n.configs) }

// Producers returns the nodes whose values feed this one.
func (n *Node) Producers() []*Node { return n.dag.lookup(n.producers) }

// Consumers returns the nodes fed by this one.
func (n *Node) Consumers() []*Node { return n.dag.lookup(n.consumers) }

// Depth returns the distance to the farthest final consumer, counting from 1.
func (n *Node) Depth() int { return n.depth }

// Order returns the position in the sorted execution sequence.
func (n *Node) Order() int { return n.order }

// sortKey places an input ahead of the ordinary nodes of its depth band.
func (n *Node) sortKey() int {
	if n.input {
		return 2 * n.depth
	}
	return 2*n.depth - 1
}

func appendUnique(list []int, i int) []int {
	for _, x := range list {
		if x == i {
			return list
		}
	}
	return append(list, i)
}
