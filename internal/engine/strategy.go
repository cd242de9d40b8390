package engine

import (
	"fmt"

	"github.com/roach88/firegraph/internal/ir"
)

// Strategy walks the ordered required nodes once per combination of input
// values. Implementations must record combinations in the same order:
// the last input in execution order varies fastest.
type Strategy interface {
	Name() string
	Run(w *Walk) error
}

// Strategy names accepted by StrategyByName.
const (
	StrategyRecursive = "recursive"
	StrategyOdometer  = "odometer"
)

// StrategyByName returns the strategy registered under name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case StrategyRecursive:
		return Recursive{}, nil
	case StrategyOdometer, "":
		return Odometer{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (want %s or %s)", name, StrategyRecursive, StrategyOdometer)
	}
}

// Walk is the state of one run handed to a Strategy: the ordered required
// nodes, the candidate values of the inputs among them, and the counters.
type Walk struct {
	dag          *Dag
	nodes        []*Node
	values       [][]ir.Value // candidate values per position; nil for non-inputs
	limiter      *RunLimiter
	sink         Sink
	args         []ir.Value // scratch buffer for operation arguments
	evaluations  int
	combinations int
}

// Len returns the number of nodes in the walk.
func (w *Walk) Len() int { return len(w.nodes) }

// IsInput reports whether position i is swept rather than evaluated.
func (w *Walk) IsInput(i int) bool { return w.values[i] != nil }

// Values returns the number of candidate values at input position i.
func (w *Walk) Values(i int) int { return len(w.values[i]) }

// Assign sets input position i to its k-th candidate value.
func (w *Walk) Assign(i, k int) { w.nodes[i].value = w.values[i][k] }

// Evaluate runs the bound operation of the node at position i.
func (w *Walk) Evaluate(i int) error {
	n := w.nodes[i]
	w.evaluations++
	if n.method == nil {
		return nil
	}

	u := n.Gene().Updaters[n.updater]
	w.args = w.args[:0]
	for _, p := range u.Params {
		if p.Kind == ir.ParamLiteral {
			w.args = append(w.args, w.dag.cat.Literal(p.Index))
		} else {
			w.args = append(w.args, w.dag.nodes[p.Index].value)
		}
	}

	v, err := n.method(w.args)
	if err != nil {
		return &GraphError{
			Code:    ErrCodeEvaluation,
			Message: fmt.Sprintf("%s failed", w.dag.cat.MethodRef(u.Method)),
			Node:    n.Key(),
			Err:     err,
		}
	}
	if v == nil {
		v = ir.Null{}
	}
	n.value = v
	return nil
}

// Record stores the current combination in the sink, subject to the run limit.
func (w *Walk) Record() error {
	if err := w.limiter.Check(); err != nil {
		return err
	}
	if err := w.sink.Store(); err != nil {
		return &GraphError{Code: ErrCodeSink, Message: "sink store failed", Err: err}
	}
	w.combinations++
	return nil
}

// Evaluations returns the number of node evaluations so far.
func (w *Walk) Evaluations() int { return w.evaluations }

// Combinations returns the number of recorded combinations so far.
func (w *Walk) Combinations() int { return w.combinations }

// Recursive is the nested-loop strategy. At position i an input iterates its
// values and recurses for each; any other node is evaluated once and the walk
// recurses. Reaching the end records one combination.
type Recursive struct{}

// Name implements Strategy.
func (Recursive) Name() string { return StrategyRecursive }

// Run implements Strategy.
func (Recursive) Run(w *Walk) error {
	return recurse(w, 0)
}

func recurse(w *Walk, i int) error {
	if i == w.Len() {
		return w.Record()
	}
	if w.IsInput(i) {
		for k := 0; k < w.Values(i); k++ {
			w.Assign(i, k)
			if err := recurse(w, i+1); err != nil {
				return err
			}
		}
		return nil
	}
	if err := w.Evaluate(i); err != nil {
		return err
	}
	return recurse(w, i+1)
}

// Odometer is the iterative strategy. It keeps one cursor per input and
// walks the sequence forward and backward like a mixed-radix counter:
// advancing an input re-evaluates only the nodes after it.
//
// CRITICAL: correctness depends on the execution order placing every node
// after all of its producers, so the nodes before an advanced input never
// depend on it.
type Odometer struct{}

// Name implements Strategy.
func (Odometer) Name() string { return StrategyOdometer }

// Run implements Strategy.
func (Odometer) Run(w *Walk) error {
	n := w.Len()
	cursor := make([]int, n)
	i, forward := 0, true

	for i >= 0 {
		if forward {
			if i == n {
				if err := w.Record(); err != nil {
					return err
				}
				forward = false
				i--
				continue
			}
			if w.IsInput(i) {
				cursor[i] = 0
				w.Assign(i, 0)
			} else if err := w.Evaluate(i); err != nil {
				return err
			}
			i++
			continue
		}

		// Backward: advance the nearest input that still has values.
		if w.IsInput(i) {
			cursor[i]++
			if cursor[i] < w.Values(i) {
				w.Assign(i, cursor[i])
				forward = true
				i++
				continue
			}
		}
		i--
	}
	return nil
}
