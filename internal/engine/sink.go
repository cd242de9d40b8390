package engine

import (
	"slices"

	"github.com/roach88/firegraph/internal/ir"
)

// RunInfo describes a run to a Sink.
type RunInfo struct {
	Dag      *Dag
	Nodes    []*Node // captured nodes: required inputs, then selected outputs
	Strategy string
}

// Sink records evaluated combinations.
//
// Contract: Init is called once before the first combination; Store once
// per completed combination, reading the current value of each captured
// node; End once after the last combination. End is called whenever Init
// succeeded, including after a run-limit abort or an evaluation error.
type Sink interface {
	Init(info RunInfo) error
	Store() error
	End(summary RunSummary) error
}

// MemorySink buffers one ordered sequence of values per captured node.
type MemorySink struct {
	nodes   []*Node
	columns [][]ir.Value
	count   int
	summary RunSummary
	ended   bool
}

// NewMemorySink creates an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Init implements Sink. Previous results are discarded.
func (s *MemorySink) Init(info RunInfo) error {
	s.nodes = slices.Clone(info.Nodes)
	s.columns = make([][]ir.Value, len(s.nodes))
	s.count = 0
	s.summary = RunSummary{}
	s.ended = false
	return nil
}

// Store implements Sink.
func (s *MemorySink) Store() error {
	for i, n := range s.nodes {
		s.columns[i] = append(s.columns[i], n.value)
	}
	s.count++
	return nil
}

// End implements Sink.
func (s *MemorySink) End(summary RunSummary) error {
	s.summary = summary
	s.ended = true
	return nil
}

// Nodes returns the captured nodes in column order.
func (s *MemorySink) Nodes() []*Node { return slices.Clone(s.nodes) }

// Values returns the recorded values of a captured node, one per combination.
func (s *MemorySink) Values(loc Locator) []ir.Value {
	for i, n := range s.nodes {
		if n.dag == nil {
			continue
		}
		if m, err := n.dag.Node(loc); err == nil && m == n {
			return slices.Clone(s.columns[i])
		}
	}
	return nil
}

// Len returns the number of recorded combinations.
func (s *MemorySink) Len() int { return s.count }

// Rows returns the recorded combinations, one row per combination with one
// value per captured node.
func (s *MemorySink) Rows() [][]ir.Value {
	rows := make([][]ir.Value, s.Len())
	for r := range rows {
		row := make([]ir.Value, len(s.nodes))
		for c := range s.nodes {
			row[c] = s.columns[c][r]
		}
		rows[r] = row
	}
	return rows
}

// Summary returns the summary passed to End.
func (s *MemorySink) Summary() RunSummary { return s.summary }

// Ended reports whether End was called for the current run.
func (s *MemorySink) Ended() bool { return s.ended }
