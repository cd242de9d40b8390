package engine

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/variant"
)

// Locator identifies a node: a *Node of the same Dag, a gene key
// (string), or a gene index (int).
type Locator = any

// Setting assigns a value to a configuration node.
type Setting struct {
	Node  Locator
	Value ir.Value
}

// Config builds a Setting.
func Config(loc Locator, v ir.Value) Setting {
	return Setting{Node: loc, Value: v}
}

// Assignment supplies the candidate values swept for a node.
type Assignment struct {
	Node   Locator
	Values []ir.Value
}

// Input builds an Assignment.
func Input(loc Locator, values ...ir.Value) Assignment {
	return Assignment{Node: loc, Values: values}
}

// RunSummary reports the outcome of Run.
type RunSummary struct {
	Combinations    int    `json:"combinations"`
	NodeEvaluations int    `json:"node_evaluations"`
	OK              bool   `json:"ok"`
	Message         string `json:"message,omitempty"`
}

// Dag is one graph instance: an array of nodes cloned from a Catalog plus
// configuration, selection, and input state.
//
// A Dag is not safe for concurrent use. Create one Dag per independent
// scenario; the Catalog is shared read-only.
//
// INVARIANTS:
//   - nodes[i] is the runtime instance of catalog gene i
//   - the required set is the closure of selected and enabled nodes
//   - Run never evaluates while a wiring error is pending
type Dag struct {
	name     string
	cat      *catalog.Catalog
	nodes    []*Node
	sorted   []*Node
	inputs   map[int][]ir.Value
	strategy Strategy
	sink     Sink
	runLimit int

	topoErr error // last setTopology failure
	reqErr  error // last setRequired failure
}

// Option allows configuration of Dag parameters.
type Option func(*Dag)

// WithStrategy sets the evaluation strategy.
//
// Default: Odometer
func WithStrategy(s Strategy) Option {
	return func(d *Dag) {
		d.strategy = s
	}
}

// WithSink sets the result sink.
//
// Default: a fresh MemorySink
func WithSink(s Sink) Option {
	return func(d *Dag) {
		d.sink = s
	}
}

// WithRunLimit sets the maximum number of combinations recorded per run.
//
// Default: 1,000,000 combinations (DefaultRunLimit)
// Use WithRunLimit(10) for testing limit enforcement.
func WithRunLimit(limit int) Option {
	return func(d *Dag) {
		d.runLimit = limit
	}
}

// WithName sets the name used in logs and sinks.
func WithName(name string) Option {
	return func(d *Dag) {
		d.name = name
	}
}

// New creates a Dag from the catalog and wires it for the initial
// configuration values.
//
// A wiring failure does not prevent construction: it is returned by Err
// and by Run until a later Configure succeeds.
func New(cat *catalog.Catalog, opts ...Option) *Dag {
	d := &Dag{
		name:     "default",
		cat:      cat,
		nodes:    make([]*Node, cat.Len()),
		sorted:   make([]*Node, 0, cat.Len()),
		inputs:   make(map[int][]ir.Value),
		strategy: Odometer{},
		runLimit: DefaultRunLimit,
	}
	for i := range d.nodes {
		d.nodes[i] = &Node{dag: d, index: i, value: cat.InitialValue(i)}
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.sink == nil {
		d.sink = NewMemorySink()
	}
	d.rewire()
	return d
}

// rewire runs setTopology then setRequired and records any failure.
func (d *Dag) rewire() error {
	d.topoErr = d.setTopology()
	if d.topoErr != nil {
		slog.Debug("dag wiring failed", "dag", d.name, "error", d.topoErr)
		d.reqErr = nil
		return d.topoErr
	}
	return d.refreshRequired()
}

// refreshRequired reruns setRequired when the topology is valid.
func (d *Dag) refreshRequired() error {
	if d.topoErr != nil {
		return d.topoErr
	}
	d.reqErr = d.setRequired()
	return d.reqErr
}

// Err returns the pending wiring or requirement error, if any.
func (d *Dag) Err() error {
	if d.topoErr != nil {
		return d.topoErr
	}
	return d.reqErr
}

// Name returns the Dag name.
func (d *Dag) Name() string { return d.name }

// Catalog returns the shared catalog.
func (d *Dag) Catalog() *catalog.Catalog { return d.cat }

// Strategy returns the evaluation strategy.
func (d *Dag) Strategy() Strategy { return d.strategy }

// SetStrategy replaces the evaluation strategy.
func (d *Dag) SetStrategy(s Strategy) { d.strategy = s }

// Sink returns the result sink.
func (d *Dag) Sink() Sink { return d.sink }

// SetSink replaces the result sink.
func (d *Dag) SetSink(s Sink) { d.sink = s }

// RunLimit returns the combination ceiling.
func (d *Dag) RunLimit() int { return d.runLimit }

// SetRunLimit replaces the combination ceiling.
func (d *Dag) SetRunLimit(limit int) { d.runLimit = limit }

// Node resolves a locator to a node of this Dag.
func (d *Dag) Node(loc Locator) (*Node, error) {
	switch l := loc.(type) {
	case *Node:
		if l != nil && l.dag == d {
			return l, nil
		}
	case string:
		if i, ok := d.cat.Lookup(l); ok {
			return d.nodes[i], nil
		}
	case int:
		if l >= 0 && l < len(d.nodes) {
			return d.nodes[l], nil
		}
	}
	return nil, NewLocatorError(loc)
}

// MustNode is like Node but panics on error.
// Use only in tests or with keys known to exist.
func (d *Dag) MustNode(loc Locator) *Node {
	n, err := d.Node(loc)
	if err != nil {
		panic(err)
	}
	return n
}

// Configure assigns configuration values and rewires the graph.
//
// Every pair is resolved and validated before any value is assigned, so a
// rejected batch leaves the Dag unchanged. The updater of every node is then
// re-resolved, because one configuration value can redirect many nodes.
func (d *Dag) Configure(settings ...Setting) error {
	type pending struct {
		node  *Node
		value ir.Value
	}
	batch := make([]pending, 0, len(settings))
	for _, s := range settings {
		n, err := d.Node(s.Node)
		if err != nil {
			return err
		}
		if !n.config {
			return &GraphError{
				Code:    ErrCodeValidation,
				Message: "not a configuration node",
				Node:    n.Key(),
			}
		}
		r := variant.Validate(n.Type(), s.Value)
		if !r.Valid {
			return &GraphError{
				Code:    ErrCodeValidation,
				Message: r.Message,
				Node:    n.Key(),
				Details: map[string]string{"value": ir.Format(s.Value)},
			}
		}
		batch = append(batch, pending{node: n, value: r.Value})
	}

	for _, p := range batch {
		p.node.value = p.value
		slog.Debug("configured", "dag", d.name, "node", p.node.Key(), "value", ir.Format(p.value))
	}
	return d.rewire()
}

// Select adds nodes to the selected set and recomputes the required set.
func (d *Dag) Select(locs ...Locator) error {
	return d.setSelected(true, locs)
}

// Unselect removes nodes from the selected set and recomputes the required set.
func (d *Dag) Unselect(locs ...Locator) error {
	return d.setSelected(false, locs)
}

func (d *Dag) setSelected(selected bool, locs []Locator) error {
	nodes, err := d.resolve(locs)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		n.selected = selected
	}
	return d.refreshRequired()
}

// ClearSelected empties the selected set.
func (d *Dag) ClearSelected() error {
	for _, n := range d.nodes {
		n.selected = false
	}
	return d.refreshRequired()
}

// Input replaces the candidate values of each node, whether or not the
// node is currently wired as an input. Values persist until the next Input
// or ClearInputs.
func (d *Dag) Input(assignments ...Assignment) error {
	type pending struct {
		node   *Node
		values []ir.Value
	}
	batch := make([]pending, 0, len(assignments))
	for _, a := range assignments {
		n, err := d.Node(a.Node)
		if err != nil {
			return err
		}
		batch = append(batch, pending{node: n, values: slices.Clone(a.Values)})
	}
	for _, p := range batch {
		if p.values == nil {
			p.values = []ir.Value{}
		}
		d.inputs[p.node.index] = p.values
	}
	return nil
}

// ClearInputs removes every input assignment.
func (d *Dag) ClearInputs() {
	clear(d.inputs)
}

// Inputs returns the candidate values assigned to a node, if any.
func (d *Dag) Inputs(loc Locator) ([]ir.Value, bool, error) {
	n, err := d.Node(loc)
	if err != nil {
		return nil, false, err
	}
	vals, ok := d.inputs[n.index]
	return slices.Clone(vals), ok, nil
}

func (d *Dag) resolve(locs []Locator) ([]*Node, error) {
	nodes := make([]*Node, 0, len(locs))
	for _, loc := range locs {
		n, err := d.Node(loc)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func (d *Dag) lookup(indices []int) []*Node {
	out := make([]*Node, len(indices))
	for i, idx := range indices {
		out[i] = d.nodes[idx]
	}
	return out
}

func (d *Dag) filterSorted(keep func(*Node) bool) []*Node {
	var out []*Node
	for _, n := range d.sorted {
		if keep(n) {
			out = append(out, n)
		}
	}
	return out
}

// Nodes returns every node in gene index order.
func (d *Dag) Nodes() []*Node { return slices.Clone(d.nodes) }

// SortedNodes returns every node in execution order.
func (d *Dag) SortedNodes() []*Node { return slices.Clone(d.sorted) }

// SelectedNodes returns the selected nodes in execution order.
func (d *Dag) SelectedNodes() []*Node {
	return d.filterSorted(func(n *Node) bool { return n.selected })
}

// RequiredNodes returns the required nodes in execution order.
func (d *Dag) RequiredNodes() []*Node {
	return d.filterSorted(func(n *Node) bool { return n.required })
}

// RequiredInputNodes returns the required input nodes in execution order.
func (d *Dag) RequiredInputNodes() []*Node {
	return d.filterSorted(func(n *Node) bool { return n.required && n.input })
}

// RequiredConfigNodes returns the required configuration nodes in execution order.
func (d *Dag) RequiredConfigNodes() []*Node {
	return d.filterSorted(func(n *Node) bool { return n.required && n.config })
}

// RequiredUpdateNodes returns the required nodes computed by an operation,
// excluding inputs and configuration nodes, in execution order.
func (d *Dag) RequiredUpdateNodes() []*Node {
	return d.filterSorted(func(n *Node) bool { return n.required && !n.input && !n.config })
}

// Run evaluates every combination of the required inputs' candidate values
// and records each one in the sink.
//
// A required input with no assignment is swept over its current value
// alone. Exceeding the run limit is not an error: the summary reports
// ok=false and the combinations already stored remain in the sink.
func (d *Dag) Run() (RunSummary, error) {
	if err := d.Err(); err != nil {
		return RunSummary{}, err
	}

	required := d.RequiredNodes()
	values := make([][]ir.Value, len(required))
	for i, n := range required {
		if !n.input {
			continue
		}
		vals, ok := d.inputs[n.index]
		switch {
		case !ok:
			values[i] = []ir.Value{n.value}
		case len(vals) == 0:
			return RunSummary{}, &GraphError{
				Code:    ErrCodeMissingInput,
				Message: "required input has an empty value list",
				Node:    n.Key(),
			}
		default:
			values[i] = vals
		}
	}

	captured := d.captured(required)
	if err := d.sink.Init(RunInfo{Dag: d, Nodes: captured, Strategy: d.strategy.Name()}); err != nil {
		return RunSummary{}, &GraphError{Code: ErrCodeSink, Message: "sink init failed", Err: err}
	}

	w := &Walk{
		dag:     d,
		nodes:   required,
		values:  values,
		limiter: NewRunLimiter(d.runLimit),
		sink:    d.sink,
	}
	runErr := d.strategy.Run(w)

	summary := RunSummary{
		Combinations:    w.combinations,
		NodeEvaluations: w.evaluations,
		OK:              runErr == nil,
	}
	if IsRunLimitError(runErr) {
		summary.Message = runErr.Error()
		slog.Warn("run limit exceeded",
			"dag", d.name,
			"limit", w.limiter.Limit(),
			"combinations", w.combinations)
		runErr = nil
	}

	if err := d.sink.End(summary); err != nil && runErr == nil {
		runErr = &GraphError{Code: ErrCodeSink, Message: "sink end failed", Err: err}
	}
	if runErr != nil {
		return summary, runErr
	}

	slog.Debug("run complete",
		"dag", d.name,
		"strategy", d.strategy.Name(),
		"combinations", summary.Combinations,
		"evaluations", summary.NodeEvaluations,
		"ok", summary.OK)
	return summary, nil
}

// captured returns the required inputs followed by the selected required
// nodes that are not inputs, both in execution order.
func (d *Dag) captured(required []*Node) []*Node {
	var out []*Node
	for _, n := range required {
		if n.input {
			out = append(out, n)
		}
	}
	for _, n := range required {
		if n.selected && !n.input {
			out = append(out, n)
		}
	}
	return out
}

// String implements fmt.Stringer.
func (d *Dag) String() string {
	return fmt.Sprintf("Dag(%s, %d nodes)", d.name, len(d.nodes))
}
