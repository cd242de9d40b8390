// Package worksheet loads HCL worksheet files: the configuration, selection,
// and candidate input values for one run of a graph instance.
//
//	dag       = "fuel-sweep"
//	strategy  = "odometer"
//	run_limit = 10000
//
//	config "configure.wind.speed" {
//	  value = "at20ft"
//	}
//
//	select = ["surface.fire.spreadRate.head", "surface.fire.flameLength"]
//
//	input "site.wind.speed.at20ft" {
//	  values  = range(0, 25, 5)
//	  display = true # values are mi/h, converted to native ft/min
//	}
//
// Expressions may call range, concat, and min/max from the cty stdlib.
package worksheet

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/ir"
)

// Worksheet is one decoded worksheet file.
type Worksheet struct {
	Path     string
	Dag      string
	Strategy string
	RunLimit int
	Configs  []Config
	Select   []string
	Inputs   []Input
}

// Config is one configuration choice.
type Config struct {
	Key   string
	Value ir.Value
}

// Input is one input node's candidate values.
type Input struct {
	Key     string
	Values  []ir.Value
	Display bool
}

// hclWorksheetFile represents the top-level structure of a worksheet for decoding.
type hclWorksheetFile struct {
	Dag      *string           `hcl:"dag,optional"`
	Strategy *string           `hcl:"strategy,optional"`
	RunLimit *int              `hcl:"run_limit,optional"`
	Select   []string          `hcl:"select,optional"`
	Configs  []*hclConfigBlock `hcl:"config,block"`
	Inputs   []*hclInputBlock  `hcl:"input,block"`
}

type hclConfigBlock struct {
	Key   string    `hcl:"key,label"`
	Value cty.Value `hcl:"value"`
}

type hclInputBlock struct {
	Key     string    `hcl:"key,label"`
	Values  cty.Value `hcl:"values"`
	Display bool      `hcl:"display,optional"`
}

// evalContext exposes a small function library to worksheet expressions.
func evalContext() *hcl.EvalContext {
	return &hcl.EvalContext{
		Functions: map[string]function.Function{
			"range":  stdlib.RangeFunc,
			"concat": stdlib.ConcatFunc,
			"min":    stdlib.MinFunc,
			"max":    stdlib.MaxFunc,
		},
	}
}

// Load parses and decodes a worksheet file.
func Load(path string) (*Worksheet, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read worksheet: %w", err)
	}
	return Parse(path, src)
}

// Parse decodes worksheet source. The filename is used in diagnostics.
func Parse(filename string, src []byte) (*Worksheet, error) {
	slog.Debug("decoding worksheet", "path", filename)

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse worksheet %s: %s", filename, diags.Error())
	}

	var parsed hclWorksheetFile
	diags = gohcl.DecodeBody(file.Body, evalContext(), &parsed)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode worksheet %s: %s", filename, diags.Error())
	}

	ws := &Worksheet{Path: filename, Select: parsed.Select}
	if parsed.Dag != nil {
		ws.Dag = *parsed.Dag
	}
	if parsed.Strategy != nil {
		ws.Strategy = *parsed.Strategy
		if _, err := engine.StrategyByName(ws.Strategy); err != nil {
			return nil, fmt.Errorf("worksheet %s: %w", filename, err)
		}
	}
	if parsed.RunLimit != nil {
		if *parsed.RunLimit <= 0 {
			return nil, fmt.Errorf("worksheet %s: run_limit must be positive, got %d", filename, *parsed.RunLimit)
		}
		ws.RunLimit = *parsed.RunLimit
	}

	seen := make(map[string]bool)
	for _, c := range parsed.Configs {
		if seen["config:"+c.Key] {
			return nil, fmt.Errorf("worksheet %s: duplicate config block %q", filename, c.Key)
		}
		seen["config:"+c.Key] = true
		v, err := valueFromCty(c.Value)
		if err != nil {
			return nil, fmt.Errorf("worksheet %s: config %q: %w", filename, c.Key, err)
		}
		ws.Configs = append(ws.Configs, Config{Key: c.Key, Value: v})
	}

	for _, in := range parsed.Inputs {
		if seen["input:"+in.Key] {
			return nil, fmt.Errorf("worksheet %s: duplicate input block %q", filename, in.Key)
		}
		seen["input:"+in.Key] = true
		vals, err := valuesFromCty(in.Values)
		if err != nil {
			return nil, fmt.Errorf("worksheet %s: input %q: %w", filename, in.Key, err)
		}
		ws.Inputs = append(ws.Inputs, Input{Key: in.Key, Values: vals, Display: in.Display})
	}

	slog.Debug("decoded worksheet",
		"path", filename,
		"configs", len(ws.Configs),
		"selected", len(ws.Select),
		"inputs", len(ws.Inputs))
	return ws, nil
}

// Options returns the engine options the worksheet sets. Fields left
// unset produce no option.
func (w *Worksheet) Options() ([]engine.Option, error) {
	var opts []engine.Option
	if w.Dag != "" {
		opts = append(opts, engine.WithName(w.Dag))
	}
	if w.Strategy != "" {
		s, err := engine.StrategyByName(w.Strategy)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithStrategy(s))
	}
	if w.RunLimit > 0 {
		opts = append(opts, engine.WithRunLimit(w.RunLimit))
	}
	return opts, nil
}

// InvalidInputError reports candidate values rejected by their value types.
type InvalidInputError struct {
	Failures []engine.Validation
}

func (e *InvalidInputError) Error() string {
	if len(e.Failures) == 1 {
		f := e.Failures[0]
		return fmt.Sprintf("invalid input %s[%d]: %s", f.Node, f.Position, f.Message)
	}
	return fmt.Sprintf("%d invalid input values (first: %s[%d]: %s)",
		len(e.Failures), e.Failures[0].Node, e.Failures[0].Position, e.Failures[0].Message)
}

// Apply configures d, replaces its selection, and assigns the inputs.
// Every input value is validated first; d is left unchanged by inputs when
// any value is rejected.
func (w *Worksheet) Apply(d *engine.Dag) error {
	if len(w.Configs) > 0 {
		settings := make([]engine.Setting, len(w.Configs))
		for i, c := range w.Configs {
			settings[i] = engine.Config(c.Key, c.Value)
		}
		if err := d.Configure(settings...); err != nil {
			return fmt.Errorf("configure: %w", err)
		}
	}

	if err := d.ClearSelected(); err != nil {
		return fmt.Errorf("select: %w", err)
	}
	if len(w.Select) > 0 {
		locs := make([]engine.Locator, len(w.Select))
		for i, key := range w.Select {
			locs[i] = key
		}
		if err := d.Select(locs...); err != nil {
			return fmt.Errorf("select: %w", err)
		}
	}

	assignments, err := w.assignments(d)
	if err != nil {
		return err
	}
	if len(assignments) > 0 {
		if err := d.Input(assignments...); err != nil {
			return fmt.Errorf("input: %w", err)
		}
	}
	return nil
}

// assignments validates every input and converts display values to native.
func (w *Worksheet) assignments(d *engine.Dag) ([]engine.Assignment, error) {
	var (
		out      []engine.Assignment
		failures []engine.Validation
	)
	for _, in := range w.Inputs {
		a := engine.Input(in.Key, in.Values...)
		var (
			rejected []engine.Validation
			err      error
		)
		if in.Display {
			rejected, err = d.ValidateDisplayInputs(a)
		} else {
			rejected, err = d.ValidateNativeInputs(a)
		}
		if err != nil {
			return nil, fmt.Errorf("input: %w", err)
		}
		failures = append(failures, rejected...)

		if in.Display {
			native, err := d.NativeValues(in.Key, in.Values)
			if err != nil {
				return nil, fmt.Errorf("input: %w", err)
			}
			a = engine.Input(in.Key, native...)
		}
		out = append(out, a)
	}
	if len(failures) > 0 {
		return nil, &InvalidInputError{Failures: failures}
	}
	return out, nil
}
