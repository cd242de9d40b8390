package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/firegraph/internal/ir"
)

// CompileSource compiles CUE catalog source text into a Genome.
// The filename is used in error positions only.
func CompileSource(filename string, src []byte) (*ir.Genome, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	return CompileGenome(v, filename)
}

// CompileGenome parses a CUE catalog value into a Genome.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value must have this shape; gene order is declaration order:
//
//	name: "surface"
//	types: Fraction: {kind: "number", units: "ratio", min: 0, default: 0}
//	genes: "site.slope.ratio": {
//		type: "Fraction"
//		updaters: [
//			{when: {config: "configure.slope", equals: "degrees"}, method: "Slope.ratioFromDegrees", args: [{ref: "site.slope.degrees"}]},
//			{method: "Dag.input"},
//		]
//	}
//
// A gene may give method and args directly instead of updaters; that is a
// single default updater. Literals and method names are interned into the
// genome pools in first-use order.
func CompileGenome(v cue.Value, fallbackName string) (*ir.Genome, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	c := &genomeCompiler{
		genome:  &ir.Genome{Name: fallbackName},
		types:   make(map[string]int),
		genes:   make(map[string]int),
		methods: make(map[ir.MethodRef]int),
	}

	if nameVal := v.LookupPath(cue.ParsePath("name")); nameVal.Exists() {
		name, err := nameVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		c.genome.Name = name
	}

	if err := c.parseTypes(v.LookupPath(cue.ParsePath("types"))); err != nil {
		return nil, err
	}

	genesVal := v.LookupPath(cue.ParsePath("genes"))
	if !genesVal.Exists() {
		return nil, &CompileError{
			Field:   "genes",
			Message: "genes is required",
			Pos:     v.Pos(),
		}
	}
	if err := c.parseGenes(genesVal); err != nil {
		return nil, err
	}
	if len(c.genome.Genes) == 0 {
		return nil, &CompileError{
			Field:   "genes",
			Message: "at least one gene is required",
			Pos:     genesVal.Pos(),
		}
	}

	return c.genome, nil
}

type genomeCompiler struct {
	genome  *ir.Genome
	types   map[string]int
	genes   map[string]int
	methods map[ir.MethodRef]int
}

func (c *genomeCompiler) parseTypes(v cue.Value) error {
	if !v.Exists() {
		return &CompileError{Field: "types", Message: "types is required", Pos: v.Pos()}
	}
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	for iter.Next() {
		name := iter.Selector().Unquoted()
		t, err := parseValueType(name, iter.Value())
		if err != nil {
			return err
		}
		c.types[name] = len(c.genome.Types)
		c.genome.Types = append(c.genome.Types, t)
	}
	return nil
}

func parseValueType(name string, v cue.Value) (ir.ValueType, error) {
	t := ir.ValueType{Name: name}
	field := "types." + name

	kind, err := requiredString(v, "kind", field)
	if err != nil {
		return t, err
	}
	t.Kind = ir.ValueKind(kind)

	if t.Units, err = optionalString(v, "units"); err != nil {
		return t, err
	}
	if t.DisplayUnits, err = optionalString(v, "display_units"); err != nil {
		return t, err
	}
	if f, ok, err := optionalFloat(v, "display_factor"); err != nil {
		return t, err
	} else if ok {
		t.DisplayFactor = f
	}
	if f, ok, err := optionalFloat(v, "min"); err != nil {
		return t, err
	} else if ok {
		t.Min = &f
	}
	if f, ok, err := optionalFloat(v, "max"); err != nil {
		return t, err
	} else if ok {
		t.Max = &f
	}
	if d := v.LookupPath(cue.ParsePath("decimals")); d.Exists() {
		n, err := d.Int64()
		if err != nil {
			return t, formatCUEError(err)
		}
		t.Decimals = int(n)
	}

	if opts := v.LookupPath(cue.ParsePath("options")); opts.Exists() {
		iter, err := opts.List()
		if err != nil {
			return t, formatCUEError(err)
		}
		for iter.Next() {
			s, err := iter.Value().String()
			if err != nil {
				return t, formatCUEError(err)
			}
			t.Options = append(t.Options, s)
		}
	}

	if d := v.LookupPath(cue.ParsePath("default")); d.Exists() {
		lit, err := literalValue(d)
		if err != nil {
			return t, err
		}
		t.Default = lit
	}
	return t, nil
}

// parseGenes makes two passes: keys first, so updaters may reference genes
// declared later, then bodies.
func (c *genomeCompiler) parseGenes(v cue.Value) error {
	iter, err := v.Fields()
	if err != nil {
		return formatCUEError(err)
	}
	type entry struct {
		key string
		val cue.Value
	}
	var entries []entry
	for iter.Next() {
		key := iter.Selector().Unquoted()
		c.genes[key] = len(entries)
		entries = append(entries, entry{key: key, val: iter.Value()})
	}

	for i, e := range entries {
		gene, err := c.parseGene(i, e.key, e.val)
		if err != nil {
			return err
		}
		c.genome.Genes = append(c.genome.Genes, gene)
	}
	return nil
}

func (c *genomeCompiler) parseGene(index int, key string, v cue.Value) (ir.Gene, error) {
	gene := ir.Gene{Index: index, Key: key}
	field := "genes." + key

	typeName, err := requiredString(v, "type", field)
	if err != nil {
		return gene, err
	}
	typ, ok := c.types[typeName]
	if !ok {
		return gene, &CompileError{
			Field:   field + ".type",
			Message: fmt.Sprintf("unknown type %q", typeName),
			Pos:     v.LookupPath(cue.ParsePath("type")).Pos(),
		}
	}
	gene.Type = typ

	if gene.Label, err = optionalString(v, "label"); err != nil {
		return gene, err
	}
	if val := v.LookupPath(cue.ParsePath("value")); val.Exists() {
		lit, err := literalValue(val)
		if err != nil {
			return gene, err
		}
		gene.Value = lit
	}

	updaters := v.LookupPath(cue.ParsePath("updaters"))
	if !updaters.Exists() {
		if !v.LookupPath(cue.ParsePath("method")).Exists() {
			return gene, &CompileError{
				Field:   field,
				Message: "either updaters or method is required",
				Pos:     v.Pos(),
			}
		}
		u, err := c.parseUpdater(field, v)
		if err != nil {
			return gene, err
		}
		gene.Updaters = []ir.Updater{u}
		return gene, nil
	}

	iter, err := updaters.List()
	if err != nil {
		return gene, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		u, err := c.parseUpdater(fmt.Sprintf("%s.updaters[%d]", field, i), iter.Value())
		if err != nil {
			return gene, err
		}
		gene.Updaters = append(gene.Updaters, u)
	}
	return gene, nil
}

func (c *genomeCompiler) parseUpdater(field string, v cue.Value) (ir.Updater, error) {
	u := ir.Updater{Params: []ir.Param{}}

	method, err := requiredString(v, "method", field)
	if err != nil {
		return u, err
	}
	u.Method = c.internMethod(ir.MethodRef(method))

	if when := v.LookupPath(cue.ParsePath("when")); when.Exists() {
		configKey, err := requiredString(when, "config", field+".when")
		if err != nil {
			return u, err
		}
		config, ok := c.genes[configKey]
		if !ok {
			return u, &CompileError{
				Field:   field + ".when.config",
				Message: fmt.Sprintf("unknown gene %q", configKey),
				Pos:     when.LookupPath(cue.ParsePath("config")).Pos(),
			}
		}
		equals := when.LookupPath(cue.ParsePath("equals"))
		if !equals.Exists() {
			return u, &CompileError{
				Field:   field + ".when.equals",
				Message: "equals is required",
				Pos:     when.Pos(),
			}
		}
		lit, err := literalValue(equals)
		if err != nil {
			return u, err
		}
		u.When = &ir.Condition{Config: config, Literal: c.internLiteral(lit)}
	}

	args := v.LookupPath(cue.ParsePath("args"))
	if !args.Exists() {
		return u, nil
	}
	iter, err := args.List()
	if err != nil {
		return u, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		p, err := c.parseParam(fmt.Sprintf("%s.args[%d]", field, i), iter.Value())
		if err != nil {
			return u, err
		}
		u.Params = append(u.Params, p)
	}
	return u, nil
}

func (c *genomeCompiler) parseParam(field string, v cue.Value) (ir.Param, error) {
	ref := v.LookupPath(cue.ParsePath("ref"))
	lit := v.LookupPath(cue.ParsePath("lit"))

	switch {
	case ref.Exists() && lit.Exists():
		return ir.Param{}, &CompileError{Field: field, Message: "ref and lit are mutually exclusive", Pos: v.Pos()}
	case ref.Exists():
		key, err := ref.String()
		if err != nil {
			return ir.Param{}, formatCUEError(err)
		}
		idx, ok := c.genes[key]
		if !ok {
			return ir.Param{}, &CompileError{
				Field:   field + ".ref",
				Message: fmt.Sprintf("unknown gene %q", key),
				Pos:     ref.Pos(),
			}
		}
		return ir.Ref(idx), nil
	case lit.Exists():
		val, err := literalValue(lit)
		if err != nil {
			return ir.Param{}, err
		}
		return ir.Lit(c.internLiteral(val)), nil
	default:
		return ir.Param{}, &CompileError{Field: field, Message: "one of ref or lit is required", Pos: v.Pos()}
	}
}

func (c *genomeCompiler) internLiteral(v ir.Value) int {
	for i, lit := range c.genome.Literals {
		if ir.Equal(lit, v) {
			return i
		}
	}
	c.genome.Literals = append(c.genome.Literals, v)
	return len(c.genome.Literals) - 1
}

func (c *genomeCompiler) internMethod(m ir.MethodRef) int {
	if i, ok := c.methods[m]; ok {
		return i
	}
	c.methods[m] = len(c.genome.Methods)
	c.genome.Methods = append(c.genome.Methods, m)
	return len(c.genome.Methods) - 1
}

// literalValue converts a concrete CUE scalar to an ir.Value.
func literalValue(v cue.Value) (ir.Value, error) {
	switch v.Kind() {
	case cue.NullKind:
		return ir.Null{}, nil
	case cue.BoolKind:
		b, err := v.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Bool(b), nil
	case cue.StringKind:
		s, err := v.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Text(s), nil
	case cue.IntKind, cue.FloatKind, cue.NumberKind:
		f, err := v.Float64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		return ir.Number(f), nil
	default:
		return nil, &CompileError{
			Field:   "literal",
			Message: fmt.Sprintf("unsupported literal kind: %v (want number, string, bool, or null)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

func requiredString(v cue.Value, name, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", &CompileError{
			Field:   field + "." + name,
			Message: name + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, name string) (string, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalFloat(v cue.Value, name string) (float64, bool, error) {
	f := v.LookupPath(cue.ParsePath(name))
	if !f.Exists() {
		return 0, false, nil
	}
	n, err := f.Float64()
	if err != nil {
		return 0, false, formatCUEError(err)
	}
	return n, true, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
