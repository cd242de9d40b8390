package testutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/firegraph/internal/catalog"
	"github.com/roach88/firegraph/internal/ir"
)

// GenomeBuilder assembles an ir.Genome by key, interning literals and
// method names into pools the way the compiler does.
//
// Genes may reference keys declared later; references are resolved by Build.
// The builder starts with a "Number" type (native units, default 0).
type GenomeBuilder struct {
	name    string
	types   []ir.ValueType
	typeIdx map[string]int
	genes   []geneSpec
	errs    []error
}

type geneSpec struct {
	key      string
	typ      string
	label    string
	value    ir.Value
	updaters []UpdaterSpec
}

// UpdaterSpec is a key-based updater rule.
type UpdaterSpec struct {
	WhenConfig string   // configuration gene key; empty for the default
	WhenValue  ir.Value // literal the configuration value must equal
	Method     ir.MethodRef
	Args       []Arg
}

// Arg is a key-based parameter: a gene reference or a literal.
type Arg struct {
	Ref string
	Lit ir.Value
}

// R references another gene by key.
func R(key string) Arg { return Arg{Ref: key} }

// L is a literal argument.
func L(v ir.Value) Arg { return Arg{Lit: v} }

// When builds a conditioned updater.
func When(config string, v ir.Value, method ir.MethodRef, args ...Arg) UpdaterSpec {
	return UpdaterSpec{WhenConfig: config, WhenValue: v, Method: method, Args: args}
}

// Default builds an unconditioned updater.
func Default(method ir.MethodRef, args ...Arg) UpdaterSpec {
	return UpdaterSpec{Method: method, Args: args}
}

// NewGenome creates a builder.
func NewGenome(name string) *GenomeBuilder {
	b := &GenomeBuilder{name: name, typeIdx: make(map[string]int)}
	b.Type(ir.ValueType{Name: "Number", Kind: ir.ValueKindNumber, Default: ir.Number(0)})
	return b
}

// Type registers a value type. A later type with the same name replaces it.
func (b *GenomeBuilder) Type(t ir.ValueType) *GenomeBuilder {
	if i, ok := b.typeIdx[t.Name]; ok {
		b.types[i] = t
		return b
	}
	b.typeIdx[t.Name] = len(b.types)
	b.types = append(b.types, t)
	return b
}

// Option registers an option type whose default is the first option.
func (b *GenomeBuilder) Option(name string, options ...string) *GenomeBuilder {
	var def ir.Value = ir.Null{}
	if len(options) > 0 {
		def = ir.Text(options[0])
	}
	return b.Type(ir.ValueType{Name: name, Kind: ir.ValueKindOption, Options: options, Default: def})
}

// Gene declares a gene with explicit updaters.
func (b *GenomeBuilder) Gene(key, typ string, updaters ...UpdaterSpec) *GenomeBuilder {
	b.genes = append(b.genes, geneSpec{key: key, typ: typ, updaters: updaters})
	return b
}

// Input declares an input gene with an initial value.
func (b *GenomeBuilder) Input(key, typ string, v ir.Value) *GenomeBuilder {
	b.genes = append(b.genes, geneSpec{key: key, typ: typ, value: v, updaters: []UpdaterSpec{Default(ir.MethodInput)}})
	return b
}

// Config declares a configuration gene. Its value starts at the type default.
func (b *GenomeBuilder) Config(key, typ string) *GenomeBuilder {
	b.genes = append(b.genes, geneSpec{key: key, typ: typ, updaters: []UpdaterSpec{Default(ir.MethodConfig)}})
	return b
}

// Label sets the label of the most recently declared gene.
func (b *GenomeBuilder) Label(label string) *GenomeBuilder {
	if len(b.genes) == 0 {
		b.errs = append(b.errs, errors.New("Label called before any gene"))
		return b
	}
	b.genes[len(b.genes)-1].label = label
	return b
}

// Build resolves keys and pools into a genome.
func (b *GenomeBuilder) Build() (*ir.Genome, error) {
	g := &ir.Genome{Name: b.name, Types: append([]ir.ValueType(nil), b.types...)}
	errs := append([]error(nil), b.errs...)

	geneIdx := make(map[string]int, len(b.genes))
	for i, spec := range b.genes {
		if _, dup := geneIdx[spec.key]; dup {
			errs = append(errs, fmt.Errorf("duplicate gene %q", spec.key))
		}
		geneIdx[spec.key] = i
	}

	literal := func(v ir.Value) int {
		for i, lit := range g.Literals {
			if ir.Equal(lit, v) {
				return i
			}
		}
		g.Literals = append(g.Literals, v)
		return len(g.Literals) - 1
	}
	method := func(m ir.MethodRef) int {
		for i, ref := range g.Methods {
			if ref == m {
				return i
			}
		}
		g.Methods = append(g.Methods, m)
		return len(g.Methods) - 1
	}

	for i, spec := range b.genes {
		typ, ok := b.typeIdx[spec.typ]
		if !ok {
			errs = append(errs, fmt.Errorf("gene %q: unknown type %q", spec.key, spec.typ))
		}
		gene := ir.Gene{Index: i, Key: spec.key, Label: spec.label, Type: typ, Value: spec.value}
		for _, us := range spec.updaters {
			u := ir.Updater{Method: method(us.Method), Params: []ir.Param{}}
			if us.WhenConfig != "" {
				cfg, ok := geneIdx[us.WhenConfig]
				if !ok {
					errs = append(errs, fmt.Errorf("gene %q: unknown config gene %q", spec.key, us.WhenConfig))
				}
				u.When = &ir.Condition{Config: cfg, Literal: literal(us.WhenValue)}
			}
			for _, a := range us.Args {
				if a.Ref != "" {
					ref, ok := geneIdx[a.Ref]
					if !ok {
						errs = append(errs, fmt.Errorf("gene %q: unknown reference %q", spec.key, a.Ref))
					}
					u.Params = append(u.Params, ir.Ref(ref))
				} else {
					u.Params = append(u.Params, ir.Lit(literal(a.Lit)))
				}
			}
			gene.Updaters = append(gene.Updaters, u)
		}
		g.Genes = append(g.Genes, gene)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return g, nil
}

// Catalog builds the genome and binds it to the test Registry.
func (b *GenomeBuilder) Catalog(t testing.TB) *catalog.Catalog {
	t.Helper()
	g, err := b.Build()
	require.NoError(t, err)
	c, err := catalog.New(g, Registry())
	require.NoError(t, err)
	return c
}
