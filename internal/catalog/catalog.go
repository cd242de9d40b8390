// Package catalog provides the immutable, shareable table of genes that
// every graph instance is cloned from.
//
// A Catalog is built once from a compiled ir.Genome and a method Registry.
// All operation names are resolved to callables at construction, and all
// cross-references are checked, so graph instances never fail on a
// malformed table at run time. Nothing in a Catalog is written after New
// returns; it is safe to share across goroutines.
package catalog

import (
	"errors"
	"fmt"

	"github.com/roach88/firegraph/internal/ir"
)

// Catalog is the read-only gene table plus resolved callables.
type Catalog struct {
	genome  *ir.Genome
	methods []Method
	index   map[string]int
	hash    string
}

// New validates the genome and binds every method reference to reg.
// All structural problems are reported together.
func New(g *ir.Genome, reg Registry) (*Catalog, error) {
	if g == nil {
		return nil, errors.New("catalog: nil genome")
	}
	if reg == nil {
		reg = Builtins()
	}

	var errs []error
	c := &Catalog{
		genome:  g,
		methods: make([]Method, len(g.Methods)),
		index:   make(map[string]int, len(g.Genes)),
	}

	for i, ref := range g.Methods {
		fn, ok := reg[ref]
		if !ok {
			errs = append(errs, fmt.Errorf("method %q: not registered", ref))
			continue
		}
		c.methods[i] = fn
	}

	for i := range g.Genes {
		gene := &g.Genes[i]
		if gene.Key == "" {
			errs = append(errs, fmt.Errorf("gene %d: empty key", i))
			continue
		}
		if gene.Index != i {
			errs = append(errs, fmt.Errorf("gene %q: index %d does not match position %d", gene.Key, gene.Index, i))
		}
		if prev, dup := c.index[gene.Key]; dup {
			errs = append(errs, fmt.Errorf("gene %q: duplicate key (also gene %d)", gene.Key, prev))
			continue
		}
		c.index[gene.Key] = i
	}

	for i := range g.Genes {
		errs = append(errs, c.checkGene(&g.Genes[i])...)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("catalog %q: %w", g.Name, errors.Join(errs...))
	}

	hash, err := ir.GenomeHash(g)
	if err != nil {
		return nil, fmt.Errorf("catalog %q: %w", g.Name, err)
	}
	c.hash = hash
	return c, nil
}

// MustNew is like New but panics on error.
// Use only in tests or for embedded catalogs known to be valid.
func MustNew(g *ir.Genome, reg Registry) *Catalog {
	c, err := New(g, reg)
	if err != nil {
		panic(err)
	}
	return c
}

func (c *Catalog) checkGene(gene *ir.Gene) []error {
	g := c.genome
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("gene %q: %s", gene.Key, fmt.Sprintf(format, args...)))
	}

	if gene.Type < 0 || gene.Type >= len(g.Types) {
		bad("type index %d out of range", gene.Type)
	}
	if len(gene.Updaters) == 0 {
		bad("no updaters")
	}

	for j, u := range gene.Updaters {
		if u.IsDefault() && j != len(gene.Updaters)-1 {
			bad("updater %d: default updater must be last", j)
		}
		if u.Method < 0 || u.Method >= len(g.Methods) {
			bad("updater %d: method index %d out of range", j, u.Method)
		}
		if u.When != nil {
			if u.When.Config < 0 || u.When.Config >= len(g.Genes) {
				bad("updater %d: condition gene %d out of range", j, u.When.Config)
			} else if !c.isConfigGene(u.When.Config) {
				bad("updater %d: condition gene %q is not a configuration gene", j, g.Genes[u.When.Config].Key)
			}
			if u.When.Literal < 0 || u.When.Literal >= len(g.Literals) {
				bad("updater %d: condition literal %d out of range", j, u.When.Literal)
			}
		}
		for k, p := range u.Params {
			switch p.Kind {
			case ir.ParamLiteral:
				if p.Index < 0 || p.Index >= len(g.Literals) {
					bad("updater %d: param %d: literal %d out of range", j, k, p.Index)
				}
			case ir.ParamRef:
				if p.Index < 0 || p.Index >= len(g.Genes) {
					bad("updater %d: param %d: gene %d out of range", j, k, p.Index)
				}
			default:
				bad("updater %d: param %d: unknown kind %q", j, k, p.Kind)
			}
		}
	}
	return errs
}

// isConfigGene reports whether every updater of gene i is Dag.config.
func (c *Catalog) isConfigGene(i int) bool {
	ups := c.genome.Genes[i].Updaters
	if len(ups) == 0 {
		return false
	}
	for _, u := range ups {
		if u.Method < 0 || u.Method >= len(c.genome.Methods) || c.genome.Methods[u.Method] != ir.MethodConfig {
			return false
		}
	}
	return true
}

// Name returns the genome name.
func (c *Catalog) Name() string { return c.genome.Name }

// Hash returns the genome fingerprint.
func (c *Catalog) Hash() string { return c.hash }

// Genome returns the underlying genome. Callers must not modify it.
func (c *Catalog) Genome() *ir.Genome { return c.genome }

// Len returns the number of genes.
func (c *Catalog) Len() int { return len(c.genome.Genes) }

// Gene returns the gene at index i.
func (c *Catalog) Gene(i int) *ir.Gene { return &c.genome.Genes[i] }

// Lookup returns the index of the gene with the given key.
func (c *Catalog) Lookup(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}

// Literal returns literal pool entry i.
func (c *Catalog) Literal(i int) ir.Value { return c.genome.Literals[i] }

// MethodRef returns the name of method pool entry i.
func (c *Catalog) MethodRef(i int) ir.MethodRef { return c.genome.Methods[i] }

// Method returns the callable bound to method pool entry i.
func (c *Catalog) Method(i int) Method { return c.methods[i] }

// Type returns the value type of gene i.
func (c *Catalog) Type(i int) *ir.ValueType {
	return &c.genome.Types[c.genome.Genes[i].Type]
}

// InitialValue returns the value a fresh node for gene i starts with:
// the gene's own value, else its type default, else Null.
func (c *Catalog) InitialValue(i int) ir.Value {
	gene := &c.genome.Genes[i]
	if gene.Value != nil {
		return gene.Value
	}
	if d := c.Type(i).Default; d != nil {
		return d
	}
	return ir.Null{}
}

// Keys returns every gene key in index order.
func (c *Catalog) Keys() []string {
	keys := make([]string, len(c.genome.Genes))
	for i, g := range c.genome.Genes {
		keys[i] = g.Key
	}
	return keys
}
