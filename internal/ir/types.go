package ir

import "strings"

// Genome is the compiled, immutable catalog of every value the engine can
// compute. Literals, methods, and types are pools shared by all genes;
// every cross-reference is a dense index into one of the pools.
type Genome struct {
	Name     string      `json:"name"`
	Literals []Value     `json:"literals"`
	Methods  []MethodRef `json:"methods"`
	Types    []ValueType `json:"types"`
	Genes    []Gene      `json:"genes"`
}

// MethodRef is a two-part operation name: "group.function".
type MethodRef string

// Group returns the part before the first dot.
func (m MethodRef) Group() string {
	group, _, _ := strings.Cut(string(m), ".")
	return group
}

// Function returns the part after the first dot.
func (m MethodRef) Function() string {
	_, fn, _ := strings.Cut(string(m), ".")
	return fn
}

// Distinguished operations understood by the engine itself.
const (
	MethodInput    MethodRef = "Dag.input"    // value supplied by the caller
	MethodConfig   MethodRef = "Dag.config"   // configuration choice
	MethodFixed    MethodRef = "Dag.fixed"    // first literal argument
	MethodBind     MethodRef = "Dag.bind"     // copy of first argument
	MethodDangler  MethodRef = "Dag.dangler"  // keeps its current value
	MethodDisabled MethodRef = "Dag.disabled" // node not enabled
)

// ValueKind is the category of a value type descriptor.
type ValueKind string

const (
	ValueKindNumber ValueKind = "number"
	ValueKindText   ValueKind = "text"
	ValueKindBool   ValueKind = "bool"
	ValueKindOption ValueKind = "option"
	ValueKindObject ValueKind = "object"
)

// ValidValueKinds defines allowed value type kinds.
var ValidValueKinds = map[ValueKind]bool{
	ValueKindNumber: true,
	ValueKindText:   true,
	ValueKindBool:   true,
	ValueKindOption: true,
	ValueKindObject: true,
}

// ValueType describes validation and display rules for a family of genes.
// Display values are native values multiplied by DisplayFactor.
type ValueType struct {
	Name          string    `json:"name"`
	Kind          ValueKind `json:"kind"`
	Units         string    `json:"units,omitempty"`
	DisplayUnits  string    `json:"display_units,omitempty"`
	DisplayFactor float64   `json:"display_factor,omitempty"`
	Min           *float64  `json:"min,omitempty"`
	Max           *float64  `json:"max,omitempty"`
	Options       []string  `json:"options,omitempty"`
	Default       Value     `json:"default"`
	Decimals      int       `json:"decimals,omitempty"`
}

// Gene is the static definition of one computable value.
type Gene struct {
	Index    int       `json:"index"`
	Key      string    `json:"key"`
	Label    string    `json:"label,omitempty"`
	Type     int       `json:"type"`            // index into Genome.Types
	Value    Value     `json:"value,omitempty"` // initial value; nil means the type default
	Updaters []Updater `json:"updaters"`
}

// Updater is one candidate update rule. A nil When is the unconditional
// default and must be the last rule checked.
type Updater struct {
	When   *Condition `json:"when,omitempty"`
	Method int        `json:"method"` // index into Genome.Methods
	Params []Param    `json:"params"`
}

// Condition selects an updater when the configuration gene's current value
// equals the literal.
type Condition struct {
	Config  int `json:"config"`  // gene index
	Literal int `json:"literal"` // literal pool index
}

// ParamKind tags an operation parameter.
type ParamKind string

const (
	ParamLiteral ParamKind = "lit"
	ParamRef     ParamKind = "ref"
)

// Param is one operation argument: a literal pool index or a gene index.
type Param struct {
	Kind  ParamKind `json:"kind"`
	Index int       `json:"index"`
}

// Lit builds a literal parameter.
func Lit(index int) Param {
	return Param{Kind: ParamLiteral, Index: index}
}

// Ref builds a reference parameter.
func Ref(index int) Param {
	return Param{Kind: ParamRef, Index: index}
}

// IsDefault reports whether the updater is unconditional.
func (u Updater) IsDefault() bool {
	return u.When == nil
}
