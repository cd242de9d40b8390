package catalog

import (
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/firegraph/internal/ir"
)

// Method is the callable behind an operation reference. Args hold the
// resolved parameter values in declaration order: literal parameters are
// looked up in the literal pool and reference parameters carry the current
// value of the referenced node.
//
// A nil Method is an identity operation: the node keeps its current value.
type Method func(args []ir.Value) (ir.Value, error)

// Registry maps "group.function" names to callables.
// A registered nil Method marks an identity operation.
type Registry map[ir.MethodRef]Method

// Builtins returns the Dag.* operations understood by the engine itself.
func Builtins() Registry {
	return Registry{
		ir.MethodInput:    nil,
		ir.MethodConfig:   nil,
		ir.MethodDangler:  nil,
		ir.MethodFixed:    first,
		ir.MethodBind:     first,
		ir.MethodDisabled: firstOrNull,
	}
}

// Merge returns a new registry holding the builtins, then every entry of
// regs in order. Later entries replace earlier ones.
func Merge(regs ...Registry) Registry {
	out := Builtins()
	for _, r := range regs {
		maps.Copy(out, r)
	}
	return out
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []ir.MethodRef {
	return slices.Sorted(maps.Keys(r))
}

func first(args []ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("expected at least one argument")
	}
	return args[0], nil
}

func firstOrNull(args []ir.Value) (ir.Value, error) {
	if len(args) == 0 {
		return ir.Null{}, nil
	}
	return args[0], nil
}
