package worksheet

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"

	"github.com/roach88/firegraph/internal/ir"
)

// valueFromCty converts a primitive cty value.
func valueFromCty(val cty.Value) (ir.Value, error) {
	if val.IsNull() {
		return ir.Null{}, nil
	}
	if !val.IsKnown() {
		return nil, fmt.Errorf("value is not known")
	}
	switch val.Type() {
	case cty.String:
		return ir.Text(val.AsString()), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return ir.Number(f), nil
	case cty.Bool:
		return ir.Bool(val.True()), nil
	default:
		return nil, fmt.Errorf("unsupported value type %s (want string, number, bool, or null)", val.Type().FriendlyName())
	}
}

// valuesFromCty converts a list, tuple, or set of primitives, or a single
// primitive, into candidate values.
func valuesFromCty(val cty.Value) ([]ir.Value, error) {
	if val.IsNull() || !val.IsKnown() {
		return nil, fmt.Errorf("values must be a known list")
	}
	ty := val.Type()
	if !ty.IsListType() && !ty.IsTupleType() && !ty.IsSetType() {
		v, err := valueFromCty(val)
		if err != nil {
			return nil, err
		}
		return []ir.Value{v}, nil
	}

	out := make([]ir.Value, 0, val.LengthInt())
	for it := val.ElementIterator(); it.Next(); {
		_, elem := it.Element()
		v, err := valueFromCty(elem)
		if err != nil {
			return nil, fmt.Errorf("values[%d]: %w", len(out), err)
		}
		out = append(out, v)
	}
	return out, nil
}
