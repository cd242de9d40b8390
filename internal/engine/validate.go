package engine

import (
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/variant"
)

// Validation is one rejected candidate value.
type Validation struct {
	Node     string   `json:"node"`
	Position int      `json:"position"` // index within the assignment's values
	Value    ir.Value `json:"value"`
	Message  string   `json:"message"`
}

// ValidateNativeInputs checks candidate values in native units against each
// node's value type without mutating the Dag. Rejected values are returned
// as data; only an unresolved locator is an error.
func (d *Dag) ValidateNativeInputs(assignments ...Assignment) ([]Validation, error) {
	return d.validateInputs(assignments, variant.Validate)
}

// ValidateDisplayInputs is like ValidateNativeInputs for values expressed
// in display units.
func (d *Dag) ValidateDisplayInputs(assignments ...Assignment) ([]Validation, error) {
	return d.validateInputs(assignments, variant.ValidateDisplay)
}

func (d *Dag) validateInputs(assignments []Assignment, check func(*ir.ValueType, ir.Value) variant.Result) ([]Validation, error) {
	var failures []Validation
	for _, a := range assignments {
		n, err := d.Node(a.Node)
		if err != nil {
			return nil, err
		}
		for k, v := range a.Values {
			r := check(n.Type(), v)
			if r.Valid {
				continue
			}
			failures = append(failures, Validation{
				Node:     n.Key(),
				Position: k,
				Value:    r.Value,
				Message:  r.Message,
			})
		}
	}
	return failures, nil
}

// NativeValues converts display-unit candidate values into native units.
// Values that do not convert are returned unchanged for Input to store.
func (d *Dag) NativeValues(loc Locator, display []ir.Value) ([]ir.Value, error) {
	n, err := d.Node(loc)
	if err != nil {
		return nil, err
	}
	out := make([]ir.Value, len(display))
	for i, v := range display {
		native, err := variant.ToNative(n.Type(), v)
		if err != nil {
			native = v
		}
		out[i] = native
	}
	return out, nil
}
