// Package variant implements the value-type rules attached to genes:
// validation of native values, conversion between native and display
// units, and display formatting.
package variant

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/roach88/firegraph/internal/ir"
)

// Result is the outcome of validating one value.
// When Valid is true, Value holds the normalized native value.
// When Valid is false, Value holds the offending value as supplied.
type Result struct {
	Valid   bool     `json:"valid"`
	Value   ir.Value `json:"value"`
	Message string   `json:"message,omitempty"`
}

func invalid(v ir.Value, format string, args ...any) Result {
	return Result{Valid: false, Value: v, Message: fmt.Sprintf(format, args...)}
}

// Factor returns the native-to-display multiplier. Zero means identity.
func Factor(t *ir.ValueType) float64 {
	if t == nil || t.DisplayFactor == 0 {
		return 1
	}
	return t.DisplayFactor
}

// Validate checks a native value against the type's kind, range, and options.
// Numeric text such as "0.05" is accepted for number types and normalized.
func Validate(t *ir.ValueType, v ir.Value) Result {
	if t == nil {
		return Result{Valid: true, Value: v}
	}
	if v == nil {
		v = ir.Null{}
	}

	switch t.Kind {
	case ir.ValueKindNumber:
		n, ok := asNumber(v)
		if !ok {
			return invalid(v, "%s: expected a number, got %s", t.Name, ir.KindOf(v))
		}
		f := float64(n)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return invalid(v, "%s: number must be finite", t.Name)
		}
		if t.Min != nil && f < *t.Min {
			return invalid(v, "%s: %s is below minimum %s", t.Name, ir.Format(n), ir.Format(ir.Number(*t.Min)))
		}
		if t.Max != nil && f > *t.Max {
			return invalid(v, "%s: %s is above maximum %s", t.Name, ir.Format(n), ir.Format(ir.Number(*t.Max)))
		}
		return Result{Valid: true, Value: n}

	case ir.ValueKindText:
		s, ok := v.(ir.Text)
		if !ok {
			return invalid(v, "%s: expected text, got %s", t.Name, ir.KindOf(v))
		}
		return Result{Valid: true, Value: s}

	case ir.ValueKindBool:
		switch val := v.(type) {
		case ir.Bool:
			return Result{Valid: true, Value: val}
		case ir.Text:
			b, err := strconv.ParseBool(string(val))
			if err != nil {
				return invalid(v, "%s: expected a boolean, got %q", t.Name, string(val))
			}
			return Result{Valid: true, Value: ir.Bool(b)}
		}
		return invalid(v, "%s: expected a boolean, got %s", t.Name, ir.KindOf(v))

	case ir.ValueKindOption:
		s, ok := v.(ir.Text)
		if !ok {
			return invalid(v, "%s: expected one of [%s], got %s", t.Name, strings.Join(t.Options, ", "), ir.KindOf(v))
		}
		if !slices.Contains(t.Options, string(s)) {
			return invalid(v, "%s: %q is not one of [%s]", t.Name, string(s), strings.Join(t.Options, ", "))
		}
		return Result{Valid: true, Value: s}

	case ir.ValueKindObject:
		return Result{Valid: true, Value: v}

	default:
		return invalid(v, "%s: unknown value kind %q", t.Name, t.Kind)
	}
}

// ValidateDisplay converts a display value to native units, then validates it.
// On success Result.Value is the native value.
func ValidateDisplay(t *ir.ValueType, v ir.Value) Result {
	native, err := ToNative(t, v)
	if err != nil {
		return invalid(v, "%v", err)
	}
	r := Validate(t, native)
	if !r.Valid {
		r.Value = v
	}
	return r
}

// ToNative converts a display value into native units.
// Non-numeric types pass through unchanged.
func ToNative(t *ir.ValueType, display ir.Value) (ir.Value, error) {
	if t == nil || t.Kind != ir.ValueKindNumber {
		return display, nil
	}
	n, ok := asNumber(display)
	if !ok {
		return nil, fmt.Errorf("%s: expected a number, got %s", t.Name, ir.KindOf(display))
	}
	return ir.Number(float64(n) / Factor(t)), nil
}

// ToDisplay converts a native value into display units.
func ToDisplay(t *ir.ValueType, native ir.Value) ir.Value {
	if t == nil || t.Kind != ir.ValueKindNumber {
		return native
	}
	n, ok := native.(ir.Number)
	if !ok {
		return native
	}
	return ir.Number(float64(n) * Factor(t))
}

// DisplayUnits returns the units shown with display values.
func DisplayUnits(t *ir.ValueType) string {
	if t == nil {
		return ""
	}
	if t.DisplayUnits != "" {
		return t.DisplayUnits
	}
	return t.Units
}

// FormatDisplay renders a native value in display units with the type's
// decimal places and unit suffix.
func FormatDisplay(t *ir.ValueType, native ir.Value) string {
	v := ToDisplay(t, native)
	n, ok := v.(ir.Number)
	if !ok || t == nil {
		return ir.Format(v)
	}
	s := strconv.FormatFloat(float64(n), 'f', t.Decimals, 64)
	if u := DisplayUnits(t); u != "" {
		return s + " " + u
	}
	return s
}

func asNumber(v ir.Value) (ir.Number, bool) {
	switch val := v.(type) {
	case ir.Number:
		return val, true
	case ir.Text:
		f, err := strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
		if err != nil {
			return 0, false
		}
		return ir.Number(f), true
	default:
		return 0, false
	}
}
