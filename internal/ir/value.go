package ir

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Value is a sealed interface representing the values a node can hold.
// Only Null, Number, Text, Bool, and Opaque implement this.
type Value interface {
	irValue() // Sealed - only these types implement it
}

// Null represents the absence of a value.
// Using an explicit type ensures all Values satisfy the sealed interface.
type Null struct{}

func (Null) irValue() {}

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// Number represents a numeric value. All quantities are float64.
type Number float64

func (Number) irValue() {}

// Text represents a string value (option keys, fuel model keys, labels).
type Text string

func (Text) irValue() {}

// Bool represents a boolean value.
type Bool bool

func (Bool) irValue() {}

// Opaque carries an arbitrary Go value produced by an external formula
// (a fuel model record, a lookup table row). The engine never inspects it.
type Opaque struct {
	V any
}

func (Opaque) irValue() {}

// MarshalJSON implements json.Marshaler for Opaque.
func (o Opaque) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.V)
}

// Kind names the variant of a Value.
type Kind string

const (
	KindNull   Kind = "null"
	KindNumber Kind = "number"
	KindText   Kind = "text"
	KindBool   Kind = "bool"
	KindOpaque Kind = "opaque"
)

// KindOf returns the variant name of v. A nil interface is reported as null.
func KindOf(v Value) Kind {
	switch v.(type) {
	case nil, Null:
		return KindNull
	case Number:
		return KindNumber
	case Text:
		return KindText
	case Bool:
		return KindBool
	case Opaque:
		return KindOpaque
	default:
		return KindNull
	}
}

// Equal reports whether two values are the same variant with the same payload.
// Numbers compare by IEEE equality except that NaN equals NaN, so a
// configuration literal can never be unmatchable by construction.
func Equal(a, b Value) bool {
	if a == nil {
		a = Null{}
	}
	if b == nil {
		b = Null{}
	}
	switch av := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Number:
		bv, ok := b.(Number)
		if !ok {
			return false
		}
		if math.IsNaN(float64(av)) && math.IsNaN(float64(bv)) {
			return true
		}
		return av == bv
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Bool:
		bv, ok := b.(Bool)
		return ok && av == bv
	case Opaque:
		bv, ok := b.(Opaque)
		return ok && reflect.DeepEqual(av.V, bv.V)
	default:
		return false
	}
}

// FromAny converts a Go value into a Value.
// Integers and floats become Number; strings become Text.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case float64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case int:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return Number(f), nil
	case string:
		return Text(val), nil
	case bool:
		return Bool(val), nil
	default:
		return nil, fmt.Errorf("unsupported value type: %T", v)
	}
}

// MustFromAny is like FromAny but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromAny(v any) Value {
	val, err := FromAny(v)
	if err != nil {
		panic(err)
	}
	return val
}

// ToAny converts a Value back into a plain Go value.
func ToAny(v Value) any {
	switch val := v.(type) {
	case Number:
		return float64(val)
	case Text:
		return string(val)
	case Bool:
		return bool(val)
	case Opaque:
		return val.V
	default:
		return nil
	}
}

// Format renders a value for logs and text output.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, Null:
		return "null"
	case Number:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Text:
		return string(val)
	case Bool:
		return strconv.FormatBool(bool(val))
	case Opaque:
		return fmt.Sprintf("%v", val.V)
	default:
		return fmt.Sprintf("%v", v)
	}
}
