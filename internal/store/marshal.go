package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/firegraph/internal/ir"
)

// marshalValues converts one combination to canonical JSON TEXT and its hash.
// Opaque values have no canonical form and cannot be stored.
func marshalValues(values []ir.Value) (text, hash string, err error) {
	data, err := ir.MarshalCanonical(values)
	if err != nil {
		return "", "", fmt.Errorf("marshal values: %w", err)
	}
	hash, err = ir.ValuesHash(values)
	if err != nil {
		return "", "", fmt.Errorf("hash values: %w", err)
	}
	return string(data), hash, nil
}

// unmarshalValues parses canonical JSON TEXT back into values.
// Numbers are decoded via json.Number to keep full float64 precision.
func unmarshalValues(data string) ([]ir.Value, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(data)))
	dec.UseNumber()

	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}

	values := make([]ir.Value, len(raw))
	for i, r := range raw {
		v, err := ir.FromAny(r)
		if err != nil {
			return nil, fmt.Errorf("unmarshal values[%d]: %w", i, err)
		}
		values[i] = v
	}
	return values, nil
}
