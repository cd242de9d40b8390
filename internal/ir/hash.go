package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainGenome = "firegraph/genome/v1"
	DomainValues = "firegraph/values/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// GenomeHash computes the content-addressed identity of a genome.
// Two genomes with the same pools in the same order hash identically,
// regardless of the Go values used to build them.
func GenomeHash(g *Genome) (string, error) {
	canonical, err := MarshalCanonical(g.Canonical())
	if err != nil {
		return "", fmt.Errorf("GenomeHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainGenome, canonical), nil
}

// ValuesHash identifies one recorded combination of values.
func ValuesHash(values []Value) (string, error) {
	canonical, err := MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("ValuesHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainValues, canonical), nil
}

// MustGenomeHash is like GenomeHash but panics on error.
// Use only in tests or when the genome is known to be valid.
func MustGenomeHash(g *Genome) string {
	h, err := GenomeHash(g)
	if err != nil {
		panic(err)
	}
	return h
}

// Canonical converts the genome to plain maps and slices for canonical
// marshaling. Field names match the JSON tags.
func (g *Genome) Canonical() map[string]any {
	literals := make([]any, len(g.Literals))
	for i, lit := range g.Literals {
		literals[i] = lit
	}

	methods := make([]any, len(g.Methods))
	for i, m := range g.Methods {
		methods[i] = string(m)
	}

	types := make([]any, len(g.Types))
	for i, t := range g.Types {
		types[i] = t.canonical()
	}

	genes := make([]any, len(g.Genes))
	for i, gene := range g.Genes {
		genes[i] = gene.canonical()
	}

	return map[string]any{
		"name":     g.Name,
		"version":  GenomeVersion,
		"literals": literals,
		"methods":  methods,
		"types":    types,
		"genes":    genes,
	}
}

func (t ValueType) canonical() map[string]any {
	m := map[string]any{
		"name":    t.Name,
		"kind":    string(t.Kind),
		"default": t.Default,
	}
	if t.Units != "" {
		m["units"] = t.Units
	}
	if t.DisplayUnits != "" {
		m["display_units"] = t.DisplayUnits
	}
	if t.DisplayFactor != 0 {
		m["display_factor"] = t.DisplayFactor
	}
	if t.Min != nil {
		m["min"] = *t.Min
	}
	if t.Max != nil {
		m["max"] = *t.Max
	}
	if len(t.Options) > 0 {
		m["options"] = t.Options
	}
	if t.Decimals != 0 {
		m["decimals"] = t.Decimals
	}
	return m
}

func (g Gene) canonical() map[string]any {
	updaters := make([]any, len(g.Updaters))
	for i, u := range g.Updaters {
		params := make([]any, len(u.Params))
		for j, p := range u.Params {
			params[j] = map[string]any{"kind": string(p.Kind), "index": p.Index}
		}
		um := map[string]any{"method": u.Method, "params": params}
		if u.When != nil {
			um["when"] = map[string]any{"config": u.When.Config, "literal": u.When.Literal}
		}
		updaters[i] = um
	}
	m := map[string]any{
		"index":    g.Index,
		"key":      g.Key,
		"type":     g.Type,
		"updaters": updaters,
	}
	if g.Label != "" {
		m["label"] = g.Label
	}
	if g.Value != nil {
		m["value"] = g.Value
	}
	return m
}
