package testutil

// FixedRunIDGenerator generates the same run id every time.
//
// This enables deterministic test execution and golden snapshot comparison.
// The same scenario with the same FixedRunIDGenerator produces byte-identical
// stored results.
//
// Unlike store.SequenceGenerator which returns ids in sequence, this generator
// always returns the same id. Use it when a test performs exactly one run.
//
// Thread-safety: FixedRunIDGenerator is stateless and safe for concurrent use.
type FixedRunIDGenerator struct {
	id string
}

// NewFixedRunIDGenerator creates a new fixed run id generator.
//
// If id is empty, Generate() returns "test-run-default".
func NewFixedRunIDGenerator(id string) *FixedRunIDGenerator {
	if id == "" {
		id = "test-run-default"
	}
	return &FixedRunIDGenerator{id: id}
}

// Generate returns the fixed run id.
//
// Implements store.RunIDGenerator interface.
func (g *FixedRunIDGenerator) Generate() string {
	return g.id
}
