package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// BuiltinSurface names the embedded surface fire catalog.
const BuiltinSurface = "surface"

// Scenario defines one conformance run of a catalog.
// A scenario configures a graph instance, assigns inputs, runs it into a
// fresh results store, and asserts on the recorded table.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file
	// and, unless Dag is set, the graph instance.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Catalog is BuiltinSurface or a path to a CUE catalog file.
	// Relative paths are resolved against the base path given to
	// LoadScenarioWithBasePath.
	Catalog string `yaml:"catalog"`

	Dag      string `yaml:"dag,omitempty"`
	Strategy string `yaml:"strategy,omitempty"`
	RunLimit int    `yaml:"run_limit,omitempty"`

	// Configure maps configuration node keys to their values.
	Configure map[string]any `yaml:"configure,omitempty"`

	// Select lists the output nodes.
	Select []string `yaml:"select"`

	// Inputs maps input node keys to candidate values in native units.
	// A scalar is a single candidate.
	Inputs map[string]any `yaml:"inputs,omitempty"`

	// DisplayInputs is like Inputs with values in display units.
	DisplayInputs map[string]any `yaml:"display_inputs,omitempty"`

	// Expect checks the run outcome. If nil, the run must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`

	// Assertions validate the recorded table.
	Assertions []Assertion `yaml:"assertions"`
}

// ExpectClause specifies the expected run outcome.
type ExpectClause struct {
	// OK is the expected summary flag. Nil means true unless Error is set.
	OK *bool `yaml:"ok,omitempty"`

	// Combinations is the expected number of recorded combinations.
	Combinations *int `yaml:"combinations,omitempty"`

	// Message must be contained in the summary message.
	Message string `yaml:"message,omitempty"`

	// Error must be contained in the error returned while applying the
	// scenario or running it. Empty means no error is expected.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the recorded table or the stored run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "values": Column of Node equals Values, in order
	// - "row": Row at Index has the Expect node values
	// - "count": Exactly Count rows match Where
	// - "monotonic": Column of Node moves in Direction
	// - "inputs": The captured input columns are exactly Nodes
	// - "stored": Query a store table and verify expected values
	Type string `yaml:"type"`

	// Node is the column key (values, monotonic).
	Node string `yaml:"node,omitempty"`

	// Values are the expected column values (values).
	Values []any `yaml:"values,omitempty"`

	// Tolerance is the absolute tolerance for numbers (values, row, count).
	Tolerance float64 `yaml:"tolerance,omitempty"`

	// Index is the zero-based row index (row).
	Index int `yaml:"index,omitempty"`

	// Where filters rows by column key (count) or selects store rows by
	// column name (stored). All fields must match.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected values by column key (row) or by store
	// column name (stored). Subset match.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number of matching rows (count).
	Count int `yaml:"count,omitempty"`

	// Direction is increasing, decreasing, nondecreasing, or nonincreasing
	// (monotonic).
	Direction string `yaml:"direction,omitempty"`

	// Nodes is the expected set of input columns (inputs).
	Nodes []string `yaml:"nodes,omitempty"`

	// Table is the store table name (stored).
	Table string `yaml:"table,omitempty"`
}

// Assertion type constants.
const (
	AssertValues    = "values"
	AssertRow       = "row"
	AssertCount     = "count"
	AssertMonotonic = "monotonic"
	AssertInputs    = "inputs"
	AssertStored    = "stored"
)

// Monotonic directions.
const (
	DirectionIncreasing    = "increasing"
	DirectionDecreasing    = "decreasing"
	DirectionNondecreasing = "nondecreasing"
	DirectionNonincreasing = "nonincreasing"
)

// LoadScenario reads and parses a scenario YAML file.
// Catalog paths are resolved relative to the scenario file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving the catalog path relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, basePath)
}

// ParseScenario decodes scenario YAML with strict field validation.
func ParseScenario(data []byte, basePath string) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // catches typos like "assertion:" vs "assertions:"
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Resolve the catalog path BEFORE validation
	if scenario.Catalog != "" && scenario.Catalog != BuiltinSurface &&
		!filepath.IsAbs(scenario.Catalog) && basePath != "" {
		scenario.Catalog = filepath.Join(basePath, scenario.Catalog)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Catalog == "" {
		return fmt.Errorf("catalog is required")
	}
	if s.Catalog != BuiltinSurface {
		if _, err := os.Stat(s.Catalog); os.IsNotExist(err) {
			return fmt.Errorf("catalog file not found: %s", s.Catalog)
		}
	}

	if len(s.Select) == 0 {
		return fmt.Errorf("select list is required and must be non-empty")
	}

	if s.RunLimit < 0 {
		return fmt.Errorf("run_limit must be non-negative")
	}

	for key := range s.Inputs {
		if _, ok := s.DisplayInputs[key]; ok {
			return fmt.Errorf("input %q appears in both inputs and display_inputs", key)
		}
	}

	if len(s.Assertions) == 0 && s.Expect == nil {
		return fmt.Errorf("assertions list or expect clause is required")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if a.Tolerance < 0 {
		return fmt.Errorf("assertions[%d]: tolerance must be non-negative", index)
	}

	switch a.Type {
	case AssertValues:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for values", index)
		}
	case AssertRow:
		if a.Index < 0 {
			return fmt.Errorf("assertions[%d]: index must be non-negative for row", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for row", index)
		}
	case AssertCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for count", index)
		}
	case AssertMonotonic:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for monotonic", index)
		}
		switch a.Direction {
		case DirectionIncreasing, DirectionDecreasing, DirectionNondecreasing, DirectionNonincreasing:
		default:
			return fmt.Errorf("assertions[%d]: unknown direction %q for monotonic", index, a.Direction)
		}
	case AssertInputs:
		if a.Nodes == nil {
			return fmt.Errorf("assertions[%d]: nodes list is required for inputs", index)
		}
	case AssertStored:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for stored", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for stored", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
