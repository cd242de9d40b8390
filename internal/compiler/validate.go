package compiler

import (
	"fmt"
	"regexp"

	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/variant"
)

// Validation error codes (E100-E199)
const (
	// Value type errors (E100-E109)
	ErrUnknownValueKind = "E100" // kind is not number, text, bool, option, or object
	ErrOptionsRequired  = "E101" // option kind without options
	ErrRangeInverted    = "E102" // min greater than max
	ErrTypeDefault      = "E103" // type default fails its own type
	ErrDuplicateOption  = "E104" // option listed twice

	// Gene errors (E110-E119)
	ErrNoUpdaters         = "E110" // gene has no updaters
	ErrDefaultNotLast     = "E111" // unconditional updater is not the last
	ErrMissingDefault     = "E112" // last updater is conditional
	ErrConditionNotConfig = "E113" // condition tests a gene that is not a configuration gene
	ErrConditionLiteral   = "E114" // condition literal is not a valid value of the config type
	ErrInvalidMethodRef   = "E115" // method name is not "Group.function"
	ErrGeneValue          = "E116" // initial value fails the gene type
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled genome against schema rules.
// Returns all errors found (does not fail-fast).
// Index ranges are assumed valid; catalog.New rechecks them.
func Validate(g *ir.Genome) []ValidationError {
	if g == nil {
		return []ValidationError{{Field: "genome", Message: "genome is nil", Code: ErrNoUpdaters}}
	}
	var errs []ValidationError
	for i := range g.Types {
		errs = append(errs, validateValueType(&g.Types[i])...)
	}
	for i := range g.Genes {
		errs = append(errs, validateGene(g, &g.Genes[i])...)
	}
	return errs
}

func validateValueType(t *ir.ValueType) []ValidationError {
	var errs []ValidationError
	field := "types." + t.Name

	// E100: kind must be known
	if !ir.ValidValueKinds[t.Kind] {
		return append(errs, ValidationError{
			Field:   field + ".kind",
			Message: fmt.Sprintf("unknown value kind %q", t.Kind),
			Code:    ErrUnknownValueKind,
		})
	}

	// E101, E104: options
	if t.Kind == ir.ValueKindOption {
		if len(t.Options) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".options",
				Message: "option types require at least one option",
				Code:    ErrOptionsRequired,
			})
		}
		seen := make(map[string]bool, len(t.Options))
		for _, opt := range t.Options {
			if seen[opt] {
				errs = append(errs, ValidationError{
					Field:   field + ".options",
					Message: fmt.Sprintf("duplicate option %q", opt),
					Code:    ErrDuplicateOption,
				})
			}
			seen[opt] = true
		}
	}

	// E102: range
	if t.Min != nil && t.Max != nil && *t.Min > *t.Max {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("min %v is greater than max %v", *t.Min, *t.Max),
			Code:    ErrRangeInverted,
		})
	}

	// E103: default must satisfy the type
	if t.Default != nil {
		if res := variant.Validate(t, t.Default); !res.Valid {
			errs = append(errs, ValidationError{
				Field:   field + ".default",
				Message: res.Message,
				Code:    ErrTypeDefault,
			})
		}
	}
	return errs
}

func validateGene(g *ir.Genome, gene *ir.Gene) []ValidationError {
	var errs []ValidationError
	field := "genes." + gene.Key

	// E110
	if len(gene.Updaters) == 0 {
		return append(errs, ValidationError{
			Field:   field + ".updaters",
			Message: "at least one updater is required",
			Code:    ErrNoUpdaters,
		})
	}

	typ := valueType(g, gene.Type)

	// E116
	if gene.Value != nil && typ != nil {
		if res := variant.Validate(typ, gene.Value); !res.Valid {
			errs = append(errs, ValidationError{
				Field:   field + ".value",
				Message: res.Message,
				Code:    ErrGeneValue,
			})
		}
	}

	last := len(gene.Updaters) - 1
	for i, u := range gene.Updaters {
		ufield := fmt.Sprintf("%s.updaters[%d]", field, i)

		// E111, E112
		if u.When == nil && i != last {
			errs = append(errs, ValidationError{
				Field:   ufield,
				Message: "the unconditional updater must be the last one",
				Code:    ErrDefaultNotLast,
			})
		}
		if u.When != nil && i == last {
			errs = append(errs, ValidationError{
				Field:   ufield + ".when",
				Message: "the last updater must be unconditional",
				Code:    ErrMissingDefault,
			})
		}

		// E115
		if u.Method >= 0 && u.Method < len(g.Methods) {
			m := g.Methods[u.Method]
			if !isValidMethodRef(m) {
				errs = append(errs, ValidationError{
					Field:   ufield + ".method",
					Message: fmt.Sprintf("invalid method reference %q, expected format \"Group.function\"", m),
					Code:    ErrInvalidMethodRef,
				})
			}
		}

		if u.When != nil {
			errs = append(errs, validateCondition(g, ufield+".when", u.When)...)
		}
	}
	return errs
}

func validateCondition(g *ir.Genome, field string, c *ir.Condition) []ValidationError {
	if c.Config < 0 || c.Config >= len(g.Genes) {
		return nil
	}
	config := &g.Genes[c.Config]

	// E113
	if !isConfigGene(g, config) {
		return []ValidationError{{
			Field:   field + ".config",
			Message: fmt.Sprintf("gene %q is not a configuration gene (its updaters must all be %s)", config.Key, ir.MethodConfig),
			Code:    ErrConditionNotConfig,
		}}
	}

	// E114
	if c.Literal < 0 || c.Literal >= len(g.Literals) {
		return nil
	}
	if typ := valueType(g, config.Type); typ != nil {
		if res := variant.Validate(typ, g.Literals[c.Literal]); !res.Valid {
			return []ValidationError{{
				Field:   field + ".equals",
				Message: fmt.Sprintf("condition can never match: %s", res.Message),
				Code:    ErrConditionLiteral,
			}}
		}
	}
	return nil
}

func isConfigGene(g *ir.Genome, gene *ir.Gene) bool {
	if len(gene.Updaters) == 0 {
		return false
	}
	for _, u := range gene.Updaters {
		if u.Method < 0 || u.Method >= len(g.Methods) || g.Methods[u.Method] != ir.MethodConfig {
			return false
		}
	}
	return true
}

func valueType(g *ir.Genome, idx int) *ir.ValueType {
	if idx < 0 || idx >= len(g.Types) {
		return nil
	}
	return &g.Types[idx]
}

// methodRefPattern matches "Group.function" format.
// Group starts with an uppercase letter, function with a lowercase letter.
var methodRefPattern = regexp.MustCompile(`^[A-Z][a-zA-Z0-9]*\.[a-z][a-zA-Z0-9]*$`)

func isValidMethodRef(m ir.MethodRef) bool {
	return methodRefPattern.MatchString(string(m))
}
