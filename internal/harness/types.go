package harness

import (
	"strings"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/store"
)

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if the expect clause and all assertions match.
	Pass bool `json:"pass"`

	// Summary is the run summary. Zero when the run never started.
	Summary engine.RunSummary `json:"summary"`

	// RunError is the error returned while applying or running the
	// scenario, if any.
	RunError string `json:"run_error,omitempty"`

	// Table is the recorded run read back from the store. Nil when the
	// sink was never initialized.
	Table *store.Table `json:"table,omitempty"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
