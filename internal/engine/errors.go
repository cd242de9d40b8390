package engine

import (
	"errors"
	"fmt"
	"strings"
)

// GraphError represents a structural error detected while wiring or
// running a Dag. Structural errors abort the operation in progress.
//
// Graph errors include:
//   - Configuration: no updater matches the current configuration
//   - Cycle: the active wiring contains a dependency cycle
//   - Unsatisfiable: a required node's producer is disabled
//   - Locator: a key, index, or node does not resolve in this Dag
//   - Validation: a configuration value fails its type rules
//   - Missing input: a required input was given an empty value list
//   - Evaluation: an operation returned an error
//   - Sink: the result sink failed
type GraphError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Node is the gene key of the affected node, if any.
	Node string

	// Path is the dependency path for cycle and unsatisfiable errors.
	Path []string

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes graph errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates no updater matched and no default exists.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeCycleDetected indicates the active wiring is cyclic.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeUnsatisfiable indicates a required producer is disabled.
	ErrCodeUnsatisfiable ErrorCode = "UNSATISFIABLE"

	// ErrCodeValidation indicates a configuration value failed validation.
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeLocator indicates a node locator did not resolve.
	ErrCodeLocator ErrorCode = "LOCATOR"

	// ErrCodeMissingInput indicates a required input has no values.
	ErrCodeMissingInput ErrorCode = "MISSING_INPUT"

	// ErrCodeEvaluation indicates an operation failed.
	ErrCodeEvaluation ErrorCode = "EVALUATION"

	// ErrCodeSink indicates the result sink failed.
	ErrCodeSink ErrorCode = "SINK"
)

// Error implements the error interface.
func (e *GraphError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if e.Node != "" {
		fmt.Fprintf(&b, " (node=%s)", e.Node)
	}
	if len(e.Path) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.Path, " -> "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *GraphError) Unwrap() error {
	return e.Err
}

func hasCode(err error, code ErrorCode) bool {
	var ge *GraphError
	if errors.As(err, &ge) {
		return ge.Code == code
	}
	return false
}

// IsConfigurationError returns true if no updater matched for a node.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool { return hasCode(err, ErrCodeConfiguration) }

// IsCycleError returns true if the error is a cyclical dependency error.
// Uses errors.As to handle wrapped errors.
func IsCycleError(err error) bool { return hasCode(err, ErrCodeCycleDetected) }

// IsUnsatisfiableError returns true if a required producer is disabled.
func IsUnsatisfiableError(err error) bool { return hasCode(err, ErrCodeUnsatisfiable) }

// IsLocatorError returns true if a node locator did not resolve.
func IsLocatorError(err error) bool { return hasCode(err, ErrCodeLocator) }

// IsValidationError returns true if a configuration value was rejected.
func IsValidationError(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsMissingInputError returns true if a required input had no values.
func IsMissingInputError(err error) bool { return hasCode(err, ErrCodeMissingInput) }

// IsEvaluationError returns true if an operation failed during a run.
func IsEvaluationError(err error) bool { return hasCode(err, ErrCodeEvaluation) }

// NewConfigurationError creates a GraphError for a gene with no matching updater.
func NewConfigurationError(key string) *GraphError {
	return &GraphError{
		Code:    ErrCodeConfiguration,
		Message: "no updater matches the current configuration and no default exists",
		Node:    key,
	}
}

// NewCycleError creates a GraphError for a cyclical dependency.
// The path lists every node on the recursion path ending with the revisited node.
func NewCycleError(path []string) *GraphError {
	node := ""
	if len(path) > 0 {
		node = path[len(path)-1]
	}
	return &GraphError{
		Code:    ErrCodeCycleDetected,
		Message: "cyclical dependency",
		Node:    node,
		Path:    path,
	}
}

// NewUnsatisfiableError creates a GraphError for a disabled required producer.
func NewUnsatisfiableError(consumer, producer string) *GraphError {
	return &GraphError{
		Code:    ErrCodeUnsatisfiable,
		Message: fmt.Sprintf("required producer %s is disabled", producer),
		Node:    consumer,
		Path:    []string{producer, consumer},
	}
}

// NewLocatorError creates a GraphError for an unresolved locator.
func NewLocatorError(loc any) *GraphError {
	return &GraphError{
		Code:    ErrCodeLocator,
		Message: fmt.Sprintf("node locator %v (%T) does not resolve", loc, loc),
	}
}

// RunLimitExceededError is raised inside a run when recording one more
// combination would exceed the run limit.
//
// Run converts it into an ok=false summary; callers never see it as an error
// from Run. Strategies propagate it to stop the walk.
type RunLimitExceededError struct {
	Limit        int // Maximum combinations allowed
	Combinations int // Combinations attempted, including the rejected one
}

// Error implements the error interface.
func (e *RunLimitExceededError) Error() string {
	return fmt.Sprintf("run limit exceeded: %d combinations > %d limit", e.Combinations, e.Limit)
}

// IsRunLimitError returns true if the error is a RunLimitExceededError.
// Uses errors.As to handle wrapped errors.
func IsRunLimitError(err error) bool {
	var re *RunLimitExceededError
	return errors.As(err, &re)
}
