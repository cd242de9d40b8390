package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/worksheet"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Worksheet string
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid   bool                `json:"valid"`
	Errors  []CLIError          `json:"errors,omitempty"`
	Inputs  []engine.Validation `json:"inputs,omitempty"`
	Catalog string              `json:"catalog,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <catalog>",
		Short: "Validate a catalog and optionally a worksheet",
		Long: `Validate a CUE catalog without writing a genome, reporting every
schema error at once.

With --worksheet, the worksheet is applied to a fresh graph instance and
every candidate input value is checked against its value type. Nothing
is run or recorded.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Worksheet, "worksheet", "w", "", "HCL worksheet to check against the catalog")

	return cmd
}

func runValidate(opts *ValidateOptions, ref string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadCatalog(ref, LoadModeCollectAll)
	if loadResult == nil {
		return outputCompileErrors(formatter, loadErrors)
	}
	if len(loadErrors) > 0 {
		result := ValidationResult{Valid: false}
		for _, err := range loadErrors {
			code, message := parseLoadError(err)
			result.Errors = append(result.Errors, CLIError{Code: code, Message: message})
		}
		return outputValidation(formatter, result)
	}
	formatter.VerboseLog("Catalog %s is valid (%d genes)", loadResult.Genome.Name, len(loadResult.Genome.Genes))

	result := ValidationResult{Valid: true, Catalog: loadResult.Genome.Name}
	if opts.Worksheet == "" {
		return outputValidation(formatter, result)
	}

	ws, err := worksheet.Load(opts.Worksheet)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWorksheet, err.Error())
	}
	d := engine.New(loadResult.Catalog)
	err = ws.Apply(d)
	var invalid *worksheet.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		result.Valid = false
		result.Inputs = invalid.Failures
	case err != nil:
		result.Valid = false
		result.Errors = append(result.Errors, CLIError{Code: ErrCodeGraph, Message: err.Error()})
	}
	return outputValidation(formatter, result)
}

// outputValidation prints the result. An invalid result exits with
// ExitFailure.
func outputValidation(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			response.Status = "error"
			response.Error = firstValidationError(result)
		}
		if err := formatter.encode(response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		if result.Valid {
			fmt.Fprintln(w, "✓ Validation passed")
		} else {
			fmt.Fprintln(w, "✗ Validation failed")
			fmt.Fprintln(w)
			for _, e := range result.Errors {
				fmt.Fprintf(w, "  %s: %s\n", e.Code, e.Message)
			}
			for _, v := range result.Inputs {
				fmt.Fprintf(w, "  %s: %s[%d] = %s: %s\n", ErrCodeInvalidInput, v.Node, v.Position, ir.Format(v.Value), v.Message)
			}
		}
	}

	if !result.Valid {
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(result.Errors)+len(result.Inputs)))
	}
	return nil
}

func firstValidationError(result ValidationResult) *CLIError {
	if len(result.Errors) > 0 {
		return &result.Errors[0]
	}
	v := result.Inputs[0]
	return &CLIError{
		Code:    ErrCodeInvalidInput,
		Message: fmt.Sprintf("%s[%d]: %s", v.Node, v.Position, v.Message),
	}
}
