package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/firegraph/internal/compiler"
	"github.com/roach88/firegraph/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult summarizes a compiled catalog.
type CompilationResult struct {
	Name     string                  `json:"name"`
	Hash     string                  `json:"hash"`
	Genes    int                     `json:"genes"`
	Inputs   int                     `json:"inputs"`
	Configs  int                     `json:"configs"`
	Types    int                     `json:"types"`
	Methods  int                     `json:"methods"`
	Literals int                     `json:"literals"`
	Warnings []compiler.CycleWarning `json:"warnings"`
	Output   string                  `json:"output,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <catalog>",
		Short: "Compile a CUE catalog to a genome",
		Long: `Compile a CUE gene catalog into the pooled genome the engine runs.

The argument is a .cue file, a directory holding one CUE package, or
"surface" for the embedded surface fire catalog. The compiler checks the
catalog schema, binds every method to the formula registry, and reports
static cycles across alternative updaters as warnings.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the genome as JSON to this file")

	return cmd
}

func runCompile(opts *CompileOptions, ref string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors := LoadCatalog(ref, LoadModeCollectAll)
	if loadResult == nil {
		return outputCompileErrors(formatter, loadErrors)
	}

	formatter.VerboseLog("Compiled %d CUE file(s) from %s", loadResult.FileCount, ref)
	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	result := summarize(loadResult)
	if opts.Output != "" {
		if err := writeGenomeToFile(loadResult.Genome, opts.Output); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err))
		}
		result.Output = opts.Output
	}

	return outputCompileSuccess(formatter, result)
}

// summarize counts the pools and the input and configuration genes.
func summarize(r *LoadResult) CompilationResult {
	g := r.Genome
	result := CompilationResult{
		Name:     g.Name,
		Hash:     r.Hash,
		Genes:    len(g.Genes),
		Types:    len(g.Types),
		Methods:  len(g.Methods),
		Literals: len(g.Literals),
		Warnings: r.Warnings,
	}
	for _, gene := range g.Genes {
		if usesMethod(g, gene, ir.MethodInput) {
			result.Inputs++
		}
		if usesMethod(g, gene, ir.MethodConfig) {
			result.Configs++
		}
	}
	return result
}

func usesMethod(g *ir.Genome, gene ir.Gene, m ir.MethodRef) bool {
	for _, u := range gene.Updaters {
		if g.Methods[u.Method] == m {
			return true
		}
	}
	return false
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result CompilationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled catalog %s: %d gene(s), %d input(s), %d configuration(s)\n",
		result.Name, result.Genes, result.Inputs, result.Configs)
	fmt.Fprintf(w, "  %d type(s), %d method(s), %d literal(s)\n", result.Types, result.Methods, result.Literals)
	fmt.Fprintf(w, "  hash: %s\n", result.Hash)

	if len(result.Warnings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range result.Warnings {
			fmt.Fprintf(w, "  ⚠ %s\n", warn.Message)
		}
	}

	if result.Output != "" {
		fmt.Fprintf(w, "\nWrote genome to %s\n", result.Output)
	}
	return nil
}

// outputCompileErrors outputs every load error.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message := parseLoadError(err)
			cliErrors[i] = CLIError{Code: code, Message: message}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}

		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message := parseLoadError(err)
		var loadErr *LoadError
		if errors.As(err, &loadErr) && loadErr.Pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n",
				loadErr.Pos.Filename(),
				loadErr.Pos.Line(),
				loadErr.Pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// parseLoadError extracts error code and message from an error.
func parseLoadError(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Message
	}
	return ErrCodeGeneric, err.Error()
}

// writeGenomeToFile writes the genome as indented JSON.
func writeGenomeToFile(g *ir.Genome, filename string) error {
	// Indented for readability; canonical JSON is used only for hashing.
	data, err := json.MarshalIndent(g, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling genome: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	return nil
}
