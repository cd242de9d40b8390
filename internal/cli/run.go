package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/ir"
	"github.com/roach88/firegraph/internal/store"
	"github.com/roach88/firegraph/internal/worksheet"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Catalog  string
	Database string
	Strategy string
	RunLimit int
	Show     bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs store.RunIDGenerator
}

// RunResult describes one recorded run.
type RunResult struct {
	RunID        string       `json:"run_id"`
	Dag          string       `json:"dag"`
	Strategy     string       `json:"strategy"`
	OK           bool         `json:"ok"`
	Message      string       `json:"message,omitempty"`
	Combinations int          `json:"combinations"`
	Evaluations  int          `json:"evaluations"`
	Table        *store.Table `json:"table,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <worksheet.hcl>",
		Short: "Run a worksheet and record the results",
		Long: `Apply a worksheet to a graph instance, sweep every combination of its
candidate inputs, and record the captured values into the results
database.

Strategy and run limit come from the config file, then the worksheet,
then flags; the last one set wins.

Example:
  firegraph run sweep.hcl
  firegraph run --catalog plot.cue --db /tmp/runs.db --show plot.hcl`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorksheet(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Catalog, "catalog", "c", BuiltinSurface, "catalog file, directory, or \"surface\"")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (default from config)")
	cmd.Flags().StringVar(&opts.Strategy, "strategy", "", "evaluation strategy (recursive|odometer)")
	cmd.Flags().IntVar(&opts.RunLimit, "run-limit", 0, "maximum number of combinations")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "print the recorded table")

	return cmd
}

func runWorksheet(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.defaults()

	loaded, err := loadBoundCatalog(opts.Catalog)
	if err != nil {
		code, message := parseLoadError(err)
		return formatter.Fail(ExitCommandError, code, message)
	}
	slog.Debug("catalog loaded", "catalog", loaded.Genome.Name, "hash", loaded.Hash)

	ws, err := worksheet.Load(path)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeWorksheet, err.Error())
	}

	engineOpts, err := runOptions(opts, cfg.Options, ws.Options)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGeneric, err.Error())
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.Store.Path
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err))
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// Use command's context if available (for testing), otherwise create one
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sinkOpts []store.SinkOption
	if opts.RunIDs != nil {
		sinkOpts = append(sinkOpts, store.WithRunIDGenerator(opts.RunIDs))
	}
	sink := st.NewSink(ctx, sinkOpts...)

	if ws.Dag == "" {
		engineOpts = append(engineOpts, engine.WithName(worksheetName(path)))
	}
	engineOpts = append(engineOpts, engine.WithSink(sink))
	d := engine.New(loaded.Catalog, engineOpts...)
	if err := d.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGraph, err.Error())
	}

	if err := ws.Apply(d); err != nil {
		var invalid *worksheet.InvalidInputError
		if errors.As(err, &invalid) {
			return formatter.Fail(ExitCommandError, ErrCodeInvalidInput, err.Error())
		}
		return formatter.Fail(ExitCommandError, ErrCodeGraph, err.Error())
	}

	slog.Info("running worksheet", "dag", d.Name(), "strategy", d.Strategy().Name(), "db", dbPath)
	summary, runErr := d.Run()
	if runErr != nil {
		slog.Warn("run failed", "dag", d.Name(), "run_id", sink.RunID(), "error", runErr)
		code := ErrCodeGraph
		if ctx.Err() != nil || isSinkError(runErr) {
			code = ErrCodeStore
		}
		_ = formatter.Error(code, runErr.Error(), map[string]string{"run_id": sink.RunID()})
		return WrapExitError(ExitFailure, "run failed", runErr)
	}

	result := RunResult{
		RunID:        sink.RunID(),
		Dag:          d.Name(),
		Strategy:     d.Strategy().Name(),
		OK:           summary.OK,
		Message:      summary.Message,
		Combinations: summary.Combinations,
		Evaluations:  summary.NodeEvaluations,
	}
	if opts.Show {
		table, err := st.ReadTable(ctx, result.RunID)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("reading run: %v", err))
		}
		result.Table = &table
	}

	if err := outputRunResult(formatter, result); err != nil {
		return err
	}
	if !result.OK {
		return NewExitError(ExitFailure, fmt.Sprintf("run aborted: %s", result.Message))
	}
	return nil
}

// runOptions layers engine options: config file, then worksheet, then
// flags.
func runOptions(opts *RunOptions, layers ...func() ([]engine.Option, error)) ([]engine.Option, error) {
	var out []engine.Option
	for _, layer := range layers {
		o, err := layer()
		if err != nil {
			return nil, err
		}
		out = append(out, o...)
	}
	if opts.Strategy != "" {
		s, err := engine.StrategyByName(opts.Strategy)
		if err != nil {
			return nil, err
		}
		out = append(out, engine.WithStrategy(s))
	}
	if opts.RunLimit < 0 {
		return nil, fmt.Errorf("--run-limit must not be negative, got %d", opts.RunLimit)
	}
	if opts.RunLimit > 0 {
		out = append(out, engine.WithRunLimit(opts.RunLimit))
	}
	return out, nil
}

// worksheetName names an unnamed graph instance after its file.
func worksheetName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func isSinkError(err error) bool {
	var gerr *engine.GraphError
	return errors.As(err, &gerr) && gerr.Code == engine.ErrCodeSink
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result, RunID: result.RunID}
		if !result.OK {
			response.Status = "error"
			response.Error = &CLIError{Code: ErrCodeGraph, Message: result.Message}
		}
		return formatter.encode(response)
	}

	w := formatter.Writer
	if result.OK {
		fmt.Fprintf(w, "✓ Run %s recorded (dag %s, strategy %s)\n", result.RunID, result.Dag, result.Strategy)
	} else {
		fmt.Fprintf(w, "✗ Run %s aborted: %s\n", result.RunID, result.Message)
	}
	fmt.Fprintf(w, "  %d combination(s), %d evaluation(s)\n", result.Combinations, result.Evaluations)
	if result.Table != nil {
		fmt.Fprintln(w)
		return writeTable(w, *result.Table)
	}
	return nil
}

// writeTable prints a recorded table, one row per combination.
func writeTable(w io.Writer, table store.Table) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	headers := make([]string, len(table.Columns))
	for i, c := range table.Columns {
		headers[i] = c.Key
		if c.Units != "" {
			headers[i] += " (" + c.Units + ")"
		}
	}
	fmt.Fprintln(tw, strings.Join(headers, "\t"))
	for _, row := range table.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = ir.Format(v)
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
