package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/firegraph/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database string
	Dag      string
	Latest   bool
	Delete   bool
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results [run-id]",
		Short: "List recorded runs or show one run's table",
		Long: `Read the results database.

Without arguments, lists every recorded run (optionally one graph's runs
with --dag). With a run id, or --latest, prints that run's table.

Examples:
  firegraph results
  firegraph results --dag fuel-sweep --latest
  firegraph results 01924f6e-7c4b-7000-8000-000000000000
  firegraph results --delete 01924f6e-7c4b-7000-8000-000000000000`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite results database (default from config)")
	cmd.Flags().StringVar(&opts.Dag, "dag", "", "restrict to runs of one graph instance")
	cmd.Flags().BoolVar(&opts.Latest, "latest", false, "show the most recent run")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete the given run instead of showing it")

	return cmd
}

func runResults(opts *ResultsOptions, args []string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := cmd.Context()

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.defaults().Store.Path
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return formatter.Fail(ExitCommandError, ErrCodeNotFound, fmt.Sprintf("database not found: %s", dbPath))
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeStore, fmt.Sprintf("opening database: %v", err))
	}
	defer st.Close()

	runID := ""
	if len(args) == 1 {
		runID = args[0]
	}

	switch {
	case opts.Delete:
		if runID == "" {
			return formatter.Fail(ExitCommandError, ErrCodeGeneric, "--delete requires a run id")
		}
		if err := st.DeleteRun(ctx, runID); err != nil {
			return storeFailure(formatter, err)
		}
		if formatter.Format == "json" {
			return formatter.encode(CLIResponse{Status: "ok", RunID: runID})
		}
		fmt.Fprintf(formatter.Writer, "✓ Deleted run %s\n", runID)
		return nil

	case opts.Latest:
		run, err := st.LatestRun(ctx, opts.Dag)
		if err != nil {
			return storeFailure(formatter, err)
		}
		runID = run.ID
	}

	if runID == "" {
		runs, err := st.ListRuns(ctx, opts.Dag)
		if err != nil {
			return storeFailure(formatter, err)
		}
		if formatter.Format == "json" {
			return formatter.Success(runs)
		}
		return outputRunList(formatter, runs)
	}

	table, err := st.ReadTable(ctx, runID)
	if err != nil {
		return storeFailure(formatter, err)
	}
	if formatter.Format == "json" {
		return formatter.encode(CLIResponse{Status: "ok", Data: table, RunID: runID})
	}
	return outputRunTable(formatter, table)
}

// storeFailure maps an unknown run to E024 and anything else to E023.
func storeFailure(formatter *OutputFormatter, err error) error {
	if errors.Is(err, store.ErrRunNotFound) {
		return formatter.Fail(ExitCommandError, ErrCodeRunNotFound, err.Error())
	}
	return formatter.Fail(ExitCommandError, ErrCodeStore, err.Error())
}

func outputRunList(formatter *OutputFormatter, runs []store.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs recorded.")
		return nil
	}
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SEQ\tRUN\tDAG\tSTRATEGY\tSTATUS\tCOMBINATIONS\tSTARTED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Seq, r.ID, r.Dag, r.Strategy, r.Status, r.Combinations, r.StartedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func outputRunTable(formatter *OutputFormatter, table store.Table) error {
	w := formatter.Writer
	run := table.Run
	fmt.Fprintf(w, "Run %s (dag %s, catalog %s, strategy %s)\n", run.ID, run.Dag, run.Catalog, run.Strategy)
	fmt.Fprintf(w, "  status %s, %d combination(s), %d evaluation(s)\n", run.Status, run.Combinations, run.Evaluations)
	if run.Message != "" {
		fmt.Fprintf(w, "  message: %s\n", run.Message)
	}
	fmt.Fprintln(w)
	return writeTable(w, table)
}
