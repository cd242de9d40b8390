package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/firegraph/internal/engine"
	"github.com/roach88/firegraph/internal/worksheet"
)

// NodesOptions holds flags for the nodes command.
type NodesOptions struct {
	*RootOptions
	Catalog   string
	Worksheet string
	Select    []string
	Required  bool
}

// NodeInfo describes one node of a wired graph instance.
type NodeInfo struct {
	Order    int    `json:"order"`
	Key      string `json:"key"`
	Label    string `json:"label,omitempty"`
	Method   string `json:"method"`
	Depth    int    `json:"depth"`
	Units    string `json:"units,omitempty"`
	Value    string `json:"value"`
	Enabled  bool   `json:"enabled"`
	Input    bool   `json:"input"`
	Config   bool   `json:"config"`
	Selected bool   `json:"selected"`
	Required bool   `json:"required"`
}

// NodesResult lists nodes in execution order.
type NodesResult struct {
	Dag   string     `json:"dag"`
	Nodes []NodeInfo `json:"nodes"`
}

// NewNodesCommand creates the nodes command.
func NewNodesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &NodesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "nodes",
		Short: "List the nodes of a graph instance in execution order",
		Long: `Wire a graph instance and list its nodes in execution order.

A worksheet, when given, is applied first so the listing reflects its
configuration and selection. Flags: I input, C configuration,
S selected, R required, - disabled.

Examples:
  firegraph nodes
  firegraph nodes --worksheet sweep.hcl --required
  firegraph nodes --catalog plot.cue --select plot.area`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runNodes(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Catalog, "catalog", "c", BuiltinSurface, "catalog file, directory, or \"surface\"")
	cmd.Flags().StringVarP(&opts.Worksheet, "worksheet", "w", "", "HCL worksheet to apply before listing")
	cmd.Flags().StringSliceVar(&opts.Select, "select", nil, "additional nodes to select")
	cmd.Flags().BoolVar(&opts.Required, "required", false, "list only required nodes")

	return cmd
}

func runNodes(opts *NodesOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := loadBoundCatalog(opts.Catalog)
	if err != nil {
		code, message := parseLoadError(err)
		return formatter.Fail(ExitCommandError, code, message)
	}

	d := engine.New(loaded.Catalog)
	if err := d.Err(); err != nil {
		return formatter.Fail(ExitCommandError, ErrCodeGraph, err.Error())
	}
	if opts.Worksheet != "" {
		ws, err := worksheet.Load(opts.Worksheet)
		if err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeWorksheet, err.Error())
		}
		if err := ws.Apply(d); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGraph, err.Error())
		}
	}
	if len(opts.Select) > 0 {
		locs := make([]engine.Locator, len(opts.Select))
		for i, key := range opts.Select {
			locs[i] = key
		}
		if err := d.Select(locs...); err != nil {
			return formatter.Fail(ExitCommandError, ErrCodeGraph, err.Error())
		}
	}

	result := NodesResult{Dag: d.Name(), Nodes: []NodeInfo{}}
	for _, n := range d.SortedNodes() {
		if opts.Required && !n.IsRequired() {
			continue
		}
		result.Nodes = append(result.Nodes, NodeInfo{
			Order:    n.Order(),
			Key:      n.Key(),
			Label:    n.Gene().Label,
			Method:   string(n.Method()),
			Depth:    n.Depth(),
			Units:    n.DisplayUnits(),
			Value:    n.DisplayString(),
			Enabled:  n.IsEnabled(),
			Input:    n.IsInput(),
			Config:   n.IsConfig(),
			Selected: n.IsSelected(),
			Required: n.IsRequired(),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	return outputNodesText(formatter, result)
}

func outputNodesText(formatter *OutputFormatter, result NodesResult) error {
	tw := tabwriter.NewWriter(formatter.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tFLAGS\tDEPTH\tKEY\tMETHOD\tVALUE")
	for _, n := range result.Nodes {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n", n.Order, nodeFlags(n), n.Depth, n.Key, n.Method, n.Value)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(formatter.Writer, "\n%d node(s)\n", len(result.Nodes))
	return nil
}

// nodeFlags renders the I/C/S/R flags, or "-" for a disabled node.
func nodeFlags(n NodeInfo) string {
	if !n.Enabled {
		return "-"
	}
	var b strings.Builder
	for _, f := range []struct {
		set  bool
		flag byte
	}{
		{n.Input, 'I'},
		{n.Config, 'C'},
		{n.Selected, 'S'},
		{n.Required, 'R'},
	} {
		if f.set {
			b.WriteByte(f.flag)
		}
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}
