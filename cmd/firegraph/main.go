/*
firegraph compiles fire behavior catalogs into computation graphs and runs
worksheets against them.

Usage:

	firegraph <command> [arguments]

Commands:

	firegraph compile   Compile a CUE catalog and report its genome hash
	firegraph validate  Validate a catalog, optionally with a worksheet
	firegraph nodes     List the nodes of a graph instance in execution order
	firegraph run       Run a worksheet and record the results
	firegraph test      Run conformance scenarios
	firegraph results   List recorded runs or show one run's table

See 'firegraph help <command>' for more information on a specific command.
*/
package main

import (
	"os"

	"github.com/roach88/firegraph/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
