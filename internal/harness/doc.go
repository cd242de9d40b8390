// Package harness runs conformance scenarios against catalogs.
//
// A scenario configures one graph instance, assigns candidate inputs, runs
// every combination into a fresh in-memory results store, and asserts on
// the recorded table.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: wind_sweep
//	description: "Heading spread rate rises with midflame wind"
//	catalog: surface            # embedded catalog, or a path to a .cue file
//	strategy: odometer          # optional
//	run_limit: 1000             # optional
//	configure:
//	  configure.wind.speed: atMidflame
//	select:
//	  - surface.fire.spreadRate.head
//	inputs:                     # native units
//	  surface.fuel.spreadRate.basic: 10
//	display_inputs:             # display units
//	  site.wind.speed.atMidflame: [0, 5, 10]
//	expect:
//	  ok: true
//	  combinations: 3
//	assertions:
//	  - type: monotonic
//	    node: surface.fire.spreadRate.head
//	    direction: increasing
//	  - type: stored
//	    table: runs
//	    expect: { status: complete }
//
// # Assertion Types
//
//   - values: a column equals a list of values, in order
//   - row: one row has the expected values (subset match)
//   - count: exactly N rows match a set of column values
//   - monotonic: a numeric column is increasing, decreasing, nondecreasing, or nonincreasing
//   - inputs: the captured input columns are exactly a set of nodes
//   - stored: queries a store table and verifies expected values
//
// Numbers compare within an optional absolute tolerance.
//
// # Deterministic Testing
//
// The harness uses a fixed run id ("run-" + scenario name), a deterministic
// clock (testutil.DeterministicClock), and an isolated in-memory SQLite
// database per scenario, so the recorded table is reproducible and can be
// compared against golden snapshots (RunWithGolden).
//
// # Usage
//
//	scenario, err := harness.LoadScenario("testdata/scenarios/wind_sweep.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := harness.Run(scenario)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !result.Pass {
//	    for _, msg := range result.Errors {
//	        log.Println(msg)
//	    }
//	}
package harness
