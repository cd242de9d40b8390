// Package engine implements the firegraph computation-graph engine.
//
// A Dag is one live graph instance cloned from a shared, immutable
// catalog.Catalog. Each gene of the catalog becomes a Node holding the
// current value, flags, and the wiring chosen by the current configuration.
//
// ARCHITECTURE:
//
// Wiring (setTopology):
// Every configuration change re-resolves the active updater of every node,
// because one configuration value can redirect many nodes to different
// formulas and different producers at once. Wiring is rebuilt, never
// patched. Depth is computed by a memoized DFS over consumers and the
// execution order is the nodes sorted by descending sort key, where the
// key is 2*depth-1 for ordinary nodes and 2*depth for input nodes.
//
// Required set (setRequired):
// The transitive closure, over producer and configuration-gating edges, of
// the selected and enabled nodes. Only required nodes are evaluated.
//
// Evaluation (Strategy):
// A strategy walks the ordered required nodes once per combination of
// input values and records each completed combination in a Sink. The
// Recursive strategy is a nested loop; the Odometer strategy counts like a
// mixed-radix odometer and re-evaluates only the suffix after the input
// that changed.
//
// CONCURRENCY:
//
// A Dag is exclusive mutable state and is not safe for concurrent use.
// Concurrent what-if scenarios use separate Dags created from the same
// Catalog; a Sim hands them out by name and is safe for concurrent use.
// Evaluation never blocks and has no cancellation; the run limit is the only
// bounded-termination guarantee.
package engine
