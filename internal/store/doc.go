// Package store provides SQLite-backed durable storage for sweep results.
//
// Each run of a graph instance is recorded as:
//   - Runs: one row per run with its graph name, catalog fingerprint,
//     strategy, and final summary
//   - Run nodes: the captured columns of the run, in position order
//   - Combinations: one row per recorded combination, values stored as a
//     canonical JSON array aligned with the run nodes
//
// # Ordering
//
//   - Runs are ordered by seq INTEGER (assigned at insert), never by
//     timestamps
//   - Combinations are ordered by ordinal, the order the strategy stored them
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Values are serialized with ir.MarshalCanonical, so identical combinations
// have identical values_hash across runs and stores.
package store
