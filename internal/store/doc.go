// Package store provides SQLite-backed storage for sieve runs.
//
// It holds two tables:
//   - results: computed term outputs keyed by ir.ResultKey, stored as arrow
//     IPC streams. Store implements engine.ResultCache over this table.
//   - runs: one record per engine run, ordered by a logical seq.
//
// Both tables are append-only. Writing an existing key or run ID is a no-op,
// so a result is never replaced by a later computation of the same key.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Run listings are ordered by seq ASC, id ASC COLLATE BINARY and never by
// wall-clock time.
package store
