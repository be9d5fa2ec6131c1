// Package store provides the SQLite-backed audit journal for BAP-DD runs.
//
// The journal is append-only:
//   - Runs: one row per engine instance, with the configuration it was built from
//   - Rounds: one row per UpdateDrift call (inputs, resulting weights and
//     drift matrix, consensus, content hash)
//   - Elections: one row per ResolvePartition call
//
// The journal records what an engine did. It is never used to restore an
// engine; replay builds a fresh engine from the recorded configuration and
// checks that it recomputes identical hashes.
//
// # Ordering
//
// All reads use ORDER BY seq ASC. Seq comes from the simulator's logical
// round clock, never from wall time.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Rounds and elections must reference a run
//
// Float vectors are stored as JSON; encoding/json writes the shortest
// representation that parses back to the identical float64.
package store
