// Package store provides a SQLite-backed ledger implementing remote.Store.
//
// The ledger keeps:
//   - Entries: the current value of every key, with a per-key version
//   - Writes: an append-only journal of every confirmed write
//
// # Write Path
//
// Set never touches the database itself. Writes are queued FIFO to a
// single writer goroutine, and the returned confirmation resolves once the
// write has committed (after the configured confirmation latency). This
// mirrors a remote ledger: submission and confirmation are separate steps
// that can fail independently.
//
// # Ordering
//
//   - Journal rows are ordered by seq INTEGER (logical clock), never by
//     written_at
//   - entries.updated_seq points at the journal row that produced the value
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// There is no atomicity across keys: each Set is its own transaction.
package store
