// Package store persists card scripts in SQLite.
//
// Each action has at most one current script in the scripts table. Every
// change is also appended to script_revisions, ordered by seq, a logical
// clock that never uses wall time. Reads are deterministic:
//   - ListScripts orders by action_id COLLATE BINARY
//   - Revisions orders by seq ASC
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON
//
// Script digests come from ir.ScriptDigest; metadata is stored as RFC 8785
// canonical JSON.
package store
