// Package storage persists task records.
//
// It currently supports:
//   - SQLite database file (the default driver)
//   - In-memory store (tests and ephemeral runs)
//
// Row-level isolation is all the scheduling core requires: each task's status
// is written exactly once per run, keyed by its own id.
package storage
