// Package repositories implements SQLite persistence for the sync engine.
//
// Key Implementations:
//   - [SessionRepository] : credential records keyed by session id, usable as a [sessions.Store]
//   - [SyncRunRepository] : history of sync attempts, written by the engine after every sync
//
// Sequence numbers provide stable, human-readable ordering (e.g. run #15) independent of UUIDs
// and timestamps. The [NextSequence] function atomically increments per-table sequence counters
// in dedicated sequence tables.
package repositories
