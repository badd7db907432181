// Package tasks implements playlist reads, syncs and exports on top of an [auth.Gate].
//
// # Sync
//
// [Engine.StartSync] drives a small state machine:
//
//	probing -> no_conflict -> done
//	probing -> conflict -> resolving -> done
//	                 \-> (no strategy) stops with ErrConflictUnresolved
//
// The destination is probed with a one-item read first. The source is read in full (or
// taken from the request's uris) only once the sync proceeds, so an unresolved conflict
// costs a single call. A non-empty destination is resolved by the request's
// [models.Strategy]: append-start inserts at position 0, append-end at the probed total,
// and overwrite deletes every existing track before appending at 0.
//
// # Chunking
//
// [Batcher] splits mutations into calls of at most 100 items and issues them one at a
// time through a [Pacer]. Append chunk i is inserted at start + i*size so the destination
// keeps source order. Each delete after the first carries the snapshot id returned by the
// previous delete. A failed chunk stops the batch and reports a [ChunkError] with the
// completed count.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates. The [ProgressUpdate]
// struct contains phase, step counters, messages and optional data. Updates use select
// with default to prevent blocking.
//
// # Export
//
// [Engine.ExportPlaylists] reads playlists at a fixed rate through one bound client and
// writes them with a worker pool via the formatter package, then writes a manifest.
package tasks
