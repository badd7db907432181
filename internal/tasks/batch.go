package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// Per-call item ceilings of the mutation endpoints.
const (
	MaxAppendChunk = 100
	MaxDeleteChunk = 100
)

// Batch operations
const (
	OpAppend = "append"
	OpDelete = "delete"
)

// Mutator issues single mutation calls for a bound session.
type Mutator interface {
	AddItems(ctx context.Context, playlistID string, uris []string, position int) (string, error)
	RemoveItems(ctx context.Context, playlistID string, refs []models.TrackRef, snapshotID string) (string, error)
}

// BatchResult reports the chunks of one batch that completed.
type BatchResult struct {
	Snapshots []string // snapshot id returned by each completed chunk, in order
	Completed int
	Total     int
}

// SnapshotID returns the snapshot id of the last completed chunk.
func (r *BatchResult) SnapshotID() string {
	if r == nil || len(r.Snapshots) == 0 {
		return ""
	}
	return r.Snapshots[len(r.Snapshots)-1]
}

// ChunkError is returned when a chunk fails. It matches both [shared.ErrChunkFailed]
// and the underlying error with [errors.Is].
type ChunkError struct {
	Op         string
	Index      int // zero-based index of the failed chunk
	Completed  int
	Total      int
	SnapshotID string // last snapshot id before the failure
	Err        error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s chunk %d/%d failed after %d completed: %v", e.Op, e.Index+1, e.Total, e.Completed, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{shared.ErrChunkFailed, e.Err}
}

// Chunk splits items into contiguous slices of at most size items. The slices share
// the backing array of items.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end:end])
	}
	return chunks
}

// ChunkCount returns how many calls n items need at chunk size c.
func ChunkCount(n, c int) int {
	if n <= 0 || c <= 0 {
		return 0
	}
	return (n + c - 1) / c
}

// Batcher issues chunked mutations one at a time, pacing between calls.
type Batcher struct {
	mutator Mutator
	pacer   Pacer
	logger  *log.Logger

	// OnChunk, when set, is called after every completed chunk.
	OnChunk func(op string, completed, total int)
}

// NewBatcher creates a batcher. A nil pacer waits [DefaultDelay] and a nil logger discards.
func NewBatcher(mutator Mutator, pacer Pacer, logger *log.Logger) *Batcher {
	if pacer == nil {
		pacer = FixedDelay(DefaultDelay)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Batcher{mutator: mutator, pacer: pacer, logger: logger}
}

func clampChunkSize(size, ceiling int) (int, error) {
	if size <= 0 {
		return 0, fmt.Errorf("%w: chunk size must be positive, got %d", shared.ErrBadRequest, size)
	}
	return min(size, ceiling), nil
}

// AppendChunked inserts uris starting at start. Chunk i lands at start + i*chunkSize, so
// the final order equals uris. An empty uri list is rejected before any call.
func (b *Batcher) AppendChunked(ctx context.Context, playlistID string, uris []string, start, chunkSize int) (*BatchResult, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: no uris to append", shared.ErrBadRequest)
	}
	if start < 0 {
		return nil, fmt.Errorf("%w: start position must not be negative", shared.ErrBadRequest)
	}
	size, err := clampChunkSize(chunkSize, MaxAppendChunk)
	if err != nil {
		return nil, err
	}

	chunks := Chunk(uris, size)
	result := &BatchResult{Total: len(chunks), Snapshots: make([]string, 0, len(chunks))}

	for i, chunk := range chunks {
		position := start + i*size
		err := b.run(ctx, result, OpAppend, i, func() (string, error) {
			return b.mutator.AddItems(ctx, playlistID, chunk, position)
		})
		if err != nil {
			return result, err
		}
		b.logger.Debug("appended chunk", "playlist", playlistID, "chunk", i+1, "of", len(chunks), "position", position, "items", len(chunk))
	}
	return result, nil
}

// DeleteChunked removes refs. The first call carries no snapshot precondition; every
// later call carries the snapshot id returned by the call before it. An empty ref list
// completes without calls.
func (b *Batcher) DeleteChunked(ctx context.Context, playlistID string, refs []models.TrackRef, chunkSize int) (*BatchResult, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}
	size, err := clampChunkSize(chunkSize, MaxDeleteChunk)
	if err != nil {
		return nil, err
	}

	chunks := Chunk(refs, size)
	result := &BatchResult{Total: len(chunks), Snapshots: make([]string, 0, len(chunks))}

	for i, chunk := range chunks {
		precondition := result.SnapshotID()
		err := b.run(ctx, result, OpDelete, i, func() (string, error) {
			return b.mutator.RemoveItems(ctx, playlistID, chunk, precondition)
		})
		if err != nil {
			return result, err
		}
		b.logger.Debug("deleted chunk", "playlist", playlistID, "chunk", i+1, "of", len(chunks), "items", len(chunk))
	}
	return result, nil
}

// run issues chunk index and waits on the pacer afterwards. A pacer error after the
// final chunk is ignored since nothing is left to issue.
func (b *Batcher) run(ctx context.Context, result *BatchResult, op string, index int, call func() (string, error)) error {
	fail := func(i int, err error) error {
		return &ChunkError{
			Op:         op,
			Index:      i,
			Completed:  result.Completed,
			Total:      result.Total,
			SnapshotID: result.SnapshotID(),
			Err:        err,
		}
	}

	if err := ctx.Err(); err != nil {
		return fail(index, err)
	}

	snapshot, err := call()
	if err != nil {
		return fail(index, err)
	}

	result.Snapshots = append(result.Snapshots, snapshot)
	result.Completed++
	if b.OnChunk != nil {
		b.OnChunk(op, result.Completed, result.Total)
	}

	if err := b.pacer.Wait(ctx); err != nil && index+1 < result.Total {
		return fail(index+1, err)
	}
	return nil
}
