package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

// DefaultRunLimit caps [SyncRunRepository.List] when no limit is given.
const DefaultRunLimit = 20

// ErrRunNotFound is returned by [SyncRunRepository.Get] for an unknown id.
var ErrRunNotFound = errors.New("sync run not found")

const syncRunColumns = `id, sequence, session_id, source_playlist_id, destination_playlist_id, strategy, state,
	source_tracks, delete_chunks, append_chunks, snapshot_id, error, started_at, finished_at`

// SyncRunRepository persists [models.SyncRun] history rows.
type SyncRunRepository struct {
	db *sql.DB
}

// NewSyncRunRepository creates a new [SyncRunRepository] with the given database connection
func NewSyncRunRepository(db *sql.DB) *SyncRunRepository {
	return &SyncRunRepository{db: db}
}

// RecordRun inserts run with a generated ID and sequence.
func (r *SyncRunRepository) RecordRun(ctx context.Context, run *models.SyncRun) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "sync_runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	if run.ID == "" {
		run.ID = shared.GenerateID()
	}
	run.Sequence = sequence

	query := `INSERT INTO sync_runs (` + syncRunColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = r.db.ExecContext(ctx, query,
		run.ID,
		run.Sequence,
		run.SessionID,
		run.SourcePlaylistID,
		run.DestinationPlaylistID,
		run.Strategy,
		string(run.State),
		run.SourceTracks,
		run.DeleteChunks,
		run.AppendChunks,
		run.SnapshotID,
		run.Error,
		run.StartedAt.UTC(),
		run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sync run: %w", err)
	}

	return nil
}

// Get retrieves a run by ID.
func (r *SyncRunRepository) Get(ctx context.Context, id string) (*models.SyncRun, error) {
	query := `SELECT ` + syncRunColumns + ` FROM sync_runs WHERE id = ?`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query sync run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs, newest first. An empty sessionID lists every session.
func (r *SyncRunRepository) List(ctx context.Context, sessionID string, limit int) ([]*models.SyncRun, error) {
	if limit <= 0 {
		limit = DefaultRunLimit
	}

	query := `SELECT ` + syncRunColumns + ` FROM sync_runs`
	args := []any{}

	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}

	query += " ORDER BY sequence DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.SyncRun, error) {
	var (
		run        models.SyncRun
		state      string
		startedAt  time.Time
		finishedAt time.Time
	)

	err := row.Scan(
		&run.ID,
		&run.Sequence,
		&run.SessionID,
		&run.SourcePlaylistID,
		&run.DestinationPlaylistID,
		&run.Strategy,
		&state,
		&run.SourceTracks,
		&run.DeleteChunks,
		&run.AppendChunks,
		&run.SnapshotID,
		&run.Error,
		&startedAt,
		&finishedAt,
	)
	if err != nil {
		return nil, err
	}

	run.State = models.SyncState(state)
	run.StartedAt = startedAt
	run.FinishedAt = finishedAt
	return &run, nil
}
