package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/plsync/internal/shared"
)

// Strategy selects how a sync resolves a non-empty destination.
type Strategy int

const (
	AppendStart Strategy = iota // insert source tracks before the existing ones
	AppendEnd                   // insert source tracks after the existing ones
	Overwrite                   // remove every existing track, then insert the source tracks
)

func (s Strategy) String() string {
	switch s {
	case AppendStart:
		return "append-start"
	case AppendEnd:
		return "append-end"
	case Overwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy accepts the names produced by [Strategy.String] plus a few aliases.
func ParseStrategy(s string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "append-start", "start", "prepend":
		return AppendStart, nil
	case "append-end", "end", "append":
		return AppendEnd, nil
	case "overwrite", "replace":
		return Overwrite, nil
	default:
		return 0, fmt.Errorf("%w: %q", shared.ErrUnsupportedStrategy, s)
	}
}

// Ptr returns a pointer to s, for [SyncRequest.Strategy].
func (s Strategy) Ptr() *Strategy {
	return &s
}

// SyncState is a state of the sync state machine.
type SyncState string

const (
	StateProbing    SyncState = "probing"
	StateNoConflict SyncState = "no_conflict"
	StateConflict   SyncState = "conflict"
	StateResolving  SyncState = "resolving"
	StateDone       SyncState = "done"
	StateFailed     SyncState = "failed"
)

// SyncRequest describes one sync. It is never persisted.
type SyncRequest struct {
	SessionID             string
	SourcePlaylistID      string
	SourceURIs            []string // read from SourcePlaylistID when empty
	DestinationPlaylistID string
	Strategy              *Strategy // required only when the destination is not empty
}

// SyncResult reports how far a sync got.
type SyncResult struct {
	State             SyncState `json:"state"`
	Strategy          Strategy  `json:"-"`
	StrategyName      string    `json:"strategy"`
	SourceTracks      int       `json:"source_tracks"`
	DestinationTotal  int       `json:"destination_total"`
	DeleteChunks      int       `json:"delete_chunks"`
	TotalDeleteChunks int       `json:"total_delete_chunks"`
	AppendChunks      int       `json:"append_chunks"`
	TotalAppendChunks int       `json:"total_append_chunks"`
	SnapshotID        string    `json:"snapshot_id"`
}

// CompletedChunks counts every mutation call that succeeded.
func (r SyncResult) CompletedChunks() int {
	return r.DeleteChunks + r.AppendChunks
}

// SyncRun is the persisted record of one sync attempt.
type SyncRun struct {
	ID                    string    `json:"id"`
	Sequence              int       `json:"sequence"`
	SessionID             string    `json:"session_id"`
	SourcePlaylistID      string    `json:"source_playlist_id"`
	DestinationPlaylistID string    `json:"destination_playlist_id"`
	Strategy              string    `json:"strategy"`
	State                 SyncState `json:"state"`
	SourceTracks          int       `json:"source_tracks"`
	DeleteChunks          int       `json:"delete_chunks"`
	AppendChunks          int       `json:"append_chunks"`
	SnapshotID            string    `json:"snapshot_id"`
	Error                 string    `json:"error,omitempty"`
	StartedAt             time.Time `json:"started_at"`
	FinishedAt            time.Time `json:"finished_at"`
}

// NewSyncRun builds the history row for req and its outcome.
func NewSyncRun(req SyncRequest, result *SyncResult, runErr error, started, finished time.Time) *SyncRun {
	run := &SyncRun{
		SessionID:             req.SessionID,
		SourcePlaylistID:      req.SourcePlaylistID,
		DestinationPlaylistID: req.DestinationPlaylistID,
		StartedAt:             started,
		FinishedAt:            finished,
	}
	if result != nil {
		run.Strategy = result.StrategyName
		run.State = result.State
		run.SourceTracks = result.SourceTracks
		run.DeleteChunks = result.DeleteChunks
		run.AppendChunks = result.AppendChunks
		run.SnapshotID = result.SnapshotID
	}
	if runErr != nil {
		run.Error = runErr.Error()
		if run.State == "" {
			run.State = StateFailed
		}
	}
	return run
}

// Validate checks the fields required by the sync_runs table.
func (r *SyncRun) Validate() error {
	if r.SessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if r.DestinationPlaylistID == "" {
		return fmt.Errorf("destination playlist id is required")
	}
	if r.State == "" {
		return fmt.Errorf("state is required")
	}
	return nil
}
