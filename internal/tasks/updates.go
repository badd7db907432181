package tasks

import (
	"fmt"

	"github.com/desertthunder/plsync/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	Probing Phase = iota
	FetchSource
	FetchDest
	DeleteTracks
	AppendTracks
	Done
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case Probing:
		return "probing"
	case FetchSource:
		return "fetch_source"
	case FetchDest:
		return "fetch_dest"
	case DeleteTracks:
		return "delete_tracks"
	case AppendTracks:
		return "append_tracks"
	case Done:
		return "done"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func fetchSourceUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchSource,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading source playlist (%s)...", id),
	}
}

func probeUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Probing,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Checking destination playlist (%s)...", id),
	}
}

func fetchDestUpdate(id string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchDest,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Reading %d destination tracks (%s)...", total, id),
	}
}

func chunkUpdate(op string, step, total int) ProgressUpdate {
	phase, verb := AppendTracks, "Appending"
	if op == OpDelete {
		phase, verb = DeleteTracks, "Deleting"
	}
	return ProgressUpdate{
		Phase:   phase,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s tracks...", step, total, verb),
	}
}

func doneUpdate(result *models.SyncResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Sync finished: %s", result.State),
		Data:    result,
	}
}

func exportingPlaylistUpdate(step, total int, id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, id),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
