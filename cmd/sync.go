package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/urfave/cli/v3"
)

// SyncRun copies the source tracks into the destination playlist.
//
// A conflict without --strategy is reported and returned as [shared.ErrConflictUnresolved].
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	req := models.SyncRequest{
		SessionID:             sessionID,
		SourcePlaylistID:      cmd.String("from"),
		SourceURIs:            cmd.StringSlice("uris"),
		DestinationPlaylistID: cmd.String("to"),
	}

	if req.SourcePlaylistID == "" && len(req.SourceURIs) == 0 {
		return fmt.Errorf("%w: --from or --uris", shared.ErrMissingArgument)
	}

	newName := cmd.String("to-new")
	switch {
	case req.DestinationPlaylistID == "" && newName == "":
		return fmt.Errorf("%w: --to or --to-new", shared.ErrMissingArgument)
	case req.DestinationPlaylistID != "" && newName != "":
		return fmt.Errorf("%w: --to and --to-new are mutually exclusive", shared.ErrInvalidArgument)
	}

	if name := cmd.String("strategy"); name != "" {
		strategy, err := models.ParseStrategy(name)
		if err != nil {
			return err
		}
		req.Strategy = strategy.Ptr()
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	if newName != "" {
		playlist, err := engine.CreatePlaylist(ctx, sessionID, newName, "", false)
		if err != nil {
			return err
		}
		req.DestinationPlaylistID = playlist.ID
		if !cmd.Bool("json") {
			if err := r.writePlain("✓ Created playlist %q (%s)\n", playlist.Name, playlist.ID); err != nil {
				return err
			}
		}
	}

	progress, stop := r.watch()
	result, err := engine.StartSync(ctx, req, progress)
	stop()

	if cmd.Bool("json") && result != nil {
		if werr := r.writeJSON(result, true); werr != nil {
			return werr
		}
	} else {
		formatter.WriteSyncResult(r.output, result, err)
	}

	if err != nil && !errors.Is(err, shared.ErrConflictUnresolved) {
		r.logger.Error("sync failed", "destination", req.DestinationPlaylistID, "error", err)
	}
	return err
}

// SyncHistory lists recorded sync runs for the current session, or all sessions with --all.
func (r *Runner) SyncHistory(ctx context.Context, cmd *cli.Command) error {
	var sessionID string
	if !cmd.Bool("all") {
		id, err := r.sessionID()
		if err != nil {
			return err
		}
		sessionID = id
	}

	runs, err := r.runStore()
	if err != nil {
		return err
	}

	history, err := runs.List(ctx, sessionID, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to read sync history: %w", err)
	}

	if len(history) == 0 && cmd.String("output") != formatter.OutputJSON {
		return r.writePlain("No sync runs recorded\n")
	}
	return formatter.WriteRuns(r.output, history, cmd.String("output"))
}
