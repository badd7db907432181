package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/shared"
	"github.com/desertthunder/plsync/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistsList prints every playlist of the current user.
func (r *Runner) PlaylistsList(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	playlists, err := engine.ListAllPlaylists(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to list playlists: %w", err)
	}

	r.logger.Debug("fetched playlists", "count", len(playlists))
	return formatter.WritePlaylists(r.output, playlists, cmd.String("output"))
}

// PlaylistsTracks prints every track of a playlist.
func (r *Runner) PlaylistsTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	tracks, err := engine.ListAllTracks(ctx, sessionID, playlistID)
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	return formatter.WriteTracks(r.output, tracks, cmd.String("output"))
}

// PlaylistsCreate creates an empty playlist and prints its id.
func (r *Runner) PlaylistsCreate(ctx context.Context, cmd *cli.Command) error {
	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	playlist, err := engine.CreatePlaylist(ctx, sessionID, cmd.String("name"), cmd.String("description"), cmd.Bool("public"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}
	return r.writePlain("✓ Created playlist %q (%s)\n", playlist.Name, playlist.ID)
}

// PlaylistsProbe reports whether a playlist already holds tracks.
func (r *Runner) PlaylistsProbe(ctx context.Context, cmd *cli.Command) error {
	playlistID, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	conflict, err := engine.ProbeConflict(ctx, sessionID, playlistID)
	if err != nil {
		return err
	}

	if conflict {
		return r.writePlain("%s has tracks; a sync into it needs --strategy\n", playlistID)
	}
	return r.writePlain("%s is empty\n", playlistID)
}

// PlaylistsExport writes each playlist to --dir in --format, plus a manifest.
func (r *Runner) PlaylistsExport(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("%w: at least one playlist id", shared.ErrMissingArgument)
	}

	format := strings.ToLower(cmd.String("format"))
	if !isFormat(format) {
		return fmt.Errorf("%w: format must be one of %s", shared.ErrInvalidArgument, strings.Join(formatter.Formats, ", "))
	}

	sessionID, err := r.sessionID()
	if err != nil {
		return err
	}

	engine, err := r.syncEngine(ctx)
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("dir"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	}

	progress, stop := r.watch()
	result, err := engine.ExportPlaylists(ctx, sessionID, ids, opts, progress)
	stop()
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlain("✓ Exported %d/%d playlists to %s\n", result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)
	if result.FailedExports > 0 {
		r.writePlain("⚠ %d playlists failed, see %s\n", result.FailedExports, result.ManifestPath)
	}
	return nil
}

func isFormat(format string) bool {
	for _, f := range formatter.Formats {
		if f == format {
			return true
		}
	}
	return false
}

func requireArg(cmd *cli.Command, name string) (string, error) {
	value := strings.TrimSpace(cmd.StringArg(name))
	if value == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return value, nil
}
