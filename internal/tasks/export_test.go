package tasks

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/shared"
	tu "github.com/desertthunder/plsync/internal/testing"
	"github.com/stretchr/testify/require"
)

func TestExportPlaylists(t *testing.T) {
	ctx := context.Background()

	t.Run("Formats", func(t *testing.T) {
		tc := []struct {
			format       string
			filesPerList int
		}{
			{format: formatter.FormatJSON, filesPerList: 1},
			{format: formatter.FormatCSV, filesPerList: 2},
			{format: formatter.FormatMarkdown, filesPerList: 1},
			{format: formatter.FormatText, filesPerList: 1},
		}

		for _, tt := range tc {
			t.Run(tt.format, func(t *testing.T) {
				f := newFixture(t, DefaultOptions())
				f.provider.AddPlaylist("a", makeURIs("a", 3)...)
				f.provider.AddPlaylist("b", makeURIs("b", 70)...)
				dir := t.TempDir()

				result, err := f.engine.ExportPlaylists(ctx, testSession, []string{"a", "b"}, BulkExportOpts{
					Format: tt.format, OutputDir: dir, NumWorkers: 2, RateLimit: 1000,
				}, nil)
				require.NoError(t, err)
				require.Equal(t, 2, result.TotalPlaylists)
				require.Equal(t, 2, result.SuccessfulExports)
				require.Zero(t, result.FailedExports)

				for _, res := range result.Results {
					require.True(t, res.Success)
					require.Len(t, res.Files, tt.filesPerList)
					for _, file := range res.Files {
						require.FileExists(t, file)
					}
				}
				require.Equal(t, filepath.Join(dir, ManifestFile), result.ManifestPath)
			})
		}
	})

	t.Run("Missing Playlist Is Recorded In Manifest", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.provider.AddPlaylist("a", makeURIs("a", 2)...)
		dir := t.TempDir()

		progress := make(chan ProgressUpdate, 16)
		result, err := f.engine.ExportPlaylists(ctx, testSession, []string{"a", "missing"}, BulkExportOpts{
			OutputDir: dir, RateLimit: 1000,
		}, progress)
		require.NoError(t, err)
		require.Equal(t, 1, result.SuccessfulExports)
		require.Equal(t, 1, result.FailedExports)

		data, err := os.ReadFile(result.ManifestPath)
		require.NoError(t, err)

		var manifest formatter.Manifest
		require.NoError(t, json.Unmarshal(data, &manifest))
		require.Equal(t, formatter.FormatJSON, manifest.Format)
		require.Equal(t, 2, manifest.TotalPlaylists)
		require.Len(t, manifest.Playlists, 2)

		failed := 0
		for _, entry := range manifest.Playlists {
			if !entry.Success {
				failed++
				require.Equal(t, "missing", entry.PlaylistID)
				require.Contains(t, entry.Error, "status 404")
			}
		}
		require.Equal(t, 1, failed)

		for _, u := range drain(progress) {
			require.Equal(t, ExportPlaylist, u.Phase)
		}
	})

	t.Run("Reads Share One Refresh", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		for _, id := range []string{"a", "b", "c"} {
			f.provider.AddPlaylist(id, makeURIs(id, 5)...)
		}
		f.provider.ValidToken = "at-refreshed"

		result, err := f.engine.ExportPlaylists(ctx, testSession, []string{"a", "b", "c"}, BulkExportOpts{
			OutputDir: t.TempDir(), RateLimit: 1000,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, 3, result.SuccessfulExports)
		require.Len(t, f.refresher.Calls(), 1)
	})

	t.Run("ExportPlaylist", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.provider.AddPlaylist("a", makeURIs("a", 60)...)

		export, err := f.engine.ExportPlaylist(ctx, testSession, "a")
		require.NoError(t, err)
		require.Equal(t, "a", export.Playlist.ID)
		require.Equal(t, 60, export.Playlist.TrackCount)
		require.Len(t, export.Tracks, 60)
	})

	t.Run("Cancelled Export Returns Partial Results", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		for _, id := range []string{"a", "b", "c", "d"} {
			f.provider.AddPlaylist(id, makeURIs(id, 3)...)
		}

		cctx, cancel := context.WithCancel(ctx)
		defer cancel()
		f.provider.FailOn = func(call tu.Call) error {
			if call.Method == "Playlist" && call.PlaylistID == "b" {
				cancel()
				return context.Canceled
			}
			return nil
		}

		result, err := f.engine.ExportPlaylists(cctx, testSession, []string{"a", "b", "c", "d"}, BulkExportOpts{
			OutputDir: t.TempDir(), NumWorkers: 3, RateLimit: 1000,
		}, nil)
		require.ErrorIs(t, err, context.Canceled)
		require.NotNil(t, result)
		require.LessOrEqual(t, len(result.Results), 2)
		require.Empty(t, result.ManifestPath)
	})

	t.Run("No Playlists", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		_, err := f.engine.ExportPlaylists(ctx, testSession, nil, BulkExportOpts{OutputDir: t.TempDir()}, nil)
		require.ErrorIs(t, err, shared.ErrBadRequest)
	})

	t.Run("Unknown Format Fails Every Playlist", func(t *testing.T) {
		f := newFixture(t, DefaultOptions())
		f.provider.AddPlaylist("a", "spotify:track:1")

		result, err := f.engine.ExportPlaylists(ctx, testSession, []string{"a"}, BulkExportOpts{
			Format: "xml", OutputDir: t.TempDir(), RateLimit: 1000,
		}, nil)
		require.NoError(t, err)
		require.Equal(t, 1, result.FailedExports)
		require.ErrorIs(t, result.Results[0].Error, shared.ErrInvalidArgument)
	})
}
