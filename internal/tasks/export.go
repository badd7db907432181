package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/formatter"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/time/rate"
)

// ManifestFile is written into the output directory of every bulk export.
const ManifestFile = "export_manifest.json"

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     string  // json, csv, markdown, txt
	OutputDir  string  // defaults to spotify_export_{epoch}
	NumWorkers int     // concurrent file writers (default: 5, max: 10)
	RateLimit  float64 // playlist reads per second (default: 5)
}

// PlaylistExportJob is one fetched playlist waiting to be written.
type PlaylistExportJob struct {
	PlaylistID string
	Export     *models.PlaylistExport
}

// PlaylistExportResult is the outcome for one playlist.
type PlaylistExportResult struct {
	PlaylistID   string
	PlaylistName string
	Success      bool
	Files        []string
	Error        error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult
}

// ExportPlaylist reads a playlist and all of its tracks.
func (e *Engine) ExportPlaylist(ctx context.Context, sessionID, playlistID string) (*models.PlaylistExport, error) {
	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}
	return e.exportPlaylist(ctx, client, playlistID)
}

func (e *Engine) exportPlaylist(ctx context.Context, client *auth.Client, playlistID string) (*models.PlaylistExport, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}

	playlist, err := client.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	tracks, err := CollectAll(ctx, tracksOf(client, playlistID), e.opts.PageSize)
	if err != nil {
		return nil, err
	}

	return &models.PlaylistExport{Playlist: *playlist, Tracks: tracks}, nil
}

// ExportPlaylists writes each playlist to opts.OutputDir and a manifest next to them.
//
// Reads go through a single bound client, one playlist at a time at opts.RateLimit, so a
// token refresh is shared by every read that follows it. Files are written by a pool of
// opts.NumWorkers goroutines. A playlist that cannot be read or written is recorded as a
// failure and the export continues.
func (e *Engine) ExportPlaylists(
	ctx context.Context,
	sessionID string,
	ids []string,
	opts BulkExportOpts,
	prog chan<- ProgressUpdate,
) (*BulkExportResult, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no playlists to export", shared.ErrBadRequest)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spotify_export_%d", e.now().Unix())
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan PlaylistExportJob, len(ids))
	results := make(chan PlaylistExportResult, len(ids))

	// results closes once the producer and every worker are done sending.
	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			e.sendProgress(prog, exportingPlaylistUpdate(i+1, len(ids), playlistID))
			export, err := e.exportPlaylist(ctx, client, playlistID)
			if err != nil {
				results <- PlaylistExportResult{
					PlaylistID:   playlistID,
					PlaylistName: fmt.Sprintf("Unknown (%s)", playlistID),
					Error:        fmt.Errorf("failed to fetch playlist: %w", err),
				}
				continue
			}

			jobs <- PlaylistExportJob{PlaylistID: playlistID, Export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.logger.Warn("playlist export failed", "playlist", res.PlaylistID, "err", res.Error)
			e.sendProgress(prog, exportFailedUpdate(completed, len(ids), res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFile)
	if err := formatter.WriteManifest(manifestOf(result, opts.Format, e.now()), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

// exportWorker writes playlists from the jobs channel until it closes.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan PlaylistExportJob,
	results chan<- PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			return
		}

		res := PlaylistExportResult{PlaylistID: job.PlaylistID, PlaylistName: job.Export.Playlist.Name}
		files, err := formatter.WriteExport(job.Export, opts.Format, opts.OutputDir)
		if err != nil {
			res.Error = err
		} else {
			res.Success = true
			res.Files = files
		}
		results <- res
	}
}

func manifestOf(result *BulkExportResult, format string, created time.Time) *formatter.Manifest {
	m := &formatter.Manifest{
		CreatedAt:         created.UTC(),
		Format:            format,
		OutputDirectory:   result.OutputDirectory,
		TotalPlaylists:    result.TotalPlaylists,
		SuccessfulExports: result.SuccessfulExports,
		FailedExports:     result.FailedExports,
		Playlists:         make([]formatter.ManifestEntry, 0, len(result.Results)),
	}
	for _, res := range result.Results {
		entry := formatter.ManifestEntry{
			PlaylistID:   res.PlaylistID,
			PlaylistName: res.PlaylistName,
			Success:      res.Success,
			Files:        res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Playlists = append(m.Playlists, entry)
	}
	return m
}
