package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/plsync/internal/auth"
	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
	"github.com/desertthunder/plsync/internal/shared"
)

// RunRecorder persists the outcome of each sync.
type RunRecorder interface {
	RecordRun(ctx context.Context, run *models.SyncRun) error
}

// Options holds the paging and chunking sizes used by the engine.
type Options struct {
	PageSize        int
	AppendChunkSize int
	DeleteChunkSize int
}

// DefaultOptions uses every provider ceiling.
func DefaultOptions() Options {
	return Options{PageSize: MaxPageSize, AppendChunkSize: MaxAppendChunk, DeleteChunkSize: MaxDeleteChunk}
}

// OptionsFromConfig reads the [sync] section of the config.
func OptionsFromConfig(cfg shared.SyncConfig) Options {
	return Options{
		PageSize:        cfg.PageSize,
		AppendChunkSize: cfg.AppendChunkSize,
		DeleteChunkSize: cfg.DeleteChunkSize,
	}
}

// Engine runs syncs and playlist reads for any session. Each call binds its own
// [auth.Client], so independent requests may run concurrently.
type Engine struct {
	gate     *auth.Gate
	provider services.Provider
	pacer    Pacer
	opts     Options
	logger   *log.Logger
	recorder RunRecorder
	now      func() time.Time
}

// NewEngine creates an engine. A nil pacer waits [DefaultDelay] between mutation calls.
func NewEngine(gate *auth.Gate, provider services.Provider, pacer Pacer, opts Options, logger *log.Logger) *Engine {
	if pacer == nil {
		pacer = FixedDelay(DefaultDelay)
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Engine{gate: gate, provider: provider, pacer: pacer, opts: opts, logger: logger, now: time.Now}
}

// WithRecorder records every sync through r. Recording failures are logged only.
func (e *Engine) WithRecorder(r RunRecorder) *Engine {
	e.recorder = r
	return e
}

// sendProgress sends a progress update through the channel without blocking.
func (e *Engine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func tracksOf(client *auth.Client, playlistID string) PageFetcher[models.Track] {
	return func(ctx context.Context, offset, limit int) (*models.Page[models.Track], error) {
		return client.PlaylistTracks(ctx, playlistID, offset, limit)
	}
}

// CurrentUser returns the account behind the session.
func (e *Engine) CurrentUser(ctx context.Context, sessionID string) (*models.User, error) {
	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}
	return client.CurrentUser(ctx)
}

// ListAllTracks returns every item of a playlist in order.
func (e *Engine) ListAllTracks(ctx context.Context, sessionID, playlistID string) ([]models.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}

	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}
	return CollectAll(ctx, tracksOf(client, playlistID), e.opts.PageSize)
}

// ListAllPlaylists returns every playlist of the session's user.
func (e *Engine) ListAllPlaylists(ctx context.Context, sessionID string) ([]models.Playlist, error) {
	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current user: %w", err)
	}

	return CollectAll(ctx, func(ctx context.Context, offset, limit int) (*models.Page[models.Playlist], error) {
		return client.UserPlaylists(ctx, user.ID, offset, limit)
	}, e.opts.PageSize)
}

// ProbeConflict reports whether the playlist already holds tracks. It reads one item.
func (e *Engine) ProbeConflict(ctx context.Context, sessionID, playlistID string) (bool, error) {
	if playlistID == "" {
		return false, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}

	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return false, err
	}

	total, err := Probe(ctx, tracksOf(client, playlistID))
	if err != nil {
		return false, err
	}
	return total > 0, nil
}

// CreatePlaylist creates an empty playlist owned by the session's user.
func (e *Engine) CreatePlaylist(ctx context.Context, sessionID, name, description string, public bool) (*models.Playlist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name is required", shared.ErrBadRequest)
	}

	client, err := e.gate.Bind(ctx, e.provider, sessionID)
	if err != nil {
		return nil, err
	}

	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current user: %w", err)
	}

	playlist, err := client.CreatePlaylist(ctx, user.ID, name, description, public)
	if err != nil {
		return nil, fmt.Errorf("failed to create playlist: %w", err)
	}
	e.logger.Info("created playlist", "id", playlist.ID, "name", playlist.Name, "owner", user.ID)
	return playlist, nil
}

// StartSync reconciles the destination with the source.
//
// An empty destination gets the source appended. A non-empty one requires req.Strategy;
// without it the result is left in [models.StateConflict] and the error is
// [shared.ErrConflictUnresolved], with no mutation issued. A failed chunk leaves the
// result in [models.StateFailed] with the completed chunk counts and the last snapshot id.
func (e *Engine) StartSync(ctx context.Context, req models.SyncRequest, progress chan<- ProgressUpdate) (*models.SyncResult, error) {
	started := e.now()

	result, err := e.startSync(ctx, req, progress)
	if result != nil {
		e.record(ctx, req, result, err, started)
		e.sendProgress(progress, doneUpdate(result))
	}
	return result, err
}

func validateRequest(req models.SyncRequest) error {
	switch {
	case req.SessionID == "":
		return fmt.Errorf("%w: session id is required", shared.ErrBadRequest)
	case req.DestinationPlaylistID == "":
		return fmt.Errorf("%w: destination playlist id is required", shared.ErrBadRequest)
	case req.SourcePlaylistID == "" && len(req.SourceURIs) == 0:
		return fmt.Errorf("%w: source playlist id or uris are required", shared.ErrBadRequest)
	case req.SourcePlaylistID != "" && req.SourcePlaylistID == req.DestinationPlaylistID:
		return fmt.Errorf("%w: source and destination are the same playlist", shared.ErrBadRequest)
	}

	for i, uri := range req.SourceURIs {
		if uri == "" {
			return fmt.Errorf("%w: source uri %d is empty", shared.ErrBadRequest, i)
		}
	}
	return nil
}

func (e *Engine) startSync(ctx context.Context, req models.SyncRequest, progress chan<- ProgressUpdate) (*models.SyncResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	client, err := e.gate.Bind(ctx, e.provider, req.SessionID)
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(e.logger, "session", shared.ShortID(req.SessionID), "dest", req.DestinationPlaylistID)
	result := &models.SyncResult{State: models.StateProbing}
	fail := func(err error) (*models.SyncResult, error) {
		result.State = models.StateFailed
		logger.Error("sync failed", "err", err)
		return result, err
	}

	e.sendProgress(progress, probeUpdate(req.DestinationPlaylistID))
	total, err := Probe(ctx, tracksOf(client, req.DestinationPlaylistID))
	if err != nil {
		return fail(fmt.Errorf("failed to probe destination playlist: %w", err))
	}
	result.DestinationTotal = total
	result.SourceTracks = len(req.SourceURIs)

	strategy := models.AppendEnd
	if total == 0 {
		result.State = models.StateNoConflict
	} else {
		result.State = models.StateConflict
		if req.Strategy == nil {
			logger.Info("destination is not empty, strategy required", "tracks", total)
			return result, fmt.Errorf("%w: destination has %d tracks", shared.ErrConflictUnresolved, total)
		}
		strategy = *req.Strategy
	}

	// the source is read only once the sync is known to proceed
	uris := req.SourceURIs
	if len(uris) == 0 {
		e.sendProgress(progress, fetchSourceUpdate(req.SourcePlaylistID))
		tracks, err := CollectAll(ctx, tracksOf(client, req.SourcePlaylistID), e.opts.PageSize)
		if err != nil {
			return fail(fmt.Errorf("failed to read source playlist: %w", err))
		}
		uris = sourceURIs(tracks)
		if len(uris) == 0 {
			return fail(fmt.Errorf("%w: source playlist has no tracks that can be added", shared.ErrBadRequest))
		}
	}
	result.SourceTracks = len(uris)

	result.Strategy = strategy
	result.StrategyName = strategy.String()
	result.State = models.StateResolving
	logger.Info("resolving", "strategy", strategy, "source_tracks", len(uris), "destination_tracks", total)

	batcher := NewBatcher(client, e.pacer, logger)
	batcher.OnChunk = func(op string, completed, total int) {
		e.sendProgress(progress, chunkUpdate(op, completed, total))
	}

	start := 0
	switch strategy {
	case models.AppendStart:
	case models.AppendEnd:
		start = total
	case models.Overwrite:
		if err := e.clear(ctx, client, batcher, req.DestinationPlaylistID, total, result, progress); err != nil {
			return fail(err)
		}
	default:
		return fail(fmt.Errorf("%w: %s", shared.ErrUnsupportedStrategy, strategy))
	}

	result.TotalAppendChunks = ChunkCount(len(uris), min(e.opts.AppendChunkSize, MaxAppendChunk))
	appended, err := batcher.AppendChunked(ctx, req.DestinationPlaylistID, uris, start, e.opts.AppendChunkSize)
	if appended != nil {
		result.AppendChunks = appended.Completed
		result.TotalAppendChunks = appended.Total
		if id := appended.SnapshotID(); id != "" {
			result.SnapshotID = id
		}
	}
	if err != nil {
		return fail(err)
	}

	result.State = models.StateDone
	logger.Info("sync complete", "appended_chunks", result.AppendChunks, "deleted_chunks", result.DeleteChunks, "snapshot", result.SnapshotID)
	return result, nil
}

// clear reads every destination item and deletes them all. It returns once the last
// delete response has arrived.
func (e *Engine) clear(ctx context.Context, client *auth.Client, batcher *Batcher, playlistID string, total int, result *models.SyncResult, progress chan<- ProgressUpdate) error {
	e.sendProgress(progress, fetchDestUpdate(playlistID, total))

	snapshot, err := readSnapshot(ctx, client, playlistID, e.opts.PageSize)
	if err != nil {
		return fmt.Errorf("failed to read destination playlist: %w", err)
	}

	result.SnapshotID = snapshot.SnapshotID
	refs := deleteRefs(snapshot.Items)
	result.TotalDeleteChunks = ChunkCount(len(refs), min(e.opts.DeleteChunkSize, MaxDeleteChunk))

	deleted, err := batcher.DeleteChunked(ctx, playlistID, refs, e.opts.DeleteChunkSize)
	if deleted != nil {
		result.DeleteChunks = deleted.Completed
		result.TotalDeleteChunks = deleted.Total
		if id := deleted.SnapshotID(); id != "" {
			result.SnapshotID = id
		}
	}
	return err
}

// readSnapshot collects the mutation identities of every item in a playlist, along with
// the snapshot id the playlist had before the read.
func readSnapshot(ctx context.Context, client *auth.Client, playlistID string, pageSize int) (*models.PlaylistSnapshot, error) {
	meta, err := client.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	tracks, err := CollectAll(ctx, tracksOf(client, playlistID), pageSize)
	if err != nil {
		return nil, err
	}

	snapshot := &models.PlaylistSnapshot{
		PlaylistID: playlistID,
		SnapshotID: meta.SnapshotID,
		Items:      make([]models.TrackRef, 0, len(tracks)),
		Total:      len(tracks),
	}
	for _, t := range tracks {
		snapshot.Items = append(snapshot.Items, t.Ref())
	}
	return snapshot, nil
}

// deleteRefs keeps one uri-only ref per stored uri, in first-occurrence order. A uri-only
// delete removes every occurrence, so repeats would only enlarge the batch. Unavailable
// items have no uri and are skipped.
func deleteRefs(items []models.TrackRef) []models.TrackRef {
	seen := make(map[string]bool, len(items))
	refs := make([]models.TrackRef, 0, len(items))
	for _, item := range items {
		uri := item.DeleteURI()
		if uri == "" || seen[uri] {
			continue
		}
		seen[uri] = true
		refs = append(refs, models.TrackRef{URI: uri})
	}
	return refs
}

// sourceURIs keeps the tracks that can be added to another playlist.
func sourceURIs(tracks []models.Track) []string {
	uris := make([]string, 0, len(tracks))
	for _, t := range tracks {
		if t.URI == "" || t.IsLocal {
			continue
		}
		uris = append(uris, t.URI)
	}
	return uris
}

func (e *Engine) record(ctx context.Context, req models.SyncRequest, result *models.SyncResult, runErr error, started time.Time) {
	if e.recorder == nil {
		return
	}

	run := models.NewSyncRun(req, result, runErr, started, e.now())
	if err := e.recorder.RecordRun(context.WithoutCancel(ctx), run); err != nil {
		e.logger.Warn("failed to record sync run", "err", err)
	}
}
