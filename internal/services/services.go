// package services defines the provider contracts used by the sync engine
//
// Spotify Web API, Spotify accounts (OAuth2)
package services

import (
	"context"

	"github.com/desertthunder/plsync/internal/models"
)

// PlaylistReader issues the read calls of a music provider. Every call carries the
// credential explicitly so a caller can retry it with a refreshed one.
type PlaylistReader interface {
	// PlaylistTracks returns one offset/limit page of a playlist's items.
	PlaylistTracks(ctx context.Context, cred *models.Credential, playlistID string, offset, limit int) (*models.Page[models.Track], error)

	// UserPlaylists returns one offset/limit page of the playlists of userID.
	UserPlaylists(ctx context.Context, cred *models.Credential, userID string, offset, limit int) (*models.Page[models.Playlist], error)

	// CurrentUser returns the account that owns cred.
	CurrentUser(ctx context.Context, cred *models.Credential) (*models.User, error)

	// Playlist returns playlist metadata, including its current snapshot id.
	Playlist(ctx context.Context, cred *models.Credential, playlistID string) (*models.Playlist, error)
}

// PlaylistMutator issues the mutating calls. Item mutations return the playlist's new snapshot id.
type PlaylistMutator interface {
	// AddItems inserts uris at position.
	AddItems(ctx context.Context, cred *models.Credential, playlistID string, uris []string, position int) (string, error)

	// RemoveItems removes refs. An empty snapshotID sends no precondition.
	RemoveItems(ctx context.Context, cred *models.Credential, playlistID string, refs []models.TrackRef, snapshotID string) (string, error)

	// CreatePlaylist creates an empty playlist owned by userID.
	CreatePlaylist(ctx context.Context, cred *models.Credential, userID, name, description string, public bool) (*models.Playlist, error)
}

// Provider is the full provider surface needed by a sync.
type Provider interface {
	PlaylistReader
	PlaylistMutator
}

// TokenIssuer runs the OAuth2 authorization code flow and refreshes access tokens.
type TokenIssuer interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*models.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (*models.Credential, error)
}

var (
	_ Provider    = (*SpotifyService)(nil)
	_ TokenIssuer = (*SpotifyAuth)(nil)
)
