package auth

import (
	"context"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// Client issues provider calls on behalf of one session, each through the gate. It keeps
// the latest refreshed credential for the calls that follow. A Client serves one request
// chain and is not safe for concurrent use.
type Client struct {
	gate      *Gate
	provider  services.Provider
	sessionID string
	cred      *models.Credential
}

// NewClient binds provider calls to sessionID, starting from cred.
func NewClient(gate *Gate, provider services.Provider, sessionID string, cred *models.Credential) *Client {
	return &Client{gate: gate, provider: provider, sessionID: sessionID, cred: cred}
}

// Bind loads the session's credential and returns a client for it.
func (g *Gate) Bind(ctx context.Context, provider services.Provider, sessionID string) (*Client, error) {
	cred, err := g.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return NewClient(g, provider, sessionID, cred), nil
}

// SessionID returns the bound session.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Credential returns the credential the next call will use.
func (c *Client) Credential() *models.Credential {
	return c.cred
}

func (c *Client) do(ctx context.Context, op Operation) error {
	cred, err := c.gate.Execute(ctx, c.sessionID, c.cred, op)
	if cred != nil {
		c.cred = cred
	}
	return err
}

func (c *Client) PlaylistTracks(ctx context.Context, playlistID string, offset, limit int) (*models.Page[models.Track], error) {
	var page *models.Page[models.Track]
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		page, err = c.provider.PlaylistTracks(ctx, cred, playlistID, offset, limit)
		return err
	})
	return page, err
}

func (c *Client) UserPlaylists(ctx context.Context, userID string, offset, limit int) (*models.Page[models.Playlist], error) {
	var page *models.Page[models.Playlist]
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		page, err = c.provider.UserPlaylists(ctx, cred, userID, offset, limit)
		return err
	})
	return page, err
}

func (c *Client) CurrentUser(ctx context.Context) (*models.User, error) {
	var user *models.User
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		user, err = c.provider.CurrentUser(ctx, cred)
		return err
	})
	return user, err
}

func (c *Client) Playlist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	var playlist *models.Playlist
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		playlist, err = c.provider.Playlist(ctx, cred, playlistID)
		return err
	})
	return playlist, err
}

func (c *Client) AddItems(ctx context.Context, playlistID string, uris []string, position int) (string, error) {
	var snapshot string
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		snapshot, err = c.provider.AddItems(ctx, cred, playlistID, uris, position)
		return err
	})
	return snapshot, err
}

func (c *Client) RemoveItems(ctx context.Context, playlistID string, refs []models.TrackRef, snapshotID string) (string, error) {
	var snapshot string
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		snapshot, err = c.provider.RemoveItems(ctx, cred, playlistID, refs, snapshotID)
		return err
	})
	return snapshot, err
}

func (c *Client) CreatePlaylist(ctx context.Context, userID, name, description string, public bool) (*models.Playlist, error) {
	var playlist *models.Playlist
	err := c.do(ctx, func(ctx context.Context, cred *models.Credential) (err error) {
		playlist, err = c.provider.CreatePlaylist(ctx, cred, userID, name, description, public)
		return err
	})
	return playlist, err
}
