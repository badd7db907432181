package services

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// Scopes requested on login. Both modify scopes are needed to mutate public and private playlists.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
}

// SpotifyAuth implements [TokenIssuer] against the Spotify accounts service.
type SpotifyAuth struct {
	config *oauth2.Config
	now    func() time.Time
}

// NewSpotifyAuth creates an OAuth2 client from client_id, client_secret and redirect_uri.
func NewSpotifyAuth(credentials map[string]string) (*SpotifyAuth, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyAuthURL,
			TokenURL:  spotifyTokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}

	return &SpotifyAuth{config: config, now: time.Now}, nil
}

// AuthURL returns the authorization URL for user login.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state)
}

// RedirectURL returns the configured callback URL.
func (a *SpotifyAuth) RedirectURL() string {
	return a.config.RedirectURL
}

// Exchange trades an authorization code for a new credential record.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*models.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code is required", shared.ErrBadRequest)
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %w", shared.ErrAuthFailed, err)
	}

	cred := a.credential(token)
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}
	return cred, nil
}

// Refresh runs the refresh_token grant. The returned record has an empty RefreshToken
// when the accounts service did not issue a new one.
func (a *SpotifyAuth) Refresh(ctx context.Context, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	token, err := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	cred := a.credential(token)
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}
	// the oauth2 package copies the old refresh token into responses that omit it
	if cred.RefreshToken == refreshToken {
		cred.RefreshToken = ""
	}
	return cred, nil
}

func (a *SpotifyAuth) credential(token *oauth2.Token) *models.Credential {
	now := a.now()

	expiresIn := token.ExpiresIn
	if expiresIn == 0 && !token.Expiry.IsZero() {
		expiresIn = int64(token.Expiry.Sub(now).Round(time.Second) / time.Second)
	}

	cred := &models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresIn:    expiresIn,
		IssuedAt:     now.Unix(),
	}
	if cred.TokenType == "" {
		cred.TokenType = models.DefaultTokenType
	}
	if scope, ok := token.Extra("scope").(string); ok {
		cred.Scope = scope
	}
	return cred
}
