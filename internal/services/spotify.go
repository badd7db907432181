// Spotify Web API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/shared"
)

const spotifyBaseURL = "https://api.spotify.com/v1"

// MaxPageSize is the largest limit accepted by the paginated endpoints used here.
const MaxPageSize = 50

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// linkedFrom is present when a market was requested and the track was relinked.
type linkedFrom struct {
	ID  string `json:"id"`
	URI string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []SpotifyArtist `json:"artists"`
	Album       SpotifyAlbum    `json:"album"`
	DurationMS  int             `json:"duration_ms"`
	ExternalIDs externalIDs     `json:"external_ids"`
	IsLocal     bool            `json:"is_local"`
	LinkedFrom  *linkedFrom     `json:"linked_from"`
	URI         string          `json:"uri"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

type playlistTracksRef struct {
	Total int `json:"total"`
}

// SpotifyPlaylist represents a playlist object. The list endpoints return the same shape
// without track items, which are never requested here.
type SpotifyPlaylist struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Owner       Owner             `json:"owner"`
	Public      bool              `json:"public"`
	SnapshotID  string            `json:"snapshot_id"`
	Tracks      playlistTracksRef `json:"tracks"`
	URI         string            `json:"uri"`
}

// SpotifyPlaylistTrack represents an item within a playlist. Track is null for items
// that are no longer available.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifyPaginatedTracks represents a page of playlist items.
type SpotifyPaginatedTracks struct {
	Items  []SpotifyPlaylistTrack `json:"items"`
	Total  int                    `json:"total"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
	Next   *string                `json:"next"`
}

// SpotifyPaginatedPlaylists represents a page of playlists.
type SpotifyPaginatedPlaylists struct {
	Items  []SpotifyPlaylist `json:"items"`
	Total  int               `json:"total"`
	Limit  int               `json:"limit"`
	Offset int               `json:"offset"`
	Next   *string           `json:"next"`
}

type snapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type addItemsRequest struct {
	URIs     []string `json:"uris"`
	Position int      `json:"position"`
}

type removeItem struct {
	URI       string `json:"uri"`
	Positions []int  `json:"positions,omitempty"`
}

type createPlaylistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Public      bool   `json:"public"`
}

type removeItemsRequest struct {
	Tracks     []removeItem `json:"tracks"`
	SnapshotID string       `json:"snapshot_id,omitempty"`
}

// SpotifyService implements [Provider] for the Spotify Web API.
type SpotifyService struct {
	baseURL    string
	httpClient *http.Client
	market     string
}

// NewSpotifyService creates a Spotify Web API client. An empty baseURL targets the public
// API and a nil client uses [http.DefaultClient]. market enables track relinking on reads.
func NewSpotifyService(baseURL string, client *http.Client, market string) *SpotifyService {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyService{
		baseURL:    baseURL,
		httpClient: client,
		market:     market,
	}
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// doRequest performs an authenticated request. body is encoded as JSON when non-nil and
// result is decoded from a 2xx response when non-nil.
func (s *SpotifyService) doRequest(ctx context.Context, cred *models.Credential, method, endpoint string, query url.Values, body, result any) error {
	if cred == nil || cred.AccessToken == "" {
		return shared.ErrNotAuthenticated
	}

	apiURL := s.baseURL + endpoint
	if len(query) > 0 {
		apiURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", cred.Authorization())
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp, data)
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func pageQuery(offset, limit int) url.Values {
	if limit <= 0 || limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return url.Values{
		"offset": {strconv.Itoa(offset)},
		"limit":  {strconv.Itoa(limit)},
	}
}

// PlaylistTracks retrieves one page of playlist items. Unavailable items are returned as
// zero tracks so the page length always matches what the API counted.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, cred *models.Credential, playlistID string, offset, limit int) (*models.Page[models.Track], error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}

	query := pageQuery(offset, limit)
	query.Set("additional_types", "track")
	if s.market != "" {
		query.Set("market", s.market)
	}

	var response SpotifyPaginatedTracks
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, cred, http.MethodGet, endpoint, query, nil, &response); err != nil {
		return nil, err
	}

	page := &models.Page[models.Track]{
		Items: make([]models.Track, 0, len(response.Items)),
		Total: response.Total,
	}
	for _, item := range response.Items {
		page.Items = append(page.Items, convertTrack(item.Track))
	}
	return page, nil
}

// UserPlaylists retrieves one page of a user's playlists.
func (s *SpotifyService) UserPlaylists(ctx context.Context, cred *models.Credential, userID string, offset, limit int) (*models.Page[models.Playlist], error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", shared.ErrBadRequest)
	}

	var response SpotifyPaginatedPlaylists
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, cred, http.MethodGet, endpoint, pageQuery(offset, limit), nil, &response); err != nil {
		return nil, err
	}

	page := &models.Page[models.Playlist]{
		Items: make([]models.Playlist, 0, len(response.Items)),
		Total: response.Total,
	}
	for _, sp := range response.Items {
		page.Items = append(page.Items, convertPlaylist(sp))
	}
	return page, nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context, cred *models.Credential) (*models.User, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, cred, http.MethodGet, "/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &models.User{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		Country:     user.Country,
		Product:     user.Product,
	}, nil
}

// Playlist retrieves playlist metadata by ID.
func (s *SpotifyService) Playlist(ctx context.Context, cred *models.Credential, playlistID string) (*models.Playlist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id is required", shared.ErrBadRequest)
	}

	query := url.Values{"fields": {"id,name,description,owner(id,display_name),public,snapshot_id,tracks(total),uri"}}
	if s.market != "" {
		query.Set("market", s.market)
	}

	var sp SpotifyPlaylist
	endpoint := fmt.Sprintf("/playlists/%s", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, cred, http.MethodGet, endpoint, query, nil, &sp); err != nil {
		return nil, err
	}

	playlist := convertPlaylist(sp)
	return &playlist, nil
}

// AddItems inserts uris at position and returns the new snapshot id.
func (s *SpotifyService) AddItems(ctx context.Context, cred *models.Credential, playlistID string, uris []string, position int) (string, error) {
	if playlistID == "" || len(uris) == 0 {
		return "", fmt.Errorf("%w: playlist id and uris are required", shared.ErrBadRequest)
	}

	var response snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := addItemsRequest{URIs: uris, Position: position}
	if err := s.doRequest(ctx, cred, http.MethodPost, endpoint, nil, body, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// RemoveItems removes refs and returns the new snapshot id. Refs without positions remove
// every occurrence of their uri.
func (s *SpotifyService) RemoveItems(ctx context.Context, cred *models.Credential, playlistID string, refs []models.TrackRef, snapshotID string) (string, error) {
	if playlistID == "" || len(refs) == 0 {
		return "", fmt.Errorf("%w: playlist id and tracks are required", shared.ErrBadRequest)
	}

	body := removeItemsRequest{Tracks: make([]removeItem, len(refs)), SnapshotID: snapshotID}
	for i, ref := range refs {
		body.Tracks[i] = removeItem{URI: ref.DeleteURI(), Positions: ref.Positions}
	}

	var response snapshotResponse
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	if err := s.doRequest(ctx, cred, http.MethodDelete, endpoint, nil, body, &response); err != nil {
		return "", err
	}
	return response.SnapshotID, nil
}

// CreatePlaylist creates an empty playlist for userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, cred *models.Credential, userID, name, description string, public bool) (*models.Playlist, error) {
	if userID == "" || name == "" {
		return nil, fmt.Errorf("%w: user id and playlist name are required", shared.ErrBadRequest)
	}

	var sp SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	body := createPlaylistRequest{Name: name, Description: description, Public: public}
	if err := s.doRequest(ctx, cred, http.MethodPost, endpoint, nil, body, &sp); err != nil {
		return nil, err
	}

	playlist := convertPlaylist(sp)
	return &playlist, nil
}

func convertTrack(st *SpotifyTrack) models.Track {
	if st == nil {
		return models.Track{}
	}

	track := models.Track{
		ID:         st.ID,
		URI:        st.URI,
		Name:       st.Name,
		Album:      st.Album.Name,
		DurationMS: st.DurationMS,
		ISRC:       st.ExternalIDs.ISRC,
		IsLocal:    st.IsLocal,
	}
	if st.LinkedFrom != nil && st.LinkedFrom.URI != "" && st.LinkedFrom.URI != st.URI {
		track.LinkedURI = st.LinkedFrom.URI
	}
	for _, artist := range st.Artists {
		track.Artists = append(track.Artists, artist.Name)
	}
	return track
}

func convertPlaylist(sp SpotifyPlaylist) models.Playlist {
	return models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		OwnerID:     sp.Owner.ID,
		Public:      sp.Public,
		SnapshotID:  sp.SnapshotID,
		TrackCount:  sp.Tracks.Total,
	}
}
