package testing

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/desertthunder/plsync/internal/models"
	"github.com/desertthunder/plsync/internal/services"
)

// ExpiredChallenge is the WWW-Authenticate value Spotify sends for an expired token.
const ExpiredChallenge = `Bearer realm="spotify", error="invalid_token", error_description="The access token expired"`

// ExpiredError returns the error the Web API adapter produces for an expired token.
func ExpiredError() error {
	h := http.Header{}
	h.Set("WWW-Authenticate", ExpiredChallenge)
	return &services.APIError{StatusCode: http.StatusUnauthorized, Header: h, Message: "The access token expired"}
}

// Call records one provider call made against [FakeProvider].
type Call struct {
	Method      string
	PlaylistID  string
	Name        string // playlist name sent with CreatePlaylist
	Offset      int
	Limit       int
	URIs        []string
	Position    int
	Refs        []models.TrackRef
	SnapshotID  string // precondition sent with RemoveItems
	AccessToken string
	Result      string // snapshot id returned by a mutation
	Err         error
}

type fakePlaylist struct {
	meta    models.Playlist
	tracks  []models.Track
	version int
}

// FakeProvider is an in-memory [services.Provider]. Playlists behave like Spotify's:
// inserts are positional, uri-only removal drops every occurrence, and every mutation
// returns a new snapshot id that a following remove must present.
type FakeProvider struct {
	// User is returned by CurrentUser.
	User models.User
	// ValidToken, when set, makes every call with a different access token fail with [ExpiredError].
	ValidToken string
	// PageCap limits the items of each page below the requested limit.
	PageCap int
	// FailOn is consulted before each call; a non-nil error is returned instead of running it.
	FailOn func(call Call) error
	// TotalOverride replaces the total reported for a playlist's pages.
	TotalOverride map[string]int

	mu        sync.Mutex
	playlists map[string]*fakePlaylist
	order     []string
	calls     []Call

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

var _ services.Provider = (*FakeProvider)(nil)

func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		User:      models.User{ID: "user-1", DisplayName: "Test User"},
		playlists: make(map[string]*fakePlaylist),
	}
}

// AddPlaylist creates or replaces a playlist holding uris.
func (f *FakeProvider) AddPlaylist(id string, uris ...string) {
	tracks := make([]models.Track, len(uris))
	for i, uri := range uris {
		tracks[i] = models.Track{ID: uri, URI: uri, Name: uri}
	}
	f.SetTracks(id, tracks)
}

// SetTracks creates or replaces a playlist holding tracks.
func (f *FakeProvider) SetTracks(id string, tracks []models.Track) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.playlists[id]; !ok {
		f.order = append(f.order, id)
	}
	f.playlists[id] = &fakePlaylist{
		meta:   models.Playlist{ID: id, Name: "Playlist " + id, OwnerID: f.User.ID},
		tracks: slices.Clone(tracks),
	}
}

// URIs returns the playlist's stored uris in order.
func (f *FakeProvider) URIs(id string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[id]
	if !ok {
		return nil
	}
	uris := make([]string, len(p.tracks))
	for i, t := range p.tracks {
		uris[i] = t.URI
	}
	return uris
}

// Snapshot returns the playlist's current snapshot id.
func (f *FakeProvider) Snapshot(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.playlists[id]; ok {
		return p.snapshot()
	}
	return ""
}

// Calls returns every recorded call, or only those of the given methods.
func (f *FakeProvider) Calls(methods ...string) []Call {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []Call
	for _, c := range f.calls {
		if len(methods) == 0 || slices.Contains(methods, c.Method) {
			out = append(out, c)
		}
	}
	return out
}

// MaxConcurrent returns the highest number of calls that were in flight at once.
func (f *FakeProvider) MaxConcurrent() int {
	return int(f.maxInFlight.Load())
}

func (p *fakePlaylist) snapshot() string {
	return fmt.Sprintf("%s-snap-%d", p.meta.ID, p.version)
}

// storedURI is the identity the playlist holds. A relinked track is stored under its
// original uri and read back under the market's uri.
func storedURI(t models.Track) string {
	if t.LinkedURI != "" {
		return t.LinkedURI
	}
	return t.URI
}

func badRequest(msg string) error {
	return &services.APIError{StatusCode: http.StatusBadRequest, Message: msg}
}

func notFound() error {
	return &services.APIError{StatusCode: http.StatusNotFound, Message: "Not found."}
}

// begin records call and decides whether it may run. It must be paired with end.
func (f *FakeProvider) begin(call *Call, cred *models.Credential) error {
	n := f.inFlight.Add(1)
	for {
		m := f.maxInFlight.Load()
		if n <= m || f.maxInFlight.CompareAndSwap(m, n) {
			break
		}
	}

	if cred != nil {
		call.AccessToken = cred.AccessToken
	}

	switch {
	case cred == nil || cred.AccessToken == "":
		call.Err = &services.APIError{StatusCode: http.StatusUnauthorized, Message: "No token provided"}
	case f.ValidToken != "" && cred.AccessToken != f.ValidToken:
		call.Err = ExpiredError()
	case f.FailOn != nil:
		call.Err = f.FailOn(*call)
	}
	return call.Err
}

func (f *FakeProvider) end(call Call) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
	f.inFlight.Add(-1)
}

func (f *FakeProvider) PlaylistTracks(_ context.Context, cred *models.Credential, playlistID string, offset, limit int) (*models.Page[models.Track], error) {
	call := Call{Method: "PlaylistTracks", PlaylistID: playlistID, Offset: offset, Limit: limit}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		call.Err = notFound()
		return nil, call.Err
	}

	if f.PageCap > 0 && limit > f.PageCap {
		limit = f.PageCap
	}
	page := &models.Page[models.Track]{Items: []models.Track{}, Total: len(p.tracks)}
	if total, ok := f.TotalOverride[playlistID]; ok {
		page.Total = total
	}
	if offset < len(p.tracks) {
		end := min(offset+limit, len(p.tracks))
		page.Items = slices.Clone(p.tracks[offset:end])
	}
	return page, nil
}

func (f *FakeProvider) UserPlaylists(_ context.Context, cred *models.Credential, userID string, offset, limit int) (*models.Page[models.Playlist], error) {
	call := Call{Method: "UserPlaylists", Offset: offset, Limit: limit}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.PageCap > 0 && limit > f.PageCap {
		limit = f.PageCap
	}
	page := &models.Page[models.Playlist]{Items: []models.Playlist{}, Total: len(f.order)}
	for i := offset; i < len(f.order) && i < offset+limit; i++ {
		page.Items = append(page.Items, f.playlists[f.order[i]].metadata())
	}
	return page, nil
}

func (p *fakePlaylist) metadata() models.Playlist {
	meta := p.meta
	meta.SnapshotID = p.snapshot()
	meta.TrackCount = len(p.tracks)
	return meta
}

func (f *FakeProvider) CurrentUser(_ context.Context, cred *models.Credential) (*models.User, error) {
	call := Call{Method: "CurrentUser"}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return nil, err
	}

	user := f.User
	return &user, nil
}

func (f *FakeProvider) Playlist(_ context.Context, cred *models.Credential, playlistID string) (*models.Playlist, error) {
	call := Call{Method: "Playlist", PlaylistID: playlistID}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	if !ok {
		call.Err = notFound()
		return nil, call.Err
	}
	meta := p.metadata()
	return &meta, nil
}

func (f *FakeProvider) AddItems(_ context.Context, cred *models.Credential, playlistID string, uris []string, position int) (string, error) {
	call := Call{Method: "AddItems", PlaylistID: playlistID, URIs: slices.Clone(uris), Position: position}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	switch {
	case !ok:
		call.Err = notFound()
	case len(uris) == 0 || len(uris) > 100:
		call.Err = badRequest("invalid number of uris")
	case position < 0 || position > len(p.tracks):
		call.Err = badRequest("index out of bounds")
	}
	if call.Err != nil {
		return "", call.Err
	}

	added := make([]models.Track, len(uris))
	for i, uri := range uris {
		added[i] = models.Track{ID: uri, URI: uri, Name: uri}
	}
	p.tracks = slices.Insert(p.tracks, position, added...)
	p.version++

	call.Result = p.snapshot()
	return call.Result, nil
}

func (f *FakeProvider) RemoveItems(_ context.Context, cred *models.Credential, playlistID string, refs []models.TrackRef, snapshotID string) (string, error) {
	call := Call{Method: "RemoveItems", PlaylistID: playlistID, Refs: slices.Clone(refs), SnapshotID: snapshotID}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return "", err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	p, ok := f.playlists[playlistID]
	switch {
	case !ok:
		call.Err = notFound()
	case len(refs) == 0 || len(refs) > 100:
		call.Err = badRequest("invalid number of tracks")
	case snapshotID != "" && snapshotID != p.snapshot():
		call.Err = badRequest("snapshot id does not match")
	}
	if call.Err != nil {
		return "", call.Err
	}

	drop := make([]bool, len(p.tracks))
	for _, ref := range refs {
		uri := ref.DeleteURI()
		if len(ref.Positions) == 0 {
			for i, t := range p.tracks {
				if storedURI(t) == uri {
					drop[i] = true
				}
			}
			continue
		}
		for _, pos := range ref.Positions {
			if pos < 0 || pos >= len(p.tracks) || storedURI(p.tracks[pos]) != uri {
				call.Err = badRequest(fmt.Sprintf("no %s at position %d", uri, pos))
				return "", call.Err
			}
			drop[pos] = true
		}
	}

	kept := p.tracks[:0:0]
	for i, t := range p.tracks {
		if !drop[i] {
			kept = append(kept, t)
		}
	}
	p.tracks = kept
	p.version++

	call.Result = p.snapshot()
	return call.Result, nil
}

// CreatePlaylist appends an empty playlist with id "created-N" owned by userID.
func (f *FakeProvider) CreatePlaylist(_ context.Context, cred *models.Credential, userID, name, description string, public bool) (*models.Playlist, error) {
	call := Call{Method: "CreatePlaylist", Name: name}
	defer func() { f.end(call) }()
	if err := f.begin(&call, cred); err != nil {
		return nil, err
	}
	if userID == "" || name == "" {
		call.Err = badRequest("missing required field")
		return nil, call.Err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	id := fmt.Sprintf("created-%d", len(f.order)+1)
	p := &fakePlaylist{meta: models.Playlist{
		ID: id, Name: name, Description: description, OwnerID: userID, Public: public,
	}}
	f.playlists[id] = p
	f.order = append(f.order, id)

	call.PlaylistID = id
	call.Result = p.snapshot()
	meta := p.metadata()
	return &meta, nil
}

// FakeRefresher is a scripted refresh endpoint.
type FakeRefresher struct {
	// Result is returned on success; its AccessToken becomes the provider's valid token when Provider is set.
	Result *models.Credential
	Err    error
	// Provider, when set, accepts Result.AccessToken after a successful refresh.
	Provider *FakeProvider

	mu     sync.Mutex
	tokens []string
}

func (r *FakeRefresher) Refresh(_ context.Context, refreshToken string) (*models.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tokens = append(r.tokens, refreshToken)
	if r.Err != nil {
		return nil, r.Err
	}

	result := *r.Result
	if r.Provider != nil {
		r.Provider.ValidToken = result.AccessToken
	}
	return &result, nil
}

// Calls returns the refresh tokens presented, in order.
func (r *FakeRefresher) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.tokens)
}
