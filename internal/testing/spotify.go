package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/moodlist/internal/shared"
)

// Endpoint names accepted by [FakeSpotify.Fail] and [FakeSpotify.Calls].
const (
	EndpointToken     = "token"
	EndpointSearch    = "search"
	EndpointMe        = "me"
	EndpointCreate    = "create"
	EndpointAdd       = "add"
	EndpointItems     = "items"
	EndpointPlaylists = "playlists"
	EndpointPlay      = "play"
)

// FakeTrack is a search result served by [FakeSpotify].
type FakeTrack struct {
	ID     string
	Title  string
	Artist string
}

// URI returns the track's spotify:track: URI.
func (t FakeTrack) URI() string {
	return "spotify:track:" + t.ID
}

// FakePlaylist is a playlist created through [FakeSpotify].
type FakePlaylist struct {
	ID     string
	Owner  string
	Name   string
	Public bool
	URIs   []string
}

// FakeSpotify serves the subset of the Spotify accounts and Web API used by the service.
type FakeSpotify struct {
	*httptest.Server

	mu            sync.Mutex
	tracks        []FakeTrack
	userID        string
	expiresIn     int
	refreshToken  string
	rotateRefresh string
	noDevice      bool
	failures      map[string]int
	calls         map[string]int
	playlists     map[string]*FakePlaylist
	order         []string
	played        []string
	queries       []string
	issued        int
}

// NewFakeSpotify starts a fake server that is closed when the test ends.
func NewFakeSpotify(t *testing.T) *FakeSpotify {
	t.Helper()

	f := &FakeSpotify{
		userID:       "fake-user",
		expiresIn:    3600,
		refreshToken: "refresh-1",
		failures:     map[string]int{},
		calls:        map[string]int{},
		playlists:    map[string]*FakePlaylist{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/token", f.token)
	mux.HandleFunc("GET /v1/search", f.search)
	mux.HandleFunc("GET /v1/me", f.me)
	mux.HandleFunc("GET /v1/me/playlists", f.listPlaylists)
	mux.HandleFunc("PUT /v1/me/player/play", f.play)
	mux.HandleFunc("POST /v1/users/{user}/playlists", f.createPlaylist)
	mux.HandleFunc("POST /v1/playlists/{id}/tracks", f.addTracks)
	mux.HandleFunc("GET /v1/playlists/{id}/tracks", f.playlistItems)

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

// Config points Spotify credentials at the fake server.
func (f *FakeSpotify) Config() shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURI:  "http://localhost/callback",
		AuthURL:      f.URL + "/authorize",
		TokenURL:     f.URL + "/api/token",
		APIURL:       f.URL + "/v1/",
	}
}

// SetTracks sets the search results.
func (f *FakeSpotify) SetTracks(tracks ...FakeTrack) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks = tracks
}

// SetExpiresIn sets expires_in for issued tokens. Zero or negative values are served as-is.
func (f *FakeSpotify) SetExpiresIn(seconds int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expiresIn = seconds
}

// RotateRefreshToken makes refresh responses carry a new refresh token.
func (f *FakeSpotify) RotateRefreshToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotateRefresh = token
}

// SetNoActiveDevice makes playback fail with NO_ACTIVE_DEVICE.
func (f *FakeSpotify) SetNoActiveDevice(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noDevice = v
}

// Fail makes endpoint answer with status until cleared with status 0.
func (f *FakeSpotify) Fail(endpoint string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[endpoint] = status
}

// Calls returns how many requests endpoint received.
func (f *FakeSpotify) Calls(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[endpoint]
}

// Playlist returns a created playlist by ID.
func (f *FakeSpotify) Playlist(id string) (FakePlaylist, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.playlists[id]
	if !ok {
		return FakePlaylist{}, false
	}
	cp := *p
	cp.URIs = append([]string(nil), p.URIs...)
	return cp, true
}

// PlaylistCount returns how many playlists were created.
func (f *FakeSpotify) PlaylistCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.playlists)
}

// Played returns the URIs of the last playback request.
func (f *FakeSpotify) Played() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.played...)
}

// Queries returns the search expressions received so far.
func (f *FakeSpotify) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}

// enter counts the call and reports an injected failure status.
func (f *FakeSpotify) enter(endpoint string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[endpoint]++
	return f.failures[endpoint]
}

func (f *FakeSpotify) token(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointToken); status != 0 {
		writeJSON(w, status, map[string]string{"error": "server_error"})
		return
	}
	if err := r.ParseForm(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_request"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.issued++

	resp := map[string]any{
		"access_token": fmt.Sprintf("access-%d", f.issued),
		"token_type":   "Bearer",
		"expires_in":   f.expiresIn,
	}

	switch r.Form.Get("grant_type") {
	case "authorization_code":
		if r.Form.Get("code") == "bad-code" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		resp["refresh_token"] = f.refreshToken
	case "refresh_token":
		if r.Form.Get("refresh_token") == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid_grant"})
			return
		}
		if f.rotateRefresh != "" {
			resp["refresh_token"] = f.rotateRefresh
		}
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unsupported_grant_type"})
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (f *FakeSpotify) search(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointSearch); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	f.mu.Lock()
	tracks := f.tracks
	f.queries = append(f.queries, r.URL.Query().Get("q"))
	f.mu.Unlock()

	if limit > 0 && len(tracks) > limit {
		tracks = tracks[:limit]
	}

	items := make([]map[string]any, 0, len(tracks))
	for _, t := range tracks {
		items = append(items, trackJSON(t.ID, t.Title, t.Artist))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"tracks": map[string]any{"items": items, "total": len(items), "limit": limit, "offset": 0},
	})
}

func (f *FakeSpotify) me(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointMe); status != 0 {
		apiError(w, status, "injected failure")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": f.userID, "display_name": "Fake User"})
}

func (f *FakeSpotify) createPlaylist(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointCreate); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	var body struct {
		Name   string `json:"name"`
		Public bool   `json:"public"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	id := fmt.Sprintf("pl%d", len(f.playlists)+1)
	f.playlists[id] = &FakePlaylist{ID: id, Owner: r.PathValue("user"), Name: body.Name, Public: body.Public, URIs: []string{}}
	f.order = append(f.order, id)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":            id,
		"name":          body.Name,
		"public":        body.Public,
		"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/" + id},
	})
}

func (f *FakeSpotify) addTracks(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointAdd); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		apiError(w, http.StatusBadRequest, "invalid body")
		return
	}

	f.mu.Lock()
	p, ok := f.playlists[r.PathValue("id")]
	if ok {
		p.URIs = append(p.URIs, body.URIs...)
	}
	f.mu.Unlock()

	if !ok {
		apiError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"snapshot_id": "snapshot"})
}

func (f *FakeSpotify) playlistItems(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointItems); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	f.mu.Lock()
	p, ok := f.playlists[r.PathValue("id")]
	var uris []string
	if ok {
		uris = append(uris, p.URIs...)
	}
	f.mu.Unlock()

	if !ok {
		apiError(w, http.StatusNotFound, "playlist not found")
		return
	}

	offset, limit := pageParams(r, len(uris))
	items := []map[string]any{}
	for _, uri := range uris[offset:min(offset+limit, len(uris))] {
		id := strings.TrimPrefix(uri, "spotify:track:")
		items = append(items, map[string]any{"track": trackJSON(id, "Track "+id, "Artist")})
	}

	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(uris), "limit": limit, "offset": offset})
}

func (f *FakeSpotify) listPlaylists(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointPlaylists); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	f.mu.Lock()
	all := make([]map[string]any, 0, len(f.order))
	for _, id := range f.order {
		p := f.playlists[id]
		all = append(all, map[string]any{
			"id":     p.ID,
			"name":   p.Name,
			"public": p.Public,
			"tracks": map[string]any{"total": len(p.URIs)},
		})
	}
	f.mu.Unlock()

	offset, limit := pageParams(r, len(all))
	writeJSON(w, http.StatusOK, map[string]any{"items": all[offset:min(offset+limit, len(all))], "total": len(all)})
}

func (f *FakeSpotify) play(w http.ResponseWriter, r *http.Request) {
	if status := f.enter(EndpointPlay); status != 0 {
		apiError(w, status, "injected failure")
		return
	}

	f.mu.Lock()
	noDevice := f.noDevice
	f.mu.Unlock()

	if noDevice {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{
			"status":  http.StatusNotFound,
			"message": "Player command failed: No active device found",
			"reason":  "NO_ACTIVE_DEVICE",
		}})
		return
	}

	var body struct {
		URIs []string `json:"uris"`
	}
	json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	f.played = body.URIs
	f.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

func pageParams(r *http.Request, total int) (offset, limit int) {
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset = min(max(offset, 0), total)
	return offset, limit
}

func trackJSON(id, title, artist string) map[string]any {
	return map[string]any{
		"type":    "track",
		"id":      id,
		"name":    title,
		"uri":     "spotify:track:" + id,
		"artists": []map[string]string{{"name": artist}},
	}
}

func apiError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": map[string]any{"status": status, "message": message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
