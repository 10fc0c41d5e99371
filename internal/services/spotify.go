package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/shared"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// Spotify accepts at most 100 items per add request.
	maxTracksPerRequest = 100
	pageSize            = 50

	// PlaylistURLPrefix is joined with a playlist ID to form its public link.
	PlaylistURLPrefix = "https://open.spotify.com/playlist/"
)

// Scopes requested during authorization.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadPlaybackState,
	spotifyauth.ScopeUserModifyPlaybackState,
}

// SpotifyService implements [MusicService] and [Authenticator] on the Spotify Web API.
//
// Each call builds a [spotify.Client] around the caller's access token. Calls share one rate
// limiter and are bounded by the configured timeout. Nothing is retried.
type SpotifyService struct {
	config      *oauth2.Config
	apiURL      string
	transport   http.RoundTripper
	timeout     time.Duration
	searchLimit int
	limiter     *rate.Limiter
	users       *lru.Cache[string, string]
	logger      *log.Logger
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithTransport sets the round tripper used for API and token requests.
func WithTransport(rt http.RoundTripper) SpotifyOption {
	return func(s *SpotifyService) { s.transport = rt }
}

// NewSpotifyService creates a Spotify client from the credentials and remote settings.
func NewSpotifyService(creds shared.SpotifyConfig, remote shared.RemoteConfig, logger *log.Logger, opts ...SpotifyOption) (*SpotifyService, error) {
	if !creds.HasCredentials() {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	authURL, tokenURL, apiURL := creds.AuthURL, creds.TokenURL, creds.APIURL
	if authURL == "" {
		authURL = spotifyauth.AuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyauth.TokenURL
	}
	if apiURL == "" {
		apiURL = "https://api.spotify.com/v1/"
	}
	if !strings.HasSuffix(apiURL, "/") {
		apiURL += "/"
	}

	cacheSize := max(remote.UserCacheSize, 1)
	users, err := lru.New[string, string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create user cache: %w", err)
	}

	limit := rate.Inf
	if remote.RequestsPerSecond > 0 {
		limit = rate.Limit(remote.RequestsPerSecond)
	}

	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:      apiURL,
		timeout:     remote.Timeout.Duration,
		searchLimit: remote.SearchLimit,
		limiter:     rate.NewLimiter(limit, 1),
		users:       users,
		logger:      shared.WithLogger(logger, "service", "spotify"),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// AuthURL returns the authorization URL carrying state.
func (s *SpotifyService) AuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode trades an authorization code for tokens.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (TokenGrant, error) {
	if err := s.wait(ctx); err != nil {
		return TokenGrant{}, err
	}

	tok, err := s.config.Exchange(s.tokenContext(ctx), code)
	if err != nil {
		return TokenGrant{}, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	return s.grant(tok, ErrTokenExchange)
}

// RefreshAccessToken requests a new access token. The returned grant keeps refreshToken unless
// the server issued a new one.
func (s *SpotifyService) RefreshAccessToken(ctx context.Context, refreshToken string) (TokenGrant, error) {
	if err := s.wait(ctx); err != nil {
		return TokenGrant{}, err
	}

	src := s.config.TokenSource(s.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return TokenGrant{}, fmt.Errorf("%w: %w", ErrTokenRefresh, err)
	}

	grant, err := s.grant(tok, ErrTokenRefresh)
	if err != nil {
		return TokenGrant{}, err
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return grant, nil
}

// SearchTracks searches tracks matching query.
func (s *SpotifyService) SearchTracks(ctx context.Context, token, query string) ([]TrackRef, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}

	res, err := s.client(token).Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(s.searchLimit))
	if err != nil {
		return nil, apiError(ErrSearch, err)
	}

	refs := []TrackRef{}
	if res.Tracks != nil {
		for _, t := range res.Tracks.Tracks {
			refs = append(refs, trackRef(t.SimpleTrack))
		}
	}

	s.logger.Debug("search complete", "query", query, "results", len(refs))
	return refs, nil
}

// CurrentUserID returns the Spotify user ID for token. Results are cached per token.
func (s *SpotifyService) CurrentUserID(ctx context.Context, token string) (string, error) {
	if id, ok := s.users.Get(token); ok {
		return id, nil
	}

	if err := s.wait(ctx); err != nil {
		return "", err
	}

	user, err := s.client(token).CurrentUser(ctx)
	if err != nil {
		return "", apiError(ErrCurrentUser, err)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: %w: empty user id", ErrCurrentUser, shared.ErrMalformedResponse)
	}

	s.users.Add(token, user.ID)
	return user.ID, nil
}

// CreatePlaylist creates a playlist for userID and returns its ID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (string, error) {
	if err := s.wait(ctx); err != nil {
		return "", err
	}

	pl, err := s.client(token).CreatePlaylistForUser(ctx, userID, name, description, public, false)
	if err != nil {
		return "", apiError(ErrCreatePlaylist, err)
	}
	if pl.ID == "" {
		return "", fmt.Errorf("%w: %w: empty playlist id", ErrCreatePlaylist, shared.ErrMalformedResponse)
	}

	s.logger.Debug("playlist created", "id", pl.ID, "name", name)
	return string(pl.ID), nil
}

// AddTracksToPlaylist adds refs in batches of 100.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, token, playlistID string, refs []TrackRef) error {
	if len(refs) == 0 {
		return nil
	}

	ids := make([]spotify.ID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, spotify.ID(r.ID))
	}

	client := s.client(token)
	for start := 0; start < len(ids); start += maxTracksPerRequest {
		end := min(start+maxTracksPerRequest, len(ids))

		if err := s.wait(ctx); err != nil {
			return err
		}
		if _, err := client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids[start:end]...); err != nil {
			return apiError(ErrAddTracks, err)
		}
	}

	s.logger.Debug("tracks added", "playlist", playlistID, "count", len(ids))
	return nil
}

// PlaylistTracks returns every track of playlistID. Episodes and removed items are skipped.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, token, playlistID string) ([]TrackRef, error) {
	client := s.client(token)
	refs := []TrackRef{}

	for offset := 0; ; offset += pageSize {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		page, err := client.GetPlaylistItems(ctx, spotify.ID(playlistID), spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, apiError(ErrPlaylistItems, err)
		}

		for _, item := range page.Items {
			if item.Track.Track != nil {
				refs = append(refs, trackRef(item.Track.Track.SimpleTrack))
			}
		}

		if len(page.Items) < pageSize {
			break
		}
	}

	return refs, nil
}

// UserPlaylists returns every playlist of the user owning token.
func (s *SpotifyService) UserPlaylists(ctx context.Context, token string) ([]Playlist, error) {
	client := s.client(token)
	playlists := []Playlist{}

	for offset := 0; ; offset += pageSize {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}

		page, err := client.CurrentUsersPlaylists(ctx, spotify.Limit(pageSize), spotify.Offset(offset))
		if err != nil {
			return nil, apiError(ErrListPlaylists, err)
		}

		for _, p := range page.Playlists {
			playlists = append(playlists, Playlist{
				ID:         string(p.ID),
				Name:       p.Name,
				URL:        PlaylistURL(string(p.ID)),
				TrackCount: int(p.Tracks.Total),
				Public:     p.IsPublic,
			})
		}

		if len(page.Playlists) < pageSize {
			break
		}
	}

	return playlists, nil
}

// PlayTracks starts playback of uris on the active device.
func (s *SpotifyService) PlayTracks(ctx context.Context, token string, uris []string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}

	opts := &spotify.PlayOptions{URIs: make([]spotify.URI, len(uris))}
	for i, u := range uris {
		opts.URIs[i] = spotify.URI(u)
	}

	if err := s.client(token).PlayOpt(ctx, opts); err != nil {
		if isNoActiveDevice(err) {
			return fmt.Errorf("%w: start playback on any device and try again", shared.ErrNoActiveDevice)
		}
		return apiError(ErrPlayback, err)
	}

	return nil
}

// PlaylistURL returns the public link of a playlist.
func PlaylistURL(id string) string {
	return PlaylistURLPrefix + id
}

// PlaylistID accepts a playlist ID, a spotify:playlist: URI or an open.spotify.com link.
func PlaylistID(ref string) string {
	ref = strings.TrimSpace(ref)
	if rest, ok := strings.CutPrefix(ref, "spotify:playlist:"); ok {
		return rest
	}
	if i := strings.Index(ref, "/playlist/"); i >= 0 {
		id := ref[i+len("/playlist/"):]
		if j := strings.IndexAny(id, "?#/"); j >= 0 {
			id = id[:j]
		}
		return id
	}
	return ref
}

func (s *SpotifyService) client(token string) *spotify.Client {
	hc := &http.Client{
		Timeout: s.timeout,
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
			Base:   s.transport,
		},
	}
	return spotify.New(hc, spotify.WithBaseURL(s.apiURL))
}

func (s *SpotifyService) tokenContext(ctx context.Context) context.Context {
	hc := &http.Client{Timeout: s.timeout, Transport: s.transport}
	return context.WithValue(ctx, oauth2.HTTPClient, hc)
}

func (s *SpotifyService) wait(ctx context.Context) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

func (s *SpotifyService) grant(tok *oauth2.Token, sentinel error) (TokenGrant, error) {
	expiresIn := tok.ExpiresIn
	if expiresIn == 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}

	g := TokenGrant{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken, ExpiresIn: expiresIn}
	if err := g.Validate(); err != nil {
		return TokenGrant{}, fmt.Errorf("%w: %w", sentinel, err)
	}
	return g, nil
}

func trackRef(t spotify.SimpleTrack) TrackRef {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}
	return TrackRef{
		ID:     string(t.ID),
		URI:    string(t.URI),
		Title:  t.Name,
		Artist: strings.Join(artists, ", "),
	}
}

// remoteError extracts the API error body, which the client returns by value.
func remoteError(err error) (spotify.Error, bool) {
	var se spotify.Error
	if errors.As(err, &se) {
		return se, true
	}
	var sp *spotify.Error
	if errors.As(err, &sp) && sp != nil {
		return *sp, true
	}
	return spotify.Error{}, false
}

func apiError(sentinel, err error) error {
	if se, ok := remoteError(err); ok && se.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w: %w", sentinel, shared.ErrUnauthorized, err)
	}
	return fmt.Errorf("%w: %w", sentinel, err)
}

func isNoActiveDevice(err error) bool {
	se, ok := remoteError(err)
	if !ok || se.Status != http.StatusNotFound {
		return false
	}
	msg := strings.ToLower(se.Message)
	return strings.Contains(msg, "no active device") || strings.Contains(msg, "no_active_device")
}
