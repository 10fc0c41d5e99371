// Package services defines the remote music service used to mirror playlists, with a Spotify implementation.
package services

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodlist/internal/shared"
)

var (
	ErrSearch         = fmt.Errorf("%w: search", shared.ErrAPIRequest)
	ErrCreatePlaylist = fmt.Errorf("%w: create playlist", shared.ErrAPIRequest)
	ErrAddTracks      = fmt.Errorf("%w: add tracks", shared.ErrAPIRequest)
	ErrCurrentUser    = fmt.Errorf("%w: current user", shared.ErrAPIRequest)
	ErrPlaylistItems  = fmt.Errorf("%w: playlist items", shared.ErrAPIRequest)
	ErrListPlaylists  = fmt.Errorf("%w: list playlists", shared.ErrAPIRequest)
	ErrPlayback       = fmt.Errorf("%w: start playback", shared.ErrAPIRequest)
	ErrTokenExchange  = fmt.Errorf("%w: token exchange", shared.ErrAPIRequest)
	ErrTokenRefresh   = fmt.Errorf("%w: token refresh", shared.ErrAPIRequest)
)

// MusicService is the remote side of the playlist workflow. Every call takes the caller's access token.
type MusicService interface {
	// SearchTracks returns up to the configured limit of tracks for query.
	SearchTracks(ctx context.Context, token, query string) ([]TrackRef, error)

	// CurrentUserID resolves the remote identity that owns token.
	CurrentUserID(ctx context.Context, token string) (string, error)

	// CreatePlaylist creates an empty playlist owned by userID and returns its remote ID.
	CreatePlaylist(ctx context.Context, token, userID, name, description string, public bool) (string, error)

	// AddTracksToPlaylist appends refs in order. An empty refs is a no-op.
	AddTracksToPlaylist(ctx context.Context, token, playlistID string, refs []TrackRef) error

	// PlaylistTracks lists every track of a playlist.
	PlaylistTracks(ctx context.Context, token, playlistID string) ([]TrackRef, error)

	// UserPlaylists lists the playlists of the user owning token.
	UserPlaylists(ctx context.Context, token string) ([]Playlist, error)

	// PlayTracks starts playback of uris on the user's active device.
	// Returns [shared.ErrNoActiveDevice] when no device is available.
	PlayTracks(ctx context.Context, token string, uris []string) error

	// Name returns the name of the service (e.g., "Spotify")
	Name() string
}

// Authenticator performs the OAuth authorization-code flow and refreshes.
type Authenticator interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (TokenGrant, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (TokenGrant, error)
}

// TokenGrant is a token endpoint response. RefreshToken is empty when none was issued.
type TokenGrant struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64 // seconds
}

// Validate rejects responses that cannot produce a usable token record.
func (g TokenGrant) Validate() error {
	switch {
	case g.AccessToken == "":
		return fmt.Errorf("%w: empty access token", shared.ErrMalformedResponse)
	case g.ExpiresIn <= 0:
		return fmt.Errorf("%w: expires_in must be positive, got %d", shared.ErrMalformedResponse, g.ExpiresIn)
	}
	return nil
}

// TrackRef identifies a remote track.
type TrackRef struct {
	ID     string `json:"id"`
	URI    string `json:"uri"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

// Playlist represents a remote playlist
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	TrackCount int    `json:"track_count"`
	Public     bool   `json:"public"`
}

// URIs returns the URIs of refs in order.
func URIs(refs []TrackRef) []string {
	uris := make([]string, len(refs))
	for i, r := range refs {
		uris[i] = r.URI
	}
	return uris
}
