// Package services talks to the remote music service that mirrors mood playlists.
//
// # Interfaces
//
// [MusicService] covers the calls made by the remote workflow: search, playlist creation, adding
// tracks and playback. [Authenticator] covers the OAuth authorization-code flow and refresh.
// Both take the caller's access token explicitly; token storage and renewal belong to the auth
// package.
//
// # Spotify
//
// [SpotifyService] implements both on top of github.com/zmb3/spotify/v2 and golang.org/x/oauth2.
// Requests share a rate limiter, carry a client-side timeout and are never retried.
// Current-user lookups are cached per access token.
//
// # Errors
//
// Every failed call wraps one of the step sentinels ([ErrSearch], [ErrCreatePlaylist], ...),
// all of which wrap [shared.ErrAPIRequest]. A 401 from the API also wraps
// [shared.ErrUnauthorized]. Playback without an active device returns
// [shared.ErrNoActiveDevice] so callers can tell the user to start a player.
package services
