// Package server provides HTTP routing, middleware, OAuth handling and the JSON API of moodlist.
//
// # Router Infrastructure
//
// [BasicRouter] registers "METHOD /path" patterns on an [http.ServeMux], so unmatched methods get
// a 405 and wildcards like {name} are read with [http.Request.PathValue]. [Middleware] wraps
// handlers in reverse order (last added executes first).
//
// [Server] installs [Recover], [RequestLogger] and [Metrics] on every route. Metrics are labelled
// by route pattern rather than raw path.
//
// # OAuth
//
// [OAuthHandler] serves /login and /callback. The state parameter is a signed, expiring token
// that names the user, so one running server can authorize many users. The CLI login builds the
// handler with [OAuthOnce]: it accepts a single callback, reports it on [OAuthHandler.Result]
// and closes the channel.
//
// # API
//
//	GET  /healthz
//	GET  /metrics
//	POST /api/tokens                     store a token grant for a user
//	GET  /api/tokens/{username}          token lifecycle state
//	POST /api/match                      preview catalog matches for a mood
//	GET  /api/playlists                  local playlists
//	POST /api/playlists                  create from track IDs
//	POST /api/playlists/generate         create from a mood
//	GET  /api/playlists/{name}           playlist with resolved tracks
//	GET  /api/users/{username}/playlists remote playlists recorded for a user
//	POST /api/spotify/playlists          run the remote workflow
//	GET  /api/spotify/playlists          list the user's remote playlists
//	POST /api/spotify/play               play a remote playlist
//	GET  /api/generate/ws                remote workflow with streamed progress
//
// Errors are JSON bodies carrying the error kind, the failing workflow step when there is one,
// and the partially created remote playlist when an add or record step failed.
//
// # Websocket
//
// The client sends one generate request. The server answers with "progress" frames and ends
// with a single "result" or "error" frame before closing.
package server
