// Package playlist assembles local playlists from matched tracks.
//
// A [Builder] enforces two invariants over its stores: playlist names are unique and a track
// belongs to at most one playlist. Failures are [*Error] values carrying a [Kind] and one of
// the package sentinels:
//   - validation: [ErrInvalidPlaylistName], raised before any store access
//   - not found: [ErrPlaylistNotFound], [ErrTrackNotFound], [ErrUserNotFound], [ErrUserPlaylistNotFound]
//   - conflict: [ErrDuplicatePlaylistName], [ErrTrackAlreadyAssigned], [ErrUserPlaylistExists]
//
// The builder also records remote playlists generated for a user (see [Builder.AssignRemote]).
package playlist
