// Package repositories implements SQLite persistence for all domain entities.
//
// Each repository handles CRUD operations with atomic sequence generation for human-readable ordering.
// Lookups of missing rows return errors wrapping [shared.ErrNotFound]; UNIQUE constraint failures
// return errors wrapping [shared.ErrDuplicate], so callers can turn storage races into conflicts.
//
// Key Implementations:
//   - [MoodRepository] : catalog moods, unique per vector
//   - [TrackRepository] : mood-tagged tracks, unique per normalized artist/title, with conditional playlist assignment
//   - [PlaylistRepository] : uniquely named playlists; deleting one releases its tracks
//   - [UserRepository] : users and their OAuth token records (soft delete)
//   - [UserPlaylistRepository] : remote playlists generated for a user
//
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
