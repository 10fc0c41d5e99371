// Package models defines the entities of the moodlist service.
//
// Entities reference each other only by ID; repositories resolve IDs on demand:
//   - [Mood] : catalog entry holding a [MoodVector]
//   - [Track] : song tagged with exactly one mood (MoodID) and at most one playlist (PlaylistID)
//   - [Playlist] : uniquely named set of tracks
//   - [User] : account owning a single [TokenRecord]
//   - [UserPlaylist] : remote playlist generated for a user
//
// Validation lives on the entities so callers can reject bad input before touching storage.
package models
