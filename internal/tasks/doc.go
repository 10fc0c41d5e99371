// Package tasks runs the multi-step operations behind the CLI and HTTP surfaces, with
// non-blocking progress reporting.
//
// # Remote playlist workflow
//
// [Workflow.Generate] turns a mood into a Spotify playlist:
//
//  1. obtain a valid access token for the user (refreshing it when needed)
//  2. build a keyword query from the mood and search tracks
//  3. resolve the remote user and create the playlist
//  4. add the found tracks, possibly none
//  5. optionally record the remote playlist locally
//
// Each failure is a [*StepError] naming the step. Remote failures wrap [ErrSearchFailed],
// [ErrPlaylistCreateFailed] or [ErrTrackAddFailed]. Nothing is retried and nothing is rolled
// back; a playlist created before a failed add is returned with the error.
//
// [Workflow.Play] starts playback of a remote playlist and passes
// [shared.ErrNoActiveDevice] through untouched.
//
// # Bulk export
//
// [BulkExport] writes local playlists to disk on a bounded errgroup worker pool and records
// every outcome in a manifest.
//
// # Progress Reporting
//
// Operations accept an optional channel of [ProgressUpdate]. Sends use select with default, so a
// slow or absent reader never blocks the operation.
package tasks
