package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/desertthunder/moodlist/internal/formatter"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	"golang.org/x/sync/errgroup"
)

// PlaylistSource resolves a local playlist and its tracks.
type PlaylistSource interface {
	Tracks(ctx context.Context, name string) (*models.Playlist, []*models.Track, error)
}

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format
	OutputDir  string                          // Base output directory (default: moodlist_export_{epoch})
	NumWorkers int                             // Concurrent workers (default: 5, max: 10)
	Labels     map[string]string               // mood ID to display label
	Remotes    map[string]*models.UserPlaylist // remote records by playlist name
}

// PlaylistExportResult is the outcome of exporting one playlist.
type PlaylistExportResult struct {
	Name  string
	File  string
	Error error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalPlaylists    int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []PlaylistExportResult // in the order of the requested names
}

// BulkExport writes every named playlist to opts.OutputDir on a bounded worker pool.
//
// A failing playlist is recorded in the result and does not stop the others. A manifest of all
// outcomes is written next to the exports.
func BulkExport(ctx context.Context, prog chan<- ProgressUpdate, src PlaylistSource, names []string, opts BulkExportOpts) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: playlist source not initialized", shared.ErrServiceUnavailable)
	}

	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("moodlist_export_%d", time.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalPlaylists:  len(names),
		OutputDirectory: opts.OutputDir,
		Results:         make([]PlaylistExportResult, len(names)),
	}

	total := len(names)
	var completed atomic.Int32

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.NumWorkers)

	for i, name := range names {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				result.Results[i] = PlaylistExportResult{Name: name, Error: err}
				return nil
			}

			sendProgress(prog, exportingUpdate(i+1, total, name))
			res := exportOne(gctx, src, name, opts)
			result.Results[i] = res

			step := int(completed.Add(1))
			if res.Error != nil {
				sendProgress(prog, exportFailedUpdate(step, total, name, res.Error))
			} else {
				sendProgress(prog, exportCompletedUpdate(step, total, name, 1))
			}
			return nil
		})
	}
	_ = g.Wait()

	manifest := &formatter.Manifest{Format: opts.Format}
	for _, res := range result.Results {
		entry := formatter.ManifestEntry{Playlist: res.Name, File: res.File}
		if res.Error != nil {
			result.FailedExports++
			entry.Error = res.Error.Error()
		} else {
			result.SuccessfulExports++
		}
		manifest.Entries = append(manifest.Entries, entry)
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	return result, ctx.Err()
}

func exportOne(ctx context.Context, src PlaylistSource, name string, opts BulkExportOpts) PlaylistExportResult {
	res := PlaylistExportResult{Name: name}

	p, tracks, err := src.Tracks(ctx, name)
	if err != nil {
		res.Error = err
		return res
	}

	export := &formatter.Export{
		Playlist: p,
		Tracks:   tracks,
		Remote:   opts.Remotes[name],
		Labels:   opts.Labels,
	}

	res.File, res.Error = formatter.WriteExport(export, opts.Format, opts.OutputDir)
	return res
}
