package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/desertthunder/moodlist/internal/formatter"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate creates a playlist from explicit track IDs.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	p, err := r.playlists.Create(ctx, args[0], args[1:])
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Created playlist %q with %d tracks", p.Name, len(p.TrackIDs))))
}

// PlaylistAdd assigns one track to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: playlist add <name> <track-id>", shared.ErrMissingArgument)
	}

	p, err := r.playlists.AddTrack(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Playlist %q now has %d tracks", p.Name, len(p.TrackIDs))))
}

// PlaylistGenerate matches the mood against the catalog and saves the result as a playlist.
func (r *Runner) PlaylistGenerate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: playlist generate <name> <happiness,sadness,love,energy>", shared.ErrMissingArgument)
	}
	name := args[0]

	query, threshold, err := r.matchQuery(cmd, args[1:])
	if err != nil {
		return err
	}

	if cmd.Bool("dry-run") {
		tracks, err := r.playlists.Preview(ctx, query, threshold)
		if err != nil {
			return err
		}
		r.writePlainHeader(fmt.Sprintf("%d tracks match %s within %d", len(tracks), query, threshold))
		return r.writeTracks(tracks)
	}

	p, tracks, err := r.playlists.Generate(ctx, name, query, threshold)
	if err != nil {
		return err
	}

	r.writePlain("%s\n", ui.OK(fmt.Sprintf("Created playlist %q with %d tracks", p.Name, len(tracks))))
	if len(tracks) == 0 {
		r.writePlain("%s\n", ui.Hint("No unassigned tracks matched; try a larger --threshold."))
		return nil
	}
	return r.writeTracks(tracks)
}

// matchQuery reads the mood arguments, rescaling questionnaire answers when -q is set.
func (r *Runner) matchQuery(cmd *cli.Command, args []string) (models.MoodVector, int, error) {
	v, err := parseMood(args...)
	if err != nil {
		return models.MoodVector{}, 0, err
	}

	threshold := r.config.Matching.Threshold
	if cmd.Bool("questionnaire") {
		if v, threshold, err = mood.NewRescaler(r.config.Matching).Rescale(v); err != nil {
			return models.MoodVector{}, 0, err
		}
	}
	if t := cmd.Int("threshold"); cmd.IsSet("threshold") && t >= 0 {
		threshold = t
	}
	return v, threshold, nil
}

func (r *Runner) writeTracks(tracks []models.Track) error {
	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	for i, t := range tracks {
		fmt.Fprintf(tw, "%d.\t%s\t%s\t%s\n", i+1, t.Artist, t.Title, t.Genre)
	}
	return tw.Flush()
}

// PlaylistShow renders one playlist in the requested format.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	p, tracks, err := r.playlists.Tracks(ctx, name)
	if err != nil {
		return err
	}

	labels, err := r.moodLabels(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Render(&formatter.Export{Playlist: p, Tracks: tracks, Labels: labels}, format)
	if err != nil {
		return err
	}
	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// moodLabels maps mood IDs to their vectors for display.
func (r *Runner) moodLabels(ctx context.Context) (map[string]string, error) {
	moods, err := r.catalog.ListMoods(ctx)
	if err != nil {
		return nil, err
	}
	labels := make(map[string]string, len(moods))
	for _, m := range moods {
		v := m.Vector
		labels[m.ID] = fmt.Sprintf("%d/%d/%d/%d", v.Happiness, v.Sadness, v.Love, v.Energy)
	}
	return labels, nil
}

// PlaylistList prints every playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	playlists, err := r.playlists.List(ctx)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(playlists, true)
	}
	if len(playlists) == 0 {
		return r.writePlain("%s\n", ui.Hint("No playlists yet. Try: moodlist playlist generate <name> <mood>"))
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTRACKS\tCREATED")
	for _, p := range playlists {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", p.Name, len(p.TrackIDs), p.CreatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

// PlaylistRename renames a playlist.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) != 2 {
		return fmt.Errorf("%w: usage: playlist rename <old> <new>", shared.ErrMissingArgument)
	}

	p, err := r.playlists.Rename(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Renamed %q to %q", args[0], p.Name)))
}

// PlaylistDelete deletes a playlist and releases its tracks.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	name := cmd.Args().First()
	if name == "" {
		return fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}
	if err := r.playlists.Delete(ctx, name); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Deleted playlist %q", name)))
}

// PlaylistExport writes playlists to files on a worker pool, printing progress as they finish.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	names := cmd.Args().Slice()
	if len(names) == 0 {
		playlists, err := r.playlists.List(ctx)
		if err != nil {
			return err
		}
		for _, p := range playlists {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return r.writePlain("%s\n", ui.Hint("Nothing to export."))
	}

	labels, err := r.moodLabels(ctx)
	if err != nil {
		return err
	}

	opts := tasks.BulkExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		Labels:     labels,
	}
	if user := cmd.String("user"); user != "" {
		recorded, err := r.playlists.UserPlaylists(ctx, user)
		if err != nil {
			return err
		}
		opts.Remotes = make(map[string]*models.UserPlaylist, len(recorded))
		for _, up := range recorded {
			opts.Remotes[up.PlaylistName] = up
		}
	}

	progress := make(chan tasks.ProgressUpdate, len(names)*2)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for u := range progress {
			r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
		}
	}()

	result, err := tasks.BulkExport(ctx, progress, r.playlists, names, opts)
	close(progress)
	<-done
	if err != nil && result == nil {
		return err
	}

	r.writePlainln("%s", ui.OK(fmt.Sprintf("Exported %d/%d playlists to %s",
		result.SuccessfulExports, result.TotalPlaylists, result.OutputDirectory)))
	for _, res := range result.Results {
		if res.Error != nil {
			r.writePlain("%s\n", ui.Fail(fmt.Sprintf("%s: %v", res.Name, res.Error)))
		}
	}
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	return err
}
