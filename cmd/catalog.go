package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// MoodAdd adds a catalog mood.
func (r *Runner) MoodAdd(ctx context.Context, cmd *cli.Command) error {
	v, err := parseMood(cmd.Args().Slice()...)
	if err != nil {
		return err
	}

	m, err := r.catalog.AddMood(ctx, v)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Added mood %s %s", m.ID, m.Vector)))
}

// MoodList prints every mood with its track count. With --match only moods near the given
// vector are listed.
func (r *Runner) MoodList(ctx context.Context, cmd *cli.Command) error {
	moods, err := r.listMoods(ctx, cmd)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(moods, true)
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tHAPPINESS\tSADNESS\tLOVE\tENERGY\tTRACKS")
	for _, m := range moods {
		tracks, err := r.catalog.ListTracks(ctx, repositories.TrackFilter{MoodID: m.ID})
		if err != nil {
			return err
		}
		v := m.Vector
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", m.ID, v.Happiness, v.Sadness, v.Love, v.Energy, len(tracks))
	}
	return tw.Flush()
}

func (r *Runner) listMoods(ctx context.Context, cmd *cli.Command) ([]*models.Mood, error) {
	query := cmd.String("match")
	if query == "" {
		return r.catalog.ListMoods(ctx)
	}

	v, threshold, err := r.matchQuery(cmd, []string{query})
	if err != nil {
		return nil, err
	}
	nearby, err := r.catalog.Nearby(ctx, v, threshold)
	if err != nil {
		return nil, err
	}

	moods := make([]*models.Mood, len(nearby))
	for i := range nearby {
		moods[i] = &nearby[i]
	}
	return moods, nil
}

// MoodUpdate replaces a mood's vector.
func (r *Runner) MoodUpdate(ctx context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) < 2 {
		return fmt.Errorf("%w: usage: mood update <id> <happiness,sadness,love,energy>", shared.ErrMissingArgument)
	}

	v, err := parseMood(args[1:]...)
	if err != nil {
		return err
	}

	m, err := r.catalog.UpdateMood(ctx, args[0], v)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Mood %s is now %s", m.ID, m.Vector)))
}

// MoodDelete removes a mood.
func (r *Runner) MoodDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: mood id", shared.ErrMissingArgument)
	}
	if err := r.catalog.DeleteMood(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Deleted mood "+id))
}

// TrackAdd adds a track to a mood.
func (r *Runner) TrackAdd(ctx context.Context, cmd *cli.Command) error {
	t, err := r.catalog.AddTrack(ctx, cmd.String("title"), cmd.String("artist"), cmd.String("genre"), cmd.String("mood"))
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Added %s - %s (%s)", t.Artist, t.Title, t.ID)))
}

// TrackList prints tracks, optionally filtered.
func (r *Runner) TrackList(ctx context.Context, cmd *cli.Command) error {
	tracks, err := r.catalog.ListTracks(ctx, repositories.TrackFilter{
		MoodID:     cmd.String("mood"),
		Unassigned: cmd.Bool("unassigned"),
	})
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tARTIST\tTITLE\tGENRE\tMOOD\tPLAYLIST")
	for _, t := range tracks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", t.ID, t.Artist, t.Title, t.Genre, t.MoodID, t.PlaylistID)
	}
	return tw.Flush()
}

// TrackFind looks a track up by artist and title.
func (r *Runner) TrackFind(ctx context.Context, cmd *cli.Command) error {
	t, err := r.catalog.FindTrack(ctx, cmd.String("artist"), cmd.String("title"))
	if err != nil {
		return err
	}
	return r.writeJSON(t, true)
}

// TrackDelete removes a track.
func (r *Runner) TrackDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if err := r.catalog.DeleteTrack(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", ui.OK("Deleted track "+id))
}
