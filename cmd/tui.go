package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Quiz launches the mood questionnaire. With --user the confirmed answers build a Spotify
// playlist for that user instead of a local one.
func (r *Runner) Quiz(ctx context.Context, cmd *cli.Command) error {
	if cmd.String("user") != "" {
		if err := r.requireSpotify(); err != nil {
			return err
		}
	}

	// Redirect logs to a file to avoid interfering with TUI rendering
	logPath := filepath.Join(os.TempDir(), "moodlist-quiz.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}
	defer logFile.Close()
	r.SetLogger(shared.NewLogger(logFile))

	opts := ui.Options{
		Name:      cmd.String("name"),
		Username:  cmd.String("user"),
		Rescaler:  mood.NewRescaler(r.config.Matching),
		Playlists: r.playlists,
	}
	if opts.Username != "" {
		opts.Remote = r.workflow
	}

	model := ui.NewModel(ctx, opts)
	final, err := tea.NewProgram(model, tea.WithContext(ctx)).Run()
	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	m, ok := final.(*ui.Model)
	if !ok || m.Result() == nil {
		if ok && m.Err() != nil {
			return m.Err()
		}
		return nil
	}

	res := m.Result()
	if res.Remote != nil {
		return r.writePlain("%s\n", r.remoteSummary(res))
	}
	return r.writePlain("%s\n", ui.OK(fmt.Sprintf("Saved %q with %d tracks (mood %s, threshold %d)",
		res.Playlist.Name, len(res.Tracks), res.Query, res.Threshold)))
}

func (r *Runner) remoteSummary(res *ui.Result) string {
	return ui.OK(fmt.Sprintf("Created %q on Spotify with %d tracks: %s", res.Remote.Name, res.Remote.TrackCount, res.Remote.URL))
}
