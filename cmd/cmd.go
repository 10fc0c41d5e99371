// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func jsonFlag() cli.Flag {
	return &cli.BoolFlag{Name: "json", Usage: "Output JSON"}
}

// setupCommand writes the config template and reports migration state.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml if missing and run database migrations",
		Action: r.Setup,
	}
}

// seedCommand bulk-loads the catalog from a TOML file.
func seedCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "seed",
		Usage:     "Load moods and tracks from a TOML seed file",
		Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
		Action:    r.Seed,
	}
}

func moodCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "mood",
		Usage: "Manage catalog moods",
		Commands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Add a mood: moodlist mood add 8,2,5,9",
				ArgsUsage: "<happiness,sadness,love,energy>",
				Action:    r.MoodAdd,
			},
			{
				Name:  "list",
				Usage: "List moods",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "match", Usage: "Only moods within the threshold of this vector"},
					&cli.IntFlag{Name: "threshold", Usage: "Per-axis distance for --match (default: matching.threshold)", Value: -1},
					&cli.BoolFlag{Name: "questionnaire", Aliases: []string{"q"}, Usage: "Treat --match as 1-5 questionnaire answers"},
					jsonFlag(),
				},
				Action: r.MoodList,
			},
			{
				Name:      "update",
				Usage:     "Replace a mood's vector",
				ArgsUsage: "<id> <happiness,sadness,love,energy>",
				Action:    r.MoodUpdate,
			},
			{
				Name:      "delete",
				Usage:     "Delete a mood with no tracks",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.MoodDelete,
			},
		},
	}
}

func trackCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "track",
		Usage: "Manage catalog tracks",
		Commands: []*cli.Command{
			{
				Name:  "add",
				Usage: "Add a track to a mood",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Required: true},
					&cli.StringFlag{Name: "genre", Aliases: []string{"g"}},
					&cli.StringFlag{Name: "mood", Aliases: []string{"m"}, Usage: "Mood ID", Required: true},
				},
				Action: r.TrackAdd,
			},
			{
				Name:  "list",
				Usage: "List tracks",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "mood", Usage: "Only tracks of this mood ID"},
					&cli.BoolFlag{Name: "unassigned", Usage: "Only tracks not in a playlist"},
					jsonFlag(),
				},
				Action: r.TrackList,
			},
			{
				Name:  "find",
				Usage: "Find a track by artist and title",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Required: true},
					&cli.StringFlag{Name: "artist", Aliases: []string{"a"}, Required: true},
				},
				Action: r.TrackFind,
			},
			{
				Name:      "delete",
				Usage:     "Delete a track",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.TrackDelete,
			},
		},
	}
}

func playlistCommand(r *Runner) *cli.Command {
	matchFlags := []cli.Flag{
		&cli.IntFlag{Name: "threshold", Usage: "Per-axis distance (default: matching.threshold)", Value: -1},
		&cli.BoolFlag{Name: "questionnaire", Aliases: []string{"q"}, Usage: "Treat the mood as 1-5 questionnaire answers"},
	}

	return &cli.Command{
		Name:    "playlist",
		Aliases: []string{"pl"},
		Usage:   "Build and manage local playlists",
		Commands: []*cli.Command{
			{
				Name:      "create",
				Usage:     "Create a playlist from track IDs",
				ArgsUsage: "<name> [track-id...]",
				Action:    r.PlaylistCreate,
			},
			{
				Name:      "add",
				Usage:     "Add a track to a playlist",
				ArgsUsage: "<name> <track-id>",
				Action:    r.PlaylistAdd,
			},
			{
				Name:      "generate",
				Usage:     "Create a playlist from the tracks matching a mood",
				ArgsUsage: "<name> <happiness,sadness,love,energy>",
				Flags: append(matchFlags,
					&cli.BoolFlag{Name: "dry-run", Usage: "Only show the matching tracks"},
				),
				Action: r.PlaylistGenerate,
			},
			{
				Name:      "show",
				Usage:     "Show a playlist and its tracks",
				ArgsUsage: "<name>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "txt"},
				},
				Action: r.PlaylistShow,
			},
			{
				Name:   "list",
				Usage:  "List playlists",
				Flags:  []cli.Flag{jsonFlag()},
				Action: r.PlaylistList,
			},
			{
				Name:      "rename",
				Usage:     "Rename a playlist",
				ArgsUsage: "<old> <new>",
				Action:    r.PlaylistRename,
			},
			{
				Name:      "delete",
				Usage:     "Delete a playlist and release its tracks",
				ArgsUsage: "<name>",
				Action:    r.PlaylistDelete,
			},
			{
				Name:      "export",
				Usage:     "Export playlists to files (all when no names are given)",
				ArgsUsage: "[name...]",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: "json, csv, markdown or txt", Value: "json"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output directory (default: moodlist_export_{epoch})"},
					&cli.IntFlag{Name: "workers", Usage: "Concurrent exports (max 10)", Value: 5},
					&cli.StringFlag{Name: "user", Usage: "Include remote links recorded for this user"},
				},
				Action: r.PlaylistExport,
			},
		},
	}
}

func spotifyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotify",
		Aliases: []string{"spot"},
		Usage:   "Authorize users and mirror playlists to Spotify",
		Commands: []*cli.Command{
			{
				Name:      "login",
				Usage:     "Authorize a user through the browser",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "timeout", Usage: "How long to wait for the callback", Value: 2 * time.Minute},
					&cli.BoolFlag{Name: "no-browser", Usage: "Print the URL instead of opening a browser"},
				},
				Action: r.SpotifyLogin,
			},
			{
				Name:      "auth",
				Usage:     "Store tokens obtained elsewhere for a user",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "access-token", Required: true},
					&cli.StringFlag{Name: "refresh-token"},
					&cli.IntFlag{Name: "expires-in", Usage: "Seconds until the access token expires", Value: 3600},
				},
				Action: r.SpotifyAuth,
			},
			{
				Name:      "status",
				Usage:     "Show a user's token state",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags:     []cli.Flag{jsonFlag()},
				Action:    r.SpotifyStatus,
			},
			{
				Name:      "generate",
				Usage:     "Search Spotify for a mood and create a playlist from the results",
				ArgsUsage: "<username> <name> <happiness,sadness,love,energy>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "questionnaire", Aliases: []string{"q"}, Usage: "Treat the mood as 1-5 questionnaire answers"},
					&cli.BoolFlag{Name: "record", Usage: "Record the remote playlist for the user", Value: true},
					jsonFlag(),
				},
				Action: r.SpotifyGenerate,
			},
			{
				Name:      "play",
				Usage:     "Play a Spotify playlist (ID, URI or link) on the active device",
				ArgsUsage: "<username> <playlist>",
				Action:    r.SpotifyPlay,
			},
			{
				Name:      "playlists",
				Usage:     "List a user's Spotify playlists",
				Arguments: []cli.Argument{&cli.StringArg{Name: "username"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "recorded", Usage: "Only playlists recorded by moodlist"},
					jsonFlag(),
				},
				Action: r.SpotifyPlaylists,
			},
		},
	}
}

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, OAuth callback and progress websocket",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "Listen address (default: server.host:server.port)"},
		},
		Action: r.Serve,
	}
}

func quizCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "quiz",
		Usage: "Answer a short mood questionnaire and build a playlist",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "Playlist name", Required: true},
			&cli.StringFlag{Name: "user", Aliases: []string{"u"}, Usage: "Create the playlist on Spotify for this user"},
		},
		Action: r.Quiz,
	}
}
