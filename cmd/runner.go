package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/auth"
	"github.com/desertthunder/moodlist/internal/metrics"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/playlist"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/desertthunder/moodlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	db         *sql.DB
	ownsDB     bool
	spotify    *services.SpotifyService
	logger     *log.Logger
	output     io.Writer
	metrics    *metrics.Recorder

	catalog   *mood.Service
	playlists *playlist.Builder
	users     *repositories.UserRepository
	tokens    *auth.Manager
	workflow  *tasks.Workflow
}

// RunnerOpts contains configuration options for creating a Runner.
//
// With DB set the runner is wired immediately; otherwise [Runner.Open] loads the config file
// and opens the configured database.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	DB         *sql.DB
	Spotify    *services.SpotifyService
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		db:         opts.DB,
		spotify:    opts.Spotify,
		logger:     opts.Logger,
		output:     opts.Output,
		metrics:    metrics.New(),
	}
	if r.db != nil {
		r.wire()
	}
	return r
}

// Open loads the config file named by --config, opens the database and wires the services.
// It is the root command's Before hook and does nothing when a database was injected.
func (r *Runner) Open(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.db != nil {
		return ctx, nil
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}
	config, err := shared.LoadConfigOrDefault(r.configPath)
	if err != nil {
		return ctx, err
	}
	r.config = config

	level := config.Log.Level
	if cmd.IsSet("log-level") || level == "" {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, level)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return ctx, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return ctx, fmt.Errorf("failed to run migrations: %w", err)
	}
	r.db, r.ownsDB = db, true

	if r.spotify == nil && config.Credentials.Spotify.HasCredentials() {
		if r.spotify, err = services.NewSpotifyService(config.Credentials.Spotify, config.Remote, r.logger); err != nil {
			return ctx, err
		}
	}

	r.wire()
	return ctx, nil
}

// Close releases the database opened by [Runner.Open].
func (r *Runner) Close(ctx context.Context, cmd *cli.Command) error {
	if r.ownsDB && r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *Runner) wire() {
	scale := models.Scale{Min: r.config.Matching.ScaleMin, Max: r.config.Matching.ScaleMax}
	if scale.Min >= scale.Max {
		scale = models.DefaultScale
	}

	tracks := repositories.NewTrackRepository(r.db)
	r.users = repositories.NewUserRepository(r.db)
	r.catalog = mood.NewService(repositories.NewMoodRepository(r.db), tracks, scale, r.logger)
	r.playlists = playlist.NewBuilder(playlist.Stores{
		Playlists:     repositories.NewPlaylistRepository(r.db),
		Tracks:        tracks,
		Catalog:       r.catalog,
		Users:         r.users,
		UserPlaylists: repositories.NewUserPlaylistRepository(r.db),
	}, scale, r.logger)

	if r.spotify == nil {
		return
	}

	opts := []auth.Option{auth.WithMetrics(r.metrics)}
	if leeway := r.config.Remote.RefreshLeeway.Duration; leeway > 0 {
		opts = append(opts, auth.WithLeeway(leeway))
	}
	r.tokens = auth.NewManager(r.users, r.spotify, r.logger, opts...)
	r.workflow = tasks.NewWorkflow(r.tokens, r.spotify, r.playlists, tasks.WorkflowConfig{
		Scale:       scale,
		Remote:      r.config.Remote,
		Description: r.config.Remote.Description,
	}, r.metrics, r.logger)
}

// SetLogger replaces the logger and rebuilds the services that hold it.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
	if r.db != nil {
		r.wire()
	}
}

// requireSpotify reports missing credentials for commands that talk to Spotify.
func (r *Runner) requireSpotify() error {
	if r.spotify == nil || r.workflow == nil {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s", shared.ErrMissingCredentials, r.configPath)
	}
	return nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, seedCommand, moodCommand, trackCommand, playlistCommand, spotifyCommand, serveCommand, quizCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// parseMood reads a mood vector from "8,2,5,9" or from four separate arguments.
func parseMood(args ...string) (models.MoodVector, error) {
	fields := strings.FieldsFunc(strings.Join(args, ","), func(c rune) bool { return c == ',' || c == ' ' })
	if len(fields) != 4 {
		return models.MoodVector{}, fmt.Errorf("%w: mood needs 4 values (happiness,sadness,love,energy), got %d", shared.ErrInvalidArgument, len(fields))
	}

	var axes [4]int
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return models.MoodVector{}, fmt.Errorf("%w: %s is not a number: %q", shared.ErrInvalidArgument, models.AxisNames[i], f)
		}
		axes[i] = v
	}
	return models.MoodVector{Happiness: axes[0], Sadness: axes[1], Love: axes[2], Energy: axes[3]}, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("%s\n", ui.Title(title))
}
