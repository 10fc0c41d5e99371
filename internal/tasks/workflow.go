package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/metrics"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

var (
	ErrSearchFailed         = fmt.Errorf("%w: track search failed", shared.ErrAPIRequest)
	ErrPlaylistCreateFailed = fmt.Errorf("%w: playlist creation failed", shared.ErrAPIRequest)
	ErrTrackAddFailed       = fmt.Errorf("%w: adding tracks failed", shared.ErrAPIRequest)
	ErrPlaylistFetchFailed  = fmt.Errorf("%w: fetching playlist tracks failed", shared.ErrAPIRequest)
	ErrRecordFailed         = errors.New("remote playlist created but not recorded locally")
	ErrEmptyPlaylist        = fmt.Errorf("%w: playlist has no tracks to play", shared.ErrInvalidInput)
)

// Step names the stage of a remote operation that failed.
type Step string

const (
	StepValidate Step = "validate"
	StepToken    Step = "token"
	StepSearch   Step = "search"
	StepCreate   Step = "create"
	StepAdd      Step = "add"
	StepRecord   Step = "record"
	StepFetch    Step = "fetch"
	StepPlay     Step = "play"
)

// StepError identifies the failing step of a remote operation.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepOf returns the failing step recorded in err.
func StepOf(err error) (Step, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return "", false
}

// TokenSource hands out valid access tokens per user.
type TokenSource interface {
	GetValidAccessToken(ctx context.Context, username string) (string, error)
}

// Recorder stores the local record of a generated remote playlist.
type Recorder interface {
	AssignRemote(ctx context.Context, username, name, remoteID, remoteURL string) (*models.UserPlaylist, error)
}

// RemotePlaylistRef describes a playlist created on the remote service.
type RemotePlaylistRef struct {
	ID         string              `json:"id"`
	URL        string              `json:"url"`
	Name       string              `json:"name"`
	TrackCount int                 `json:"track_count"`
	Query      string              `json:"query"`
	Tracks     []services.TrackRef `json:"tracks,omitempty"`
}

// GenerateRequest asks for a remote playlist built from a mood.
type GenerateRequest struct {
	Username     string            `json:"username"`
	Query        models.MoodVector `json:"mood"`
	PlaylistName string            `json:"name"`
	Record       bool              `json:"record"` // store a UserPlaylist after success
}

// WorkflowConfig carries the playlist settings of [Workflow].
type WorkflowConfig struct {
	Scale       models.Scale
	Remote      shared.RemoteConfig
	Description string
}

// Workflow runs the remote playlist sequence: token, search, create, add.
//
// Steps run in order and stop at the first failure. Nothing is retried or rolled back: a
// playlist created before a failed add stays on the remote service and is returned alongside
// the error.
type Workflow struct {
	tokens   TokenSource
	music    services.MusicService
	recorder Recorder
	queries  mood.QueryBuilder
	scale    models.Scale
	remote   shared.RemoteConfig
	metrics  *metrics.Recorder
	logger   *log.Logger
}

// NewWorkflow wires the collaborators. recorder and rec may be nil.
func NewWorkflow(tokens TokenSource, music services.MusicService, recorder Recorder, cfg WorkflowConfig, rec *metrics.Recorder, logger *log.Logger) *Workflow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	if cfg.Scale == (models.Scale{}) {
		cfg.Scale = models.DefaultScale
	}
	return &Workflow{
		tokens:   tokens,
		music:    music,
		recorder: recorder,
		queries:  mood.NewQueryBuilder(cfg.Scale, cfg.Remote),
		scale:    cfg.Scale,
		remote:   cfg.Remote,
		metrics:  rec,
		logger:   shared.WithLogger(logger, "component", "workflow"),
	}
}

// Query returns the search expression used for v.
func (w *Workflow) Query(v models.MoodVector) string {
	return w.queries.Build(v)
}

// Generate creates a remote playlist named req.PlaylistName filled with the search results for
// req.Query. Zero results still produce an empty playlist.
func (w *Workflow) Generate(ctx context.Context, req GenerateRequest, progress chan<- ProgressUpdate) (ref *RemotePlaylistRef, err error) {
	start := time.Now()
	defer func() {
		step, _ := StepOf(err)
		w.metrics.RecordWorkflow(string(step), time.Since(start))
	}()

	if err := w.validate(req); err != nil {
		return nil, &StepError{Step: StepValidate, Err: err}
	}

	logger := w.logger.With("user", req.Username, "name", req.PlaylistName)

	sendProgress(progress, tokenUpdate(req.Username))
	token, err := w.tokens.GetValidAccessToken(ctx, req.Username)
	if err != nil {
		return nil, &StepError{Step: StepToken, Err: err}
	}

	query := w.queries.Build(req.Query)
	sendProgress(progress, searchUpdate(query))

	refs, err := w.music.SearchTracks(ctx, token, query)
	if err != nil {
		logger.Warn("search failed", "query", query, "error", err)
		return nil, &StepError{Step: StepSearch, Err: fmt.Errorf("%w: %w", ErrSearchFailed, err)}
	}
	w.metrics.RecordMatches(len(refs))
	sendProgress(progress, foundTracksUpdate(refs))

	sendProgress(progress, createUpdate(req.PlaylistName))
	userID, err := w.music.CurrentUserID(ctx, token)
	if err != nil {
		return nil, &StepError{Step: StepCreate, Err: fmt.Errorf("%w: %w", ErrPlaylistCreateFailed, err)}
	}

	id, err := w.music.CreatePlaylist(ctx, token, userID, req.PlaylistName, w.description(), w.remote.Public)
	if err != nil {
		logger.Warn("create failed", "error", err)
		return nil, &StepError{Step: StepCreate, Err: fmt.Errorf("%w: %w", ErrPlaylistCreateFailed, err)}
	}

	ref = &RemotePlaylistRef{
		ID:     id,
		URL:    services.PlaylistURL(id),
		Name:   req.PlaylistName,
		Query:  query,
		Tracks: refs,
	}
	sendProgress(progress, addUpdate(ref, len(refs)))

	if err := w.music.AddTracksToPlaylist(ctx, token, id, refs); err != nil {
		logger.Warn("add failed, remote playlist left empty", "remote_id", id, "error", err)
		return ref, &StepError{Step: StepAdd, Err: fmt.Errorf("%w: %w", ErrTrackAddFailed, err)}
	}
	ref.TrackCount = len(refs)

	if req.Record && w.recorder != nil {
		sendProgress(progress, recordUpdate(req.PlaylistName))
		if _, err := w.recorder.AssignRemote(ctx, req.Username, req.PlaylistName, ref.ID, ref.URL); err != nil {
			logger.Error("failed to record remote playlist", "remote_id", id, "error", err)
			return ref, &StepError{Step: StepRecord, Err: fmt.Errorf("%w: %w", ErrRecordFailed, err)}
		}
	}

	logger.Info("remote playlist generated", "remote_id", id, "query", query, "tracks", ref.TrackCount)
	sendProgress(progress, doneUpdate(ref))
	return ref, nil
}

// Play starts playback of a remote playlist given by ID, URI or link on the user's active device.
func (w *Workflow) Play(ctx context.Context, username, playlist string, progress chan<- ProgressUpdate) (int, error) {
	id := services.PlaylistID(playlist)
	if id == "" {
		return 0, &StepError{Step: StepValidate, Err: fmt.Errorf("%w: playlist", shared.ErrMissingArgument)}
	}

	token, err := w.tokens.GetValidAccessToken(ctx, username)
	if err != nil {
		return 0, &StepError{Step: StepToken, Err: err}
	}

	sendProgress(progress, fetchUpdate(id))
	refs, err := w.music.PlaylistTracks(ctx, token, id)
	if err != nil {
		return 0, &StepError{Step: StepFetch, Err: fmt.Errorf("%w: %w", ErrPlaylistFetchFailed, err)}
	}
	if len(refs) == 0 {
		return 0, &StepError{Step: StepFetch, Err: fmt.Errorf("%w: %s", ErrEmptyPlaylist, id)}
	}

	sendProgress(progress, playUpdate(len(refs)))
	if err := w.music.PlayTracks(ctx, token, services.URIs(refs)); err != nil {
		return 0, &StepError{Step: StepPlay, Err: err}
	}

	w.logger.Info("playback started", "user", username, "playlist", id, "tracks", len(refs))
	return len(refs), nil
}

// Playlists lists the remote playlists of username.
func (w *Workflow) Playlists(ctx context.Context, username string) ([]services.Playlist, error) {
	token, err := w.tokens.GetValidAccessToken(ctx, username)
	if err != nil {
		return nil, &StepError{Step: StepToken, Err: err}
	}

	playlists, err := w.music.UserPlaylists(ctx, token)
	if err != nil {
		return nil, &StepError{Step: StepFetch, Err: err}
	}
	return playlists, nil
}

func (w *Workflow) validate(req GenerateRequest) error {
	if strings.TrimSpace(req.Username) == "" {
		return fmt.Errorf("%w: username", shared.ErrMissingArgument)
	}
	if err := models.ValidatePlaylistName(req.PlaylistName); err != nil {
		return err
	}
	return req.Query.ValidateOn(w.scale)
}

func (w *Workflow) description() string {
	if w.remote.Description != "" {
		return w.remote.Description
	}
	return "Generated based on mood"
}
