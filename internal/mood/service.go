package mood

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
)

var (
	ErrMoodNotFound  = fmt.Errorf("%w: mood", shared.ErrNotFound)
	ErrMoodExists    = fmt.Errorf("%w: mood with this vector", shared.ErrDuplicate)
	ErrTrackNotFound = fmt.Errorf("%w: track", shared.ErrNotFound)
	ErrTrackExists   = fmt.Errorf("%w: track with this artist and title", shared.ErrDuplicate)
)

// MoodStore is the catalog store consumed by [Service].
type MoodStore interface {
	Create(ctx context.Context, mood *models.Mood) error
	Get(ctx context.Context, id string) (*models.Mood, error)
	FindByVector(ctx context.Context, v models.MoodVector) (*models.Mood, error)
	List(ctx context.Context) ([]*models.Mood, error)
	Update(ctx context.Context, mood *models.Mood) error
	Delete(ctx context.Context, id string) error
}

// TrackStore is the track store consumed by [Service].
type TrackStore interface {
	Create(ctx context.Context, track *models.Track) error
	Get(ctx context.Context, id string) (*models.Track, error)
	FindByArtistAndTitle(ctx context.Context, artist, title string) (*models.Track, error)
	List(ctx context.Context, filter repositories.TrackFilter) ([]*models.Track, error)
	Update(ctx context.Context, track *models.Track) error
	Delete(ctx context.Context, id string) error
}

// Service administers the catalog and loads [Catalog] snapshots for matching.
type Service struct {
	moods  MoodStore
	tracks TrackStore
	scale  models.Scale
	logger *log.Logger
}

// NewService creates a catalog service validating vectors on scale.
func NewService(moods MoodStore, tracks TrackStore, scale models.Scale, logger *log.Logger) *Service {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Service{
		moods:  moods,
		tracks: tracks,
		scale:  scale,
		logger: shared.WithLogger(logger, "component", "catalog"),
	}
}

// Scale returns the scale vectors are validated against.
func (s *Service) Scale() models.Scale {
	return s.scale
}

// Load reads every mood and track into a [Catalog].
func (s *Service) Load(ctx context.Context) (*Catalog, error) {
	return LoadCatalog(ctx, s.moods, s.tracks)
}

// AddMood adds a catalog mood. Vectors are unique.
func (s *Service) AddMood(ctx context.Context, v models.MoodVector) (*models.Mood, error) {
	if err := v.ValidateOn(s.scale); err != nil {
		return nil, err
	}

	if _, err := s.moods.FindByVector(ctx, v); err == nil {
		return nil, fmt.Errorf("%w: %s", ErrMoodExists, v)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	mood := models.NewMood(v)
	if err := s.moods.Create(ctx, mood); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrMoodExists, v)
		}
		return nil, err
	}

	s.logger.Info("mood added", "id", mood.ID, "vector", v.String())
	return mood, nil
}

// GetMood returns a mood by ID.
func (s *Service) GetMood(ctx context.Context, id string) (*models.Mood, error) {
	mood, err := s.moods.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, ErrMoodNotFound, id)
	}
	return mood, nil
}

// ListMoods returns all moods in insertion order.
func (s *Service) ListMoods(ctx context.Context) ([]*models.Mood, error) {
	return s.moods.List(ctx)
}

// Nearby returns the moods within threshold of query, in insertion order.
func (s *Service) Nearby(ctx context.Context, query models.MoodVector, threshold int) ([]models.Mood, error) {
	if threshold < 0 {
		return nil, ErrInvalidThreshold
	}
	if err := query.ValidateOn(s.scale); err != nil {
		return nil, err
	}

	catalog, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return MatchingMoods(query, catalog, threshold), nil
}

// UpdateMood replaces the vector of a mood.
func (s *Service) UpdateMood(ctx context.Context, id string, v models.MoodVector) (*models.Mood, error) {
	if err := v.ValidateOn(s.scale); err != nil {
		return nil, err
	}

	mood, err := s.GetMood(ctx, id)
	if err != nil {
		return nil, err
	}

	mood.Vector = v
	if err := s.moods.Update(ctx, mood); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s", ErrMoodExists, v)
		}
		return nil, wrapNotFound(err, ErrMoodNotFound, id)
	}

	return mood, nil
}

// DeleteMood removes a mood. Its tracks keep pointing at it and must be reassigned by the caller.
func (s *Service) DeleteMood(ctx context.Context, id string) error {
	if err := s.moods.Delete(ctx, id); err != nil {
		return wrapNotFound(err, ErrMoodNotFound, id)
	}

	orphans, err := s.tracks.List(ctx, repositories.TrackFilter{MoodID: id})
	if err == nil && len(orphans) > 0 {
		s.logger.Warn("mood deleted with tracks attached", "id", id, "tracks", len(orphans))
	}

	return nil
}

// AddTrack tags a new track with an existing mood. Artist and title are unique, ignoring case and accents.
func (s *Service) AddTrack(ctx context.Context, title, artist, genre, moodID string) (*models.Track, error) {
	track := models.NewTrack(title, artist, genre, moodID)
	if err := track.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.GetMood(ctx, moodID); err != nil {
		return nil, err
	}

	if _, err := s.tracks.FindByArtistAndTitle(ctx, track.Artist, track.Title); err == nil {
		return nil, fmt.Errorf("%w: %s - %s", ErrTrackExists, track.Artist, track.Title)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	if err := s.tracks.Create(ctx, track); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s - %s", ErrTrackExists, track.Artist, track.Title)
		}
		return nil, err
	}

	s.logger.Info("track added", "id", track.ID, "artist", track.Artist, "title", track.Title, "mood", moodID)
	return track, nil
}

// GetTrack returns a track by ID.
func (s *Service) GetTrack(ctx context.Context, id string) (*models.Track, error) {
	track, err := s.tracks.Get(ctx, id)
	if err != nil {
		return nil, wrapNotFound(err, ErrTrackNotFound, id)
	}
	return track, nil
}

// FindTrack looks a track up by artist and title.
func (s *Service) FindTrack(ctx context.Context, artist, title string) (*models.Track, error) {
	track, err := s.tracks.FindByArtistAndTitle(ctx, artist, title)
	if err != nil {
		return nil, wrapNotFound(err, ErrTrackNotFound, artist+" - "+title)
	}
	return track, nil
}

// ListTracks returns tracks matching filter.
func (s *Service) ListTracks(ctx context.Context, filter repositories.TrackFilter) ([]*models.Track, error) {
	return s.tracks.List(ctx, filter)
}

// UpdateTrack rewrites a track's fields. A new mood must exist.
func (s *Service) UpdateTrack(ctx context.Context, id, title, artist, genre, moodID string) (*models.Track, error) {
	track, err := s.GetTrack(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := models.NewTrack(title, artist, genre, moodID)
	if err := updated.Validate(); err != nil {
		return nil, err
	}

	if moodID != track.MoodID {
		if _, err := s.GetMood(ctx, moodID); err != nil {
			return nil, err
		}
	}

	track.Title, track.Artist, track.Genre, track.MoodID = updated.Title, updated.Artist, updated.Genre, updated.MoodID
	if err := s.tracks.Update(ctx, track); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %s - %s", ErrTrackExists, track.Artist, track.Title)
		}
		return nil, wrapNotFound(err, ErrTrackNotFound, id)
	}

	return track, nil
}

// DeleteTrack removes a track.
func (s *Service) DeleteTrack(ctx context.Context, id string) error {
	if err := s.tracks.Delete(ctx, id); err != nil {
		return wrapNotFound(err, ErrTrackNotFound, id)
	}
	return nil
}

func wrapNotFound(err, sentinel error, key string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s", sentinel, key)
	}
	return err
}
