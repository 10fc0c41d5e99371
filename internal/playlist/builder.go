package playlist

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/shared"
)

// PlaylistStore persists playlists.
type PlaylistStore interface {
	Create(ctx context.Context, playlist *models.Playlist) error
	Get(ctx context.Context, id string) (*models.Playlist, error)
	FindByName(ctx context.Context, name string) (*models.Playlist, error)
	List(ctx context.Context) ([]*models.Playlist, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
}

// TrackStore resolves tracks and owns the track-to-playlist back-reference.
type TrackStore interface {
	Get(ctx context.Context, id string) (*models.Track, error)
	Assign(ctx context.Context, trackID, playlistID string) error
}

// CatalogLoader provides the catalog snapshot used by [Builder.Generate].
type CatalogLoader interface {
	Load(ctx context.Context) (*mood.Catalog, error)
}

// UserStore resolves users by name.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// UserPlaylistStore persists remote playlist records.
type UserPlaylistStore interface {
	Create(ctx context.Context, up *models.UserPlaylist) error
	Find(ctx context.Context, userID, playlistName string) (*models.UserPlaylist, error)
	ListByUser(ctx context.Context, userID string) ([]*models.UserPlaylist, error)
	Delete(ctx context.Context, userID, playlistName string) error
}

// Stores groups the collaborators of a [Builder]. Catalog, Users and UserPlaylists are only
// needed by the operations that use them.
type Stores struct {
	Playlists     PlaylistStore
	Tracks        TrackStore
	Catalog       CatalogLoader
	Users         UserStore
	UserPlaylists UserPlaylistStore
}

// Builder creates playlists and keeps every track in at most one of them.
//
// Name uniqueness and track ownership are checked before writing. The checks are not
// serialized; the store's UNIQUE(name) index and conditional assignment catch lost races and
// those surface as the same conflict errors.
type Builder struct {
	stores Stores
	scale  models.Scale
	logger *log.Logger
}

// NewBuilder creates a playlist builder. Generated queries are validated on scale.
func NewBuilder(stores Stores, scale models.Scale, logger *log.Logger) *Builder {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Builder{stores: stores, scale: scale, logger: shared.WithLogger(logger, "component", "playlist")}
}

// Create saves a playlist called name and links trackIDs to it.
//
// Every track is checked before the playlist is written, so a missing or already assigned
// track leaves nothing behind.
func (b *Builder) Create(ctx context.Context, name string, trackIDs []string) (*models.Playlist, error) {
	if err := models.ValidatePlaylistName(name); err != nil {
		return nil, invalid(name, err)
	}

	if err := b.ensureNameFree(ctx, name); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(trackIDs))
	for _, id := range trackIDs {
		track, err := b.track(ctx, name, id)
		if err != nil {
			return nil, err
		}
		if track.Assigned() || seen[id] {
			return nil, conflict(name, ErrTrackAlreadyAssigned, id)
		}
		seen[id] = true
	}

	p := models.NewPlaylist(name)
	if err := b.stores.Playlists.Create(ctx, p); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, conflict(name, ErrDuplicatePlaylistName, name)
		}
		return nil, fmt.Errorf("failed to save playlist: %w", err)
	}

	for _, id := range trackIDs {
		if err := b.link(ctx, p, id); err != nil {
			b.logger.Warn("playlist saved with partial tracks", "name", name, "linked", len(p.TrackIDs), "requested", len(trackIDs))
			return p, err
		}
	}

	b.logger.Info("playlist created", "name", name, "id", p.ID, "tracks", len(p.TrackIDs))
	return p, nil
}

// AddTrack links trackID to the playlist called name.
func (b *Builder) AddTrack(ctx context.Context, name, trackID string) (*models.Playlist, error) {
	p, err := b.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	track, err := b.track(ctx, name, trackID)
	if err != nil {
		return nil, err
	}
	if track.Assigned() {
		return nil, conflict(name, ErrTrackAlreadyAssigned, trackID)
	}

	if err := b.link(ctx, p, trackID); err != nil {
		return nil, err
	}

	b.logger.Debug("track added to playlist", "name", name, "track", trackID)
	return p, nil
}

// Generate matches query against the catalog and saves the unassigned matches as a new playlist.
//
// Matches that already belong to another playlist are skipped. An empty match still creates
// an empty playlist; callers that want to refuse it check the returned tracks first with [Builder.Preview].
func (b *Builder) Generate(ctx context.Context, name string, query models.MoodVector, threshold int) (*models.Playlist, []models.Track, error) {
	if err := models.ValidatePlaylistName(name); err != nil {
		return nil, nil, invalid(name, err)
	}

	tracks, err := b.Preview(ctx, query, threshold)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidInput) {
			return nil, nil, invalid(name, err)
		}
		return nil, nil, err
	}

	ids := make([]string, 0, len(tracks))
	available := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.Assigned() {
			continue
		}
		ids = append(ids, t.ID)
		available = append(available, t)
	}

	if skipped := len(tracks) - len(available); skipped > 0 {
		b.logger.Info("skipping tracks owned by other playlists", "name", name, "skipped", skipped)
	}

	p, err := b.Create(ctx, name, ids)
	if err != nil {
		return nil, nil, err
	}

	return p, available, nil
}

// Preview returns the catalog tracks matching query without saving anything.
func (b *Builder) Preview(ctx context.Context, query models.MoodVector, threshold int) ([]models.Track, error) {
	if b.stores.Catalog == nil {
		return nil, fmt.Errorf("%w: no catalog configured", shared.ErrNotImplemented)
	}

	catalog, err := b.stores.Catalog.Load(ctx)
	if err != nil {
		return nil, err
	}

	return mood.MatchChecked(query, catalog, threshold, b.scale)
}

// Get returns the playlist called name.
func (b *Builder) Get(ctx context.Context, name string) (*models.Playlist, error) {
	p, err := b.stores.Playlists.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, notFound(name, ErrPlaylistNotFound, name)
		}
		return nil, err
	}
	return p, nil
}

// List returns every playlist in creation order.
func (b *Builder) List(ctx context.Context) ([]*models.Playlist, error) {
	return b.stores.Playlists.List(ctx)
}

// Tracks resolves the tracks of the playlist called name.
func (b *Builder) Tracks(ctx context.Context, name string) (*models.Playlist, []*models.Track, error) {
	p, err := b.Get(ctx, name)
	if err != nil {
		return nil, nil, err
	}

	tracks := make([]*models.Track, 0, len(p.TrackIDs))
	for _, id := range p.TrackIDs {
		track, err := b.track(ctx, name, id)
		if err != nil {
			return nil, nil, err
		}
		tracks = append(tracks, track)
	}

	return p, tracks, nil
}

// Rename changes a playlist's name, keeping names unique.
func (b *Builder) Rename(ctx context.Context, oldName, newName string) (*models.Playlist, error) {
	if err := models.ValidatePlaylistName(newName); err != nil {
		return nil, invalid(newName, err)
	}

	p, err := b.Get(ctx, oldName)
	if err != nil {
		return nil, err
	}

	if oldName == newName {
		return p, nil
	}

	if err := b.ensureNameFree(ctx, newName); err != nil {
		return nil, err
	}

	if err := b.stores.Playlists.Rename(ctx, p.ID, newName); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, conflict(newName, ErrDuplicatePlaylistName, newName)
		}
		return nil, err
	}

	p.Name = newName
	p.UpdatedAt = time.Now()
	b.logger.Info("playlist renamed", "from", oldName, "to", newName)
	return p, nil
}

// Delete removes the playlist called name. Its tracks become free to join another playlist.
func (b *Builder) Delete(ctx context.Context, name string) error {
	p, err := b.Get(ctx, name)
	if err != nil {
		return err
	}

	if err := b.stores.Playlists.Delete(ctx, p.ID); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return notFound(name, ErrPlaylistNotFound, name)
		}
		return err
	}

	b.logger.Info("playlist deleted", "name", name, "released", len(p.TrackIDs))
	return nil
}

// AssignRemote records that username owns the remote playlist remoteID under name.
func (b *Builder) AssignRemote(ctx context.Context, username, name, remoteID, remoteURL string) (*models.UserPlaylist, error) {
	if err := models.ValidatePlaylistName(name); err != nil {
		return nil, invalid(name, err)
	}

	user, err := b.user(ctx, name, username)
	if err != nil {
		return nil, err
	}

	if _, err := b.stores.UserPlaylists.Find(ctx, user.ID, name); err == nil {
		return nil, conflict(name, ErrUserPlaylistExists, username)
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	up := &models.UserPlaylist{
		UserID:       user.ID,
		PlaylistName: name,
		RemoteID:     remoteID,
		RemoteURL:    remoteURL,
		CreatedAt:    time.Now(),
	}
	if err := b.stores.UserPlaylists.Create(ctx, up); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return nil, conflict(name, ErrUserPlaylistExists, username)
		}
		if errors.Is(err, shared.ErrInvalidInput) {
			return nil, invalid(name, err)
		}
		return nil, err
	}

	b.logger.Info("remote playlist recorded", "user", username, "name", name, "remote_id", remoteID)
	return up, nil
}

// UnassignRemote removes the record for username and name. The remote playlist is untouched.
func (b *Builder) UnassignRemote(ctx context.Context, username, name string) error {
	user, err := b.user(ctx, name, username)
	if err != nil {
		return err
	}

	if err := b.stores.UserPlaylists.Delete(ctx, user.ID, name); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return notFound(name, ErrUserPlaylistNotFound, username)
		}
		return err
	}
	return nil
}

// UserPlaylists lists the remote playlists recorded for username.
func (b *Builder) UserPlaylists(ctx context.Context, username string) ([]*models.UserPlaylist, error) {
	user, err := b.user(ctx, "", username)
	if err != nil {
		return nil, err
	}
	return b.stores.UserPlaylists.ListByUser(ctx, user.ID)
}

func (b *Builder) ensureNameFree(ctx context.Context, name string) error {
	_, err := b.stores.Playlists.FindByName(ctx, name)
	switch {
	case err == nil:
		return conflict(name, ErrDuplicatePlaylistName, name)
	case errors.Is(err, shared.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up playlist: %w", err)
	}
}

func (b *Builder) track(ctx context.Context, name, id string) (*models.Track, error) {
	track, err := b.stores.Tracks.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, notFound(name, ErrTrackNotFound, id)
		}
		return nil, err
	}
	return track, nil
}

// link sets the back-reference. The store refuses tracks that gained an owner since the check.
func (b *Builder) link(ctx context.Context, p *models.Playlist, trackID string) error {
	if err := b.stores.Tracks.Assign(ctx, trackID, p.ID); err != nil {
		switch {
		case errors.Is(err, shared.ErrDuplicate):
			return conflict(p.Name, ErrTrackAlreadyAssigned, trackID)
		case errors.Is(err, shared.ErrNotFound):
			return notFound(p.Name, ErrTrackNotFound, trackID)
		default:
			return fmt.Errorf("failed to assign track: %w", err)
		}
	}
	p.TrackIDs = append(p.TrackIDs, trackID)
	return nil
}

func (b *Builder) user(ctx context.Context, name, username string) (*models.User, error) {
	if b.stores.Users == nil || b.stores.UserPlaylists == nil {
		return nil, fmt.Errorf("%w: no user stores configured", shared.ErrNotImplemented)
	}

	user, err := b.stores.Users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, notFound(name, ErrUserNotFound, username)
		}
		return nil, err
	}
	return user, nil
}
