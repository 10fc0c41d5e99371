package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// TrackRepository persists mood-tagged tracks.
//
// Duplicate detection uses the normalized artist/title lookup key, see [shared.NormalizeTrackKey].
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// TrackFilter narrows [TrackRepository.List]. Zero values match everything.
type TrackFilter struct {
	MoodID     string
	PlaylistID string
	Unassigned bool
}

const trackColumns = "id, sequence, title, artist, genre, mood_id, playlist_id, created_at, updated_at"

// Create inserts a new track with generated ID and sequence.
func (r *TrackRepository) Create(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	track.ID = shared.GenerateID()
	track.Sequence = sequence

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO tracks (id, sequence, title, artist, genre, lookup_key, mood_id, playlist_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		track.ID,
		track.Sequence,
		track.Title,
		track.Artist,
		track.Genre,
		track.Key(),
		track.MoodID,
		nullString(track.PlaylistID),
		track.CreatedAt,
		track.UpdatedAt,
	)
	if err != nil {
		return writeErr(err, "insert", fmt.Sprintf("track %s - %s", track.Artist, track.Title))
	}

	return nil
}

// Get retrieves a track by ID.
func (r *TrackRepository) Get(ctx context.Context, id string) (*models.Track, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+trackColumns+" FROM tracks WHERE id = ?", id)
	track, err := scanTrack(row)
	if err != nil {
		return nil, notFound(err, "track", id)
	}
	return track, nil
}

// FindByArtistAndTitle looks a track up by its normalized artist and title.
func (r *TrackRepository) FindByArtistAndTitle(ctx context.Context, artist, title string) (*models.Track, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+trackColumns+" FROM tracks WHERE lookup_key = ?",
		shared.NormalizeTrackKey(artist, title),
	)
	track, err := scanTrack(row)
	if err != nil {
		return nil, notFound(err, "track", artist+" - "+title)
	}
	return track, nil
}

// List returns tracks matching filter in insertion order.
func (r *TrackRepository) List(ctx context.Context, filter TrackFilter) ([]*models.Track, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE 1 = 1"
	args := []any{}

	if filter.MoodID != "" {
		query += " AND mood_id = ?"
		args = append(args, filter.MoodID)
	}
	if filter.PlaylistID != "" {
		query += " AND playlist_id = ?"
		args = append(args, filter.PlaylistID)
	}
	if filter.Unassigned {
		query += " AND playlist_id IS NULL"
	}

	query += " ORDER BY sequence ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	tracks := []*models.Track{}
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return tracks, nil
}

// Update rewrites the descriptive fields and mood of a track. Playlist links go through [TrackRepository.Assign].
func (r *TrackRepository) Update(ctx context.Context, track *models.Track) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	track.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, `
		UPDATE tracks
		SET title = ?, artist = ?, genre = ?, lookup_key = ?, mood_id = ?, updated_at = ?
		WHERE id = ?
	`, track.Title, track.Artist, track.Genre, track.Key(), track.MoodID, track.UpdatedAt, track.ID)
	if err != nil {
		return writeErr(err, "update", "track "+track.ID)
	}

	return expectOne(result, "track", track.ID)
}

// Assign links a track to a playlist only if it is not linked yet.
//
// Check and write are one statement. A track that is already assigned fails with [shared.ErrDuplicate].
func (r *TrackRepository) Assign(ctx context.Context, trackID, playlistID string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE tracks SET playlist_id = ?, updated_at = ? WHERE id = ? AND playlist_id IS NULL",
		playlistID, time.Now(), trackID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign track: %w", err)
	}

	if err := expectOne(result, "track", trackID); err == nil {
		return nil
	}

	if _, err := r.Get(ctx, trackID); err != nil {
		return err
	}
	return fmt.Errorf("%w: track %s already assigned", shared.ErrDuplicate, trackID)
}

// unassign clears every link to playlistID and returns how many tracks were released.
func unassign(ctx context.Context, ex execer, playlistID string) (int64, error) {
	result, err := ex.ExecContext(ctx,
		"UPDATE tracks SET playlist_id = NULL, updated_at = ? WHERE playlist_id = ?",
		time.Now(), playlistID,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to unassign tracks: %w", err)
	}
	return result.RowsAffected()
}

// Delete removes a track by ID.
func (r *TrackRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM tracks WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return expectOne(result, "track", id)
}

func scanTrack(s scanner) (*models.Track, error) {
	var (
		t          models.Track
		playlistID sql.NullString
	)
	err := s.Scan(&t.ID, &t.Sequence, &t.Title, &t.Artist, &t.Genre, &t.MoodID, &playlistID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.PlaylistID = playlistID.String
	return &t, nil
}
