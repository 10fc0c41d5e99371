package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// PlaylistRepository persists playlists. Track membership lives on the tracks table.
type PlaylistRepository struct {
	db *sql.DB
}

// NewPlaylistRepository creates a new PlaylistRepository with the given database connection
func NewPlaylistRepository(db *sql.DB) *PlaylistRepository {
	return &PlaylistRepository{db: db}
}

const playlistColumns = "id, sequence, name, created_at, updated_at"

// Create inserts a new playlist. The UNIQUE(name) index turns a lost check-then-insert race into [shared.ErrDuplicate].
func (r *PlaylistRepository) Create(ctx context.Context, playlist *models.Playlist) error {
	if err := playlist.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	playlist.ID = shared.GenerateID()
	playlist.Sequence = sequence

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO playlists ("+playlistColumns+") VALUES (?, ?, ?, ?, ?)",
		playlist.ID, playlist.Sequence, playlist.Name, playlist.CreatedAt, playlist.UpdatedAt,
	)
	if err != nil {
		return writeErr(err, "insert", "playlist "+playlist.Name)
	}

	return nil
}

// Get retrieves a playlist by ID with its track IDs.
func (r *PlaylistRepository) Get(ctx context.Context, id string) (*models.Playlist, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE id = ?", id)
	return r.load(ctx, row, id)
}

// FindByName retrieves a playlist by its unique name with its track IDs.
func (r *PlaylistRepository) FindByName(ctx context.Context, name string) (*models.Playlist, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+playlistColumns+" FROM playlists WHERE name = ?", name)
	return r.load(ctx, row, name)
}

// List returns all playlists in creation order. TrackIDs are populated.
func (r *PlaylistRepository) List(ctx context.Context) ([]*models.Playlist, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+playlistColumns+" FROM playlists ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query playlists: %w", err)
	}

	playlists := []*models.Playlist{}
	for rows.Next() {
		p, err := scanPlaylist(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan playlist: %w", err)
		}
		playlists = append(playlists, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	rows.Close()

	for _, p := range playlists {
		if p.TrackIDs, err = r.trackIDs(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	return playlists, nil
}

// Rename changes the name of a playlist.
func (r *PlaylistRepository) Rename(ctx context.Context, id, name string) error {
	if err := models.ValidatePlaylistName(name); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, "UPDATE playlists SET name = ?, updated_at = ? WHERE id = ?", name, time.Now(), id)
	if err != nil {
		return writeErr(err, "rename", "playlist "+name)
	}

	return expectOne(result, "playlist", id)
}

// Delete removes a playlist and releases its tracks in one transaction.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := unassign(ctx, tx, id); err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM playlists WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete playlist: %w", err)
	}
	if err := expectOne(result, "playlist", id); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PlaylistRepository) load(ctx context.Context, row *sql.Row, key string) (*models.Playlist, error) {
	p, err := scanPlaylist(row)
	if err != nil {
		return nil, notFound(err, "playlist", key)
	}

	if p.TrackIDs, err = r.trackIDs(ctx, p.ID); err != nil {
		return nil, err
	}

	return p, nil
}

func (r *PlaylistRepository) trackIDs(ctx context.Context, playlistID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id FROM tracks WHERE playlist_id = ? ORDER BY sequence ASC", playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query playlist tracks: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan track id: %w", err)
		}
		ids = append(ids, id)
	}

	return ids, rows.Err()
}

func scanPlaylist(s scanner) (*models.Playlist, error) {
	var p models.Playlist
	if err := s.Scan(&p.ID, &p.Sequence, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
