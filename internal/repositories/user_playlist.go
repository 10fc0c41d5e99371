package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// UserPlaylistRepository persists the remote playlists generated for each user.
type UserPlaylistRepository struct {
	db *sql.DB
}

// NewUserPlaylistRepository creates a new UserPlaylistRepository with the given database connection
func NewUserPlaylistRepository(db *sql.DB) *UserPlaylistRepository {
	return &UserPlaylistRepository{db: db}
}

const userPlaylistColumns = "id, sequence, user_id, playlist_name, remote_id, remote_url, created_at"

// Create records a remote playlist. One record per user and playlist name.
func (r *UserPlaylistRepository) Create(ctx context.Context, up *models.UserPlaylist) error {
	if err := up.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "user_playlists")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	up.ID = shared.GenerateID()
	up.Sequence = sequence

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO user_playlists ("+userPlaylistColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		up.ID, up.Sequence, up.UserID, up.PlaylistName, up.RemoteID, up.RemoteURL, up.CreatedAt,
	)
	if err != nil {
		return writeErr(err, "insert", "user playlist "+up.PlaylistName)
	}

	return nil
}

// Find retrieves the record for userID and playlistName.
func (r *UserPlaylistRepository) Find(ctx context.Context, userID, playlistName string) (*models.UserPlaylist, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+userPlaylistColumns+" FROM user_playlists WHERE user_id = ? AND playlist_name = ?",
		userID, playlistName,
	)
	up, err := scanUserPlaylist(row)
	if err != nil {
		return nil, notFound(err, "user playlist", playlistName)
	}
	return up, nil
}

// ListByUser returns a user's records in creation order.
func (r *UserPlaylistRepository) ListByUser(ctx context.Context, userID string) ([]*models.UserPlaylist, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userPlaylistColumns+" FROM user_playlists WHERE user_id = ? ORDER BY sequence ASC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query user playlists: %w", err)
	}
	defer rows.Close()

	ups := []*models.UserPlaylist{}
	for rows.Next() {
		up, err := scanUserPlaylist(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user playlist: %w", err)
		}
		ups = append(ups, up)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return ups, nil
}

// Delete removes the record for userID and playlistName.
func (r *UserPlaylistRepository) Delete(ctx context.Context, userID, playlistName string) error {
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM user_playlists WHERE user_id = ? AND playlist_name = ?",
		userID, playlistName,
	)
	if err != nil {
		return fmt.Errorf("failed to delete user playlist: %w", err)
	}
	return expectOne(result, "user playlist", playlistName)
}

func scanUserPlaylist(s scanner) (*models.UserPlaylist, error) {
	var up models.UserPlaylist
	if err := s.Scan(&up.ID, &up.Sequence, &up.UserID, &up.PlaylistName, &up.RemoteID, &up.RemoteURL, &up.CreatedAt); err != nil {
		return nil, err
	}
	return &up, nil
}
