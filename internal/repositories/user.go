package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// UserRepository persists users and their token records.
//
// Deletes are soft; a deleted username may be registered again.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, sequence, username, access_token, refresh_token, token_expires_at, token_issued_at, created_at, updated_at, deleted_at"

// Create inserts a new user with generated ID and sequence
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "users")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	user.ID = shared.GenerateID()
	user.Sequence = sequence

	tok := user.Token
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO users (id, sequence, username, access_token, refresh_token, token_expires_at, token_issued_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		user.ID,
		user.Sequence,
		user.Username,
		tok.AccessToken,
		nullString(tok.RefreshToken),
		nullTime(tok.ExpiresAt),
		nullTime(tok.IssuedAt),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		return writeErr(err, "insert", "user "+user.Username)
	}

	return nil
}

// Get retrieves a user by ID, excluding soft-deleted users
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? AND deleted_at IS NULL", id)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return user, nil
}

// FindByUsername retrieves an active user by username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ? AND deleted_at IS NULL", username)
	user, err := scanUser(row)
	if err != nil {
		return nil, notFound(err, "user", username)
	}
	return user, nil
}

// Save writes the token record of an existing user.
//
// The access token and its expiry are always written together.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if err := user.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	user.UpdatedAt = time.Now()
	tok := user.Token

	result, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET username = ?, access_token = ?, refresh_token = ?, token_expires_at = ?, token_issued_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`,
		user.Username,
		tok.AccessToken,
		nullString(tok.RefreshToken),
		nullTime(tok.ExpiresAt),
		nullTime(tok.IssuedAt),
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return writeErr(err, "update", "user "+user.Username)
	}

	return expectOne(result, "user", user.ID)
}

// Delete soft-deletes a user by ID
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(result, "user", id)
}

// List returns active users in creation order.
func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users WHERE deleted_at IS NULL ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return users, nil
}

func scanUser(s scanner) (*models.User, error) {
	var (
		u            models.User
		refreshToken sql.NullString
		expiresAt    sql.NullTime
		issuedAt     sql.NullTime
		deletedAt    sql.NullTime
	)

	err := s.Scan(&u.ID, &u.Sequence, &u.Username, &u.Token.AccessToken, &refreshToken, &expiresAt, &issuedAt,
		&u.CreatedAt, &u.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	u.Token.RefreshToken = refreshToken.String
	if expiresAt.Valid {
		u.Token.ExpiresAt = expiresAt.Time
	}
	if issuedAt.Valid {
		u.Token.IssuedAt = issuedAt.Time
	}
	if deletedAt.Valid {
		u.DeletedAt = &deletedAt.Time
	}

	return &u, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
