package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// MoodRepository persists catalog moods. Vectors are unique.
type MoodRepository struct {
	db *sql.DB
}

// NewMoodRepository creates a new MoodRepository with the given database connection
func NewMoodRepository(db *sql.DB) *MoodRepository {
	return &MoodRepository{db: db}
}

const moodColumns = "id, sequence, happiness, sadness, love, energy, created_at, updated_at"

// Create inserts a mood with a generated ID and sequence.
//
// A second mood with the same vector fails with [shared.ErrDuplicate].
func (r *MoodRepository) Create(ctx context.Context, mood *models.Mood) error {
	if err := mood.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "moods")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	mood.ID = shared.GenerateID()
	mood.Sequence = sequence

	v := mood.Vector
	_, err = r.db.ExecContext(ctx,
		"INSERT INTO moods ("+moodColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		mood.ID, mood.Sequence, v.Happiness, v.Sadness, v.Love, v.Energy, mood.CreatedAt, mood.UpdatedAt,
	)
	if err != nil {
		return writeErr(err, "insert", "mood "+v.String())
	}

	return nil
}

// Get retrieves a mood by ID.
func (r *MoodRepository) Get(ctx context.Context, id string) (*models.Mood, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+moodColumns+" FROM moods WHERE id = ?", id)
	mood, err := scanMood(row)
	if err != nil {
		return nil, notFound(err, "mood", id)
	}
	return mood, nil
}

// FindByVector retrieves the mood with exactly this vector.
func (r *MoodRepository) FindByVector(ctx context.Context, v models.MoodVector) (*models.Mood, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+moodColumns+" FROM moods WHERE happiness = ? AND sadness = ? AND love = ? AND energy = ?",
		v.Happiness, v.Sadness, v.Love, v.Energy,
	)
	mood, err := scanMood(row)
	if err != nil {
		return nil, notFound(err, "mood", v.String())
	}
	return mood, nil
}

// List returns every mood in insertion order.
func (r *MoodRepository) List(ctx context.Context) ([]*models.Mood, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+moodColumns+" FROM moods ORDER BY sequence ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query moods: %w", err)
	}
	defer rows.Close()

	moods := []*models.Mood{}
	for rows.Next() {
		mood, err := scanMood(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan mood: %w", err)
		}
		moods = append(moods, mood)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return moods, nil
}

// Update replaces the vector of an existing mood.
func (r *MoodRepository) Update(ctx context.Context, mood *models.Mood) error {
	if err := mood.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	mood.UpdatedAt = time.Now()
	v := mood.Vector

	result, err := r.db.ExecContext(ctx,
		"UPDATE moods SET happiness = ?, sadness = ?, love = ?, energy = ?, updated_at = ? WHERE id = ?",
		v.Happiness, v.Sadness, v.Love, v.Energy, mood.UpdatedAt, mood.ID,
	)
	if err != nil {
		return writeErr(err, "update", "mood "+v.String())
	}

	return expectOne(result, "mood", mood.ID)
}

// Delete removes a mood. Its tracks keep their dangling mood_id until reassigned.
func (r *MoodRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM moods WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete mood: %w", err)
	}
	return expectOne(result, "mood", id)
}

func scanMood(s scanner) (*models.Mood, error) {
	var m models.Mood
	err := s.Scan(&m.ID, &m.Sequence,
		&m.Vector.Happiness, &m.Vector.Sadness, &m.Vector.Love, &m.Vector.Energy,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
