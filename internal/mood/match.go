// Package mood implements the mood catalog and the matching algorithm.
package mood

import (
	"fmt"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

var ErrInvalidThreshold = fmt.Errorf("%w: threshold must not be negative", shared.ErrInvalidInput)

// Within reports whether m lies inside the per-axis box of radius threshold around q.
//
// Every axis is bounded independently (L∞ distance), never summed.
func Within(q, m models.MoodVector, threshold int) bool {
	qa, ma := q.Axes(), m.Axes()
	for i := range qa {
		if abs(qa[i]-ma[i]) > threshold {
			return false
		}
	}
	return true
}

// Match returns the tracks of every catalog mood within threshold of query.
//
// Tracks come back in catalog insertion order. An empty catalog or a negative threshold
// yields an empty slice.
func Match(query models.MoodVector, catalog *Catalog, threshold int) []models.Track {
	matched := []models.Track{}
	if catalog == nil || threshold < 0 {
		return matched
	}

	for _, m := range catalog.moods {
		if Within(query, m.Vector, threshold) {
			matched = append(matched, catalog.tracks[m.ID]...)
		}
	}

	return matched
}

// MatchChecked validates query and threshold on scale before matching.
func MatchChecked(query models.MoodVector, catalog *Catalog, threshold int, scale models.Scale) ([]models.Track, error) {
	if threshold < 0 {
		return nil, ErrInvalidThreshold
	}
	if err := query.ValidateOn(scale); err != nil {
		return nil, err
	}
	return Match(query, catalog, threshold), nil
}

// MatchingMoods returns the catalog moods within threshold of query, in insertion order.
func MatchingMoods(query models.MoodVector, catalog *Catalog, threshold int) []models.Mood {
	moods := []models.Mood{}
	if catalog == nil || threshold < 0 {
		return moods
	}
	for _, m := range catalog.moods {
		if Within(query, m.Vector, threshold) {
			moods = append(moods, m)
		}
	}
	return moods
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
