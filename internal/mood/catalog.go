package mood

import (
	"context"
	"fmt"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
)

// Catalog is an immutable in-memory snapshot of moods and the tracks tagged with them.
type Catalog struct {
	moods  []models.Mood
	byID   map[string]int
	tracks map[string][]models.Track
}

// NewCatalog builds a catalog from moods and tracks, both in insertion order.
//
// Tracks whose mood is not in moods are left out; they are waiting for reassignment.
func NewCatalog(moods []*models.Mood, tracks []*models.Track) *Catalog {
	c := &Catalog{
		moods:  make([]models.Mood, 0, len(moods)),
		byID:   make(map[string]int, len(moods)),
		tracks: make(map[string][]models.Track, len(moods)),
	}

	for _, m := range moods {
		if _, dup := c.byID[m.ID]; dup {
			continue
		}
		c.byID[m.ID] = len(c.moods)
		c.moods = append(c.moods, *m)
	}

	for _, t := range tracks {
		if _, ok := c.byID[t.MoodID]; !ok {
			continue
		}
		c.tracks[t.MoodID] = append(c.tracks[t.MoodID], *t)
	}

	return c
}

// MoodLister and TrackLister are the read halves of [MoodStore] and [TrackStore].
type (
	MoodLister interface {
		List(ctx context.Context) ([]*models.Mood, error)
	}
	TrackLister interface {
		List(ctx context.Context, filter repositories.TrackFilter) ([]*models.Track, error)
	}
)

// LoadCatalog reads every mood and track into a [Catalog].
func LoadCatalog(ctx context.Context, moods MoodLister, tracks TrackLister) (*Catalog, error) {
	ms, err := moods.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load moods: %w", err)
	}

	ts, err := tracks.List(ctx, repositories.TrackFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to load tracks: %w", err)
	}

	return NewCatalog(ms, ts), nil
}

// Len returns the number of moods.
func (c *Catalog) Len() int {
	return len(c.moods)
}

// Moods returns a copy of the moods in insertion order.
func (c *Catalog) Moods() []models.Mood {
	out := make([]models.Mood, len(c.moods))
	copy(out, c.moods)
	return out
}

// TracksFor returns a copy of the tracks tagged with moodID.
func (c *Catalog) TracksFor(moodID string) []models.Track {
	out := make([]models.Track, len(c.tracks[moodID]))
	copy(out, c.tracks[moodID])
	return out
}

// Lookup finds the mood with exactly vector v.
func (c *Catalog) Lookup(v models.MoodVector) (models.Mood, bool) {
	for _, m := range c.moods {
		if m.Vector == v {
			return m, true
		}
	}
	return models.Mood{}, false
}

// Get finds a mood by ID.
func (c *Catalog) Get(id string) (models.Mood, bool) {
	i, ok := c.byID[id]
	if !ok {
		return models.Mood{}, false
	}
	return c.moods[i], true
}
