package mood

import (
	"errors"
	"math/rand"
	"testing"
	"testing/quick"

	"github.com/desertthunder/moodlist/internal/models"
)

func vec(h, s, l, e int) models.MoodVector {
	return models.MoodVector{Happiness: h, Sadness: s, Love: l, Energy: e}
}

func catalogOf(entries ...any) *Catalog {
	var (
		moods  []*models.Mood
		tracks []*models.Track
	)
	for i := 0; i < len(entries); i += 2 {
		m := &models.Mood{ID: string(rune('a' + i/2)), Vector: entries[i].(models.MoodVector)}
		moods = append(moods, m)
		for _, title := range entries[i+1].([]string) {
			tracks = append(tracks, &models.Track{ID: title, Title: title, Artist: "x", MoodID: m.ID})
		}
	}
	return NewCatalog(moods, tracks)
}

func ids(tracks []models.Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.ID
	}
	return out
}

func TestMatch(t *testing.T) {
	t.Run("only the close mood matches", func(t *testing.T) {
		c := catalogOf(
			vec(5, 5, 5, 5), []string{"TrackA"},
			vec(9, 9, 9, 9), []string{"TrackB"},
		)

		got := ids(Match(vec(5, 5, 5, 5), c, 2))
		if len(got) != 1 || got[0] != "TrackA" {
			t.Errorf("Match() = %v, want [TrackA]", got)
		}
	})

	t.Run("empty catalog", func(t *testing.T) {
		got := Match(vec(5, 5, 5, 5), NewCatalog(nil, nil), 2)
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}

		if got := Match(vec(5, 5, 5, 5), nil, 2); len(got) != 0 {
			t.Errorf("expected empty result for nil catalog, got %v", got)
		}
	})

	t.Run("every axis is checked", func(t *testing.T) {
		tests := []struct {
			name  string
			mood  models.MoodVector
			match bool
		}{
			{name: "all at boundary", mood: vec(7, 3, 7, 3), match: true},
			{name: "happiness out", mood: vec(8, 5, 5, 5)},
			{name: "sadness out", mood: vec(5, 2, 5, 5)},
			{name: "love out", mood: vec(5, 5, 8, 5)},
			{name: "energy out", mood: vec(5, 5, 5, 2)},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				c := catalogOf(tt.mood, []string{"T"})
				got := len(Match(vec(5, 5, 5, 5), c, 2)) == 1
				if got != tt.match {
					t.Errorf("Match() matched = %v, want %v", got, tt.match)
				}
			})
		}
	})

	t.Run("union keeps insertion order", func(t *testing.T) {
		c := catalogOf(
			vec(4, 4, 4, 4), []string{"A1", "A2"},
			vec(9, 9, 9, 9), []string{"B1"},
			vec(6, 6, 6, 6), []string{"C1"},
		)

		got := ids(Match(vec(5, 5, 5, 5), c, 1))
		want := []string{"A1", "A2", "C1"}
		if len(got) != len(want) {
			t.Fatalf("Match() = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("Match()[%d] = %s, want %s", i, got[i], want[i])
			}
		}
	})

	t.Run("threshold zero requires equality", func(t *testing.T) {
		c := catalogOf(vec(5, 5, 5, 5), []string{"Exact"}, vec(5, 5, 5, 6), []string{"Near"})
		got := ids(Match(vec(5, 5, 5, 5), c, 0))
		if len(got) != 1 || got[0] != "Exact" {
			t.Errorf("Match() = %v, want [Exact]", got)
		}
	})

	t.Run("negative threshold", func(t *testing.T) {
		c := catalogOf(vec(5, 5, 5, 5), []string{"T"})
		if got := Match(vec(5, 5, 5, 5), c, -1); len(got) != 0 {
			t.Errorf("expected no matches, got %v", got)
		}

		if _, err := MatchChecked(vec(5, 5, 5, 5), c, -1, models.DefaultScale); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("expected ErrInvalidThreshold, got %v", err)
		}
	})

	t.Run("MatchChecked rejects out of scale query", func(t *testing.T) {
		c := catalogOf(vec(5, 5, 5, 5), []string{"T"})
		if _, err := MatchChecked(vec(0, 5, 5, 5), c, 2, models.DefaultScale); !errors.Is(err, models.ErrInvalidMood) {
			t.Errorf("expected ErrInvalidMood, got %v", err)
		}
	})

	t.Run("MatchingMoods", func(t *testing.T) {
		c := catalogOf(vec(5, 5, 5, 5), []string{}, vec(9, 9, 9, 9), []string{})
		moods := MatchingMoods(vec(6, 6, 6, 6), c, 1)
		if len(moods) != 1 || moods[0].Vector != vec(5, 5, 5, 5) {
			t.Errorf("MatchingMoods() = %v", moods)
		}
	})
}

// randomVector draws an in-scale vector.
func randomVector(r *rand.Rand) models.MoodVector {
	return vec(1+r.Intn(10), 1+r.Intn(10), 1+r.Intn(10), 1+r.Intn(10))
}

func TestMatchPerAxisProperty(t *testing.T) {
	property := func(seed int64) bool {
		r := rand.New(rand.NewSource(seed))
		query := randomVector(r)
		threshold := r.Intn(6)

		var entries []any
		for i := 0; i < 8; i++ {
			entries = append(entries, randomVector(r), []string{string(rune('A' + i))})
		}
		c := catalogOf(entries...)

		matched := map[string]bool{}
		for _, tr := range Match(query, c, threshold) {
			matched[tr.ID] = true
		}

		for _, m := range c.Moods() {
			want := true
			qa, ma := query.Axes(), m.Vector.Axes()
			for i := range qa {
				d := qa[i] - ma[i]
				if d < 0 {
					d = -d
				}
				if d > threshold {
					want = false
				}
			}
			for _, tr := range c.TracksFor(m.ID) {
				if matched[tr.ID] != want {
					return false
				}
			}
		}
		return true
	}

	if err := quick.Check(property, &quick.Config{MaxCount: 500}); err != nil {
		t.Error(err)
	}
}

func TestCatalog(t *testing.T) {
	moods := []*models.Mood{{ID: "m1", Vector: vec(1, 2, 3, 4)}, {ID: "m2", Vector: vec(5, 6, 7, 8)}}
	tracks := []*models.Track{
		{ID: "t1", MoodID: "m1"},
		{ID: "t2", MoodID: "gone"},
		{ID: "t3", MoodID: "m1"},
	}
	c := NewCatalog(moods, tracks)

	t.Run("Len", func(t *testing.T) {
		if c.Len() != 2 {
			t.Errorf("Len() = %d, want 2", c.Len())
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		m, ok := c.Lookup(vec(5, 6, 7, 8))
		if !ok || m.ID != "m2" {
			t.Errorf("Lookup() = %v, %v", m, ok)
		}
		if _, ok := c.Lookup(vec(1, 1, 1, 1)); ok {
			t.Error("expected lookup miss")
		}
	})

	t.Run("Get", func(t *testing.T) {
		if m, ok := c.Get("m1"); !ok || m.Vector != vec(1, 2, 3, 4) {
			t.Errorf("Get() = %v, %v", m, ok)
		}
	})

	t.Run("dangling tracks are excluded", func(t *testing.T) {
		got := ids(c.TracksFor("m1"))
		if len(got) != 2 || got[0] != "t1" || got[1] != "t3" {
			t.Errorf("TracksFor() = %v", got)
		}
		if len(c.TracksFor("gone")) != 0 {
			t.Error("expected no tracks for unknown mood")
		}
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		ms := c.Moods()
		ms[0].ID = "changed"
		if c.Moods()[0].ID != "m1" {
			t.Error("Moods() should return a copy")
		}
	})
}
