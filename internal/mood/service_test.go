package mood

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/shared"
)

func setupService(t *testing.T) (*Service, *bytes.Buffer) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	var buf bytes.Buffer
	svc := NewService(repositories.NewMoodRepository(db), repositories.NewTrackRepository(db), models.DefaultScale, shared.NewLogger(&buf))
	return svc, &buf
}

func TestServiceMoods(t *testing.T) {
	ctx := context.Background()

	t.Run("AddMood", func(t *testing.T) {
		svc, _ := setupService(t)

		mood, err := svc.AddMood(ctx, vec(5, 5, 5, 5))
		if err != nil {
			t.Fatalf("AddMood() error = %v", err)
		}
		if mood.ID == "" {
			t.Error("expected generated ID")
		}

		if _, err := svc.AddMood(ctx, vec(5, 5, 5, 5)); !errors.Is(err, ErrMoodExists) {
			t.Errorf("expected ErrMoodExists, got %v", err)
		}
		if _, err := svc.AddMood(ctx, vec(11, 5, 5, 5)); !errors.Is(err, models.ErrInvalidMood) {
			t.Errorf("expected ErrInvalidMood, got %v", err)
		}
	})

	t.Run("GetMood not found", func(t *testing.T) {
		svc, _ := setupService(t)

		_, err := svc.GetMood(ctx, "missing")
		if !errors.Is(err, ErrMoodNotFound) || !errors.Is(err, shared.ErrNotFound) {
			t.Errorf("expected ErrMoodNotFound, got %v", err)
		}
	})

	t.Run("UpdateMood", func(t *testing.T) {
		svc, _ := setupService(t)
		a, _ := svc.AddMood(ctx, vec(1, 1, 1, 1))
		if _, err := svc.AddMood(ctx, vec(2, 2, 2, 2)); err != nil {
			t.Fatalf("AddMood() error = %v", err)
		}

		updated, err := svc.UpdateMood(ctx, a.ID, vec(3, 3, 3, 3))
		if err != nil {
			t.Fatalf("UpdateMood() error = %v", err)
		}
		if updated.Vector != vec(3, 3, 3, 3) {
			t.Errorf("UpdateMood() vector = %v", updated.Vector)
		}

		if _, err := svc.UpdateMood(ctx, a.ID, vec(2, 2, 2, 2)); !errors.Is(err, ErrMoodExists) {
			t.Errorf("expected ErrMoodExists, got %v", err)
		}
		if _, err := svc.UpdateMood(ctx, "missing", vec(4, 4, 4, 4)); !errors.Is(err, ErrMoodNotFound) {
			t.Errorf("expected ErrMoodNotFound, got %v", err)
		}
	})

	t.Run("DeleteMood warns about attached tracks", func(t *testing.T) {
		svc, buf := setupService(t)
		mood, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))
		if _, err := svc.AddTrack(ctx, "Song", "Artist", "pop", mood.ID); err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}

		if err := svc.DeleteMood(ctx, mood.ID); err != nil {
			t.Fatalf("DeleteMood() error = %v", err)
		}
		if !strings.Contains(buf.String(), "mood deleted with tracks attached") {
			t.Errorf("expected warning in log, got %q", buf.String())
		}

		if err := svc.DeleteMood(ctx, mood.ID); !errors.Is(err, ErrMoodNotFound) {
			t.Errorf("expected ErrMoodNotFound, got %v", err)
		}
	})
}

func TestServiceTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("AddTrack", func(t *testing.T) {
		svc, _ := setupService(t)
		mood, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))

		track, err := svc.AddTrack(ctx, " Halo ", "Beyoncé", "pop", mood.ID)
		if err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
		if track.Title != "Halo" {
			t.Errorf("expected trimmed title, got %q", track.Title)
		}

		tests := []struct {
			name    string
			title   string
			artist  string
			moodID  string
			wantErr error
		}{
			{name: "duplicate ignoring case and accents", title: "halo", artist: "beyonce", moodID: mood.ID, wantErr: ErrTrackExists},
			{name: "unknown mood", title: "Other", artist: "Someone", moodID: "missing", wantErr: ErrMoodNotFound},
			{name: "blank title", title: "  ", artist: "Someone", moodID: mood.ID, wantErr: models.ErrInvalidTrack},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := svc.AddTrack(ctx, tt.title, tt.artist, "", tt.moodID); !errors.Is(err, tt.wantErr) {
					t.Errorf("AddTrack() error = %v, want %v", err, tt.wantErr)
				}
			})
		}
	})

	t.Run("FindTrack", func(t *testing.T) {
		svc, _ := setupService(t)
		mood, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))
		added, _ := svc.AddTrack(ctx, "Song", "Artist", "", mood.ID)

		got, err := svc.FindTrack(ctx, "ARTIST", "song")
		if err != nil {
			t.Fatalf("FindTrack() error = %v", err)
		}
		if got.ID != added.ID {
			t.Errorf("FindTrack() = %s, want %s", got.ID, added.ID)
		}

		if _, err := svc.FindTrack(ctx, "Nobody", "Nothing"); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})

	t.Run("UpdateTrack moves mood", func(t *testing.T) {
		svc, _ := setupService(t)
		a, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))
		b, _ := svc.AddMood(ctx, vec(9, 9, 9, 9))
		track, _ := svc.AddTrack(ctx, "Song", "Artist", "", a.ID)

		updated, err := svc.UpdateTrack(ctx, track.ID, "Song", "Artist", "rock", b.ID)
		if err != nil {
			t.Fatalf("UpdateTrack() error = %v", err)
		}
		if updated.MoodID != b.ID || updated.Genre != "rock" {
			t.Errorf("UpdateTrack() = %+v", updated)
		}

		if _, err := svc.UpdateTrack(ctx, track.ID, "Song", "Artist", "", "missing"); !errors.Is(err, ErrMoodNotFound) {
			t.Errorf("expected ErrMoodNotFound, got %v", err)
		}
	})

	t.Run("DeleteTrack", func(t *testing.T) {
		svc, _ := setupService(t)
		mood, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))
		track, _ := svc.AddTrack(ctx, "Song", "Artist", "", mood.ID)

		if err := svc.DeleteTrack(ctx, track.ID); err != nil {
			t.Fatalf("DeleteTrack() error = %v", err)
		}
		if _, err := svc.GetTrack(ctx, track.ID); !errors.Is(err, ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
	})
}

func TestServiceLoad(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	a, _ := svc.AddMood(ctx, vec(5, 5, 5, 5))
	b, _ := svc.AddMood(ctx, vec(9, 9, 9, 9))
	if _, err := svc.AddTrack(ctx, "TrackA", "Artist", "", a.ID); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}
	if _, err := svc.AddTrack(ctx, "TrackB", "Artist", "", b.ID); err != nil {
		t.Fatalf("AddTrack() error = %v", err)
	}

	catalog, err := svc.Load(ctx)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got := Match(vec(5, 5, 5, 5), catalog, 2)
	if len(got) != 1 || got[0].Title != "TrackA" {
		t.Errorf("Match() over loaded catalog = %v, want [TrackA]", got)
	}
}

func TestServiceNearby(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	if _, err := svc.AddMood(ctx, vec(5, 5, 5, 5)); err != nil {
		t.Fatalf("AddMood() error = %v", err)
	}
	if _, err := svc.AddMood(ctx, vec(9, 9, 9, 9)); err != nil {
		t.Fatalf("AddMood() error = %v", err)
	}

	t.Run("within threshold", func(t *testing.T) {
		moods, err := svc.Nearby(ctx, vec(6, 6, 6, 6), 1)
		if err != nil {
			t.Fatalf("Nearby() error = %v", err)
		}
		if len(moods) != 1 || moods[0].Vector != vec(5, 5, 5, 5) {
			t.Errorf("Nearby() = %v", moods)
		}
	})

	t.Run("wide threshold keeps insertion order", func(t *testing.T) {
		moods, err := svc.Nearby(ctx, vec(7, 7, 7, 7), 2)
		if err != nil {
			t.Fatalf("Nearby() error = %v", err)
		}
		if len(moods) != 2 || moods[0].Vector != vec(5, 5, 5, 5) {
			t.Errorf("Nearby() = %v", moods)
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		if _, err := svc.Nearby(ctx, vec(5, 5, 5, 5), -1); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("expected ErrInvalidThreshold, got %v", err)
		}
		if _, err := svc.Nearby(ctx, vec(0, 5, 5, 5), 1); !errors.Is(err, models.ErrInvalidMood) {
			t.Errorf("expected ErrInvalidMood, got %v", err)
		}
	})
}

func TestSeed(t *testing.T) {
	ctx := context.Background()

	content := `
[[moods]]
happiness = 8
sadness = 2
love = 5
energy = 9

  [[moods.tracks]]
  title = "Dancing Queen"
  artist = "ABBA"
  genre = "pop"

  [[moods.tracks]]
  title = "Mr. Blue Sky"
  artist = "Electric Light Orchestra"

[[moods]]
happiness = 2
sadness = 9
love = 4
energy = 2

  [[moods.tracks]]
  title = "Hurt"
  artist = "Johnny Cash"
`

	path := filepath.Join(t.TempDir(), "seed.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write seed file: %v", err)
	}

	seed, err := LoadSeedFile(path)
	if err != nil {
		t.Fatalf("LoadSeedFile() error = %v", err)
	}
	if len(seed.Moods) != 2 || seed.Moods[0].Happiness != 8 || len(seed.Moods[0].Tracks) != 2 {
		t.Fatalf("unexpected seed file: %+v", seed)
	}

	t.Run("seeding twice is harmless", func(t *testing.T) {
		svc, _ := setupService(t)

		first, err := svc.Seed(ctx, seed)
		if err != nil {
			t.Fatalf("Seed() error = %v", err)
		}
		if first.MoodsAdded != 2 || first.TracksAdded != 3 {
			t.Errorf("first Seed() = %+v", first)
		}

		second, err := svc.Seed(ctx, seed)
		if err != nil {
			t.Fatalf("second Seed() error = %v", err)
		}
		if second.MoodsExisting != 2 || second.TracksSkipped != 3 || second.TracksAdded != 0 {
			t.Errorf("second Seed() = %+v", second)
		}
	})

	t.Run("invalid mood aborts", func(t *testing.T) {
		svc, _ := setupService(t)
		bad := &SeedFile{Moods: []SeedMood{{MoodVector: vec(0, 5, 5, 5)}}}

		if _, err := svc.Seed(ctx, bad); !errors.Is(err, models.ErrInvalidMood) {
			t.Errorf("expected ErrInvalidMood, got %v", err)
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.toml")
		os.WriteFile(bad, []byte("[[moods]\n"), 0644)

		if _, err := LoadSeedFile(bad); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}
