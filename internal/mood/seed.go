package mood

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// SeedFile is the TOML layout for bulk catalog loading:
//
//	[[moods]]
//	happiness = 8
//	sadness = 2
//	love = 5
//	energy = 9
//
//	  [[moods.tracks]]
//	  title = "Dancing Queen"
//	  artist = "ABBA"
//	  genre = "pop"
type SeedFile struct {
	Moods []SeedMood `toml:"moods"`
}

// SeedMood is one mood and its tracks.
type SeedMood struct {
	models.MoodVector
	Tracks []SeedTrack `toml:"tracks"`
}

// SeedTrack is one track of a [SeedMood].
type SeedTrack struct {
	Title  string `toml:"title"`
	Artist string `toml:"artist"`
	Genre  string `toml:"genre"`
}

// SeedResult counts what [Service.Seed] did.
type SeedResult struct {
	MoodsAdded    int
	MoodsExisting int
	TracksAdded   int
	TracksSkipped int
}

// LoadSeedFile parses a seed file from disk.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed SeedFile
	if err := toml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("%w: failed to parse seed file: %v", shared.ErrInvalidInput, err)
	}

	return &seed, nil
}

// Seed adds every mood and track in seed.
//
// Existing moods are reused and duplicate tracks skipped, so seeding twice is harmless.
// Invalid entries abort the run.
func (s *Service) Seed(ctx context.Context, seed *SeedFile) (SeedResult, error) {
	var result SeedResult

	for i, sm := range seed.Moods {
		mood, err := s.AddMood(ctx, sm.MoodVector)
		switch {
		case errors.Is(err, ErrMoodExists):
			if mood, err = s.moods.FindByVector(ctx, sm.MoodVector); err != nil {
				return result, err
			}
			result.MoodsExisting++
		case err != nil:
			return result, fmt.Errorf("mood #%d: %w", i+1, err)
		default:
			result.MoodsAdded++
		}

		for _, st := range sm.Tracks {
			_, err := s.AddTrack(ctx, st.Title, st.Artist, st.Genre, mood.ID)
			switch {
			case errors.Is(err, ErrTrackExists):
				result.TracksSkipped++
			case err != nil:
				return result, fmt.Errorf("mood #%d track %q: %w", i+1, st.Title, err)
			default:
				result.TracksAdded++
			}
		}
	}

	s.logger.Info("catalog seeded",
		"moods_added", result.MoodsAdded,
		"moods_existing", result.MoodsExisting,
		"tracks_added", result.TracksAdded,
		"tracks_skipped", result.TracksSkipped,
	)

	return result, nil
}
