package mood

import (
	"errors"
	"testing"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

func TestRescaler(t *testing.T) {
	r := NewRescaler(shared.DefaultConfig().Matching)

	tests := []struct {
		name          string
		answers       models.MoodVector
		want          models.MoodVector
		wantThreshold int
	}{
		{name: "middle answers", answers: vec(2, 3, 4, 3), want: vec(4, 6, 8, 6), wantThreshold: 2},
		{name: "low extreme widens", answers: vec(1, 3, 3, 3), want: vec(2, 6, 6, 6), wantThreshold: 3},
		{name: "high extreme widens once", answers: vec(5, 5, 3, 3), want: vec(10, 10, 6, 6), wantThreshold: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, threshold, err := r.Rescale(tt.answers)
			if err != nil {
				t.Fatalf("Rescale() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Rescale() = %v, want %v", got, tt.want)
			}
			if threshold != tt.wantThreshold {
				t.Errorf("Rescale() threshold = %d, want %d", threshold, tt.wantThreshold)
			}
		})
	}

	t.Run("out of questionnaire scale", func(t *testing.T) {
		if _, _, err := r.Rescale(vec(6, 3, 3, 3)); !errors.Is(err, models.ErrInvalidMood) {
			t.Errorf("expected ErrInvalidMood, got %v", err)
		}
	})

	t.Run("configurable factor clamps to catalog", func(t *testing.T) {
		custom := Rescaler{
			Questionnaire: models.Scale{Min: 1, Max: 5},
			Catalog:       models.Scale{Min: 1, Max: 10},
			Factor:        3,
			Threshold:     3,
		}
		got, threshold, err := custom.Rescale(vec(4, 2, 2, 2))
		if err != nil {
			t.Fatalf("Rescale() error = %v", err)
		}
		if got != vec(10, 6, 6, 6) || threshold != 3 {
			t.Errorf("Rescale() = %v, %d", got, threshold)
		}
	})
}

func TestQueryBuilder(t *testing.T) {
	b := NewQueryBuilder(models.DefaultScale, shared.DefaultConfig().Remote)

	tests := []struct {
		name string
		v    models.MoodVector
		want string
	}{
		{name: "nothing high uses default", v: vec(5, 5, 5, 5), want: "relaxing chill"},
		{name: "at watermark is not above", v: vec(7, 1, 1, 1), want: "relaxing chill"},
		{name: "happy", v: vec(8, 1, 1, 1), want: "happy"},
		{name: "rule order not axis order", v: vec(9, 9, 9, 9), want: "happy energetic sad romantic"},
		{name: "sad and romantic", v: vec(2, 10, 10, 3), want: "sad romantic"},
		{name: "energetic only", v: vec(1, 1, 1, 10), want: "energetic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := b.Build(tt.v); got != tt.want {
				t.Errorf("Build(%v) = %q, want %q", tt.v, got, tt.want)
			}
		})
	}

	t.Run("questionnaire scale", func(t *testing.T) {
		qb := QueryBuilder{Scale: models.Scale{Min: 1, Max: 5}, Watermark: 0.7, Default: "relaxing chill", Rules: DefaultKeywordRules}
		if got := qb.Build(vec(5, 3, 3, 5)); got != "happy energetic" {
			t.Errorf("Build() = %q", got)
		}
	})

	t.Run("Describe", func(t *testing.T) {
		if got := b.Describe(vec(8, 2, 5, 9)); got != "happy energetic (h8 s2 l5 e9)" {
			t.Errorf("Describe() = %q", got)
		}
	})
}

func TestNormalize(t *testing.T) {
	got := Normalize(vec(1, 10, 5, 3), models.Scale{Min: 1, Max: 5})
	if got[0] != 0 || got[2] != 1 || got[3] != 0.5 {
		t.Errorf("Normalize() = %v", got)
	}
}
