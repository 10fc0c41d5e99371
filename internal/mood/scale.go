package mood

import (
	"fmt"
	"strings"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// Rescaler turns questionnaire answers into a catalog-scale query and its threshold.
type Rescaler struct {
	Questionnaire models.Scale
	Catalog       models.Scale
	Factor        int
	Threshold     int
	Widening      int
}

// NewRescaler reads the rescale parameters from cfg.
func NewRescaler(cfg shared.MatchingConfig) Rescaler {
	return Rescaler{
		Questionnaire: models.Scale{Min: cfg.QuestionnaireMin, Max: cfg.QuestionnaireMax},
		Catalog:       models.Scale{Min: cfg.ScaleMin, Max: cfg.ScaleMax},
		Factor:        cfg.ScaleFactor,
		Threshold:     cfg.Threshold,
		Widening:      cfg.ExtremeWidening,
	}
}

// Rescale multiplies each answer by the factor, clamped to the catalog scale.
//
// The threshold widens once when any raw answer sits at either end of the questionnaire scale.
func (r Rescaler) Rescale(answers models.MoodVector) (models.MoodVector, int, error) {
	if err := answers.ValidateOn(r.Questionnaire); err != nil {
		return models.MoodVector{}, 0, err
	}

	threshold := r.Threshold
	extreme := false
	scaled := [4]int{}
	for i, a := range answers.Axes() {
		if a == r.Questionnaire.Min || a == r.Questionnaire.Max {
			extreme = true
		}
		scaled[i] = min(max(a*r.Factor, r.Catalog.Min), r.Catalog.Max)
	}
	if extreme {
		threshold += r.Widening
	}

	return models.MoodVector{Happiness: scaled[0], Sadness: scaled[1], Love: scaled[2], Energy: scaled[3]}, threshold, nil
}

// Normalize maps each axis onto 0..1 within scale.
func Normalize(v models.MoodVector, scale models.Scale) [4]float64 {
	span := float64(scale.Max - scale.Min)
	var out [4]float64
	for i, a := range v.Axes() {
		out[i] = float64(a-scale.Min) / span
	}
	return out
}

// KeywordRule appends Keyword when the normalized value of Axis exceeds the watermark.
type KeywordRule struct {
	Axis    int
	Keyword string
}

// Axis indexes into [models.MoodVector.Axes].
const (
	AxisHappiness = iota
	AxisSadness
	AxisLove
	AxisEnergy
)

// DefaultKeywordRules is evaluated in order; the resulting keywords keep this order.
var DefaultKeywordRules = []KeywordRule{
	{Axis: AxisHappiness, Keyword: "happy"},
	{Axis: AxisEnergy, Keyword: "energetic"},
	{Axis: AxisSadness, Keyword: "sad"},
	{Axis: AxisLove, Keyword: "romantic"},
}

// QueryBuilder translates a mood into a remote search expression.
type QueryBuilder struct {
	Scale     models.Scale
	Watermark float64
	Default   string
	Rules     []KeywordRule
}

// NewQueryBuilder builds a [QueryBuilder] with [DefaultKeywordRules].
func NewQueryBuilder(scale models.Scale, remote shared.RemoteConfig) QueryBuilder {
	return QueryBuilder{
		Scale:     scale,
		Watermark: remote.Watermark,
		Default:   remote.DefaultKeywords,
		Rules:     DefaultKeywordRules,
	}
}

// Build returns the space-separated keywords for v, or the default when no axis crosses the watermark.
func (b QueryBuilder) Build(v models.MoodVector) string {
	norm := Normalize(v, b.Scale)

	var keywords []string
	for _, rule := range b.Rules {
		if norm[rule.Axis] > b.Watermark {
			keywords = append(keywords, rule.Keyword)
		}
	}

	if len(keywords) == 0 {
		return b.Default
	}
	return strings.Join(keywords, " ")
}

// Describe renders a short human label for a vector, e.g. "happy energetic (h8 s2 l5 e9)".
func (b QueryBuilder) Describe(v models.MoodVector) string {
	return fmt.Sprintf("%s (h%d s%d l%d e%d)", b.Build(v), v.Happiness, v.Sadness, v.Love, v.Energy)
}
