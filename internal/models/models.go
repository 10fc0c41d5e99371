// package models defines the data model for mood-matched playlists
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/desertthunder/moodlist/internal/shared"
)

// Name bounds shared by playlists and usernames.
const (
	MinNameLength = 3
	MaxNameLength = 20
)

var (
	ErrInvalidMood         = fmt.Errorf("%w: invalid mood", shared.ErrInvalidInput)
	ErrInvalidTrack        = fmt.Errorf("%w: invalid track", shared.ErrInvalidInput)
	ErrInvalidPlaylistName = fmt.Errorf("%w: invalid playlist name", shared.ErrInvalidInput)
	ErrInvalidUsername     = fmt.Errorf("%w: invalid username", shared.ErrInvalidInput)
)

// Model is implemented by every persisted entity.
type Model interface {
	Validate() error
}

// Scale is the closed integer range every mood axis must fall in.
type Scale struct {
	Min int
	Max int
}

// DefaultScale is the 1–10 catalog scale.
var DefaultScale = Scale{Min: 1, Max: 10}

// Contains reports whether v lies within the scale.
func (s Scale) Contains(v int) bool {
	return v >= s.Min && v <= s.Max
}

// MoodVector describes emotional content on four independent axes.
type MoodVector struct {
	Happiness int `json:"happiness" toml:"happiness"`
	Sadness   int `json:"sadness" toml:"sadness"`
	Love      int `json:"love" toml:"love"`
	Energy    int `json:"energy" toml:"energy"`
}

// NewMoodVector builds a vector and validates it against scale.
func NewMoodVector(scale Scale, happiness, sadness, love, energy int) (MoodVector, error) {
	v := MoodVector{Happiness: happiness, Sadness: sadness, Love: love, Energy: energy}
	if err := v.ValidateOn(scale); err != nil {
		return MoodVector{}, err
	}
	return v, nil
}

// AxisNames lists the axes in [MoodVector.Axes] order.
var AxisNames = [4]string{"happiness", "sadness", "love", "energy"}

// Axes returns the axis values as happiness, sadness, love, energy.
func (v MoodVector) Axes() [4]int {
	return [4]int{v.Happiness, v.Sadness, v.Love, v.Energy}
}

// ValidateOn checks every axis against scale.
func (v MoodVector) ValidateOn(scale Scale) error {
	for i, a := range v.Axes() {
		if !scale.Contains(a) {
			return fmt.Errorf("%w: %s=%d outside %d..%d", ErrInvalidMood, AxisNames[i], a, scale.Min, scale.Max)
		}
	}
	return nil
}

// Validate checks the vector against [DefaultScale].
func (v MoodVector) Validate() error {
	return v.ValidateOn(DefaultScale)
}

func (v MoodVector) String() string {
	return fmt.Sprintf("{happiness=%d sadness=%d love=%d energy=%d}", v.Happiness, v.Sadness, v.Love, v.Energy)
}

// Mood is a catalog entry. Tracks point at their mood through [Track.MoodID].
type Mood struct {
	ID        string     `json:"id"`
	Sequence  int        `json:"-"`
	Vector    MoodVector `json:"vector"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// NewMood creates a mood with timestamps set to now.
func NewMood(v MoodVector) *Mood {
	now := time.Now()
	return &Mood{Vector: v, CreatedAt: now, UpdatedAt: now}
}

func (m *Mood) Validate() error {
	return m.Vector.Validate()
}

// Track is a mood-tagged song. PlaylistID is empty until the track is assigned.
type Track struct {
	ID         string    `json:"id"`
	Sequence   int       `json:"-"`
	Title      string    `json:"title"`
	Artist     string    `json:"artist"`
	Genre      string    `json:"genre,omitempty"`
	MoodID     string    `json:"mood_id"`
	PlaylistID string    `json:"playlist_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewTrack creates a track tagged with moodID.
func NewTrack(title, artist, genre, moodID string) *Track {
	now := time.Now()
	return &Track{
		Title:     strings.TrimSpace(title),
		Artist:    strings.TrimSpace(artist),
		Genre:     strings.TrimSpace(genre),
		MoodID:    moodID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Key returns the normalized artist/title lookup key.
func (t *Track) Key() string {
	return shared.NormalizeTrackKey(t.Artist, t.Title)
}

// Assigned reports whether the track belongs to a playlist.
func (t *Track) Assigned() bool {
	return t.PlaylistID != ""
}

func (t *Track) Validate() error {
	switch {
	case strings.TrimSpace(t.Title) == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTrack)
	case strings.TrimSpace(t.Artist) == "":
		return fmt.Errorf("%w: artist is required", ErrInvalidTrack)
	case t.MoodID == "":
		return fmt.Errorf("%w: mood is required", ErrInvalidTrack)
	}
	return nil
}

// Playlist is a named set of tracks. TrackIDs is resolved from the track store on load.
type Playlist struct {
	ID        string    `json:"id"`
	Sequence  int       `json:"-"`
	Name      string    `json:"name"`
	TrackIDs  []string  `json:"track_ids"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPlaylist creates an empty playlist.
func NewPlaylist(name string) *Playlist {
	now := time.Now()
	return &Playlist{Name: name, TrackIDs: []string{}, CreatedAt: now, UpdatedAt: now}
}

func (p *Playlist) Validate() error {
	return ValidatePlaylistName(p.Name)
}

// ValidatePlaylistName enforces a non-blank name of 3 to 20 characters.
func ValidatePlaylistName(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPlaylistName, err)
	}
	return nil
}

// ValidateUsername applies the same bounds as playlist names.
func ValidateUsername(name string) error {
	if err := validateName(name); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidUsername, err)
	}
	return nil
}

func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("must not be blank")
	}
	if n := utf8.RuneCountInString(name); n < MinNameLength || n > MaxNameLength {
		return fmt.Errorf("must be %d-%d characters, got %d", MinNameLength, MaxNameLength, n)
	}
	return nil
}

// UserPlaylist records a remote playlist generated for a user.
type UserPlaylist struct {
	ID           string    `json:"id"`
	Sequence     int       `json:"-"`
	UserID       string    `json:"user_id"`
	PlaylistName string    `json:"playlist_name"`
	RemoteID     string    `json:"remote_id"`
	RemoteURL    string    `json:"remote_url"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *UserPlaylist) Validate() error {
	if u.UserID == "" || u.RemoteID == "" {
		return fmt.Errorf("%w: user playlist requires user and remote id", shared.ErrInvalidInput)
	}
	return ValidatePlaylistName(u.PlaylistName)
}
