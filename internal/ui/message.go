package ui

import (
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/tasks"
)

// matchesMsg carries the preview for the rescaled answers.
type matchesMsg struct {
	query     models.MoodVector
	threshold int
	tracks    []models.Track
	err       error
}

type progressMsg tasks.ProgressUpdate

// Result is what the questionnaire produced once confirmed.
type Result struct {
	Query     models.MoodVector
	Threshold int
	Playlist  *models.Playlist
	Tracks    []models.Track
	Remote    *tasks.RemotePlaylistRef
}

type savedMsg struct {
	result *Result
	err    error
}
