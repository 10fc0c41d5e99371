// Package ui implements the interactive mood questionnaire using bubbletea's Elm architecture.
//
// The TUI walks through a fixed sequence of views:
//  1. [QuestionView] : answer one question per mood axis on the questionnaire scale
//  2. [MatchView] : browse the catalog tracks matching the rescaled answers
//  3. [ConfirmView] : confirm creating the playlist
//  4. [ProgressView] : follow remote workflow progress
//  5. [ResultView] : the saved playlist, or the failure and any remote playlist left behind
//
// Answers are rescaled onto the catalog scale with [mood.Rescaler] before matching, so an extreme
// answer widens the threshold. Remote progress arrives on a channel read one update per command.
//
// The package also exports the lipgloss helpers ([Title], [OK], [Fail], [Warn], [Hint]) the CLI
// uses for its plain output.
package ui
