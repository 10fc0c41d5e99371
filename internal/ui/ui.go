package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	QuestionView ViewState = iota
	MatchView
	ConfirmView
	ProgressView
	ResultView
)

var questions = [4]string{
	"How happy do you feel?",
	"How sad do you feel?",
	"How much love is in the air?",
	"How energetic are you?",
}

// Playlists previews matches and saves local playlists.
type Playlists interface {
	Preview(ctx context.Context, query models.MoodVector, threshold int) ([]models.Track, error)
	Generate(ctx context.Context, name string, query models.MoodVector, threshold int) (*models.Playlist, []models.Track, error)
}

// Remote creates playlists on the remote service.
type Remote interface {
	Generate(ctx context.Context, req tasks.GenerateRequest, progress chan<- tasks.ProgressUpdate) (*tasks.RemotePlaylistRef, error)
}

// Options configures the questionnaire. When Remote is set the confirmed answers build a remote
// playlist for Username instead of a local one.
type Options struct {
	Name      string
	Username  string
	Rescaler  mood.Rescaler
	Playlists Playlists
	Remote    Remote
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	opts         Options
	view         ViewState
	answers      [4]int
	cursor       int
	width        int
	height       int
	matchList    list.Model
	query        models.MoodVector
	threshold    int
	tracks       []models.Track
	progressChan chan tasks.ProgressUpdate
	progressDone chan savedMsg
	progress     tasks.ProgressUpdate
	result       *Result
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a questionnaire starting every answer at the middle of the scale.
func NewModel(ctx context.Context, opts Options) *Model {
	m := &Model{
		ctx:    ctx,
		opts:   opts,
		view:   QuestionView,
		help:   help.New(),
		keys:   newKeyMap(),
		width:  80,
		height: 24,
	}
	m.reset()
	return m
}

func (m *Model) reset() {
	q := m.opts.Rescaler.Questionnaire
	for i := range m.answers {
		m.answers[i] = (q.Min + q.Max) / 2
	}
	m.cursor = 0
	m.view = QuestionView
	m.result = nil
	m.err = nil
	m.tracks = nil
}

// Answers returns the raw answers in axis order.
func (m *Model) Answers() models.MoodVector {
	a := m.answers
	return models.MoodVector{Happiness: a[0], Sadness: a[1], Love: a[2], Energy: a[3]}
}

// Result returns the confirmed outcome, or nil when the user quit early.
func (m *Model) Result() *Result {
	return m.result
}

// Err returns the last failure.
func (m *Model) Err() error {
	return m.err
}

// State returns the current view.
func (m *Model) State() ViewState {
	return m.view
}

func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.view == MatchView {
			m.matchList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case QuestionView:
			return m.handleQuestionKeys(msg)
		case MatchView:
			return m.handleMatchKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ProgressView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case matchesMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = QuestionView
			return m, nil
		}
		m.err = nil
		m.query, m.threshold, m.tracks = msg.query, msg.threshold, msg.tracks
		m.matchList = list.New(trackItems(msg.tracks), list.NewDefaultDelegate(), m.width-4, m.height-8)
		m.matchList.Title = fmt.Sprintf("%d tracks match %s", len(msg.tracks), msg.query)
		m.view = MatchView
		return m, nil

	case progressMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case savedMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		return m, nil
	}

	return m, nil
}

func (m *Model) handleQuestionKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	q := m.opts.Rescaler.Questionnaire

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.less):
		m.answers[m.cursor] = max(m.answers[m.cursor]-1, q.Min)
	case key.Matches(msg, m.keys.more):
		m.answers[m.cursor] = min(m.answers[m.cursor]+1, q.Max)
	case key.Matches(msg, m.keys.up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.down):
		m.cursor = min(m.cursor+1, len(m.answers)-1)
	case key.Matches(msg, m.keys.enter):
		if m.cursor < len(m.answers)-1 {
			m.cursor++
			return m, nil
		}
		return m, m.preview()
	default:
		if s := msg.String(); len(s) == 1 && s[0] >= '0' && s[0] <= '9' {
			if v := int(s[0] - '0'); q.Contains(v) {
				m.answers[m.cursor] = v
			}
		}
	}
	return m, nil
}

func (m *Model) handleMatchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = QuestionView
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.view = ConfirmView
		return m, nil
	}

	var cmd tea.Cmd
	m.matchList, cmd = m.matchList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = MatchView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = ProgressView
		return m, m.save()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.enter):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.reset()
		return m, nil
	}
	return m, nil
}

// preview rescales the answers and asks for the matching tracks.
func (m *Model) preview() tea.Cmd {
	answers := m.Answers()
	return func() tea.Msg {
		query, threshold, err := m.opts.Rescaler.Rescale(answers)
		if err != nil {
			return matchesMsg{err: err}
		}
		tracks, err := m.opts.Playlists.Preview(m.ctx, query, threshold)
		return matchesMsg{query: query, threshold: threshold, tracks: tracks, err: err}
	}
}

func (m *Model) save() tea.Cmd {
	query, threshold := m.query, m.threshold

	if m.opts.Remote == nil {
		return func() tea.Msg {
			p, tracks, err := m.opts.Playlists.Generate(m.ctx, m.opts.Name, query, threshold)
			if err != nil {
				return savedMsg{err: err}
			}
			return savedMsg{result: &Result{Query: query, Threshold: threshold, Playlist: p, Tracks: tracks}}
		}
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	m.progressChan = progress
	done := make(chan savedMsg, 1)

	go func() {
		ref, err := m.opts.Remote.Generate(m.ctx, tasks.GenerateRequest{
			Username:     m.opts.Username,
			Query:        query,
			PlaylistName: m.opts.Name,
			Record:       true,
		}, progress)
		done <- savedMsg{result: &Result{Query: query, Threshold: threshold, Remote: ref}, err: err}
		close(progress)
	}()

	m.progressDone = done
	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return <-m.progressDone
		}
		return progressMsg(update)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case QuestionView:
		return m.renderQuestions()
	case MatchView:
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.back, m.keys.quit})
		return fmt.Sprintf("%s\n\n%s", m.matchList.View(), helpView)
	case ConfirmView:
		return m.renderConfirm()
	case ProgressView:
		return m.renderProgress()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) renderQuestions() string {
	var b strings.Builder
	b.WriteString(Title("How are you feeling?"))
	b.WriteString("\n")

	q := m.opts.Rescaler.Questionnaire
	for i, question := range questions {
		line := fmt.Sprintf("%-30s %s", question, scaleBar(m.answers[i], q))
		if i == m.cursor {
			line = styles.active.Render(line)
		}
		b.WriteString(line + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + Fail(m.err.Error()) + "\n")
	}

	helpKeys := []key.Binding{m.keys.less, m.keys.more, m.keys.up, m.keys.down, m.keys.enter, m.keys.quit}
	b.WriteString("\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

// scaleBar renders v as filled dots on scale.
func scaleBar(v int, scale models.Scale) string {
	var b strings.Builder
	for i := scale.Min; i <= scale.Max; i++ {
		if i <= v {
			b.WriteString("●")
		} else {
			b.WriteString("○")
		}
	}
	return fmt.Sprintf("%s %d", b.String(), v)
}

func (m *Model) renderConfirm() string {
	target := "locally"
	if m.opts.Remote != nil {
		target = "on Spotify for " + m.opts.Username
	}
	title := Title(fmt.Sprintf("Create '%s' %s?", m.opts.Name, target))
	info := fmt.Sprintf("\nMood: %s\nThreshold: %d\nLocal matches: %d\n", m.query, m.threshold, len(m.tracks))

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderProgress() string {
	title := Title(fmt.Sprintf("Creating '%s'", m.opts.Name))
	if m.progress.Total == 0 {
		return fmt.Sprintf("%s\n\nWorking...", title)
	}
	return fmt.Sprintf("%s\n\n[%d/%d] %s\n%s", title, m.progress.Step, m.progress.Total, m.progress.Phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	if m.err != nil {
		out := Fail(fmt.Sprintf("Failed: %v", m.err))
		if m.result != nil && m.result.Remote != nil {
			out += "\n" + Warn("Remote playlist left at "+m.result.Remote.URL)
		}
		return fmt.Sprintf("%s\n\n%s", out, helpView)
	}

	var info string
	switch {
	case m.result == nil:
		info = Warn("No result available")
	case m.result.Remote != nil:
		info = OK(fmt.Sprintf("Created '%s' with %d tracks", m.result.Remote.Name, m.result.Remote.TrackCount)) +
			"\n" + m.result.Remote.URL
	case m.result.Playlist != nil:
		info = OK(fmt.Sprintf("Saved '%s' with %d tracks", m.result.Playlist.Name, len(m.result.Tracks)))
	}

	return fmt.Sprintf("%s\n\n%s", info, helpView)
}
