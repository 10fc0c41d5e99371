package tasks

import (
	"fmt"

	"github.com/desertthunder/moodlist/internal/services"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI, the websocket stream or any other UI.
type ProgressUpdate struct {
	Phase   Phase  `json:"phase"`
	Step    int    `json:"step"`    // Current step number within the operation
	Total   int    `json:"total"`   // Total steps in the operation
	Message string `json:"message"` // Human-readable message for display
	Data    any    `json:"data,omitempty"`
}

// Operation phase enumeration
type Phase int

const (
	PhaseToken Phase = iota
	PhaseSearch
	PhaseCreate
	PhaseAdd
	PhaseRecord
	PhaseDone
	PhaseFetch
	PhasePlay
	PhaseExport
)

func (p Phase) String() string {
	switch p {
	case PhaseToken:
		return "token"
	case PhaseSearch:
		return "search"
	case PhaseCreate:
		return "create"
	case PhaseAdd:
		return "add"
	case PhaseRecord:
		return "record"
	case PhaseDone:
		return "done"
	case PhaseFetch:
		return "fetch"
	case PhasePlay:
		return "play"
	case PhaseExport:
		return "export"
	default:
		return ""
	}
}

// MarshalText renders the phase by name in JSON frames.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for c := PhaseToken; c <= PhaseExport; c++ {
		if c.String() == string(text) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// generateSteps is the step count reported by [Workflow.Generate].
const generateSteps = 5

func tokenUpdate(username string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseToken,
		Step:    1,
		Total:   generateSteps,
		Message: fmt.Sprintf("Checking Spotify authorization for %s...", username),
	}
}

func searchUpdate(query string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSearch,
		Step:    2,
		Total:   generateSteps,
		Message: fmt.Sprintf("Searching tracks for %q...", query),
	}
}

func foundTracksUpdate(refs []services.TrackRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseSearch,
		Step:    2,
		Total:   generateSteps,
		Message: fmt.Sprintf("Found %d tracks", len(refs)),
		Data:    refs,
	}
}

func createUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseCreate,
		Step:    3,
		Total:   generateSteps,
		Message: fmt.Sprintf("Creating playlist %s...", name),
	}
}

func addUpdate(ref *RemotePlaylistRef, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseAdd,
		Step:    4,
		Total:   generateSteps,
		Message: fmt.Sprintf("Adding %d tracks to %s...", count, ref.URL),
		Data:    ref,
	}
}

func recordUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseRecord,
		Step:    5,
		Total:   generateSteps,
		Message: fmt.Sprintf("Recording %s locally...", name),
	}
}

func doneUpdate(ref *RemotePlaylistRef) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseDone,
		Step:    generateSteps,
		Total:   generateSteps,
		Message: fmt.Sprintf("Playlist created: %s (%d tracks) %s", ref.Name, ref.TrackCount, ref.URL),
		Data:    ref,
	}
}

func fetchUpdate(id string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseFetch,
		Step:    1,
		Total:   2,
		Message: fmt.Sprintf("Fetching tracks of playlist %s...", id),
	}
}

func playUpdate(count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhasePlay,
		Step:    2,
		Total:   2,
		Message: fmt.Sprintf("Starting playback of %d tracks...", count),
	}
}

func exportingUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PhaseExport,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}
