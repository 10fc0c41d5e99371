package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
)

// MoodQuery selects tracks by mood. With Questionnaire set, Mood holds raw answers that are
// rescaled onto the catalog scale and Threshold is ignored.
type MoodQuery struct {
	Mood          models.MoodVector `json:"mood"`
	Threshold     *int              `json:"threshold,omitempty"`
	Questionnaire bool              `json:"questionnaire,omitempty"`
}

type tokenRequest struct {
	Username     string `json:"username"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type tokenStatus struct {
	Username  string     `json:"username"`
	State     string     `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

type createRequest struct {
	Name     string   `json:"name"`
	TrackIDs []string `json:"track_ids"`
}

type generateRequest struct {
	Name string `json:"name"`
	MoodQuery
}

type matchResponse struct {
	Mood      models.MoodVector `json:"mood"`
	Threshold int               `json:"threshold"`
	Tracks    []models.Track    `json:"tracks"`
}

type playlistResponse struct {
	Playlist *models.Playlist `json:"playlist"`
	Tracks   any              `json:"tracks"`
}

type playRequest struct {
	Username string `json:"username"`
	Playlist string `json:"playlist"`
}

type playResponse struct {
	Playlist string `json:"playlist"`
	Tracks   int    `json:"tracks"`
}

// resolve returns the catalog-scale query and threshold for q.
func (s *Server) resolve(q MoodQuery) (models.MoodVector, int, error) {
	if q.Questionnaire {
		return mood.NewRescaler(s.deps.Matching).Rescale(q.Mood)
	}
	threshold := s.deps.Matching.Threshold
	if q.Threshold != nil {
		threshold = *q.Threshold
	}
	if threshold < 0 {
		return models.MoodVector{}, 0, fmt.Errorf("%w: threshold must not be negative", shared.ErrInvalidInput)
	}
	return q.Mood, threshold, nil
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) saveTokens(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	grant := services.TokenGrant{AccessToken: req.AccessToken, RefreshToken: req.RefreshToken, ExpiresIn: req.ExpiresIn}
	if grant.AccessToken == "" || grant.ExpiresIn <= 0 {
		writeError(w, fmt.Errorf("%w: access_token and a positive expires_in are required", shared.ErrInvalidInput))
		return
	}

	user, err := s.deps.Tokens.SaveTokens(r.Context(), req.Username, grant)
	if err != nil {
		writeError(w, err)
		return
	}

	state, _, err := s.deps.Tokens.State(r.Context(), user.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOf(user, state))
}

func (s *Server) tokenState(w http.ResponseWriter, r *http.Request) {
	state, user, err := s.deps.Tokens.State(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusOf(user, state))
}

func statusOf(user *models.User, state models.TokenState) tokenStatus {
	out := tokenStatus{Username: user.Username, State: state.String()}
	if !user.Token.ExpiresAt.IsZero() {
		at := user.Token.ExpiresAt
		out.ExpiresAt = &at
	}
	return out
}

func (s *Server) match(w http.ResponseWriter, r *http.Request) {
	var req MoodQuery
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	query, threshold, err := s.resolve(req)
	if err != nil {
		writeError(w, err)
		return
	}

	tracks, err := s.deps.Playlists.Preview(r.Context(), query, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{Mood: query, Threshold: threshold, Tracks: tracks})
}

func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.deps.Playlists.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	p, err := s.deps.Playlists.Create(r.Context(), req.Name, req.TrackIDs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) generatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	query, threshold, err := s.resolve(req.MoodQuery)
	if err != nil {
		writeError(w, err)
		return
	}

	p, tracks, err := s.deps.Playlists.Generate(r.Context(), req.Name, query, threshold)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, playlistResponse{Playlist: p, Tracks: tracks})
}

func (s *Server) showPlaylist(w http.ResponseWriter, r *http.Request) {
	p, tracks, err := s.deps.Playlists.Tracks(r.Context(), r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlistResponse{Playlist: p, Tracks: tracks})
}

func (s *Server) userPlaylists(w http.ResponseWriter, r *http.Request) {
	ups, err := s.deps.Playlists.UserPlaylists(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ups)
}

func (s *Server) remoteGenerate(w http.ResponseWriter, r *http.Request) {
	var req tasks.GenerateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ref, err := s.deps.Remote.Generate(r.Context(), req, nil)
	if err != nil {
		status, body := errorResponse(err)
		body.Playlist = ref
		writeJSON(w, status, body)
		return
	}
	writeJSON(w, http.StatusCreated, ref)
}

func (s *Server) remotePlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.deps.Remote.Playlists(r.Context(), r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (s *Server) remotePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	n, err := s.deps.Remote.Play(r.Context(), req.Username, req.Playlist, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, playResponse{Playlist: services.PlaylistID(req.Playlist), Tracks: n})
}
