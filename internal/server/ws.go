package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	progressBuffer = 16
)

func newUpgrader(allowed []string) *websocket.Upgrader {
	origins := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		origins[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     checkOrigin(origins),
	}
}

// checkOrigin accepts requests without an Origin header, same-origin requests and the listed
// origins.
func checkOrigin(allowed map[string]bool) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		if strings.EqualFold(u.Host, r.Host) {
			return true
		}
		return allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
	}
}

// Frame is one websocket message of the generate stream.
type Frame struct {
	Type     string                   `json:"type"` // progress, result or error
	Progress *tasks.ProgressUpdate    `json:"progress,omitempty"`
	Playlist *tasks.RemotePlaylistRef `json:"playlist,omitempty"`
	Error    *errorBody               `json:"error,omitempty"`
}

type outcome struct {
	ref *tasks.RemotePlaylistRef
	err error
}

// generateSocket reads one generate request and streams the workflow's progress, ending with a
// result or error frame.
func (s *Server) generateSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	var req tasks.GenerateRequest
	if err := conn.ReadJSON(&req); err != nil {
		_, body := errorResponse(shared.ErrInvalidInput)
		body.Error = "invalid request: " + err.Error()
		s.send(conn, Frame{Type: "error", Error: &body})
		return
	}

	progress := make(chan tasks.ProgressUpdate, progressBuffer)
	done := make(chan outcome, 1)
	go func() {
		ref, err := s.deps.Remote.Generate(r.Context(), req, progress)
		done <- outcome{ref: ref, err: err}
	}()

	for {
		select {
		case u := <-progress:
			if !s.send(conn, Frame{Type: "progress", Progress: &u}) {
				return
			}
		case o := <-done:
			s.flush(conn, progress)
			if o.err != nil {
				_, body := errorResponse(o.err)
				body.Playlist = o.ref
				s.send(conn, Frame{Type: "error", Error: &body})
			} else {
				s.send(conn, Frame{Type: "result", Playlist: o.ref})
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}

// flush writes progress updates still buffered when the workflow returned.
func (s *Server) flush(conn *websocket.Conn, progress <-chan tasks.ProgressUpdate) {
	for {
		select {
		case u := <-progress:
			if !s.send(conn, Frame{Type: "progress", Progress: &u}) {
				return
			}
		default:
			return
		}
	}
}

func (s *Server) send(conn *websocket.Conn, f Frame) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(f); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
		return false
	}
	return true
}
