package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error    string                   `json:"error"`
	Kind     string                   `json:"kind"`
	Step     string                   `json:"step,omitempty"`
	Advice   string                   `json:"advice,omitempty"`
	Playlist *tasks.RemotePlaylistRef `json:"playlist,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error kind onto an HTTP status.
func statusFor(kind shared.Kind) int {
	switch kind {
	case shared.KindValidation:
		return http.StatusBadRequest
	case shared.KindNotFound:
		return http.StatusNotFound
	case shared.KindConflict, shared.KindNoActiveDevice:
		return http.StatusConflict
	case shared.KindUnauthorized:
		return http.StatusUnauthorized
	case shared.KindRemote:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(err error) (int, errorBody) {
	kind := shared.KindOf(err)
	body := errorBody{Error: err.Error(), Kind: kind.String()}

	if step, ok := tasks.StepOf(err); ok {
		body.Step = string(step)
	}

	switch kind {
	case shared.KindNoActiveDevice:
		body.Advice = "open Spotify on any device, start and pause a track, then retry"
	case shared.KindUnauthorized:
		body.Advice = "authorize again via /login"
	}

	return statusFor(kind), body
}

func writeError(w http.ResponseWriter, err error) {
	status, body := errorResponse(err)
	writeJSON(w, status, body)
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty request body", shared.ErrInvalidInput)
		}
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}
