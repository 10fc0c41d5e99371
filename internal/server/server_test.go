package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/desertthunder/moodlist/internal/auth"
	"github.com/desertthunder/moodlist/internal/metrics"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/mood"
	"github.com/desertthunder/moodlist/internal/playlist"
	"github.com/desertthunder/moodlist/internal/repositories"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	tu "github.com/desertthunder/moodlist/internal/testing"
)

type fixture struct {
	server  *Server
	ts      *httptest.Server
	fake    *tu.FakeSpotify
	manager *auth.Manager
	catalog *mood.Service
	builder *playlist.Builder
	signer  *auth.StateSigner
	oauth   *OAuthHandler
}

func setup(t *testing.T, opts ...OAuthOption) *fixture {
	t.Helper()

	db := tu.MustDB(t)
	logger := shared.NewLogger(io.Discard)
	fake := tu.NewFakeSpotify(t)

	cfg := shared.DefaultConfig()
	cfg.Remote.RequestsPerSecond = 0

	client, err := services.NewSpotifyService(fake.Config(), cfg.Remote, logger)
	if err != nil {
		t.Fatalf("NewSpotifyService() error = %v", err)
	}

	users := repositories.NewUserRepository(db)
	tracks := repositories.NewTrackRepository(db)
	rec := metrics.New()
	manager := auth.NewManager(users, client, logger, auth.WithMetrics(rec))
	catalog := mood.NewService(repositories.NewMoodRepository(db), tracks, models.DefaultScale, logger)
	builder := playlist.NewBuilder(playlist.Stores{
		Playlists:     repositories.NewPlaylistRepository(db),
		Tracks:        tracks,
		Catalog:       catalog,
		Users:         users,
		UserPlaylists: repositories.NewUserPlaylistRepository(db),
	}, models.DefaultScale, logger)
	workflow := tasks.NewWorkflow(manager, client, builder, tasks.WorkflowConfig{Scale: models.DefaultScale, Remote: cfg.Remote}, rec, logger)

	signer, err := auth.NewStateSigner("test-secret", 0)
	if err != nil {
		t.Fatalf("NewStateSigner() error = %v", err)
	}
	oauth := NewOAuthHandler(signer, manager, client, logger, opts...)

	srv := New("127.0.0.1:0", Deps{
		Playlists: builder,
		Tokens:    manager,
		Remote:    workflow,
		OAuth:     oauth,
		Matching:  cfg.Matching,
		Metrics:   rec,
		Logger:    logger,
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &fixture{server: srv, ts: ts, fake: fake, manager: manager, catalog: catalog, builder: builder, signer: signer, oauth: oauth}
}

func (f *fixture) authorize(t *testing.T, username string) {
	t.Helper()
	grant := services.TokenGrant{AccessToken: "seed", RefreshToken: "refresh-1", ExpiresIn: 3600}
	if _, err := f.manager.SaveTokens(context.Background(), username, grant); err != nil {
		t.Fatalf("SaveTokens() error = %v", err)
	}
}

// seed adds one mood at v with n tracks and returns the track IDs.
func (f *fixture) seed(t *testing.T, v models.MoodVector, n int) []string {
	t.Helper()
	ctx := context.Background()

	m, err := f.catalog.AddMood(ctx, v)
	if err != nil {
		t.Fatalf("AddMood() error = %v", err)
	}

	ids := make([]string, n)
	for i := range ids {
		track, err := f.catalog.AddTrack(ctx, fmt.Sprintf("Song %s %d", m.ID, i), "Band", "pop", m.ID)
		if err != nil {
			t.Fatalf("AddTrack() error = %v", err)
		}
		ids[i] = track.ID
	}
	return ids
}

func (f *fixture) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("json.Marshal() error = %v", err)
			}
			r = bytes.NewReader(data)
		}
	}

	req, err := http.NewRequest(method, f.ts.URL+path, r)
	if err != nil {
		t.Fatalf("NewRequest() error = %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, path, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, body)
	}
}

func vec(h, s, l, e int) models.MoodVector {
	return models.MoodVector{Happiness: h, Sadness: s, Love: l, Energy: e}
}

func TestBasicRouter(t *testing.T) {
	t.Run("Middleware Order", func(t *testing.T) {
		var order []string
		mark := func(name string) Middleware {
			return func(next http.Handler) http.Handler {
				return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					order = append(order, name)
					next.ServeHTTP(w, r)
				})
			}
		}

		r := NewBasicRouter()
		r.Use(mark("first"), mark("second"))
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, r *http.Request) {
			order = append(order, "handler")
		})

		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))

		if got := strings.Join(order, ","); got != "first,second,handler" {
			t.Errorf("unexpected order %s", got)
		}
	})

	t.Run("Method Not Allowed", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/ping", func(w http.ResponseWriter, r *http.Request) {})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/ping", nil))

		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", w.Code)
		}
		if allow := w.Header().Get("Allow"); !strings.Contains(allow, http.MethodGet) {
			t.Errorf("expected Allow to list GET, got %q", allow)
		}
	})

	t.Run("Path Values", func(t *testing.T) {
		r := NewBasicRouter()
		r.HandleFunc(http.MethodGet, "/items/{name}", func(w http.ResponseWriter, r *http.Request) {
			io.WriteString(w, r.PathValue("name"))
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/Late%20Night", nil))

		if w.Body.String() != "Late Night" {
			t.Errorf("expected decoded path value, got %q", w.Body.String())
		}
	})

	t.Run("Recover", func(t *testing.T) {
		r := NewBasicRouter()
		r.Use(Recover(shared.NewLogger(io.Discard)))
		r.HandleFunc(http.MethodGet, "/boom", func(w http.ResponseWriter, r *http.Request) {
			panic("boom")
		})

		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

		if w.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", w.Code)
		}
	})
}

func TestServerRun(t *testing.T) {
	srv := New("127.0.0.1:0", Deps{Logger: shared.NewLogger(io.Discard)})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- srv.Run(ctx) }()

	cancel()
	if err := <-errc; err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func TestPartialDeps(t *testing.T) {
	srv := New("127.0.0.1:0", Deps{Logger: shared.NewLogger(io.Discard)})

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusNotFound},
		{http.MethodGet, "/api/playlists", http.StatusNotFound},
		{http.MethodPost, "/api/spotify/playlists", http.StatusNotFound},
		{http.MethodGet, "/login", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}
