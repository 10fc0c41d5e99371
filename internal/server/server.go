// package server exposes the playlist engine and the remote workflow over HTTP
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/metrics"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/desertthunder/moodlist/internal/tasks"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that knows which route patterns it serves.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the "METHOD /path" patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Playlists is the local playlist engine.
type Playlists interface {
	Create(ctx context.Context, name string, trackIDs []string) (*models.Playlist, error)
	Generate(ctx context.Context, name string, query models.MoodVector, threshold int) (*models.Playlist, []models.Track, error)
	Preview(ctx context.Context, query models.MoodVector, threshold int) ([]models.Track, error)
	List(ctx context.Context) ([]*models.Playlist, error)
	Tracks(ctx context.Context, name string) (*models.Playlist, []*models.Track, error)
	UserPlaylists(ctx context.Context, username string) ([]*models.UserPlaylist, error)
}

// Tokens stores and reports per-user tokens.
type Tokens interface {
	SaveFromCode(ctx context.Context, username, code string) (*models.User, error)
	SaveTokens(ctx context.Context, username string, grant services.TokenGrant) (*models.User, error)
	State(ctx context.Context, username string) (models.TokenState, *models.User, error)
}

// Remote runs the remote playlist workflow.
type Remote interface {
	Query(v models.MoodVector) string
	Generate(ctx context.Context, req tasks.GenerateRequest, progress chan<- tasks.ProgressUpdate) (*tasks.RemotePlaylistRef, error)
	Play(ctx context.Context, username, playlist string, progress chan<- tasks.ProgressUpdate) (int, error)
	Playlists(ctx context.Context, username string) ([]services.Playlist, error)
}

// Deps are the collaborators of [Server]. Any of them may be nil.
type Deps struct {
	Playlists Playlists
	Tokens    Tokens
	Remote    Remote
	OAuth     *OAuthHandler
	Matching  shared.MatchingConfig
	Metrics   *metrics.Recorder
	Logger    *log.Logger

	// AllowedOrigins lists cross-origin pages that may open the progress websocket.
	AllowedOrigins []string
}

// Server serves the JSON API, the OAuth routes and the progress websocket.
type Server struct {
	deps     Deps
	router   *BasicRouter
	srv      *http.Server
	upgrader *websocket.Upgrader
	logger   *log.Logger
}

// New builds a Server listening on addr.
func New(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = shared.NewLogger(nil)
	}
	s := &Server{
		deps:     deps,
		router:   NewBasicRouter(),
		upgrader: newUpgrader(deps.AllowedOrigins),
		logger:   shared.WithLogger(deps.Logger, "component", "server"),
	}

	s.router.Use(Recover(s.logger), RequestLogger(s.logger), Metrics(deps.Metrics))
	s.routes()

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.srv.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		return s.srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// routes registers the endpoints of every configured dependency. Missing dependencies leave
// their routes unregistered.
func (s *Server) routes() {
	r := s.router

	r.HandleFunc(http.MethodGet, "/healthz", s.health)
	r.Handle(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	if s.deps.OAuth != nil {
		r.Handler(s.deps.OAuth)
	}

	if s.deps.Tokens != nil {
		r.HandleFunc(http.MethodPost, "/api/tokens", s.saveTokens)
		r.HandleFunc(http.MethodGet, "/api/tokens/{username}", s.tokenState)
	}

	if s.deps.Playlists != nil {
		r.HandleFunc(http.MethodPost, "/api/match", s.match)
		r.HandleFunc(http.MethodGet, "/api/playlists", s.listPlaylists)
		r.HandleFunc(http.MethodPost, "/api/playlists", s.createPlaylist)
		r.HandleFunc(http.MethodPost, "/api/playlists/generate", s.generatePlaylist)
		r.HandleFunc(http.MethodGet, "/api/playlists/{name}", s.showPlaylist)
		r.HandleFunc(http.MethodGet, "/api/users/{username}/playlists", s.userPlaylists)
	}

	if s.deps.Remote != nil {
		r.HandleFunc(http.MethodPost, "/api/spotify/playlists", s.remoteGenerate)
		r.HandleFunc(http.MethodGet, "/api/spotify/playlists", s.remotePlaylists)
		r.HandleFunc(http.MethodPost, "/api/spotify/play", s.remotePlay)
		r.HandleFunc(http.MethodGet, "/api/generate/ws", s.generateSocket)
	}
}
