package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

// StateCodec signs and verifies the OAuth state parameter.
type StateCodec interface {
	Sign(username string) (string, error)
	Verify(state string) (string, error)
}

// CodeSaver exchanges an authorization code and stores the tokens for username.
type CodeSaver interface {
	SaveFromCode(ctx context.Context, username, code string) (*models.User, error)
}

// AuthURLer builds the provider consent URL for a state value.
type AuthURLer interface {
	AuthURL(state string) string
}

// OAuthResult contains the result of an OAuth authorization flow.
type OAuthResult struct {
	Username string
	User     *models.User
	err      error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler serves /login and /callback for the authorization-code flow.
//
// The state parameter is a signed token naming the user, so several users can authorize
// through one running server. A handler built with [OAuthOnce] accepts a single callback and
// then closes [OAuthHandler.Result]; this is what the CLI login uses.
type OAuthHandler struct {
	codec  StateCodec
	tokens CodeSaver
	auth   AuthURLer
	logger *log.Logger

	single      bool
	resultChan  chan OAuthResult
	once        sync.Once
	callbackHit bool
	mu          sync.Mutex
}

// OAuthOption configures an [OAuthHandler].
type OAuthOption func(*OAuthHandler)

// OAuthOnce makes the handler accept exactly one callback.
func OAuthOnce() OAuthOption {
	return func(h *OAuthHandler) { h.single = true }
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(codec StateCodec, tokens CodeSaver, auth AuthURLer, logger *log.Logger, opts ...OAuthOption) *OAuthHandler {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	h := &OAuthHandler{
		codec:      codec,
		tokens:     tokens,
		auth:       auth,
		logger:     shared.WithLogger(logger, "component", "oauth"),
		resultChan: make(chan OAuthResult, 1),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"GET /login", "GET /callback"}
}

// LoginURL returns the provider consent URL for username.
func (h *OAuthHandler) LoginURL(username string) (string, error) {
	if err := models.ValidateUsername(username); err != nil {
		return "", err
	}
	state, err := h.codec.Sign(username)
	if err != nil {
		return "", err
	}
	return h.auth.AuthURL(state), nil
}

// ServeHTTP dispatches between the login redirect and the callback.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	target, err := h.LoginURL(r.URL.Query().Get("username"))
	if err != nil {
		writeError(w, err)
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	if h.single {
		h.mu.Lock()
		if h.callbackHit {
			h.mu.Unlock()
			http.Error(w, "Callback already processed", http.StatusBadRequest)
			return
		}
		h.callbackHit = true
		h.mu.Unlock()
	}

	q := r.URL.Query()
	username, err := h.codec.Verify(q.Get("state"))
	if err != nil {
		h.Send(OAuthResult{err: err})
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: authorization failed: %s - %s", shared.ErrUnauthorized, q.Get("error"), q.Get("error_description"))
		h.Send(OAuthResult{Username: username, err: err})
		http.Error(w, "Authorization failed", http.StatusBadRequest)
		return
	}

	user, err := h.tokens.SaveFromCode(r.Context(), username, code)
	if err != nil {
		h.logger.Warn("callback failed", "user", username, "error", err)
		h.Send(OAuthResult{Username: username, err: err})
		status, _ := errorResponse(err)
		http.Error(w, "Token exchange failed", status)
		return
	}

	h.logger.Info("user authorized", "user", username)
	h.Send(OAuthResult{Username: username, User: user})

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_ = successPage.Execute(w, username)
}

// Send publishes a result. Single-use handlers send once and close the channel; otherwise the
// result is dropped when nobody is reading.
func (h *OAuthHandler) Send(result OAuthResult) {
	if h.single {
		h.once.Do(func() {
			h.resultChan <- result
			close(h.resultChan)
		})
		return
	}
	select {
	case h.resultChan <- result:
	default:
	}
}

// Result returns the result channel for receiving OAuth flow completion.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

var successPage = template.Must(template.New("success").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Authorization Successful</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Authorized as {{.}}</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`))
