package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/moodlist/internal/metrics"
	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/services"
	"github.com/desertthunder/moodlist/internal/shared"
)

// DefaultLeeway is how long before expiry an access token is already treated as expired.
const DefaultLeeway = 60 * time.Second

var (
	ErrUserNotFound       = fmt.Errorf("%w: user", shared.ErrNotFound)
	ErrNoToken            = fmt.Errorf("%w: no token on record, authorize first", shared.ErrUnauthorized)
	ErrRefreshUnavailable = fmt.Errorf("%w: access token expired and no refresh token is stored, authorize again", shared.ErrUnauthorized)
	ErrTokenRefreshFailed = fmt.Errorf("%w: token refresh failed", shared.ErrAPIRequest)
	ErrTokenExchange      = fmt.Errorf("%w: authorization code exchange failed", shared.ErrAPIRequest)
)

// UserStore loads and persists users together with their token record.
type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

// TokenClient talks to the OAuth token endpoint.
type TokenClient interface {
	ExchangeCode(ctx context.Context, code string) (services.TokenGrant, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (services.TokenGrant, error)
}

// Manager keeps each user's access token usable.
//
// Expiry is checked lazily on every call, and refreshes happen before the token runs out.
// Two concurrent calls for the same expired user may both refresh; the later save wins.
type Manager struct {
	users   UserStore
	client  TokenClient
	clock   func() time.Time
	leeway  time.Duration
	metrics *metrics.Recorder
	logger  *log.Logger
}

type Option func(*Manager)

// WithClock replaces [time.Now].
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.clock = now }
}

func WithLeeway(d time.Duration) Option {
	return func(m *Manager) { m.leeway = d }
}

func WithMetrics(r *metrics.Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

func NewManager(users UserStore, client TokenClient, logger *log.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	m := &Manager{
		users:  users,
		client: client,
		clock:  time.Now,
		leeway: DefaultLeeway,
		logger: shared.WithLogger(logger, "component", "auth"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// GetValidAccessToken returns an access token for username that is still valid past the leeway,
// refreshing and persisting it first when needed.
//
// A failed refresh leaves the stored record untouched and is never retried.
func (m *Manager) GetValidAccessToken(ctx context.Context, username string) (string, error) {
	user, err := m.user(ctx, username)
	if err != nil {
		return "", err
	}

	now := m.clock()
	switch user.Token.State(now, m.leeway) {
	case models.NoToken:
		return "", fmt.Errorf("%w: %s", ErrNoToken, username)
	case models.Valid:
		return user.Token.AccessToken, nil
	case models.RefreshUnavailable:
		return "", fmt.Errorf("%w: %s", ErrRefreshUnavailable, username)
	}

	m.logger.Debug("refreshing access token", "user", username, "expired_at", user.Token.ExpiresAt)

	grant, err := m.client.RefreshAccessToken(ctx, user.Token.RefreshToken)
	if err == nil {
		err = grant.Validate()
	}
	m.metrics.RecordRefresh(err)
	if err != nil {
		m.logger.Warn("token refresh failed", "user", username, "error", err)
		return "", fmt.Errorf("%w: %w", ErrTokenRefreshFailed, err)
	}

	m.checkLifetime(username, grant)
	updated := *user
	updated.Token = apply(user.Token, grant, now)
	if err := m.users.Save(ctx, &updated); err != nil {
		return "", fmt.Errorf("failed to persist refreshed token: %w", err)
	}

	m.logger.Info("access token refreshed", "user", username, "expires_at", updated.Token.ExpiresAt)
	return updated.Token.AccessToken, nil
}

// SaveFromCode exchanges an authorization code and stores the result, creating the user when
// it does not exist yet.
func (m *Manager) SaveFromCode(ctx context.Context, username, code string) (*models.User, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}

	grant, err := m.client.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchange, err)
	}

	return m.SaveTokens(ctx, username, grant)
}

// SaveTokens stores grant as the user's token record. A grant without a refresh token keeps the
// stored one.
func (m *Manager) SaveTokens(ctx context.Context, username string, grant services.TokenGrant) (*models.User, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := grant.Validate(); err != nil {
		return nil, err
	}

	m.checkLifetime(username, grant)

	user, err := m.users.FindByUsername(ctx, username)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		user = models.NewUser(username)
		user.Token = apply(models.TokenRecord{}, grant, m.clock())
		if err := m.users.Create(ctx, user); err != nil {
			return nil, err
		}
		m.logger.Info("user authorized", "user", username, "created", true)
		return user, nil
	case err != nil:
		return nil, err
	}

	user.Token = apply(user.Token, grant, m.clock())
	if err := m.users.Save(ctx, user); err != nil {
		return nil, err
	}

	m.logger.Info("user authorized", "user", username)
	return user, nil
}

// State reports the lifecycle state of username's token without refreshing it.
func (m *Manager) State(ctx context.Context, username string) (models.TokenState, *models.User, error) {
	user, err := m.user(ctx, username)
	if err != nil {
		return models.NoToken, nil, err
	}
	return user.Token.State(m.clock(), m.leeway), user, nil
}

func (m *Manager) user(ctx context.Context, username string) (*models.User, error) {
	user, err := m.users.FindByUsername(ctx, username)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, username)
	}
	return user, err
}

// checkLifetime warns when a grant is shorter than the configured leeway. Such tokens are
// refreshed once half their lifetime has passed.
func (m *Manager) checkLifetime(username string, grant services.TokenGrant) {
	if lifetime := time.Duration(grant.ExpiresIn) * time.Second; lifetime <= m.leeway {
		m.logger.Warn("granted token lifetime is within the refresh leeway",
			"user", username, "expires_in", lifetime, "leeway", m.leeway, "effective_leeway", lifetime/2)
	}
}

// apply folds a validated grant into rec. The refresh token only changes when one was issued.
func apply(rec models.TokenRecord, grant services.TokenGrant, now time.Time) models.TokenRecord {
	rec.AccessToken = grant.AccessToken
	rec.IssuedAt = now
	rec.ExpiresAt = now.Add(time.Duration(grant.ExpiresIn) * time.Second)
	if grant.RefreshToken != "" {
		rec.RefreshToken = grant.RefreshToken
	}
	return rec
}
