package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "moodlist"

var ErrInvalidState = fmt.Errorf("%w: invalid or expired oauth state", shared.ErrInvalidInput)

// StateClaims is the payload of the OAuth state parameter.
type StateClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies the state parameter that carries the username through the
// authorization redirect.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	clock  func() time.Time
}

func NewStateSigner(secret string, ttl time.Duration) (*StateSigner, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: server.state_secret is required", shared.ErrInvalidConfig)
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, clock: time.Now}, nil
}

// Sign returns a signed, expiring state for username.
func (s *StateSigner) Sign(username string) (string, error) {
	if err := models.ValidateUsername(username); err != nil {
		return "", err
	}

	now := s.clock()
	claims := &StateClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    stateIssuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign state: %w", err)
	}
	return state, nil
}

// Verify checks the signature and expiry of state and returns the username it carries.
func (s *StateSigner) Verify(state string) (string, error) {
	if state == "" {
		return "", fmt.Errorf("%w: missing state", ErrInvalidState)
	}

	claims := &StateClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(stateIssuer),
		jwt.WithTimeFunc(s.clock),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", fmt.Errorf("%w: state expired", ErrInvalidState)
	case err != nil:
		return "", fmt.Errorf("%w: %v", ErrInvalidState, err)
	case claims.Username == "":
		return "", fmt.Errorf("%w: state carries no username", ErrInvalidState)
	}

	return claims.Username, nil
}
