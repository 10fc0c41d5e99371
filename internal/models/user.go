package models

import (
	"time"
)

// TokenState is the lifecycle state of a user's remote credential.
type TokenState int

const (
	NoToken TokenState = iota
	Valid
	Expired
	RefreshUnavailable
)

func (s TokenState) String() string {
	switch s {
	case NoToken:
		return "no_token"
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case RefreshUnavailable:
		return "refresh_unavailable"
	default:
		return "unknown"
	}
}

// TokenRecord is the OAuth credential owned by a user.
//
// An empty RefreshToken means the user has to authorize again once the access token expires.
// AccessToken and ExpiresAt always change together.
type TokenRecord struct {
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	ExpiresAt    time.Time `json:"expires_at"`
	IssuedAt     time.Time `json:"issued_at,omitzero"`
}

// HasRefresh reports whether a refresh token is present.
func (t TokenRecord) HasRefresh() bool {
	return t.RefreshToken != ""
}

// Expired reports whether the access token is unusable at now, treating the final leeway as expired.
func (t TokenRecord) Expired(now time.Time, leeway time.Duration) bool {
	return !now.Add(leeway).Before(t.ExpiresAt)
}

// Leeway caps leeway at half of the granted lifetime, so a short-lived grant is not treated as
// expired the moment it is issued. Records without an issue time keep leeway.
func (t TokenRecord) Leeway(leeway time.Duration) time.Duration {
	if t.IssuedAt.IsZero() {
		return leeway
	}
	if half := t.ExpiresAt.Sub(t.IssuedAt) / 2; leeway > half {
		return max(half, 0)
	}
	return leeway
}

// State derives the lifecycle state at now.
func (t TokenRecord) State(now time.Time, leeway time.Duration) TokenState {
	switch {
	case t.AccessToken == "":
		return NoToken
	case !t.Expired(now, t.Leeway(leeway)):
		return Valid
	case t.HasRefresh():
		return Expired
	default:
		return RefreshUnavailable
	}
}

// User owns exactly one token record.
type User struct {
	ID        string      `json:"id"`
	Sequence  int         `json:"-"`
	Username  string      `json:"username"`
	Token     TokenRecord `json:"token"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
	DeletedAt *time.Time  `json:"deleted_at,omitempty"`
}

// NewUser creates a user without credentials.
func NewUser(username string) *User {
	now := time.Now()
	return &User{Username: username, CreatedAt: now, UpdatedAt: now}
}

func (u *User) Validate() error {
	return ValidateUsername(u.Username)
}
