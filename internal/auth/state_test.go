package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/moodlist/internal/shared"
	tu "github.com/desertthunder/moodlist/internal/testing"
)

func TestStateSigner(t *testing.T) {
	newSigner := func(t *testing.T, secret string) (*StateSigner, *tu.Clock) {
		t.Helper()
		s, err := NewStateSigner(secret, 10*time.Minute)
		if err != nil {
			t.Fatalf("NewStateSigner() error = %v", err)
		}
		clock := tu.NewClock(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC))
		s.clock = clock.Now
		return s, clock
	}

	t.Run("Round Trip", func(t *testing.T) {
		s, _ := newSigner(t, "secret")

		state, err := s.Sign("alice")
		if err != nil {
			t.Fatalf("Sign() error = %v", err)
		}

		username, err := s.Verify(state)
		if err != nil {
			t.Fatalf("Verify() error = %v", err)
		}
		if username != "alice" {
			t.Errorf("Verify() = %q, want alice", username)
		}
	})

	t.Run("Expired", func(t *testing.T) {
		s, clock := newSigner(t, "secret")
		state, _ := s.Sign("alice")

		clock.Advance(11 * time.Minute)
		if _, err := s.Verify(state); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		a, _ := newSigner(t, "secret-a")
		b, _ := newSigner(t, "secret-b")

		state, _ := a.Sign("alice")
		if _, err := b.Verify(state); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("Tampered", func(t *testing.T) {
		s, _ := newSigner(t, "secret")
		state, _ := s.Sign("alice")

		parts := strings.Split(state, ".")
		parts[1] = parts[1][:len(parts[1])-2] + "xx"
		if _, err := s.Verify(strings.Join(parts, ".")); !errors.Is(err, ErrInvalidState) {
			t.Errorf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("Invalid Input", func(t *testing.T) {
		s, _ := newSigner(t, "secret")

		if _, err := s.Verify(""); shared.KindOf(err) != shared.KindValidation {
			t.Errorf("expected validation error, got %v", err)
		}
		if _, err := s.Sign("x"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected invalid username, got %v", err)
		}
		if _, err := NewStateSigner("", time.Minute); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}
