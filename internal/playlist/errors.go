package playlist

import (
	"errors"
	"fmt"

	"github.com/desertthunder/moodlist/internal/models"
	"github.com/desertthunder/moodlist/internal/shared"
)

var (
	ErrInvalidPlaylistName   = models.ErrInvalidPlaylistName
	ErrDuplicatePlaylistName = fmt.Errorf("%w: playlist name already taken", shared.ErrDuplicate)
	ErrTrackAlreadyAssigned  = fmt.Errorf("%w: track already belongs to a playlist", shared.ErrDuplicate)
	ErrPlaylistNotFound      = fmt.Errorf("%w: playlist", shared.ErrNotFound)
	ErrTrackNotFound         = fmt.Errorf("%w: track", shared.ErrNotFound)
	ErrUserNotFound          = fmt.Errorf("%w: user", shared.ErrNotFound)
	ErrUserPlaylistExists    = fmt.Errorf("%w: remote playlist already recorded for user", shared.ErrDuplicate)
	ErrUserPlaylistNotFound  = fmt.Errorf("%w: user playlist", shared.ErrNotFound)
)

// Kind classifies a builder failure for callers that map errors to responses.
type Kind int

const (
	KindValidation Kind = iota
	KindNotFound
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is returned by [Builder] operations. Err is one of the package sentinels, optionally wrapped.
type Error struct {
	Kind Kind
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("playlist %q: %v", e.Name, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func invalid(name string, err error) error {
	return &Error{Kind: KindValidation, Name: name, Err: err}
}

func notFound(name string, sentinel error, key string) error {
	return &Error{Kind: KindNotFound, Name: name, Err: fmt.Errorf("%w: %s", sentinel, key)}
}

func conflict(name string, sentinel error, key string) error {
	return &Error{Kind: KindConflict, Name: name, Err: fmt.Errorf("%w: %s", sentinel, key)}
}

// KindOf reports the [Kind] of err when it came from this package.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
