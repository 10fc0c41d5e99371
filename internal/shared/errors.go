package shared

import (
	"errors"
	"fmt"
)

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Storage errors
	ErrNotFound  = fmt.Errorf("record not found")
	ErrDuplicate = fmt.Errorf("record already exists")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrMalformedResponse  = fmt.Errorf("malformed remote response")
	ErrNoActiveDevice     = fmt.Errorf("no active Spotify device found; start playback on any device and try again")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)

// Kind classifies an error for callers that branch on failure category.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindRemote
	KindNoActiveDevice
	KindUnauthorized
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRemote:
		return "remote"
	case KindNoActiveDevice:
		return "no_active_device"
	case KindUnauthorized:
		return "unauthorized"
	default:
		return "internal"
	}
}

// ErrUnauthorized marks failures the user can only fix by authorizing again.
var ErrUnauthorized = fmt.Errorf("authorization required")

// KindOf maps err onto a [Kind] using the sentinels it wraps.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrNoActiveDevice):
		return KindNoActiveDevice
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrMissingArgument), errors.Is(err, ErrInvalidArgument):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrDuplicate):
		return KindConflict
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrAPIRequest), errors.Is(err, ErrMalformedResponse), errors.Is(err, ErrServiceUnavailable):
		return KindRemote
	default:
		return KindInternal
	}
}
