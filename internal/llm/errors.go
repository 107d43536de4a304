package llm

import (
	"errors"
	"fmt"
	"time"
)

// Error kinds. An *APIError unwraps to exactly one of them.
var (
	ErrAuth              = errors.New("authentication failed")
	ErrQuotaExceeded     = errors.New("quota exceeded")
	ErrRateLimited       = errors.New("rate limited")
	ErrTransient         = errors.New("transient backend error")
	ErrContentBlocked    = errors.New("content blocked")
	ErrMalformedResponse = errors.New("malformed response")
	ErrModelNotFound     = errors.New("model not found")

	// ErrNoTargets means the client was built without any backend.
	ErrNoTargets = errors.New("no model targets configured")
)

// APIError is a classified failure of one model call.
type APIError struct {
	Kind       error         // One of the Err* kinds above
	StatusCode int           // HTTP status, 0 when none
	RetryAfter time.Duration // Server-suggested delay, 0 when none
	Backend    string
	Model      string
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s %s: %v", e.Backend, e.Model, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Kind
}

// Retryable reports whether the same target may be tried again.
func (e *APIError) Retryable() bool {
	return e.Kind == ErrRateLimited || e.Kind == ErrTransient
}

// fallsThrough reports whether a failure on one target should move the
// request on to the next target.
func fallsThrough(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.Kind {
	case ErrQuotaExceeded, ErrModelNotFound, ErrRateLimited, ErrTransient:
		return true
	}
	return false
}
