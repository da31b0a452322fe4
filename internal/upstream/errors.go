package upstream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrAttemptTimeout marks a single attempt that exceeded its per-attempt
// timeout. The underlying call is not cancelled, only the wait is abandoned.
// Distinct from the orchestrator's global budget error.
var ErrAttemptTimeout = errors.New("upstream attempt timed out")

// StatusError carries the HTTP-like status code returned by an upstream model
// endpoint. The retry policy classifies transience by code.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream error (%d)", e.Code)
	}
	return fmt.Sprintf("upstream error (%d): %s", e.Code, e.Body)
}

// Transient reports whether the status code is worth retrying.
func (e *StatusError) Transient() bool {
	switch e.Code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// IsTransient reports whether an error should be retried: a 429/500/503 status
// or a timeout. Everything else propagates immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return false
}
