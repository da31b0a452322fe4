package pipeline

import (
	"context"
	"errors"

	"github.com/fyrsmithlabs/renovd/internal/upstream"
)

// ErrBudgetExceeded marks a run that blew the global wall-clock budget. It is
// distinct from a per-attempt upstream timeout.
var ErrBudgetExceeded = errors.New("renovation run exceeded time budget")

// ErrRunFailed marks any other unrecoverable run failure. The underlying cause
// is logged, never surfaced.
var ErrRunFailed = errors.New("renovation run failed")

// Exactly two user-facing messages exist. Raw upstream error text never
// reaches the end user.
const (
	MsgTimeout = "This took longer than expected. Try again with a smaller photo."
	MsgGeneric = "Something went wrong while generating your renovation. Please try again."
)

// UserMessage maps an error from Run to one of the two user-facing strings.
func UserMessage(err error) string {
	if errors.Is(err, ErrBudgetExceeded) {
		return MsgTimeout
	}
	return MsgGeneric
}

// classify translates an internal failure into one of the two public error
// classes. Context cancellation and timeout-class errors observed after the
// budget context expired count as budget exhaustion.
func classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrBudgetExceeded
	}
	if ctx.Err() != nil && errors.Is(err, upstream.ErrAttemptTimeout) {
		return ErrBudgetExceeded
	}
	return ErrRunFailed
}
