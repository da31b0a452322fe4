package upstream

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// noSleep records requested backoff delays without waiting.
func noSleep(delays *[]time.Duration) func(ctx context.Context, d time.Duration) error {
	return func(ctx context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return ctx.Err()
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	exec := NewExecutor(zap.NewNop())
	p := DefaultPolicy(RoutingDirectFirst)

	var routes []bool
	got, err := Do(context.Background(), exec, p, "test",
		func(ctx context.Context, direct bool) (string, error) {
			routes = append(routes, direct)
			return "ok", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, []bool{true}, routes, "first attempt of direct-first uses the direct route")
}

func TestDo_RetriesSwitchToProxy(t *testing.T) {
	var delays []time.Duration
	exec := NewExecutor(zap.NewNop()).WithSleep(noSleep(&delays))
	p := DefaultPolicy(RoutingDirectFirst)

	var routes []bool
	calls := 0
	got, err := Do(context.Background(), exec, p, "test",
		func(ctx context.Context, direct bool) (int, error) {
			routes = append(routes, direct)
			calls++
			if calls < 3 {
				return 0, &StatusError{Code: 503}
			}
			return 42, nil
		})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, []bool{true, false, false}, routes, "all retries go through the proxy")
	assert.Equal(t, []time.Duration{3 * time.Second, 6 * time.Second}, delays,
		"backoff doubles from the base delay")
}

func TestDo_ProxyOnlyNeverDirect(t *testing.T) {
	var delays []time.Duration
	exec := NewExecutor(zap.NewNop()).WithSleep(noSleep(&delays))
	p := DefaultPolicy(RoutingProxyOnly)

	var routes []bool
	_, err := Do(context.Background(), exec, p, "test",
		func(ctx context.Context, direct bool) (struct{}, error) {
			routes = append(routes, direct)
			return struct{}{}, &StatusError{Code: 500}
		})

	require.Error(t, err)
	assert.Equal(t, []bool{false, false, false}, routes)
}

func TestDo_NonTransientShortCircuits(t *testing.T) {
	var delays []time.Duration
	exec := NewExecutor(zap.NewNop()).WithSleep(noSleep(&delays))
	p := DefaultPolicy(RoutingDirectFirst)

	calls := 0
	_, err := Do(context.Background(), exec, p, "test",
		func(ctx context.Context, direct bool) (string, error) {
			calls++
			return "", &StatusError{Code: 401, Body: "bad key"}
		})

	require.Error(t, err)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 401, se.Code)
	assert.Equal(t, 1, calls, "auth failures are not retried")
	assert.Empty(t, delays)
}

func TestDo_RetriesExhausted(t *testing.T) {
	var delays []time.Duration
	exec := NewExecutor(zap.NewNop()).WithSleep(noSleep(&delays))
	p := DefaultPolicy(RoutingProxyOnly)

	calls := 0
	_, err := Do(context.Background(), exec, p, "estimate",
		func(ctx context.Context, direct bool) (string, error) {
			calls++
			return "", &StatusError{Code: 429}
		})

	require.Error(t, err)
	assert.Equal(t, 3, calls, "one initial attempt plus two retries")
	assert.Contains(t, err.Error(), "retries exhausted")
	var se *StatusError
	assert.ErrorAs(t, err, &se)
}

func TestDo_AttemptTimeoutIsTransient(t *testing.T) {
	var delays []time.Duration
	exec := NewExecutor(zap.NewNop()).WithSleep(noSleep(&delays))
	p := Policy{
		Routing:        RoutingProxyOnly,
		MaxRetries:     1,
		BaseDelay:      time.Second,
		AttemptTimeout: 10 * time.Millisecond,
	}

	calls := 0
	block := make(chan struct{})
	defer close(block)
	got, err := Do(context.Background(), exec, p, "test",
		func(ctx context.Context, direct bool) (string, error) {
			calls++
			if calls == 1 {
				<-block
				return "", nil
			}
			return "second", nil
		})

	require.NoError(t, err)
	assert.Equal(t, "second", got, "a timed-out attempt is retried")
	assert.Equal(t, []time.Duration{time.Second}, delays)
}

func TestDo_ContextCancelledStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	exec := NewExecutor(zap.NewNop()).WithSleep(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	})
	p := DefaultPolicy(RoutingProxyOnly)

	calls := 0
	_, err := Do(ctx, exec, p, "test",
		func(ctx context.Context, direct bool) (string, error) {
			calls++
			cancel()
			return "", &StatusError{Code: 503}
		})

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during backoff stops the loop")
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"rate limited", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 500}, true},
		{"unavailable", &StatusError{Code: 503}, true},
		{"bad request", &StatusError{Code: 400}, false},
		{"unauthorized", &StatusError{Code: 401}, false},
		{"attempt timeout", ErrAttemptTimeout, true},
		{"deadline", context.DeadlineExceeded, true},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
