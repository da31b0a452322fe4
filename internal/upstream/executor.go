// Package upstream wraps single upstream model calls with bounded latency and
// policy-driven retries across the two reachable routes (direct vs proxy).
package upstream

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Routing selects which route each attempt uses.
type Routing string

const (
	// RoutingProxyOnly sends every attempt through the proxy route.
	RoutingProxyOnly Routing = "proxy-only"
	// RoutingDirectFirst sends attempt 0 direct and all retries through the proxy.
	RoutingDirectFirst Routing = "direct-first"
)

// Policy bounds one logical upstream call.
type Policy struct {
	Routing        Routing
	MaxRetries     int
	BaseDelay      time.Duration
	AttemptTimeout time.Duration
}

// DefaultPolicy returns the executor defaults: 2 retries, 3s base backoff,
// 120s per-attempt timeout.
func DefaultPolicy(r Routing) Policy {
	return Policy{
		Routing:        r,
		MaxRetries:     2,
		BaseDelay:      3 * time.Second,
		AttemptTimeout: 120 * time.Second,
	}
}

// direct reports whether the given attempt should use the direct route.
func (p Policy) direct(attempt int) bool {
	return p.Routing == RoutingDirectFirst && attempt == 0
}

// Executor runs operations under a Policy. The sleep function is injectable so
// backoff behavior can be tested without real delays.
type Executor struct {
	logger *zap.Logger
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor. A nil logger disables logging.
func NewExecutor(logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		logger: logger,
		sleep:  sleepCtx,
	}
}

// WithSleep returns a copy of the executor using the given sleep function.
// Intended for tests.
func (e *Executor) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Executor {
	return &Executor{logger: e.logger, sleep: sleep}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do executes op under the policy. op receives useDirectRoute per the routing
// rule for the current attempt. Each attempt is raced against the per-attempt
// timeout; on timeout the wait is abandoned but the call itself keeps running
// until its context unwinds. Retries only happen for transient errors
// (429/500/503 or timeout) with exponential backoff, base × 2^attempt.
func Do[T any](ctx context.Context, e *Executor, p Policy, name string, op func(ctx context.Context, useDirectRoute bool) (T, error)) (T, error) {
	var zero T
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.BaseDelay * (1 << (attempt - 1))
			if err := e.sleep(ctx, backoff); err != nil {
				return zero, err
			}
		}

		direct := p.direct(attempt)
		e.logger.Debug("upstream attempt",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.String("route", routeName(direct)),
		)

		result, err := runAttempt(ctx, p, direct, op)
		if err == nil {
			e.logger.Info("upstream call succeeded",
				zap.String("op", name),
				zap.Int("attempt", attempt),
				zap.String("route", routeName(direct)),
			)
			return result, nil
		}

		lastErr = err
		if !IsTransient(err) {
			e.logger.Warn("upstream call failed, not retryable",
				zap.String("op", name),
				zap.Int("attempt", attempt),
				zap.String("route", routeName(direct)),
				zap.Error(err),
			)
			return zero, err
		}
		e.logger.Warn("upstream call failed",
			zap.String("op", name),
			zap.Int("attempt", attempt),
			zap.String("route", routeName(direct)),
			zap.Error(err),
		)
	}

	return zero, fmt.Errorf("%s: retries exhausted: %w", name, lastErr)
}

type outcome[T any] struct {
	value T
	err   error
}

// runAttempt races one invocation of op against the per-attempt timeout and
// the caller's context.
func runAttempt[T any](ctx context.Context, p Policy, direct bool, op func(ctx context.Context, useDirectRoute bool) (T, error)) (T, error) {
	var zero T

	ch := make(chan outcome[T], 1)
	go func() {
		v, err := op(ctx, direct)
		ch <- outcome[T]{value: v, err: err}
	}()

	timer := time.NewTimer(p.AttemptTimeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		return out.value, out.err
	case <-timer.C:
		return zero, fmt.Errorf("after %s: %w", p.AttemptTimeout, ErrAttemptTimeout)
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func routeName(direct bool) string {
	if direct {
		return "direct"
	}
	return "proxy"
}
