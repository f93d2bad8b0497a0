// Package retry implements the retry coordinator: bounded, classified
// retries with capped exponential backoff for fallible operations.
//
// The coordinator never transforms the wrapped operation's errors. A
// sequence resolves with the first successful result, or fails with the
// exact error from the last attempt made. Retry decisions and delays are
// observability events only.
package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
)

type config struct {
	service       string
	logger        *slog.Logger
	emitter       domain.EventEmitter
	correlationFn domain.CorrelationFn
	sleep         func(ctx context.Context, d time.Duration) error
}

// Option configures a retry sequence.
type Option func(*config)

// WithService tags emitted events and log entries with a service name.
func WithService(name string) Option {
	return func(c *config) { c.service = name }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithEmitter sets the retry event emitter.
func WithEmitter(emitter domain.EventEmitter) Option {
	return func(c *config) { c.emitter = emitter }
}

// WithCorrelationFn sets the correlation ID generator.
func WithCorrelationFn(fn domain.CorrelationFn) Option {
	return func(c *config) { c.correlationFn = fn }
}

// WithSleepFunc replaces the backoff wait. Optional: defaults to a
// timer-based wait honoring ctx. Tests substitute a recording stub to
// observe delays without waiting them out.
func WithSleepFunc(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *config) { c.sleep = sleep }
}

func newConfig(opts []Option) config {
	cfg := config{
		logger: slog.Default(),
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.correlationFn = domain.NewCorrelationFn(cfg.correlationFn)
	return cfg
}

// sleepContext waits for d without blocking other goroutines, returning
// early with ctx.Err() if the context is done first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Run executes op under policy, retrying transient failures with capped
// exponential backoff. Attempts are strictly sequential. The error returned
// on failure is the unmodified error from the last attempt made, except when
// ctx is canceled during a backoff wait, in which case ctx.Err() is returned.
func Run[T any](ctx context.Context, policy domain.RetryPolicy, op func(context.Context) (T, error), opts ...Option) (T, error) {
	cfg := newConfig(opts)
	correlationID := cfg.correlationFn()

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !ShouldRetry(err, attempt+1, policy) {
			logStop(ctx, cfg, policy, attempt+1, correlationID, err)
			return zero, err
		}

		delay := CalculateDelay(attempt, policy.MaxDelay)
		logWait(ctx, cfg, policy, attempt+1, delay, correlationID, err)

		if err := cfg.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, lastErr
}

// Do runs an operation that returns no value.
func Do(ctx context.Context, policy domain.RetryPolicy, op func(context.Context) error, opts ...Option) error {
	_, err := Run(ctx, policy, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	}, opts...)
	return err
}

func logWait(ctx context.Context, cfg config, policy domain.RetryPolicy, attempt int, delay time.Duration, correlationID string, err error) {
	cfg.logger.WarnContext(ctx, "attempt failed, retrying",
		slog.String("service", cfg.service),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.Duration("delay", delay),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()))

	domain.EmitRetry(ctx, cfg.emitter, domain.RetryEvent{
		Service:       cfg.service,
		Attempt:       attempt,
		MaxAttempts:   policy.MaxAttempts,
		Delay:         delay,
		Error:         err.Error(),
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	})
}

func logStop(ctx context.Context, cfg config, policy domain.RetryPolicy, attempt int, correlationID string, err error) {
	exhausted := attempt >= policy.MaxAttempts
	msg := "attempt failed, not retryable"
	if exhausted {
		msg = "retry budget exhausted"
	}

	cfg.logger.ErrorContext(ctx, msg,
		slog.String("service", cfg.service),
		slog.Int("attempt", attempt),
		slog.Int("max_attempts", policy.MaxAttempts),
		slog.String("correlation_id", correlationID),
		slog.String("error", err.Error()))

	domain.EmitRetry(ctx, cfg.emitter, domain.RetryEvent{
		Service:       cfg.service,
		Attempt:       attempt,
		MaxAttempts:   policy.MaxAttempts,
		Error:         err.Error(),
		Exhausted:     exhausted,
		CorrelationID: correlationID,
		Timestamp:     time.Now().UTC(),
	})
}
