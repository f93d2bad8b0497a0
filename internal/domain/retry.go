package domain

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"
)

// BaseDelay is the initial backoff delay. The delay before retry n is
// BaseDelay * 2^n, capped at the policy's MaxDelay. Fixed by contract with
// the web clients that share this policy; not configurable.
const BaseDelay = 1000 * time.Millisecond

// RetryPolicy defines retry behavior for one sequence of attempts.
// A policy is immutable once constructed and safe to share across
// concurrent sequences.
type RetryPolicy struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int `json:"max_attempts" yaml:"maxAttempts"`

	// MaxDelay caps any single backoff delay.
	MaxDelay time.Duration `json:"max_delay" yaml:"maxDelay"`

	// NoRetryStatuses lists HTTP statuses that are never retried,
	// regardless of remaining budget.
	NoRetryStatuses []int `json:"no_retry_statuses" yaml:"noRetryStatuses"`
}

// DefaultRetryPolicy returns the platform-wide default: three attempts,
// delays capped at 30s, and no retries for auth, not-found, or validation
// failures.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		MaxDelay:    30 * time.Second,
		NoRetryStatuses: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusUnprocessableEntity,
		},
	}
}

// Validate checks policy values.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return NewInvalidPolicyError("max attempts must be at least 1")
	}
	if p.MaxDelay < 0 {
		return NewInvalidPolicyError("max delay must be non-negative")
	}
	for _, status := range p.NoRetryStatuses {
		if status < 400 || status > 599 {
			return NewInvalidPolicyError(fmt.Sprintf("no-retry status %d outside 400..599", status))
		}
	}
	return nil
}

// NeverRetries reports whether status is in the policy's no-retry set.
func (p RetryPolicy) NeverRetries(status int) bool {
	return slices.Contains(p.NoRetryStatuses, status)
}

// RetryEvent describes one retry decision point, for observability.
type RetryEvent struct {
	Service       string        `json:"service"`
	Attempt       int           `json:"attempt"`
	MaxAttempts   int           `json:"max_attempts"`
	Delay         time.Duration `json:"delay"`
	Error         string        `json:"error,omitempty"`
	Exhausted     bool          `json:"exhausted"`
	CorrelationID string        `json:"correlation_id"`
	Timestamp     time.Time     `json:"timestamp"`
}

// EventEmitter receives retry events. Implementations must never fail or
// panic: the coordinator does not inspect any outcome of emission.
type EventEmitter interface {
	EmitRetry(ctx context.Context, event RetryEvent)
}

// EmitRetry emits through emitter if it is non-nil.
func EmitRetry(ctx context.Context, emitter EventEmitter, event RetryEvent) {
	if emitter == nil {
		return
	}
	emitter.EmitRetry(ctx, event)
}
