package retry

import (
	"net/http"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// Rate-limited calls get at most one retry, regardless of the general
// attempt budget. Kept as a fixed constant for compatibility with the web
// clients sharing this policy.
const maxRateLimitAttempts = 2

// ShouldRetry decides whether the attempt just completed should be followed
// by another. attemptNumber is 1-indexed: it is the number of attempts made
// so far, including the one that produced err.
//
// Retry is opt-in: only recognized transient shapes are retried. An error
// that exposes neither an HTTP status nor a transport code is propagated
// immediately.
func ShouldRetry(err error, attemptNumber int, policy domain.RetryPolicy) bool {
	if err == nil {
		return false
	}
	if attemptNumber >= policy.MaxAttempts {
		return false
	}

	if status, ok := domain.HTTPStatusOf(err); ok {
		if policy.NeverRetries(status) {
			return false
		}
		if status == http.StatusTooManyRequests {
			return attemptNumber < maxRateLimitAttempts
		}
		return status >= 500 && status <= 599
	}

	if code, ok := domain.TransportCodeOf(err); ok {
		return isTransientTransport(code)
	}

	// A classifiable error with neither a status nor a transport code is a
	// request that failed before any response arrived.
	return domain.IsClassifiable(err)
}

func isTransientTransport(code domain.TransportCode) bool {
	switch code {
	case domain.TransportTimeout, domain.TransportDNSFailure, domain.TransportUnreachable:
		return true
	default:
		return false
	}
}
