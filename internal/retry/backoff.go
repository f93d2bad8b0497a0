package retry

import (
	"math"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// CalculateDelay returns the backoff delay before the next attempt.
// attemptIndex is the 0-indexed count of retries already performed.
// The delay is domain.BaseDelay * 2^attemptIndex, capped at maxDelay.
// Deterministic: no jitter. Concurrent clients sharing a failing upstream
// will therefore retry in lockstep.
func CalculateDelay(attemptIndex int, maxDelay time.Duration) time.Duration {
	if attemptIndex < 0 {
		attemptIndex = 0
	}

	delay := float64(domain.BaseDelay) * math.Pow(2, float64(attemptIndex))
	if delay > float64(maxDelay) {
		return maxDelay
	}
	return time.Duration(delay)
}
