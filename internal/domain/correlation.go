package domain

import "github.com/google/uuid"

// CorrelationFn produces a correlation ID for one retry sequence.
type CorrelationFn func() string

// NewCorrelationFn returns fn, or a UUID-based generator when fn is nil.
func NewCorrelationFn(fn CorrelationFn) CorrelationFn {
	if fn == nil {
		return func() string { return uuid.NewString() }
	}
	return fn
}
