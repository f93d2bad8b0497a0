package domain

import (
	"context"
	"fmt"
	"time"
)

// ServicePolicy is a named, versioned retry policy for one upstream service.
type ServicePolicy struct {
	Name      string      `json:"name" yaml:"name"`
	Version   int         `json:"version" yaml:"version"`
	Retry     RetryPolicy `json:"retry" yaml:"retry"`
	UpdatedAt time.Time   `json:"updated_at" yaml:"updatedAt"`
}

// Validate checks the policy entity.
func (p *ServicePolicy) Validate() error {
	if p.Name == "" {
		return NewInvalidPolicyError("policy name must not be empty")
	}
	if p.Version < 0 {
		return NewInvalidPolicyError("policy version must not be negative")
	}
	return p.Retry.Validate()
}

// PolicyRepository stores service policies.
type PolicyRepository interface {
	// Get retrieves a policy by name. Returns nil, nil when absent.
	Get(ctx context.Context, name string) (*ServicePolicy, error)

	// Save stores or replaces a policy.
	Save(ctx context.Context, policy *ServicePolicy) error

	// Delete removes a policy. Deleting an absent policy is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all stored policies.
	List(ctx context.Context) ([]string, error)
}

// ErrorCode represents the type of a resilience service error.
type ErrorCode string

const (
	ErrInvalidPolicy ErrorCode = "INVALID_POLICY"
	ErrRepository    ErrorCode = "REPOSITORY"
)

// ResilienceError represents errors raised by the service itself, as opposed
// to errors passed through from wrapped operations.
type ResilienceError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *ResilienceError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *ResilienceError) Unwrap() error {
	return e.Cause
}

// NewInvalidPolicyError creates an invalid policy error.
func NewInvalidPolicyError(message string) *ResilienceError {
	return &ResilienceError{
		Code:    ErrInvalidPolicy,
		Message: message,
	}
}

// NewRepositoryError wraps a storage failure.
func NewRepositoryError(message string, cause error) *ResilienceError {
	return &ResilienceError{
		Code:    ErrRepository,
		Message: message,
		Cause:   cause,
	}
}
