// Package policy implements retry policy management: wire definitions,
// validation, and named per-service resolution.
package policy

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// Definition is the serializable form of a retry policy.
type Definition struct {
	MaxAttempts     int   `json:"max_attempts" yaml:"max_attempts"`
	MaxDelayMs      int   `json:"max_delay_ms" yaml:"max_delay_ms"`
	NoRetryStatuses []int `json:"no_retry_statuses,omitempty" yaml:"no_retry_statuses,omitempty"`
}

// ValidationError represents a policy validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a policy definition against platform bounds.
func Validate(def Definition) error {
	if def.MaxAttempts < 1 {
		return ValidationError{Field: "max_attempts", Message: "must be at least 1"}
	}
	if def.MaxAttempts > 10 {
		return ValidationError{Field: "max_attempts", Message: "must not exceed 10"}
	}

	if def.MaxDelayMs < 100 {
		return ValidationError{Field: "max_delay_ms", Message: "must be at least 100ms"}
	}
	if def.MaxDelayMs > 300000 {
		return ValidationError{Field: "max_delay_ms", Message: "must not exceed 300000ms"}
	}

	for _, status := range def.NoRetryStatuses {
		if status < 400 || status > 599 {
			return ValidationError{Field: "no_retry_statuses", Message: fmt.Sprintf("status %d outside 400..599", status)}
		}
	}

	return nil
}

// ParseJSON parses and validates a retry policy from JSON.
func ParseJSON(data []byte) (domain.RetryPolicy, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return domain.RetryPolicy{}, fmt.Errorf("parse retry policy: %w", err)
	}
	return fromDefinition(def)
}

// ParseYAML parses and validates a retry policy from YAML.
func ParseYAML(data []byte) (domain.RetryPolicy, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return domain.RetryPolicy{}, fmt.Errorf("parse retry policy: %w", err)
	}
	return fromDefinition(def)
}

func fromDefinition(def Definition) (domain.RetryPolicy, error) {
	if err := Validate(def); err != nil {
		return domain.RetryPolicy{}, err
	}
	return FromDefinition(def), nil
}

// FromDefinition converts a Definition to a runtime policy.
func FromDefinition(def Definition) domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:     def.MaxAttempts,
		MaxDelay:        time.Duration(def.MaxDelayMs) * time.Millisecond,
		NoRetryStatuses: def.NoRetryStatuses,
	}
}

// ToDefinition converts a runtime policy to its wire form.
func ToDefinition(policy domain.RetryPolicy) Definition {
	return Definition{
		MaxAttempts:     policy.MaxAttempts,
		MaxDelayMs:      int(policy.MaxDelay / time.Millisecond),
		NoRetryStatuses: policy.NoRetryStatuses,
	}
}

// MarshalJSON serializes a retry policy to JSON wire form.
func MarshalJSON(policy domain.RetryPolicy) ([]byte, error) {
	return json.Marshal(ToDefinition(policy))
}

// PrettyPrint returns a human-readable representation of the retry policy.
func PrettyPrint(policy domain.RetryPolicy) string {
	var sb strings.Builder

	sb.WriteString("Retry Policy:\n")
	sb.WriteString(fmt.Sprintf("  Max Attempts:   %d\n", policy.MaxAttempts))
	sb.WriteString(fmt.Sprintf("  Max Delay:      %v\n", policy.MaxDelay))
	sb.WriteString(fmt.Sprintf("  Base Delay:     %v (fixed)\n", domain.BaseDelay))

	if len(policy.NoRetryStatuses) > 0 {
		statuses := make([]string, len(policy.NoRetryStatuses))
		for i, s := range policy.NoRetryStatuses {
			statuses[i] = fmt.Sprintf("%d", s)
		}
		sb.WriteString(fmt.Sprintf("  Never Retry:    %s\n", strings.Join(statuses, ", ")))
	}

	return sb.String()
}
