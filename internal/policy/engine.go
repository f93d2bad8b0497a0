package policy

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// Engine resolves named per-service retry policies, falling back to the
// platform default. Safe for concurrent use.
type Engine struct {
	mu       sync.RWMutex
	policies map[string]*domain.ServicePolicy
	fallback domain.RetryPolicy
}

// NewEngine creates an engine with the given fallback policy.
func NewEngine(fallback domain.RetryPolicy) *Engine {
	return &Engine{
		policies: make(map[string]*domain.ServicePolicy),
		fallback: fallback,
	}
}

// Resolve returns the retry policy for service, or the fallback when no
// named policy exists.
func (e *Engine) Resolve(service string) domain.RetryPolicy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if p, ok := e.policies[service]; ok {
		return p.Retry
	}
	return e.fallback
}

// Get retrieves the full policy entity by name.
func (e *Engine) Get(name string) (*domain.ServicePolicy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	p, ok := e.policies[name]
	if !ok {
		return nil, fmt.Errorf("policy not found: %s", name)
	}
	return p, nil
}

// Update stores or replaces a named policy, bumping its version.
func (e *Engine) Update(policy *domain.ServicePolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if existing, ok := e.policies[policy.Name]; ok {
		policy.Version = existing.Version + 1
	} else {
		policy.Version = 1
	}
	policy.UpdatedAt = time.Now().UTC()

	e.policies[policy.Name] = policy
	return nil
}

// Delete removes a named policy.
func (e *Engine) Delete(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.policies[name]; !ok {
		return fmt.Errorf("policy not found: %s", name)
	}
	delete(e.policies, name)
	return nil
}

// Names returns all policy names.
func (e *Engine) Names() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	names := make([]string, 0, len(e.policies))
	for name := range e.policies {
		names = append(names, name)
	}
	return names
}

// LoadFrom replaces the engine's policies with those in the repository.
func (e *Engine) LoadFrom(ctx context.Context, repo domain.PolicyRepository) error {
	names, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list policies: %w", err)
	}

	loaded := make(map[string]*domain.ServicePolicy, len(names))
	for _, name := range names {
		p, err := repo.Get(ctx, name)
		if err != nil {
			return fmt.Errorf("load policy %s: %w", name, err)
		}
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("policy %s: %w", name, err)
		}
		loaded[name] = p
	}

	e.mu.Lock()
	e.policies = loaded
	e.mu.Unlock()
	return nil
}

// SaveTo writes all policies in the engine to the repository.
func (e *Engine) SaveTo(ctx context.Context, repo domain.PolicyRepository) error {
	e.mu.RLock()
	policies := make([]*domain.ServicePolicy, 0, len(e.policies))
	for _, p := range e.policies {
		policies = append(policies, p)
	}
	e.mu.RUnlock()

	for _, p := range policies {
		if err := repo.Save(ctx, p); err != nil {
			return fmt.Errorf("save policy %s: %w", p.Name, err)
		}
	}
	return nil
}
