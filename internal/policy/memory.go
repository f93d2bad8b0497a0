package policy

import (
	"context"
	"sync"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// MemoryRepository is an in-memory PolicyRepository, used in development
// mode and in tests when no Redis is configured.
type MemoryRepository struct {
	mu       sync.RWMutex
	policies map[string]domain.ServicePolicy
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		policies: make(map[string]domain.ServicePolicy),
	}
}

// Get retrieves a policy by name. Returns nil, nil when absent.
func (r *MemoryRepository) Get(_ context.Context, name string) (*domain.ServicePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Save stores or replaces a policy.
func (r *MemoryRepository) Save(_ context.Context, policy *domain.ServicePolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.policies[policy.Name] = *policy
	return nil
}

// Delete removes a policy.
func (r *MemoryRepository) Delete(_ context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.policies, name)
	return nil
}

// List returns the names of all stored policies.
func (r *MemoryRepository) List(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	return names, nil
}
