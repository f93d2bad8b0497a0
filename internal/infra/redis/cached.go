package redis

import (
	"context"
	"sync"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// CachedRepository is a read-through cache in front of a PolicyRepository.
// Writes go straight through and invalidate the cached entry.
type CachedRepository struct {
	inner domain.PolicyRepository
	ttl   time.Duration

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	policy    *domain.ServicePolicy
	fetchedAt time.Time
}

// NewCachedRepository wraps inner with a TTL cache.
func NewCachedRepository(inner domain.PolicyRepository, ttl time.Duration) *CachedRepository {
	return &CachedRepository{
		inner:   inner,
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached policy when fresh, otherwise reads through.
// Absence is cached too, so repeated lookups of unknown services do not
// hammer the store.
func (c *CachedRepository) Get(ctx context.Context, name string) (*domain.ServicePolicy, error) {
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()

	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.policy, nil
	}

	policy, err := c.inner.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.entries[name] = cacheEntry{policy: policy, fetchedAt: time.Now()}
	c.mu.Unlock()

	return policy, nil
}

// Save writes through and invalidates the entry.
func (c *CachedRepository) Save(ctx context.Context, policy *domain.ServicePolicy) error {
	if err := c.inner.Save(ctx, policy); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, policy.Name)
	c.mu.Unlock()
	return nil
}

// Delete writes through and invalidates the entry.
func (c *CachedRepository) Delete(ctx context.Context, name string) error {
	if err := c.inner.Delete(ctx, name); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.entries, name)
	c.mu.Unlock()
	return nil
}

// List always reads through; name listings are not cached.
func (c *CachedRepository) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}
