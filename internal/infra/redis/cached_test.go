package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mojeeb/resilience-service/internal/domain"
)

type countingRepo struct {
	gets    atomic.Int32
	policy  *domain.ServicePolicy
	failGet bool
}

func (r *countingRepo) Get(_ context.Context, name string) (*domain.ServicePolicy, error) {
	r.gets.Add(1)
	if r.failGet {
		return nil, errors.New("store down")
	}
	if r.policy != nil && r.policy.Name == name {
		return r.policy, nil
	}
	return nil, nil
}

func (r *countingRepo) Save(_ context.Context, policy *domain.ServicePolicy) error {
	r.policy = policy
	return nil
}

func (r *countingRepo) Delete(_ context.Context, name string) error {
	if r.policy != nil && r.policy.Name == name {
		r.policy = nil
	}
	return nil
}

func (r *countingRepo) List(_ context.Context) ([]string, error) {
	if r.policy == nil {
		return nil, nil
	}
	return []string{r.policy.Name}, nil
}

func testServicePolicy() *domain.ServicePolicy {
	return &domain.ServicePolicy{
		Name:  "agent-api",
		Retry: domain.RetryPolicy{MaxAttempts: 3, MaxDelay: 30 * time.Second},
	}
}

func TestCachedRepositoryServesFromCache(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingRepo{policy: testServicePolicy()}
	cached := NewCachedRepository(inner, time.Minute)

	for i := 0; i < 5; i++ {
		p, err := cached.Get(ctx, "agent-api")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p == nil || p.Name != "agent-api" {
			t.Fatalf("policy = %+v", p)
		}
	}

	if got := inner.gets.Load(); got != 1 {
		t.Errorf("inner gets = %d, want 1", got)
	}
}

func TestCachedRepositoryCachesAbsence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingRepo{}
	cached := NewCachedRepository(inner, time.Minute)

	for i := 0; i < 3; i++ {
		p, err := cached.Get(ctx, "unknown")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p != nil {
			t.Fatalf("policy = %+v, want nil", p)
		}
	}

	if got := inner.gets.Load(); got != 1 {
		t.Errorf("inner gets = %d, want 1", got)
	}
}

func TestCachedRepositoryExpires(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingRepo{policy: testServicePolicy()}
	cached := NewCachedRepository(inner, time.Nanosecond)

	_, _ = cached.Get(ctx, "agent-api")
	time.Sleep(time.Millisecond)
	_, _ = cached.Get(ctx, "agent-api")

	if got := inner.gets.Load(); got != 2 {
		t.Errorf("inner gets = %d, want 2", got)
	}
}

func TestCachedRepositoryInvalidatesOnWrite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingRepo{policy: testServicePolicy()}
	cached := NewCachedRepository(inner, time.Minute)

	_, _ = cached.Get(ctx, "agent-api")

	updated := testServicePolicy()
	updated.Retry.MaxAttempts = 7
	if err := cached.Save(ctx, updated); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := cached.Get(ctx, "agent-api")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Retry.MaxAttempts != 7 {
		t.Errorf("max attempts = %d, want 7 (stale cache)", p.Retry.MaxAttempts)
	}
}

func TestCachedRepositoryPropagatesErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	inner := &countingRepo{failGet: true}
	cached := NewCachedRepository(inner, time.Minute)

	if _, err := cached.Get(ctx, "agent-api"); err == nil {
		t.Fatal("expected error")
	}
	// Errors are not cached; the next read hits the store again.
	if _, err := cached.Get(ctx, "agent-api"); err == nil {
		t.Fatal("expected error")
	}
	if got := inner.gets.Load(); got != 2 {
		t.Errorf("inner gets = %d, want 2", got)
	}
}
