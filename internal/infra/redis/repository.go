// Package redis provides the Redis-backed policy repository.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mojeeb/resilience-service/internal/domain"
)

const defaultPrefix = "mojeeb:resilience:"

// Repository implements domain.PolicyRepository on Redis.
type Repository struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// Config holds Redis connection settings.
type Config struct {
	URL      string
	DB       int
	Password string
	Prefix   string
}

// NewRepository connects to Redis and verifies the connection.
func NewRepository(ctx context.Context, cfg Config, logger *slog.Logger) (*Repository, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	if cfg.Password != "" {
		opts.Password = cfg.Password
	}
	opts.DB = cfg.DB

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}

	logger.Info("connected to redis",
		slog.Int("db", cfg.DB),
		slog.String("prefix", prefix))

	return &Repository{
		client: client,
		prefix: prefix,
		logger: logger,
	}, nil
}

// Close closes the Redis connection.
func (r *Repository) Close() error {
	return r.client.Close()
}

// HealthCheck checks Redis connectivity.
func (r *Repository) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get retrieves a policy by name. Returns nil, nil when absent.
func (r *Repository) Get(ctx context.Context, name string) (*domain.ServicePolicy, error) {
	data, err := r.client.Get(ctx, r.policyKey(name)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewRepositoryError(fmt.Sprintf("get policy %s", name), err)
	}

	var policy domain.ServicePolicy
	if err := json.Unmarshal(data, &policy); err != nil {
		return nil, domain.NewRepositoryError(fmt.Sprintf("decode policy %s", name), err)
	}

	return &policy, nil
}

// Save stores or replaces a policy, and registers its name in the index set.
func (r *Repository) Save(ctx context.Context, policy *domain.ServicePolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(policy)
	if err != nil {
		return domain.NewRepositoryError(fmt.Sprintf("encode policy %s", policy.Name), err)
	}

	if err := r.client.Set(ctx, r.policyKey(policy.Name), data, 0).Err(); err != nil {
		return domain.NewRepositoryError(fmt.Sprintf("save policy %s", policy.Name), err)
	}

	if err := r.client.SAdd(ctx, r.indexKey(), policy.Name).Err(); err != nil {
		r.logger.WarnContext(ctx, "failed to index policy",
			slog.String("policy", policy.Name),
			slog.String("error", err.Error()))
	}

	r.logger.InfoContext(ctx, "policy saved",
		slog.String("policy", policy.Name),
		slog.Int("version", policy.Version))

	return nil
}

// Delete removes a policy and its index entry.
func (r *Repository) Delete(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, r.policyKey(name)).Err(); err != nil {
		return domain.NewRepositoryError(fmt.Sprintf("delete policy %s", name), err)
	}
	if err := r.client.SRem(ctx, r.indexKey(), name).Err(); err != nil {
		return domain.NewRepositoryError(fmt.Sprintf("unindex policy %s", name), err)
	}
	return nil
}

// List returns the names of all stored policies.
func (r *Repository) List(ctx context.Context) ([]string, error) {
	names, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, domain.NewRepositoryError("list policies", err)
	}
	return names, nil
}

func (r *Repository) policyKey(name string) string {
	return r.prefix + "policy:" + name
}

func (r *Repository) indexKey() string {
	return r.prefix + "policies"
}
