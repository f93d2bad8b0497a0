// Package config provides configuration for the resilience service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mojeeb/resilience-service/internal/domain"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config represents the complete service configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Redis  RedisConfig  `yaml:"redis"`
	OTEL   OTELConfig   `yaml:"otel"`
	Log    LogConfig    `yaml:"log"`
	Retry  RetryConfig  `yaml:"retry"`
}

// ServerConfig defines gRPC server settings.
type ServerConfig struct {
	Host            string   `yaml:"host"`
	Port            int      `yaml:"port"`
	ShutdownTimeout Duration `yaml:"shutdownTimeout"`
}

// RedisConfig defines Redis connection settings. An empty URL selects the
// in-memory policy repository.
type RedisConfig struct {
	URL      string `yaml:"url"`
	DB       int    `yaml:"db"`
	Password string `yaml:"password"`
}

// OTELConfig defines OpenTelemetry settings. An empty endpoint disables
// trace export.
type OTELConfig struct {
	Endpoint    string `yaml:"endpoint"`
	ServiceName string `yaml:"serviceName"`
	Insecure    bool   `yaml:"insecure"`
}

// LogConfig defines logging settings.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// RetryConfig defines the default retry policy and cache settings.
type RetryConfig struct {
	Default  RetryPolicyConfig `yaml:"default"`
	CacheTTL Duration          `yaml:"cacheTTL"`
}

// RetryPolicyConfig is the YAML form of a retry policy.
type RetryPolicyConfig struct {
	MaxAttempts     int      `yaml:"maxAttempts"`
	MaxDelay        Duration `yaml:"maxDelay"`
	NoRetryStatuses []int    `yaml:"noRetryStatuses"`
}

// Policy converts to the runtime policy.
func (c RetryPolicyConfig) Policy() domain.RetryPolicy {
	return domain.RetryPolicy{
		MaxAttempts:     c.MaxAttempts,
		MaxDelay:        c.MaxDelay.Std(),
		NoRetryStatuses: c.NoRetryStatuses,
	}
}

// NewDefaultConfig returns configuration with sensible defaults.
func NewDefaultConfig() *Config {
	def := domain.DefaultRetryPolicy()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            50061,
			ShutdownTimeout: Duration(30 * time.Second),
		},
		Redis: RedisConfig{
			URL: "",
			DB:  0,
		},
		OTEL: OTELConfig{
			Endpoint:    "",
			ServiceName: "resilience-service",
			Insecure:    true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Retry: RetryConfig{
			Default: RetryPolicyConfig{
				MaxAttempts:     def.MaxAttempts,
				MaxDelay:        Duration(def.MaxDelay),
				NoRetryStatuses: def.NoRetryStatuses,
			},
			CacheTTL: Duration(30 * time.Second),
		},
	}
}

// Load reads configuration from path (optional), applies environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("RESILIENCE_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("RESILIENCE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		cfg.OTEL.Endpoint = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// Validate checks configuration values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port %d outside 1..65535", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Std() < time.Second {
		return fmt.Errorf("shutdown timeout %v below 1s", c.Server.ShutdownTimeout.Std())
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if err := c.Retry.Default.Policy().Validate(); err != nil {
		return fmt.Errorf("default retry policy: %w", err)
	}
	if c.Retry.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must be non-negative")
	}
	return nil
}
