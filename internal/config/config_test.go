package config

import (
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 50061 {
		t.Errorf("default port = %d, want 50061", cfg.Server.Port)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("default log format = %q, want json", cfg.Log.Format)
	}
	if cfg.Retry.Default.MaxAttempts != 3 {
		t.Errorf("default max attempts = %d, want 3", cfg.Retry.Default.MaxAttempts)
	}
}

func TestLoadFromFile(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("host = %q", cfg.Server.Host)
	}
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout.Std() != 10*time.Second {
		t.Errorf("shutdown timeout = %v", cfg.Server.ShutdownTimeout.Std())
	}
	if cfg.Redis.URL != "redis://localhost:6379/2" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
	if cfg.OTEL.Endpoint != "otel-collector:4317" {
		t.Errorf("otel endpoint = %q", cfg.OTEL.Endpoint)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Retry.Default.MaxAttempts != 5 {
		t.Errorf("max attempts = %d", cfg.Retry.Default.MaxAttempts)
	}
	if cfg.Retry.Default.MaxDelay.Std() != 20*time.Second {
		t.Errorf("max delay = %v", cfg.Retry.Default.MaxDelay.Std())
	}
	if !cfg.Retry.Default.Policy().NeverRetries(410) {
		t.Error("expected 410 in no-retry set")
	}
	if cfg.Retry.CacheTTL.Std() != time.Minute {
		t.Errorf("cache ttl = %v", cfg.Retry.CacheTTL.Std())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("testdata/does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestDurationUnmarshal(t *testing.T) {
	t.Parallel()

	var d Duration
	if err := yaml.Unmarshal([]byte("250ms"), &d); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Std() != 250*time.Millisecond {
		t.Errorf("duration = %v, want 250ms", d.Std())
	}

	if err := yaml.Unmarshal([]byte("fast"), &d); err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RESILIENCE_PORT", "9090")
	t.Setenv("REDIS_URL", "redis://cache:6379")
	t.Setenv("LOG_LEVEL", "warn")

	cfg, err := Load("testdata/config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want env override 9090", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://cache:6379" {
		t.Errorf("redis url = %q", cfg.Redis.URL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }},
		{"shutdown timeout too short", func(c *Config) { c.Server.ShutdownTimeout = 0 }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad retry policy", func(c *Config) { c.Retry.Default.MaxAttempts = 0 }},
		{"negative cache ttl", func(c *Config) { c.Retry.CacheTTL = Duration(-time.Second) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
