package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
instance:
  id: gatherer-1
gateway:
  url: http://ccxt-rest:3000
  rate_limit: 20
database:
  host: localhost
  port: 5432
  name: bookdata
  user: bookdata
  password: testpass
capture:
  exchanges: binance,kraken
  interval: 60s
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Instance.ID != "gatherer-1" {
		t.Errorf("Instance.ID = %q, want %q", cfg.Instance.ID, "gatherer-1")
	}
	if cfg.Gateway.URL != "http://ccxt-rest:3000" {
		t.Errorf("Gateway.URL = %q", cfg.Gateway.URL)
	}
	if cfg.Gateway.RateLimit != 20 {
		t.Errorf("Gateway.RateLimit = %v, want 20", cfg.Gateway.RateLimit)
	}
	if cfg.Database.Host != "localhost" {
		t.Errorf("Database.Host = %q, want %q", cfg.Database.Host, "localhost")
	}
	if cfg.Capture.Interval != time.Minute {
		t.Errorf("Capture.Interval = %v, want 1m", cfg.Capture.Interval)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
instance:
  id: gatherer-1
database:
  host: localhost
  name: bookdata
  user: bookdata
  password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Database.Password != "secret123" {
		t.Errorf("Database.Password = %q, want %q", cfg.Database.Password, "secret123")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	yaml := `
instance:
  id: gatherer-1
database:
  host: localhost
  name: bookdata
  user: bookdata
`
	path := writeTempFile(t, yaml)

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.Gateway.Timeout != DefaultGatewayTimeout {
		t.Errorf("Gateway.Timeout = %v, want default %v", cfg.Gateway.Timeout, DefaultGatewayTimeout)
	}
	if cfg.Database.Port != DefaultDBPort {
		t.Errorf("Database.Port = %d, want default %d", cfg.Database.Port, DefaultDBPort)
	}
	if cfg.Capture.Interval != 300*time.Second {
		t.Errorf("Capture.Interval = %v, want 5m", cfg.Capture.Interval)
	}
	if cfg.Capture.Workers != 16 {
		t.Errorf("Capture.Workers = %d, want 16", cfg.Capture.Workers)
	}
	if cfg.Capture.TradesLimit != 100000 {
		t.Errorf("Capture.TradesLimit = %d, want 100000", cfg.Capture.TradesLimit)
	}
	if cfg.Capture.ProbeWindow != 55*time.Minute {
		t.Errorf("Capture.ProbeWindow = %v, want 55m", cfg.Capture.ProbeWindow)
	}
	if cfg.Aggregation.DepthBatch != 100 {
		t.Errorf("Aggregation.DepthBatch = %d, want 100", cfg.Aggregation.DepthBatch)
	}
	if cfg.Aggregation.BarMaxMinutes != 90 {
		t.Errorf("Aggregation.BarMaxMinutes = %d, want 90", cfg.Aggregation.BarMaxMinutes)
	}
	if cfg.Metrics.Port != DefaultMetricsPort {
		t.Errorf("Metrics.Port = %d, want default %d", cfg.Metrics.Port, DefaultMetricsPort)
	}
	if got := cfg.Gateway.Retries(); got != 0 {
		t.Errorf("Gateway.Retries() = %d, want 0", got)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestLoadWithDefaultsKeepsExplicitRetries(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want int
	}{
		{"explicit zero", "gateway:\n  max_retries: 0\n", 0},
		{"explicit two", "gateway:\n  max_retries: 2\n", 2},
		{"unset", "instance:\n  id: gatherer-1\n", DefaultMaxRetries},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadWithDefaults(writeTempFile(t, tt.yaml))
			if err != nil {
				t.Fatalf("LoadWithDefaults failed: %v", err)
			}
			if cfg.Gateway.MaxRetries == nil {
				t.Fatal("Gateway.MaxRetries should be set after defaults")
			}
			if got := cfg.Gateway.Retries(); got != tt.want {
				t.Errorf("Gateway.Retries() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.Instance.ID = "test"
		c.Database = DBConfig{Host: "localhost", Name: "db", User: "user"}
		c.ApplyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing instance id",
			mutate:  func(c *Config) { c.Instance.ID = "" },
			wantErr: "instance.id is required",
		},
		{
			name:    "missing database host",
			mutate:  func(c *Config) { c.Database.Host = "" },
			wantErr: "database.host is required",
		},
		{
			name:    "min_conns exceeds max_conns",
			mutate:  func(c *Config) { c.Database.MaxConns, c.Database.MinConns = 5, 10 },
			wantErr: "database.min_conns (10) cannot exceed max_conns (5)",
		},
		{
			name:    "bad target",
			mutate:  func(c *Config) { c.Capture.Target = "ticker" },
			wantErr: `capture.target "ticker" is not one of all, book, trade`,
		},
		{
			name:    "zero workers",
			mutate:  func(c *Config) { c.Capture.Workers = -1 },
			wantErr: "capture.workers must be >= 1",
		},
		{
			name:    "sub-second interval",
			mutate:  func(c *Config) { c.Capture.Interval = 500 * time.Millisecond },
			wantErr: "capture.interval must be >= 1s",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { n := -1; c.Gateway.MaxRetries = &n },
			wantErr: "gateway.max_retries must be >= 0",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Log.Level = "loud" },
			wantErr: `log.level "loud" is not one of debug, info, warn, error`,
		},
		{
			name:    "metrics port out of range",
			mutate:  func(c *Config) { c.Metrics.Port = 70000 },
			wantErr: "metrics.port must be between 1 and 65535, got 70000",
		},
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("Validate() expected error containing %q, got nil", tt.wantErr)
				} else if err.Error() != tt.wantErr {
					t.Errorf("Validate() error = %q, want %q", err.Error(), tt.wantErr)
				}
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
