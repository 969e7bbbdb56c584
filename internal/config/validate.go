package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	if c.Gateway.URL == "" {
		return errors.New("gateway.url is required")
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("gateway.timeout must be > 0")
	}
	if c.Gateway.MaxRetries != nil && *c.Gateway.MaxRetries < 0 {
		return errors.New("gateway.max_retries must be >= 0")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if _, err := ParseTarget(c.Capture.Target); err != nil {
		return err
	}
	if c.Capture.Interval < time.Second {
		return errors.New("capture.interval must be >= 1s")
	}
	if c.Capture.Workers < 1 {
		return errors.New("capture.workers must be >= 1")
	}
	if c.Capture.TradesLimit < 1 {
		return errors.New("capture.trades_limit must be >= 1")
	}
	if c.Capture.ProbeWindow <= 0 {
		return errors.New("capture.probe_window must be > 0")
	}

	if c.Aggregation.DepthWorkers < 0 {
		return errors.New("aggregation.depth_workers must be >= 0")
	}
	if c.Aggregation.DepthBatch < 1 {
		return errors.New("aggregation.depth_batch must be >= 1")
	}
	if c.Aggregation.BarWorkers < 0 {
		return errors.New("aggregation.bar_workers must be >= 0")
	}
	if c.Aggregation.BarMaxMinutes < 1 {
		return errors.New("aggregation.bar_max_minutes must be >= 1")
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ParseLevel maps a log.level value to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q is not one of debug, info, warn, error", s)
	}
}
