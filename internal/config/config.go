package config

import "time"

// Config is the root configuration shared by the gatherer and aggregator.
type Config struct {
	Instance    InstanceConfig    `yaml:"instance"`
	Log         LogConfig         `yaml:"log"`
	Gateway     GatewayConfig     `yaml:"gateway"`
	Database    DBConfig          `yaml:"database"`
	Capture     CaptureConfig     `yaml:"capture"`
	Aggregation AggregationConfig `yaml:"aggregation"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// InstanceConfig identifies this process.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// GatewayConfig holds connector gateway settings.
type GatewayConfig struct {
	URL        string        `yaml:"url"`
	APIKey     string        `yaml:"api_key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries *int          `yaml:"max_retries"` // nil = default; 0 disables retries
	RateLimit  float64       `yaml:"rate_limit"` // requests per second, 0 = unpaced
	RateBurst  int           `yaml:"rate_burst"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CaptureConfig holds capture engine settings.
type CaptureConfig struct {
	Exchanges      string        `yaml:"exchanges"` // comma list or *
	Bases          string        `yaml:"bases"`
	Quotes         string        `yaml:"quotes"`
	Target         string        `yaml:"target"` // all, book, trade
	Interval       time.Duration `yaml:"interval"`
	PollInterval   time.Duration `yaml:"poll_interval"`
	Workers        int           `yaml:"workers"`
	TradesLimit    int           `yaml:"trades_limit"`
	ProbeWindow    time.Duration `yaml:"probe_window"`
	CatalogRefresh time.Duration `yaml:"catalog_refresh"`
}

// AggregationConfig holds aggregation worker settings.
type AggregationConfig struct {
	DepthWorkers    int           `yaml:"depth_workers"`
	DepthBatch      int           `yaml:"depth_batch"`
	DepthDelay      time.Duration `yaml:"depth_delay"`
	BarWorkers      int           `yaml:"bar_workers"`
	BarMaxMinutes   int           `yaml:"bar_max_minutes"`
	BarDelay        time.Duration `yaml:"bar_delay"`
	ServerFunctions bool          `yaml:"server_functions"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// Retries returns the configured retry count, or the default when unset.
func (g GatewayConfig) Retries() int {
	if g.MaxRetries == nil {
		return DefaultMaxRetries
	}
	return *g.MaxRetries
}
