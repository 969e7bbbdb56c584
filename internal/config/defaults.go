package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultLogLevel       = "info"
	DefaultGatewayURL     = "http://localhost:3000"
	DefaultGatewayTimeout = 60 * time.Second
	DefaultMaxRetries     = 0
	DefaultDBPort         = 5432
	DefaultDBSSLMode      = "prefer"
	DefaultMaxConns       = 20
	DefaultMinConns       = 2
	DefaultExchanges      = "*"
	DefaultBases          = "*"
	DefaultQuotes         = "*"
	DefaultTarget         = string(TargetAll)
	DefaultInterval       = 300 * time.Second
	DefaultPollInterval   = 200 * time.Millisecond
	DefaultWorkers        = 16
	DefaultTradesLimit    = 100000
	DefaultProbeWindow    = 55 * time.Minute
	DefaultCatalogRefresh = time.Hour
	DefaultDepthWorkers   = 2
	DefaultDepthBatch     = 100
	DefaultDepthDelay     = time.Second
	DefaultBarWorkers     = 4
	DefaultBarMaxMinutes  = 90
	DefaultBarDelay       = 5 * time.Second
	DefaultMetricsPort    = 9090
	DefaultMetricsPath    = "/metrics"
)

// ApplyDefaults fills zero-valued optional fields.
func (c *Config) ApplyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}

	// Gateway defaults
	if c.Gateway.URL == "" {
		c.Gateway.URL = DefaultGatewayURL
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = DefaultGatewayTimeout
	}
	if c.Gateway.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.Gateway.MaxRetries = &retries
	}
	if c.Gateway.RateLimit > 0 && c.Gateway.RateBurst == 0 {
		c.Gateway.RateBurst = 1
	}

	applyDBDefaults(&c.Database)

	// Capture defaults
	if c.Capture.Exchanges == "" {
		c.Capture.Exchanges = DefaultExchanges
	}
	if c.Capture.Bases == "" {
		c.Capture.Bases = DefaultBases
	}
	if c.Capture.Quotes == "" {
		c.Capture.Quotes = DefaultQuotes
	}
	if c.Capture.Target == "" {
		c.Capture.Target = DefaultTarget
	}
	if c.Capture.Interval == 0 {
		c.Capture.Interval = DefaultInterval
	}
	if c.Capture.PollInterval == 0 {
		c.Capture.PollInterval = DefaultPollInterval
	}
	if c.Capture.Workers == 0 {
		c.Capture.Workers = DefaultWorkers
	}
	if c.Capture.TradesLimit == 0 {
		c.Capture.TradesLimit = DefaultTradesLimit
	}
	if c.Capture.ProbeWindow == 0 {
		c.Capture.ProbeWindow = DefaultProbeWindow
	}
	if c.Capture.CatalogRefresh == 0 {
		c.Capture.CatalogRefresh = DefaultCatalogRefresh
	}

	// Aggregation defaults
	if c.Aggregation.DepthWorkers == 0 {
		c.Aggregation.DepthWorkers = DefaultDepthWorkers
	}
	if c.Aggregation.DepthBatch == 0 {
		c.Aggregation.DepthBatch = DefaultDepthBatch
	}
	if c.Aggregation.DepthDelay == 0 {
		c.Aggregation.DepthDelay = DefaultDepthDelay
	}
	if c.Aggregation.BarWorkers == 0 {
		c.Aggregation.BarWorkers = DefaultBarWorkers
	}
	if c.Aggregation.BarMaxMinutes == 0 {
		c.Aggregation.BarMaxMinutes = DefaultBarMaxMinutes
	}
	if c.Aggregation.BarDelay == 0 {
		c.Aggregation.BarDelay = DefaultBarDelay
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
