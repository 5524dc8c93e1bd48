package config

import "time"

// Config is the root configuration for a predict-core client.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Ladder  LadderConfig  `yaml:"ladder"`
	Poller  PollerConfig  `yaml:"poller"`
	Feed    FeedConfig    `yaml:"feed"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig holds backend REST settings.
type APIConfig struct {
	BaseURL       string          `yaml:"base_url"`
	Timeout       time.Duration   `yaml:"timeout"`
	HealthTimeout time.Duration   `yaml:"health_timeout"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	UserAgent     string          `yaml:"user_agent"` // Empty uses the build version
}

// RateLimitConfig throttles outgoing requests. RPS 0 disables limiting.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// StorageConfig holds credential and snapshot persistence settings.
type StorageConfig struct {
	Dir               string `yaml:"dir"`
	CredentialBackend string `yaml:"credential_backend"` // keyring, file or memory
	KeyringService    string `yaml:"keyring_service"`
	KeyringAccount    string `yaml:"keyring_account"`
	SnapshotKey       string `yaml:"snapshot_key"`
}

// LadderConfig holds display ladder settings.
type LadderConfig struct {
	Depth        int     `yaml:"depth"`
	Tick         float64 `yaml:"tick"`
	Growth       float64 `yaml:"growth"`
	BaseQuantity float64 `yaml:"base_quantity"`
}

// PollerConfig holds orderbook poller settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
	Markets     []uint64      `yaml:"markets"`
}

// FeedConfig holds WebSocket stream settings.
type FeedConfig struct {
	URL          string        `yaml:"url"`
	PingTimeout  time.Duration `yaml:"ping_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BufferSize   int           `yaml:"buffer_size"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`  // debug, info, warn, error
	Format     string `yaml:"format"` // text or json
	Output     string `yaml:"output"` // stdout, stderr or a file path
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxBackups int    `yaml:"max_backups"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // Empty disables the /metrics listener
	Path string `yaml:"path"`
}
