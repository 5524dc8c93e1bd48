package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultBaseURL           = "http://localhost:8080"
	DefaultAPITimeout        = 10 * time.Second
	DefaultHealthTimeout     = 3 * time.Second
	DefaultRateLimitBurst    = 5
	DefaultStorageDir        = ".predict-core"
	DefaultCredentialBackend = BackendKeyring
	DefaultKeyringService    = "predict-core"
	DefaultKeyringAccount    = "bearer"
	DefaultSnapshotKey       = "session.snapshot"
	DefaultLadderDepth       = 10
	DefaultLadderTick        = 0.01
	DefaultLadderGrowth      = 1.2
	DefaultBaseQuantity      = 100
	DefaultPollInterval      = 5 * time.Second
	DefaultPollConcurrency   = 4
	DefaultPingTimeout       = 30 * time.Second
	DefaultWriteTimeout      = 10 * time.Second
	DefaultFeedBufferSize    = 256
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultLogOutput         = "stderr"
	DefaultLogMaxSizeMB      = 50
	DefaultLogMaxAgeDays     = 14
	DefaultLogMaxBackups     = 5
	DefaultMetricsPath       = "/metrics"
)

// Credential backends.
const (
	BackendKeyring = "keyring"
	BackendFile    = "file"
	BackendMemory  = "memory"
)

func (c *Config) applyDefaults() {
	// API defaults
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultBaseURL
	}
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.HealthTimeout == 0 {
		c.API.HealthTimeout = DefaultHealthTimeout
	}
	if c.API.RateLimit.RPS > 0 && c.API.RateLimit.Burst == 0 {
		c.API.RateLimit.Burst = DefaultRateLimitBurst
	}

	// Storage defaults
	if c.Storage.Dir == "" {
		c.Storage.Dir = DefaultStorageDir
	}
	if c.Storage.CredentialBackend == "" {
		c.Storage.CredentialBackend = DefaultCredentialBackend
	}
	if c.Storage.KeyringService == "" {
		c.Storage.KeyringService = DefaultKeyringService
	}
	if c.Storage.KeyringAccount == "" {
		c.Storage.KeyringAccount = DefaultKeyringAccount
	}
	if c.Storage.SnapshotKey == "" {
		c.Storage.SnapshotKey = DefaultSnapshotKey
	}

	// Ladder defaults
	if c.Ladder.Depth == 0 {
		c.Ladder.Depth = DefaultLadderDepth
	}
	if c.Ladder.Tick == 0 {
		c.Ladder.Tick = DefaultLadderTick
	}
	if c.Ladder.Growth == 0 {
		c.Ladder.Growth = DefaultLadderGrowth
	}
	if c.Ladder.BaseQuantity == 0 {
		c.Ladder.BaseQuantity = DefaultBaseQuantity
	}

	// Poller defaults
	if c.Poller.Interval == 0 {
		c.Poller.Interval = DefaultPollInterval
	}
	if c.Poller.Concurrency == 0 {
		c.Poller.Concurrency = DefaultPollConcurrency
	}

	// Feed defaults
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = DefaultLogOutput
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = DefaultLogMaxSizeMB
	}
	if c.Logging.MaxAgeDays == 0 {
		c.Logging.MaxAgeDays = DefaultLogMaxAgeDays
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = DefaultLogMaxBackups
	}

	// Metrics defaults
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
