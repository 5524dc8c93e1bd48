package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL, got %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return errors.New("api.timeout must be > 0")
	}
	if c.API.HealthTimeout <= 0 {
		return errors.New("api.health_timeout must be > 0")
	}
	if c.API.RateLimit.RPS < 0 {
		return errors.New("api.rate_limit.rps must be >= 0")
	}

	switch c.Storage.CredentialBackend {
	case BackendKeyring, BackendFile, BackendMemory:
	default:
		return fmt.Errorf("storage.credential_backend must be one of keyring, file, memory, got %q", c.Storage.CredentialBackend)
	}
	if c.Storage.Dir == "" {
		return errors.New("storage.dir is required")
	}
	if c.Storage.KeyringService == "" {
		return errors.New("storage.keyring_service is required")
	}
	if c.Storage.KeyringAccount == "" {
		return errors.New("storage.keyring_account is required")
	}
	if c.Storage.SnapshotKey == "" {
		return errors.New("storage.snapshot_key is required")
	}

	if c.Ladder.Depth < 1 {
		return errors.New("ladder.depth must be >= 1")
	}
	if c.Ladder.Tick <= 0 || c.Ladder.Tick >= 1 {
		return fmt.Errorf("ladder.tick must be between 0 and 1, got %v", c.Ladder.Tick)
	}
	if c.Ladder.Growth < 1 {
		return errors.New("ladder.growth must be >= 1")
	}

	if c.Poller.Concurrency < 1 {
		return errors.New("poller.concurrency must be >= 1")
	}
	if c.Poller.Interval <= 0 {
		return errors.New("poller.interval must be > 0")
	}

	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}
