package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	yaml := `
api:
  base_url: https://api.predict.test
  timeout: 4s
  rate_limit:
    rps: 2.5
storage:
  credential_backend: file
poller:
  markets: [3, 18446744073709551615]
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://api.predict.test" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://api.predict.test")
	}
	if cfg.API.Timeout != 4*time.Second {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 4*time.Second)
	}
	if cfg.API.RateLimit.RPS != 2.5 {
		t.Errorf("API.RateLimit.RPS = %v, want 2.5", cfg.API.RateLimit.RPS)
	}
	if cfg.Storage.CredentialBackend != BackendFile {
		t.Errorf("Storage.CredentialBackend = %q, want %q", cfg.Storage.CredentialBackend, BackendFile)
	}
	if len(cfg.Poller.Markets) != 2 || cfg.Poller.Markets[1] != 18446744073709551615 {
		t.Errorf("Poller.Markets = %v, want [3 max]", cfg.Poller.Markets)
	}
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_FEED_HOST", "stream.predict.test")

	yaml := `
feed:
  url: wss://${TEST_FEED_HOST}/ws
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Feed.URL != "wss://stream.predict.test/ws" {
		t.Errorf("Feed.URL = %q, want %q", cfg.Feed.URL, "wss://stream.predict.test/ws")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://override.test")
	t.Setenv(EnvAPITimeout, "750ms")

	path := writeTempFile(t, "api:\n  base_url: https://file.test\n  timeout: 2s\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.API.BaseURL != "https://override.test" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://override.test")
	}
	if cfg.API.Timeout != 750*time.Millisecond {
		t.Errorf("API.Timeout = %v, want %v", cfg.API.Timeout, 750*time.Millisecond)
	}

	t.Run("bad timeout", func(t *testing.T) {
		t.Setenv(EnvAPITimeout, "soon")
		if _, err := Load(path); err == nil {
			t.Error("Load() expected error for unparseable timeout")
		}
	})
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "api:\n  rate_limit:\n    rps: 1\n")

	cfg, err := LoadWithDefaults(path)
	if err != nil {
		t.Fatalf("LoadWithDefaults failed: %v", err)
	}

	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("API.BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.API.Timeout != DefaultAPITimeout {
		t.Errorf("API.Timeout = %v, want default %v", cfg.API.Timeout, DefaultAPITimeout)
	}
	if cfg.API.HealthTimeout != DefaultHealthTimeout {
		t.Errorf("API.HealthTimeout = %v, want default %v", cfg.API.HealthTimeout, DefaultHealthTimeout)
	}
	if cfg.API.RateLimit.Burst != DefaultRateLimitBurst {
		t.Errorf("API.RateLimit.Burst = %d, want default %d", cfg.API.RateLimit.Burst, DefaultRateLimitBurst)
	}
	if cfg.Storage.KeyringService != "predict-core" || cfg.Storage.KeyringAccount != "bearer" {
		t.Errorf("keyring = %s/%s, want predict-core/bearer", cfg.Storage.KeyringService, cfg.Storage.KeyringAccount)
	}
	if cfg.Storage.SnapshotKey != "session.snapshot" {
		t.Errorf("Storage.SnapshotKey = %q, want %q", cfg.Storage.SnapshotKey, "session.snapshot")
	}
	if cfg.Ladder.Depth != DefaultLadderDepth {
		t.Errorf("Ladder.Depth = %d, want default %d", cfg.Ladder.Depth, DefaultLadderDepth)
	}
	if cfg.Poller.Concurrency != DefaultPollConcurrency {
		t.Errorf("Poller.Concurrency = %d, want default %d", cfg.Poller.Concurrency, DefaultPollConcurrency)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, DefaultLogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() after defaults: %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv(EnvAPIURL, "https://env.test")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("FromEnv failed: %v", err)
	}
	if cfg.API.BaseURL != "https://env.test" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "https://env.test")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.applyDefaults()
		return c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing base url",
			mutate:  func(c *Config) { c.API.BaseURL = "" },
			wantErr: "api.base_url is required",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.API.BaseURL = "api.test" },
			wantErr: `api.base_url must be an absolute URL, got "api.test"`,
		},
		{
			name:    "unknown credential backend",
			mutate:  func(c *Config) { c.Storage.CredentialBackend = "vault" },
			wantErr: `storage.credential_backend must be one of keyring, file, memory, got "vault"`,
		},
		{
			name:    "zero depth",
			mutate:  func(c *Config) { c.Ladder.Depth = -1 },
			wantErr: "ladder.depth must be >= 1",
		},
		{
			name:    "shrinking growth",
			mutate:  func(c *Config) { c.Ladder.Growth = 0.5 },
			wantErr: "ladder.growth must be >= 1",
		},
		{
			name:    "bad log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: `logging.level must be one of debug, info, warn, error, got "trace"`,
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

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}
