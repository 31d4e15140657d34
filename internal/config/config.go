package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the relay.
type Config struct {
	// StreamURL is the provider streaming gateway endpoint.
	StreamURL string

	// BearerToken authenticates the streaming connection.
	BearerToken string

	// DatabasePath is the SQLite database file.
	DatabasePath string

	// Port is the admin HTTP server port (health, metrics).
	Port int

	// BackoffInitial is the first reconnection delay after a disconnect.
	BackoffInitial time.Duration

	// BackoffMax caps the reconnection delay.
	BackoffMax time.Duration

	// UnfurlTimeout bounds each link metadata lookup.
	UnfurlTimeout time.Duration

	// MaintenanceInterval is how often the reconciliation sweep runs.
	MaintenanceInterval time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		StreamURL:           envOrDefault("RELAY_STREAM_URL", "wss://stream.twitter.com/2/tweets"),
		BearerToken:         os.Getenv("RELAY_BEARER_TOKEN"),
		DatabasePath:        envOrDefault("RELAY_DATABASE_PATH", "./relay.db"),
		BackoffInitial:      2 * time.Second,
		BackoffMax:          240 * time.Second,
		UnfurlTimeout:       10 * time.Second,
		MaintenanceInterval: 24 * time.Hour,
	}

	if cfg.BearerToken == "" {
		return nil, fmt.Errorf("RELAY_BEARER_TOKEN is required")
	}

	port := 3000
	if p := os.Getenv("RELAY_PORT"); p != "" {
		var err error
		port, err = strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid RELAY_PORT: %w", err)
		}
	}
	cfg.Port = port

	var err error
	if cfg.BackoffInitial, err = envDuration("RELAY_BACKOFF_INITIAL", cfg.BackoffInitial); err != nil {
		return nil, err
	}
	if cfg.BackoffMax, err = envDuration("RELAY_BACKOFF_MAX", cfg.BackoffMax); err != nil {
		return nil, err
	}
	if cfg.UnfurlTimeout, err = envDuration("RELAY_UNFURL_TIMEOUT", cfg.UnfurlTimeout); err != nil {
		return nil, err
	}
	if cfg.MaintenanceInterval, err = envDuration("RELAY_MAINTENANCE_INTERVAL", cfg.MaintenanceInterval); err != nil {
		return nil, err
	}

	if cfg.BackoffMax < cfg.BackoffInitial {
		return nil, fmt.Errorf("RELAY_BACKOFF_MAX must be >= RELAY_BACKOFF_INITIAL")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
