// Package config holds runtime settings for the r3k tools. Settings come from
// the environment (optionally seeded from a .env file by the caller) and a
// YAML override table.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	// SEC requires a contact in the User-Agent of every request.
	UserAgent string

	DataDir   string
	OutputDir string

	// Postgres; empty disables the database sink.
	DatabaseURL string

	Workers         int
	RequestInterval time.Duration

	// Path to an override table replacing the embedded default.
	OverridesPath string
}

func Load() Config {
	cfg := Config{
		UserAgent: os.Getenv("R3K_USER_AGENT"),

		DataDir:   envOr("R3K_DATA_DIR", "data/raw"),
		OutputDir: envOr("R3K_OUTPUT_DIR", "data/parsed"),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		Workers:         envInt("R3K_WORKERS", 4),
		RequestInterval: envDuration("R3K_REQUEST_INTERVAL", 200*time.Millisecond),

		OverridesPath: os.Getenv("R3K_OVERRIDES"),
	}

	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = 200 * time.Millisecond
	}

	return cfg
}

// ValidateForPull checks the settings needed to talk to EDGAR.
func (c Config) ValidateForPull() error {
	if c.UserAgent == "" {
		return fmt.Errorf("R3K_USER_AGENT (or -a) is required: SEC rejects anonymous requests")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
