package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config holds runtime settings for the router loop.
type Config struct {
	// Session is the tmux session name experts run in.
	Session string

	// PollInterval is the router cycle cadence.
	PollInterval time.Duration
}

// fileConfig is the raw conclave.toml shape. Durations are strings so the
// file reads naturally ("5s", "1m").
type fileConfig struct {
	Session      string `toml:"session"`
	PollInterval string `toml:"poll_interval"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		Session:      "conclave",
		PollInterval: 5 * time.Second,
	}
}

// LoadConfig reads path and overlays it on the defaults. A missing file
// returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := toml.Unmarshal(data, &fc); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if fc.Session != "" {
		cfg.Session = fc.Session
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return cfg, fmt.Errorf("config %s: bad poll_interval: %w", path, err)
		}
		if d <= 0 {
			return cfg, fmt.Errorf("config %s: poll_interval must be positive", path)
		}
		cfg.PollInterval = d
	}

	return cfg, nil
}
