package main

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths holds all resolved conclave state file paths.
// Use ResolvePaths() to populate this struct with defaults + env overrides.
type Paths struct {
	ConclaveHome string // ~/.conclave or CONCLAVE_HOME
	QueueDir     string // queue/ or CONCLAVE_QUEUE_DIR
	OutboxDir    string // outbox/ or CONCLAVE_OUTBOX_DIR
	EventDBPath  string // events.db or CONCLAVE_DB_PATH
	ConfigPath   string // conclave.toml or CONCLAVE_CONFIG
	SeedPath     string // experts.yaml or CONCLAVE_EXPERTS
}

// ResolvePaths returns all conclave paths, respecting env var overrides.
// Environment variables:
//   - CONCLAVE_HOME: base directory for all conclave state (default: ~/.conclave)
//   - CONCLAVE_QUEUE_DIR: main queue directory (default: $CONCLAVE_HOME/queue)
//   - CONCLAVE_OUTBOX_DIR: outbox drop directory (default: $CONCLAVE_HOME/outbox)
//   - CONCLAVE_DB_PATH: event log database (default: $CONCLAVE_HOME/events.db)
//   - CONCLAVE_CONFIG: config file (default: $CONCLAVE_HOME/conclave.toml)
//   - CONCLAVE_EXPERTS: registry seed file (default: $CONCLAVE_HOME/experts.yaml)
//
// If CONCLAVE_HOME is set, it becomes the base for all default paths.
// Specific env vars override both the default and the CONCLAVE_HOME base.
func ResolvePaths() (*Paths, error) {
	home, err := resolveConclaveHome()
	if err != nil {
		return nil, err
	}

	return &Paths{
		ConclaveHome: home,
		QueueDir:     resolvePathWithEnv("CONCLAVE_QUEUE_DIR", home, "queue"),
		OutboxDir:    resolvePathWithEnv("CONCLAVE_OUTBOX_DIR", home, "outbox"),
		EventDBPath:  resolvePathWithEnv("CONCLAVE_DB_PATH", home, "events.db"),
		ConfigPath:   resolvePathWithEnv("CONCLAVE_CONFIG", home, "conclave.toml"),
		SeedPath:     resolvePathWithEnv("CONCLAVE_EXPERTS", home, "experts.yaml"),
	}, nil
}

// resolveConclaveHome returns the home directory from CONCLAVE_HOME or ~/.conclave.
func resolveConclaveHome() (string, error) {
	if v := os.Getenv("CONCLAVE_HOME"); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".conclave"), nil
}

// resolvePathWithEnv returns the path from envKey if set, otherwise joins base + suffix.
func resolvePathWithEnv(envKey, base, suffix string) string {
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return filepath.Join(base, suffix)
}
