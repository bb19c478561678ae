package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session != "conclave" || cfg.PollInterval != 5*time.Second {
		t.Fatalf("defaults: got %+v", cfg)
	}
}

func TestLoadConfigOverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conclave.toml")
	doc := "session = \"agents\"\npoll_interval = \"2s\"\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Session != "agents" {
		t.Errorf("session: got %q, want agents", cfg.Session)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Errorf("poll interval: got %v, want 2s", cfg.PollInterval)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"bad duration", "poll_interval = \"soon\"\n"},
		{"zero interval", "poll_interval = \"0s\"\n"},
		{"not toml", "{json: true}\n"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "conclave.toml")
			if err := os.WriteFile(path, []byte(c.doc), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			if _, err := LoadConfig(path); err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}
