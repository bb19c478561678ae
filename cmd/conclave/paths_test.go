package main

import (
	"path/filepath"
	"testing"
)

func TestResolvePathsHomeOverride(t *testing.T) {
	t.Setenv("CONCLAVE_HOME", "/custom/home")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if paths.ConclaveHome != "/custom/home" {
		t.Errorf("home: got %q, want /custom/home", paths.ConclaveHome)
	}
	if paths.QueueDir != filepath.Join("/custom/home", "queue") {
		t.Errorf("queue dir: got %q", paths.QueueDir)
	}
	if paths.OutboxDir != filepath.Join("/custom/home", "outbox") {
		t.Errorf("outbox dir: got %q", paths.OutboxDir)
	}
	if paths.EventDBPath != filepath.Join("/custom/home", "events.db") {
		t.Errorf("event db: got %q", paths.EventDBPath)
	}
}

func TestResolvePathsSpecificOverrideWins(t *testing.T) {
	t.Setenv("CONCLAVE_HOME", "/custom/home")
	t.Setenv("CONCLAVE_QUEUE_DIR", "/elsewhere/q")
	t.Setenv("CONCLAVE_DB_PATH", "/elsewhere/ev.db")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if paths.QueueDir != "/elsewhere/q" {
		t.Errorf("queue dir: got %q, want /elsewhere/q", paths.QueueDir)
	}
	if paths.EventDBPath != "/elsewhere/ev.db" {
		t.Errorf("event db: got %q, want /elsewhere/ev.db", paths.EventDBPath)
	}
	// Unoverridden paths still follow CONCLAVE_HOME.
	if paths.SeedPath != filepath.Join("/custom/home", "experts.yaml") {
		t.Errorf("seed path: got %q", paths.SeedPath)
	}
}

func TestResolvePathsDefaultsToHomeDir(t *testing.T) {
	t.Setenv("CONCLAVE_HOME", "")

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	if filepath.Base(paths.ConclaveHome) != ".conclave" {
		t.Errorf("default home: got %q, want ~/.conclave", paths.ConclaveHome)
	}
}
