package main

import (
	"bytes"
	"context"
	"testing"
	"time"
)

func TestBuildRouterWithSeed(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CONCLAVE_HOME", home)
	writeSeed(t, home)

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	r, events, err := buildRouter(paths, DefaultConfig())
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	defer events.Close()
	if r == nil {
		t.Fatal("expected a router")
	}
}

func TestBuildRouterWithoutSeed(t *testing.T) {
	// No experts.yaml: the router starts with an empty registry.
	t.Setenv("CONCLAVE_HOME", t.TempDir())

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	r, events, err := buildRouter(paths, DefaultConfig())
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	defer events.Close()
	if r == nil {
		t.Fatal("expected a router")
	}
}

func TestRunLoopStopsOnContextCancel(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CONCLAVE_HOME", home)

	paths, err := ResolvePaths()
	if err != nil {
		t.Fatalf("resolve paths: %v", err)
	}
	r, events, err := buildRouter(paths, DefaultConfig())
	if err != nil {
		t.Fatalf("build router: %v", err)
	}
	defer events.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- runLoop(ctx, new(bytes.Buffer), r, paths.OutboxDir, 50*time.Millisecond)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run loop: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run loop did not stop on cancel")
	}
}
