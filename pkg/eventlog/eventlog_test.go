package eventlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestWriteAndQueryRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "conclave.db")

	w, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	if err := w.Log(ctx, TypeIngested, "queue", "msg-1", 0, ""); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := w.Log(ctx, TypeDelivered, "router", "msg-1", 3, "pane main:1.3"); err != nil {
		t.Fatalf("log: %v", err)
	}
	if err := w.Log(ctx, TypeFailed, "router", "msg-2", 4, "expert 4 is not idle"); err != nil {
		t.Fatalf("log: %v", err)
	}

	r, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	events, err := r.Query(ctx, QueryOpts{MessageID: "msg-1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("msg-1 events: got %d, want 2", len(events))
	}
	// Newest first.
	if events[0].Type != TypeDelivered || events[0].ExpertID != 3 {
		t.Fatalf("newest event: got %+v", events[0])
	}
	if events[1].Type != TypeIngested {
		t.Fatalf("oldest event: got %+v", events[1])
	}
}

func TestQueryFilters(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "conclave.db")

	w, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	for i := 0; i < 5; i++ {
		if err := w.Log(ctx, TypeDelivered, "router", "msg-x", 7, ""); err != nil {
			t.Fatalf("log: %v", err)
		}
	}
	if err := w.Log(ctx, TypeDropped, "router", "msg-y", 7, "attempt limit reached"); err != nil {
		t.Fatalf("log: %v", err)
	}

	r, err := NewReader(dbPath)
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	defer r.Close()

	events, err := r.Query(ctx, QueryOpts{EventType: TypeDropped})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 1 || events[0].Detail != "attempt limit reached" {
		t.Fatalf("dropped events: got %+v", events)
	}

	events, err = r.Query(ctx, QueryOpts{ExpertID: 7, Limit: 3})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("limited query: got %d, want 3", len(events))
	}

	future := time.Now().Add(time.Hour)
	events, err = r.Query(ctx, QueryOpts{After: &future})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("future window: got %d events, want 0", len(events))
	}
}

func TestNilWriterIsNoOp(t *testing.T) {
	var w *Writer
	if err := w.Log(context.Background(), TypeDelivered, "router", "msg-1", 1, ""); err != nil {
		t.Fatalf("nil writer must be a no-op, got %v", err)
	}
}

func TestReaderRequiresExistingDatabase(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.db")); err == nil {
		t.Fatal("expected missing database to be rejected")
	}
}
