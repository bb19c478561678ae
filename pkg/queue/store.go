// Package queue persists messages between acceptance and delivery. Each
// queued message is one JSON file under the queue directory, keyed by
// message id; the outbox directory is the drop point where senders place
// raw messages for ingestion. Files are written via temp-and-rename so a
// crashed writer never leaves a torn message behind.
package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"conclave/pkg/protocol"
)

// Config holds store settings. Zero values select defaults.
type Config struct {
	// Dir is the queue directory. Required.
	Dir string

	// OutboxDir is where senders drop raw message files. Defaults to
	// Dir/../outbox.
	OutboxDir string

	// NowFunc returns the current time. Defaults to time.Now.
	NowFunc func() time.Time
}

func (c Config) withDefaults() Config {
	if c.OutboxDir == "" {
		c.OutboxDir = filepath.Join(filepath.Dir(c.Dir), "outbox")
	}
	if c.NowFunc == nil {
		c.NowFunc = time.Now
	}
	return c
}

// Store is the file-backed message queue.
type Store struct {
	dir       string
	outboxDir string
	nowFunc   func() time.Time
}

// NewStore creates the queue and outbox directories if needed.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("queue dir is required")
	}
	cfg = cfg.withDefaults()
	for _, d := range []string{cfg.Dir, cfg.OutboxDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create queue dir: %w", err)
		}
	}
	return &Store{
		dir:       cfg.Dir,
		outboxDir: cfg.OutboxDir,
		nowFunc:   cfg.NowFunc,
	}, nil
}

// Dir returns the queue directory.
func (s *Store) Dir() string { return s.dir }

// OutboxDir returns the outbox drop directory.
func (s *Store) OutboxDir() string { return s.outboxDir }

func (s *Store) pathFor(messageID string) string {
	return filepath.Join(s.dir, messageID+".json")
}

// Enqueue persists a queued message, overwriting any file with the same
// message id.
func (s *Store) Enqueue(qm protocol.QueuedMessage) error {
	if err := qm.Message.Validate(); err != nil {
		return fmt.Errorf("enqueue: %w", err)
	}
	return s.write(qm)
}

func (s *Store) write(qm protocol.QueuedMessage) error {
	data, err := json.MarshalIndent(qm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal message %s: %w", qm.Message.MessageID, err)
	}
	dst := s.pathFor(qm.Message.MessageID)
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write message %s: %w", qm.Message.MessageID, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("commit message %s: %w", qm.Message.MessageID, err)
	}
	return nil
}

// Get reads one queued message by id.
func (s *Store) Get(messageID string) (protocol.QueuedMessage, error) {
	var qm protocol.QueuedMessage
	data, err := os.ReadFile(s.pathFor(messageID))
	if err != nil {
		return qm, fmt.Errorf("read message %s: %w", messageID, err)
	}
	if err := json.Unmarshal(data, &qm); err != nil {
		return qm, fmt.Errorf("parse message %s: %w", messageID, err)
	}
	return qm, nil
}

// Dequeue removes a message from the queue and returns it.
func (s *Store) Dequeue(messageID string) (protocol.QueuedMessage, error) {
	qm, err := s.Get(messageID)
	if err != nil {
		return qm, err
	}
	if err := os.Remove(s.pathFor(messageID)); err != nil {
		return qm, fmt.Errorf("remove message %s: %w", messageID, err)
	}
	return qm, nil
}

// UpdateMessageStatus rewrites the stored message with new bookkeeping:
// status, attempt count, and last-attempt timestamp.
func (s *Store) UpdateMessageStatus(messageID string, status protocol.Status, attempts int, lastAttempt time.Time) error {
	qm, err := s.Get(messageID)
	if err != nil {
		return err
	}
	qm.Status = status
	qm.Attempts = attempts
	qm.Message.DeliveryAttempts = attempts
	la := lastAttempt
	qm.LastAttempt = &la
	return s.write(qm)
}

// ReadQueue returns every parseable queued message, in no particular order.
// Unparseable files are skipped with a warning; one corrupt file must not
// take the queue down.
func (s *Store) ReadQueue() ([]protocol.QueuedMessage, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read queue dir: %w", err)
	}
	var out []protocol.QueuedMessage
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		qm, err := s.Get(strings.TrimSuffix(name, ".json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable queue file %s: %v\n", name, err)
			continue
		}
		out = append(out, qm)
	}
	return out, nil
}

// GetPendingMessages returns pending, unexpired messages in delivery order:
// priority descending, then creation time ascending within a priority.
func (s *Store) GetPendingMessages() ([]protocol.QueuedMessage, error) {
	all, err := s.ReadQueue()
	if err != nil {
		return nil, err
	}
	now := s.nowFunc()
	var pending []protocol.QueuedMessage
	for _, qm := range all {
		if qm.Status.State == protocol.StatePending && !qm.Message.IsExpired(now) {
			pending = append(pending, qm)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		pi, pj := pending[i].Message.Priority.Rank(), pending[j].Message.Priority.Rank()
		if pi != pj {
			return pi > pj
		}
		return pending[i].Message.CreatedAt.Before(pending[j].Message.CreatedAt)
	})
	return pending, nil
}

// ResetDelivering returns stranded in-flight messages to pending and
// reports their ids. A delivering status only lives for the duration of
// one attempt, so any found outside an attempt were left behind by an
// interrupted run and would otherwise never be listed again.
func (s *Store) ResetDelivering() ([]string, error) {
	all, err := s.ReadQueue()
	if err != nil {
		return nil, err
	}
	var reset []string
	for _, qm := range all {
		if qm.Status.State != protocol.StateDelivering {
			continue
		}
		qm.Status = protocol.StatusPending()
		if err := s.write(qm); err != nil {
			return reset, err
		}
		reset = append(reset, qm.Message.MessageID)
	}
	return reset, nil
}

// CleanupExpired removes every expired message from the queue and returns
// the removed ids. A TTL of zero means the message expired the instant it
// was created, so it is swept on the first pass.
func (s *Store) CleanupExpired() ([]string, error) {
	all, err := s.ReadQueue()
	if err != nil {
		return nil, err
	}
	now := s.nowFunc()
	var removed []string
	for _, qm := range all {
		if !qm.Message.IsExpired(now) {
			continue
		}
		if err := os.Remove(s.pathFor(qm.Message.MessageID)); err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not remove expired message %s: %v\n", qm.Message.MessageID, err)
			continue
		}
		removed = append(removed, qm.Message.MessageID)
	}
	return removed, nil
}

// ProcessOutbox ingests raw messages dropped in the outbox directory:
// each valid file becomes a pending queued message and the source file is
// deleted. Malformed files are left in place with a warning so the sender
// can inspect them. Returns the ids of ingested messages.
func (s *Store) ProcessOutbox() ([]string, error) {
	entries, err := os.ReadDir(s.outboxDir)
	if err != nil {
		return nil, fmt.Errorf("read outbox dir: %w", err)
	}
	var ingested []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		path := filepath.Join(s.outboxDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping unreadable outbox file %s: %v\n", name, err)
			continue
		}
		var msg protocol.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping malformed outbox file %s: %v\n", name, err)
			continue
		}
		if msg.MessageID == "" {
			msg.MessageID = protocol.MessageIDAt(s.nowFunc())
		}
		if msg.CreatedAt.IsZero() {
			msg.CreatedAt = s.nowFunc().UTC()
		}
		if msg.ExpiresAt == nil {
			expires := msg.CreatedAt.Add(protocol.DefaultTTL)
			msg.ExpiresAt = &expires
		}
		if err := msg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: skipping invalid outbox file %s: %v\n", name, err)
			continue
		}
		if err := s.Enqueue(protocol.NewQueuedMessage(msg)); err != nil {
			return ingested, err
		}
		if err := os.Remove(path); err != nil {
			return ingested, fmt.Errorf("remove ingested outbox file %s: %w", name, err)
		}
		ingested = append(ingested, msg.MessageID)
	}
	return ingested, nil
}
