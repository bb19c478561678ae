// Package router orchestrates message delivery: it sweeps expired entries,
// pulls pending messages in priority order, resolves recipients under the
// worktree-isolation rule, and hands formatted text to an injected
// transport. Failed attempts feed a bounded retry path; a message that
// exhausts its attempts is dropped with a warning and never retried.
package router

import (
	"context"
	"fmt"
	"os"
	"time"

	"conclave/pkg/eventlog"
	"conclave/pkg/protocol"
	"conclave/pkg/queue"
	"conclave/pkg/registry"
)

// Config holds router dependencies and settings. Registry, Store, and
// Transport are required; zero values elsewhere select defaults.
type Config struct {
	Registry  *registry.Registry
	Store     *queue.Store
	Transport Transport

	// Events receives lifecycle events. Nil disables event logging.
	Events *eventlog.Writer

	// NowFunc returns the current time. Defaults to time.Now.
	NowFunc func() time.Time
}

func (c Config) withDefaults() Config {
	if c.NowFunc == nil {
		c.NowFunc = time.Now
	}
	return c
}

// Router owns one registry and one queue store. All processing is
// synchronous; the caller's poll loop provides the cadence.
type Router struct {
	registry  *registry.Registry
	store     *queue.Store
	transport Transport
	events    *eventlog.Writer
	nowFunc   func() time.Time
}

// New creates a Router from cfg.
func New(cfg Config) (*Router, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("router requires a registry")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("router requires a queue store")
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("router requires a transport")
	}
	cfg = cfg.withDefaults()
	return &Router{
		registry:  cfg.Registry,
		store:     cfg.Store,
		transport: cfg.Transport,
		events:    cfg.Events,
		nowFunc:   cfg.NowFunc,
	}, nil
}

// Stats aggregates the outcome of one processing cycle.
type Stats struct {
	Processed  int
	Delivered  int
	Failed     int
	Expired    int
	Recipients []int
}

// ProcessOutbox ingests sender-dropped messages into the main queue and
// logs one event per ingested id.
func (r *Router) ProcessOutbox(ctx context.Context) ([]string, error) {
	ingested, err := r.store.ProcessOutbox()
	for _, id := range ingested {
		_ = r.events.Log(ctx, eventlog.TypeIngested, "queue", id, 0, "")
	}
	if err != nil {
		return ingested, fmt.Errorf("process outbox: %w", err)
	}
	return ingested, nil
}

// ProcessQueue runs one delivery cycle: sweep expired messages, then walk
// the pending queue in priority order attempting delivery. Transport and
// targeting failures are recovered into retry bookkeeping; store errors
// propagate, since a queue the router cannot read or write is fatal for
// the cycle.
func (r *Router) ProcessQueue(ctx context.Context) (Stats, error) {
	var stats Stats

	expired, err := r.store.CleanupExpired()
	if err != nil {
		return stats, fmt.Errorf("sweep expired: %w", err)
	}
	stats.Expired = len(expired)
	for _, id := range expired {
		_ = r.events.Log(ctx, eventlog.TypeExpired, "router", id, 0, "")
	}

	// Messages stranded in delivering by an interrupted run rejoin the
	// pending queue before this cycle lists pending work.
	requeued, err := r.store.ResetDelivering()
	if err != nil {
		return stats, fmt.Errorf("reset delivering: %w", err)
	}
	for _, id := range requeued {
		_ = r.events.Log(ctx, eventlog.TypeState, "router", id, 0, "reset delivering to pending")
	}

	pending, err := r.store.GetPendingMessages()
	if err != nil {
		return stats, fmt.Errorf("list pending: %w", err)
	}

	for _, qm := range pending {
		msgID := qm.Message.MessageID
		now := r.nowFunc()
		if !qm.ShouldRetry(now) {
			continue
		}
		stats.Processed++
		attempts := qm.Attempts + 1

		if err := r.store.UpdateMessageStatus(msgID, protocol.StatusDelivering(), attempts, now); err != nil {
			return stats, fmt.Errorf("mark delivering %s: %w", msgID, err)
		}

		recipientID, failReason := r.attemptDelivery(ctx, qm)
		if failReason == "" {
			if _, err := r.store.Dequeue(msgID); err != nil {
				return stats, fmt.Errorf("dequeue delivered %s: %w", msgID, err)
			}
			stats.Delivered++
			stats.Recipients = append(stats.Recipients, recipientID)
			_ = r.events.Log(ctx, eventlog.TypeDelivered, "router", msgID, recipientID, "")
			continue
		}

		stats.Failed++
		_ = r.events.Log(ctx, eventlog.TypeFailed, "router", msgID, recipientID, failReason)

		// Reset to pending with the failed attempt recorded; the reason
		// rides along for inspection. The same predicate that gates the
		// loop above decides whether the message has a future.
		retried := qm
		retried.Attempts = attempts
		retried.Status = protocol.Status{State: protocol.StatePending, Reason: failReason}

		if !retried.ShouldRetry(now) {
			// Deliberate silent drop: a warning is the only trace.
			if _, err := r.store.Dequeue(msgID); err != nil {
				return stats, fmt.Errorf("drop exhausted %s: %w", msgID, err)
			}
			fmt.Fprintf(os.Stderr, "warning: dropping message %s after %d delivery attempts: %s\n", msgID, attempts, failReason)
			_ = r.events.Log(ctx, eventlog.TypeDropped, "router", msgID, recipientID, fmt.Sprintf("attempt %d: %s", attempts, failReason))
			continue
		}

		if err := r.store.UpdateMessageStatus(msgID, retried.Status, attempts, now); err != nil {
			return stats, fmt.Errorf("record failed attempt %s: %w", msgID, err)
		}
	}

	return stats, nil
}

// attemptDelivery tries to deliver one message. It returns the resolved
// recipient id (0 when none resolved) and an empty failReason on success.
func (r *Router) attemptDelivery(ctx context.Context, qm protocol.QueuedMessage) (recipientID int, failReason string) {
	msg := qm.Message

	// A sender the registry does not know has no worktree context at all,
	// which matches nothing. Resolution fails rather than treating the
	// message as coming from the main repository context.
	sender, ok := r.registry.Get(msg.FromExpertID)
	if !ok {
		return 0, fmt.Sprintf("no recipient found for targeting: %s", msg.To)
	}

	id, found := r.FindRecipient(msg.To, sender.Worktree)
	if !found {
		return 0, fmt.Sprintf("no recipient found for targeting: %s", msg.To)
	}

	recipient, ok := r.registry.Get(id)
	if !ok {
		return 0, fmt.Sprintf("no recipient found for targeting: %s", msg.To)
	}
	if recipient.State != registry.StateIdle {
		// Non-blocking delivery: never wait on a busy expert, defer to the
		// next cycle via the retry path.
		return id, fmt.Sprintf("expert %d is not idle", id)
	}

	text := FormatMessageForDelivery(msg, sender.Name, recipient.Name)
	if err := r.transport.DeliverText(ctx, recipient.Locator, text); err != nil {
		return id, fmt.Sprintf("tmux delivery failed: %v", err)
	}
	return id, ""
}

// FindRecipient resolves a targeting strategy to a concrete expert id.
// Worktree isolation applies to every strategy: a candidate in a different
// worktree context than the sender is never returned, no matter how it was
// addressed. Role targeting resolves only among idle role holders in the
// sender's worktree, lowest expert id first so selection stays
// deterministic; with no idle holder it resolves to nothing and the retry
// path waits for one.
func (r *Router) FindRecipient(to protocol.Recipient, senderWorktree string) (int, bool) {
	switch {
	case to.ExpertID != nil:
		e, ok := r.registry.Get(*to.ExpertID)
		if !ok || !WorktreeMatches(senderWorktree, e.Worktree) {
			return 0, false
		}
		return e.ID, true

	case to.ExpertName != nil:
		id, ok := r.registry.FindByName(*to.ExpertName)
		if !ok {
			return 0, false
		}
		e, ok := r.registry.Get(id)
		if !ok || !WorktreeMatches(senderWorktree, e.Worktree) {
			return 0, false
		}
		return e.ID, true

	case to.Role != nil:
		ids := r.registry.IdleExpertsByRoleInWorktree(*to.Role, senderWorktree)
		if len(ids) == 0 {
			return 0, false
		}
		return ids[0], true
	}
	return 0, false
}

// WorktreeMatches reports whether two worktree contexts may exchange
// messages: both the main repository context (empty string) or both the
// same worktree path, compared as raw strings. Symmetric by construction.
func WorktreeMatches(a, b string) bool {
	return a == b
}
