// Package protocol defines the shared message model for the Conclave
// messaging core: the Message value type, the recipient-targeting union,
// the QueuedMessage persistence wrapper, and the typed errors exchanged
// between the registry, queue store, and router packages.
package protocol

import (
	"fmt"
	"time"
)

// MessageType classifies a message.
type MessageType string

// Message type constants.
const (
	TypeQuery    MessageType = "query"
	TypeResponse MessageType = "response"
	TypeNotify   MessageType = "notify"
	TypeDelegate MessageType = "delegate"
)

// Label returns the upper-case label used in the delivery text block.
func (t MessageType) Label() string {
	switch t {
	case TypeQuery:
		return "QUERY"
	case TypeResponse:
		return "RESPONSE"
	case TypeNotify:
		return "NOTIFICATION"
	case TypeDelegate:
		return "TASK_DELEGATION"
	default:
		return "UNKNOWN"
	}
}

// Valid reports whether t is a known message type.
func (t MessageType) Valid() bool {
	switch t {
	case TypeQuery, TypeResponse, TypeNotify, TypeDelegate:
		return true
	}
	return false
}

// Priority orders messages within the queue: High > Normal > Low.
type Priority string

// Priority constants.
const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Rank returns the sort rank of p. Higher ranks are delivered first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 0
	default:
		return 0
	}
}

// Label returns the upper-case label used in the delivery text block.
func (p Priority) Label() string {
	switch p {
	case PriorityHigh:
		return "HIGH"
	case PriorityLow:
		return "LOW"
	default:
		return "NORMAL"
	}
}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh:
		return true
	}
	return false
}

// DefaultTTL is applied to messages created without an explicit TTL.
const DefaultTTL = 24 * time.Hour

// MaxDeliveryAttempts bounds retries. A message whose attempt count reaches
// this limit is dropped from the queue with a warning, never retried again.
const MaxDeliveryAttempts = 100

// Content is the human-readable payload of a message.
type Content struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Message is one unit of communication between experts. Messages are value
// types: once created they are never mutated, only wrapped in a
// QueuedMessage whose bookkeeping changes across delivery attempts.
type Message struct {
	MessageID        string            `json:"message_id"`
	FromExpertID     int               `json:"from_expert_id"`
	To               Recipient         `json:"to"`
	MessageType      MessageType       `json:"message_type"`
	Priority         Priority          `json:"priority"`
	CreatedAt        time.Time         `json:"created_at"`
	Content          Content           `json:"content"`
	ReplyTo          string            `json:"reply_to,omitempty"`
	DeliveryAttempts int               `json:"delivery_attempts"`
	ExpiresAt        *time.Time        `json:"expires_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// NewMessage creates a message with the default 24-hour TTL.
func NewMessage(from int, to Recipient, typ MessageType, pri Priority, subject, body string) Message {
	return NewMessageWithTTL(from, to, typ, pri, subject, body, DefaultTTL)
}

// NewMessageWithTTL creates a message expiring ttl after creation.
// A ttl of 0 produces a message that is already expired.
func NewMessageWithTTL(from int, to Recipient, typ MessageType, pri Priority, subject, body string, ttl time.Duration) Message {
	now := time.Now().UTC()
	expires := now.Add(ttl)
	return Message{
		MessageID:    MessageIDAt(now),
		FromExpertID: from,
		To:           to,
		MessageType:  typ,
		Priority:     pri,
		CreatedAt:    now,
		Content:      Content{Subject: subject, Body: body},
		ExpiresAt:    &expires,
	}
}

// MessageIDAt derives a message id from a creation timestamp. Ids carry
// nanosecond precision so that distinct creation instants yield distinct
// ids; callers treat them as opaque keys, never as sort keys.
func MessageIDAt(t time.Time) string {
	return fmt.Sprintf("msg-%d", t.UnixNano())
}

// IsExpired reports whether the message TTL has elapsed at now.
// Messages without an expiry never expire.
func (m Message) IsExpired(now time.Time) bool {
	return m.ExpiresAt != nil && !now.Before(*m.ExpiresAt)
}

// Validate checks the structural invariants a message must satisfy before
// it enters the queue.
func (m Message) Validate() error {
	if m.MessageID == "" {
		return fmt.Errorf("message has no id")
	}
	if err := m.To.Validate(); err != nil {
		return fmt.Errorf("message %s: %w", m.MessageID, err)
	}
	if !m.MessageType.Valid() {
		return fmt.Errorf("message %s: unknown message type %q", m.MessageID, m.MessageType)
	}
	if !m.Priority.Valid() {
		return fmt.Errorf("message %s: unknown priority %q", m.MessageID, m.Priority)
	}
	return nil
}
