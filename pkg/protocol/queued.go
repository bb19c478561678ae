package protocol

import "time"

// StatusState is the lifecycle state of a queued message.
type StatusState string

// Queued message states.
const (
	StatePending    StatusState = "pending"
	StateDelivering StatusState = "delivering"
	StateFailed     StatusState = "failed"
	StateExpired    StatusState = "expired"
)

// Status pairs a lifecycle state with an optional failure reason. It
// serializes as {"state":"failed","reason":"..."}; the reason key is only
// present when a failure reason has been recorded. A message reset to
// Pending after a failed attempt keeps the last reason for inspection.
type Status struct {
	State  StatusState `json:"state"`
	Reason string      `json:"reason,omitempty"`
}

// StatusPending is the initial status of every enqueued message.
func StatusPending() Status { return Status{State: StatePending} }

// StatusDelivering marks an in-flight delivery attempt.
func StatusDelivering() Status { return Status{State: StateDelivering} }

// StatusFailed records the reason of the last failed attempt.
func StatusFailed(reason string) Status { return Status{State: StateFailed, Reason: reason} }

// StatusExpired marks a message whose TTL elapsed before delivery.
func StatusExpired() Status { return Status{State: StateExpired} }

// QueuedMessage wraps a Message with delivery bookkeeping while it sits in
// the queue store.
type QueuedMessage struct {
	Message     Message    `json:"message"`
	Attempts    int        `json:"attempts"`
	LastAttempt *time.Time `json:"last_attempt,omitempty"`
	Status      Status     `json:"status"`
}

// NewQueuedMessage wraps msg in Pending status with zero attempts.
func NewQueuedMessage(msg Message) QueuedMessage {
	return QueuedMessage{
		Message: msg,
		Status:  StatusPending(),
	}
}

// ShouldRetry reports whether the router may attempt delivery: the message
// must be Pending, not expired at now, and under the attempt limit.
func (q QueuedMessage) ShouldRetry(now time.Time) bool {
	return q.Status.State == StatePending &&
		!q.Message.IsExpired(now) &&
		q.Attempts < MaxDeliveryAttempts
}
