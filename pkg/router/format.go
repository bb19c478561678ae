package router

import (
	"fmt"
	"strings"
	"time"

	"conclave/pkg/protocol"
)

// FormatMessageForDelivery renders the text block handed to the transport.
// Field presence and order are a contract: experts parse this block
// visually, so any change here changes what every recipient sees.
//
//	=== HIGH PRIORITY MESSAGE ===
//	From: alice (expert 3)
//	To: bob
//	Type: QUERY
//	Priority: HIGH
//	Subject: review PR 42
//
//	please look at the diff
//
//	Message ID: msg-1756029600000000000
//	Sent: Sun, 24 Aug 2026 12:00:00 UTC
//	Reply to: msg-1756029500000000000
//
// The "Reply to" line appears only when the message has a reply_to id.
func FormatMessageForDelivery(msg protocol.Message, senderName, recipientName string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s PRIORITY MESSAGE ===\n", msg.Priority.Label())
	fmt.Fprintf(&b, "From: %s (expert %d)\n", senderName, msg.FromExpertID)
	fmt.Fprintf(&b, "To: %s\n", recipientName)
	fmt.Fprintf(&b, "Type: %s\n", msg.MessageType.Label())
	fmt.Fprintf(&b, "Priority: %s\n", msg.Priority.Label())
	fmt.Fprintf(&b, "Subject: %s\n", msg.Content.Subject)
	b.WriteString("\n")
	b.WriteString(msg.Content.Body)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Message ID: %s\n", msg.MessageID)
	fmt.Fprintf(&b, "Sent: %s\n", msg.CreatedAt.UTC().Format(time.RFC1123))
	if msg.ReplyTo != "" {
		fmt.Fprintf(&b, "Reply to: %s\n", msg.ReplyTo)
	}

	return b.String()
}
