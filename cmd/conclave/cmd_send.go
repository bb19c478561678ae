package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"conclave/pkg/protocol"
)

// sendConfig holds flag values for the send command.
type sendConfig struct {
	from     int
	toID     int
	toName   string
	toRole   string
	msgType  string
	priority string
	subject  string
	body     string
	replyTo  string
	ttl      time.Duration
}

// newSendCmd creates the "conclave send" subcommand: compose a message and
// drop it in the outbox for the next ingestion cycle.
func newSendCmd() *cobra.Command {
	var cfg sendConfig

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Drop a message in the outbox",
		Long:  "Composes a message from flags and writes it as a file in the outbox\ndirectory. The running router ingests and delivers it.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			msg, err := composeMessage(cfg)
			if err != nil {
				return err
			}

			path, err := dropInOutbox(paths.OutboxDir, msg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "queued %s -> %s\n", msg.MessageID, path)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.from, "from", 0, "sender expert id")
	cmd.Flags().IntVar(&cfg.toID, "to-id", 0, "target expert id")
	cmd.Flags().StringVar(&cfg.toName, "to-name", "", "target expert name")
	cmd.Flags().StringVar(&cfg.toRole, "to-role", "", "target role")
	cmd.Flags().StringVar(&cfg.msgType, "type", "query", "message type: query|response|notify|delegate")
	cmd.Flags().StringVar(&cfg.priority, "priority", "normal", "priority: low|normal|high")
	cmd.Flags().StringVar(&cfg.subject, "subject", "", "message subject")
	cmd.Flags().StringVar(&cfg.body, "body", "", "message body")
	cmd.Flags().StringVar(&cfg.replyTo, "reply-to", "", "message id this replies to")
	cmd.Flags().DurationVar(&cfg.ttl, "ttl", protocol.DefaultTTL, "time-to-live before the message expires")

	return cmd
}

// composeMessage validates the flags and builds the Message.
func composeMessage(cfg sendConfig) (protocol.Message, error) {
	var to protocol.Recipient
	set := 0
	if cfg.toID != 0 {
		to = protocol.ToExpertID(cfg.toID)
		set++
	}
	if cfg.toName != "" {
		to = protocol.ToExpertName(cfg.toName)
		set++
	}
	if cfg.toRole != "" {
		to = protocol.ToRole(cfg.toRole)
		set++
	}
	if set != 1 {
		return protocol.Message{}, fmt.Errorf("exactly one of --to-id, --to-name, --to-role is required")
	}

	typ := protocol.MessageType(cfg.msgType)
	if !typ.Valid() {
		return protocol.Message{}, fmt.Errorf("unknown message type %q", cfg.msgType)
	}
	pri := protocol.Priority(cfg.priority)
	if !pri.Valid() {
		return protocol.Message{}, fmt.Errorf("unknown priority %q", cfg.priority)
	}
	if cfg.subject == "" {
		return protocol.Message{}, fmt.Errorf("--subject is required")
	}

	msg := protocol.NewMessageWithTTL(cfg.from, to, typ, pri, cfg.subject, cfg.body, cfg.ttl)
	msg.ReplyTo = cfg.replyTo
	return msg, nil
}

// dropInOutbox writes the message as a uniquely named outbox file. The file
// name is independent of the message id so two senders can never race on
// the same path.
func dropInOutbox(outboxDir string, msg protocol.Message) (string, error) {
	if err := os.MkdirAll(outboxDir, 0o755); err != nil {
		return "", fmt.Errorf("create outbox: %w", err)
	}
	data, err := json.MarshalIndent(msg, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	path := filepath.Join(outboxDir, uuid.NewString()+".json")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write outbox file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("commit outbox file: %w", err)
	}
	return path, nil
}
