package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"conclave/pkg/protocol"
	"conclave/pkg/queue"
)

// newQueueCmd creates the "conclave queue" subcommand: a diagnostics view
// of the main queue.
func newQueueCmd() *cobra.Command {
	var pendingOnly bool

	cmd := &cobra.Command{
		Use:   "queue",
		Short: "List queued messages",
		Long:  "Lists messages in the main queue. With --pending, shows only\npending unexpired messages in delivery order.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			store, err := queue.NewStore(queue.Config{
				Dir:       paths.QueueDir,
				OutboxDir: paths.OutboxDir,
			})
			if err != nil {
				return err
			}

			var msgs []protocol.QueuedMessage
			if pendingOnly {
				msgs, err = store.GetPendingMessages()
			} else {
				msgs, err = store.ReadQueue()
			}
			if err != nil {
				return err
			}

			printQueue(cmd.OutOrStdout(), msgs)
			return nil
		},
	}

	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "show only pending messages in delivery order")

	return cmd
}

func printQueue(w io.Writer, msgs []protocol.QueuedMessage) {
	if len(msgs) == 0 {
		fmt.Fprintln(w, "queue is empty")
		return
	}
	fmt.Fprintf(w, "%-28s %-8s %-15s %-18s %-8s %s\n", "MESSAGE", "PRIORITY", "TYPE", "TO", "ATTEMPTS", "STATUS")
	for _, qm := range msgs {
		status := string(qm.Status.State)
		if qm.Status.Reason != "" {
			status = fmt.Sprintf("%s (%s)", status, qm.Status.Reason)
		}
		fmt.Fprintf(w, "%-28s %-8s %-15s %-18s %-8d %s\n",
			qm.Message.MessageID,
			qm.Message.Priority,
			qm.Message.MessageType,
			qm.Message.To,
			qm.Attempts,
			status)
	}
}
