package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"conclave/pkg/eventlog"
)

// logsConfig holds flag values for the logs command.
type logsConfig struct {
	tail      int
	eventType string
	expertID  int
}

// newLogsCmd creates the "conclave logs" subcommand.
func newLogsCmd() *cobra.Command {
	var cfg logsConfig

	cmd := &cobra.Command{
		Use:   "logs [message-id]",
		Short: "Query the event log",
		Long:  "Displays router and queue events from the event database.\nOptionally filter by message id, expert id, or event type.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var messageID string
			if len(args) == 1 {
				messageID = args[0]
			}

			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			reader, err := eventlog.NewReader(paths.EventDBPath)
			if err != nil {
				return fmt.Errorf("open event log: %w", err)
			}
			defer reader.Close()

			events, err := reader.Query(cmd.Context(), eventlog.QueryOpts{
				MessageID: messageID,
				ExpertID:  cfg.expertID,
				EventType: cfg.eventType,
				Limit:     cfg.tail,
			})
			if err != nil {
				return err
			}

			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.tail, "tail", 20, "number of recent events to show")
	cmd.Flags().StringVar(&cfg.eventType, "type", "", "only show events of this type")
	cmd.Flags().IntVar(&cfg.expertID, "expert", 0, "only show events for this expert id")

	return cmd
}

// printEvents writes events oldest-first in a fixed-width format.
func printEvents(w io.Writer, events []eventlog.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "no events found")
		return
	}
	// Query returns newest first; display chronologically.
	for i := len(events) - 1; i >= 0; i-- {
		e := events[i]
		expert := ""
		if e.ExpertID != 0 {
			expert = fmt.Sprintf("expert %d", e.ExpertID)
		}
		fmt.Fprintf(w, "%s | %-16s | %-28s | %-10s | %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Type, e.MessageID, expert, e.Detail)
	}
}
