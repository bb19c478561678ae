package main

import (
	"fmt"

	"conclave/internal/version"

	"github.com/spf13/cobra"
)

// newRootCmd creates the root conclave command with all subcommands attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "conclave",
		Short:         "Inter-expert messaging core",
		Long:          "conclave routes messages between coding-agent experts.\nExperts drop messages in an outbox; the router delivers them to idle,\nworktree-matching recipients over tmux.",
		Version:       fmt.Sprintf("conclave %s", version.String()),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("{{.Version}}\n")

	cmd.AddCommand(
		newRunCmd(),
		newSendCmd(),
		newExpertsCmd(),
		newQueueCmd(),
		newLogsCmd(),
	)

	return cmd
}
