package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"conclave/pkg/registry"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	idleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	busyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// newExpertsCmd creates the "conclave experts" subcommand: print the expert
// directory from the registry seed file.
func newExpertsCmd() *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "experts",
		Short: "List registered experts",
		Long:  "Loads the experts seed file and prints the directory:\nid, name, role, state, and worktree context.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}

			seed, err := registry.LoadSeed(paths.SeedPath)
			if err != nil {
				return err
			}
			reg := registry.New()
			if _, err := reg.RegisterSeed(seed); err != nil {
				return err
			}

			styled := isatty.IsTerminal(os.Stdout.Fd())
			printExperts(cmd.OutOrStdout(), reg, role, styled)
			return nil
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "only list experts matching this role")

	return cmd
}

func printExperts(w io.Writer, reg *registry.Registry, role string, styled bool) {
	experts := reg.Snapshot()

	header := fmt.Sprintf("%-4s %-16s %-14s %-8s %s", "ID", "NAME", "ROLE", "STATE", "WORKTREE")
	if styled {
		header = headerStyle.Render(header)
	}
	fmt.Fprintln(w, header)

	shown := 0
	for _, e := range experts {
		if role != "" && !e.Role.Matches(role) {
			continue
		}
		worktree := e.Worktree
		if worktree == "" {
			worktree = "(main)"
		}
		state := string(e.State)
		if styled {
			state = stateStyle(e.State).Render(state)
		}
		fmt.Fprintf(w, "%-4d %-16s %-14s %-8s %s\n", e.ID, e.Name, e.Role, state, worktree)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(w, "no experts")
	}
}

func stateStyle(s registry.State) lipgloss.Style {
	switch s {
	case registry.StateIdle:
		return idleStyle
	case registry.StateBusy:
		return busyStyle
	default:
		return offlineStyle
	}
}
