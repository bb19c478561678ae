package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"conclave/pkg/eventlog"
	"conclave/pkg/queue"
	"conclave/pkg/registry"
	"conclave/pkg/router"
)

// execRunner runs real commands for the tmux transport.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// newRunCmd creates the "conclave run" subcommand: the orchestrator poll
// loop that ingests the outbox and processes the queue until interrupted.
func newRunCmd() *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the message router poll loop",
		Long:  "Watches the outbox for new messages and processes the delivery\nqueue on a fixed cadence until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			paths, err := ResolvePaths()
			if err != nil {
				return fmt.Errorf("resolve paths: %w", err)
			}
			cfg, err := LoadConfig(paths.ConfigPath)
			if err != nil {
				return err
			}
			if interval > 0 {
				cfg.PollInterval = interval
			}

			r, events, err := buildRouter(paths, cfg)
			if err != nil {
				return err
			}
			defer events.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runLoop(ctx, cmd.OutOrStdout(), r, paths.OutboxDir, cfg.PollInterval)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 0, "poll interval (overrides config)")

	return cmd
}

// buildRouter assembles the registry (seeded from experts.yaml when
// present), queue store, event log, and tmux transport.
func buildRouter(paths *Paths, cfg Config) (*router.Router, *eventlog.Writer, error) {
	reg := registry.New()
	if _, err := os.Stat(paths.SeedPath); err == nil {
		seed, err := registry.LoadSeed(paths.SeedPath)
		if err != nil {
			return nil, nil, err
		}
		if _, err := reg.RegisterSeed(seed); err != nil {
			return nil, nil, err
		}
	}

	store, err := queue.NewStore(queue.Config{
		Dir:       paths.QueueDir,
		OutboxDir: paths.OutboxDir,
	})
	if err != nil {
		return nil, nil, err
	}

	events, err := eventlog.Open(paths.EventDBPath)
	if err != nil {
		return nil, nil, err
	}

	transport := router.NewTmuxTransport(cfg.Session, execRunner{}, router.NewBufferSeq("conclave-msg"))

	r, err := router.New(router.Config{
		Registry:  reg,
		Store:     store,
		Transport: transport,
		Events:    events,
	})
	if err != nil {
		events.Close()
		return nil, nil, err
	}
	return r, events, nil
}

// runLoop drives cycles from two sources: a steady ticker, and filesystem
// notifications on the outbox so fresh messages do not wait out a full
// poll interval.
func runLoop(ctx context.Context, out io.Writer, r *router.Router, outboxDir string, interval time.Duration) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch outbox: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(outboxDir); err != nil {
		return fmt.Errorf("watch outbox %s: %w", outboxDir, err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cycle := func() error {
		if _, err := r.ProcessOutbox(ctx); err != nil {
			return err
		}
		stats, err := r.ProcessQueue(ctx)
		if err != nil {
			return err
		}
		if stats.Processed > 0 || stats.Expired > 0 {
			fmt.Fprintf(out, "cycle: processed=%d delivered=%d failed=%d expired=%d recipients=%v\n",
				stats.Processed, stats.Delivered, stats.Failed, stats.Expired, stats.Recipients)
		}
		return nil
	}

	if err := cycle(); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := cycle(); err != nil {
				return err
			}
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Rename) {
				if err := cycle(); err != nil {
					return err
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "warning: outbox watcher: %v\n", err)
		}
	}
}
