package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

// watchDebounce coalesces bursts of change events into one re-triage.
const watchDebounce = 500 * time.Millisecond

var triageCmd = &cobra.Command{
	Use:   "triage [path]",
	Short: "Classify every file under a directory",
	Long: `Triage walks a directory and sorts each entry into one of three buckets:

  auto_safe     disposable files a clean will quarantine
  needs_review  files a person should look at
  do_not_touch  directories, hidden, protected and unreadable entries

Triage never modifies anything. With --watch (requires reclaimd) the
result is printed again whenever the tree changes.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTriage,
}

var (
	triageFresh bool
	triageWatch bool
)

func init() {
	triageCmd.Flags().BoolVar(&triageFresh, "fresh", false, "bypass the daemon's triage cache")
	triageCmd.Flags().BoolVarP(&triageWatch, "watch", "w", false, "re-triage when the tree changes (requires reclaimd)")
	rootCmd.AddCommand(triageCmd)
}

// commandContext is cancelled on SIGINT or SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runTriage(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	path := pathArg(args)
	root, err := triageOnce(ctx, b, path, triageFresh)
	if err != nil {
		return err
	}
	if !triageWatch {
		return nil
	}

	db, ok := b.(*daemonBackend)
	if !ok {
		return errors.New("--watch requires reclaimd; start it with 'reclaim daemon start'")
	}
	events, err := db.c.Watch(ctx, root)
	if err != nil {
		return err
	}

	printVerbose("watching %s", root)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return errors.New("daemon ended the watch stream")
			}
			printVerbose("%s %s", ev.Type, ev.Path)
			timer.Reset(watchDebounce)
		case <-timer.C:
			// The daemon invalidated its cache, so a plain triage is fresh.
			if _, err := triageOnce(ctx, b, path, false); err != nil {
				printError("%v", err)
			}
		}
	}
}

// triageOnce prints one triage of path and returns its resolved root.
func triageOnce(ctx context.Context, b backend, path string, fresh bool) (string, error) {
	start := time.Now()
	result, err := b.Triage(ctx, path, fresh)
	if err != nil {
		return "", err
	}

	report := withFreeSpace(output.ForTriage(result), result.Root)
	report.DaemonUp = b.Daemon()
	report.Duration = time.Since(start)
	return result.Root, render(report)
}
