package main

import (
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/cmd/reclaim/tui"
	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Quarantine the auto_safe files under a directory",
	Long: `Clean triages a directory and moves every auto_safe file into the
quarantine. Nothing is deleted: each clean is recorded in a manifest and
can be undone with 'reclaim restore'.

At a terminal the files are listed for confirmation first. Use --yes to
skip the prompt and --dry-run to only show what would be moved.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

var (
	cleanDryRun bool
	cleanYes    bool
)

func init() {
	cleanCmd.Flags().BoolVarP(&cleanDryRun, "dry-run", "n", false, "show what would be quarantined without moving anything")
	cleanCmd.Flags().BoolVarP(&cleanYes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(cleanCmd)
}

// interactive reports whether a confirmation screen can be shown.
func interactive() bool {
	return isPretty() && !getQuiet() &&
		isatty.IsTerminal(os.Stdin.Fd()) && isatty.IsTerminal(os.Stdout.Fd())
}

func runClean(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	path := pathArg(args)

	if cleanDryRun || (!cleanYes && interactive()) {
		start := time.Now()
		result, err := b.Triage(ctx, path, true)
		if err != nil {
			return err
		}

		if cleanDryRun {
			report := withFreeSpace(output.ForTriage(result), result.Root)
			report.DryRun = true
			report.DaemonUp = b.Daemon()
			report.Duration = time.Since(start)
			return render(report)
		}

		if len(result.AutoSafe) == 0 {
			printInfo("Nothing to clean under %s", result.Root)
			return nil
		}
		ok, err := tui.Confirm(result)
		if err != nil {
			return err
		}
		if !ok {
			printInfo("Cancelled")
			return nil
		}
		// Clean triages again, so the moved set is whatever is AutoSafe now.
		path = result.Root
	}

	start := time.Now()
	res, err := b.Clean(ctx, path)
	if err != nil {
		return err
	}
	return renderAction(&res, b.Daemon(), time.Since(start))
}

// renderAction prints a clean or restore result and turns an unsuccessful
// one into errReported so the exit status is non-zero.
func renderAction(res *engine.Result, daemonUp bool, took time.Duration) error {
	report := output.ForAction(res)
	report.DaemonUp = daemonUp
	report.Duration = took
	if err := render(report); err != nil {
		return err
	}
	if !res.Success {
		return errReported
	}
	return nil
}
