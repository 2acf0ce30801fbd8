package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/engine"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [id|latest]",
	Short: "Move the files of a clean back to where they came from",
	Long: `Restore returns every quarantined file of a manifest to its original
path. Without an argument the most recent manifest is restored.

A file whose original path is now occupied by different content is left
in the quarantine and reported as a conflict. Running restore again is
safe: entries already restored are skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

// refArg returns the manifest reference argument, defaulting to latest.
func refArg(args []string) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return engine.LatestRef
}

func runRestore(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	start := time.Now()
	res, err := b.Restore(ctx, refArg(args))
	if err != nil {
		return err
	}
	return renderAction(&res, b.Daemon(), time.Since(start))
}
