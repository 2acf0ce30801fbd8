package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize [path]",
	Short: "Describe the files that need review",
	Long: `Summarize triages a directory and asks the configured language model
to describe the needs_review files. The model only sees file paths.

Requires ANTHROPIC_API_KEY. The model and API base URL are set under
'summarize' in the config file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSummarize,
}

func init() {
	rootCmd.AddCommand(summarizeCmd)
}

func runSummarize(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	start := time.Now()
	summary, sumErr := b.Summarize(ctx, pathArg(args))

	report := output.ForSummary(summary, sumErr)
	report.DaemonUp = b.Daemon()
	report.Duration = time.Since(start)
	if err := render(report); err != nil {
		return err
	}
	if sumErr != nil {
		return errReported
	}
	return nil
}
