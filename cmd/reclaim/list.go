package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls", "history"},
	Short:   "List manifests in the order they were created",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(_ *cobra.Command, _ []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	summaries, err := b.Summaries(ctx)
	if err != nil {
		return err
	}
	report := output.ForList(summaries)
	report.DaemonUp = b.Daemon()
	return render(report)
}
