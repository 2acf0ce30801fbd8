package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

var showCmd = &cobra.Command{
	Use:   "show [id|latest]",
	Short: "Show the entries of one manifest",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	m, err := b.Show(ctx, refArg(args))
	if err != nil {
		return err
	}
	report := output.ForManifest(m)
	report.DaemonUp = b.Daemon()
	return render(report)
}
