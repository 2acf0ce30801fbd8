package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/reclaim/pkg/reclaim/output"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [id|latest]",
	Short: "Check that quarantined files are intact",
	Long: `Verify hashes every quarantined file and compares it with the checksum
recorded when it was moved. Without an argument every manifest is checked
and files in the quarantine that no manifest accounts for are listed.

The exit status is non-zero when anything is missing, corrupt or orphaned.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(_ *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	b, err := openBackend(ctx)
	if err != nil {
		return err
	}
	defer b.Close()

	var ref string
	if len(args) > 0 {
		ref = args[0]
	}
	v, err := b.Verify(ctx, ref)
	if err != nil {
		return err
	}

	report := output.ForVerify(v)
	report.DaemonUp = b.Daemon()
	if err := render(report); err != nil {
		return err
	}
	if !v.OK() {
		return errReported
	}
	return nil
}
