package main

import (
	"context"

	"github.com/spf13/cobra"
)

var setupCommand = &cobra.Command{
	Use:   "setup",
	Short: "Backfill the workbook from the full mailbox history",
	Long: `Fetches every matching receipt from the configured senders, regardless
of any existing watermark, and appends all line items to the workbook.
Run this once against a fresh workbook; afterwards use 'update'.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runSetupCmd,
}

var setupFlags cliFlags

func init() {
	setupFlags.register(setupCommand)
	rootCmd.AddCommand(setupCommand)
}

func runSetupCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := setupFlags.merge(cmd)
	if err != nil {
		return err
	}
	return runIngestion(context.Background(), cfg, true)
}
