package main

import (
	"context"

	"github.com/spf13/cobra"
)

var updateCommand = &cobra.Command{
	Use:   "update",
	Short: "Ingest receipts that arrived since the last run",
	Long: `Fetches only receipts newer than the stored watermark, transcribes
them, and appends their line items to the workbook. With no watermark
(first run) this behaves like 'setup' and backfills everything.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values.`,
	RunE: runUpdateCmd,
}

var updateFlags cliFlags

func init() {
	updateFlags.register(updateCommand)
	rootCmd.AddCommand(updateCommand)
}

func runUpdateCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := updateFlags.merge(cmd)
	if err != nil {
		return err
	}
	return runIngestion(context.Background(), cfg, false)
}
