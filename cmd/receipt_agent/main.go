// Package main provides the entry point for the receipt ingestion CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "receipt_agent",
	Short: "Grocery receipt ingestion agent",
	Long:  "Receipt Buddy pulls grocery receipt PDFs from a Gmail inbox, transcribes them with Gemini, and appends the line items to an Excel workbook.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
