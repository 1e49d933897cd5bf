package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/receipt-buddy/internal/config"
	"github.com/jonathan/receipt-buddy/internal/excel"
	"github.com/jonathan/receipt-buddy/internal/llm"
	"github.com/jonathan/receipt-buddy/internal/mail"
	"github.com/jonathan/receipt-buddy/internal/pipeline"
)

// cliFlags holds the flag values shared by the setup and update commands.
type cliFlags struct {
	configPath  string
	senders     []string
	model       string
	rpm         int
	workbook    string
	worksheet   string
	table       string
	checkpoint  string
	credentials string
	token       string
	apiKey      string
	databaseURL string
	verbose     bool
}

func (f *cliFlags) register(cmd *cobra.Command) {
	// Config file flag (processed first)
	cmd.Flags().StringVar(&f.configPath, "config", "", "Path to config.json file (values can be overridden by other flags)")

	cmd.Flags().StringSliceVarP(&f.senders, "sender", "s", nil, "Receipt sender address (repeatable)")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Gemini model name")
	cmd.Flags().IntVar(&f.rpm, "rpm", 0, "Model requests per minute")
	cmd.Flags().StringVarP(&f.workbook, "workbook", "w", "", "Path to the target workbook")
	cmd.Flags().StringVar(&f.worksheet, "worksheet", "", "Worksheet holding the line item table")
	cmd.Flags().StringVar(&f.table, "table", "", "Named table to append rows to")
	cmd.Flags().StringVar(&f.checkpoint, "checkpoint", "", "Path to the watermark file")
	cmd.Flags().StringVar(&f.credentials, "credentials", "", "Path to the Gmail OAuth client file")
	cmd.Flags().StringVar(&f.token, "token", "", "Path to the cached OAuth token")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "v", false, "Print detailed debug information")

	// API key can be passed as a flag, or read from env var GEMINI_API_KEY
	cmd.Flags().StringVar(&f.apiKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")

	// Database URL for the optional run journal
	cmd.Flags().StringVar(&f.databaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
}

// merge builds the effective configuration: config file first, then
// explicit flag overrides, then environment fallbacks and defaults.
func (f *cliFlags) merge(cmd *cobra.Command) (*config.Config, error) {
	var cfg config.Config
	if f.configPath != "" {
		loaded, err := config.LoadConfig(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
		if f.verbose {
			fmt.Printf("Loaded config from: %s\n", f.configPath)
		}
	}

	// Only override if the flag was explicitly set
	if cmd.Flags().Changed("sender") {
		cfg.Senders = f.senders
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = f.model
	}
	if cmd.Flags().Changed("rpm") {
		cfg.RequestsPerMinute = f.rpm
	}
	if cmd.Flags().Changed("workbook") {
		cfg.Workbook = f.workbook
	}
	if cmd.Flags().Changed("worksheet") {
		cfg.Worksheet = f.worksheet
	}
	if cmd.Flags().Changed("table") {
		cfg.Table = f.table
	}
	if cmd.Flags().Changed("checkpoint") {
		cfg.Checkpoint = f.checkpoint
	}
	if cmd.Flags().Changed("credentials") {
		cfg.Credentials = f.credentials
	}
	if cmd.Flags().Changed("token") {
		cfg.Token = f.token
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = f.apiKey
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = f.databaseURL
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = f.verbose
	}

	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// runIngestion wires the mailbox, the model, and the workbook together
// and runs one ingestion pass.
func runIngestion(ctx context.Context, cfg *config.Config, historical bool) error {
	svc, err := mail.NewService(ctx, cfg.Credentials, cfg.Token)
	if err != nil {
		return fmt.Errorf("failed to set up Gmail access: %w", err)
	}
	grabber := mail.NewGrabber(svc, cfg.Senders)

	client, err := llm.NewGeminiClient(ctx, cfg.APIKey, cfg.Model, float32(cfg.Temperature))
	if err != nil {
		return err
	}
	defer client.Close()

	invoker := llm.NewInvoker(client, llm.NewPacer(cfg.RequestsPerMinute))

	sink := &excel.Writer{
		Path:      cfg.Workbook,
		Worksheet: cfg.Worksheet,
		Table:     cfg.Table,
	}

	p := &pipeline.Pipeline{Source: grabber, Invoker: invoker, Sink: sink}
	res, err := p.Run(ctx, pipeline.RunOptions{
		Historical:     historical,
		CheckpointPath: cfg.Checkpoint,
		DatabaseURL:    cfg.DatabaseURL,
		Verbose:        cfg.Verbose,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Done: %d receipts processed, %d rows appended", res.Payloads, res.RowsWritten)
	if res.Skipped > 0 {
		fmt.Printf(" (%d skipped)", res.Skipped)
	}
	fmt.Printf("\n")
	return nil
}
