// Package pipeline provides the high-level orchestration for receipt ingestion.
package pipeline

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/jonathan/receipt-buddy/internal/checkpoint"
	"github.com/jonathan/receipt-buddy/internal/db"
	"github.com/jonathan/receipt-buddy/internal/mail"
	"github.com/jonathan/receipt-buddy/internal/observability"
	"github.com/jonathan/receipt-buddy/internal/parsing"
	"github.com/jonathan/receipt-buddy/internal/types"
)

// Source lists receipt messages and extracts their PDF payloads.
type Source interface {
	IngestHistorical(ctx context.Context) ([]mail.Payload, error)
	IngestNewer(ctx context.Context, lastInternalMs int64) ([]mail.Payload, int64, error)
}

// Invoker runs one PDF payload through the transcription model.
type Invoker interface {
	Invoke(ctx context.Context, data []byte) (string, error)
}

// Sink appends parsed rows to the spreadsheet.
type Sink interface {
	Append(rows []types.Row) error
}

// RunOptions holds configuration for running the pipeline
type RunOptions struct {
	Historical     bool // Force a full backfill even when a watermark exists
	CheckpointPath string
	DatabaseURL    string
	Verbose        bool
}

// Result holds the counters of a completed run.
type Result struct {
	Mode            string
	Payloads        int
	RowsWritten     int
	Skipped         int
	WatermarkBefore int64
	WatermarkAfter  int64
}

// Pipeline wires a mail source, a model invoker, and a spreadsheet sink.
type Pipeline struct {
	Source  Source
	Invoker Invoker
	Sink    Sink
}

// Run orchestrates one ingestion pass: load the watermark, fetch newer
// receipts, transcribe and parse each one, append all rows in a single
// batch, and only then advance the watermark. A payload that fails
// transcription or parsing is skipped with a warning; it does not stop
// the run.
func (p *Pipeline) Run(ctx context.Context, opts RunOptions) (Result, error) {
	printer := observability.NewPrinter(os.Stdout)

	watermark := checkpoint.Load(opts.CheckpointPath)

	mode := db.ModeIncremental
	if opts.Historical || watermark == 0 {
		mode = db.ModeHistorical
	}

	// Journal is best effort: a missing database never blocks ingestion.
	var journal *db.DB
	var runID uuid.UUID
	if opts.DatabaseURL != "" {
		var err error
		journal, err = db.Connect(ctx, opts.DatabaseURL)
		if err != nil {
			fmt.Printf("Warning: Failed to connect to database: %v\n", err)
			fmt.Printf("Continuing without run journal...\n")
			journal = nil
		} else {
			defer journal.Close()
			if err := journal.Migrate(ctx); err != nil {
				fmt.Printf("Warning: Failed to migrate run journal: %v\n", err)
				journal.Close()
				journal = nil
			} else {
				runID, err = journal.CreateRun(ctx, mode, watermark)
				if err != nil {
					fmt.Printf("Warning: Failed to record run: %v\n", err)
					journal = nil
				}
			}
		}
	}

	result, err := p.run(ctx, mode, watermark, opts, printer)
	if journal != nil {
		status := db.StatusCompleted
		if err != nil {
			status = db.StatusFailed
		}
		if jerr := journal.CompleteRun(ctx, runID, status, result.Payloads, result.RowsWritten, result.WatermarkAfter); jerr != nil {
			fmt.Printf("Warning: Failed to finish run record: %v\n", jerr)
		}
	}
	return result, err
}

func (p *Pipeline) run(ctx context.Context, mode string, watermark int64, opts RunOptions, printer *observability.Printer) (Result, error) {
	res := Result{Mode: mode, WatermarkBefore: watermark, WatermarkAfter: watermark}

	var payloads []mail.Payload
	var maxMs int64
	var err error
	if mode == db.ModeHistorical {
		fmt.Printf("Step 1/4: Fetching all receipts from the mailbox...\n")
		payloads, err = p.Source.IngestHistorical(ctx)
		maxMs = newestInternalMs(payloads, watermark)
	} else {
		fmt.Printf("Step 1/4: Fetching receipts newer than the last run...\n")
		payloads, maxMs, err = p.Source.IngestNewer(ctx, watermark)
	}
	if err != nil {
		return res, fmt.Errorf("mail ingestion failed: %w", err)
	}
	res.Payloads = len(payloads)

	if len(payloads) == 0 {
		fmt.Printf("No new receipts found.\n")
		return res, nil
	}

	fmt.Printf("Step 2/4: Transcribing %d receipts...\n", len(payloads))
	fmt.Printf("Step 3/4: Parsing line items...\n")

	var batch []types.Row
	for i, payload := range payloads {
		text, err := p.Invoker.Invoke(ctx, payload.Data)
		if err != nil {
			fmt.Printf("Warning: receipt %d/%d failed transcription: %v\n", i+1, len(payloads), err)
			res.Skipped++
			continue
		}

		rows, err := parsing.ParseRows(text, payload.Date)
		if err != nil {
			fmt.Printf("Warning: receipt %d/%d produced an unusable response: %v\n", i+1, len(payloads), err)
			res.Skipped++
			continue
		}
		if opts.Verbose {
			printer.PrintParsedRows(rows)
		}
		batch = append(batch, rows...)
	}

	if len(batch) == 0 {
		fmt.Printf("No line items extracted; leaving the watermark untouched.\n")
		return res, nil
	}

	fmt.Printf("Step 4/4: Appending %d rows to the workbook...\n", len(batch))
	if err := p.Sink.Append(batch); err != nil {
		return res, fmt.Errorf("failed to append rows: %w", err)
	}
	res.RowsWritten = len(batch)

	// The watermark only moves after rows are safely on disk, and it
	// never moves backwards.
	if maxMs > watermark {
		if err := checkpoint.Save(opts.CheckpointPath, maxMs); err != nil {
			return res, fmt.Errorf("rows were written but the checkpoint could not be saved: %w", err)
		}
		res.WatermarkAfter = maxMs
	}

	if opts.Verbose {
		printer.PrintRunSummary(observability.RunSummary{
			Mode:            res.Mode,
			Payloads:        res.Payloads,
			RowsWritten:     res.RowsWritten,
			Skipped:         res.Skipped,
			WatermarkBefore: res.WatermarkBefore,
			WatermarkAfter:  res.WatermarkAfter,
		})
	}
	return res, nil
}

// newestInternalMs returns the largest internalDate among the payloads,
// or floor when the payloads carry none.
func newestInternalMs(payloads []mail.Payload, floor int64) int64 {
	max := floor
	for _, p := range payloads {
		if p.InternalMs > max {
			max = p.InternalMs
		}
	}
	return max
}
