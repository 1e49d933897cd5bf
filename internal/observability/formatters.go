// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jonathan/receipt-buddy/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintParsedRows outputs a preview of the rows parsed from one receipt.
func (p *Printer) PrintParsedRows(rows []types.Row) {
	if len(rows) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Parsed %d line items:\n\n", len(rows)))

	count := min(len(rows), maxItemsToShow)
	for i := 0; i < count; i++ {
		r := rows[i]
		item := r.Item
		if len(item) > 30 {
			item = item[:27] + "..."
		}
		sb.WriteString(fmt.Sprintf("• %-30s x%d  %.2f\n", item, r.Quantity, r.Price))
	}
	if len(rows) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more items", len(rows)-maxItemsToShow))
	}

	p.printBox("PARSED RECEIPT", strings.TrimSuffix(sb.String(), "\n"))
}

// RunSummary captures the counters of one completed ingestion run.
type RunSummary struct {
	Mode            string
	Payloads        int
	RowsWritten     int
	Skipped         int
	WatermarkBefore int64
	WatermarkAfter  int64
}

// PrintRunSummary outputs the final counters of a run.
func (p *Printer) PrintRunSummary(s RunSummary) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Mode:          %s\n", s.Mode))
	sb.WriteString(fmt.Sprintf("Receipts:      %d\n", s.Payloads))
	sb.WriteString(fmt.Sprintf("Rows written:  %d\n", s.RowsWritten))
	if s.Skipped > 0 {
		sb.WriteString(fmt.Sprintf("Skipped:       %d\n", s.Skipped))
	}
	sb.WriteString(fmt.Sprintf("Watermark:     %s → %s",
		formatWatermark(s.WatermarkBefore), formatWatermark(s.WatermarkAfter)))

	p.printBox("RUN SUMMARY", sb.String())
}

func formatWatermark(ms int64) string {
	if ms <= 0 {
		return "(none)"
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
