// Package excel appends line item rows to a named table in an existing
// workbook. It never creates the workbook, the worksheet, or the table;
// it only fills rows in and extends the table's declared range.
package excel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/jonathan/receipt-buddy/internal/types"
)

// Column layout inside the table, as offsets from the table's first
// column: item, quantity, price, price per unit, date.
const (
	colItem = iota
	colQuantity
	colPrice
	colPerUnit
	colDate
)

// Writer appends rows to the named table of the named worksheet.
type Writer struct {
	Path      string
	Worksheet string
	Table     string
}

// tableRegion is the parsed rectangular bounds of the table.
// firstDataRow is always startRow+1: the table carries one header row.
type tableRegion struct {
	startCol, startRow int
	endCol, endRow     int
	firstDataRow       int
}

// Append writes the rows into the next free row range of the table and
// extends the table's bounds to cover them. The save is all or
// nothing: a failure anywhere leaves the on-disk workbook untouched.
func (w *Writer) Append(rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	f, err := excelize.OpenFile(w.Path)
	if err != nil {
		return &WorkbookNotFoundError{Path: w.Path, Cause: err}
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(w.Worksheet)
	if err != nil || idx < 0 {
		return &SchemaMismatchError{Kind: "worksheet", Name: w.Worksheet}
	}

	table, err := w.findTable(f)
	if err != nil {
		return err
	}
	region, err := parseRegion(table.Range)
	if err != nil {
		return fmt.Errorf("failed to parse table range %q: %w", table.Range, err)
	}

	// Template formats come from the first data row, read before any
	// write, so whatever formatting the user set up is inherited.
	priceStyle, err := f.GetCellStyle(w.Worksheet, cellName(region.startCol+colPrice, region.firstDataRow))
	if err != nil {
		return fmt.Errorf("failed to read price template format: %w", err)
	}
	perUnitStyle, err := f.GetCellStyle(w.Worksheet, cellName(region.startCol+colPerUnit, region.firstDataRow))
	if err != nil {
		return fmt.Errorf("failed to read price-per-unit template format: %w", err)
	}
	dateStyle, err := f.GetCellStyle(w.Worksheet, cellName(region.startCol+colDate, region.firstDataRow))
	if err != nil {
		return fmt.Errorf("failed to read date template format: %w", err)
	}

	// Reuse the empty template row when the table holds no data yet,
	// otherwise start right below the current last row.
	writeRow := region.endRow + 1
	if region.endRow == region.firstDataRow && w.rowIsEmpty(f, region) {
		writeRow = region.firstDataRow
	}

	for _, r := range rows {
		if err := w.writeRow(f, region, writeRow, r, priceStyle, perUnitStyle, dateStyle); err != nil {
			return err
		}
		writeRow++
	}
	lastWritten := writeRow - 1

	endRow := region.endRow
	if lastWritten > endRow {
		endRow = lastWritten
	}
	newRange := fmt.Sprintf("%s:%s",
		cellName(region.startCol, region.startRow),
		cellName(region.endCol, endRow))

	// excelize has no in-place table resize; replace the definition
	// keeping everything but the range.
	if err := f.DeleteTable(w.Table); err != nil {
		return fmt.Errorf("failed to update table %s: %w", w.Table, err)
	}
	table.Range = newRange
	if err := f.AddTable(w.Worksheet, &table); err != nil {
		return fmt.Errorf("failed to update table %s: %w", w.Table, err)
	}

	return w.saveAtomically(f)
}

func (w *Writer) writeRow(f *excelize.File, region tableRegion, row int, r types.Row, priceStyle, perUnitStyle, dateStyle int) error {
	set := func(offset int, value any) error {
		return f.SetCellValue(w.Worksheet, cellName(region.startCol+offset, row), value)
	}
	style := func(offset, styleID int) error {
		cell := cellName(region.startCol+offset, row)
		return f.SetCellStyle(w.Worksheet, cell, cell, styleID)
	}

	if err := set(colItem, r.Item); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	if err := set(colQuantity, r.Quantity); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	if err := set(colPrice, r.Price); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	if err := style(colPrice, priceStyle); err != nil {
		return fmt.Errorf("failed to format row %d: %w", row, err)
	}
	if err := set(colPerUnit, r.PricePerUnit); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	if err := style(colPerUnit, perUnitStyle); err != nil {
		return fmt.Errorf("failed to format row %d: %w", row, err)
	}
	if !r.Date.IsZero() {
		if err := set(colDate, r.Date); err != nil {
			return fmt.Errorf("failed to write row %d: %w", row, err)
		}
		if err := style(colDate, dateStyle); err != nil {
			return fmt.Errorf("failed to format row %d: %w", row, err)
		}
	}
	return nil
}

func (w *Writer) findTable(f *excelize.File) (excelize.Table, error) {
	tables, err := f.GetTables(w.Worksheet)
	if err != nil {
		return excelize.Table{}, fmt.Errorf("failed to read tables from %s: %w", w.Worksheet, err)
	}
	for _, t := range tables {
		if t.Name == w.Table {
			return t, nil
		}
	}
	return excelize.Table{}, &SchemaMismatchError{Kind: "table", Name: w.Table}
}

// rowIsEmpty reports whether the first data row has no values in any
// of the table's columns.
func (w *Writer) rowIsEmpty(f *excelize.File, region tableRegion) bool {
	for col := region.startCol; col <= region.endCol; col++ {
		v, err := f.GetCellValue(w.Worksheet, cellName(col, region.firstDataRow))
		if err == nil && v != "" {
			return false
		}
	}
	return true
}

// saveAtomically serializes the workbook and replaces the file via a
// temp file and rename, so a failed save never corrupts the original.
func (w *Writer) saveAtomically(f *excelize.File) error {
	buf, err := f.WriteToBuffer()
	if err != nil {
		return fmt.Errorf("failed to serialize workbook: %w", err)
	}

	dir := filepath.Dir(w.Path)
	tmp, err := os.CreateTemp(dir, ".workbook-*.xlsx")
	if err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	if err := os.Rename(tmpName, w.Path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace workbook %s: %w", w.Path, err)
	}
	return nil
}

func parseRegion(ref string) (tableRegion, error) {
	parts := strings.Split(ref, ":")
	if len(parts) != 2 {
		return tableRegion{}, fmt.Errorf("range %q is not rectangular", ref)
	}
	startCol, startRow, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return tableRegion{}, err
	}
	endCol, endRow, err := excelize.CellNameToCoordinates(parts[1])
	if err != nil {
		return tableRegion{}, err
	}
	return tableRegion{
		startCol:     startCol,
		startRow:     startRow,
		endCol:       endCol,
		endRow:       endRow,
		firstDataRow: startRow + 1,
	}, nil
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
