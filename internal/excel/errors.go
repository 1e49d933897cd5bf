package excel

import "fmt"

// WorkbookNotFoundError means the backing workbook file is missing.
// The writer only fills an existing workbook; it never creates one.
type WorkbookNotFoundError struct {
	Path  string
	Cause error
}

func (e *WorkbookNotFoundError) Error() string {
	return fmt.Sprintf("workbook %s not found: %v", e.Path, e.Cause)
}

func (e *WorkbookNotFoundError) Unwrap() error {
	return e.Cause
}

// SchemaMismatchError means the workbook exists but does not contain
// the expected worksheet or table. This is fatal: writing into an
// unknown layout would corrupt the user's spreadsheet.
type SchemaMismatchError struct {
	Kind string // "worksheet" or "table"
	Name string
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("%s %q not found in workbook; check whether it was renamed", e.Kind, e.Name)
}
