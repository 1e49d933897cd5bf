// Package types defines the shared data model for the receipt ingestion pipeline.
package types

import "time"

// Row is one receipt line item destined for the workbook table.
// PricePerUnit is Price/Quantity, or 0.0 when Quantity is zero so a
// free or weight-priced item never causes a division fault.
type Row struct {
	Item         string    `json:"item"`
	Quantity     int       `json:"quantity"`
	Price        float64   `json:"price"`
	PricePerUnit float64   `json:"price_per_unit"`
	Date         time.Time `json:"date"`
}
