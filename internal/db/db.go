// Package db provides PostgreSQL persistence for the ingestion run journal.
// The journal is optional: the pipeline works fine without a database and
// only records runs when a connection URL is configured.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Run statuses recorded in the journal.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run modes recorded in the journal.
const (
	ModeHistorical  = "historical"
	ModeIncremental = "incremental"
)

// Run represents one journal record.
type Run struct {
	ID              uuid.UUID  `json:"id"`
	Mode            string     `json:"mode"`
	Status          string     `json:"status"`
	WatermarkBefore int64      `json:"watermark_before_ms"`
	WatermarkAfter  *int64     `json:"watermark_after_ms,omitempty"`
	PayloadCount    *int       `json:"payload_count,omitempty"`
	RowsWritten     *int       `json:"rows_written,omitempty"`
	StartedAt       time.Time  `json:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Migrate creates the journal table if it does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	_, err := db.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS ingestion_runs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			mode TEXT NOT NULL,
			status TEXT NOT NULL,
			watermark_before_ms BIGINT NOT NULL,
			watermark_after_ms BIGINT,
			payload_count INT,
			rows_written INT,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMPTZ
		)`)
	if err != nil {
		return fmt.Errorf("failed to migrate ingestion_runs: %w", err)
	}
	return nil
}

// CreateRun creates a new journal record and returns its ID
func (db *DB) CreateRun(ctx context.Context, mode string, watermarkBeforeMs int64) (uuid.UUID, error) {
	var id uuid.UUID
	err := db.pool.QueryRow(ctx,
		`INSERT INTO ingestion_runs (mode, status, watermark_before_ms)
		 VALUES ($1, $2, $3)
		 RETURNING id`,
		mode, StatusRunning, watermarkBeforeMs,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun marks a journal record as finished with its final counters
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status string, payloadCount, rowsWritten int, watermarkAfterMs int64) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE ingestion_runs
		 SET status = $1, payload_count = $2, rows_written = $3,
		     watermark_after_ms = $4, completed_at = NOW()
		 WHERE id = $5`,
		status, payloadCount, rowsWritten, watermarkAfterMs, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// ListRuns retrieves recent journal records, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, mode, status, watermark_before_ms, watermark_after_ms,
		        payload_count, rows_written, started_at, completed_at
		 FROM ingestion_runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Mode, &run.Status, &run.WatermarkBefore,
			&run.WatermarkAfter, &run.PayloadCount, &run.RowsWritten,
			&run.StartedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
