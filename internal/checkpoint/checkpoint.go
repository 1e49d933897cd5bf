// Package checkpoint persists the ingestion watermark between runs.
//
// The watermark is the internalDate (epoch milliseconds) of the newest
// message that has been fully ingested. Everything at or below it is
// considered already processed.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type state struct {
	LastInternalMs int64 `json:"last_internal_ms"`
}

// Load returns the stored watermark in epoch milliseconds.
// A missing file, a missing key, or malformed content all mean
// "ingest everything", so Load returns 0 instead of an error.
func Load(path string) int64 {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}

	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return 0
	}
	if s.LastInternalMs < 0 {
		return 0
	}
	return s.LastInternalMs
}

// Save overwrites the checkpoint file atomically via a temp file and
// rename, so a crash mid-write can never leave a truncated checkpoint.
func Save(path string, ms int64) error {
	data, err := json.Marshal(state{LastInternalMs: ms})
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("failed to create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close checkpoint: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace checkpoint %s: %w", path, err)
	}
	return nil
}
