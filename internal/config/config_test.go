package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"senders": ["receipts@grocer.example"],
		"model": "gemini-2.5-flash-lite",
		"requests_per_minute": 10,
		"workbook": "household.xlsx"
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"receipts@grocer.example"}, cfg.Senders)
	assert.Equal(t, 10, cfg.RequestsPerMinute)
	assert.Equal(t, "household.xlsx", cfg.Workbook)
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	_, err := LoadConfig("")
	assert.Error(t, err)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	path := writeConfig(t, `{not json`)
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{Senders: []string{"receipts@grocer.example"}}
	cfg.ApplyDefaults()

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultTemperature, cfg.Temperature)
	assert.Equal(t, DefaultRequestsPerMinute, cfg.RequestsPerMinute)
	assert.Equal(t, DefaultWorkbook, cfg.Workbook)
	assert.Equal(t, DefaultWorksheet, cfg.Worksheet)
	assert.Equal(t, DefaultTable, cfg.Table)
	assert.Equal(t, DefaultCheckpoint, cfg.Checkpoint)
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := &Config{
		Senders:           []string{"receipts@grocer.example"},
		Model:             "gemini-2.5-pro",
		RequestsPerMinute: 5,
	}
	cfg.ApplyDefaults()

	assert.Equal(t, "gemini-2.5-pro", cfg.Model)
	assert.Equal(t, 5, cfg.RequestsPerMinute)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"no senders", func(c *Config) { c.Senders = nil }, true},
		{"bad sender address", func(c *Config) { c.Senders = []string{"not-an-address"} }, true},
		{"negative temperature", func(c *Config) { c.Temperature = -0.1 }, true},
		{"temperature too high", func(c *Config) { c.Temperature = 3 }, true},
		{"missing api key", func(c *Config) { c.APIKey = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				Senders: []string{"receipts@grocer.example"},
				APIKey:  "test-key",
			}
			cfg.ApplyDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
