// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by ApplyDefaults when the corresponding field is unset.
const (
	DefaultModel             = "gemini-2.5-flash-lite"
	DefaultTemperature       = 0.2
	DefaultRequestsPerMinute = 15
	DefaultWorkbook          = "receipt-buddy.xlsx"
	DefaultWorksheet         = "Itemized"
	DefaultTable             = "ReceiptTable"
	DefaultCheckpoint        = "checkpoint.json"
	DefaultCredentials       = "credentials.json"
	DefaultToken             = "token.json"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// Most fields are optional; missing values use defaults or must be provided
// via CLI flags. Senders is the exception: without at least one sender there
// is nothing to ingest.
type Config struct {
	// Sources
	Senders []string `json:"senders" validate:"min=1,dive,email"` // Receipt sender addresses to poll

	// Model
	Model             string  `json:"model,omitempty"`                                        // Gemini model name
	Temperature       float64 `json:"temperature,omitempty" validate:"gte=0,lte=2"`           // Sampling temperature
	RequestsPerMinute int     `json:"requests_per_minute,omitempty" validate:"gte=0,lte=600"` // Inference pacing budget
	APIKey            string  `json:"api_key,omitempty"`                                      // Gemini API key

	// Paths
	Workbook    string `json:"workbook,omitempty"`    // Path to the target workbook
	Worksheet   string `json:"worksheet,omitempty"`   // Worksheet holding the line item table
	Table       string `json:"table,omitempty"`       // Named table to append to
	Checkpoint  string `json:"checkpoint,omitempty"`  // Path to the watermark file
	Credentials string `json:"credentials,omitempty"` // Path to the Gmail OAuth client file
	Token       string `json:"token,omitempty"`       // Path to the cached OAuth token

	// Behavior
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL URL for the run journal
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// ApplyDefaults fills unset fields with the package defaults.
func (c *Config) ApplyDefaults() {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Temperature == 0 {
		c.Temperature = DefaultTemperature
	}
	if c.RequestsPerMinute == 0 {
		c.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if c.Workbook == "" {
		c.Workbook = DefaultWorkbook
	}
	if c.Worksheet == "" {
		c.Worksheet = DefaultWorksheet
	}
	if c.Table == "" {
		c.Table = DefaultTable
	}
	if c.Checkpoint == "" {
		c.Checkpoint = DefaultCheckpoint
	}
	if c.Credentials == "" {
		c.Credentials = DefaultCredentials
	}
	if c.Token == "" {
		c.Token = DefaultToken
	}
}

// Validate checks that the configuration has valid values. Call after
// ApplyDefaults so defaults are covered too.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			return fmt.Errorf("config error: field %q failed %q validation", first.Field(), first.Tag())
		}
		return fmt.Errorf("config error: %w", err)
	}

	if c.APIKey == "" {
		return fmt.Errorf("config error: Gemini API key is required (set 'api_key' or GEMINI_API_KEY)")
	}
	return nil
}
