package googlesheets

import (
	"errors"
	"fmt"
)

// Config represents configuration specific to the Google Sheets grid
type Config struct {
	SpreadsheetID string

	// RequestsPerSecond paces calls to the Sheets API. Zero disables pacing.
	RequestsPerSecond float64
	// Burst is the number of calls allowed at once (minimum 1)
	Burst int
}

// DefaultConfig returns a configuration that stays within the default
// per-user quota of 60 requests per minute
func DefaultConfig(spreadsheetID string) Config {
	return Config{
		SpreadsheetID:     spreadsheetID,
		RequestsPerSecond: 1,
		Burst:             5,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.SpreadsheetID == "" {
		return errors.New("spreadsheet id is required")
	}
	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("requests per second must be non-negative, got %v", c.RequestsPerSecond)
	}
	if c.Burst < 0 {
		return fmt.Errorf("burst must be non-negative, got %d", c.Burst)
	}
	return nil
}
