package sheetdb

import "log/slog"

// DefaultIDField is the identifier field used when Config.IDField is empty
const DefaultIDField = "id"

// Config represents configuration for a SpreadsheetDB
type Config struct {
	IDField      string            // Identifier field, always column A (default: "id")
	MaxRows      int               // Data rows scanned when reading ids, 0 for no limit
	DuplicateIDs DuplicateIDPolicy // Handling of repeated ids within one SaveBatch
	AssignIDs    bool              // Give records without an id a UUIDv7 instead of failing
	Logger       *slog.Logger      // Default: slog.Default()
	Engine       QueryEngine       // Default: MemoryEngine
}

func (c Config) withDefaults() Config {
	if c.IDField == "" {
		c.IDField = DefaultIDField
	}
	if c.MaxRows < 0 {
		c.MaxRows = 0
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Engine == nil {
		c.Engine = MemoryEngine{}
	}
	return c
}
