package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ideamans/go-sheetdb"
	"github.com/ideamans/go-sheetdb/adapters/excel"
	"github.com/ideamans/go-sheetdb/adapters/googlesheets"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileName = "sheetdb"
	configFileType = "yaml"
	envPrefix      = "SHEETDB"

	keyBackend           = "backend"
	keySpreadsheetID     = "spreadsheet_id"
	keyCredentials       = "credentials"
	keyFile              = "file"
	keyIDField           = "id_field"
	keyMaxRows           = "max_rows"
	keyDuplicateIDs      = "duplicate_ids"
	keyAssignIDs         = "assign_ids"
	keyLogLevel          = "log_level"
	keyRequestsPerSecond = "requests_per_second"
	keyOutput            = "output"

	backendSheets = "sheets"
	backendExcel  = "excel"
)

// flagKeys maps persistent flag names to config keys
var flagKeys = map[string]string{
	"backend":             keyBackend,
	"spreadsheet-id":      keySpreadsheetID,
	"credentials":         keyCredentials,
	"file":                keyFile,
	"id-field":            keyIDField,
	"max-rows":            keyMaxRows,
	"duplicate-ids":       keyDuplicateIDs,
	"assign-ids":          keyAssignIDs,
	"log-level":           keyLogLevel,
	"requests-per-second": keyRequestsPerSecond,
	"output":              keyOutput,
}

func registerFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "config file (default: ./sheetdb.yaml)")
	flags.String("backend", backendExcel, "backing store: sheets or excel")
	flags.String("spreadsheet-id", "", "Google Sheets spreadsheet id")
	flags.String("credentials", "", "service account JSON key file (default: application default credentials)")
	flags.String("file", "sheetdb.xlsx", "Excel workbook path")
	flags.String("id-field", sheetdb.DefaultIDField, "identifier field")
	flags.Int("max-rows", 0, "data rows scanned when reading ids, 0 for no limit")
	flags.String("duplicate-ids", "allow", "repeated ids in one save: allow, last-wins or reject")
	flags.Bool("assign-ids", false, "give records without an id a generated one")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.Float64("requests-per-second", 1, "Google Sheets request rate, 0 for unlimited")
	flags.StringP("output", "o", "json", "output format: json, jsonl or yaml")
}

// loadConfig reads flags, SHEETDB_* variables and the config file, in that
// order of precedence. A missing default config file is not an error.
func loadConfig(flags *pflag.FlagSet) (*viper.Viper, error) {
	v := viper.New()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return nil, fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	configFile, _ := flags.GetString("config")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return v, nil
}

// openGrid builds the grid named by the backend key
func openGrid(ctx context.Context, v *viper.Viper) (sheetdb.Grid, error) {
	switch backend := v.GetString(keyBackend); backend {
	case backendExcel:
		return excel.New(&excel.Config{FilePath: v.GetString(keyFile)})

	case backendSheets:
		config := googlesheets.DefaultConfig(v.GetString(keySpreadsheetID))
		config.RequestsPerSecond = v.GetFloat64(keyRequestsPerSecond)
		if path := v.GetString(keyCredentials); path != "" {
			return googlesheets.NewWithJSONKeyFile(ctx, config, path)
		}
		return googlesheets.NewWithDefaultCredentials(ctx, config)

	default:
		return nil, fmt.Errorf("unknown backend %q (valid: %s, %s)", backend, backendSheets, backendExcel)
	}
}

// openDB builds the SpreadsheetDB described by v
func openDB(ctx context.Context, v *viper.Viper, logger *slog.Logger) (*sheetdb.SpreadsheetDB, error) {
	policy, err := sheetdb.ParseDuplicateIDPolicy(v.GetString(keyDuplicateIDs))
	if err != nil {
		return nil, err
	}

	grid, err := openGrid(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", v.GetString(keyBackend), err)
	}

	return sheetdb.New(grid, &sheetdb.Config{
		IDField:      v.GetString(keyIDField),
		MaxRows:      v.GetInt(keyMaxRows),
		DuplicateIDs: policy,
		AssignIDs:    v.GetBool(keyAssignIDs),
		Logger:       logger,
	}), nil
}
