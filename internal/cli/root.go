// Package cli implements the sheetdb command line tool.
package cli

import (
	"github.com/ideamans/go-sheetdb"
	"github.com/spf13/cobra"
)

// app holds what every subcommand needs once the root has run
type app struct {
	db  *sheetdb.SpreadsheetDB
	out *printer
}

// NewRootCommand returns the sheetdb command tree. Each call has its own
// state, so tests can run several in one process.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "sheetdb",
		Short: "sheetdb stores records in spreadsheet tables",
		Long: `sheetdb treats every sheet of a Google Sheets spreadsheet or an Excel
workbook as a table. Row 1 holds field names, column A holds the record id.

Settings come from flags, SHEETDB_* environment variables and sheetdb.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.db != nil {
				return a.db.Close()
			}
			return nil
		},
	}
	registerFlags(root.PersistentFlags())

	root.AddCommand(
		a.pingCmd(),
		a.tablesCmd(),
		a.createTableCmd(),
		a.dropTableCmd(),
		a.schemaCmd(),
		a.getCmd(),
		a.listCmd(),
		a.saveCmd(),
		a.deleteCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	v, err := loadConfig(cmd.Root().PersistentFlags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), v.GetString(keyLogLevel))
	if err != nil {
		return err
	}

	a.out, err = newPrinter(cmd.OutOrStdout(), v.GetString(keyOutput))
	if err != nil {
		return err
	}

	a.db, err = openDB(cmd.Context(), v, logger)
	if err != nil {
		return err
	}
	logger.Debug("opened database", "backend", v.GetString(keyBackend), "id_field", a.db.IDField())
	return nil
}
