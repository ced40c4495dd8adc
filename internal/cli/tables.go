package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *app) pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the backing store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.Ping(cmd.Context()); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}

func (a *app) tablesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tables, err := a.db.GetTables(cmd.Context())
			if err != nil {
				return fmt.Errorf("list tables: %w", err)
			}
			if tables == nil {
				tables = []string{}
			}
			return a.out.print(tables)
		},
	}
}

func (a *app) createTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-table <table>",
		Short: "Create an empty table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.CreateTable(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("create table %q: %w", args[0], err)
			}
			return nil
		},
	}
}

func (a *app) dropTableCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "drop-table <table>",
		Short: "Delete a table if it exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.db.DeleteTableIfExists(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("drop table %q: %w", args[0], err)
			}
			return nil
		},
	}
}

func (a *app) schemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the fields of a table and the types found in them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := a.db.GetTableSchema(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("schema of %q: %w", args[0], err)
			}
			return a.out.print(schema)
		},
	}
}
