package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <table> <id>...",
		Short: "Get records by id",
		Long: `Get prints the records with the given ids in the order given.
Unknown ids are skipped.

Example:
  sheetdb get users u1 u2`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.db.GetByIDs(cmd.Context(), args[0], args[1:])
			if err != nil {
				return fmt.Errorf("get records: %w", err)
			}
			return a.out.records(records)
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	var (
		where, order, fields []string
		limit, offset        int
		count                bool
	)

	cmd := &cobra.Command{
		Use:   "list <table>",
		Short: "List records matching a query",
		Long: `List prints the records of a table. Conditions are AND-ed.

Example:
  sheetdb list users --where 'age>=20' --where 'tag in [a, b]' --order -age
  sheetdb list users --where 'active==true' --count`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := buildQuery(args[0], where, order, fields, limit, offset)
			if err != nil {
				return err
			}

			if count {
				n, err := a.db.RunQueryCount(cmd.Context(), q)
				if err != nil {
					return fmt.Errorf("count records: %w", err)
				}
				return a.out.print(n)
			}

			if a.out.format == "jsonl" {
				stream := a.db.StreamQuery(cmd.Context(), q)
				defer stream.Close()
				for record, err := range stream.All() {
					if err != nil {
						return fmt.Errorf("stream records: %w", err)
					}
					if err := a.out.print(record.Map()); err != nil {
						return err
					}
				}
				return nil
			}

			records, err := a.db.RunQuery(cmd.Context(), q)
			if err != nil {
				return fmt.Errorf("list records: %w", err)
			}
			return a.out.records(records)
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "condition such as 'age>=20' (repeatable)")
	cmd.Flags().StringArrayVar(&order, "order", nil, "sort field, '-field' for descending (repeatable)")
	cmd.Flags().StringSliceVar(&fields, "select", nil, "fields to print")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of records, 0 for all")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of matches to skip")
	cmd.Flags().BoolVar(&count, "count", false, "print the number of matches only")
	return cmd
}

func (a *app) saveCmd() *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "save <table>",
		Short: "Insert or update records",
		Long: `Save reads one record or a list of records as YAML or JSON and
upserts them by id. Records are read from --input or standard input.

Example:
  echo '[{id: u1, name: Alice, age: 31}]' | sheetdb save users`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if input != "" {
				f, err := os.Open(input)
				if err != nil {
					return fmt.Errorf("open records: %w", err)
				}
				defer f.Close()
				r = f
			}

			records, err := readRecords(r)
			if err != nil {
				return err
			}
			if err := a.db.SaveBatch(cmd.Context(), args[0], records); err != nil {
				return fmt.Errorf("save records: %w", err)
			}
			return a.out.print(map[string]int{"saved": len(records)})
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "YAML or JSON file with records (default: stdin)")
	return cmd
}

func (a *app) deleteCmd() *cobra.Command {
	var where []string

	cmd := &cobra.Command{
		Use:   "delete <table> [id]...",
		Short: "Delete records by id or by query",
		Long: `Delete removes the records with the given ids, or every record
matching --where.

Example:
  sheetdb delete users u1 u2
  sheetdb delete users --where 'active==false'`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			table, ids := args[0], args[1:]

			var (
				n   int
				err error
			)
			switch {
			case len(ids) > 0 && len(where) > 0:
				return fmt.Errorf("give either ids or --where, not both")
			case len(ids) > 0:
				n, err = a.db.DeleteByIDs(cmd.Context(), table, ids)
			case len(where) > 0:
				q, qerr := buildQuery(table, where, nil, nil, 0, 0)
				if qerr != nil {
					return qerr
				}
				n, err = a.db.DeleteByQuery(cmd.Context(), q)
			default:
				return fmt.Errorf("give ids or --where")
			}
			if err != nil {
				return fmt.Errorf("delete records: %w", err)
			}
			return a.out.print(map[string]int{"deleted": n})
		},
	}

	cmd.Flags().StringArrayVarP(&where, "where", "w", nil, "condition such as 'age>=20' (repeatable)")
	return cmd
}
