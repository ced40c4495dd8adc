// Package sheetdb stores records in spreadsheet tables. Each sheet is a
// table whose first row names the columns and whose first column holds the
// record identifier. The mapping layer keeps the header in step with the
// records written, decides between updating a row in place and appending a
// new one, and removes rows bottom-up so that row shifts never hit a row
// still waiting to be removed. Queries are evaluated in memory over the
// whole table.
//
// A SpreadsheetDB does not coordinate with other writers. Two processes (or
// two SpreadsheetDB values) writing the same table can race: one writer's
// row offsets go stale as soon as the other inserts or deletes rows.
package sheetdb

import "context"

// DB is the database-style contract over a set of tables
type DB interface {
	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error

	// GetByIDs returns the records with the given ids in request order.
	// Unknown ids are skipped.
	GetByIDs(ctx context.Context, table string, ids []string) ([]Record, error)

	// GetAllRows returns every valid record of a table in row order
	GetAllRows(ctx context.Context, table string) ([]Record, error)

	// SaveBatch inserts or fully overwrites records keyed by id
	SaveBatch(ctx context.Context, table string, records []Record) error

	// DeleteByIDs removes the rows holding the ids and returns how many
	DeleteByIDs(ctx context.Context, table string, ids []string) (int, error)

	// DeleteByQuery removes every row matching q and returns how many
	DeleteByQuery(ctx context.Context, q Query) (int, error)

	// RunQuery returns the records of q.Table matching q
	RunQuery(ctx context.Context, q Query) ([]Record, error)

	// RunQueryCount returns len(RunQuery(q))
	RunQueryCount(ctx context.Context, q Query) (int, error)

	// StreamQuery returns the results of q one by one
	StreamQuery(ctx context.Context, q Query) *RowStream

	// GetTableSchema describes the columns of a table
	GetTableSchema(ctx context.Context, table string) (*TableSchema, error)

	// GetTables lists table names in sheet order
	GetTables(ctx context.Context) ([]string, error)

	// CreateTable creates an empty table unless it exists
	CreateTable(ctx context.Context, table string) error

	// DeleteTableIfExists drops a table
	DeleteTableIfExists(ctx context.Context, table string) error

	// Close releases the handle
	Close() error
}
