package sheetdb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
)

var _ DB = (*SpreadsheetDB)(nil)

// SpreadsheetDB implements DB on top of a Grid. Mutating operations on the
// same table are serialized within one SpreadsheetDB; nothing is cached
// between calls.
type SpreadsheetDB struct {
	grid   Grid
	config Config
	log    *slog.Logger
	engine QueryEngine

	locks  tableLocks
	mu     sync.Mutex
	closed bool
}

// New creates a SpreadsheetDB over grid. A nil config uses the defaults.
func New(grid Grid, config *Config) *SpreadsheetDB {
	if config == nil {
		config = &Config{}
	}
	cfg := config.withDefaults()

	return &SpreadsheetDB{
		grid:   grid,
		config: cfg,
		log:    cfg.Logger,
		engine: cfg.Engine,
	}
}

// IDField returns the identifier field name
func (db *SpreadsheetDB) IDField() string { return db.config.IDField }

func (db *SpreadsheetDB) checkOpen() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	return nil
}

// Ping fetches the table properties
func (db *SpreadsheetDB) Ping(ctx context.Context) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	_, err := db.tableProperties(ctx)
	return err
}

// GetByIDs returns the records with the given ids in request order
func (db *SpreadsheetDB) GetByIDs(ctx context.Context, table string, ids []string) ([]Record, error) {
	rows, err := db.GetAllRows(ctx, table)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Record, len(rows))
	for _, row := range rows {
		byID[row.ID(db.config.IDField)] = row
	}

	results := make([]Record, 0, len(ids))
	for _, id := range ids {
		if row, ok := byID[id]; ok {
			results = append(results, row)
		}
	}
	return results, nil
}

// GetAllRows materializes a table. A missing table has no rows.
func (db *SpreadsheetDB) GetAllRows(ctx context.Context, table string) ([]Record, error) {
	_, rows, err := db.loadTable(ctx, table)
	return rows, err
}

func (db *SpreadsheetDB) loadTable(ctx context.Context, table string) ([]string, []Record, error) {
	if err := db.checkOpen(); err != nil {
		return nil, nil, err
	}

	cells, err := db.grid.GetGrid(ctx, table)
	if errors.Is(err, ErrTableNotFound) {
		return []string{}, []Record{}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", table, err)
	}

	header, rows := DecodeGrid(cells, db.config.IDField)
	return header, rows, nil
}

// SaveBatch writes records into table, creating the table and any missing
// columns first. Records whose id already has a row overwrite that row in
// full; the rest are appended. With Config.AssignIDs, records lacking an id
// get one set in place.
//
// Updates and appends are separate remote calls. When SaveBatch fails the
// table may hold part of the batch and should be re-read before retrying.
func (db *SpreadsheetDB) SaveBatch(ctx context.Context, table string, records []Record) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	batch, err := db.prepareBatch(records)
	if err != nil {
		return err
	}

	unlock := db.locks.lock(table)
	defer unlock()

	props, err := db.createTableIfNeeded(ctx, table)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	header, err := db.syncSchema(ctx, props, batch)
	if err != nil {
		return err
	}

	idx, err := db.resolveRows(ctx, table)
	if err != nil {
		return err
	}

	plan := PlanUpsert(header, idx, batch, db.config.IDField)
	if len(plan.Updates) > 0 {
		if err := db.grid.BatchUpdateCells(ctx, table, props.ID, plan.Updates); err != nil {
			return fmt.Errorf("failed to update rows of %s: %w", table, err)
		}
	}
	if len(plan.Appends) > 0 {
		if err := db.grid.AppendValues(ctx, table, plan.AppendAt, plan.Appends); err != nil {
			return fmt.Errorf("failed to append rows to %s: %w", table, err)
		}
	}

	db.log.Debug("saved batch", "table", table, "updated", len(plan.Updates), "appended", len(plan.Appends))
	return nil
}

// DeleteByIDs removes the rows holding ids and returns how many were found.
// Nothing is written when none of the ids exist.
func (db *SpreadsheetDB) DeleteByIDs(ctx context.Context, table string, ids []string) (int, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}

	unlock := db.locks.lock(table)
	defer unlock()

	return db.deleteByIDs(ctx, table, ids)
}

func (db *SpreadsheetDB) deleteByIDs(ctx context.Context, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	props, err := db.tableProperties(ctx)
	if err != nil {
		return 0, err
	}
	p, ok := props[table]
	if !ok {
		return 0, nil
	}

	idx, err := db.resolveRows(ctx, table)
	if err != nil {
		return 0, err
	}

	offsets := PlanDeletion(idx, ids)
	if len(offsets) == 0 {
		return 0, nil
	}

	if _, err := db.grid.BatchStructural(ctx, deleteOperations(p, offsets)); err != nil {
		return 0, fmt.Errorf("failed to delete rows of %s: %w", table, err)
	}

	db.log.Debug("deleted rows", "table", table, "count", len(offsets))
	return len(offsets), nil
}

// DeleteByQuery selects the ids matching q and deletes them
func (db *SpreadsheetDB) DeleteByQuery(ctx context.Context, q Query) (int, error) {
	if err := db.checkOpen(); err != nil {
		return 0, err
	}

	unlock := db.locks.lock(q.Table)
	defer unlock()

	rows, err := db.RunQuery(ctx, q.Select(db.config.IDField))
	if err != nil {
		return 0, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID(db.config.IDField))
	}
	return db.deleteByIDs(ctx, q.Table, ids)
}

// RunQuery materializes q.Table and evaluates q over it
func (db *SpreadsheetDB) RunQuery(ctx context.Context, q Query) ([]Record, error) {
	rows, err := db.GetAllRows(ctx, q.Table)
	if err != nil {
		return nil, err
	}
	return db.engine.Evaluate(rows, q)
}

// RunQueryCount returns the number of records RunQuery would return
func (db *SpreadsheetDB) RunQueryCount(ctx context.Context, q Query) (int, error) {
	rows, err := db.GetAllRows(ctx, q.Table)
	if err != nil {
		return 0, err
	}
	return db.engine.Count(rows, q)
}

// StreamQuery runs q on the first Next of the returned stream and yields
// the materialized results
func (db *SpreadsheetDB) StreamQuery(ctx context.Context, q Query) *RowStream {
	return newRowStream(func() ([]Record, error) {
		return db.RunQuery(ctx, q)
	})
}

// GetTableSchema infers the column types of a table from its rows
func (db *SpreadsheetDB) GetTableSchema(ctx context.Context, table string) (*TableSchema, error) {
	header, rows, err := db.loadTable(ctx, table)
	if err != nil {
		return nil, err
	}
	return InferSchema(table, header, rows), nil
}

// GetTables lists table names in sheet order
func (db *SpreadsheetDB) GetTables(ctx context.Context) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}

	props, err := db.tableProperties(ctx)
	if err != nil {
		return nil, err
	}

	list := make([]TableProperties, 0, len(props))
	for _, p := range props {
		list = append(list, p)
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Index != list[j].Index {
			return list[i].Index < list[j].Index
		}
		return list[i].Title < list[j].Title
	})

	names := make([]string, len(list))
	for i, p := range list {
		names[i] = p.Title
	}
	return names, nil
}

// CreateTable creates table unless it exists. Columns are added by SaveBatch.
func (db *SpreadsheetDB) CreateTable(ctx context.Context, table string) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	unlock := db.locks.lock(table)
	defer unlock()

	_, err := db.createTableIfNeeded(ctx, table)
	return err
}

// DeleteTableIfExists drops table when it exists
func (db *SpreadsheetDB) DeleteTableIfExists(ctx context.Context, table string) error {
	if err := db.checkOpen(); err != nil {
		return err
	}

	unlock := db.locks.lock(table)
	defer unlock()

	props, err := db.tableProperties(ctx)
	if err != nil {
		return err
	}
	p, ok := props[table]
	if !ok {
		return nil
	}

	if _, err := db.grid.BatchStructural(ctx, []Operation{{Type: OpDeleteTable, Table: table, SheetID: p.ID}}); err != nil {
		return fmt.Errorf("failed to delete table %s: %w", table, err)
	}

	db.log.Debug("deleted table", "table", table)
	return nil
}

// Close marks the handle closed and closes the grid when it is an io.Closer
func (db *SpreadsheetDB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	db.mu.Unlock()

	if c, ok := db.grid.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (db *SpreadsheetDB) tableProperties(ctx context.Context) (map[string]TableProperties, error) {
	props, err := db.grid.GetProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get table properties: %w", err)
	}
	return props, nil
}

// tableLocks hands out one mutex per table name
type tableLocks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

func (l *tableLocks) lock(table string) func() {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*sync.Mutex)
	}
	m, ok := l.m[table]
	if !ok {
		m = &sync.Mutex{}
		l.m[table] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
