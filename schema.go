package sheetdb

import (
	"context"
	"errors"
	"fmt"
)

// MergeHeader returns the header extended with every field of batch that is
// not a column yet, plus the added columns. Existing columns keep their
// order. New columns follow in first-seen batch order, fields of one record
// taken lexically; on an empty header idField comes first.
func MergeHeader(current []string, batch []Record, idField string) (merged, added []string) {
	seen := make(map[string]bool, len(current))
	for _, col := range current {
		seen[col] = true
	}

	merged = make([]string, len(current), len(current)+1)
	copy(merged, current)

	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			merged = append(merged, col)
			added = append(added, col)
		}
	}

	if len(current) == 0 && len(batch) > 0 {
		add(idField)
	}
	for _, record := range batch {
		for _, col := range record.Fields() {
			add(col)
		}
	}
	return merged, added
}

// columnNames reads the header row of a table
func (db *SpreadsheetDB) columnNames(ctx context.Context, table string) ([]string, error) {
	values, err := db.grid.GetValueRange(ctx, Range{Table: table, StartRow: 1, EndRow: 1})
	if errors.Is(err, ErrTableNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header of %s: %w", table, err)
	}
	if len(values) == 0 {
		return []string{}, nil
	}
	return headerFromText(values[0]), nil
}

// syncSchema makes sure the header holds every field of batch and returns it
func (db *SpreadsheetDB) syncSchema(ctx context.Context, props TableProperties, batch []Record) ([]string, error) {
	table := props.Title
	header, err := db.columnNames(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(header) > 0 && header[0] != db.config.IDField {
		return nil, fmt.Errorf("%w: table %s starts with %q, want %q", ErrIDColumn, table, header[0], db.config.IDField)
	}

	merged, added := MergeHeader(header, batch, db.config.IDField)
	if len(added) == 0 {
		return merged, nil
	}

	values := make([]Value, len(added))
	for i, col := range added {
		values[i] = String(col)
	}
	update := CellUpdate{Row: 0, Col: len(header), Values: values}
	if err := db.grid.BatchUpdateCells(ctx, table, props.ID, []CellUpdate{update}); err != nil {
		return nil, fmt.Errorf("failed to add columns to %s: %w", table, err)
	}

	db.log.Debug("added columns", "table", table, "columns", added)
	return merged, nil
}

// createTableIfNeeded returns the properties of table, creating it first
// with a frozen header row and id column when it does not exist
func (db *SpreadsheetDB) createTableIfNeeded(ctx context.Context, table string) (TableProperties, error) {
	props, err := db.tableProperties(ctx)
	if err != nil {
		return TableProperties{}, err
	}
	if p, ok := props[table]; ok {
		return p, nil
	}

	replies, err := db.grid.BatchStructural(ctx, []Operation{{
		Type:          OpAddTable,
		Table:         table,
		FrozenRows:    1,
		FrozenColumns: 1,
	}})
	if err != nil {
		return TableProperties{}, fmt.Errorf("failed to create table %s: %w", table, err)
	}
	if len(replies) == 0 {
		return TableProperties{}, fmt.Errorf("failed to create table %s: empty reply", table)
	}

	db.log.Debug("created table", "table", table, "sheetId", replies[0].ID)
	return replies[0], nil
}

// FieldType is the inferred type of a column
type FieldType string

const (
	FieldBoolean FieldType = "boolean"
	FieldNumber  FieldType = "number"
	FieldString  FieldType = "string"
	FieldMixed   FieldType = "mixed"
	FieldEmpty   FieldType = "empty"
)

// FieldSchema describes one column
type FieldSchema struct {
	Name     string    `json:"name" yaml:"name"`
	Type     FieldType `json:"type" yaml:"type"`
	Required bool      `json:"required" yaml:"required"`
}

// TableSchema describes a table as observed from its rows
type TableSchema struct {
	Table  string        `json:"table" yaml:"table"`
	Fields []FieldSchema `json:"fields" yaml:"fields"`
}

// Field returns the named field schema
func (s *TableSchema) Field(name string) (FieldSchema, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSchema{}, false
}

// InferSchema derives column types from rows. Fields follow header order; a
// field is required when every row has a value for it.
func InferSchema(table string, header []string, rows []Record) *TableSchema {
	schema := &TableSchema{Table: table, Fields: make([]FieldSchema, 0, len(header))}
	for _, col := range header {
		field := FieldSchema{Name: col, Type: FieldEmpty, Required: len(rows) > 0}
		for _, row := range rows {
			v, ok := row[col]
			if !ok || v.IsAbsent() {
				field.Required = false
				continue
			}
			t := FieldType(v.Kind().String())
			switch field.Type {
			case FieldEmpty:
				field.Type = t
			case t, FieldMixed:
			default:
				field.Type = FieldMixed
			}
		}
		schema.Fields = append(schema.Fields, field)
	}
	return schema
}
