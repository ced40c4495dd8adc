package sheetdb

import (
	"context"
	"errors"
	"fmt"
)

// RowIndex maps identifiers to 1-based data offsets. It is only valid until
// the next structural change to its table.
type RowIndex struct {
	offsets map[string]int
	last    int
}

// BuildRowIndex indexes an id column; ids[i] belongs to offset i+1. Empty
// ids are skipped. When an id repeats the later row wins.
func BuildRowIndex(ids []string) *RowIndex {
	idx := &RowIndex{offsets: make(map[string]int, len(ids)), last: len(ids)}
	for i, id := range ids {
		if id == "" {
			continue
		}
		idx.offsets[id] = i + 1
	}
	return idx
}

// Offset returns the data offset of id
func (x *RowIndex) Offset(id string) (int, bool) {
	off, ok := x.offsets[id]
	return off, ok
}

// Len returns the number of distinct ids
func (x *RowIndex) Len() int { return len(x.offsets) }

// NextOffset returns the first offset after the indexed rows
func (x *RowIndex) NextOffset() int { return x.last + 1 }

// resolveRows reads the id column of table. A missing table yields an empty
// index.
func (db *SpreadsheetDB) resolveRows(ctx context.Context, table string) (*RowIndex, error) {
	rng := Range{Table: table, StartRow: 2, StartCol: 1, EndCol: 1}
	if db.config.MaxRows > 0 {
		rng.EndRow = db.config.MaxRows + 1
	}

	values, err := db.grid.GetValueRange(ctx, rng)
	if errors.Is(err, ErrTableNotFound) {
		return BuildRowIndex(nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ids of %s: %w", table, err)
	}

	ids := make([]string, len(values))
	for i, row := range values {
		if len(row) > 0 {
			ids[i] = row[0]
		}
	}
	return BuildRowIndex(ids), nil
}
