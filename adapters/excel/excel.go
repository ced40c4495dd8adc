// Package excel implements sheetdb.Grid on a local .xlsx workbook. Each
// worksheet is a table. Every call opens the file and writes it back when
// something changed.
package excel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/ideamans/go-sheetdb"
	"github.com/xuri/excelize/v2"
)

var _ sheetdb.Grid = (*Grid)(nil)

// Grid implements sheetdb.Grid for one workbook file
type Grid struct {
	config *Config
	mu     sync.Mutex
}

// New creates a new Excel grid with the given configuration
func New(config *Config) (*Grid, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	configCopy := *config
	return &Grid{config: &configCopy}, nil
}

// FilePath returns the workbook path
func (g *Grid) FilePath() string { return g.config.FilePath }

// workbook is an open file. A placeholder workbook has no tables yet; its
// only sheet is the default one excelize creates.
type workbook struct {
	f           *excelize.File
	placeholder bool
}

// open opens the workbook. A missing file yields a placeholder when create
// is set and nil otherwise.
func (g *Grid) open(ctx context.Context, create bool) (*workbook, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(g.config.FilePath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidFileFormat, g.config.FilePath, err)
		}
		if !create {
			return nil, nil
		}
		return &workbook{f: excelize.NewFile(), placeholder: true}, nil
	}
	return &workbook{f: f}, nil
}

// save writes the workbook back, or removes the file when no table is left
func (g *Grid) save(wb *workbook) error {
	if wb.placeholder {
		if err := os.Remove(g.config.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove Excel file: %w", err)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(g.config.FilePath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := wb.f.SaveAs(g.config.FilePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

func (wb *workbook) close() {
	if wb != nil {
		_ = wb.f.Close()
	}
}

func (wb *workbook) has(table string) bool {
	if wb == nil || wb.placeholder {
		return false
	}
	// GetSheetIndex ignores case; table names are exact
	return slices.Contains(wb.f.GetSheetList(), table)
}

func (wb *workbook) sheetID(table string) int64 {
	for id, name := range wb.f.GetSheetMap() {
		if name == table {
			return int64(id)
		}
	}
	return -1
}

func (wb *workbook) sheetByID(id int64) (string, bool) {
	if wb.placeholder {
		return "", false
	}
	name, ok := wb.f.GetSheetMap()[int(id)]
	return name, ok
}

// cells reads table as typed cells, header first
func (wb *workbook) cells(table string) ([][]sheetdb.Cell, error) {
	rows, err := wb.f.GetRows(table, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}

	grid := make([][]sheetdb.Cell, len(rows))
	for r, row := range rows {
		grid[r] = make([]sheetdb.Cell, len(row))
		for c, raw := range row {
			if raw == "" {
				continue
			}
			name, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			typ, err := wb.f.GetCellType(table, name)
			if err != nil {
				return nil, fmt.Errorf("failed to get type of %s: %w", name, err)
			}
			grid[r][c] = toCell(typ, raw)
		}
	}
	return grid, nil
}

// toCell interprets a raw cell value according to its stored type
func toCell(typ excelize.CellType, raw string) sheetdb.Cell {
	switch typ {
	case excelize.CellTypeBool:
		b := raw == "1" || strings.EqualFold(raw, "true")
		return sheetdb.Cell{Bool: &b}
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return sheetdb.Cell{Number: &n}
		}
	}
	return sheetdb.Cell{String: &raw}
}

// setValue writes v into cell; absent clears it
func (wb *workbook) setValue(table, cell string, v sheetdb.Value) error {
	switch v.Kind() {
	case sheetdb.KindBool:
		b, _ := v.AsBool()
		return wb.f.SetCellBool(table, cell, b)
	case sheetdb.KindNumber:
		n, _ := v.AsNumber()
		return wb.f.SetCellFloat(table, cell, n, -1, 64)
	case sheetdb.KindString:
		s, _ := v.AsString()
		return wb.f.SetCellStr(table, cell, s)
	default:
		return wb.f.SetCellValue(table, cell, nil)
	}
}

// setRow writes values starting at 0-based (row, col)
func (wb *workbook) setRow(table string, row, col int, values []sheetdb.Value) error {
	for i, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+i+1, row+1)
		if err != nil {
			return err
		}
		if err := wb.setValue(table, cell, v); err != nil {
			return fmt.Errorf("failed to write %s: %w", cell, err)
		}
	}
	return nil
}

func notFound(table string) error {
	return fmt.Errorf("%w: %s", sheetdb.ErrTableNotFound, table)
}

// GetGrid implements sheetdb.Grid
func (g *Grid) GetGrid(ctx context.Context, table string) ([][]sheetdb.Cell, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, false)
	if err != nil {
		return nil, err
	}
	defer wb.close()
	if !wb.has(table) {
		return nil, notFound(table)
	}
	return wb.cells(table)
}

// GetValueRange implements sheetdb.Grid. Cells render as Value.String does.
func (g *Grid) GetValueRange(ctx context.Context, rng sheetdb.Range) ([][]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, false)
	if err != nil {
		return nil, err
	}
	defer wb.close()
	if !wb.has(rng.Table) {
		return nil, notFound(rng.Table)
	}

	grid, err := wb.cells(rng.Table)
	if err != nil {
		return nil, err
	}

	firstRow, lastRow := bounds(rng.StartRow, rng.EndRow, len(grid))
	values := [][]string{}
	for _, row := range grid[firstRow:lastRow] {
		firstCol, lastCol := bounds(rng.StartCol, rng.EndCol, len(row))
		out := []string{}
		for _, c := range row[firstCol:lastCol] {
			out = append(out, c.Value().String())
		}
		for len(out) > 0 && out[len(out)-1] == "" {
			out = out[:len(out)-1]
		}
		values = append(values, out)
	}
	for len(values) > 0 && len(values[len(values)-1]) == 0 {
		values = values[:len(values)-1]
	}
	return values, nil
}

// bounds converts a 1-based inclusive range (0 = open) to slice bounds
func bounds(start, end, n int) (int, int) {
	lo := 0
	if start > 0 {
		lo = start - 1
	}
	hi := n
	if end > 0 && end < n {
		hi = end
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// AppendValues implements sheetdb.Grid. Rows land after any occupied rows
// found from startRow on.
func (g *Grid) AppendValues(ctx context.Context, table string, startRow int, rows [][]sheetdb.Value) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, false)
	if err != nil {
		return err
	}
	defer wb.close()
	if !wb.has(table) {
		return notFound(table)
	}

	existing, err := wb.f.GetRows(table)
	if err != nil {
		return fmt.Errorf("failed to get rows: %w", err)
	}
	at := startRow
	for at < len(existing) && !emptyRow(existing[at]) {
		at++
	}

	for i, row := range rows {
		if err := wb.setRow(table, at+i, 0, row); err != nil {
			return err
		}
	}
	return g.save(wb)
}

func emptyRow(row []string) bool {
	for _, s := range row {
		if s != "" {
			return false
		}
	}
	return true
}

// BatchUpdateCells implements sheetdb.Grid
func (g *Grid) BatchUpdateCells(ctx context.Context, table string, sheetID int64, updates []sheetdb.CellUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, false)
	if err != nil {
		return err
	}
	defer wb.close()
	if !wb.has(table) {
		return notFound(table)
	}
	if id := wb.sheetID(table); id != sheetID {
		return fmt.Errorf("%w: %d is not %s (%d)", ErrUnknownSheetID, sheetID, table, id)
	}

	for _, u := range updates {
		if err := wb.setRow(table, u.Row, u.Col, u.Values); err != nil {
			return err
		}
	}
	return g.save(wb)
}

// BatchStructural implements sheetdb.Grid. The workbook is written once
// after every operation succeeded, so a failing batch changes nothing.
// Dropping the last table removes the file.
func (g *Grid) BatchStructural(ctx context.Context, ops []sheetdb.Operation) ([]sheetdb.TableProperties, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, true)
	if err != nil {
		return nil, err
	}
	defer wb.close()

	replies := make([]sheetdb.TableProperties, len(ops))
	for i, op := range ops {
		switch op.Type {
		case sheetdb.OpAddTable:
			props, err := wb.addTable(op)
			if err != nil {
				return nil, err
			}
			replies[i] = props

		case sheetdb.OpDeleteTable:
			name, ok := wb.sheetByID(op.SheetID)
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownSheetID, op.SheetID)
			}
			if wb.f.SheetCount == 1 {
				wb.close()
				wb.f, wb.placeholder = excelize.NewFile(), true
				continue
			}
			if err := wb.f.DeleteSheet(name); err != nil {
				return nil, fmt.Errorf("failed to delete sheet %s: %w", name, err)
			}

		case sheetdb.OpDeleteRows:
			name, ok := wb.sheetByID(op.SheetID)
			if !ok {
				return nil, fmt.Errorf("%w: %d", ErrUnknownSheetID, op.SheetID)
			}
			for range op.Count {
				if err := wb.f.RemoveRow(name, op.Offset+1); err != nil {
					return nil, fmt.Errorf("failed to remove row %d of %s: %w", op.Offset+1, name, err)
				}
			}

		default:
			return nil, fmt.Errorf("unknown operation type %d", op.Type)
		}
	}

	if err := g.save(wb); err != nil {
		return nil, err
	}
	return replies, nil
}

// addTable creates a sheet, reusing the default sheet of a new workbook
func (wb *workbook) addTable(op sheetdb.Operation) (sheetdb.TableProperties, error) {
	for _, name := range wb.f.GetSheetList() {
		switch {
		case name == op.Table:
			return sheetdb.TableProperties{}, fmt.Errorf("sheet %s already exists", op.Table)
		case strings.EqualFold(name, op.Table):
			return sheetdb.TableProperties{}, fmt.Errorf("%w: %s and %s", ErrSheetNameConflict, op.Table, name)
		}
	}

	if wb.placeholder {
		if err := wb.f.SetSheetName(wb.f.GetSheetName(0), op.Table); err != nil {
			return sheetdb.TableProperties{}, fmt.Errorf("failed to create sheet %s: %w", op.Table, err)
		}
		wb.placeholder = false
	} else if _, err := wb.f.NewSheet(op.Table); err != nil {
		return sheetdb.TableProperties{}, fmt.Errorf("failed to create sheet %s: %w", op.Table, err)
	}

	if op.FrozenRows > 0 || op.FrozenColumns > 0 {
		topLeft, err := excelize.CoordinatesToCellName(op.FrozenColumns+1, op.FrozenRows+1)
		if err != nil {
			return sheetdb.TableProperties{}, err
		}
		if err := wb.f.SetPanes(op.Table, &excelize.Panes{
			Freeze:      true,
			XSplit:      op.FrozenColumns,
			YSplit:      op.FrozenRows,
			TopLeftCell: topLeft,
			ActivePane:  "bottomRight",
		}); err != nil {
			return sheetdb.TableProperties{}, fmt.Errorf("failed to freeze panes of %s: %w", op.Table, err)
		}
	}

	return wb.properties(op.Table)
}

func (wb *workbook) properties(table string) (sheetdb.TableProperties, error) {
	idx, err := wb.f.GetSheetIndex(table)
	if err != nil {
		return sheetdb.TableProperties{}, err
	}
	props := sheetdb.TableProperties{
		ID:    wb.sheetID(table),
		Title: table,
		Index: idx,
	}

	rows, err := wb.f.GetRows(table)
	if err != nil {
		return sheetdb.TableProperties{}, fmt.Errorf("failed to get rows: %w", err)
	}
	props.RowCount = len(rows)
	for _, row := range rows {
		props.ColumnCount = max(props.ColumnCount, len(row))
	}

	panes, err := wb.f.GetPanes(table)
	if err == nil && panes.Freeze {
		props.FrozenRows = panes.YSplit
		props.FrozenColumns = panes.XSplit
	}
	return props, nil
}

// GetProperties implements sheetdb.Grid. A missing file has no tables.
func (g *Grid) GetProperties(ctx context.Context) (map[string]sheetdb.TableProperties, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	wb, err := g.open(ctx, false)
	if err != nil {
		return nil, err
	}
	props := make(map[string]sheetdb.TableProperties)
	if wb == nil {
		return props, nil
	}
	defer wb.close()

	for _, name := range wb.f.GetSheetList() {
		p, err := wb.properties(name)
		if err != nil {
			return nil, err
		}
		props[name] = p
	}
	return props, nil
}
