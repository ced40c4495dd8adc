// Package gridtest provides an in-memory sheetdb.Grid and a conformance
// suite that every Grid backed DB must pass.
package gridtest

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/ideamans/go-sheetdb"
)

// Call records one Grid method invocation
type Call struct {
	Method string
	Table  string
}

// Memory is an in-process Grid. Like the Sheets API it omits trailing empty
// rows and cells from value ranges, and deleting a row shifts the rows below
// it up.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*memTable
	nextID int64
	calls  []Call
	fail   map[string]error
}

type memTable struct {
	id    int64
	title string
	index int
	rows  [][]sheetdb.Value
}

// NewMemory returns an empty grid
func NewMemory() *Memory {
	return &Memory{
		tables: make(map[string]*memTable),
		fail:   make(map[string]error),
		nextID: 1,
	}
}

// FailOn makes every later call of method return err. A nil err clears it.
func (m *Memory) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.fail, method)
		return
	}
	m.fail[method] = err
}

// Calls returns the calls made so far
func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.calls)
}

// Mutations counts calls that change the grid
func (m *Memory) Mutations() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for _, c := range m.calls {
		switch c.Method {
		case "AppendValues", "BatchUpdateCells", "BatchStructural":
			n++
		}
	}
	return n
}

// ResetCalls forgets recorded calls
func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = nil
}

// SetRows replaces the content of table, creating it when needed. rows[0]
// is the header.
func (m *Memory) SetRows(table string, rows [][]sheetdb.Value) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[table]
	if t == nil {
		t = m.addTable(table)
	}
	t.rows = make([][]sheetdb.Value, len(rows))
	for i, row := range rows {
		t.rows[i] = slices.Clone(row)
	}
}

// Rows returns a copy of the content of table, header first
func (m *Memory) Rows(table string) [][]sheetdb.Value {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[table]
	if t == nil {
		return nil
	}
	rows := make([][]sheetdb.Value, len(t.rows))
	for i, row := range t.rows {
		rows[i] = slices.Clone(row)
	}
	return rows
}

func (m *Memory) begin(ctx context.Context, method, table string) error {
	m.calls = append(m.calls, Call{Method: method, Table: table})
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.fail[method]
}

func (m *Memory) table(name string) (*memTable, error) {
	t := m.tables[name]
	if t == nil {
		return nil, fmt.Errorf("%w: %s", sheetdb.ErrTableNotFound, name)
	}
	return t, nil
}

func (m *Memory) addTable(title string) *memTable {
	t := &memTable{id: m.nextID, title: title, index: len(m.tables)}
	m.nextID++
	m.tables[title] = t
	return t
}

// GetGrid implements sheetdb.Grid
func (m *Memory) GetGrid(ctx context.Context, table string) ([][]sheetdb.Cell, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, "GetGrid", table); err != nil {
		return nil, err
	}
	t, err := m.table(table)
	if err != nil {
		return nil, err
	}

	grid := make([][]sheetdb.Cell, len(t.rows))
	for i, row := range t.rows {
		grid[i] = make([]sheetdb.Cell, len(row))
		for j, v := range row {
			grid[i][j] = ToCell(v)
		}
	}
	return grid, nil
}

// GetValueRange implements sheetdb.Grid
func (m *Memory) GetValueRange(ctx context.Context, rng sheetdb.Range) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, "GetValueRange", rng.Table); err != nil {
		return nil, err
	}
	t, err := m.table(rng.Table)
	if err != nil {
		return nil, err
	}

	firstRow, lastRow := bounds(rng.StartRow, rng.EndRow, len(t.rows))
	values := [][]string{}
	for r := firstRow; r < lastRow; r++ {
		row := t.rows[r]
		firstCol, lastCol := bounds(rng.StartCol, rng.EndCol, len(row))
		out := []string{}
		for c := firstCol; c < lastCol; c++ {
			out = append(out, row[c].String())
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

// AppendValues implements sheetdb.Grid. Like the Sheets API it writes after
// any rows that are already occupied at startRow.
func (m *Memory) AppendValues(ctx context.Context, table string, startRow int, rows [][]sheetdb.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, "AppendValues", table); err != nil {
		return err
	}
	t, err := m.table(table)
	if err != nil {
		return err
	}

	at := startRow
	for at < len(t.rows) && !emptyRow(t.rows[at]) {
		at++
	}
	for i, row := range rows {
		t.setRow(at+i, 0, row)
	}
	return nil
}

// BatchUpdateCells implements sheetdb.Grid
func (m *Memory) BatchUpdateCells(ctx context.Context, table string, sheetID int64, updates []sheetdb.CellUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, "BatchUpdateCells", table); err != nil {
		return err
	}
	t, err := m.table(table)
	if err != nil {
		return err
	}
	if t.id != sheetID {
		return fmt.Errorf("sheet id %d does not match table %s (%d)", sheetID, table, t.id)
	}

	for _, u := range updates {
		t.setRow(u.Row, u.Col, u.Values)
	}
	return nil
}

// BatchStructural implements sheetdb.Grid. Operations are validated before
// any of them is applied.
func (m *Memory) BatchStructural(ctx context.Context, ops []sheetdb.Operation) ([]sheetdb.TableProperties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	table := ""
	if len(ops) > 0 {
		table = ops[0].Table
	}
	if err := m.begin(ctx, "BatchStructural", table); err != nil {
		return nil, err
	}

	for _, op := range ops {
		switch op.Type {
		case sheetdb.OpAddTable:
			if _, exists := m.tables[op.Table]; exists {
				return nil, fmt.Errorf("table %s already exists", op.Table)
			}
		case sheetdb.OpDeleteTable, sheetdb.OpDeleteRows:
			if m.byID(op.SheetID) == nil {
				return nil, fmt.Errorf("no sheet with id %d", op.SheetID)
			}
		default:
			return nil, fmt.Errorf("unknown operation %d", op.Type)
		}
	}

	replies := make([]sheetdb.TableProperties, len(ops))
	for i, op := range ops {
		switch op.Type {
		case sheetdb.OpAddTable:
			replies[i] = m.addTable(op.Table).properties()
		case sheetdb.OpDeleteTable:
			t := m.byID(op.SheetID)
			delete(m.tables, t.title)
			for _, other := range m.tables {
				if other.index > t.index {
					other.index--
				}
			}
		case sheetdb.OpDeleteRows:
			t := m.byID(op.SheetID)
			if op.Offset < len(t.rows) {
				end := min(op.Offset+op.Count, len(t.rows))
				t.rows = slices.Delete(t.rows, op.Offset, end)
			}
		}
	}
	return replies, nil
}

// GetProperties implements sheetdb.Grid
func (m *Memory) GetProperties(ctx context.Context) (map[string]sheetdb.TableProperties, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.begin(ctx, "GetProperties", ""); err != nil {
		return nil, err
	}

	props := make(map[string]sheetdb.TableProperties, len(m.tables))
	for title, t := range m.tables {
		props[title] = t.properties()
	}
	return props, nil
}

func (m *Memory) byID(id int64) *memTable {
	for _, t := range m.tables {
		if t.id == id {
			return t
		}
	}
	return nil
}

func (t *memTable) properties() sheetdb.TableProperties {
	cols := 0
	for _, row := range t.rows {
		cols = max(cols, len(row))
	}
	return sheetdb.TableProperties{
		ID:          t.id,
		Title:       t.title,
		Index:       t.index,
		RowCount:    len(t.rows),
		ColumnCount: cols,
	}
}

func (t *memTable) setRow(row, col int, values []sheetdb.Value) {
	for len(t.rows) <= row {
		t.rows = append(t.rows, nil)
	}
	for len(t.rows[row]) < col+len(values) {
		t.rows[row] = append(t.rows[row], sheetdb.Null())
	}
	copy(t.rows[row][col:], values)
}

func emptyRow(row []sheetdb.Value) bool {
	for _, v := range row {
		if v.String() != "" {
			return false
		}
	}
	return true
}

// ToCell converts a value into the typed cell a grid would report
func ToCell(v sheetdb.Value) sheetdb.Cell {
	switch v.Kind() {
	case sheetdb.KindBool:
		b, _ := v.AsBool()
		return sheetdb.Cell{Bool: &b}
	case sheetdb.KindNumber:
		n, _ := v.AsNumber()
		return sheetdb.Cell{Number: &n}
	case sheetdb.KindString:
		s, _ := v.AsString()
		return sheetdb.Cell{String: &s}
	default:
		return sheetdb.Cell{}
	}
}
