package sheetdb

import (
	"context"
	"strconv"
	"strings"
)

// Grid is the transport contract of a backing spreadsheet. Every method is
// one remote call. Row indices are 0-based grid indices: the header is row 0,
// so a data row's index equals its 1-based offset.
type Grid interface {
	// GetGrid returns every row of a table as typed cells, header first.
	// A missing table yields ErrTableNotFound.
	GetGrid(ctx context.Context, table string) ([][]Cell, error)

	// GetValueRange returns the formatted text of a range. Trailing empty
	// rows and cells may be omitted. A missing table yields ErrTableNotFound.
	GetValueRange(ctx context.Context, rng Range) ([][]string, error)

	// AppendValues writes rows starting at grid row startRow, column A.
	// Absent values are written as empty cells.
	AppendValues(ctx context.Context, table string, startRow int, rows [][]Value) error

	// BatchUpdateCells overwrites cell runs. Absent values clear the cell.
	BatchUpdateCells(ctx context.Context, table string, sheetID int64, updates []CellUpdate) error

	// BatchStructural applies operations in order as one request. The result
	// has one entry per operation; only OpAddTable entries are filled.
	BatchStructural(ctx context.Context, ops []Operation) ([]TableProperties, error)

	// GetProperties returns the properties of every table keyed by title
	GetProperties(ctx context.Context) (map[string]TableProperties, error)
}

// OperationType represents the type of a structural operation
type OperationType int

const (
	OpAddTable OperationType = iota
	OpDeleteTable
	OpDeleteRows
)

// Operation represents a single structural change
type Operation struct {
	Type    OperationType
	Table   string
	SheetID int64

	// OpAddTable
	FrozenRows    int
	FrozenColumns int

	// OpDeleteRows: Count rows starting at data offset Offset
	Offset int
	Count  int
}

// CellUpdate overwrites a horizontal run of cells starting at (Row, Col)
type CellUpdate struct {
	Row    int
	Col    int
	Values []Value
}

// TableProperties describes one table of the spreadsheet
type TableProperties struct {
	ID            int64
	Title         string
	Index         int
	RowCount      int
	ColumnCount   int
	FrozenRows    int
	FrozenColumns int
}

// Range addresses a block of a table in A1 terms. Rows and columns are
// 1-based; zero means unbounded on that side.
type Range struct {
	Table    string
	StartRow int
	EndRow   int
	StartCol int
	EndCol   int
}

// A1 renders the range in A1 notation:
//
//	Range{Table: "users"}                                      users
//	Range{Table: "users", StartRow: 1, EndRow: 1}              users!1:1
//	Range{Table: "users", StartRow: 2, StartCol: 1, EndCol: 1} users!A2:A
//	Range{Table: "users", StartRow: 5, StartCol: 1}            users!A5
func (r Range) A1() string {
	name := quoteTable(r.Table)
	switch {
	case r.StartCol == 0 && r.EndCol == 0:
		if r.StartRow == 0 && r.EndRow == 0 {
			return name
		}
		start := max(r.StartRow, 1)
		end := r.EndRow
		if end == 0 {
			end = start
		}
		return name + "!" + strconv.Itoa(start) + ":" + strconv.Itoa(end)
	case r.EndCol == 0 && r.EndRow == 0:
		return name + "!" + cellRef(r.StartCol, r.StartRow)
	default:
		endCol := r.EndCol
		if endCol == 0 {
			endCol = r.StartCol
		}
		return name + "!" + cellRef(max(r.StartCol, 1), r.StartRow) + ":" + cellRef(endCol, r.EndRow)
	}
}

func cellRef(col, row int) string {
	if row <= 0 {
		return columnName(col)
	}
	return columnName(col) + strconv.Itoa(row)
}

// quoteTable wraps a table name in single quotes unless it is a plain word
func quoteTable(name string) string {
	plain := name != ""
	for i, c := range name {
		isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || c == '_'
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && i > 0) {
			plain = false
			break
		}
	}
	if plain && !looksLikeCell(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// looksLikeCell reports names such as "AB12" that A1 parsing would read as a cell
func looksLikeCell(name string) bool {
	i := 0
	for i < len(name) && ((name[i] >= 'A' && name[i] <= 'Z') || (name[i] >= 'a' && name[i] <= 'z')) {
		i++
	}
	if i == 0 || i > 3 || i == len(name) {
		return false
	}
	for _, c := range name[i:] {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// columnName converts a column number to a column name (1 -> A, 26 -> Z, 27 -> AA)
func columnName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}
