// Package googlesheets implements sheetdb.Grid on the Google Sheets API v4.
// Each sheet of one spreadsheet is a table.
package googlesheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/ideamans/go-sheetdb"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ sheetdb.Grid = (*Grid)(nil)

// Grid implements sheetdb.Grid for one spreadsheet. The API client is
// created on first use and shared by every later call.
type Grid struct {
	spreadsheetID string
	opts          []option.ClientOption
	baseCtx       context.Context
	limiter       *rate.Limiter

	once    sync.Once
	service *sheets.Service
	err     error
}

// NewGrid creates a grid for config.SpreadsheetID. ctx is used to create the
// API client later; its cancellation is ignored.
func NewGrid(ctx context.Context, config Config, opts ...option.ClientOption) (*Grid, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	limit := rate.Inf
	if config.RequestsPerSecond > 0 {
		limit = rate.Limit(config.RequestsPerSecond)
	}

	return &Grid{
		spreadsheetID: config.SpreadsheetID,
		opts:          opts,
		baseCtx:       context.WithoutCancel(ctx),
		limiter:       rate.NewLimiter(limit, max(config.Burst, 1)),
	}, nil
}

// SpreadsheetID returns the id of the backing spreadsheet
func (g *Grid) SpreadsheetID() string { return g.spreadsheetID }

// client returns the API client once the caller's turn has come
func (g *Grid) client(ctx context.Context) (*sheets.Service, error) {
	g.once.Do(func() {
		g.service, g.err = sheets.NewService(g.baseCtx, g.opts...)
		if g.err != nil {
			g.err = fmt.Errorf("failed to create sheets service: %w", g.err)
		}
	})
	if g.err != nil {
		return nil, g.err
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return g.service, nil
}

// translateError maps an unknown sheet in a range to ErrTableNotFound
func translateError(err error, table string) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest &&
		strings.Contains(gerr.Message, "Unable to parse range") {
		return fmt.Errorf("%w: %s", sheetdb.ErrTableNotFound, table)
	}
	return err
}

// GetGrid reads the effective value of every cell of table
func (g *Grid) GetGrid(ctx context.Context, table string) ([][]sheetdb.Cell, error) {
	srv, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Get(g.spreadsheetID).
		Ranges(sheetdb.Range{Table: table}.A1()).
		IncludeGridData(true).
		Fields("sheets(properties(sheetId,title),data(rowData(values(effectiveValue))))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateError(err, table)
	}
	if len(resp.Sheets) == 0 {
		return nil, fmt.Errorf("%w: %s", sheetdb.ErrTableNotFound, table)
	}

	var rows [][]sheetdb.Cell
	for _, data := range resp.Sheets[0].Data {
		for _, rd := range data.RowData {
			row := make([]sheetdb.Cell, len(rd.Values))
			for i, cd := range rd.Values {
				row[i] = toCell(cd.EffectiveValue)
			}
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// GetValueRange reads rng unformatted and renders each cell as
// sheetdb.Value.String does, so ids compare the same on every grid
func (g *Grid) GetValueRange(ctx context.Context, rng sheetdb.Range) ([][]string, error) {
	srv, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Values.Get(g.spreadsheetID, rng.A1()).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateError(err, rng.Table)
	}

	values := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		values[i] = make([]string, len(row))
		for j, v := range row {
			values[i][j] = renderValue(v)
		}
	}
	return values, nil
}

// AppendValues appends rows after the data found from startRow on
func (g *Grid) AppendValues(ctx context.Context, table string, startRow int, rows [][]sheetdb.Value) error {
	srv, err := g.client(ctx)
	if err != nil {
		return err
	}

	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, v := range row {
			values[i][j] = rawValue(v)
		}
	}

	anchor := sheetdb.Range{Table: table, StartRow: startRow + 1, StartCol: 1}
	_, err = srv.Spreadsheets.Values.Append(g.spreadsheetID, anchor.A1(), &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		InsertDataOption("OVERWRITE").
		Context(ctx).
		Do()
	return translateError(err, table)
}

// BatchUpdateCells writes every update in one batchUpdate request
func (g *Grid) BatchUpdateCells(ctx context.Context, table string, sheetID int64, updates []sheetdb.CellUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	srv, err := g.client(ctx)
	if err != nil {
		return err
	}

	requests := make([]*sheets.Request, len(updates))
	for i, u := range updates {
		cells := make([]*sheets.CellData, len(u.Values))
		for j, v := range u.Values {
			cells[j] = toCellData(v)
		}
		requests[i] = &sheets.Request{
			UpdateCells: &sheets.UpdateCellsRequest{
				Start: &sheets.GridCoordinate{
					SheetId:         sheetID,
					RowIndex:        int64(u.Row),
					ColumnIndex:     int64(u.Col),
					ForceSendFields: []string{"SheetId", "RowIndex", "ColumnIndex"},
				},
				Rows:   []*sheets.RowData{{Values: cells}},
				Fields: "userEnteredValue",
			},
		}
	}

	_, err = srv.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	return translateError(err, table)
}

// BatchStructural sends ops as one batchUpdate request; the API applies
// them in order and atomically
func (g *Grid) BatchStructural(ctx context.Context, ops []sheetdb.Operation) ([]sheetdb.TableProperties, error) {
	if len(ops) == 0 {
		return nil, nil
	}
	srv, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	requests := make([]*sheets.Request, len(ops))
	for i, op := range ops {
		switch op.Type {
		case sheetdb.OpAddTable:
			requests[i] = &sheets.Request{AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{
					Title: op.Table,
					GridProperties: &sheets.GridProperties{
						FrozenRowCount:    int64(op.FrozenRows),
						FrozenColumnCount: int64(op.FrozenColumns),
					},
				},
			}}
		case sheetdb.OpDeleteTable:
			requests[i] = &sheets.Request{DeleteSheet: &sheets.DeleteSheetRequest{
				SheetId:         op.SheetID,
				ForceSendFields: []string{"SheetId"},
			}}
		case sheetdb.OpDeleteRows:
			requests[i] = &sheets.Request{DeleteDimension: &sheets.DeleteDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:         op.SheetID,
					Dimension:       "ROWS",
					StartIndex:      int64(op.Offset),
					EndIndex:        int64(op.Offset + op.Count),
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			}}
		default:
			return nil, fmt.Errorf("unknown operation type %d", op.Type)
		}
	}

	resp, err := srv.Spreadsheets.BatchUpdate(g.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).
		Context(ctx).
		Do()
	if err != nil {
		return nil, translateError(err, ops[0].Table)
	}

	replies := make([]sheetdb.TableProperties, len(ops))
	for i, reply := range resp.Replies {
		if i < len(replies) && reply != nil && reply.AddSheet != nil && reply.AddSheet.Properties != nil {
			replies[i] = toProperties(reply.AddSheet.Properties)
		}
	}
	return replies, nil
}

// GetProperties lists the sheets of the spreadsheet
func (g *Grid) GetProperties(ctx context.Context) (map[string]sheetdb.TableProperties, error) {
	srv, err := g.client(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := srv.Spreadsheets.Get(g.spreadsheetID).
		Fields("sheets(properties(sheetId,title,index,gridProperties))").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get spreadsheet %s: %w", g.spreadsheetID, err)
	}

	props := make(map[string]sheetdb.TableProperties, len(resp.Sheets))
	for _, s := range resp.Sheets {
		if s.Properties != nil {
			props[s.Properties.Title] = toProperties(s.Properties)
		}
	}
	return props, nil
}

func toProperties(p *sheets.SheetProperties) sheetdb.TableProperties {
	props := sheetdb.TableProperties{
		ID:    p.SheetId,
		Title: p.Title,
		Index: int(p.Index),
	}
	if gp := p.GridProperties; gp != nil {
		props.RowCount = int(gp.RowCount)
		props.ColumnCount = int(gp.ColumnCount)
		props.FrozenRows = int(gp.FrozenRowCount)
		props.FrozenColumns = int(gp.FrozenColumnCount)
	}
	return props
}

// toCell converts an effective value; errors and empty cells are absent
func toCell(v *sheets.ExtendedValue) sheetdb.Cell {
	if v == nil {
		return sheetdb.Cell{}
	}
	return sheetdb.Cell{
		Bool:   v.BoolValue,
		Number: v.NumberValue,
		String: v.StringValue,
	}
}

// toCellData converts a value to a userEnteredValue; absent clears the cell
func toCellData(v sheetdb.Value) *sheets.CellData {
	switch v.Kind() {
	case sheetdb.KindBool:
		b, _ := v.AsBool()
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{BoolValue: &b}}
	case sheetdb.KindNumber:
		n, _ := v.AsNumber()
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{NumberValue: &n}}
	case sheetdb.KindString:
		s, _ := v.AsString()
		return &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: &s}}
	default:
		return &sheets.CellData{}
	}
}

// rawValue converts a value for a RAW value range write
func rawValue(v sheetdb.Value) interface{} {
	if v.IsAbsent() {
		return ""
	}
	return v.Interface()
}

// renderValue renders an unformatted cell. JSON numbers arrive as float64.
func renderValue(v interface{}) string {
	val, err := sheetdb.FromAny(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return val.String()
}
