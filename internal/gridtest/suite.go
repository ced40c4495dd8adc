package gridtest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/ideamans/go-sheetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Opener returns a DB for one test. The DB may be shared between tests;
// every test works on its own table.
type Opener func(t *testing.T) sheetdb.DB

// Run exercises the behaviour every Grid backed DB must show
func Run(t *testing.T, open Opener) {
	tests := []struct {
		name string
		fn   func(t *testing.T, db sheetdb.DB, table string)
	}{
		{"RoundTrip", testRoundTrip},
		{"IdempotentUpsert", testIdempotentUpsert},
		{"SchemaGrowth", testSchemaGrowth},
		{"UpdateClearsFields", testUpdateClearsFields},
		{"DeleteUnderShift", testDeleteUnderShift},
		{"DeleteCount", testDeleteCount},
		{"DeleteByQuery", testDeleteByQuery},
		{"QueryCount", testQueryCount},
		{"StreamQuery", testStreamQuery},
		{"Tables", testTables},
		{"MissingTable", testMissingTable},
		{"ConcurrentSaves", testConcurrentSaves},
		{"LargeDataSet", testLargeDataSet},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := open(t)
			table := fmt.Sprintf("t%02d_%s", i, tt.name)
			t.Cleanup(func() {
				_ = db.DeleteTableIfExists(context.Background(), table)
			})
			tt.fn(t, db, table)
		})
	}
}

// Records builds records from plain maps
func Records(t *testing.T, rows ...map[string]interface{}) []sheetdb.Record {
	t.Helper()
	records := make([]sheetdb.Record, len(rows))
	for i, row := range rows {
		r, err := sheetdb.NewRecord(row)
		require.NoError(t, err)
		records[i] = r
	}
	return records
}

// Maps converts records to plain maps for comparison
func Maps(records []sheetdb.Record) []map[string]interface{} {
	out := make([]map[string]interface{}, len(records))
	for i, r := range records {
		out[i] = r.Map()
	}
	return out
}

func people(t *testing.T) []sheetdb.Record {
	return Records(t,
		map[string]interface{}{"id": "p1", "name": "Alice", "age": 31, "active": true},
		map[string]interface{}{"id": "p2", "name": "Bob", "age": 25, "active": false},
		map[string]interface{}{"id": "p3", "name": "Carol", "age": 42, "active": true},
		map[string]interface{}{"id": "p4", "name": "Dave", "age": 25.5, "active": false},
		map[string]interface{}{"id": "p5", "name": "Eve", "age": 19, "active": true, "note": "0042"},
	)
}

func testRoundTrip(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	batch := people(t)
	require.NoError(t, db.SaveBatch(ctx, table, batch))

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, Maps(batch), Maps(rows))
}

func testIdempotentUpsert(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	batch := people(t)
	require.NoError(t, db.SaveBatch(ctx, table, batch))
	require.NoError(t, db.SaveBatch(ctx, table, batch))

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, Maps(batch), Maps(rows))
}

func testSchemaGrowth(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, Records(t,
		map[string]interface{}{"id": "a", "x": 1},
		map[string]interface{}{"id": "b", "x": 2},
	)))

	schema, err := db.GetTableSchema(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x"}, fieldNames(schema))

	require.NoError(t, db.SaveBatch(ctx, table, Records(t,
		map[string]interface{}{"id": "a", "x": 1, "y": "new"},
	)))
	schema, err = db.GetTableSchema(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x", "y"}, fieldNames(schema))

	require.NoError(t, db.SaveBatch(ctx, table, Records(t,
		map[string]interface{}{"id": "a", "x": 3},
	)))
	schema, err = db.GetTableSchema(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "x", "y"}, fieldNames(schema))
	y, ok := schema.Field("y")
	require.True(t, ok)
	assert.Equal(t, sheetdb.FieldEmpty, y.Type)

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"id": "a", "x": float64(3)},
		{"id": "b", "x": float64(2)},
	}, Maps(rows))
}

func fieldNames(s *sheetdb.TableSchema) []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func testUpdateClearsFields(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, Records(t,
		map[string]interface{}{"id": "a", "name": "first", "note": "stale"},
	)))
	require.NoError(t, db.SaveBatch(ctx, table, Records(t,
		map[string]interface{}{"id": "a", "name": "second"},
		map[string]interface{}{"id": "b", "note": "fresh"},
	)))

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"id": "a", "name": "second"},
		{"id": "b", "note": "fresh"},
	}, Maps(rows))
}

func testDeleteUnderShift(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	batch := people(t)
	require.NoError(t, db.SaveBatch(ctx, table, batch))

	n, err := db.DeleteByIDs(ctx, table, []string{"p2", "p4"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Equal(t, Maps([]sheetdb.Record{batch[0], batch[2], batch[4]}), Maps(rows))

	for _, want := range []sheetdb.Record{batch[0], batch[2], batch[4]} {
		got, err := db.GetByIDs(ctx, table, []string{want.ID("id")})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, want.Map(), got[0].Map())
	}
}

func testDeleteCount(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, people(t)))

	n, err := db.DeleteByIDs(ctx, table, []string{"p1", "x1", "p3", "p3", "x2", "x3"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = db.DeleteByIDs(ctx, table, []string{"p1", "missing"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := db.RunQueryCount(ctx, sheetdb.NewQuery(table))
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func testDeleteByQuery(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, people(t)))

	n, err := db.DeleteByQuery(ctx, sheetdb.NewQuery(table).Where("active", "==", true))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID("id")
	}
	assert.Equal(t, []string{"p2", "p4"}, ids)
}

func testQueryCount(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, people(t)))

	queries := []sheetdb.Query{
		sheetdb.NewQuery(table),
		sheetdb.NewQuery(table).Where("age", ">=", 25),
		sheetdb.NewQuery(table).Where("age", "<", 30).OrderBy("name", true).WithLimit(2),
		sheetdb.NewQuery(table).Where("name", "in", []interface{}{"Alice", "Eve", "Zed"}),
		sheetdb.NewQuery(table).WithOffset(4),
		sheetdb.NewQuery(table).Where("note", "==", nil),
	}
	for _, q := range queries {
		rows, err := db.RunQuery(ctx, q)
		require.NoError(t, err)
		count, err := db.RunQueryCount(ctx, q)
		require.NoError(t, err)
		assert.Equal(t, len(rows), count, "query %+v", q)
	}

	rows, err := db.RunQuery(ctx, sheetdb.NewQuery(table).Where("age", "between", []interface{}{20, 35}).OrderBy("age", false).Select("id"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"id": "p2"}, {"id": "p4"}, {"id": "p1"}}, Maps(rows))
}

func testStreamQuery(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.SaveBatch(ctx, table, people(t)))

	q := sheetdb.NewQuery(table).OrderBy("age", true)
	want, err := db.RunQuery(ctx, q)
	require.NoError(t, err)

	stream := db.StreamQuery(ctx, q)
	defer stream.Close()
	var got []sheetdb.Record
	for stream.Next() {
		got = append(got, stream.Record())
	}
	require.NoError(t, stream.Err())
	assert.Equal(t, Maps(want), Maps(got))
	assert.False(t, stream.Next())
}

func testTables(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	require.NoError(t, db.CreateTable(ctx, table))
	require.NoError(t, db.CreateTable(ctx, table))

	tables, err := db.GetTables(ctx)
	require.NoError(t, err)
	assert.Contains(t, tables, table)

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Empty(t, rows)

	require.NoError(t, db.DeleteTableIfExists(ctx, table))
	require.NoError(t, db.DeleteTableIfExists(ctx, table))

	tables, err = db.GetTables(ctx)
	require.NoError(t, err)
	assert.NotContains(t, tables, table)
}

func testMissingTable(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = db.GetByIDs(ctx, table, []string{"a"})
	require.NoError(t, err)
	assert.Empty(t, rows)

	n, err := db.DeleteByIDs(ctx, table, []string{"a"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	count, err := db.RunQueryCount(ctx, sheetdb.NewQuery(table))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

// testConcurrentSaves writes from several goroutines through one handle.
// Every goroutine adds its own column, so header growth races too.
func testConcurrentSaves(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	const workers, perWorker = 5, 4

	batches := make([][]sheetdb.Record, workers)
	for w := range batches {
		rows := make([]map[string]interface{}, perWorker)
		for j := range rows {
			rows[j] = map[string]interface{}{
				"id":                     fmt.Sprintf("w%d_%d", w, j),
				"worker":                 w,
				fmt.Sprintf("col_%d", w): fmt.Sprintf("routine_%d_op_%d", w, j),
			}
		}
		batches[w] = Records(t, rows...)
	}

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w, batch := range batches {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := db.SaveBatch(ctx, table, batch); err != nil {
				errs <- fmt.Errorf("worker %d: %w", w, err)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	rows, err := db.GetAllRows(ctx, table)
	require.NoError(t, err)
	require.Len(t, rows, workers*perWorker)

	seen := make(map[string]bool)
	for _, r := range rows {
		id := r.ID("id")
		assert.False(t, seen[id], "duplicate row %s", id)
		seen[id] = true

		w := r.GetAsInt64("worker", -1)
		assert.Equal(t, fmt.Sprintf("routine_%d_op_%s", w, id[len(id)-1:]), r.GetAsString(fmt.Sprintf("col_%d", w), ""))
	}
}

func testLargeDataSet(t *testing.T, db sheetdb.DB, table string) {
	ctx := context.Background()
	const n = 200
	departments := []string{"Engineering", "Sales", "Marketing", "HR", "Finance"}

	rows := make([]map[string]interface{}, n)
	for i := range rows {
		rows[i] = map[string]interface{}{
			"id":         fmt.Sprintf("e%03d", i+1),
			"name":       fmt.Sprintf("Employee_%d", i+1),
			"age":        25 + (i+1)%40,
			"salary":     50000.0 + float64((i+1)*100),
			"department": departments[(i+1)%len(departments)],
			"active":     i%3 != 0,
		}
	}
	require.NoError(t, db.SaveBatch(ctx, table, Records(t, rows...)))

	count, err := db.RunQueryCount(ctx, sheetdb.NewQuery(table))
	require.NoError(t, err)
	assert.Equal(t, n, count)

	count, err = db.RunQueryCount(ctx, sheetdb.NewQuery(table).Where("department", "==", "Engineering"))
	require.NoError(t, err)
	assert.Equal(t, n/len(departments), count)

	page, err := db.RunQuery(ctx, sheetdb.NewQuery(table).
		Where("salary", "between", []interface{}{55000.0, 65000.0}).
		OrderBy("salary", true).
		WithLimit(3).
		Select("id"))
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"id": "e150"}, {"id": "e149"}, {"id": "e148"}}, Maps(page))

	ids := make([]string, 0, n/2)
	for i := 2; i <= n; i += 2 {
		ids = append(ids, fmt.Sprintf("e%03d", i))
	}
	deleted, err := db.DeleteByIDs(ctx, table, ids)
	require.NoError(t, err)
	assert.Equal(t, n/2, deleted)

	left, err := db.GetByIDs(ctx, table, []string{"e001", "e002", "e199", "e200"})
	require.NoError(t, err)
	require.Len(t, left, 2)
	assert.Equal(t, []string{"e001", "e199"}, []string{left[0].ID("id"), left[1].ID("id")})
}
