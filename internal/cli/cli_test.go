package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ideamans/go-sheetdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const usersYAML = `
- {id: u1, name: Alice, age: 31, active: true}
- {id: u2, name: Bob, age: 25, active: false}
- {id: u3, name: Carol, age: 42, active: true, code: '0042'}
`

// run executes the command tree against an Excel workbook
func run(t *testing.T, file, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--backend", "excel", "--file", file}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	return v
}

func TestCLI_Workflow(t *testing.T) {
	file := filepath.Join(t.TempDir(), "db.xlsx")

	out, err := run(t, file, "", "ping")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, err = run(t, file, usersYAML, "save", "users")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"saved": 3}, decode[map[string]int](t, out))

	out, err = run(t, file, "", "tables")
	require.NoError(t, err)
	assert.Equal(t, []string{"users"}, decode[[]string](t, out))

	out, err = run(t, file, "", "get", "users", "u3", "nope", "u1")
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"id": "u3", "name": "Carol", "age": float64(42), "active": true, "code": "0042"},
		{"id": "u1", "name": "Alice", "age": float64(31), "active": true},
	}, decode[[]map[string]interface{}](t, out))

	out, err = run(t, file, "", "list", "users", "--where", "age>=30", "--order", "-age", "--select", "id")
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"id": "u3"}, {"id": "u1"}}, decode[[]map[string]interface{}](t, out))

	out, err = run(t, file, "", "list", "users", "--where", "active==true", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out)

	out, err = run(t, file, "", "list", "users", "-o", "jsonl", "--where", "name in [Alice, Bob]")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "u1", decode[map[string]interface{}](t, lines[0])["id"])

	out, err = run(t, file, "", "schema", "users", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "table: users")
	assert.Contains(t, out, "name: age")

	out, err = run(t, file, "", "delete", "users", "--where", "active==false")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, out))

	out, err = run(t, file, "", "delete", "users", "u1", "u9")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"deleted": 1}, decode[map[string]int](t, out))

	out, err = run(t, file, "", "list", "users", "--select", "id")
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{"id": "u3"}}, decode[[]map[string]interface{}](t, out))

	_, err = run(t, file, "", "drop-table", "users")
	require.NoError(t, err)
	out, err = run(t, file, "", "tables")
	require.NoError(t, err)
	assert.Equal(t, []string{}, decode[[]string](t, out))
}

func TestCLI_SaveFromFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	file := filepath.Join(dir, "db.xlsx")
	input := filepath.Join(dir, "records.json")
	require.NoError(t, os.WriteFile(input, []byte(`{"id": "a", "n": 1}`), 0644))
	other := filepath.Join(dir, "more.yaml")
	require.NoError(t, os.WriteFile(other, []byte("- {id: b, n: 2}\n"), 0644))

	_, err := run(t, file, "", "create-table", "t")
	require.NoError(t, err)
	_, err = run(t, file, "", "save", "t", "--input", input)
	require.NoError(t, err)
	_, err = run(t, file, "", "save", "t", "-i", other)
	require.NoError(t, err)

	out, err := run(t, file, "", "get", "t", "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{
		{"id": "a", "n": float64(1)},
		{"id": "b", "n": float64(2)},
	}, decode[[]map[string]interface{}](t, out))

	// --file still names the workbook
	_, err = os.Stat(filepath.Join(dir, "sheetdb.xlsx"))
	assert.True(t, os.IsNotExist(err), "no workbook at the default path")

	_, err = run(t, file, "", "save", "t", "--input", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestCLI_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "from-config.xlsx")
	config := filepath.Join(dir, "sheetdb.yaml")
	require.NoError(t, os.WriteFile(config, []byte("backend: excel\nfile: "+file+"\nid_field: key\nassign_ids: true\n"), 0644))

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("[{key: k1, v: 1}, {v: 2}]"))
	cmd.SetArgs([]string{"--config", config, "save", "t"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	_, err := os.Stat(file)
	require.NoError(t, err)

	out2, err := run(t, file, "", "--id-field", "key", "list", "t", "--count")
	require.NoError(t, err)
	assert.Equal(t, "2\n", out2)
}

func TestCLI_EnvOverridesDefault(t *testing.T) {
	file := filepath.Join(t.TempDir(), "db.xlsx")
	t.Setenv("SHEETDB_DUPLICATE_IDS", "reject")

	_, err := run(t, file, "[{id: a}, {id: a}]", "save", "t")
	assert.ErrorIs(t, err, sheetdb.ErrDuplicateID)
}

func TestCLI_Errors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "db.xlsx")

	tests := []struct {
		name string
		args []string
	}{
		{"unknown backend", []string{"--backend", "csv", "tables"}},
		{"unknown output", []string{"-o", "xml", "tables"}},
		{"bad log level", []string{"--log-level", "loud", "tables"}},
		{"bad duplicate policy", []string{"--duplicate-ids", "maybe", "tables"}},
		{"missing operator", []string{"list", "t", "--where", "age"}},
		{"bad between", []string{"list", "t", "--where", "age between 3"}},
		{"delete without target", []string{"delete", "t"}},
		{"delete with both", []string{"delete", "t", "a", "--where", "x==1"}},
		{"missing id", []string{"save", "t"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, file, "{name: nobody}", tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestParseWhere(t *testing.T) {
	tests := []struct {
		expr string
		want sheetdb.Condition
	}{
		{"age>=20", sheetdb.Condition{Column: "age", Operator: ">=", Value: 20}},
		{"age > 2.5", sheetdb.Condition{Column: "age", Operator: ">", Value: 2.5}},
		{"name==Alice", sheetdb.Condition{Column: "name", Operator: "==", Value: "Alice"}},
		{"code=='0042'", sheetdb.Condition{Column: "code", Operator: "==", Value: "0042"}},
		{"active!=true", sheetdb.Condition{Column: "active", Operator: "!=", Value: true}},
		{"note==sign in here", sheetdb.Condition{Column: "note", Operator: "==", Value: "sign in here"}},
		{"tag in [a, b]", sheetdb.Condition{Column: "tag", Operator: "in", Value: []interface{}{"a", "b"}}},
		{"age between [20, 35]", sheetdb.Condition{Column: "age", Operator: "between", Value: []interface{}{20, 35}}},
		{"note==", sheetdb.Condition{Column: "note", Operator: "=="}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := parseWhere(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, expr := range []string{"age", "==1", "x==[1"} {
		_, err := parseWhere(expr)
		assert.ErrorIs(t, err, sheetdb.ErrInvalidQuery, expr)
	}
}

func TestParseOrder(t *testing.T) {
	assert.Equal(t, sheetdb.Order{Field: "age"}, parseOrder("age"))
	assert.Equal(t, sheetdb.Order{Field: "age", Desc: true}, parseOrder("-age"))
}

func TestReadRecords(t *testing.T) {
	records, err := readRecords(strings.NewReader(`{"id": "a", "when": "2024-01-02"}`))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "a", records[0].ID("id"))

	records, err = readRecords(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = readRecords(strings.NewReader("- 1\n- 2\n"))
	assert.Error(t, err)

	_, err = readRecords(strings.NewReader("{id: a, nested: {x: 1}}"))
	assert.ErrorIs(t, err, sheetdb.ErrUnsupportedValue)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "debug")
	require.NoError(t, err)
	logger.Debug("saved batch", "table", "users")
	assert.Contains(t, buf.String(), "saved batch")
	assert.NotContains(t, buf.String(), "\x1b[", "no colours off a terminal")

	_, err = newLogger(&buf, "chatty")
	assert.Error(t, err)
}
