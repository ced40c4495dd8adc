package sheetdb_test

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ideamans/go-sheetdb"
)

func TestRecord_MatchesQuery(t *testing.T) {
	tests := []struct {
		name   string
		record map[string]interface{}
		conds  []sheetdb.Condition
		want   bool
	}{
		{
			name:   "single == condition match",
			record: map[string]interface{}{"status": "active"},
			conds:  []sheetdb.Condition{{Column: "status", Operator: "==", Value: "active"}},
			want:   true,
		},
		{
			name:   "single == condition no match",
			record: map[string]interface{}{"status": "inactive"},
			conds:  []sheetdb.Condition{{Column: "status", Operator: "==", Value: "active"}},
			want:   false,
		},
		{
			name:   "!= condition",
			record: map[string]interface{}{"status": "inactive"},
			conds:  []sheetdb.Condition{{Column: "status", Operator: "!=", Value: "active"}},
			want:   true,
		},
		{
			name:   "== compares numbers numerically",
			record: map[string]interface{}{"age": 20.0},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "==", Value: int64(20)}},
			want:   true,
		},
		{
			name:   "== number against numeric text",
			record: map[string]interface{}{"age": 20},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "==", Value: "20"}},
			want:   true,
		},
		{
			name:   "== boolean",
			record: map[string]interface{}{"active": true},
			conds:  []sheetdb.Condition{{Column: "active", Operator: "==", Value: true}},
			want:   true,
		},
		{
			name:   "> condition with numbers",
			record: map[string]interface{}{"age": 25},
			conds:  []sheetdb.Condition{{Column: "age", Operator: ">", Value: 20}},
			want:   true,
		},
		{
			name:   ">= condition with equal values",
			record: map[string]interface{}{"age": 20},
			conds:  []sheetdb.Condition{{Column: "age", Operator: ">=", Value: 20}},
			want:   true,
		},
		{
			name:   "< condition",
			record: map[string]interface{}{"age": 15},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "<", Value: 20}},
			want:   true,
		},
		{
			name:   "<= condition",
			record: map[string]interface{}{"age": 20},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "<=", Value: 20}},
			want:   true,
		},
		{
			name:   "< compares strings lexically",
			record: map[string]interface{}{"name": "alice"},
			conds:  []sheetdb.Condition{{Column: "name", Operator: "<", Value: "bob"}},
			want:   true,
		},
		{
			name:   "ordering across kinds never matches",
			record: map[string]interface{}{"age": "25"},
			conds:  []sheetdb.Condition{{Column: "age", Operator: ">", Value: 20}},
			want:   false,
		},
		{
			name:   "in condition match",
			record: map[string]interface{}{"role": "admin"},
			conds:  []sheetdb.Condition{{Column: "role", Operator: "in", Value: []interface{}{"admin", "moderator", "user"}}},
			want:   true,
		},
		{
			name:   "in condition no match",
			record: map[string]interface{}{"role": "guest"},
			conds:  []sheetdb.Condition{{Column: "role", Operator: "in", Value: []interface{}{"admin", "moderator", "user"}}},
			want:   false,
		},
		{
			name:   "between condition match",
			record: map[string]interface{}{"age": 25},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "between", Value: [2]interface{}{20, 30}}},
			want:   true,
		},
		{
			name:   "between condition with slice",
			record: map[string]interface{}{"age": 30},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "between", Value: []interface{}{20, 30}}},
			want:   true,
		},
		{
			name:   "between condition no match",
			record: map[string]interface{}{"age": 35},
			conds:  []sheetdb.Condition{{Column: "age", Operator: "between", Value: [2]interface{}{20, 30}}},
			want:   false,
		},
		{
			name:   "multiple conditions AND",
			record: map[string]interface{}{"status": "active", "age": 25},
			conds: []sheetdb.Condition{
				{Column: "status", Operator: "==", Value: "active"},
				{Column: "age", Operator: ">", Value: 20},
			},
			want: true,
		},
		{
			name:   "multiple conditions one fails",
			record: map[string]interface{}{"status": "active", "age": 15},
			conds: []sheetdb.Condition{
				{Column: "status", Operator: "==", Value: "active"},
				{Column: "age", Operator: ">", Value: 20},
			},
			want: false,
		},
		{
			name:   "missing column treated as null",
			record: map[string]interface{}{},
			conds:  []sheetdb.Condition{{Column: "missing", Operator: "==", Value: nil}},
			want:   true,
		},
		{
			name:   "missing column is not empty string",
			record: map[string]interface{}{},
			conds:  []sheetdb.Condition{{Column: "missing", Operator: "==", Value: ""}},
			want:   false,
		},
		{
			name:   "invalid operator",
			record: map[string]interface{}{"status": "active"},
			conds:  []sheetdb.Condition{{Column: "status", Operator: "~", Value: "active"}},
			want:   false,
		},
		{
			name:   "empty conditions matches all",
			record: map[string]interface{}{"status": "active"},
			want:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := sheetdb.Query{Conditions: tt.conds}
			got := mustRecord(t, tt.record).MatchesQuery(q)
			if got != tt.want {
				t.Errorf("MatchesQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func ids(records []sheetdb.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID("id")
	}
	return out
}

func TestApplyQuery(t *testing.T) {
	records := []sheetdb.Record{
		mustRecord(t, map[string]interface{}{"id": "1", "status": "active", "age": 25}),
		mustRecord(t, map[string]interface{}{"id": "2", "status": "inactive", "age": 30}),
		mustRecord(t, map[string]interface{}{"id": "3", "status": "active", "age": 35}),
		mustRecord(t, map[string]interface{}{"id": "4", "status": "active", "age": 20}),
		mustRecord(t, map[string]interface{}{"id": "5", "status": "pending"}),
	}

	tests := []struct {
		name  string
		query sheetdb.Query
		want  []string
	}{
		{
			name:  "filter by status",
			query: sheetdb.NewQuery("t").Where("status", "==", "active"),
			want:  []string{"1", "3", "4"},
		},
		{
			name:  "filter by age range",
			query: sheetdb.NewQuery("t").Where("age", ">=", 25).Where("age", "<=", 30),
			want:  []string{"1", "2"},
		},
		{
			name:  "with limit",
			query: sheetdb.NewQuery("t").Where("status", "==", "active").WithLimit(2),
			want:  []string{"1", "3"},
		},
		{
			name:  "with offset",
			query: sheetdb.NewQuery("t").Where("status", "==", "active").WithOffset(1),
			want:  []string{"3", "4"},
		},
		{
			name:  "with limit and offset",
			query: sheetdb.NewQuery("t").WithOffset(1).WithLimit(2),
			want:  []string{"2", "3"},
		},
		{
			name:  "offset beyond results",
			query: sheetdb.NewQuery("t").WithOffset(10),
			want:  []string{},
		},
		{
			name:  "order ascending puts absent first",
			query: sheetdb.NewQuery("t").OrderBy("age", false),
			want:  []string{"5", "4", "1", "2", "3"},
		},
		{
			name:  "order by two keys",
			query: sheetdb.NewQuery("t").OrderBy("status", false).OrderBy("age", true),
			want:  []string{"3", "1", "4", "2", "5"},
		},
		{
			name:  "order then page",
			query: sheetdb.NewQuery("t").OrderBy("age", true).WithLimit(2),
			want:  []string{"3", "2"},
		},
		{
			name:  "no conditions",
			query: sheetdb.NewQuery("t"),
			want:  []string{"1", "2", "3", "4", "5"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(sheetdb.ApplyQuery(records, tt.query))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ApplyQuery() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyQuery_Projection(t *testing.T) {
	records := []sheetdb.Record{
		mustRecord(t, map[string]interface{}{"id": "1", "name": "a", "age": 1}),
	}

	got := sheetdb.ApplyQuery(records, sheetdb.NewQuery("t").Select("id", "name"))
	want := []map[string]interface{}{{"id": "1", "name": "a"}}
	if len(got) != 1 || !reflect.DeepEqual(got[0].Map(), want[0]) {
		t.Errorf("ApplyQuery() = %v, want %v", got, want)
	}
	if _, ok := records[0]["age"]; !ok {
		t.Error("projection modified the input record")
	}
}

func TestQuery_BuildersCopy(t *testing.T) {
	base := sheetdb.NewQuery("t").Where("a", "==", 1)
	q1 := base.Where("b", "==", 2)
	q2 := base.Where("c", "==", 3)

	if len(base.Conditions) != 1 {
		t.Errorf("base has %d conditions, want 1", len(base.Conditions))
	}
	if q1.Conditions[1].Column != "b" || q2.Conditions[1].Column != "c" {
		t.Errorf("derived queries share conditions: %v %v", q1.Conditions, q2.Conditions)
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		query   sheetdb.Query
		wantErr bool
	}{
		{"valid query", sheetdb.NewQuery("t").Where("status", "==", "active").OrderBy("age", true).WithLimit(10), false},
		{"invalid operator", sheetdb.NewQuery("t").Where("status", "===", "active"), true},
		{"in operator with non-slice value", sheetdb.NewQuery("t").Where("role", "in", "admin"), true},
		{"between operator with invalid value", sheetdb.NewQuery("t").Where("age", "between", 20), true},
		{"between operator with wrong slice length", sheetdb.NewQuery("t").Where("age", "between", []interface{}{20, 30, 40}), true},
		{"empty column name", sheetdb.NewQuery("t").Where("", "==", "x"), true},
		{"empty order field", sheetdb.NewQuery("t").OrderBy("", false), true},
		{"negative limit", sheetdb.NewQuery("t").WithLimit(-1), true},
		{"negative offset", sheetdb.NewQuery("t").WithOffset(-1), true},
		{"valid in operator", sheetdb.NewQuery("t").Where("role", "in", []interface{}{"admin", "user"}), false},
		{"valid between operator with array", sheetdb.NewQuery("t").Where("age", "between", [2]interface{}{20, 30}), false},
		{"valid between operator with slice", sheetdb.NewQuery("t").Where("age", "between", []interface{}{20, 30}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sheetdb.ValidateQuery(tt.query)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, sheetdb.ErrInvalidQuery) {
				t.Errorf("ValidateQuery() error = %v, want ErrInvalidQuery", err)
			}
		})
	}
}

func TestMemoryEngine(t *testing.T) {
	records := []sheetdb.Record{
		mustRecord(t, map[string]interface{}{"id": "1", "n": 1}),
		mustRecord(t, map[string]interface{}{"id": "2", "n": 2}),
	}
	var engine sheetdb.MemoryEngine

	n, err := engine.Count(records, sheetdb.NewQuery("t").Where("n", ">", 1))
	if err != nil || n != 1 {
		t.Errorf("Count() = %d, %v, want 1, nil", n, err)
	}
	if _, err := engine.Evaluate(records, sheetdb.NewQuery("t").Where("n", "like", 1)); !errors.Is(err, sheetdb.ErrInvalidQuery) {
		t.Errorf("Evaluate() error = %v, want ErrInvalidQuery", err)
	}
}
