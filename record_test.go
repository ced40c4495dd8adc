package sheetdb_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/ideamans/go-sheetdb"
)

func mustRecord(t *testing.T, values map[string]interface{}) sheetdb.Record {
	t.Helper()
	r, err := sheetdb.NewRecord(values)
	if err != nil {
		t.Fatalf("NewRecord() error = %v", err)
	}
	return r
}

func TestNewRecord(t *testing.T) {
	r := mustRecord(t, map[string]interface{}{
		"id":     "u1",
		"age":    30,
		"score":  float32(1.5),
		"active": true,
		"note":   nil,
	})

	want := map[string]interface{}{
		"id":     "u1",
		"age":    float64(30),
		"score":  float64(1.5),
		"active": true,
		"note":   nil,
	}
	if got := r.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}

	if _, err := sheetdb.NewRecord(map[string]interface{}{"bad": struct{}{}}); err == nil {
		t.Error("NewRecord() with struct value should fail")
	}
}

func TestRecord_IDAndFields(t *testing.T) {
	r := mustRecord(t, map[string]interface{}{"id": 7, "b": "x", "a": "y"})

	if got := r.ID("id"); got != "7" {
		t.Errorf("ID() = %q, want %q", got, "7")
	}
	if got := r.ID("missing"); got != "" {
		t.Errorf("ID() of missing field = %q, want empty", got)
	}
	if got, want := r.Fields(), []string{"a", "b", "id"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Fields() = %v, want %v", got, want)
	}

	p := r.Project([]string{"id", "a", "nope"})
	if got, want := p.Fields(), []string{"a", "id"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Project().Fields() = %v, want %v", got, want)
	}

	c := r.Clone()
	c.SetString("a", "changed")
	if r["a"].String() != "y" {
		t.Error("Clone() shares storage with the original")
	}
}

func TestRecord_GetAsString(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]interface{}
		col          string
		defaultValue string
		want         string
	}{
		{"string value", map[string]interface{}{"name": "John Doe"}, "name", "default", "John Doe"},
		{"int value", map[string]interface{}{"age": 30}, "age", "default", "30"},
		{"float64 value", map[string]interface{}{"score": 99.5}, "score", "default", "99.5"},
		{"bool true", map[string]interface{}{"active": true}, "active", "default", "true"},
		{"bool false", map[string]interface{}{"active": false}, "active", "default", "false"},
		{"missing value", map[string]interface{}{}, "missing", "default", "default"},
		{"nil value", map[string]interface{}{"nullval": nil}, "nullval", "default", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsString(tt.col, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetAsString() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_GetAsInt64(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]interface{}
		col          string
		defaultValue int64
		want         int64
	}{
		{"int64 value", map[string]interface{}{"count": int64(100)}, "count", -1, 100},
		{"int value", map[string]interface{}{"count": 50}, "count", -1, 50},
		{"float64 value", map[string]interface{}{"count": 75.9}, "count", -1, 75},
		{"string numeric value", map[string]interface{}{"count": "123"}, "count", -1, 123},
		{"string non-numeric value", map[string]interface{}{"count": "abc"}, "count", -1, -1},
		{"missing value", map[string]interface{}{}, "count", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsInt64(tt.col, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetAsInt64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_GetAsFloat64(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]interface{}
		col          string
		defaultValue float64
		want         float64
	}{
		{"float64 value", map[string]interface{}{"score": 99.5}, "score", -1, 99.5},
		{"int value", map[string]interface{}{"score": 100}, "score", -1, 100},
		{"string numeric value", map[string]interface{}{"score": "88.8"}, "score", -1, 88.8},
		{"string non-numeric value", map[string]interface{}{"score": "abc"}, "score", -1, -1},
		{"bool value", map[string]interface{}{"score": true}, "score", -1, -1},
		{"missing value", map[string]interface{}{}, "score", -1, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsFloat64(tt.col, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetAsFloat64() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_GetAsStrings(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]interface{}
		col          string
		defaultValue []string
		want         []string
	}{
		{"comma-separated string", map[string]interface{}{"tags": "tag1,tag2,tag3"}, "tags", nil, []string{"tag1", "tag2", "tag3"}},
		{"empty string", map[string]interface{}{"tags": ""}, "tags", nil, []string{}},
		{"number value", map[string]interface{}{"tags": 5}, "tags", nil, []string{"5"}},
		{"missing value", map[string]interface{}{}, "tags", []string{"default"}, []string{"default"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsStrings(tt.col, tt.defaultValue)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("GetAsStrings() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_GetAsBool(t *testing.T) {
	tests := []struct {
		name         string
		record       map[string]interface{}
		col          string
		defaultValue bool
		want         bool
	}{
		{"bool true", map[string]interface{}{"active": true}, "active", false, true},
		{"bool false", map[string]interface{}{"active": false}, "active", true, false},
		{"string true", map[string]interface{}{"active": "TRUE"}, "active", false, true},
		{"string 1", map[string]interface{}{"active": "1"}, "active", false, true},
		{"string false", map[string]interface{}{"active": "false"}, "active", true, false},
		{"int 1", map[string]interface{}{"active": 1}, "active", false, true},
		{"int 0", map[string]interface{}{"active": 0}, "active", true, false},
		{"unparsable string", map[string]interface{}{"active": "maybe"}, "active", true, true},
		{"missing value", map[string]interface{}{}, "active", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsBool(tt.col, tt.defaultValue)
			if got != tt.want {
				t.Errorf("GetAsBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_GetAsTime(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	defaultTime := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		record map[string]interface{}
		want   time.Time
	}{
		{"time.Time value", map[string]interface{}{"at": now}, now},
		{"RFC3339 string", map[string]interface{}{"at": "2024-01-15T10:30:00Z"}, now},
		{"custom format string", map[string]interface{}{"at": "2024-01-15 10:30:00"}, now},
		{"date only string", map[string]interface{}{"at": "2024-01-15"}, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"invalid string", map[string]interface{}{"at": "not a date"}, defaultTime},
		{"number value", map[string]interface{}{"at": 45000}, defaultTime},
		{"missing value", map[string]interface{}{}, defaultTime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mustRecord(t, tt.record).GetAsTime("at", defaultTime)
			if !got.Equal(tt.want) {
				t.Errorf("GetAsTime() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecord_Setters(t *testing.T) {
	var r sheetdb.Record
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

	r.SetString("name", "Alice")
	r.SetInt64("age", 30)
	r.SetFloat64("score", 95.5)
	r.SetStrings("tags", []string{"a", "b"})
	r.SetBool("active", true)
	r.SetTime("created", now)

	want := map[string]interface{}{
		"name":    "Alice",
		"age":     float64(30),
		"score":   95.5,
		"tags":    "a,b",
		"active":  true,
		"created": "2024-01-15T10:30:00Z",
	}
	if got := r.Map(); !reflect.DeepEqual(got, want) {
		t.Errorf("Map() = %v, want %v", got, want)
	}
	if got := r.GetAsTime("created", time.Time{}); !got.Equal(now) {
		t.Errorf("GetAsTime() = %v, want %v", got, now)
	}
}
