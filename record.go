package sheetdb

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Record maps field names to cell values. A record is stored as one data
// row; its identifier field selects the row.
type Record map[string]Value

// NewRecord builds a record from Go scalars
func NewRecord(values map[string]interface{}) (Record, error) {
	r := make(Record, len(values))
	for k, v := range values {
		val, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", k, err)
		}
		r[k] = val
	}
	return r, nil
}

// ID returns the text of the identifier field, or "" when it is absent
func (r Record) ID(field string) string {
	return r[field].String()
}

// Fields returns the field names in lexical order
func (r Record) Fields() []string {
	fields := make([]string, 0, len(r))
	for k := range r {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return fields
}

// Map returns the record as plain Go values (nil, bool, float64, string)
func (r Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r))
	for k, v := range r {
		m[k] = v.Interface()
	}
	return m
}

// Clone returns a shallow copy
func (r Record) Clone() Record {
	c := make(Record, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Project returns a copy holding only the given fields
func (r Record) Project(fields []string) Record {
	c := make(Record, len(fields))
	for _, f := range fields {
		if v, ok := r[f]; ok {
			c[f] = v
		}
	}
	return c
}

// GetAsString returns the value as string or defaultValue if not found
func (r Record) GetAsString(col string, defaultValue string) string {
	v, ok := r[col]
	if !ok || v.IsAbsent() {
		return defaultValue
	}
	return v.String()
}

// GetAsInt64 returns the value as int64 or defaultValue if not found
func (r Record) GetAsInt64(col string, defaultValue int64) int64 {
	v := r[col]
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		return int64(n)
	case KindString:
		s, _ := v.AsString()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

// GetAsFloat64 returns the value as float64 or defaultValue if not found
func (r Record) GetAsFloat64(col string, defaultValue float64) float64 {
	v := r[col]
	switch v.Kind() {
	case KindNumber:
		n, _ := v.AsNumber()
		return n
	case KindString:
		s, _ := v.AsString()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// GetAsStrings splits a comma separated string value
func (r Record) GetAsStrings(col string, defaultValue []string) []string {
	v := r[col]
	switch v.Kind() {
	case KindAbsent:
		return defaultValue
	case KindString:
		s, _ := v.AsString()
		if s == "" {
			return []string{}
		}
		return strings.Split(s, ",")
	default:
		return []string{v.String()}
	}
}

// GetAsBool returns the value as bool or defaultValue if not found
func (r Record) GetAsBool(col string, defaultValue bool) bool {
	v := r[col]
	switch v.Kind() {
	case KindBool:
		b, _ := v.AsBool()
		return b
	case KindNumber:
		n, _ := v.AsNumber()
		return n != 0
	case KindString:
		s, _ := v.AsString()
		switch strings.ToLower(s) {
		case "true", "1":
			return true
		case "false", "0":
			return false
		}
	}
	return defaultValue
}

// GetAsTime parses a string value as RFC 3339, "2006-01-02 15:04:05" or a date
func (r Record) GetAsTime(col string, defaultValue time.Time) time.Time {
	s, ok := r[col].AsString()
	if !ok {
		return defaultValue
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return defaultValue
}

func (r *Record) set(col string, v Value) {
	if *r == nil {
		*r = make(Record)
	}
	(*r)[col] = v
}

// SetString sets a string value
func (r *Record) SetString(col string, value string) { r.set(col, String(value)) }

// SetInt64 sets a numeric value
func (r *Record) SetInt64(col string, value int64) { r.set(col, Number(float64(value))) }

// SetFloat64 sets a numeric value
func (r *Record) SetFloat64(col string, value float64) { r.set(col, Number(value)) }

// SetStrings sets a []string value (stored as comma-separated string)
func (r *Record) SetStrings(col string, value []string) {
	r.set(col, String(strings.Join(value, ",")))
}

// SetBool sets a boolean value
func (r *Record) SetBool(col string, value bool) { r.set(col, Bool(value)) }

// SetTime sets a time.Time value (stored as RFC 3339 string)
func (r *Record) SetTime(col string, value time.Time) {
	r.set(col, String(value.Format(time.RFC3339)))
}
