package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ideamans/go-sheetdb"
	"gopkg.in/yaml.v3"
)

// operators understood by parseWhere. The leftmost match wins; at equal
// positions the earlier entry wins, so ">=" is not read as ">".
var operators = []string{" between ", " in ", ">=", "<=", "==", "!=", ">", "<"}

// parseWhere parses "field OP value". The value is read as a YAML scalar or
// list, so 25 is a number, true a boolean and '0042' a string:
//
//	age>=20
//	name==Alice
//	tag in [a, b]
//	age between [20, 35]
func parseWhere(expr string) (sheetdb.Condition, error) {
	at, op := -1, ""
	for _, candidate := range operators {
		if i := strings.Index(expr, candidate); i >= 0 && (at < 0 || i < at) {
			at, op = i, candidate
		}
	}
	if at < 0 {
		return sheetdb.Condition{}, fmt.Errorf("%w: no operator in %q", sheetdb.ErrInvalidQuery, expr)
	}

	field := strings.TrimSpace(expr[:at])
	if field == "" {
		return sheetdb.Condition{}, fmt.Errorf("%w: missing field in %q", sheetdb.ErrInvalidQuery, expr)
	}

	var value interface{}
	if err := yaml.Unmarshal([]byte(strings.TrimSpace(expr[at+len(op):])), &value); err != nil {
		return sheetdb.Condition{}, fmt.Errorf("%w: bad value in %q: %v", sheetdb.ErrInvalidQuery, expr, err)
	}
	return sheetdb.Condition{Column: field, Operator: strings.TrimSpace(op), Value: value}, nil
}

// parseOrder parses "field" or "-field" for descending order
func parseOrder(expr string) sheetdb.Order {
	if field, ok := strings.CutPrefix(expr, "-"); ok {
		return sheetdb.Order{Field: field, Desc: true}
	}
	return sheetdb.Order{Field: expr}
}

// buildQuery assembles a query from command line expressions
func buildQuery(table string, where, order, fields []string, limit, offset int) (sheetdb.Query, error) {
	q := sheetdb.NewQuery(table)
	for _, expr := range where {
		c, err := parseWhere(expr)
		if err != nil {
			return q, err
		}
		q = q.Where(c.Column, c.Operator, c.Value)
	}
	for _, expr := range order {
		o := parseOrder(expr)
		q = q.OrderBy(o.Field, o.Desc)
	}
	if len(fields) > 0 {
		q = q.Select(fields...)
	}
	return q.WithLimit(limit).WithOffset(offset), sheetdb.ValidateQuery(q)
}

// readRecords decodes a YAML or JSON document holding one record or a list
// of records
func readRecords(r io.Reader) ([]sheetdb.Record, error) {
	var doc interface{}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode records: %w", err)
	}

	var items []interface{}
	switch v := doc.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("decode records: expected a mapping or a list, got %T", doc)
	}

	records := make([]sheetdb.Record, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("record %d: expected a mapping, got %T", i, item)
		}
		record, err := sheetdb.NewRecord(m)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, record)
	}
	return records, nil
}
