package sheetdb

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Condition represents a single query condition
type Condition struct {
	Column   string      // Field name
	Operator string      // ==, !=, >, >=, <, <=, in, between
	Value    interface{} // Scalar; []interface{} for in; [2]interface{} or two-element []interface{} for between
}

// Order sorts results by one field
type Order struct {
	Field string
	Desc  bool
}

// Query selects records of one table. Conditions are AND-ed.
type Query struct {
	Table      string
	Conditions []Condition
	Orders     []Order
	Projection []string // Fields kept in the results, all when empty
	Limit      int
	Offset     int
}

// NewQuery returns a query over every row of table
func NewQuery(table string) Query {
	return Query{Table: table}
}

// Where returns a copy of q with one more condition
func (q Query) Where(column, operator string, value interface{}) Query {
	q.Conditions = append(slices.Clip(q.Conditions), Condition{Column: column, Operator: operator, Value: value})
	return q
}

// OrderBy returns a copy of q with one more sort key
func (q Query) OrderBy(field string, desc bool) Query {
	q.Orders = append(slices.Clip(q.Orders), Order{Field: field, Desc: desc})
	return q
}

// Select returns a copy of q projected to fields
func (q Query) Select(fields ...string) Query {
	q.Projection = slices.Clone(fields)
	return q
}

// WithLimit returns a copy of q returning at most n records
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// WithOffset returns a copy of q skipping the first n matches
func (q Query) WithOffset(n int) Query {
	q.Offset = n
	return q
}

// QueryEngine evaluates queries over materialized records
type QueryEngine interface {
	Evaluate(records []Record, q Query) ([]Record, error)
	Count(records []Record, q Query) (int, error)
}

// MemoryEngine is the in-process QueryEngine
type MemoryEngine struct{}

// Evaluate filters, orders, pages and projects records
func (MemoryEngine) Evaluate(records []Record, q Query) ([]Record, error) {
	if err := ValidateQuery(q); err != nil {
		return nil, err
	}
	return ApplyQuery(records, q), nil
}

// Count returns the number of records Evaluate would return
func (e MemoryEngine) Count(records []Record, q Query) (int, error) {
	rows, err := e.Evaluate(records, q)
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// evalCondition evaluates a single condition against a record
func evalCondition(record Record, condition Condition) bool {
	// A missing field is compared as absent
	value := record[condition.Column]

	switch condition.Operator {
	case "==":
		return compareEqual(value, condition.Value)
	case "!=":
		return !compareEqual(value, condition.Value)
	case ">":
		c, ok := compareOrdered(value, condition.Value)
		return ok && c > 0
	case ">=":
		c, ok := compareOrdered(value, condition.Value)
		return ok && c >= 0
	case "<":
		c, ok := compareOrdered(value, condition.Value)
		return ok && c < 0
	case "<=":
		c, ok := compareOrdered(value, condition.Value)
		return ok && c <= 0
	case "in":
		return compareIn(value, condition.Value)
	case "between":
		return compareBetween(value, condition.Value)
	default:
		return false
	}
}

// MatchesQuery checks if a record matches all conditions in the query
func (r Record) MatchesQuery(query Query) bool {
	for _, condition := range query.Conditions {
		if !evalCondition(r, condition) {
			return false
		}
	}
	return true
}

// toValue converts a condition operand, falling back to its text
func toValue(v interface{}) Value {
	val, err := FromAny(v)
	if err != nil {
		return String(fmt.Sprintf("%v", v))
	}
	return val
}

// compareEqual compares a value with an operand. Numbers compare
// numerically, everything else by text.
func compareEqual(a Value, operand interface{}) bool {
	b := toValue(operand)
	if a.IsAbsent() || b.IsAbsent() {
		return a.IsAbsent() && b.IsAbsent()
	}
	if an, ok := a.AsNumber(); ok {
		if bn, ok := b.AsNumber(); ok {
			return an == bn
		}
	}
	return a.String() == b.String()
}

// compareOrdered compares two numbers or two strings
func compareOrdered(a Value, operand interface{}) (int, bool) {
	b := toValue(operand)
	if an, ok := a.AsNumber(); ok {
		if bn, ok := b.AsNumber(); ok {
			return compareFloat(an, bn), true
		}
		return 0, false
	}
	if as, ok := a.AsString(); ok {
		if bs, ok := b.AsString(); ok {
			return strings.Compare(as, bs), true
		}
	}
	return 0, false
}

// compareIn checks if a is in the list b
func compareIn(a Value, b interface{}) bool {
	list, ok := b.([]interface{})
	if !ok {
		return false
	}

	for _, item := range list {
		if compareEqual(a, item) {
			return true
		}
	}
	return false
}

// compareBetween checks if a is between b[0] and b[1], inclusive
func compareBetween(a Value, b interface{}) bool {
	var lo, hi interface{}

	switch v := b.(type) {
	case [2]interface{}:
		lo, hi = v[0], v[1]
	case []interface{}:
		if len(v) != 2 {
			return false
		}
		lo, hi = v[0], v[1]
	default:
		return false
	}

	c1, ok1 := compareOrdered(a, lo)
	c2, ok2 := compareOrdered(a, hi)
	return ok1 && ok2 && c1 >= 0 && c2 <= 0
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// compareValues orders values of any kind: absent, then booleans, numbers
// and strings
func compareValues(a, b Value) int {
	if a.Kind() != b.Kind() {
		return compareFloat(float64(a.Kind()), float64(b.Kind()))
	}
	switch a.Kind() {
	case KindBool:
		ab, _ := a.AsBool()
		bb, _ := b.AsBool()
		switch {
		case ab == bb:
			return 0
		case !ab:
			return -1
		default:
			return 1
		}
	case KindNumber:
		an, _ := a.AsNumber()
		bn, _ := b.AsNumber()
		return compareFloat(an, bn)
	case KindString:
		as, _ := a.AsString()
		bs, _ := b.AsString()
		return strings.Compare(as, bs)
	default:
		return 0
	}
}

// ApplyQuery filters, orders, pages and projects records. The query is
// assumed valid.
func ApplyQuery(records []Record, query Query) []Record {
	results := make([]Record, 0, len(records))

	for _, record := range records {
		if record.MatchesQuery(query) {
			results = append(results, record)
		}
	}

	if len(query.Orders) > 0 {
		sort.SliceStable(results, func(i, j int) bool {
			for _, o := range query.Orders {
				c := compareValues(results[i][o.Field], results[j][o.Field])
				if c == 0 {
					continue
				}
				if o.Desc {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}

	if query.Offset > 0 {
		if query.Offset >= len(results) {
			return []Record{}
		}
		results = results[query.Offset:]
	}

	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}

	if len(query.Projection) > 0 {
		projected := make([]Record, len(results))
		for i, r := range results {
			projected[i] = r.Project(query.Projection)
		}
		results = projected
	}

	return results
}

var validOperators = []string{"==", "!=", ">", ">=", "<", "<=", "in", "between"}

// ValidateQuery validates query structure
func ValidateQuery(query Query) error {
	for i, cond := range query.Conditions {
		if !slices.Contains(validOperators, cond.Operator) {
			return fmt.Errorf("%w: invalid operator '%s' in condition %d", ErrInvalidQuery, cond.Operator, i)
		}

		if cond.Operator == "in" {
			if _, ok := cond.Value.([]interface{}); !ok {
				return fmt.Errorf("%w: operator 'in' requires []interface{} value in condition %d", ErrInvalidQuery, i)
			}
		}

		if cond.Operator == "between" {
			valid := false
			switch v := cond.Value.(type) {
			case [2]interface{}:
				valid = true
			case []interface{}:
				valid = len(v) == 2
			}
			if !valid {
				return fmt.Errorf("%w: operator 'between' requires [2]interface{} or []interface{} with 2 elements in condition %d", ErrInvalidQuery, i)
			}
		}

		if cond.Column == "" {
			return fmt.Errorf("%w: empty column name in condition %d", ErrInvalidQuery, i)
		}
	}

	for i, o := range query.Orders {
		if o.Field == "" {
			return fmt.Errorf("%w: empty field in order %d", ErrInvalidQuery, i)
		}
	}

	if query.Limit < 0 {
		return fmt.Errorf("%w: limit must be non-negative", ErrInvalidQuery)
	}
	if query.Offset < 0 {
		return fmt.Errorf("%w: offset must be non-negative", ErrInvalidQuery)
	}

	return nil
}
