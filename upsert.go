package sheetdb

import (
	"fmt"

	"github.com/google/uuid"
)

// UpsertPlan is the set of writes that stores a batch
type UpsertPlan struct {
	// Updates overwrite every column after the id of an existing row
	Updates []CellUpdate
	// Appends are full rows written from grid row AppendAt on
	Appends  [][]Value
	AppendAt int
}

// PlanUpsert splits batch into updates of rows already in idx and appends
// of new rows. Values follow header order; missing fields are absent so
// updates clear what an older version of the record held.
func PlanUpsert(header []string, idx *RowIndex, batch []Record, idField string) UpsertPlan {
	plan := UpsertPlan{AppendAt: idx.NextOffset()}
	for _, record := range batch {
		if off, ok := idx.Offset(record.ID(idField)); ok {
			if len(header) < 2 {
				continue
			}
			values := make([]Value, len(header)-1)
			for i, col := range header[1:] {
				values[i] = record[col]
			}
			plan.Updates = append(plan.Updates, CellUpdate{Row: off, Col: 1, Values: values})
			continue
		}

		row := make([]Value, len(header))
		for i, col := range header {
			row[i] = record[col]
		}
		plan.Appends = append(plan.Appends, row)
	}
	return plan
}

// DuplicateIDPolicy decides what SaveBatch does with a batch holding the
// same id more than once
type DuplicateIDPolicy int

const (
	// DuplicateIDsAllow passes the batch through untouched. Repeats of an
	// existing id overwrite the same row in batch order; repeats of a new id
	// append one row each.
	DuplicateIDsAllow DuplicateIDPolicy = iota
	// DuplicateIDsLastWins keeps only the last record for each id
	DuplicateIDsLastWins
	// DuplicateIDsReject fails the batch with ErrDuplicateID
	DuplicateIDsReject
)

// String returns the policy name
func (p DuplicateIDPolicy) String() string {
	switch p {
	case DuplicateIDsLastWins:
		return "last-wins"
	case DuplicateIDsReject:
		return "reject"
	default:
		return "allow"
	}
}

// ParseDuplicateIDPolicy parses a policy name as returned by String
func ParseDuplicateIDPolicy(s string) (DuplicateIDPolicy, error) {
	switch s {
	case "", "allow":
		return DuplicateIDsAllow, nil
	case "last-wins":
		return DuplicateIDsLastWins, nil
	case "reject":
		return DuplicateIDsReject, nil
	default:
		return 0, fmt.Errorf("unknown duplicate id policy %q", s)
	}
}

// prepareBatch checks ids, assigns missing ones when configured and applies
// the duplicate id policy
func (db *SpreadsheetDB) prepareBatch(records []Record) ([]Record, error) {
	idField := db.config.IDField
	for i, record := range records {
		if _, ok := record[""]; ok {
			return nil, fmt.Errorf("%w: record %d has an empty field name", ErrInvalidField, i)
		}
	}
	for i, record := range records {
		if record.ID(idField) != "" {
			continue
		}
		if !db.config.AssignIDs || record == nil {
			return nil, fmt.Errorf("%w: record %d has no %q", ErrMissingID, i, idField)
		}
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("failed to generate id: %w", err)
		}
		record[idField] = String(id.String())
	}

	if db.config.DuplicateIDs == DuplicateIDsAllow {
		return records, nil
	}

	last := make(map[string]int, len(records))
	for i, record := range records {
		id := record.ID(idField)
		if _, dup := last[id]; dup && db.config.DuplicateIDs == DuplicateIDsReject {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		last[id] = i
	}
	if len(last) == len(records) {
		return records, nil
	}

	batch := make([]Record, 0, len(last))
	for i, record := range records {
		if last[record.ID(idField)] == i {
			batch = append(batch, record)
		}
	}
	return batch, nil
}
