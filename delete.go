package sheetdb

import "sort"

// PlanDeletion resolves ids to the data offsets to remove. Duplicate and
// unknown ids are dropped. Offsets come highest first: deleting a row
// shifts every row below it up by one, so removal must run bottom-up for
// the remaining offsets to stay valid.
func PlanDeletion(idx *RowIndex, ids []string) []int {
	seen := make(map[string]bool, len(ids))
	offsets := make([]int, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if off, ok := idx.Offset(id); ok {
			offsets = append(offsets, off)
		}
	}

	sort.Sort(sort.Reverse(sort.IntSlice(offsets)))
	return offsets
}

// deleteOperations turns offsets into one row removal each, in order
func deleteOperations(props TableProperties, offsets []int) []Operation {
	ops := make([]Operation, len(offsets))
	for i, off := range offsets {
		ops[i] = Operation{
			Type:    OpDeleteRows,
			Table:   props.Title,
			SheetID: props.ID,
			Offset:  off,
			Count:   1,
		}
	}
	return ops
}
