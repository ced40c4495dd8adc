package sheetdb

// Cell is a raw typed cell as reported by a backing grid. More than one
// field may be set; Value picks one.
type Cell struct {
	Bool   *bool
	Number *float64
	String *string
}

// Value decodes the cell. The first present field wins in the order
// boolean, number, string; a cell with none is absent.
func (c Cell) Value() Value {
	switch {
	case c.Bool != nil:
		return Bool(*c.Bool)
	case c.Number != nil:
		return Number(*c.Number)
	case c.String != nil:
		return String(*c.String)
	default:
		return Null()
	}
}

// DecodeHeader reads column names up to the first empty cell
func DecodeHeader(row []Cell) []string {
	header := make([]string, 0, len(row))
	for _, c := range row {
		name := c.Value().String()
		if name == "" {
			break
		}
		header = append(header, name)
	}
	return header
}

// headerFromText is DecodeHeader for formatted values
func headerFromText(row []string) []string {
	header := make([]string, 0, len(row))
	for _, name := range row {
		if name == "" {
			break
		}
		header = append(header, name)
	}
	return header
}

// DecodeGrid converts a grid (header row first) into records in row order.
// Rows without a non-empty idField are skipped.
func DecodeGrid(rows [][]Cell, idField string) ([]string, []Record) {
	if len(rows) == 0 {
		return []string{}, []Record{}
	}

	header := DecodeHeader(rows[0])
	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make(Record, len(header))
		for i, cell := range row {
			if i >= len(header) {
				break
			}
			if v := cell.Value(); !v.IsAbsent() {
				record[header[i]] = v
			}
		}
		if record.ID(idField) == "" {
			continue
		}
		records = append(records, record)
	}
	return header, records
}
