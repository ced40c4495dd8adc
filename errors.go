package sheetdb

import "errors"

var (
	ErrTableNotFound    = errors.New("table not found")
	ErrMissingID        = errors.New("record has no id")
	ErrDuplicateID      = errors.New("duplicate id in batch")
	ErrIDColumn         = errors.New("first column is not the id column")
	ErrInvalidField     = errors.New("invalid field name")
	ErrUnsupportedValue = errors.New("unsupported value type")
	ErrInvalidQuery     = errors.New("invalid query")
	ErrClosed           = errors.New("db is closed")
)
