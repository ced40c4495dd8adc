package excel

import "errors"

var (
	// ErrMissingFilePath is returned when file path is not specified
	ErrMissingFilePath = errors.New("file path is required")

	// ErrInvalidFileFormat is returned when the file is not a valid Excel file
	ErrInvalidFileFormat = errors.New("invalid Excel file format")

	// ErrUnknownSheetID is returned when a sheet id does not name a sheet of the workbook
	ErrUnknownSheetID = errors.New("unknown sheet id")

	// ErrSheetNameConflict is returned when a new table differs from an existing sheet only by case
	ErrSheetNameConflict = errors.New("sheet name differs from an existing sheet only by case")
)
