package workbook

import "errors"

// Failure kinds surfaced while locating and reading job workbooks.
var (
	ErrFileNotFound  = errors.New("workbook not found")
	ErrSheetNotFound = errors.New("sheet not found")
	ErrLocked        = errors.New("workbook locked")
	ErrParse         = errors.New("malformed workbook")
)
